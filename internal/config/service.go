package config

import "strconv"

const (
	identityBaseURLVar = "IDENTITY_BASE_URL"
	httpTimeoutVar     = "HTTP_TIMEOUT_SECONDS"
)

type Service struct{}

var _ ServiceConfig = Service{}

// GetIdentityBaseURL returns the base URL of the remote identity service.
func (Service) GetIdentityBaseURL() string {
	return GetEnv(identityBaseURLVar, "http://localhost:9000")
}

func (Service) GetHTTPTimeoutSeconds() int {
	value := GetEnv(httpTimeoutVar, "15")
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 15
	}
	return seconds
}
