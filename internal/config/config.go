package config

type Config interface {
	EnvConfig
	ServiceConfig
	TenantConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
}

type ServiceConfig interface {
	GetIdentityBaseURL() string
	GetHTTPTimeoutSeconds() int
}

type TenantConfig interface {
	GetBaseDomain() string
	GetDefaultTenantSlug() string
	GetPlatformTenantSlug() string
}

type mainConfig struct {
	EnvVars
	Service
	Tenancy
}

func New() Config {
	return mainConfig{}
}
