// Package validate holds the pure, stateless payload validation used by forms
// before a submission ever reaches the session manager. It performs no I/O
// and never touches session state; all failures stay local to the form.
package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/worldpet/go-auth-client/session"
)

const (
	loginPasswordMinLen    = 6
	registerPasswordMinLen = 8
	subdomainMinLen        = 3
	phoneMinDigits         = 10
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Fields maps a field name to a human-readable problem. An empty map means
// the payload is valid.
type Fields map[string]string

func (f Fields) Valid() bool {
	return len(f) == 0
}

// Login validates login credentials. Login accepts shorter passwords than
// registration: the stronger policy is enforced at account creation time
// only.
func Login(credentials session.Credentials) Fields {
	fields := Fields{}
	checkEmail(fields, credentials.Email)
	if len(credentials.Password) < loginPasswordMinLen {
		fields["password"] = "Password must be at least 6 characters"
	}
	return fields
}

// OwnerRegistration validates the pet-owner registration variant.
func OwnerRegistration(registration session.OwnerRegistration) Fields {
	fields := Fields{}
	if len(strings.TrimSpace(registration.FullName)) < 2 {
		fields["fullName"] = "Name is required"
	}
	checkEmail(fields, registration.Email)
	checkPhone(fields, registration.Phone)
	checkRegistrationPassword(fields, registration.Password, registration.ConfirmPassword)
	return fields
}

// ClinicRegistration validates the clinic-admin registration variant.
func ClinicRegistration(registration session.ClinicRegistration) Fields {
	fields := Fields{}
	if len(strings.TrimSpace(registration.ClinicName)) < 3 {
		fields["clinicName"] = "Clinic name is required"
	}
	checkSubdomain(fields, registration.Subdomain)
	if len(strings.TrimSpace(registration.AdminName)) < 2 {
		fields["adminName"] = "Admin name is required"
	}
	checkEmail(fields, registration.Email)
	checkPhone(fields, registration.Phone)
	checkRegistrationPassword(fields, registration.Password, registration.ConfirmPassword)
	return fields
}

// Registration validates either variant of the registration union.
func Registration(registration session.Registration) Fields {
	switch payload := registration.(type) {
	case session.OwnerRegistration:
		return OwnerRegistration(payload)
	case session.ClinicRegistration:
		return ClinicRegistration(payload)
	}
	return Fields{"payload": "Unsupported registration payload"}
}

func checkEmail(fields Fields, email string) {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at < 1 || !strings.Contains(email[at:], ".") || strings.HasSuffix(email, ".") {
		fields["email"] = "Invalid email address"
	}
}

func checkPhone(fields Fields, phone string) {
	digits := 0
	for _, char := range phone {
		if unicode.IsDigit(char) {
			digits++
		}
	}
	if digits < phoneMinDigits {
		fields["phone"] = "Phone number must be at least 10 digits"
	}
}

func checkRegistrationPassword(fields Fields, password, confirmPassword string) {
	if len(password) < registerPasswordMinLen {
		fields["password"] = "Password must be at least 8 characters"
	}
	// A mismatch belongs to the confirmation field, not the password field.
	if password != confirmPassword {
		fields["confirmPassword"] = "Passwords don't match"
	}
}

func checkSubdomain(fields Fields, subdomain string) {
	if len(subdomain) < subdomainMinLen {
		fields["subdomain"] = "Subdomain must be at least 3 characters"
		return
	}
	if !subdomainPattern.MatchString(subdomain) {
		fields["subdomain"] = "Only lowercase letters, numbers, and hyphens"
	}
}
