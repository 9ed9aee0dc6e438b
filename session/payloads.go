package session

import (
	"github.com/worldpet/go-auth-client/users"
)

// Credentials are the transient login inputs. They are never persisted beyond
// the call that uses them.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the tagged union over the two registration variants. The
// unexported method seals the union to the two concrete payloads below.
type Registration interface {
	registrationRole() users.RoleType
}

// OwnerRegistration signs up a pet owner with an existing clinic.
type OwnerRegistration struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

func (OwnerRegistration) registrationRole() users.RoleType {
	return users.RoleOwner
}

// ClinicRegistration signs up a new clinic together with its admin user.
type ClinicRegistration struct {
	ClinicName      string `json:"clinic_name"`
	Subdomain       string `json:"subdomain"`
	AdminName       string `json:"admin_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

func (ClinicRegistration) registrationRole() users.RoleType {
	return users.RoleAdmin
}

// The wire shapes sent to POST /auth/register: the variant payload plus the
// role it registers.
type ownerRegistrationBody struct {
	OwnerRegistration
	Role users.RoleType `json:"role"`
}

type clinicRegistrationBody struct {
	ClinicRegistration
	Role users.RoleType `json:"role"`
}
