package users

import (
	"golang.org/x/crypto/bcrypt"
)

// RoleType represents a user's role within the platform.
type RoleType string

const (
	RoleOwner      RoleType = "owner"      // Pet owner, scoped to a single clinic
	RoleAdmin      RoleType = "admin"      // Clinic administrator
	RoleSuperAdmin RoleType = "superadmin" // Platform-level administrator
)

// Valid reports whether the role is one the identity service can issue.
func (r RoleType) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is the authenticated principal as issued by the identity service.
// Immutable once issued; replaced wholesale on refresh, never patched
// field by field.
type User struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Role        RoleType `json:"role"`
	TenantID    string   `json:"tenant_id"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Phone       string   `json:"phone,omitempty"`
}

// IsAdmin reports whether the user may enter clinic administration views.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// HasRole reports whether the user's role is one of the given roles.
func (u *User) HasRole(roles ...RoleType) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// HashPassword and CheckPasswordHash exist for the lab identity stub; the
// client core never hashes credentials itself.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
