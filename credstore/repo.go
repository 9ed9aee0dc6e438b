package credstore

// Credential is the opaque bearer token pair issued by the identity service.
// The store treats both values as opaque strings; it never inspects them.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether the credential carries no tokens at all.
func (c Credential) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Repo persists the credential pair. Absence of a stored credential is the
// logged-out signal, not an error: Load returns ok=false and callers treat
// that as "no session".
type Repo interface {
	Save(credential Credential) error
	Load() (Credential, bool)
	Clear() error
}
