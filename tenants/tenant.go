package tenants

// Tenant is an isolated organizational context (a clinic) whose identity and
// branding are resolved once per application session. Read-only to consumers.
type Tenant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	PrimaryColor string `json:"primary_color,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
}
