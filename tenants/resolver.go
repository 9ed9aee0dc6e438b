package tenants

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/worldpet/go-auth-client/transport"
)

const (
	// TenantParam is the query parameter that names a tenant slug explicitly.
	TenantParam = "tenant"

	// DefaultSlug resolves to the fallback clinic tenant.
	DefaultSlug = "default-clinic"

	// PlatformSlug resolves to the platform-level tenant with its own branding.
	PlatformSlug = "admin"
)

// Built-in records keep auth screens brandable when the identity service is
// unreachable.
var (
	defaultTenant = Tenant{
		ID:           "1",
		Name:         "Happy Paws Clinic",
		Slug:         "happy-paws",
		PrimaryColor: "#14b8a6",
	}
	platformTenant = Tenant{
		ID:           "platform",
		Name:         "World Pet Platform",
		Slug:         PlatformSlug,
		PrimaryColor: "#8251EE",
	}
)

// RequestContext carries the routing inputs tenant resolution derives from.
type RequestContext struct {
	Host  string     // e.g. "happy-paws.worldpet.io:443"
	Query url.Values // parsed query string, may be nil
}

// Resolver derives the active tenant from a request context and fetches its
// metadata. Resolution is deterministic per context, independent of any
// authenticated session, and best-effort: it never errors and never blocks
// the rendering of auth screens.
type Resolver struct {
	client     *transport.Client
	baseDomain string
	log        zerolog.Logger
}

// ResolverOption defines a function type to modify the Resolver instance.
type ResolverOption func(*Resolver)

// WithBaseDomain sets the apex domain whose subdomains name tenants.
func WithBaseDomain(domain string) ResolverOption {
	return func(r *Resolver) {
		r.baseDomain = domain
	}
}

// WithLogger sets the logger (defaults to a no-op logger).
func WithLogger(logger zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.log = logger
	}
}

// NewResolver initializes a tenant resolver backed by the identity service.
func NewResolver(client *transport.Client, options ...ResolverOption) (*Resolver, error) {
	if client == nil {
		return nil, errors.New("[tenants.NewResolver] transport client is required")
	}

	resolver := &Resolver{
		client:     client,
		baseDomain: "worldpet.io",
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(resolver)
	}
	return resolver, nil
}

// Resolve maps the request context to a tenant. Metadata is fetched from
// GET /tenants/{slug}; a fetch failure falls back to the built-in record for
// the derived slug rather than erroring.
func (r *Resolver) Resolve(ctx context.Context, rc RequestContext) Tenant {
	slug := r.SlugFromContext(rc)

	var tenant Tenant
	if err := r.client.Call(ctx, http.MethodGet, "/tenants/"+url.PathEscape(slug), nil, &tenant); err != nil {
		r.log.Debug().Err(err).Str("slug", slug).Msg("tenant metadata fetch failed, using built-in record")
		return builtinTenant(slug)
	}
	if tenant.ID == "" {
		return builtinTenant(slug)
	}
	return tenant
}

// SlugFromContext derives the tenant slug from the routing context: an
// explicit tenant query parameter wins, then the first subdomain label under
// the base domain; anything else falls back to the default slug.
func (r *Resolver) SlugFromContext(rc RequestContext) string {
	if rc.Query != nil {
		if slug := strings.TrimSpace(rc.Query.Get(TenantParam)); slug != "" {
			return strings.ToLower(slug)
		}
	}

	host := rc.Host
	if i := strings.LastIndex(host, ":"); i != -1 {
		host = host[:i]
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	if host == "" || host == r.baseDomain || !strings.HasSuffix(host, "."+r.baseDomain) {
		return DefaultSlug
	}

	subdomain := strings.TrimSuffix(host, "."+r.baseDomain)
	labels := strings.Split(subdomain, ".")
	slug := labels[len(labels)-1]
	if slug == "" || slug == "www" {
		return DefaultSlug
	}
	return slug
}

func builtinTenant(slug string) Tenant {
	if slug == PlatformSlug {
		return platformTenant
	}
	return defaultTenant
}
