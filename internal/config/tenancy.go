package config

const (
	baseDomainVar        = "BASE_DOMAIN"
	defaultTenantVar     = "DEFAULT_TENANT_SLUG"
	platformTenantVar    = "PLATFORM_TENANT_SLUG"
	defaultBaseDomain    = "worldpet.io"
	defaultDefaultTenant = "default-clinic"
	defaultPlatform      = "admin"
)

type Tenancy struct{}

var _ TenantConfig = Tenancy{}

// GetBaseDomain returns the apex domain whose subdomains name tenants.
func (Tenancy) GetBaseDomain() string {
	return GetEnv(baseDomainVar, defaultBaseDomain)
}

func (Tenancy) GetDefaultTenantSlug() string {
	return GetEnv(defaultTenantVar, defaultDefaultTenant)
}

func (Tenancy) GetPlatformTenantSlug() string {
	return GetEnv(platformTenantVar, defaultPlatform)
}
