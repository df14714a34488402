package auth

const (
	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
	ScopeEmail   = "email"
	// ScopeGroups asks the provider to include group and organization
	// memberships, which CheckAccess matches against tenants.
	ScopeGroups        = "groups"
	ScopeTenantsRead   = "tenants:read"
	ScopeTenantsCreate = "tenants:create"
)

// LoginScopes are requested by the browser login flow.
var LoginScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopeGroups,
}

// AllScopes defines the full set of scopes used by the Swagger UI
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopeGroups,
	ScopeTenantsRead,
	ScopeTenantsCreate,
}
