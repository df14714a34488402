package models

import (
	"regexp"
	"time"
)

// Length bounds of a tenant identifier. It doubles as a DNS label.
const (
	TenantIDMinLen = 3
	TenantIDMaxLen = 63
)

var tenantIDPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidTenantID reports whether id is usable as a tenant identifier:
// 3 to 63 lowercase letters, digits and inner hyphens.
func ValidTenantID(id string) bool {
	return len(id) >= TenantIDMinLen && len(id) <= TenantIDMaxLen && tenantIDPattern.MatchString(id)
}

// TaxJurisdiction is the tax regime a tenant reports under.
type TaxJurisdiction string

const (
	TaxJurisdictionUS TaxJurisdiction = "US"
	TaxJurisdictionUK TaxJurisdiction = "UK"
	TaxJurisdictionEU TaxJurisdiction = "EU"
	TaxJurisdictionCA TaxJurisdiction = "CA"
	TaxJurisdictionAU TaxJurisdiction = "AU"
)

// Currency is the ISO 4217 code a tenant displays amounts in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
)

// Colors holds the two brand colors of a tenant as #RRGGBB strings.
type Colors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// TenantConfig is the configuration of a single branded storefront. The
// TenantID doubles as the routing token (subdomain or path prefix) and is
// never changed after creation.
type TenantConfig struct {
	TenantID        string          `json:"tenantId"`
	CompanyName     string          `json:"companyName"`
	TaxJurisdiction TaxJurisdiction `json:"taxJurisdiction"`
	Currency        Currency        `json:"currency"`
	Colors          Colors          `json:"colors"`
	OrgID           string          `json:"orgId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}
