package web

import "forgewealth/storefront/pkg/models"

// Option is one entry of a select box.
type Option struct {
	Value string
	Label string
}

var jurisdictionOptions = []Option{
	{string(models.TaxJurisdictionUS), "United States"},
	{string(models.TaxJurisdictionUK), "United Kingdom"},
	{string(models.TaxJurisdictionEU), "European Union"},
	{string(models.TaxJurisdictionCA), "Canada"},
	{string(models.TaxJurisdictionAU), "Australia"},
}

var currencyOptions = []Option{
	{string(models.CurrencyUSD), "USD ($)"},
	{string(models.CurrencyEUR), "EUR (€)"},
	{string(models.CurrencyGBP), "GBP (£)"},
	{string(models.CurrencyCAD), "CAD ($)"},
	{string(models.CurrencyAUD), "AUD ($)"},
}

// JurisdictionName returns the display name of j, or j itself.
func JurisdictionName(j models.TaxJurisdiction) string {
	return label(jurisdictionOptions, string(j))
}

// CurrencyName returns the display name of c, or c itself.
func CurrencyName(c models.Currency) string {
	return label(currencyOptions, string(c))
}

func label(options []Option, value string) string {
	for _, o := range options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// IntakeForm is the view model of the tenant creation page.
type IntakeForm struct {
	Jurisdictions []Option
	Currencies    []Option
	Defaults      FormDefaults
	// URLPrefix and URLSuffix surround the tenant ID in the URL preview.
	URLPrefix string
	URLSuffix string
}

// FormDefaults are the initial values of the intake form.
type FormDefaults struct {
	TaxJurisdiction string
	Currency        string
	Primary         string
	Secondary       string
}

// NewIntakeForm builds the intake form. The tenant URL preview is
// urlPrefix + <tenant ID> + urlSuffix.
func NewIntakeForm(urlPrefix, urlSuffix string) IntakeForm {
	return IntakeForm{
		Jurisdictions: jurisdictionOptions,
		Currencies:    currencyOptions,
		Defaults: FormDefaults{
			TaxJurisdiction: string(models.TaxJurisdictionUS),
			Currency:        string(models.CurrencyUSD),
			Primary:         "#1E40AF",
			Secondary:       "#60A5FA",
		},
		URLPrefix: urlPrefix,
		URLSuffix: urlSuffix,
	}
}

// NotFoundPage is the view model of the unknown tenant page.
type NotFoundPage struct {
	TenantID string
}
