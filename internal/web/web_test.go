package web

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forgewealth/storefront/pkg/models"
)

func sampleTenant() *models.TenantConfig {
	return &models.TenantConfig{
		TenantID:        "acme",
		CompanyName:     "Acme <Wealth>",
		TaxJurisdiction: models.TaxJurisdictionUS,
		Currency:        models.CurrencyUSD,
		Colors:          models.Colors{Primary: "#1E40AF", Secondary: "#60A5FA"},
	}
}

func TestEstimatedTax(t *testing.T) {
	got := EstimatedTax(decimal.NewFromInt(45000), decimal.NewFromInt(12500))
	assert.True(t, got.Equal(decimal.NewFromInt(14375)), got.String())
}

func TestMoneyFormatter(t *testing.T) {
	f := NewMoneyFormatter(sampleTenant())

	assert.Contains(t, f.Format(decimal.NewFromInt(14375)), "14,375.00")
	assert.Contains(t, f.Format(decimal.NewFromInt(14375)), "$")

	negative := f.Format(decimal.NewFromInt(-25000))
	assert.True(t, strings.HasPrefix(negative, "-"), negative)
	assert.Contains(t, negative, "25,000.00")

	gbp := sampleTenant()
	gbp.TaxJurisdiction, gbp.Currency = models.TaxJurisdictionUK, models.CurrencyGBP
	assert.Contains(t, NewMoneyFormatter(gbp).Format(decimal.NewFromInt(1250)), "£")
}

func TestBuildDashboard(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	d := BuildDashboard(sampleTenant(), "/billing", now)

	assert.Equal(t, 2026, d.Year)
	assert.Equal(t, "/billing", d.Section)
	assert.Equal(t, "United States", d.Jurisdiction)
	assert.Equal(t, "USD ($)", d.CurrencyLabel)
	assert.Contains(t, d.Portfolio, "1,250,000.00")
	assert.Contains(t, d.EstimatedTax, "14,375.00")
	assert.Equal(t, "+2.4%", d.DailyChange)
	require.Len(t, d.Transactions, 3)
	assert.False(t, d.Transactions[0].Credit)
	assert.True(t, d.Transactions[1].Credit)

	total := 0
	for _, a := range d.Allocation {
		total += a.Percent
	}
	assert.Equal(t, 100, total)
}

func TestRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, PageDashboard, BuildDashboard(sampleTenant(), "", time.Now()), nil))
	html := buf.String()
	assert.Contains(t, html, "Acme &lt;Wealth&gt; Wealth Management")
	assert.Contains(t, html, "--color-primary: #1E40AF")
	assert.Contains(t, html, "Estimated Tax Liability")
	assert.NotContains(t, html, "ZgotmplZ")

	buf.Reset()
	require.NoError(t, r.Render(&buf, PageIndex, NewIntakeForm("https://", ".forgewealth.app"), nil))
	html = buf.String()
	assert.Contains(t, html, `<option value="US" selected>United States</option>`)
	assert.Contains(t, html, `value="#1E40AF"`)
	assert.Contains(t, html, "https://subdomain.forgewealth.app")

	buf.Reset()
	require.NoError(t, r.Render(&buf, PageNotFound, NotFoundPage{TenantID: "ghost"}, nil))
	assert.Contains(t, buf.String(), "No configuration found for tenant: <strong>ghost</strong>")

	assert.Error(t, r.Render(&buf, "missing.html", nil, nil))
}
