package web

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"forgewealth/storefront/pkg/models"
)

// estimatedTaxRate is applied to capital gains plus dividends.
var estimatedTaxRate = decimal.RequireFromString("0.25")

// Allocation is one asset class share of the portfolio.
type Allocation struct {
	Label   string
	Percent int
}

// Transaction is one row of the recent transactions table.
type Transaction struct {
	Date        string
	Description string
	Type        string
	Amount      string
	Credit      bool
}

// Dashboard is the view model of the tenant dashboard page.
type Dashboard struct {
	Tenant        *models.TenantConfig
	Section       string
	Portfolio     string
	DailyChange   string
	Allocation    []Allocation
	CapitalGains  string
	Dividends     string
	EstimatedTax  string
	Transactions  []Transaction
	Year          int
	Jurisdiction  string
	CurrencyLabel string
}

type transaction struct {
	date        string
	description string
	kind        string
	amount      decimal.Decimal
}

// demoAccount holds the sample figures every new tenant starts with.
var demoAccount = struct {
	portfolio    decimal.Decimal
	dailyChange  decimal.Decimal
	capitalGains decimal.Decimal
	dividends    decimal.Decimal
	allocation   []Allocation
	transactions []transaction
}{
	portfolio:    decimal.NewFromInt(1250000),
	dailyChange:  decimal.RequireFromString("2.4"),
	capitalGains: decimal.NewFromInt(45000),
	dividends:    decimal.NewFromInt(12500),
	allocation: []Allocation{
		{"Stocks", 60},
		{"Bonds", 25},
		{"Cash", 10},
		{"Alternative", 5},
	},
	transactions: []transaction{
		{"2025-02-24", "AAPL Stock Purchase", "Buy", decimal.NewFromInt(-25000)},
		{"2025-02-20", "MSFT Dividend", "Dividend", decimal.NewFromInt(1250)},
		{"2025-02-15", "NVDA Stock Sale", "Sell", decimal.NewFromInt(35000)},
	},
}

// EstimatedTax returns the estimated liability for the given gains and
// dividends, rounded to cents.
func EstimatedTax(capitalGains, dividends decimal.Decimal) decimal.Decimal {
	return capitalGains.Add(dividends).Mul(estimatedTaxRate).Round(2)
}

// BuildDashboard computes the dashboard figures for tenant. section is the
// path below the tenant root, used to highlight the active page.
func BuildDashboard(tenant *models.TenantConfig, section string, now time.Time) Dashboard {
	f := NewMoneyFormatter(tenant)
	acct := demoAccount

	txs := make([]Transaction, 0, len(acct.transactions))
	for _, tx := range acct.transactions {
		txs = append(txs, Transaction{
			Date:        tx.date,
			Description: tx.description,
			Type:        tx.kind,
			Amount:      f.Format(tx.amount),
			Credit:      tx.amount.IsPositive(),
		})
	}

	return Dashboard{
		Tenant:        tenant,
		Section:       section,
		Portfolio:     f.Format(acct.portfolio),
		DailyChange:   "+" + acct.dailyChange.StringFixed(1) + "%",
		Allocation:    acct.allocation,
		CapitalGains:  f.Format(acct.capitalGains),
		Dividends:     f.Format(acct.dividends),
		EstimatedTax:  f.Format(EstimatedTax(acct.capitalGains, acct.dividends)),
		Transactions:  txs,
		Year:          now.Year(),
		Jurisdiction:  JurisdictionName(tenant.TaxJurisdiction),
		CurrencyLabel: CurrencyName(tenant.Currency),
	}
}

// MoneyFormatter formats amounts in a tenant's currency using the number
// conventions of its tax jurisdiction.
type MoneyFormatter struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewMoneyFormatter creates a formatter for tenant.
func NewMoneyFormatter(tenant *models.TenantConfig) MoneyFormatter {
	unit, err := currency.ParseISO(string(tenant.Currency))
	if err != nil {
		unit = currency.USD
	}
	return MoneyFormatter{
		unit:    unit,
		printer: message.NewPrinter(jurisdictionLocale(tenant.TaxJurisdiction)),
	}
}

// Format renders amount with the currency symbol and locale grouping,
// e.g. "$14,375.00" or "-£25,000.00".
func (f MoneyFormatter) Format(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	abs := amount.Abs().Round(2).InexactFloat64()
	return sign + f.printer.Sprint(currency.Symbol(f.unit)) +
		f.printer.Sprint(number.Decimal(abs, number.Scale(2)))
}

func jurisdictionLocale(j models.TaxJurisdiction) language.Tag {
	switch j {
	case models.TaxJurisdictionUK:
		return language.BritishEnglish
	case models.TaxJurisdictionEU:
		return language.German
	case models.TaxJurisdictionCA:
		return language.MustParse("en-CA")
	case models.TaxJurisdictionAU:
		return language.MustParse("en-AU")
	default:
		return language.AmericanEnglish
	}
}
