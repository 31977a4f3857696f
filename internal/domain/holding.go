package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass identifies one of the engine's portfolio buckets.
type AssetClass string

const (
	AssetBTC        AssetClass = "btc"
	AssetStocks     AssetClass = "stocks"
	AssetBonds      AssetClass = "bonds"
	AssetCash       AssetClass = "cash"
	AssetOther      AssetClass = "other"
	AssetRealEstate AssetClass = "real_estate"
)

// InvestableClasses lists the classes held inside taxable/tax-deferred/tax-free
// accounts, in the fixed order used throughout the engine (shock vectors,
// correlation matrix rows, withdrawal iteration).
var InvestableClasses = []AssetClass{AssetBTC, AssetStocks, AssetBonds, AssetCash, AssetOther}

// TaxTreatment classifies how withdrawals from an account are taxed.
type TaxTreatment string

const (
	TreatmentTaxable     TaxTreatment = "taxable"
	TreatmentTaxDeferred TaxTreatment = "tax_deferred"
	TreatmentTaxFree     TaxTreatment = "tax_free"
	TreatmentRealEstate  TaxTreatment = "real_estate"
)

// Account is an investment account owning holdings.
type Account struct {
	ID        string       `yaml:"id" json:"id"`
	Name      string       `yaml:"name" json:"name"`
	Treatment TaxTreatment `yaml:"treatment" json:"treatment"`

	// RothContributionBasis is the total of direct Roth contributions, which
	// may be withdrawn before earnings without tax or penalty.
	RothContributionBasis decimal.Decimal `yaml:"roth_contribution_basis" json:"roth_contribution_basis"`
}

// Holding is a position in one asset within an account.
type Holding struct {
	Ticker    string          `yaml:"ticker" json:"ticker"`
	AccountID string          `yaml:"account_id" json:"account_id"`
	Class     AssetClass      `yaml:"class" json:"class"`
	Quantity  decimal.Decimal `yaml:"quantity" json:"quantity"`
	Price     decimal.Decimal `yaml:"price" json:"price"`

	// DividendYield is the annual yield paid in cash; QualifiedPct is the
	// fraction taxed at capital-gains rates rather than as ordinary income.
	DividendYield decimal.Decimal `yaml:"dividend_yield" json:"dividend_yield"`
	QualifiedPct  decimal.Decimal `yaml:"qualified_pct" json:"qualified_pct"`
}

// MarketValue returns quantity times price.
func (h Holding) MarketValue() decimal.Decimal {
	return h.Quantity.Mul(h.Price)
}

// LotSource records how a tax lot came to exist.
type LotSource string

const (
	LotSourcePurchase     LotSource = "purchase"
	LotSourceLoanProceeds LotSource = "loan_proceeds"
	LotSourceReallocation LotSource = "reallocation"
)

// TaxLot is a discrete purchase record carrying its own acquisition date and
// price. Remaining is mutated within one projection run and never persisted.
type TaxLot struct {
	ID           string          `yaml:"id" json:"id"`
	Ticker       string          `yaml:"ticker" json:"ticker"`
	Quantity     decimal.Decimal `yaml:"quantity" json:"quantity"`
	Remaining    decimal.Decimal `yaml:"remaining" json:"remaining"`
	PricePerUnit decimal.Decimal `yaml:"price_per_unit" json:"price_per_unit"`
	AcquiredAt   time.Time       `yaml:"acquired_at" json:"acquired_at"`
	Source       LotSource       `yaml:"source" json:"source"`
}

// CostBasis returns the basis carried by the remaining units.
func (l TaxLot) CostBasis() decimal.Decimal {
	return l.Remaining.Mul(l.PricePerUnit)
}

// CostBasisMethod selects which lots satisfy a sale.
type CostBasisMethod string

const (
	MethodFIFO     CostBasisMethod = "fifo"
	MethodLIFO     CostBasisMethod = "lifo"
	MethodHIFO     CostBasisMethod = "hifo"
	MethodSpecific CostBasisMethod = "specific"
)
