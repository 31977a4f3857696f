package domain

import (
	"github.com/shopspring/decimal"
)

// Buckets is the per-asset-class dollar breakdown of one tax treatment.
type Buckets struct {
	BTC    decimal.Decimal `json:"btc"`
	Stocks decimal.Decimal `json:"stocks"`
	Bonds  decimal.Decimal `json:"bonds"`
	Cash   decimal.Decimal `json:"cash"`
	Other  decimal.Decimal `json:"other"`
}

// Get returns the balance for a class.
func (b Buckets) Get(class AssetClass) decimal.Decimal {
	switch class {
	case AssetBTC:
		return b.BTC
	case AssetStocks:
		return b.Stocks
	case AssetBonds:
		return b.Bonds
	case AssetCash:
		return b.Cash
	case AssetOther:
		return b.Other
	}
	return decimal.Zero
}

// Set replaces the balance for a class.
func (b *Buckets) Set(class AssetClass, v decimal.Decimal) {
	switch class {
	case AssetBTC:
		b.BTC = v
	case AssetStocks:
		b.Stocks = v
	case AssetBonds:
		b.Bonds = v
	case AssetCash:
		b.Cash = v
	case AssetOther:
		b.Other = v
	}
}

// Add increments the balance for a class.
func (b *Buckets) Add(class AssetClass, v decimal.Decimal) {
	b.Set(class, b.Get(class).Add(v))
}

// Total sums all classes.
func (b Buckets) Total() decimal.Decimal {
	return b.BTC.Add(b.Stocks).Add(b.Bonds).Add(b.Cash).Add(b.Other)
}

// LoanEventType classifies a collateral state-machine transition.
type LoanEventType string

const (
	EventFullLiquidation    LoanEventType = "full_liquidation"
	EventPartialLiquidation LoanEventType = "partial_liquidation"
	EventCollateralTopUp    LoanEventType = "collateral_top_up"
	EventCollateralRelease  LoanEventType = "collateral_release"
	EventEquityUnlock       LoanEventType = "equity_unlock"
	EventLoanPaidOff        LoanEventType = "loan_paid_off"
)

// LoanEvent is a structured audit record of one collateral transition.
type LoanEvent struct {
	Year      int             `json:"year"`
	Age       int             `json:"age"`
	Type      LoanEventType   `json:"type"`
	LoanName  string          `json:"loan_name"`
	BTCAmount decimal.Decimal `json:"btc_amount"`
	USDAmount decimal.Decimal `json:"usd_amount"`
	Message   string          `json:"message"`
}

// YearRow reports one simulated year.
type YearRow struct {
	Year int `json:"year"`
	Age  int `json:"age"`

	Taxable     Buckets         `json:"taxable"`
	TaxDeferred Buckets         `json:"tax_deferred"`
	TaxFree     Buckets         `json:"tax_free"`
	RealEstate  decimal.Decimal `json:"real_estate"`

	LiquidBTC     decimal.Decimal `json:"liquid_btc"`
	EncumberedBTC decimal.Decimal `json:"encumbered_btc"`
	BTCPrice      decimal.Decimal `json:"btc_price"`
	TotalDebt     decimal.Decimal `json:"total_debt"`

	Income       decimal.Decimal `json:"income"`
	Spending     decimal.Decimal `json:"spending"`
	DebtPayments decimal.Decimal `json:"debt_payments"`

	WithdrawalTaxable     decimal.Decimal `json:"withdrawal_taxable"`
	WithdrawalTaxDeferred decimal.Decimal `json:"withdrawal_tax_deferred"`
	WithdrawalTaxFree     decimal.Decimal `json:"withdrawal_tax_free"`
	WithdrawalLoanUnlock  decimal.Decimal `json:"withdrawal_loan_unlock"`
	WithdrawalRealEstate  decimal.Decimal `json:"withdrawal_real_estate"`

	FederalTax decimal.Decimal `json:"federal_tax"`
	StateTax   decimal.Decimal `json:"state_tax"`
	Penalty    decimal.Decimal `json:"penalty"`

	RMDAmount         decimal.Decimal `json:"rmd_amount"`
	DividendQualified decimal.Decimal `json:"dividend_qualified"`
	DividendOrdinary  decimal.Decimal `json:"dividend_ordinary"`

	ShortTermGains decimal.Decimal `json:"short_term_gains"`
	LongTermGains  decimal.Decimal `json:"long_term_gains"`

	LoanEvents []LoanEvent `json:"loan_events,omitempty"`
	Depleted   bool        `json:"depleted"`
}

// TotalPortfolio sums every bucket including real estate, net of nothing
// (debt is reported separately on the row).
func (r YearRow) TotalPortfolio() decimal.Decimal {
	return r.Taxable.Total().Add(r.TaxDeferred.Total()).Add(r.TaxFree.Total()).Add(r.RealEstate)
}

// NetWorth is total portfolio minus total debt.
func (r YearRow) NetWorth() decimal.Decimal {
	return r.TotalPortfolio().Sub(r.TotalDebt)
}

// ProjectionResult is the output of one deterministic projection run.
type ProjectionResult struct {
	Survives       bool            `json:"survives"`
	FinalPortfolio decimal.Decimal `json:"final_portfolio"`
	DepleteAge     *int            `json:"deplete_age"`
	YearByYear     []YearRow       `json:"year_by_year"`
}
