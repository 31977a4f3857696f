package domain

import (
	"github.com/shopspring/decimal"
)

// Liability is a conventional amortizing debt (mortgage, car note, card).
type Liability struct {
	Name          string          `yaml:"name" json:"name"`
	Balance       decimal.Decimal `yaml:"balance" json:"balance"`
	InterestRate  decimal.Decimal `yaml:"interest_rate" json:"interest_rate"`
	AnnualPayment decimal.Decimal `yaml:"annual_payment" json:"annual_payment"`
	PaidOff       bool            `yaml:"paid_off" json:"paid_off"`
}

// CollateralizedLoan is a loan secured by encumbered BTC. The loan owns a
// disjoint share of the household's BTC cost basis, tracked per loan during a
// projection run so that basis never overlaps the liquid taxable pool.
type CollateralizedLoan struct {
	Name          string          `yaml:"name" json:"name"`
	Balance       decimal.Decimal `yaml:"balance" json:"balance"`
	InterestRate  decimal.Decimal `yaml:"interest_rate" json:"interest_rate"`
	AnnualPayment decimal.Decimal `yaml:"annual_payment" json:"annual_payment"`

	// CollateralBTC is the encumbered quantity; CollateralBasis is the cost
	// basis attributed to it. Zero basis means the share is carved out of the
	// liquid pool proportionally at projection start.
	CollateralBTC   decimal.Decimal `yaml:"collateral_btc" json:"collateral_btc"`
	CollateralBasis decimal.Decimal `yaml:"collateral_basis" json:"collateral_basis"`

	// LTV thresholds. Release < TopUpTrigger < Liquidation is enforced at
	// config validation. Targets are the post-action LTVs.
	LiquidationLTV decimal.Decimal `yaml:"liquidation_ltv" json:"liquidation_ltv"`
	TopUpLTV       decimal.Decimal `yaml:"top_up_ltv" json:"top_up_ltv"`
	TopUpTargetLTV decimal.Decimal `yaml:"top_up_target_ltv" json:"top_up_target_ltv"`
	ReleaseLTV     decimal.Decimal `yaml:"release_ltv" json:"release_ltv"`
	ReleaseTarget  decimal.Decimal `yaml:"release_target_ltv" json:"release_target_ltv"`

	AutoTopUp bool `yaml:"auto_top_up" json:"auto_top_up"`
	PaidOff   bool `yaml:"paid_off" json:"paid_off"`
}

// LTV returns balance over collateral market value at the given BTC price.
// The boolean is false when the collateral value is zero (no ratio).
func (l CollateralizedLoan) LTV(btcPrice decimal.Decimal) (decimal.Decimal, bool) {
	value := l.CollateralBTC.Mul(btcPrice)
	if value.IsZero() || value.IsNegative() {
		return decimal.Zero, false
	}
	return l.Balance.Div(value), true
}
