package domain

import (
	"github.com/shopspring/decimal"
)

// FilingStatus is the federal filing status used for bracket selection.
type FilingStatus string

const (
	FilingSingle       FilingStatus = "single"
	FilingMarriedJoint FilingStatus = "married_joint"
)

// WithdrawalStrategy decides how a taxable-account withdrawal is allocated
// across asset classes. Cash is always drawn first regardless of strategy.
type WithdrawalStrategy string

const (
	StrategyProportional WithdrawalStrategy = "proportional"
	StrategyPriority     WithdrawalStrategy = "priority"
	StrategyBlended      WithdrawalStrategy = "blended"
)

// GrowthRates holds expected annual returns per asset class.
type GrowthRates struct {
	BTC        decimal.Decimal `yaml:"btc" json:"btc"`
	Stocks     decimal.Decimal `yaml:"stocks" json:"stocks"`
	Bonds      decimal.Decimal `yaml:"bonds" json:"bonds"`
	Cash       decimal.Decimal `yaml:"cash" json:"cash"`
	Other      decimal.Decimal `yaml:"other" json:"other"`
	RealEstate decimal.Decimal `yaml:"real_estate" json:"real_estate"`
}

// Rate returns the growth rate for a class.
func (g GrowthRates) Rate(class AssetClass) decimal.Decimal {
	switch class {
	case AssetBTC:
		return g.BTC
	case AssetStocks:
		return g.Stocks
	case AssetBonds:
		return g.Bonds
	case AssetCash:
		return g.Cash
	case AssetOther:
		return g.Other
	case AssetRealEstate:
		return g.RealEstate
	}
	return decimal.Zero
}

// YearlyReturns is one projection year's realized return per asset class.
// Monte Carlo injects these; deterministic runs leave overrides empty and
// fall back to the GrowthRates model.
type YearlyReturns = GrowthRates

// Settings carries the scalar knobs of one projection. Everything that
// anchors the simulation in time is explicit; the engine never reads the
// wall clock.
type Settings struct {
	StartYear     int `yaml:"start_year" json:"start_year"`
	CurrentAge    int `yaml:"current_age" json:"current_age"`
	EndAge        int `yaml:"end_age" json:"end_age"`
	RetirementAge int `yaml:"retirement_age" json:"retirement_age"`

	AnnualIncome     decimal.Decimal `yaml:"annual_income" json:"annual_income"`
	IncomeGrowthRate decimal.Decimal `yaml:"income_growth_rate" json:"income_growth_rate"`
	AnnualSpending   decimal.Decimal `yaml:"annual_spending" json:"annual_spending"`
	InflationRate    decimal.Decimal `yaml:"inflation_rate" json:"inflation_rate"`

	Contribution401k decimal.Decimal `yaml:"contribution_401k" json:"contribution_401k"`
	ContributionIRA  decimal.Decimal `yaml:"contribution_ira" json:"contribution_ira"`

	FilingStatus FilingStatus `yaml:"filing_status" json:"filing_status"`
	State        string       `yaml:"state" json:"state"`

	CostBasisMethod    CostBasisMethod            `yaml:"cost_basis_method" json:"cost_basis_method"`
	WithdrawalStrategy WithdrawalStrategy         `yaml:"withdrawal_strategy" json:"withdrawal_strategy"`
	WithdrawalPriority []AssetClass               `yaml:"withdrawal_priority" json:"withdrawal_priority"`
	BlendWeights       map[AssetClass]decimal.Decimal `yaml:"blend_weights" json:"blend_weights"`

	BTCPrice    decimal.Decimal `yaml:"btc_price" json:"btc_price"`
	GrowthRates GrowthRates     `yaml:"growth_rates" json:"growth_rates"`
	Volatility  GrowthRates     `yaml:"volatility" json:"volatility"`

	// Fat-tail shape for the BTC shock distribution.
	BTCShockDegreesOfFreedom decimal.Decimal `yaml:"btc_shock_degrees_of_freedom" json:"btc_shock_degrees_of_freedom"`
	BTCShockSkew             decimal.Decimal `yaml:"btc_shock_skew" json:"btc_shock_skew"`
}

// BirthYear derives the birth year implied by StartYear and CurrentAge.
func (s Settings) BirthYear() int {
	return s.StartYear - s.CurrentAge
}

// ProjectionYears returns the number of simulated years.
func (s Settings) ProjectionYears() int {
	n := s.EndAge - s.CurrentAge + 1
	if n < 0 {
		return 0
	}
	return n
}

// Scenario overrides selected settings for what-if comparison. Nil fields
// leave the baseline value in place.
type Scenario struct {
	Name                  string               `yaml:"name" json:"name"`
	AnnualSpending        *decimal.Decimal     `yaml:"annual_spending" json:"annual_spending"`
	RetirementAge         *int                 `yaml:"retirement_age" json:"retirement_age"`
	GrowthRates           *GrowthRates         `yaml:"growth_rates" json:"growth_rates"`
	HypotheticalBTCLoan   *CollateralizedLoan  `yaml:"hypothetical_btc_loan" json:"hypothetical_btc_loan"`
}

// ProjectionInput is the full snapshot a projection run is a pure function
// of. All slices are read-only to the engine; running copies are made at
// projection start.
type ProjectionInput struct {
	Holdings            []Holding            `yaml:"holdings" json:"holdings"`
	Accounts            []Account            `yaml:"accounts" json:"accounts"`
	Liabilities         []Liability          `yaml:"liabilities" json:"liabilities"`
	CollateralizedLoans []CollateralizedLoan `yaml:"collateralized_loans" json:"collateralized_loans"`
	TaxLots             []TaxLot             `yaml:"tax_lots" json:"tax_lots"`
	Goals               []Goal               `yaml:"goals" json:"goals"`
	LifeEvents          []LifeEvent          `yaml:"life_events" json:"life_events"`
	Settings            Settings             `yaml:"settings" json:"settings"`

	// YearlyReturnOverrides, when non-empty, pins each simulated year's
	// returns (index 0 = first projection year). The Monte Carlo generator's
	// injection point.
	YearlyReturnOverrides []YearlyReturns `yaml:"yearly_return_overrides" json:"yearly_return_overrides"`

	// HypotheticalBTCLoan, when set, is opened at projection start: its
	// collateral moves out of the liquid pool and its proceeds land in
	// taxable cash.
	HypotheticalBTCLoan *CollateralizedLoan `yaml:"hypothetical_btc_loan" json:"hypothetical_btc_loan"`
}

// ApplyScenario returns a copy of the input with scenario overrides applied.
func (in ProjectionInput) ApplyScenario(sc *Scenario) ProjectionInput {
	out := in
	if sc == nil {
		return out
	}
	if sc.AnnualSpending != nil {
		out.Settings.AnnualSpending = *sc.AnnualSpending
	}
	if sc.RetirementAge != nil {
		out.Settings.RetirementAge = *sc.RetirementAge
	}
	if sc.GrowthRates != nil {
		out.Settings.GrowthRates = *sc.GrowthRates
	}
	if sc.HypotheticalBTCLoan != nil {
		out.HypotheticalBTCLoan = sc.HypotheticalBTCLoan
	}
	return out
}
