package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackplan/wealthsim/internal/domain"
)

// quietInput builds a minimal single-account plan with every stochastic and
// cash-flow knob turned off.
func quietInput() *domain.ProjectionInput {
	return &domain.ProjectionInput{
		Accounts: []domain.Account{
			{ID: "brokerage", Treatment: domain.TreatmentTaxable},
		},
		Holdings: []domain.Holding{
			{Ticker: "BTC", AccountID: "brokerage", Class: domain.AssetBTC, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100000)},
		},
		Settings: domain.Settings{
			StartYear:    2026,
			CurrentAge:   30,
			EndAge:       90,
			RetirementAge: 30,
			FilingStatus: domain.FilingSingle,
			State:        "TX",
			BTCPrice:     decimal.NewFromInt(100000),
		},
	}
}

// TestHoldSingleBTCUnchanged: one BTC, zero growth, zero spending, sixty
// years; the final portfolio is exactly the starting value and the plan
// survives.
func TestHoldSingleBTCUnchanged(t *testing.T) {
	engine := NewProjectionEngine()
	res, err := engine.RunUnifiedProjection(quietInput())
	require.NoError(t, err)

	assert.True(t, res.Survives)
	assert.Nil(t, res.DepleteAge)
	require.Len(t, res.YearByYear, 61)
	assert.True(t, res.FinalPortfolio.Equal(decimal.NewFromInt(100000)),
		"expected 100000, got %s", res.FinalPortfolio)
	for _, row := range res.YearByYear {
		assert.True(t, row.FederalTax.IsZero())
		assert.True(t, row.StateTax.IsZero())
		assert.True(t, row.LiquidBTC.Equal(decimal.NewFromInt(1)))
	}
}

// TestProjectionIsDeterministic: identical inputs give identical traces.
func TestProjectionIsDeterministic(t *testing.T) {
	engine := NewProjectionEngine()
	input := quietInput()
	input.Settings.AnnualSpending = decimal.NewFromInt(5000)
	input.Settings.GrowthRates.BTC = decimal.NewFromFloat(0.05)

	a, err := engine.RunUnifiedProjection(input)
	require.NoError(t, err)
	b, err := engine.RunUnifiedProjection(input)
	require.NoError(t, err)

	require.Equal(t, len(a.YearByYear), len(b.YearByYear))
	for i := range a.YearByYear {
		assert.True(t, a.YearByYear[i].NetWorth().Equal(b.YearByYear[i].NetWorth()), "year %d diverged", i)
	}
}

// TestDepletionPropagates: once spending exhausts the portfolio, every later
// row reports zero and the deplete age is recorded.
func TestDepletionPropagates(t *testing.T) {
	input := quietInput()
	input.Settings.AnnualSpending = decimal.NewFromInt(60000)
	input.Settings.EndAge = 45

	res, err := NewProjectionEngine().RunUnifiedProjection(input)
	require.NoError(t, err)

	assert.False(t, res.Survives)
	require.NotNil(t, res.DepleteAge)
	assert.True(t, res.FinalPortfolio.IsZero())

	seen := false
	for _, row := range res.YearByYear {
		if row.Depleted {
			seen = true
		}
		if seen {
			assert.True(t, row.Depleted, "depletion must be permanent")
			assert.True(t, row.TotalPortfolio().IsZero())
		}
	}
	assert.True(t, seen)
}

// TestWagesFundContributionsAndSurplus: pre-retirement surplus fills the
// 401(k) and Roth IRA before taxable cash.
func TestWagesFundContributionsAndSurplus(t *testing.T) {
	input := quietInput()
	input.Settings.RetirementAge = 65
	input.Settings.EndAge = 31
	input.Settings.AnnualIncome = decimal.NewFromInt(150000)
	input.Settings.AnnualSpending = decimal.NewFromInt(50000)
	input.Settings.Contribution401k = decimal.NewFromInt(23500)
	input.Settings.ContributionIRA = decimal.NewFromInt(7000)

	res, err := NewProjectionEngine().RunUnifiedProjection(input)
	require.NoError(t, err)

	first := res.YearByYear[0]
	assert.True(t, first.TaxDeferred.Cash.Equal(decimal.NewFromInt(23500)))
	assert.True(t, first.TaxFree.Cash.Equal(decimal.NewFromInt(7000)))
	assert.True(t, first.Taxable.Cash.GreaterThan(decimal.Zero), "surplus should land in taxable cash")
}

// TestRMDMovesDeferredToTaxable: past the RMD age, the deferred balance
// shrinks by the divisor amount and the same dollars appear as ordinary
// income.
func TestRMDMovesDeferredToTaxable(t *testing.T) {
	input := &domain.ProjectionInput{
		Accounts: []domain.Account{
			{ID: "ira", Treatment: domain.TreatmentTaxDeferred},
		},
		Holdings: []domain.Holding{
			{Ticker: "CASH", AccountID: "ira", Class: domain.AssetCash, Quantity: decimal.NewFromInt(2020000), Price: decimal.NewFromInt(1)},
		},
		Settings: domain.Settings{
			StartYear:     2026,
			CurrentAge:    80,
			EndAge:        80,
			RetirementAge: 65,
			FilingStatus:  domain.FilingSingle,
			State:         "TX",
		},
	}

	res, err := NewProjectionEngine().RunUnifiedProjection(input)
	require.NoError(t, err)

	row := res.YearByYear[0]
	// Age 80 divisor is 20.2: 2020000 / 20.2 = 100000.
	expected := decimal.NewFromInt(100000)
	assert.True(t, row.RMDAmount.Sub(expected).Abs().LessThan(decimal.NewFromFloat(0.01)),
		"expected RMD %s, got %s", expected, row.RMDAmount)
	assert.True(t, row.FederalTax.GreaterThan(decimal.Zero), "RMD is taxable income")
}

// TestGoalSpendsInItsYear.
func TestGoalSpendsInItsYear(t *testing.T) {
	input := quietInput()
	input.Holdings[0].Quantity = decimal.NewFromInt(2)
	input.Settings.EndAge = 35
	input.Goals = []domain.Goal{{Name: "college", Year: 2028, Amount: decimal.NewFromInt(50000)}}

	res, err := NewProjectionEngine().RunUnifiedProjection(input)
	require.NoError(t, err)

	for _, row := range res.YearByYear {
		if row.Year == 2028 {
			assert.True(t, row.Spending.Equal(decimal.NewFromInt(50000)))
			assert.True(t, row.WithdrawalTaxable.GreaterThan(decimal.Zero))
		} else {
			assert.True(t, row.Spending.IsZero())
		}
	}
}

// TestLifeEventRecurrence: a recurring income event applies for its start
// year plus repeat years.
func TestLifeEventRecurrence(t *testing.T) {
	input := quietInput()
	input.Settings.EndAge = 40
	input.LifeEvents = []domain.LifeEvent{
		{Name: "consulting", Kind: domain.LifeEventIncome, StartYear: 2028, RepeatYears: 2, Amount: decimal.NewFromInt(10000)},
	}

	res, err := NewProjectionEngine().RunUnifiedProjection(input)
	require.NoError(t, err)

	for _, row := range res.YearByYear {
		if row.Year >= 2028 && row.Year <= 2030 {
			assert.True(t, row.Income.Equal(decimal.NewFromInt(10000)), "year %d", row.Year)
		} else {
			assert.True(t, row.Income.IsZero(), "year %d", row.Year)
		}
	}
}

/// TestDebtPayoffEventRetiresLiability: a debt_payoff event clears the named
// liability in full and the cash comes through the sequencer.
func TestDebtPayoffEventRetiresLiability(t *testing.T) {
	input := quietInput()
	input.Settings.EndAge = 33
	input.Liabilities = []domain.Liability{
		{Name: "heloc", Balance: decimal.NewFromInt(20000)},
	}
	input.LifeEvents = []domain.LifeEvent{
		{Name: "retire heloc", Kind: domain.LifeEventDebtPayoff, StartYear: 2027, Target: "heloc"},
	}

	res, err := NewProjectionEngine().RunUnifiedProjection(input)
	require.NoError(t, err)

	first := res.YearByYear[0]
	assert.True(t, first.TotalDebt.Equal(decimal.NewFromInt(20000)), "debt untouched before the event")
	assert.True(t, first.DebtPayments.IsZero())

	payoff := res.YearByYear[1]
	assert.True(t, payoff.DebtPayments.Equal(decimal.NewFromInt(20000)))
	assert.True(t, payoff.TotalDebt.IsZero())
	assert.True(t, payoff.WithdrawalTaxable.Equal(decimal.NewFromInt(20000)), "payoff funded by selling taxable BTC")
	assert.True(t, res.YearByYear[2].TotalDebt.IsZero())
}

// TestDebtPayoffEventRetiresLoan: paying off a collateralized loan returns
// its collateral and basis to the liquid pool.
func TestDebtPayoffEventRetiresLoan(t *testing.T) {
	input := quietInput()
	input.Settings.EndAge = 33
	input.CollateralizedLoans = []domain.CollateralizedLoan{{
		Name:            "btc-loan",
		Balance:         decimal.NewFromInt(30000),
		CollateralBTC:   decimal.NewFromFloat(0.5),
		CollateralBasis: decimal.NewFromInt(10000),
		LiquidationLTV:  decimal.NewFromFloat(0.9),
	}}
	input.LifeEvents = []domain.LifeEvent{
		{Name: "retire btc loan", Kind: domain.LifeEventDebtPayoff, StartYear: 2027, Target: "btc-loan"},
	}

	res, err := NewProjectionEngine().RunUnifiedProjection(input)
	require.NoError(t, err)

	first := res.YearByYear[0]
	assert.True(t, first.EncumberedBTC.Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, first.TotalDebt.Equal(decimal.NewFromInt(30000)))

	payoff := res.YearByYear[1]
	assert.True(t, payoff.DebtPayments.Equal(decimal.NewFromInt(30000)))
	assert.True(t, payoff.TotalDebt.IsZero())
	assert.True(t, payoff.EncumberedBTC.IsZero())
	// Pool held 1 BTC at market basis 100000 plus the returned 0.5 at basis
	// 10000; selling 0.3 BTC for 30000 uses basis 22000.
	assert.True(t, payoff.LiquidBTC.Equal(decimal.NewFromFloat(1.2)), "got %s", payoff.LiquidBTC)
	assert.True(t, payoff.LongTermGains.Equal(decimal.NewFromInt(8000)), "got %s", payoff.LongTermGains)

	require.NotEmpty(t, payoff.LoanEvents)
	assert.Equal(t, domain.EventLoanPaidOff, payoff.LoanEvents[0].Type)
	assert.Equal(t, "btc-loan", payoff.LoanEvents[0].LoanName)
}

// TestHypotheticalLoanOpensAtStart: collateral leaves the liquid pool and
// the proceeds appear as taxable cash.
func TestHypotheticalLoanOpensAtStart(t *testing.T) {
	input := quietInput()
	input.Holdings[0].Quantity = decimal.NewFromInt(2)
	input.Settings.EndAge = 31
	input.HypotheticalBTCLoan = &domain.CollateralizedLoan{
		Name:           "unlock",
		Balance:        decimal.NewFromInt(50000),
		CollateralBTC:  decimal.NewFromInt(1),
		LiquidationLTV: decimal.NewFromFloat(0.85),
		TopUpLTV:       decimal.NewFromFloat(0.70),
	}

	res, err := NewProjectionEngine().RunUnifiedProjection(input)
	require.NoError(t, err)

	first := res.YearByYear[0]
	assert.True(t, first.LiquidBTC.Equal(decimal.NewFromInt(1)))
	assert.True(t, first.EncumberedBTC.Equal(decimal.NewFromInt(1)))
	assert.True(t, first.Taxable.Cash.Equal(decimal.NewFromInt(50000)))
	assert.True(t, first.TotalDebt.Equal(decimal.NewFromInt(50000)))
}

// TestDividendsPaidIntoCash: taxable dividend yield lands in cash and is
// reported by qualified split.
func TestDividendsPaidIntoCash(t *testing.T) {
	input := &domain.ProjectionInput{
		Accounts: []domain.Account{{ID: "brokerage", Treatment: domain.TreatmentTaxable}},
		Holdings: []domain.Holding{
			{Ticker: "VTI", AccountID: "brokerage", Class: domain.AssetStocks,
				Quantity: decimal.NewFromInt(1000), Price: decimal.NewFromInt(100),
				DividendYield: decimal.NewFromFloat(0.02), QualifiedPct: decimal.NewFromFloat(0.75)},
		},
		Settings: domain.Settings{
			StartYear: 2026, CurrentAge: 40, EndAge: 40, RetirementAge: 40,
			FilingStatus: domain.FilingSingle, State: "TX",
		},
	}

	res, err := NewProjectionEngine().RunUnifiedProjection(input)
	require.NoError(t, err)

	row := res.YearByYear[0]
	assert.True(t, row.DividendQualified.Equal(decimal.NewFromInt(1500)))
	assert.True(t, row.DividendOrdinary.Equal(decimal.NewFromInt(500)))
	assert.True(t, row.Taxable.Cash.Equal(decimal.NewFromInt(2000)))
}

// TestScenarioOverridesApply.
func TestScenarioOverridesApply(t *testing.T) {
	input := quietInput()
	spend := decimal.NewFromInt(42000)
	sc := &domain.Scenario{Name: "spend more", AnnualSpending: &spend}

	modified := input.ApplyScenario(sc)
	assert.True(t, modified.Settings.AnnualSpending.Equal(spend))
	assert.True(t, input.Settings.AnnualSpending.IsZero(), "baseline untouched")
}

// TestYearlyReturnOverridesPinReturns: an override path replaces the growth
// model year for year.
func TestYearlyReturnOverridesPinReturns(t *testing.T) {
	input := quietInput()
	input.Settings.EndAge = 32
	input.Settings.GrowthRates.BTC = decimal.NewFromFloat(0.50) // ignored when overridden
	input.YearlyReturnOverrides = []domain.YearlyReturns{
		{BTC: decimal.NewFromFloat(0.10)},
		{BTC: decimal.NewFromFloat(-0.50)},
		{},
	}

	res, err := NewProjectionEngine().RunUnifiedProjection(input)
	require.NoError(t, err)

	assert.True(t, res.YearByYear[0].BTCPrice.Equal(decimal.NewFromInt(110000)))
	assert.True(t, res.YearByYear[1].BTCPrice.Equal(decimal.NewFromInt(55000)))
	assert.True(t, res.YearByYear[2].BTCPrice.Equal(decimal.NewFromInt(55000)))
}
