package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/stackplan/wealthsim/internal/domain"
	"github.com/stackplan/wealthsim/pkg/dateutil"
)

// TaxCalculator computes federal and state tax for one filing status and
// year. It is stateless across years; bracket stacking is expressed by
// passing the income already recognized in the same year.
type TaxCalculator struct {
	Tables TaxYearTables
	State  StateTaxConfig
	Status domain.FilingStatus
}

// NewTaxCalculator creates a calculator for a year, filing status, and state.
func NewTaxCalculator(year int, status domain.FilingStatus, state string) *TaxCalculator {
	return &TaxCalculator{
		Tables: TablesForYear(year),
		State:  StateConfigFor(state),
		Status: status,
	}
}

var penaltyRate = decimal.NewFromFloat(0.10)

// progressiveTax sums tax over the slice of income between from and to
// against a bracket table. from and to are post-deduction taxable amounts;
// from > 0 expresses stacking on top of income already taxed this year.
func progressiveTax(brackets []TaxBracket, from, to decimal.Decimal) decimal.Decimal {
	if to.LessThanOrEqual(from) {
		return decimal.Zero
	}
	if from.IsNegative() {
		from = decimal.Zero
	}
	total := decimal.Zero
	for _, br := range brackets {
		if to.LessThanOrEqual(br.Min) {
			break
		}
		lo := decimal.Max(from, br.Min)
		hi := decimal.Min(to, br.Max)
		if hi.GreaterThan(lo) {
			total = total.Add(hi.Sub(lo).Mul(br.Rate))
		}
	}
	return total
}

// taxableOrdinary applies the federal standard deduction.
func (tc *TaxCalculator) taxableOrdinary(gross decimal.Decimal) decimal.Decimal {
	taxable := gross.Sub(tc.Tables.StandardDeduction[tc.Status])
	if taxable.IsNegative() {
		return decimal.Zero
	}
	return taxable
}

// OrdinaryIncomeTax returns the federal tax on gross ordinary income for the
// year, after the standard deduction. Non-decreasing in income; the marginal
// rate on an additional dollar never exceeds the top bracket rate.
func (tc *TaxCalculator) OrdinaryIncomeTax(grossIncome decimal.Decimal) decimal.Decimal {
	return progressiveTax(tc.Tables.OrdinaryBrackets[tc.Status], decimal.Zero, tc.taxableOrdinary(grossIncome))
}

// MarginalOrdinaryTax returns the additional federal tax caused by stacking
// amount on top of priorIncome recognized in the same year.
func (tc *TaxCalculator) MarginalOrdinaryTax(amount, priorIncome decimal.Decimal) decimal.Decimal {
	from := tc.taxableOrdinary(priorIncome)
	to := tc.taxableOrdinary(priorIncome.Add(amount))
	return progressiveTax(tc.Tables.OrdinaryBrackets[tc.Status], from, to)
}

// LongTermGainsTax returns federal tax on long-term gains stacked on top of
// the year's ordinary income, against the 0/15/20% tables.
func (tc *TaxCalculator) LongTermGainsTax(gain, ordinaryGross decimal.Decimal) decimal.Decimal {
	if gain.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	base := tc.taxableOrdinary(ordinaryGross)
	return progressiveTax(tc.Tables.LTCGBrackets[tc.Status], base, base.Add(gain))
}

// EarlyWithdrawalPenalty returns the flat 10% penalty on amounts taken from
// tax-deferred accounts or Roth earnings before age 59 1/2. Computed
// independently of, and additive to, income tax.
func (tc *TaxCalculator) EarlyWithdrawalPenalty(amount decimal.Decimal, age int) decimal.Decimal {
	if amount.LessThanOrEqual(decimal.Zero) || !dateutil.IsEarlyWithdrawalAge(age) {
		return decimal.Zero
	}
	return amount.Mul(penaltyRate)
}

// StateTax computes state tax on the year's ordinary income and capital
// gains under the state's configured capital-gains treatment. Short-term
// gains are state-ordinary income everywhere.
func (tc *TaxCalculator) StateTax(ordinaryIncome, shortGains, longGains decimal.Decimal) decimal.Decimal {
	cfg := tc.State
	if cfg.CGTreatment == StateCGExempt && len(cfg.Brackets) == 0 {
		return decimal.Zero
	}

	base := ordinaryIncome.Add(shortGains)
	separate := decimal.Zero
	credit := decimal.Zero

	switch cfg.CGTreatment {
	case StateCGOrdinary:
		base = base.Add(longGains)
	case StateCGExempt:
		// long-term gains excluded entirely
	case StateCGDeductionPct:
		taxableGain := longGains.Mul(decimal.NewFromInt(1).Sub(cfg.CGDeductionPct))
		base = base.Add(taxableGain)
	case StateCGExclusionCap:
		excluded := decimal.Min(longGains.Mul(cfg.CGExclusionPct), cfg.CGExclusionCap)
		base = base.Add(longGains.Sub(excluded))
	case StateCGFlatRate:
		separate = longGains.Mul(cfg.CGFlatRate)
	case StateCGCredit:
		base = base.Add(longGains)
		credit = longGains.Mul(cfg.CGCreditPct)
	}

	taxable := base.Sub(cfg.StandardDeduction[tc.Status])
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	tax := progressiveTax(cfg.Brackets[tc.Status], decimal.Zero, taxable).Add(separate).Sub(credit)
	if tax.IsNegative() {
		return decimal.Zero
	}
	return tax
}

// YearTaxInput aggregates everything realized in one simulated year.
type YearTaxInput struct {
	OrdinaryIncome decimal.Decimal // wages, deferred withdrawals, RMD, ordinary dividends, taxable Roth earnings
	ShortTermGains decimal.Decimal
	LongTermGains  decimal.Decimal // includes qualified dividends
	PenaltyBase    decimal.Decimal // early tax-deferred withdrawals + early Roth earnings
	Age            int
}

// YearTaxResult is the year's total bill split by destination.
type YearTaxResult struct {
	Federal decimal.Decimal
	State   decimal.Decimal
	Penalty decimal.Decimal
}

// Total sums all components.
func (r YearTaxResult) Total() decimal.Decimal {
	return r.Federal.Add(r.State).Add(r.Penalty)
}

// CalculateYear computes the complete tax bill for one simulated year.
// Short-term gains stack as ordinary income; long-term gains stack on top of
// all ordinary income for bracket selection.
func (tc *TaxCalculator) CalculateYear(in YearTaxInput) YearTaxResult {
	ordinary := in.OrdinaryIncome.Add(in.ShortTermGains)
	federal := tc.OrdinaryIncomeTax(ordinary).
		Add(tc.LongTermGainsTax(in.LongTermGains, ordinary))
	return YearTaxResult{
		Federal: federal,
		State:   tc.StateTax(in.OrdinaryIncome, in.ShortTermGains, in.LongTermGains),
		Penalty: tc.EarlyWithdrawalPenalty(in.PenaltyBase, in.Age),
	}
}
