package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/stackplan/wealthsim/internal/domain"
)

// TestOrdinaryIncomeTax checks federal tax against the 2025 single brackets.
func TestOrdinaryIncomeTax(t *testing.T) {
	tc := NewTaxCalculator(2025, domain.FilingSingle, "")

	tests := []struct {
		name        string
		grossIncome decimal.Decimal
		expectedTax decimal.Decimal
	}{
		{
			name:        "no tax below standard deduction",
			grossIncome: decimal.NewFromInt(14000),
			expectedTax: decimal.Zero,
		},
		{
			name:        "10 percent bracket only",
			grossIncome: decimal.NewFromInt(25000),
			expectedTax: decimal.NewFromInt(1000), // (25000-15000) * 0.10
		},
		{
			name:        "two brackets",
			grossIncome: decimal.NewFromInt(50000),
			expectedTax: decimal.NewFromFloat(3961.50), // 11925*0.10 + (35000-11925)*0.12
		},
		{
			name:        "zero income",
			grossIncome: decimal.Zero,
			expectedTax: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax := tc.OrdinaryIncomeTax(tt.grossIncome)
			assert.True(t, tax.Sub(tt.expectedTax).Abs().LessThan(decimal.NewFromFloat(0.01)),
				"expected %s, got %s", tt.expectedTax, tax)
		})
	}
}

// TestOrdinaryIncomeTaxMonotonic verifies tax never decreases as income rises.
func TestOrdinaryIncomeTaxMonotonic(t *testing.T) {
	tc := NewTaxCalculator(2025, domain.FilingMarriedJoint, "")
	prev := decimal.Zero
	for income := int64(0); income <= 800000; income += 25000 {
		tax := tc.OrdinaryIncomeTax(decimal.NewFromInt(income))
		assert.True(t, tax.GreaterThanOrEqual(prev), "tax decreased at income %d", income)
		prev = tax
	}
}

// TestMarginalOrdinaryTax checks bracket stacking against recomputation.
func TestMarginalOrdinaryTax(t *testing.T) {
	tc := NewTaxCalculator(2025, domain.FilingSingle, "")

	prior := decimal.NewFromInt(60000)
	amount := decimal.NewFromInt(20000)
	marginal := tc.MarginalOrdinaryTax(amount, prior)
	direct := tc.OrdinaryIncomeTax(prior.Add(amount)).Sub(tc.OrdinaryIncomeTax(prior))
	assert.True(t, marginal.Sub(direct).Abs().LessThan(decimal.NewFromFloat(0.01)),
		"marginal %s vs direct %s", marginal, direct)
}

// TestLongTermGainsTax checks the 0/15/20 stacking on top of ordinary income.
func TestLongTermGainsTax(t *testing.T) {
	tc := NewTaxCalculator(2025, domain.FilingSingle, "")

	tests := []struct {
		name          string
		gain          decimal.Decimal
		ordinaryGross decimal.Decimal
		expectedTax   decimal.Decimal
	}{
		{
			name:          "gain inside zero bracket",
			gain:          decimal.NewFromInt(20000),
			ordinaryGross: decimal.NewFromInt(30000), // taxable base 15000
			expectedTax:   decimal.Zero,              // 15000..35000 all under 48350
		},
		{
			name:          "ordinary income fills zero bracket",
			gain:          decimal.NewFromInt(10000),
			ordinaryGross: decimal.NewFromInt(63350), // taxable base exactly 48350
			expectedTax:   decimal.NewFromInt(1500),  // 10000 * 0.15
		},
		{
			name:          "gain straddles zero and 15 percent",
			gain:          decimal.NewFromInt(30000),
			ordinaryGross: decimal.NewFromInt(53350), // base 38350; 10000 at 0%, 20000 at 15%
			expectedTax:   decimal.NewFromInt(3000),
		},
		{
			name:          "negative gain is free",
			gain:          decimal.NewFromInt(-5000),
			ordinaryGross: decimal.NewFromInt(100000),
			expectedTax:   decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax := tc.LongTermGainsTax(tt.gain, tt.ordinaryGross)
			assert.True(t, tax.Sub(tt.expectedTax).Abs().LessThan(decimal.NewFromFloat(0.01)),
				"expected %s, got %s", tt.expectedTax, tax)
		})
	}
}

// TestEarlyWithdrawalPenalty verifies the age boundary: 59 is penalized,
// 60 is not.
func TestEarlyWithdrawalPenalty(t *testing.T) {
	tc := NewTaxCalculator(2025, domain.FilingSingle, "")
	amount := decimal.NewFromInt(10000)

	assert.True(t, tc.EarlyWithdrawalPenalty(amount, 59).Equal(decimal.NewFromInt(1000)))
	assert.True(t, tc.EarlyWithdrawalPenalty(amount, 60).IsZero())
	assert.True(t, tc.EarlyWithdrawalPenalty(amount, 45).Equal(decimal.NewFromInt(1000)))
	assert.True(t, tc.EarlyWithdrawalPenalty(decimal.Zero, 45).IsZero())
}

// TestStateTaxTreatments exercises each capital-gains treatment.
func TestStateTaxTreatments(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.01)

	tests := []struct {
		name     string
		state    string
		ordinary decimal.Decimal
		short    decimal.Decimal
		long     decimal.Decimal
		expected decimal.Decimal
	}{
		{
			name:     "no income tax state",
			state:    "TX",
			ordinary: decimal.NewFromInt(200000),
			long:     decimal.NewFromInt(100000),
			expected: decimal.Zero,
		},
		{
			name:     "unknown state resolves to exempt",
			state:    "ZZ",
			ordinary: decimal.NewFromInt(200000),
			long:     decimal.NewFromInt(100000),
			expected: decimal.Zero,
		},
		{
			name:     "pennsylvania flat ordinary treatment",
			state:    "PA",
			ordinary: decimal.NewFromInt(50000),
			long:     decimal.NewFromInt(10000),
			expected: decimal.NewFromFloat(1842), // 60000 * 0.0307, no deduction
		},
		{
			name:     "massachusetts flat special rate on gains",
			state:    "MA",
			ordinary: decimal.NewFromInt(100000),
			long:     decimal.NewFromInt(10000),
			expected: decimal.NewFromInt(5500), // 100000*0.05 + 10000*0.05
		},
		{
			name:     "south carolina 44 percent deduction",
			state:    "SC",
			ordinary: decimal.NewFromInt(50000),
			long:     decimal.NewFromInt(10000),
			expected: decimal.NewFromFloat(2542), // (50000 + 5600 - 14600) * 0.062
		},
		{
			name:     "wisconsin exclusion with cap",
			state:    "WI",
			ordinary: decimal.NewFromInt(50000),
			long:     decimal.NewFromInt(100000),
			expected: decimal.NewFromFloat(5658.81), // (50000 + 70000 - 13230) * 0.053
		},
		{
			name:     "montana credit",
			state:    "MT",
			ordinary: decimal.NewFromInt(50000),
			long:     decimal.NewFromInt(10000),
			expected: decimal.NewFromFloat(2478.60), // (60000-14600)*0.059 - 10000*0.02
		},
		{
			name:     "short-term gains are ordinary everywhere",
			state:    "PA",
			ordinary: decimal.NewFromInt(50000),
			short:    decimal.NewFromInt(10000),
			expected: decimal.NewFromFloat(1842), // same as long-term in PA
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := NewTaxCalculator(2025, domain.FilingSingle, tt.state)
			tax := tc.StateTax(tt.ordinary, tt.short, tt.long)
			assert.True(t, tax.Sub(tt.expected).Abs().LessThan(tolerance),
				"expected %s, got %s", tt.expected, tax)
		})
	}
}

// TestWisconsinExclusionCap verifies the $500k exclusion ceiling binds.
func TestWisconsinExclusionCap(t *testing.T) {
	tc := NewTaxCalculator(2025, domain.FilingSingle, "WI")
	// 30% of 2M is 600k, capped at 500k: taxable gain 1.5M.
	tax := tc.StateTax(decimal.Zero, decimal.Zero, decimal.NewFromInt(2000000))
	expected := decimal.NewFromInt(1500000).Sub(decimal.NewFromInt(13230)).Mul(decimal.NewFromFloat(0.053))
	assert.True(t, tax.Sub(expected).Abs().LessThan(decimal.NewFromFloat(0.01)),
		"expected %s, got %s", expected, tax)
}

// TestCalculateYear combines the pieces for one simulated year.
func TestCalculateYear(t *testing.T) {
	tc := NewTaxCalculator(2025, domain.FilingSingle, "TX")
	res := tc.CalculateYear(YearTaxInput{
		OrdinaryIncome: decimal.NewFromInt(40000),
		ShortTermGains: decimal.NewFromInt(10000),
		LongTermGains:  decimal.NewFromInt(20000),
		PenaltyBase:    decimal.NewFromInt(5000),
		Age:            55,
	})

	// Ordinary stack is 50000 gross: 3961.50 federal.
	assert.True(t, res.Penalty.Equal(decimal.NewFromInt(500)))
	assert.True(t, res.State.IsZero())
	expectedOrdinary := decimal.NewFromFloat(3961.50)
	ltcg := tc.LongTermGainsTax(decimal.NewFromInt(20000), decimal.NewFromInt(50000))
	assert.True(t, res.Federal.Sub(expectedOrdinary.Add(ltcg)).Abs().LessThan(decimal.NewFromFloat(0.01)))
	assert.True(t, res.Total().Equal(res.Federal.Add(res.State).Add(res.Penalty)))
}
