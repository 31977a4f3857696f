package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/stackplan/wealthsim/internal/domain"
)

// TAX TABLE ASSUMPTIONS:
//
// 1. Federal brackets: 2025 tables are used for all projection years with no
//    inflation indexing. Standard deduction: $15,000 single / $30,000 MFJ.
// 2. Long-term capital gains: 2025 0/15/20% thresholds, stacked on top of
//    ordinary taxable income.
// 3. State treatment tables cover a representative set of states; states not
//    listed are treated as having no income tax. No attempt is made to track
//    every jurisdiction's rules (see repository non-goals).
//
// All tables in this file are immutable configuration loaded at process
// start and passed by reference into the engine. Nothing mutates them.

// TaxBracket is one marginal bracket.
type TaxBracket struct {
	Min  decimal.Decimal
	Max  decimal.Decimal
	Rate decimal.Decimal
}

// TaxYearTables bundles the federal tables and contribution limits for one
// tax year.
type TaxYearTables struct {
	Year              int
	OrdinaryBrackets  map[domain.FilingStatus][]TaxBracket
	LTCGBrackets      map[domain.FilingStatus][]TaxBracket
	StandardDeduction map[domain.FilingStatus]decimal.Decimal
	Limit401k         decimal.Decimal
	LimitIRA          decimal.Decimal
}

var bracketTop = decimal.NewFromInt(999999999999)

func b(min, max int64, rate float64) TaxBracket {
	return TaxBracket{
		Min:  decimal.NewFromInt(min),
		Max:  decimal.NewFromInt(max),
		Rate: decimal.NewFromFloat(rate),
	}
}

func bTop(min int64, rate float64) TaxBracket {
	return TaxBracket{Min: decimal.NewFromInt(min), Max: bracketTop, Rate: decimal.NewFromFloat(rate)}
}

var taxTables = map[int]TaxYearTables{
	2025: {
		Year: 2025,
		OrdinaryBrackets: map[domain.FilingStatus][]TaxBracket{
			domain.FilingSingle: {
				b(0, 11925, 0.10),
				b(11925, 48475, 0.12),
				b(48475, 103350, 0.22),
				b(103350, 197300, 0.24),
				b(197300, 250525, 0.32),
				b(250525, 626350, 0.35),
				bTop(626350, 0.37),
			},
			domain.FilingMarriedJoint: {
				b(0, 23850, 0.10),
				b(23850, 96950, 0.12),
				b(96950, 206700, 0.22),
				b(206700, 394600, 0.24),
				b(394600, 501050, 0.32),
				b(501050, 751600, 0.35),
				bTop(751600, 0.37),
			},
		},
		LTCGBrackets: map[domain.FilingStatus][]TaxBracket{
			domain.FilingSingle: {
				b(0, 48350, 0.00),
				b(48350, 533400, 0.15),
				bTop(533400, 0.20),
			},
			domain.FilingMarriedJoint: {
				b(0, 96700, 0.00),
				b(96700, 600050, 0.15),
				bTop(600050, 0.20),
			},
		},
		StandardDeduction: map[domain.FilingStatus]decimal.Decimal{
			domain.FilingSingle:       decimal.NewFromInt(15000),
			domain.FilingMarriedJoint: decimal.NewFromInt(30000),
		},
		Limit401k: decimal.NewFromInt(23500),
		LimitIRA:  decimal.NewFromInt(7000),
	},
}

// TablesForYear returns the federal tables for a year, falling back to the
// closest configured year (2025 for everything at present).
func TablesForYear(year int) TaxYearTables {
	if t, ok := taxTables[year]; ok {
		return t
	}
	best := TaxYearTables{}
	for y, t := range taxTables {
		if best.Year == 0 || absInt(y-year) < absInt(best.Year-year) {
			best = t
		}
	}
	return best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// StateCGTreatment selects how a state taxes capital gains.
type StateCGTreatment string

const (
	StateCGOrdinary     StateCGTreatment = "ordinary"
	StateCGExempt       StateCGTreatment = "exempt"
	StateCGDeductionPct StateCGTreatment = "percentage_deduction"
	StateCGExclusionCap StateCGTreatment = "exclusion_with_cap"
	StateCGFlatRate     StateCGTreatment = "flat_special_rate"
	StateCGCredit       StateCGTreatment = "credit"
)

// StateTaxConfig is one state's income and capital-gains treatment.
type StateTaxConfig struct {
	Code              string
	Brackets          map[domain.FilingStatus][]TaxBracket
	StandardDeduction map[domain.FilingStatus]decimal.Decimal
	CGTreatment       StateCGTreatment
	CGDeductionPct    decimal.Decimal // percentage_deduction
	CGExclusionPct    decimal.Decimal // exclusion_with_cap
	CGExclusionCap    decimal.Decimal // exclusion_with_cap
	CGFlatRate        decimal.Decimal // flat_special_rate
	CGCreditPct       decimal.Decimal // credit
}

func flatBrackets(rate float64) map[domain.FilingStatus][]TaxBracket {
	bs := []TaxBracket{bTop(0, rate)}
	return map[domain.FilingStatus][]TaxBracket{
		domain.FilingSingle:       bs,
		domain.FilingMarriedJoint: bs,
	}
}

func stateDeduction(single, mfj int64) map[domain.FilingStatus]decimal.Decimal {
	return map[domain.FilingStatus]decimal.Decimal{
		domain.FilingSingle:       decimal.NewFromInt(single),
		domain.FilingMarriedJoint: decimal.NewFromInt(mfj),
	}
}

var stateTables = map[string]StateTaxConfig{
	"CA": {
		Code: "CA",
		Brackets: map[domain.FilingStatus][]TaxBracket{
			domain.FilingSingle: {
				b(0, 10756, 0.01),
				b(10756, 25499, 0.02),
				b(25499, 40245, 0.04),
				b(40245, 55866, 0.06),
				b(55866, 70606, 0.08),
				b(70606, 360659, 0.093),
				b(360659, 432787, 0.103),
				b(432787, 721314, 0.113),
				bTop(721314, 0.123),
			},
			domain.FilingMarriedJoint: {
				b(0, 21512, 0.01),
				b(21512, 50998, 0.02),
				b(50998, 80490, 0.04),
				b(80490, 111732, 0.06),
				b(111732, 141212, 0.08),
				b(141212, 721318, 0.093),
				b(721318, 865574, 0.103),
				b(865574, 1442628, 0.113),
				bTop(1442628, 0.123),
			},
		},
		StandardDeduction: stateDeduction(5540, 11080),
		CGTreatment:       StateCGOrdinary,
	},
	"NY": {
		Code: "NY",
		Brackets: map[domain.FilingStatus][]TaxBracket{
			domain.FilingSingle: {
				b(0, 8500, 0.04),
				b(8500, 11700, 0.045),
				b(11700, 13900, 0.0525),
				b(13900, 80650, 0.055),
				b(80650, 215400, 0.06),
				b(215400, 1077550, 0.0685),
				bTop(1077550, 0.0965),
			},
			domain.FilingMarriedJoint: {
				b(0, 17150, 0.04),
				b(17150, 23600, 0.045),
				b(23600, 27900, 0.0525),
				b(27900, 161550, 0.055),
				b(161550, 323200, 0.06),
				b(323200, 2155350, 0.0685),
				bTop(2155350, 0.0965),
			},
		},
		StandardDeduction: stateDeduction(8000, 16050),
		CGTreatment:       StateCGOrdinary,
	},
	"PA": {
		Code:              "PA",
		Brackets:          flatBrackets(0.0307),
		StandardDeduction: stateDeduction(0, 0),
		CGTreatment:       StateCGOrdinary,
	},
	"MA": {
		Code:              "MA",
		Brackets:          flatBrackets(0.05),
		StandardDeduction: stateDeduction(0, 0),
		CGTreatment:       StateCGFlatRate,
		CGFlatRate:        decimal.NewFromFloat(0.05),
	},
	"SC": {
		Code:              "SC",
		Brackets:          flatBrackets(0.062),
		StandardDeduction: stateDeduction(14600, 29200),
		CGTreatment:       StateCGDeductionPct,
		CGDeductionPct:    decimal.NewFromFloat(0.44),
	},
	"WI": {
		Code:              "WI",
		Brackets:          flatBrackets(0.053),
		StandardDeduction: stateDeduction(13230, 24490),
		CGTreatment:       StateCGExclusionCap,
		CGExclusionPct:    decimal.NewFromFloat(0.30),
		CGExclusionCap:    decimal.NewFromInt(500000),
	},
	"MT": {
		Code:              "MT",
		Brackets:          flatBrackets(0.059),
		StandardDeduction: stateDeduction(14600, 29200),
		CGTreatment:       StateCGCredit,
		CGCreditPct:       decimal.NewFromFloat(0.02),
	},
}

var noTaxStates = map[string]bool{
	"AK": true, "FL": true, "NV": true, "NH": true, "SD": true,
	"TN": true, "TX": true, "WA": true, "WY": true,
}

// StateConfigFor returns the configuration for a state code. Unlisted states
// with no income tax, and any unknown code, resolve to an exempt
// configuration with no brackets.
func StateConfigFor(code string) StateTaxConfig {
	if cfg, ok := stateTables[code]; ok {
		return cfg
	}
	return StateTaxConfig{
		Code:              code,
		Brackets:          map[domain.FilingStatus][]TaxBracket{},
		StandardDeduction: stateDeduction(0, 0),
		CGTreatment:       StateCGExempt,
	}
}

// KnownState reports whether the code is configured or a known no-tax state.
func KnownState(code string) bool {
	if _, ok := stateTables[code]; ok {
		return true
	}
	return noTaxStates[code]
}
