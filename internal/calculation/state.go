package calculation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stackplan/wealthsim/internal/domain"
)

// runState is the mutable working set of one projection run. It is built
// fresh from the input snapshot at run start and thrown away at the end;
// the input itself is never mutated.
//
// Taxable BTC is authoritative in the lot pool: the bucket's dollar value is
// derived as pool quantity times price each year. Non-BTC taxable classes
// carry a class-level cost basis (classBasis) because the engine does not
// track lots for them; sales realize long-term gains against the
// proportional share of that basis.
type runState struct {
	taxable    domain.Buckets
	deferred   domain.Buckets
	free       domain.Buckets
	realEstate decimal.Decimal

	pool       *LotPool
	classBasis map[domain.AssetClass]decimal.Decimal
	rothBasis  decimal.Decimal

	liabilities []*domain.Liability
	loans       []*domain.CollateralizedLoan

	btcPrice decimal.Decimal
	year     int
	age      int
	saleDate time.Time
	depleted bool

	method   domain.CostBasisMethod
	strategy domain.WithdrawalStrategy
	priority []domain.AssetClass
	blend    map[domain.AssetClass]decimal.Decimal

	// Dividend model: per-class weighted yield and qualified fraction,
	// frozen from the initial taxable holdings.
	divYield     map[domain.AssetClass]decimal.Decimal
	divQualified map[domain.AssetClass]decimal.Decimal

	// Accumulators reset each simulated year.
	ordinaryIncome decimal.Decimal
	shortGains     decimal.Decimal
	longGains      decimal.Decimal
	penaltyBase    decimal.Decimal
	events         []domain.LoanEvent

	wdTaxable    decimal.Decimal
	wdDeferred   decimal.Decimal
	wdFree       decimal.Decimal
	wdUnlock     decimal.Decimal
	wdRealEstate decimal.Decimal
}

// resetYear clears the per-year accumulators and advances the clock.
func (s *runState) resetYear(year, age int) {
	s.year = year
	s.age = age
	s.saleDate = time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
	s.ordinaryIncome = decimal.Zero
	s.shortGains = decimal.Zero
	s.longGains = decimal.Zero
	s.penaltyBase = decimal.Zero
	s.events = nil
	s.wdTaxable = decimal.Zero
	s.wdDeferred = decimal.Zero
	s.wdFree = decimal.Zero
	s.wdUnlock = decimal.Zero
	s.wdRealEstate = decimal.Zero
}

// syncTaxableBTC re-derives the taxable BTC bucket from the lot pool so the
// two never drift.
func (s *runState) syncTaxableBTC() {
	s.taxable.BTC = s.pool.TotalQuantity(tickerBTC).Mul(s.btcPrice)
}

// totalDebt sums liability and loan balances still outstanding.
func (s *runState) totalDebt() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.liabilities {
		if !l.PaidOff {
			total = total.Add(l.Balance)
		}
	}
	for _, l := range s.loans {
		if !l.PaidOff {
			total = total.Add(l.Balance)
		}
	}
	return total
}

// encumberedBTC sums collateral still pledged across loans.
func (s *runState) encumberedBTC() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.loans {
		total = total.Add(l.CollateralBTC)
	}
	return total
}

// payOffDebt retires the named liability or collateralized loan in full and
// returns the cash required. Loan collateral and its basis go back to the
// liquid pool.
func (s *runState) payOffDebt(name string) decimal.Decimal {
	for _, l := range s.liabilities {
		if l.Name == name && !l.PaidOff {
			paid := l.Balance
			l.Balance = decimal.Zero
			l.PaidOff = true
			return paid
		}
	}
	for _, l := range s.loans {
		if l.Name != name || l.PaidOff {
			continue
		}
		paid := l.Balance
		l.Balance = decimal.Zero
		if l.CollateralBTC.GreaterThan(decimal.Zero) {
			s.pool.AddFallback(tickerBTC, l.CollateralBTC, l.CollateralBasis)
			l.CollateralBTC = decimal.Zero
			l.CollateralBasis = decimal.Zero
		}
		l.PaidOff = true
		s.events = append(s.events, domain.LoanEvent{
			Year: s.year, Age: s.age, Type: domain.EventLoanPaidOff, LoanName: l.Name,
			Message: "retired early by planned payoff",
		})
		return paid
	}
	return decimal.Zero
}

// zeroEverything empties every bucket after depletion so later rows report a
// flat zero portfolio.
func (s *runState) zeroEverything() {
	s.taxable = domain.Buckets{}
	s.deferred = domain.Buckets{}
	s.free = domain.Buckets{}
	s.realEstate = decimal.Zero
	s.rothBasis = decimal.Zero
	s.pool = NewLotPool(nil)
	s.classBasis = map[domain.AssetClass]decimal.Decimal{}
	s.depleted = true
}
