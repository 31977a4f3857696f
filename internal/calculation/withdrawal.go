package calculation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/stackplan/wealthsim/internal/domain"
	"github.com/stackplan/wealthsim/pkg/dateutil"
)

// shortfallTolerance is the fraction of the requested amount that must be
// raised before the household counts as depleted. Raising at least 95% of
// the need is treated as covering it.
var shortfallTolerance = decimal.NewFromFloat(0.95)

// nonCashClasses is the taxable draw order when cash is exhausted.
var nonCashClasses = []domain.AssetClass{
	domain.AssetBTC, domain.AssetStocks, domain.AssetBonds, domain.AssetOther,
}

type classDraw struct {
	class  domain.AssetClass
	amount decimal.Decimal
}

// coverDeficit raises need dollars through the five-step sequence: taxable,
// tax-deferred, tax-free, collateral equity unlock, real estate. Each step
// runs only while the need is unmet. Realized gains, ordinary income, and
// penalty base accumulate on the run state for the year's tax pass.
//
// If the full sequence raises less than 95% of the need the household is
// depleted: every bucket is forced to zero and stays there.
func (s *runState) coverDeficit(need decimal.Decimal) decimal.Decimal {
	if need.LessThanOrEqual(decimal.Zero) || s.depleted {
		return decimal.Zero
	}

	raised := s.withdrawTaxable(need)
	if raised.LessThan(need) {
		raised = raised.Add(s.withdrawDeferred(need.Sub(raised)))
	}
	if raised.LessThan(need) {
		raised = raised.Add(s.withdrawFree(need.Sub(raised)))
	}
	if raised.LessThan(need) {
		raised = raised.Add(s.unlockEquity(need.Sub(raised)))
	}
	if raised.LessThan(need) {
		raised = raised.Add(s.sellRealEstate(need.Sub(raised)))
	}

	if raised.LessThan(need.Mul(shortfallTolerance)) {
		s.zeroEverything()
		return raised
	}

	// Steps that liquidate whole positions can overshoot; the excess stays
	// in taxable cash.
	if surplus := raised.Sub(need); surplus.GreaterThan(decimal.Zero) {
		s.taxable.Cash = s.taxable.Cash.Add(surplus)
	}
	return raised
}

// withdrawTaxable draws from the taxable account: cash first, then the
// remaining classes per the configured strategy.
func (s *runState) withdrawTaxable(need decimal.Decimal) decimal.Decimal {
	raised := decimal.Zero

	if take := decimal.Min(need, s.taxable.Cash); take.GreaterThan(decimal.Zero) {
		s.taxable.Cash = s.taxable.Cash.Sub(take)
		raised = take
	}

	remaining := need.Sub(raised)
	if remaining.GreaterThan(decimal.Zero) {
		for _, draw := range s.planTaxableDraw(remaining) {
			raised = raised.Add(s.sellTaxableClass(draw.class, draw.amount))
		}
	}

	s.wdTaxable = s.wdTaxable.Add(raised)
	return raised
}

// planTaxableDraw allocates a dollar need across the non-cash taxable
// classes. Proportional splits by current balance; priority walks the
// configured class order; blended targets the configured weights. All three
// finish with a sweep in fixed class order so capped classes spill over
// deterministically.
func (s *runState) planTaxableDraw(need decimal.Decimal) []classDraw {
	balances := map[domain.AssetClass]decimal.Decimal{}
	total := decimal.Zero
	for _, c := range nonCashClasses {
		bal := s.taxable.Get(c)
		if bal.GreaterThan(decimal.Zero) {
			balances[c] = bal
			total = total.Add(bal)
		}
	}
	if total.IsZero() {
		return nil
	}
	if need.GreaterThan(total) {
		need = total
	}

	desired := map[domain.AssetClass]decimal.Decimal{}
	switch s.strategy {
	case domain.StrategyPriority:
		left := need
		for _, c := range s.priority {
			if c == domain.AssetCash {
				continue
			}
			take := decimal.Min(left, balances[c])
			if take.GreaterThan(decimal.Zero) {
				desired[c] = take
				left = left.Sub(take)
			}
		}
	case domain.StrategyBlended:
		weightTotal := decimal.Zero
		for _, c := range nonCashClasses {
			if balances[c].GreaterThan(decimal.Zero) {
				weightTotal = weightTotal.Add(s.blend[c])
			}
		}
		if weightTotal.GreaterThan(decimal.Zero) {
			for _, c := range nonCashClasses {
				if balances[c].IsZero() {
					continue
				}
				want := need.Mul(s.blend[c]).Div(weightTotal)
				desired[c] = decimal.Min(want, balances[c])
			}
		}
	default: // proportional
		for _, c := range nonCashClasses {
			if bal := balances[c]; bal.GreaterThan(decimal.Zero) {
				desired[c] = need.Mul(bal).Div(total)
			}
		}
	}

	allocated := decimal.Zero
	for _, v := range desired {
		allocated = allocated.Add(v)
	}

	// Sweep whatever the strategy left uncovered, fixed order.
	left := need.Sub(allocated)
	for _, c := range nonCashClasses {
		if left.LessThanOrEqual(dustQuantity) {
			break
		}
		room := balances[c].Sub(desired[c])
		if room.GreaterThan(decimal.Zero) {
			take := decimal.Min(left, room)
			desired[c] = desired[c].Add(take)
			left = left.Sub(take)
		}
	}

	draws := make([]classDraw, 0, len(desired))
	for _, c := range nonCashClasses {
		if amt := desired[c]; amt.GreaterThan(decimal.Zero) {
			draws = append(draws, classDraw{class: c, amount: amt})
		}
	}
	return draws
}

// sellTaxableClass liquidates amount dollars of one taxable class. BTC goes
// through the lot pool under the configured cost-basis method; other classes
// realize long-term gains against their proportional class basis.
func (s *runState) sellTaxableClass(class domain.AssetClass, amount decimal.Decimal) decimal.Decimal {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	if class == domain.AssetBTC {
		if s.btcPrice.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero
		}
		res := s.pool.Sell(tickerBTC, amount.Div(s.btcPrice), s.btcPrice, s.saleDate, s.method)
		s.shortGains = s.shortGains.Add(res.ShortTermGain)
		s.longGains = s.longGains.Add(res.LongTermGain)
		s.syncTaxableBTC()
		return res.Proceeds
	}

	value := s.taxable.Get(class)
	take := decimal.Min(amount, value)
	if take.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	basis := s.classBasis[class]
	basisUsed := decimal.Zero
	if value.GreaterThan(decimal.Zero) {
		basisUsed = basis.Mul(take).Div(value)
	}
	s.longGains = s.longGains.Add(take.Sub(basisUsed))
	s.classBasis[class] = basis.Sub(basisUsed)
	s.taxable.Set(class, value.Sub(take))
	return take
}

// withdrawDeferred draws proportionally from tax-deferred buckets. The whole
// withdrawal is ordinary income; under the early-withdrawal age it also
// accrues the 10% penalty base.
func (s *runState) withdrawDeferred(need decimal.Decimal) decimal.Decimal {
	taken := drawProportional(&s.deferred, need)
	if taken.GreaterThan(decimal.Zero) {
		s.ordinaryIncome = s.ordinaryIncome.Add(taken)
		if dateutil.IsEarlyWithdrawalAge(s.age) {
			s.penaltyBase = s.penaltyBase.Add(taken)
		}
		s.wdDeferred = s.wdDeferred.Add(taken)
	}
	return taken
}

// withdrawFree draws from Roth buckets: contribution basis comes out first,
// always tax- and penalty-free. Earnings beyond the basis are taxed and
// penalized only under the early-withdrawal age; at 60 and over the whole
// distribution is qualified and tax-free.
func (s *runState) withdrawFree(need decimal.Decimal) decimal.Decimal {
	taken := drawProportional(&s.free, need)
	if taken.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	fromBasis := decimal.Min(taken, s.rothBasis)
	s.rothBasis = s.rothBasis.Sub(fromBasis)
	earnings := taken.Sub(fromBasis)
	if earnings.GreaterThan(decimal.Zero) && dateutil.IsEarlyWithdrawalAge(s.age) {
		s.ordinaryIncome = s.ordinaryIncome.Add(earnings)
		s.penaltyBase = s.penaltyBase.Add(earnings)
	}
	s.wdFree = s.wdFree.Add(taken)
	return taken
}

// unlockEquity liquidates collateralized loans, lowest LTV first, selling
// all collateral and retiring the balance. Only the net proceeds count
// toward the need; the realized gain is long-term.
func (s *runState) unlockEquity(need decimal.Decimal) decimal.Decimal {
	type candidate struct {
		loan *domain.CollateralizedLoan
		ltv  decimal.Decimal
	}
	var cands []candidate
	for _, l := range s.loans {
		if l.PaidOff || l.CollateralBTC.LessThanOrEqual(dustQuantity) {
			continue
		}
		ltv, ok := l.LTV(s.btcPrice)
		if !ok {
			continue
		}
		cands = append(cands, candidate{loan: l, ltv: ltv})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if !cands[i].ltv.Equal(cands[j].ltv) {
			return cands[i].ltv.LessThan(cands[j].ltv)
		}
		return cands[i].loan.Name < cands[j].loan.Name
	})

	raised := decimal.Zero
	for _, c := range cands {
		if raised.GreaterThanOrEqual(need) {
			break
		}
		net, gain, ev := unlockLoanEquity(c.loan, s.btcPrice, s.year, s.age)
		s.longGains = s.longGains.Add(gain)
		s.events = append(s.events, ev)
		raised = raised.Add(net)
	}
	s.wdUnlock = s.wdUnlock.Add(raised)
	return raised
}

// sellRealEstate is the last resort: the property sells in full, no partial
// sales and no gain modeled.
func (s *runState) sellRealEstate(need decimal.Decimal) decimal.Decimal {
	if s.realEstate.LessThanOrEqual(decimal.Zero) || need.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	raised := s.realEstate
	s.wdRealEstate = s.wdRealEstate.Add(raised)
	s.realEstate = decimal.Zero
	return raised
}

// drawProportional removes up to need dollars from a bucket set, split by
// each class's share of the total. Returns the amount actually removed.
func drawProportional(b *domain.Buckets, need decimal.Decimal) decimal.Decimal {
	total := b.Total()
	if total.LessThanOrEqual(decimal.Zero) || need.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	take := decimal.Min(need, total)
	factor := take.Div(total)
	for _, c := range domain.InvestableClasses {
		bal := b.Get(c)
		if bal.GreaterThan(decimal.Zero) {
			b.Set(c, bal.Sub(bal.Mul(factor)))
		}
	}
	return take
}
