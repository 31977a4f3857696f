package calculation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stackplan/wealthsim/internal/domain"
)

// CollateralOutcome reports the effects of one year's state-machine pass for
// a single loan. Gains from forced sales classify long-term: collateral
// pools carry proportional basis with no per-lot identity.
type CollateralOutcome struct {
	Events         []domain.LoanEvent
	LongTermGain   decimal.Decimal
	ProceedsToDebt decimal.Decimal
}

// processCollateralYear evaluates the LTV state machine for one loan. Called
// once per simulated year, after interest accrual and the scheduled payment,
// before dividend and withdrawal processing. The loan and the lot pool are
// run-private state and are mutated in place.
//
// Transition order: liquidation wins over top-up wins over release. Every
// BTC unit moved between the liquid pool and the loan carries a proportional
// share of cost basis computed from the pool it leaves.
func processCollateralYear(loan *domain.CollateralizedLoan, pool *LotPool, btcPrice decimal.Decimal, year, age int) CollateralOutcome {
	out := CollateralOutcome{}
	if loan.PaidOff {
		return out
	}

	// Zero balance with collateral still encumbered: release everything.
	if loan.Balance.LessThanOrEqual(decimal.Zero) {
		if loan.CollateralBTC.GreaterThan(dustQuantity) {
			out.Events = append(out.Events, releaseAll(loan, pool, year, age))
		}
		loan.PaidOff = true
		return out
	}

	ltv, ok := loan.LTV(btcPrice)
	if !ok {
		// No collateral value: no ratio, nothing to evaluate.
		return out
	}

	switch {
	case ltv.GreaterThanOrEqual(loan.LiquidationLTV):
		out = liquidate(loan, pool, btcPrice, year, age)

	case loan.AutoTopUp && ltv.GreaterThanOrEqual(loan.TopUpLTV):
		if ev, ok := topUp(loan, pool, btcPrice, year, age); ok {
			out.Events = append(out.Events, ev)
		}

	case loan.ReleaseLTV.GreaterThan(decimal.Zero) && ltv.LessThanOrEqual(loan.ReleaseLTV):
		if ev, ok := releaseExcess(loan, pool, btcPrice, year, age); ok {
			out.Events = append(out.Events, ev)
		}
	}
	return out
}

// liquidate sells exactly enough collateral to zero the balance, or all of
// it. Leftover collateral and its remaining basis return to the liquid pool
// in the same simulated year.
func liquidate(loan *domain.CollateralizedLoan, pool *LotPool, btcPrice decimal.Decimal, year, age int) CollateralOutcome {
	out := CollateralOutcome{}

	btcToSell := decimal.Min(loan.CollateralBTC, loan.Balance.Div(btcPrice))
	proceeds := btcToSell.Mul(btcPrice)
	basisShare := decimal.Zero
	if loan.CollateralBTC.GreaterThan(decimal.Zero) {
		basisShare = loan.CollateralBasis.Mul(btcToSell).Div(loan.CollateralBTC)
	}

	out.LongTermGain = proceeds.Sub(basisShare)
	out.ProceedsToDebt = proceeds

	loan.CollateralBTC = loan.CollateralBTC.Sub(btcToSell)
	loan.CollateralBasis = loan.CollateralBasis.Sub(basisShare)
	newBalance := loan.Balance.Sub(proceeds)
	if newBalance.IsNegative() {
		newBalance = decimal.Zero
	}
	loan.Balance = newBalance

	if loan.Balance.IsZero() {
		ev := domain.LoanEvent{
			Year: year, Age: age, Type: domain.EventFullLiquidation, LoanName: loan.Name,
			BTCAmount: btcToSell, USDAmount: proceeds,
			Message: fmt.Sprintf("LTV breached %s: sold %s BTC to retire the balance", loan.LiquidationLTV.StringFixed(2), btcToSell.StringFixed(8)),
		}
		out.Events = append(out.Events, ev)
		if loan.CollateralBTC.GreaterThan(dustQuantity) {
			out.Events = append(out.Events, releaseAll(loan, pool, year, age))
		}
		loan.PaidOff = true
	} else {
		out.Events = append(out.Events, domain.LoanEvent{
			Year: year, Age: age, Type: domain.EventPartialLiquidation, LoanName: loan.Name,
			BTCAmount: btcToSell, USDAmount: proceeds,
			Message: fmt.Sprintf("collateral exhausted: sold %s BTC, %s still owed", btcToSell.StringFixed(8), loan.Balance.StringFixed(2)),
		})
		loan.CollateralBTC = decimal.Zero
		loan.CollateralBasis = decimal.Zero
	}
	return out
}

// topUp moves liquid BTC into the collateral pool until LTV reaches the
// configured target, limited by what the liquid pool holds.
func topUp(loan *domain.CollateralizedLoan, pool *LotPool, btcPrice decimal.Decimal, year, age int) (domain.LoanEvent, bool) {
	if loan.TopUpTargetLTV.LessThanOrEqual(decimal.Zero) || btcPrice.LessThanOrEqual(decimal.Zero) {
		return domain.LoanEvent{}, false
	}
	targetValue := loan.Balance.Div(loan.TopUpTargetLTV)
	needValue := targetValue.Sub(loan.CollateralBTC.Mul(btcPrice))
	if needValue.LessThanOrEqual(decimal.Zero) {
		return domain.LoanEvent{}, false
	}
	moved, basis := pool.TransferOut(tickerBTC, needValue.Div(btcPrice))
	if moved.LessThanOrEqual(dustQuantity) {
		return domain.LoanEvent{}, false
	}
	loan.CollateralBTC = loan.CollateralBTC.Add(moved)
	loan.CollateralBasis = loan.CollateralBasis.Add(basis)
	return domain.LoanEvent{
		Year: year, Age: age, Type: domain.EventCollateralTopUp, LoanName: loan.Name,
		BTCAmount: moved, USDAmount: moved.Mul(btcPrice),
		Message: fmt.Sprintf("topped up %s BTC toward target LTV %s", moved.StringFixed(8), loan.TopUpTargetLTV.StringFixed(2)),
	}, true
}

// releaseExcess frees collateral above what the release-target LTV requires.
func releaseExcess(loan *domain.CollateralizedLoan, pool *LotPool, btcPrice decimal.Decimal, year, age int) (domain.LoanEvent, bool) {
	if loan.ReleaseTarget.LessThanOrEqual(decimal.Zero) || btcPrice.LessThanOrEqual(decimal.Zero) {
		return domain.LoanEvent{}, false
	}
	neededBTC := loan.Balance.Div(loan.ReleaseTarget).Div(btcPrice)
	excess := loan.CollateralBTC.Sub(neededBTC)
	if excess.LessThanOrEqual(dustQuantity) {
		return domain.LoanEvent{}, false
	}
	basisShare := loan.CollateralBasis.Mul(excess).Div(loan.CollateralBTC)
	loan.CollateralBTC = loan.CollateralBTC.Sub(excess)
	loan.CollateralBasis = loan.CollateralBasis.Sub(basisShare)
	pool.AddFallback(tickerBTC, excess, basisShare)
	return domain.LoanEvent{
		Year: year, Age: age, Type: domain.EventCollateralRelease, LoanName: loan.Name,
		BTCAmount: excess, USDAmount: excess.Mul(btcPrice),
		Message: fmt.Sprintf("released %s BTC of excess collateral", excess.StringFixed(8)),
	}, true
}

// releaseAll moves all remaining collateral and basis back to the liquid
// pool and returns the audit event.
func releaseAll(loan *domain.CollateralizedLoan, pool *LotPool, year, age int) domain.LoanEvent {
	btc := loan.CollateralBTC
	basis := loan.CollateralBasis
	pool.AddFallback(tickerBTC, btc, basis)
	loan.CollateralBTC = decimal.Zero
	loan.CollateralBasis = decimal.Zero
	return domain.LoanEvent{
		Year: year, Age: age, Type: domain.EventCollateralRelease, LoanName: loan.Name,
		BTCAmount: btc,
		Message:   fmt.Sprintf("balance cleared: released all %s BTC collateral", btc.StringFixed(8)),
	}
}

// unlockLoanEquity is the withdrawal sequencer's emergency step: sell the
// loan's entire collateral, retire the balance, and free the remainder as
// cash. The realized gain (long-term, proportional basis) feeds the year's
// tax input. Returns net proceeds after debt payoff.
func unlockLoanEquity(loan *domain.CollateralizedLoan, btcPrice decimal.Decimal, year, age int) (net, gain decimal.Decimal, ev domain.LoanEvent) {
	proceeds := loan.CollateralBTC.Mul(btcPrice)
	gain = proceeds.Sub(loan.CollateralBasis)
	net = proceeds.Sub(loan.Balance)
	if net.IsNegative() {
		net = decimal.Zero
	}
	ev = domain.LoanEvent{
		Year: year, Age: age, Type: domain.EventEquityUnlock, LoanName: loan.Name,
		BTCAmount: loan.CollateralBTC, USDAmount: proceeds,
		Message: fmt.Sprintf("emergency unlock: sold %s BTC, repaid %s", loan.CollateralBTC.StringFixed(8), loan.Balance.StringFixed(2)),
	}
	loan.Balance = decimal.Zero
	loan.CollateralBTC = decimal.Zero
	loan.CollateralBasis = decimal.Zero
	loan.PaidOff = true
	return net, gain, ev
}
