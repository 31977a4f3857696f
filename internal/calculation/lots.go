package calculation

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stackplan/wealthsim/internal/domain"
	"github.com/stackplan/wealthsim/pkg/dateutil"
)

// tickerBTC is the ticker under which liquid BTC lots and released loan
// collateral are pooled.
const tickerBTC = "BTC"

// dustQuantity is the threshold below which a lot's remainder is discarded.
var dustQuantity = decimal.NewFromFloat(1e-8)

// LotSale records one lot's contribution to a sale.
type LotSale struct {
	LotID     string
	Quantity  decimal.Decimal
	CostBasis decimal.Decimal
}

// SaleResult is the outcome of selling a quantity from a lot pool.
type SaleResult struct {
	Consumed      []LotSale
	QuantitySold  decimal.Decimal
	Proceeds      decimal.Decimal
	CostBasis     decimal.Decimal
	ShortTermGain decimal.Decimal
	LongTermGain  decimal.Decimal
}

// aggregateBucket holds units with no per-lot identity: legacy holdings that
// predate lot tracking and collateral released back from loan pools. Basis
// consumed from here is proportional and gains classify long-term, the
// conservative side of the fallback rule.
type aggregateBucket struct {
	quantity decimal.Decimal
	basis    decimal.Decimal
}

// LotPool is the running per-ticker tax-lot state for one projection run.
// It is created fresh at projection start from the input snapshot and
// mutated in place; nothing persists past the run.
type LotPool struct {
	lots     map[string][]*domain.TaxLot
	fallback map[string]*aggregateBucket
}

// NewLotPool deep-copies the input lots into a mutable running pool.
func NewLotPool(lots []domain.TaxLot) *LotPool {
	p := &LotPool{
		lots:     make(map[string][]*domain.TaxLot),
		fallback: make(map[string]*aggregateBucket),
	}
	for _, l := range lots {
		cp := l
		if cp.Remaining.IsZero() && cp.Quantity.GreaterThan(decimal.Zero) {
			cp.Remaining = cp.Quantity
		}
		if cp.Remaining.LessThanOrEqual(dustQuantity) {
			continue
		}
		p.lots[cp.Ticker] = append(p.lots[cp.Ticker], &cp)
	}
	return p
}

// AddFallback adds untracked units (legacy balance, released collateral) to
// the ticker's aggregate bucket.
func (p *LotPool) AddFallback(ticker string, quantity, basis decimal.Decimal) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return
	}
	fb := p.fallback[ticker]
	if fb == nil {
		fb = &aggregateBucket{}
		p.fallback[ticker] = fb
	}
	fb.quantity = fb.quantity.Add(quantity)
	fb.basis = fb.basis.Add(basis)
}

// AddLot appends a new tracked lot to the pool.
func (p *LotPool) AddLot(lot domain.TaxLot) {
	if lot.Remaining.IsZero() {
		lot.Remaining = lot.Quantity
	}
	if lot.Remaining.LessThanOrEqual(dustQuantity) {
		return
	}
	cp := lot
	p.lots[cp.Ticker] = append(p.lots[cp.Ticker], &cp)
}

// TotalQuantity returns tracked plus aggregate units for a ticker.
func (p *LotPool) TotalQuantity(ticker string) decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.lots[ticker] {
		total = total.Add(l.Remaining)
	}
	if fb := p.fallback[ticker]; fb != nil {
		total = total.Add(fb.quantity)
	}
	return total
}

// TotalBasis returns the total cost basis held for a ticker.
func (p *LotPool) TotalBasis(ticker string) decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.lots[ticker] {
		total = total.Add(l.CostBasis())
	}
	if fb := p.fallback[ticker]; fb != nil {
		total = total.Add(fb.basis)
	}
	return total
}

// LotQuantity returns only the lot-tracked units for a ticker.
func (p *LotPool) LotQuantity(ticker string) decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.lots[ticker] {
		total = total.Add(l.Remaining)
	}
	return total
}

// orderLots sorts candidates for consumption under a cost-basis method.
// FIFO: ascending acquisition date. LIFO: descending. HIFO: descending price
// per unit. Specific identification has no picker in a simulation, so it
// consumes in HIFO order (lowest tax first). Ties break by lot id so the
// same inputs always select the same lots.
func orderLots(lots []*domain.TaxLot, method domain.CostBasisMethod) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		switch method {
		case domain.MethodFIFO:
			if !a.AcquiredAt.Equal(b.AcquiredAt) {
				return a.AcquiredAt.Before(b.AcquiredAt)
			}
		case domain.MethodLIFO:
			if !a.AcquiredAt.Equal(b.AcquiredAt) {
				return a.AcquiredAt.After(b.AcquiredAt)
			}
		case domain.MethodHIFO, domain.MethodSpecific:
			if !a.PricePerUnit.Equal(b.PricePerUnit) {
				return a.PricePerUnit.GreaterThan(b.PricePerUnit)
			}
		}
		return a.ID < b.ID
	})
}

// Sell consumes up to quantity units of ticker at the given unit price,
// choosing lots per the cost-basis method and splitting the realized gain by
// holding period against one year before the sale date. The pool is mutated:
// consumed lots shrink and sub-dust remainders are removed. When lots run
// out, the aggregate bucket covers the remainder with proportional basis and
// a long-term classification.
func (p *LotPool) Sell(ticker string, quantity, unitPrice decimal.Decimal, saleDate time.Time, method domain.CostBasisMethod) SaleResult {
	res := SaleResult{}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return res
	}
	cutoff := dateutil.OneYearBefore(saleDate)
	remaining := quantity

	candidates := p.lots[ticker]
	orderLots(candidates, method)

	kept := candidates[:0]
	for _, lot := range candidates {
		if remaining.GreaterThan(dustQuantity) && lot.Remaining.GreaterThan(decimal.Zero) {
			take := decimal.Min(remaining, lot.Remaining)
			basis := take.Mul(lot.PricePerUnit)
			proceeds := take.Mul(unitPrice)
			gain := proceeds.Sub(basis)

			if lot.AcquiredAt.After(cutoff) {
				res.ShortTermGain = res.ShortTermGain.Add(gain)
			} else {
				res.LongTermGain = res.LongTermGain.Add(gain)
			}
			res.Consumed = append(res.Consumed, LotSale{LotID: lot.ID, Quantity: take, CostBasis: basis})
			res.QuantitySold = res.QuantitySold.Add(take)
			res.Proceeds = res.Proceeds.Add(proceeds)
			res.CostBasis = res.CostBasis.Add(basis)

			lot.Remaining = lot.Remaining.Sub(take)
			remaining = remaining.Sub(take)
		}
		if lot.Remaining.GreaterThan(dustQuantity) {
			kept = append(kept, lot)
		}
	}
	p.lots[ticker] = kept

	// Fallback: proportional basis from the aggregate bucket, long-term.
	if remaining.GreaterThan(dustQuantity) {
		if fb := p.fallback[ticker]; fb != nil && fb.quantity.GreaterThan(decimal.Zero) {
			take := decimal.Min(remaining, fb.quantity)
			basis := fb.basis.Mul(take).Div(fb.quantity)
			proceeds := take.Mul(unitPrice)

			res.LongTermGain = res.LongTermGain.Add(proceeds.Sub(basis))
			res.QuantitySold = res.QuantitySold.Add(take)
			res.Proceeds = res.Proceeds.Add(proceeds)
			res.CostBasis = res.CostBasis.Add(basis)

			fb.quantity = fb.quantity.Sub(take)
			fb.basis = fb.basis.Sub(basis)
			if fb.quantity.LessThanOrEqual(dustQuantity) {
				delete(p.fallback, ticker)
			}
		}
	}

	return res
}

// TransferOut removes quantity units from the pool without a sale, for
// moving liquid BTC into loan collateral. The basis carried out is the
// pool's proportional share; every lot and the aggregate bucket shrink by
// the same factor so relative composition is preserved. Returns the units
// actually moved and their basis.
func (p *LotPool) TransferOut(ticker string, quantity decimal.Decimal) (moved, basis decimal.Decimal) {
	total := p.TotalQuantity(ticker)
	if total.LessThanOrEqual(dustQuantity) || quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero
	}
	if quantity.GreaterThan(total) {
		quantity = total
	}
	factor := quantity.Div(total)
	keepFactor := decimal.NewFromInt(1).Sub(factor)

	kept := p.lots[ticker][:0]
	for _, lot := range p.lots[ticker] {
		basis = basis.Add(lot.CostBasis().Mul(factor))
		lot.Remaining = lot.Remaining.Mul(keepFactor)
		if lot.Remaining.GreaterThan(dustQuantity) {
			kept = append(kept, lot)
		}
	}
	p.lots[ticker] = kept

	if fb := p.fallback[ticker]; fb != nil {
		basis = basis.Add(fb.basis.Mul(factor))
		fb.quantity = fb.quantity.Mul(keepFactor)
		fb.basis = fb.basis.Mul(keepFactor)
		if fb.quantity.LessThanOrEqual(dustQuantity) {
			delete(p.fallback, ticker)
		}
	}
	return quantity, basis
}
