package calculation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stackplan/wealthsim/internal/domain"
	"github.com/stackplan/wealthsim/pkg/dateutil"
)

// RunUnifiedProjection simulates the household year by year from StartYear
// until EndAge and returns the full year-by-year trace. The input snapshot is
// not mutated; identical inputs always produce identical results.
func (e *ProjectionEngine) RunUnifiedProjection(input *domain.ProjectionInput) (*domain.ProjectionResult, error) {
	s := input.Settings
	years := s.ProjectionYears()
	if years <= 0 {
		return nil, fmt.Errorf("projection window is empty: current age %d, end age %d", s.CurrentAge, s.EndAge)
	}

	st, err := buildRunState(input)
	if err != nil {
		return nil, err
	}
	e.Logger.Debugf("projection start: %d years, start year %d, btc price %s",
		years, s.StartYear, st.btcPrice.StringFixed(2))

	birthYear := s.BirthYear()
	rows := make([]domain.YearRow, 0, years)
	var depleteAge *int

	for i := 0; i < years; i++ {
		year := s.StartYear + i
		age := s.CurrentAge + i
		st.resetYear(year, age)

		returns := s.GrowthRates
		if i < len(input.YearlyReturnOverrides) {
			returns = input.YearlyReturnOverrides[i]
		}

		if st.depleted {
			st.btcPrice = st.btcPrice.Mul(growthFactor(returns.BTC))
			rows = append(rows, domain.YearRow{Year: year, Age: age, BTCPrice: st.btcPrice, Depleted: true})
			continue
		}

		// Income and spending for the year.
		income := decimal.Zero
		if age < s.RetirementAge {
			income = s.AnnualIncome.Mul(one.Add(s.IncomeGrowthRate).Pow(decimal.NewFromInt(int64(i))))
		}
		spending := s.AnnualSpending.Mul(one.Add(s.InflationRate).Pow(decimal.NewFromInt(int64(i))))
		for _, ev := range input.LifeEvents {
			if !ev.AppliesTo(year) {
				continue
			}
			switch ev.Kind {
			case domain.LifeEventIncome:
				income = income.Add(ev.Amount)
			case domain.LifeEventExpense:
				spending = spending.Add(ev.Amount)
			}
		}
		for _, g := range input.Goals {
			if g.Year == year {
				spending = spending.Add(g.Amount)
			}
		}

		// Debt service: planned payoffs retire their target in full before
		// scheduled service; conventional liabilities amortize; collateralized
		// loans accrue interest, take their scheduled payment, then run the
		// LTV state machine.
		debtPayments := decimal.Zero
		for _, ev := range input.LifeEvents {
			if ev.Kind == domain.LifeEventDebtPayoff && ev.AppliesTo(year) {
				debtPayments = debtPayments.Add(st.payOffDebt(ev.Target))
			}
		}
		for _, l := range st.liabilities {
			if l.PaidOff {
				continue
			}
			l.Balance = l.Balance.Mul(one.Add(l.InterestRate))
			pay := decimal.Min(l.AnnualPayment, l.Balance)
			l.Balance = l.Balance.Sub(pay)
			debtPayments = debtPayments.Add(pay)
			if l.Balance.LessThanOrEqual(centTolerance) {
				l.Balance = decimal.Zero
				l.PaidOff = true
			}
		}
		for _, l := range st.loans {
			if l.PaidOff {
				continue
			}
			l.Balance = l.Balance.Mul(one.Add(l.InterestRate))
			pay := decimal.Min(l.AnnualPayment, l.Balance)
			l.Balance = l.Balance.Sub(pay)
			debtPayments = debtPayments.Add(pay)
			if l.Balance.LessThanOrEqual(centTolerance) {
				l.Balance = decimal.Zero
				st.events = append(st.events, domain.LoanEvent{
					Year: year, Age: age, Type: domain.EventLoanPaidOff, LoanName: l.Name,
					Message: "balance retired by scheduled payments",
				})
			}
			out := processCollateralYear(l, st.pool, st.btcPrice, year, age)
			st.longGains = st.longGains.Add(out.LongTermGain)
			st.events = append(st.events, out.Events...)
		}
		st.syncTaxableBTC()

		// Dividends land in taxable cash. Qualified dividends ride the
		// long-term gains stack for tax purposes.
		divQualified := decimal.Zero
		divOrdinary := decimal.Zero
		for _, c := range domain.InvestableClasses {
			yield := st.divYield[c]
			if yield.LessThanOrEqual(decimal.Zero) {
				continue
			}
			amt := st.taxable.Get(c).Mul(yield)
			q := amt.Mul(st.divQualified[c])
			divQualified = divQualified.Add(q)
			divOrdinary = divOrdinary.Add(amt.Sub(q))
		}
		st.taxable.Cash = st.taxable.Cash.Add(divQualified).Add(divOrdinary)
		st.longGains = st.longGains.Add(divQualified)
		st.ordinaryIncome = st.ordinaryIncome.Add(divOrdinary)

		// Required minimum distribution: deferred balance over the divisor,
		// moved to taxable cash as ordinary income.
		rmd := decimal.Zero
		if dateutil.IsRMDAge(birthYear, age) && st.deferred.Total().GreaterThan(decimal.Zero) {
			if div := rmdDivisor(age); div.GreaterThan(decimal.Zero) {
				rmd = drawProportional(&st.deferred, st.deferred.Total().Div(div))
				st.taxable.Cash = st.taxable.Cash.Add(rmd)
				st.ordinaryIncome = st.ordinaryIncome.Add(rmd)
			}
		}

		// Net the year's cash flow. Surplus funds contributions then taxable
		// cash; a deficit goes to the withdrawal sequencer.
		flow := income.Sub(spending).Sub(debtPayments)
		contrib401k := decimal.Zero
		if flow.GreaterThanOrEqual(decimal.Zero) {
			if age < s.RetirementAge {
				tables := TablesForYear(year)
				contrib401k = decimal.Min(s.Contribution401k, tables.Limit401k, flow)
				flow = flow.Sub(contrib401k)
				st.deferred.Cash = st.deferred.Cash.Add(contrib401k)

				contribIRA := decimal.Min(s.ContributionIRA, tables.LimitIRA, flow)
				flow = flow.Sub(contribIRA)
				st.free.Cash = st.free.Cash.Add(contribIRA)
				st.rothBasis = st.rothBasis.Add(contribIRA)
			}
			st.taxable.Cash = st.taxable.Cash.Add(flow)
		} else {
			st.coverDeficit(flow.Neg())
		}
		// Traditional 401(k) contributions come out of wages pre-tax.
		st.ordinaryIncome = st.ordinaryIncome.Add(income.Sub(contrib401k))

		// Tax pass: compute the bill on everything realized, then source it
		// with one more sequencer pass.
		tc := NewTaxCalculator(year, s.FilingStatus, s.State)
		taxes := tc.CalculateYear(YearTaxInput{
			OrdinaryIncome: st.ordinaryIncome,
			ShortTermGains: st.shortGains,
			LongTermGains:  st.longGains,
			PenaltyBase:    st.penaltyBase,
			Age:            age,
		})
		if total := taxes.Total(); total.GreaterThan(decimal.Zero) && !st.depleted {
			st.coverDeficit(total)
		}

		// End-of-year growth. Taxable BTC follows the price; everything else
		// compounds in dollars.
		st.btcPrice = st.btcPrice.Mul(growthFactor(returns.BTC))
		if !st.depleted {
			st.syncTaxableBTC()
			for _, c := range domain.InvestableClasses {
				f := growthFactor(returns.Rate(c))
				if c != domain.AssetBTC {
					st.taxable.Set(c, st.taxable.Get(c).Mul(f))
				}
				st.deferred.Set(c, st.deferred.Get(c).Mul(f))
				st.free.Set(c, st.free.Get(c).Mul(f))
			}
			st.realEstate = st.realEstate.Mul(growthFactor(returns.RealEstate))
		}

		row := domain.YearRow{
			Year: year, Age: age,
			Taxable: st.taxable, TaxDeferred: st.deferred, TaxFree: st.free,
			RealEstate:    st.realEstate,
			LiquidBTC:     st.pool.TotalQuantity(tickerBTC),
			EncumberedBTC: st.encumberedBTC(),
			BTCPrice:      st.btcPrice,
			TotalDebt:     st.totalDebt(),
			Income:        income,
			Spending:      spending,
			DebtPayments:  debtPayments,

			WithdrawalTaxable:     st.wdTaxable,
			WithdrawalTaxDeferred: st.wdDeferred,
			WithdrawalTaxFree:     st.wdFree,
			WithdrawalLoanUnlock:  st.wdUnlock,
			WithdrawalRealEstate:  st.wdRealEstate,

			FederalTax: taxes.Federal,
			StateTax:   taxes.State,
			Penalty:    taxes.Penalty,

			RMDAmount:         rmd,
			DividendQualified: divQualified,
			DividendOrdinary:  divOrdinary,
			ShortTermGains:    st.shortGains,
			LongTermGains:     st.longGains,

			LoanEvents: st.events,
			Depleted:   st.depleted,
		}
		rows = append(rows, row)

		if st.depleted && depleteAge == nil {
			a := age
			depleteAge = &a
			e.Logger.Infof("portfolio depleted at age %d (year %d)", age, year)
		}
	}

	final := rows[len(rows)-1].TotalPortfolio()
	e.Logger.Debugf("projection complete: final portfolio %s", final.StringFixed(2))
	return &domain.ProjectionResult{
		Survives:       depleteAge == nil,
		FinalPortfolio: final,
		DepleteAge:     depleteAge,
		YearByYear:     rows,
	}, nil
}

// centTolerance treats sub-cent balances as paid off.
var centTolerance = decimal.NewFromFloat(0.01)

// buildRunState turns the immutable input snapshot into the run's mutable
// working set.
func buildRunState(input *domain.ProjectionInput) (*runState, error) {
	s := input.Settings

	treatments := make(map[string]domain.TaxTreatment, len(input.Accounts))
	for _, a := range input.Accounts {
		treatments[a.ID] = a.Treatment
	}

	st := &runState{
		pool:         NewLotPool(input.TaxLots),
		classBasis:   map[domain.AssetClass]decimal.Decimal{},
		divYield:     map[domain.AssetClass]decimal.Decimal{},
		divQualified: map[domain.AssetClass]decimal.Decimal{},
		method:       s.CostBasisMethod,
		strategy:     s.WithdrawalStrategy,
		priority:     s.WithdrawalPriority,
		blend:        s.BlendWeights,
		btcPrice:     s.BTCPrice,
	}
	if st.method == "" {
		st.method = domain.MethodFIFO
	}
	if st.strategy == "" {
		st.strategy = domain.StrategyProportional
	}

	// Dividend model weights, frozen from the initial taxable holdings.
	divValue := map[domain.AssetClass]decimal.Decimal{}
	divWeighted := map[domain.AssetClass]decimal.Decimal{}
	divQualWeighted := map[domain.AssetClass]decimal.Decimal{}

	taxableBTCQty := decimal.Zero
	for _, h := range input.Holdings {
		tr, ok := treatments[h.AccountID]
		if !ok {
			return nil, fmt.Errorf("holding %q references unknown account %q", h.Ticker, h.AccountID)
		}
		mv := h.MarketValue()
		if h.Class == domain.AssetRealEstate || tr == domain.TreatmentRealEstate {
			st.realEstate = st.realEstate.Add(mv)
			continue
		}
		switch tr {
		case domain.TreatmentTaxable:
			if h.Class == domain.AssetBTC {
				taxableBTCQty = taxableBTCQty.Add(h.Quantity)
				if st.btcPrice.IsZero() {
					st.btcPrice = h.Price
				}
			} else {
				st.taxable.Add(h.Class, mv)
				st.classBasis[h.Class] = st.classBasis[h.Class].Add(mv)
			}
			divValue[h.Class] = divValue[h.Class].Add(mv)
			divWeighted[h.Class] = divWeighted[h.Class].Add(mv.Mul(h.DividendYield))
			divQualWeighted[h.Class] = divQualWeighted[h.Class].Add(mv.Mul(h.DividendYield).Mul(h.QualifiedPct))
		case domain.TreatmentTaxDeferred:
			st.deferred.Add(h.Class, mv)
		case domain.TreatmentTaxFree:
			st.free.Add(h.Class, mv)
		}
	}
	for c, v := range divValue {
		if v.GreaterThan(decimal.Zero) {
			st.divYield[c] = divWeighted[c].Div(v)
		}
		if w := divWeighted[c]; w.GreaterThan(decimal.Zero) {
			st.divQualified[c] = divQualWeighted[c].Div(w)
		}
	}

	// Taxable BTC beyond the lot-tracked quantity enters the aggregate
	// bucket with basis equal to its current market value.
	if untracked := taxableBTCQty.Sub(st.pool.TotalQuantity(tickerBTC)); untracked.GreaterThan(dustQuantity) {
		st.pool.AddFallback(tickerBTC, untracked, untracked.Mul(st.btcPrice))
	}
	if taxableBTCQty.GreaterThan(decimal.Zero) && st.btcPrice.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("btc holdings present but no btc price configured")
	}
	st.syncTaxableBTC()

	for _, a := range input.Accounts {
		if a.Treatment == domain.TreatmentTaxFree {
			st.rothBasis = st.rothBasis.Add(a.RothContributionBasis)
		}
	}

	for _, l := range input.Liabilities {
		cp := l
		st.liabilities = append(st.liabilities, &cp)
	}

	poolQty := st.pool.TotalQuantity(tickerBTC)
	poolBasis := st.pool.TotalBasis(tickerBTC)
	for _, l := range input.CollateralizedLoans {
		cp := l
		if cp.CollateralBasis.IsZero() && cp.CollateralBTC.GreaterThan(decimal.Zero) && poolQty.GreaterThan(decimal.Zero) {
			// No explicit basis: attribute the liquid pool's average unit
			// basis to the pledged share.
			cp.CollateralBasis = poolBasis.Div(poolQty).Mul(cp.CollateralBTC)
		}
		st.loans = append(st.loans, &cp)
	}

	// A hypothetical loan opens at projection start: collateral leaves the
	// liquid pool with its proportional basis, proceeds land in taxable cash.
	if input.HypotheticalBTCLoan != nil {
		cp := *input.HypotheticalBTCLoan
		moved, basis := st.pool.TransferOut(tickerBTC, cp.CollateralBTC)
		cp.CollateralBTC = moved
		cp.CollateralBasis = basis
		st.taxable.Cash = st.taxable.Cash.Add(cp.Balance)
		st.loans = append(st.loans, &cp)
		st.syncTaxableBTC()
	}

	return st, nil
}
