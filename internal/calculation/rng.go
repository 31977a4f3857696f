package calculation

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/stackplan/wealthsim/internal/domain"
)

// DeriveSeed hashes a canonical encoding of the projection input into a
// 64-bit seed. The same input always produces the same seed, so every Monte
// Carlo run over an unchanged plan is bit-identical. Field order below is
// part of the determinism contract; append new fields, never reorder.
func DeriveSeed(in *domain.ProjectionInput) uint64 {
	h := fnv.New64a()
	var sb strings.Builder

	s := in.Settings
	fmt.Fprintf(&sb, "settings|%d|%d|%d|%d|%s|%s|%s|%s|%s|%s|%s|%s|%s|%s|%s|%s|%s\n",
		s.StartYear, s.CurrentAge, s.EndAge, s.RetirementAge,
		s.AnnualIncome, s.IncomeGrowthRate, s.AnnualSpending, s.InflationRate,
		s.Contribution401k, s.ContributionIRA,
		s.FilingStatus, s.State, s.CostBasisMethod, s.WithdrawalStrategy,
		s.BTCPrice, s.BTCShockDegreesOfFreedom, s.BTCShockSkew)
	fmt.Fprintf(&sb, "growth|%s|%s|%s|%s|%s|%s\n",
		s.GrowthRates.BTC, s.GrowthRates.Stocks, s.GrowthRates.Bonds,
		s.GrowthRates.Cash, s.GrowthRates.Other, s.GrowthRates.RealEstate)
	fmt.Fprintf(&sb, "vol|%s|%s|%s|%s|%s|%s\n",
		s.Volatility.BTC, s.Volatility.Stocks, s.Volatility.Bonds,
		s.Volatility.Cash, s.Volatility.Other, s.Volatility.RealEstate)
	for _, c := range s.WithdrawalPriority {
		fmt.Fprintf(&sb, "prio|%s\n", c)
	}
	blendKeys := make([]string, 0, len(s.BlendWeights))
	for k := range s.BlendWeights {
		blendKeys = append(blendKeys, string(k))
	}
	sort.Strings(blendKeys)
	for _, k := range blendKeys {
		fmt.Fprintf(&sb, "blend|%s|%s\n", k, s.BlendWeights[domain.AssetClass(k)])
	}

	for _, hd := range in.Holdings {
		fmt.Fprintf(&sb, "holding|%s|%s|%s|%s|%s|%s|%s\n",
			hd.Ticker, hd.AccountID, hd.Class, hd.Quantity, hd.Price, hd.DividendYield, hd.QualifiedPct)
	}
	for _, a := range in.Accounts {
		fmt.Fprintf(&sb, "account|%s|%s|%s\n", a.ID, a.Treatment, a.RothContributionBasis)
	}
	for _, l := range in.TaxLots {
		fmt.Fprintf(&sb, "lot|%s|%s|%s|%s|%s\n",
			l.ID, l.Ticker, l.Quantity, l.PricePerUnit, l.AcquiredAt.Format("2006-01-02"))
	}
	for _, l := range in.Liabilities {
		fmt.Fprintf(&sb, "liability|%s|%s|%s|%s\n", l.Name, l.Balance, l.InterestRate, l.AnnualPayment)
	}
	for _, l := range in.CollateralizedLoans {
		fmt.Fprintf(&sb, "loan|%s|%s|%s|%s|%s|%s\n",
			l.Name, l.Balance, l.CollateralBTC, l.LiquidationLTV, l.TopUpLTV, l.ReleaseLTV)
	}
	for _, g := range in.Goals {
		fmt.Fprintf(&sb, "goal|%s|%d|%s\n", g.Name, g.Year, g.Amount)
	}
	for _, e := range in.LifeEvents {
		fmt.Fprintf(&sb, "event|%s|%s|%d|%d|%s\n", e.Name, e.Kind, e.StartYear, e.RepeatYears, e.Amount)
	}
	if in.HypotheticalBTCLoan != nil {
		l := in.HypotheticalBTCLoan
		fmt.Fprintf(&sb, "hypoloan|%s|%s|%s\n", l.Name, l.Balance, l.CollateralBTC)
	}

	h.Write([]byte(sb.String()))
	return h.Sum64()
}

// shockSource is a xorshift64* stream seeded explicitly. It implements both
// Uint64 and Seed so it satisfies the random-source interface the
// distribution types consume. The package never touches the global
// math/rand source: the seed is the only entropy.
type shockSource struct {
	state uint64
}

func newShockSource(seed uint64) *shockSource {
	s := &shockSource{}
	s.Seed(seed)
	return s
}

// Seed resets the stream. A zero seed is remapped; xorshift has a zero
// fixed point.
func (s *shockSource) Seed(seed uint64) {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	s.state = seed
}

// Uint64 advances the stream.
func (s *shockSource) Uint64() uint64 {
	x := s.state
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	s.state = x
	return x * 0x2545F4914F6CDD1D
}
