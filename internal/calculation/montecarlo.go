package calculation

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/stackplan/wealthsim/internal/domain"
)

// shockClasses fixes the row/column order of the correlation matrix and the
// per-year shock vector.
var shockClasses = []domain.AssetClass{
	domain.AssetBTC, domain.AssetStocks, domain.AssetBonds,
	domain.AssetCash, domain.AssetOther, domain.AssetRealEstate,
}

// assetCorrelation is the cross-asset correlation matrix in shockClasses
// order. Positive definite; factorized once per run.
var assetCorrelation = []float64{
	1.00, 0.25, 0.05, 0.00, 0.20, 0.10,
	0.25, 1.00, 0.15, 0.00, 0.60, 0.50,
	0.05, 0.15, 1.00, 0.10, 0.10, 0.20,
	0.00, 0.00, 0.10, 1.00, 0.00, 0.00,
	0.20, 0.60, 0.10, 0.00, 1.00, 0.40,
	0.10, 0.50, 0.20, 0.00, 0.40, 1.00,
}

// shockClamps bounds each class's annual return draw. BTC keeps a fat right
// tail; everything else stays inside historically plausible annual ranges.
var shockClamps = map[domain.AssetClass][2]float64{
	domain.AssetBTC:        {-0.75, 2.50},
	domain.AssetStocks:     {-0.50, 0.60},
	domain.AssetBonds:      {-0.20, 0.30},
	domain.AssetCash:       {-0.05, 0.15},
	domain.AssetOther:      {-0.50, 0.60},
	domain.AssetRealEstate: {-0.35, 0.40},
}

// shockGenerator draws correlated per-year return vectors. BTC shocks come
// from a standardized skewed Student-t; other classes are normal. All
// randomness flows from one explicit source, so path p of seed s is always
// the same sequence.
type shockGenerator struct {
	normal distuv.Normal
	tdist  distuv.StudentsT
	tScale float64
	skew   float64
	lower  *mat.TriDense
	mus    []float64
	sigmas []float64
}

func newShockGenerator(s domain.Settings, seed uint64) (*shockGenerator, error) {
	src := newShockSource(seed)

	nu, _ := s.BTCShockDegreesOfFreedom.Float64()
	if nu <= 2 {
		nu = 4 // fat tails, finite variance
	}
	skew, _ := s.BTCShockSkew.Float64()

	sym := mat.NewSymDense(len(shockClasses), assetCorrelation)
	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		return nil, fmt.Errorf("asset correlation matrix is not positive definite")
	}
	var lower mat.TriDense
	chol.LTo(&lower)

	g := &shockGenerator{
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		tdist:  distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nu, Src: src},
		tScale: math.Sqrt(nu / (nu - 2)),
		skew:   skew,
		lower:  &lower,
	}
	for _, c := range shockClasses {
		mu, _ := s.GrowthRates.Rate(c).Float64()
		sigma, _ := s.Volatility.Rate(c).Float64()
		g.mus = append(g.mus, mu)
		g.sigmas = append(g.sigmas, sigma)
	}
	return g, nil
}

// drawYear produces one correlated return vector.
func (g *shockGenerator) drawYear() domain.YearlyReturns {
	n := len(shockClasses)
	u := make([]float64, n)
	for i := range u {
		if shockClasses[i] == domain.AssetBTC {
			z := g.tdist.Rand() / g.tScale
			if z > 0 {
				z *= 1 + g.skew
			}
			u[i] = z
		} else {
			u[i] = g.normal.Rand()
		}
	}

	var out domain.YearlyReturns
	for i, c := range shockClasses {
		corr := 0.0
		for j := 0; j <= i; j++ {
			corr += g.lower.At(i, j) * u[j]
		}
		r := g.mus[i] + g.sigmas[i]*corr
		clamp := shockClamps[c]
		if r < clamp[0] {
			r = clamp[0]
		}
		if r > clamp[1] {
			r = clamp[1]
		}
		setRate(&out, c, decimal.NewFromFloat(r))
	}
	return out
}

func setRate(g *domain.GrowthRates, c domain.AssetClass, v decimal.Decimal) {
	switch c {
	case domain.AssetBTC:
		g.BTC = v
	case domain.AssetStocks:
		g.Stocks = v
	case domain.AssetBonds:
		g.Bonds = v
	case domain.AssetCash:
		g.Cash = v
	case domain.AssetOther:
		g.Other = v
	case domain.AssetRealEstate:
		g.RealEstate = v
	}
}

// paths pre-draws every simulation's return sequence. Drawing is strictly
// sequential so the worker pool that consumes the paths cannot perturb the
// seed-to-path mapping.
func (g *shockGenerator) paths(simulations, years int) [][]domain.YearlyReturns {
	all := make([][]domain.YearlyReturns, simulations)
	for p := range all {
		path := make([]domain.YearlyReturns, years)
		for y := range path {
			path[y] = g.drawYear()
		}
		all[p] = path
	}
	return all
}

// PercentileRanges summarizes the distribution of final portfolio values.
type PercentileRanges struct {
	P10 decimal.Decimal `json:"p10"`
	P25 decimal.Decimal `json:"p25"`
	P50 decimal.Decimal `json:"p50"`
	P75 decimal.Decimal `json:"p75"`
	P90 decimal.Decimal `json:"p90"`
}

// MonteCarloResult aggregates one batch of stochastic projections.
type MonteCarloResult struct {
	Simulations int              `json:"simulations"`
	Successes   int              `json:"successes"`
	SuccessRate decimal.Decimal  `json:"success_rate"`
	MedianFinal decimal.Decimal  `json:"median_final"`
	Percentiles PercentileRanges `json:"percentiles"`
	Seed        uint64           `json:"seed"`
}

// MonteCarloConfig controls a stochastic batch. Zero values pick defaults:
// 1000 simulations, GOMAXPROCS workers, seed derived from the input.
type MonteCarloConfig struct {
	Simulations int
	Workers     int
	Seed        uint64
}

func (c MonteCarloConfig) withDefaults(input *domain.ProjectionInput) MonteCarloConfig {
	if c.Simulations <= 0 {
		c.Simulations = 1000
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Seed == 0 {
		c.Seed = DeriveSeed(input)
	}
	return c
}

// RunMonteCarlo runs cfg.Simulations projections over correlated random
// return paths and reports the success rate and final-value distribution.
// The same input and seed always produce bit-identical results regardless of
// worker count.
func (e *ProjectionEngine) RunMonteCarlo(ctx context.Context, input *domain.ProjectionInput, cfg MonteCarloConfig) (*MonteCarloResult, error) {
	cfg = cfg.withDefaults(input)
	years := input.Settings.ProjectionYears()
	if years <= 0 {
		return nil, fmt.Errorf("projection window is empty")
	}

	gen, err := newShockGenerator(input.Settings, cfg.Seed)
	if err != nil {
		return nil, err
	}
	paths := gen.paths(cfg.Simulations, years)
	e.Logger.Debugf("monte carlo: %d simulations, %d workers, seed %d", cfg.Simulations, cfg.Workers, cfg.Seed)

	finals := make([]decimal.Decimal, cfg.Simulations)
	survived := make([]bool, cfg.Simulations)
	errs := make([]error, cfg.Simulations)

	sem := make(chan struct{}, cfg.Workers)
	var wg sync.WaitGroup
	for i := range paths {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			run := *input
			run.YearlyReturnOverrides = paths[i]
			res, err := e.RunUnifiedProjection(&run)
			if err != nil {
				errs[i] = err
				return
			}
			finals[i] = res.FinalPortfolio
			survived[i] = res.Survives
		}(i)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	successes := 0
	for _, ok := range survived {
		if ok {
			successes++
		}
	}
	sorted := make([]decimal.Decimal, len(finals))
	copy(sorted, finals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	return &MonteCarloResult{
		Simulations: cfg.Simulations,
		Successes:   successes,
		SuccessRate: decimal.NewFromInt(int64(successes)).Div(decimal.NewFromInt(int64(cfg.Simulations))),
		MedianFinal: percentileOf(sorted, 50),
		Percentiles: PercentileRanges{
			P10: percentileOf(sorted, 10),
			P25: percentileOf(sorted, 25),
			P50: percentileOf(sorted, 50),
			P75: percentileOf(sorted, 75),
			P90: percentileOf(sorted, 90),
		},
		Seed: cfg.Seed,
	}, nil
}

// percentileOf reads the pth percentile from an ascending slice.
func percentileOf(sorted []decimal.Decimal, p int) decimal.Decimal {
	if len(sorted) == 0 {
		return decimal.Zero
	}
	idx := (p * (len(sorted) - 1)) / 100
	return sorted[idx]
}

// ScenarioComparison holds baseline and what-if batches run over identical
// shock paths, so every difference is attributable to the scenario.
type ScenarioComparison struct {
	ScenarioName string            `json:"scenario_name"`
	Baseline     *MonteCarloResult `json:"baseline"`
	Scenario     *MonteCarloResult `json:"scenario"`
}

// CompareScenario runs the baseline input and the scenario-modified input
// under the same seed.
func (e *ProjectionEngine) CompareScenario(ctx context.Context, input *domain.ProjectionInput, sc *domain.Scenario, cfg MonteCarloConfig) (*ScenarioComparison, error) {
	cfg = cfg.withDefaults(input)

	base, err := e.RunMonteCarlo(ctx, input, cfg)
	if err != nil {
		return nil, err
	}
	modified := input.ApplyScenario(sc)
	alt, err := e.RunMonteCarlo(ctx, &modified, cfg)
	if err != nil {
		return nil, err
	}
	name := ""
	if sc != nil {
		name = sc.Name
	}
	return &ScenarioComparison{ScenarioName: name, Baseline: base, Scenario: alt}, nil
}

// Safe-spending search parameters: target at least 90% simulation success,
// converge within $5,000, never more than 15 bisection steps.
var (
	safeSpendTarget    = decimal.NewFromFloat(0.90)
	safeSpendTolerance = decimal.NewFromInt(5000)
)

const safeSpendMaxIterations = 15

// SafeSpendingResult reports the highest sustainable annual spending found.
type SafeSpendingResult struct {
	SafeSpending decimal.Decimal `json:"safe_spending"`
	SuccessRate  decimal.Decimal `json:"success_rate"`
	Iterations   int             `json:"iterations"`
	Seed         uint64          `json:"seed"`
}

// CalculateSafeSpending binary-searches the annual spending level whose
// Monte Carlo success rate stays at or above 90%. All evaluations share one
// seed so the search is deterministic.
func (e *ProjectionEngine) CalculateSafeSpending(ctx context.Context, input *domain.ProjectionInput, cfg MonteCarloConfig) (*SafeSpendingResult, error) {
	cfg = cfg.withDefaults(input)

	initial := decimal.Zero
	for _, h := range input.Holdings {
		initial = initial.Add(h.MarketValue())
	}

	evaluate := func(spending decimal.Decimal) (decimal.Decimal, error) {
		run := *input
		run.Settings.AnnualSpending = spending
		res, err := e.RunMonteCarlo(ctx, &run, cfg)
		if err != nil {
			return decimal.Zero, err
		}
		return res.SuccessRate, nil
	}

	lo := decimal.Zero
	hi := decimal.Max(input.Settings.AnnualSpending.Mul(decimal.NewFromInt(2)), initial.Mul(decimal.NewFromFloat(0.10)))
	if hi.LessThanOrEqual(decimal.Zero) {
		hi = decimal.NewFromInt(100000)
	}

	// Push the upper bound out until it actually fails the target.
	for i := 0; i < 4; i++ {
		rate, err := evaluate(hi)
		if err != nil {
			return nil, err
		}
		if rate.LessThan(safeSpendTarget) {
			break
		}
		lo = hi
		hi = hi.Mul(decimal.NewFromInt(2))
	}

	best := lo
	bestRate := decimal.Zero
	iterations := 0
	for i := 0; i < safeSpendMaxIterations; i++ {
		if hi.Sub(lo).LessThanOrEqual(safeSpendTolerance) {
			break
		}
		iterations++
		mid := lo.Add(hi).Div(decimal.NewFromInt(2))
		rate, err := evaluate(mid)
		if err != nil {
			return nil, err
		}
		if rate.GreaterThanOrEqual(safeSpendTarget) {
			lo = mid
			best = mid
			bestRate = rate
		} else {
			hi = mid
		}
	}

	if bestRate.IsZero() {
		rate, err := evaluate(best)
		if err != nil {
			return nil, err
		}
		bestRate = rate
	}
	e.Logger.Infof("safe spending search: %s/yr at %s success after %d iterations",
		best.StringFixed(0), bestRate.StringFixed(3), iterations)
	return &SafeSpendingResult{
		SafeSpending: best,
		SuccessRate:  bestRate,
		Iterations:   iterations,
		Seed:         cfg.Seed,
	}, nil
}
