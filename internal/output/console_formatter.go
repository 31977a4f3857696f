package output

import (
	"bytes"
	"fmt"

	"github.com/stackplan/wealthsim/internal/calculation"
	"github.com/stackplan/wealthsim/internal/domain"
)

// ConsoleFormatter renders a projection as a readable terminal summary: the
// verdict line, a year table sampled every five years, and the loan event
// log.
type ConsoleFormatter struct{}

func (c ConsoleFormatter) Name() string { return "console" }

func (c ConsoleFormatter) Format(res *domain.ProjectionResult) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "WEALTH PROJECTION SUMMARY")
	fmt.Fprintln(&buf, "================================")
	if res.Survives {
		fmt.Fprintf(&buf, "Outcome: portfolio survives, final value %s\n", FormatCurrency(res.FinalPortfolio))
	} else if res.DepleteAge != nil {
		fmt.Fprintf(&buf, "Outcome: portfolio DEPLETED at age %d\n", *res.DepleteAge)
	}
	fmt.Fprintln(&buf)

	fmt.Fprintf(&buf, "%-6s %-4s %14s %14s %12s %12s %11s %14s\n",
		"Year", "Age", "Taxable", "Deferred", "TaxFree", "RealEstate", "Debt", "NetWorth")
	for i, row := range res.YearByYear {
		if i%5 != 0 && i != len(res.YearByYear)-1 {
			continue
		}
		fmt.Fprintf(&buf, "%-6d %-4d %14s %14s %12s %12s %11s %14s\n",
			row.Year, row.Age,
			row.Taxable.Total().StringFixed(0),
			row.TaxDeferred.Total().StringFixed(0),
			row.TaxFree.Total().StringFixed(0),
			row.RealEstate.StringFixed(0),
			row.TotalDebt.StringFixed(0),
			row.NetWorth().StringFixed(0))
	}

	events := 0
	for _, row := range res.YearByYear {
		events += len(row.LoanEvents)
	}
	if events > 0 {
		fmt.Fprintln(&buf)
		fmt.Fprintln(&buf, "LOAN EVENTS")
		for _, row := range res.YearByYear {
			for _, ev := range row.LoanEvents {
				fmt.Fprintf(&buf, "  %d (age %d) [%s] %s: %s\n", ev.Year, ev.Age, ev.Type, ev.LoanName, ev.Message)
			}
		}
	}
	return buf.Bytes(), nil
}

// FormatMonteCarlo renders a stochastic batch summary.
func FormatMonteCarlo(res *calculation.MonteCarloResult) []byte {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "MONTE CARLO SUMMARY")
	fmt.Fprintln(&buf, "================================")
	fmt.Fprintf(&buf, "Simulations:  %d (seed %d)\n", res.Simulations, res.Seed)
	fmt.Fprintf(&buf, "Success rate: %s (%d/%d)\n", FormatPercentage(res.SuccessRate), res.Successes, res.Simulations)
	fmt.Fprintf(&buf, "Median final: %s\n", FormatCurrency(res.MedianFinal))
	fmt.Fprintln(&buf)
	fmt.Fprintln(&buf, "Final portfolio percentiles:")
	fmt.Fprintf(&buf, "  P10: %s\n", FormatCurrency(res.Percentiles.P10))
	fmt.Fprintf(&buf, "  P25: %s\n", FormatCurrency(res.Percentiles.P25))
	fmt.Fprintf(&buf, "  P50: %s\n", FormatCurrency(res.Percentiles.P50))
	fmt.Fprintf(&buf, "  P75: %s\n", FormatCurrency(res.Percentiles.P75))
	fmt.Fprintf(&buf, "  P90: %s\n", FormatCurrency(res.Percentiles.P90))
	return buf.Bytes()
}

// FormatComparison renders a baseline/scenario pair side by side.
func FormatComparison(cmp *calculation.ScenarioComparison) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "SCENARIO COMPARISON: %s\n", cmp.ScenarioName)
	fmt.Fprintln(&buf, "================================")
	fmt.Fprintf(&buf, "%-14s %12s %12s\n", "", "Baseline", "Scenario")
	fmt.Fprintf(&buf, "%-14s %12s %12s\n", "Success rate",
		FormatPercentage(cmp.Baseline.SuccessRate), FormatPercentage(cmp.Scenario.SuccessRate))
	fmt.Fprintf(&buf, "%-14s %12s %12s\n", "Median final",
		cmp.Baseline.MedianFinal.StringFixed(0), cmp.Scenario.MedianFinal.StringFixed(0))
	fmt.Fprintf(&buf, "%-14s %12s %12s\n", "P10 final",
		cmp.Baseline.Percentiles.P10.StringFixed(0), cmp.Scenario.Percentiles.P10.StringFixed(0))
	return buf.Bytes()
}

// FormatSafeSpending renders the safe-withdrawal search result.
func FormatSafeSpending(res *calculation.SafeSpendingResult) []byte {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "SAFE SPENDING SEARCH")
	fmt.Fprintln(&buf, "================================")
	fmt.Fprintf(&buf, "Safe annual spending: %s\n", FormatCurrency(res.SafeSpending))
	fmt.Fprintf(&buf, "Success rate:         %s\n", FormatPercentage(res.SuccessRate))
	fmt.Fprintf(&buf, "Iterations:           %d (seed %d)\n", res.Iterations, res.Seed)
	return buf.Bytes()
}
