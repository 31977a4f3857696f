package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackplan/wealthsim/internal/domain"
)

func sampleResult() *domain.ProjectionResult {
	rows := make([]domain.YearRow, 0, 12)
	for i := 0; i < 12; i++ {
		rows = append(rows, domain.YearRow{
			Year: 2026 + i,
			Age:  40 + i,
			Taxable: domain.Buckets{
				BTC:  decimal.NewFromInt(100000),
				Cash: decimal.NewFromInt(20000),
			},
			BTCPrice: decimal.NewFromInt(100000),
		})
	}
	rows[3].LoanEvents = []domain.LoanEvent{{
		Year: 2029, Age: 43, Type: domain.EventCollateralTopUp,
		LoanName: "btc-loan", BTCAmount: decimal.NewFromFloat(0.5),
		Message: "topped up 0.50000000 BTC toward target LTV 0.50",
	}}
	return &domain.ProjectionResult{
		Survives:       true,
		FinalPortfolio: decimal.NewFromInt(120000),
		YearByYear:     rows,
	}
}

func TestGetFormatterByName(t *testing.T) {
	assert.NotNil(t, GetFormatterByName("console"))
	assert.NotNil(t, GetFormatterByName("JSON"))
	assert.NotNil(t, GetFormatterByName("table"), "alias resolves")
	assert.Nil(t, GetFormatterByName("xml"))
}

func TestConsoleFormatter(t *testing.T) {
	data, err := ConsoleFormatter{}.Format(sampleResult())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "WEALTH PROJECTION SUMMARY")
	assert.Contains(t, out, "portfolio survives")
	assert.Contains(t, out, "LOAN EVENTS")
	assert.Contains(t, out, "btc-loan")
}

func TestConsoleFormatterDepleted(t *testing.T) {
	res := sampleResult()
	res.Survives = false
	age := 47
	res.DepleteAge = &age

	data, err := ConsoleFormatter{}.Format(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEPLETED at age 47")
}

func TestJSONFormatterRoundTrips(t *testing.T) {
	data, err := JSONFormatter{}.Format(sampleResult())
	require.NoError(t, err)

	var decoded domain.ProjectionResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Survives)
	assert.Len(t, decoded.YearByYear, 12)
	assert.True(t, decoded.FinalPortfolio.Equal(decimal.NewFromInt(120000)))
}

func TestCSVFormatter(t *testing.T) {
	data, err := CSVFormatter{}.Format(sampleResult())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 13, "header plus one row per year")
	assert.True(t, strings.HasPrefix(lines[0], "Year,Age,"))
	assert.True(t, strings.HasPrefix(lines[1], "2026,40,"))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "$1234.50", FormatCurrency(decimal.NewFromFloat(1234.5)))
	assert.Equal(t, "92.5%", FormatPercentage(decimal.NewFromFloat(0.925)))
	assert.Equal(t, "0.50000000 BTC", FormatBTC(decimal.NewFromFloat(0.5)))
}
