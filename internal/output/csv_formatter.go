package output

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/stackplan/wealthsim/internal/domain"
)

// CSVFormatter exports the full year-by-year trace, one row per simulated
// year.
type CSVFormatter struct{}

func (c CSVFormatter) Name() string { return "csv" }

func (c CSVFormatter) Format(res *domain.ProjectionResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{
		"Year", "Age",
		"TaxableBTC", "TaxableStocks", "TaxableBonds", "TaxableCash", "TaxableOther",
		"TaxDeferredTotal", "TaxFreeTotal", "RealEstate",
		"LiquidBTC", "EncumberedBTC", "BTCPrice", "TotalDebt",
		"Income", "Spending", "DebtPayments",
		"WithdrawalTaxable", "WithdrawalTaxDeferred", "WithdrawalTaxFree",
		"WithdrawalLoanUnlock", "WithdrawalRealEstate",
		"FederalTax", "StateTax", "Penalty",
		"RMD", "DividendQualified", "DividendOrdinary",
		"ShortTermGains", "LongTermGains",
		"NetWorth", "Depleted",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, row := range res.YearByYear {
		rec := []string{
			strconv.Itoa(row.Year), strconv.Itoa(row.Age),
			row.Taxable.BTC.StringFixed(2), row.Taxable.Stocks.StringFixed(2),
			row.Taxable.Bonds.StringFixed(2), row.Taxable.Cash.StringFixed(2),
			row.Taxable.Other.StringFixed(2),
			row.TaxDeferred.Total().StringFixed(2), row.TaxFree.Total().StringFixed(2),
			row.RealEstate.StringFixed(2),
			row.LiquidBTC.StringFixed(8), row.EncumberedBTC.StringFixed(8),
			row.BTCPrice.StringFixed(2), row.TotalDebt.StringFixed(2),
			row.Income.StringFixed(2), row.Spending.StringFixed(2), row.DebtPayments.StringFixed(2),
			row.WithdrawalTaxable.StringFixed(2), row.WithdrawalTaxDeferred.StringFixed(2),
			row.WithdrawalTaxFree.StringFixed(2),
			row.WithdrawalLoanUnlock.StringFixed(2), row.WithdrawalRealEstate.StringFixed(2),
			row.FederalTax.StringFixed(2), row.StateTax.StringFixed(2), row.Penalty.StringFixed(2),
			row.RMDAmount.StringFixed(2), row.DividendQualified.StringFixed(2),
			row.DividendOrdinary.StringFixed(2),
			row.ShortTermGains.StringFixed(2), row.LongTermGains.StringFixed(2),
			row.NetWorth().StringFixed(2), strconv.FormatBool(row.Depleted),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
