package domain

import (
	"github.com/shopspring/decimal"
)

// LifeEventKind distinguishes cash-flow direction for a life event.
type LifeEventKind string

const (
	LifeEventIncome     LifeEventKind = "income"
	LifeEventExpense    LifeEventKind = "expense"
	LifeEventDebtPayoff LifeEventKind = "debt_payoff"
)

// LifeEvent is a one-time or recurring cash flow keyed by calendar year.
// RepeatYears of zero means one-time; N means the event recurs for N
// additional years after StartYear.
//
// A debt_payoff event retires the liability or collateralized loan named by
// Target in full when it fires; Amount is ignored for that kind.
type LifeEvent struct {
	Name        string          `yaml:"name" json:"name"`
	Kind        LifeEventKind   `yaml:"kind" json:"kind"`
	StartYear   int             `yaml:"start_year" json:"start_year"`
	RepeatYears int             `yaml:"repeat_years" json:"repeat_years"`
	Amount      decimal.Decimal `yaml:"amount" json:"amount"`
	Target      string          `yaml:"target,omitempty" json:"target,omitempty"`
}

// AppliesTo reports whether the event fires in the given calendar year.
func (e LifeEvent) AppliesTo(year int) bool {
	return year >= e.StartYear && year <= e.StartYear+e.RepeatYears
}

// Goal is a one-time planned expense (college, home purchase) keyed by year.
type Goal struct {
	Name   string          `yaml:"name" json:"name"`
	Year   int             `yaml:"year" json:"year"`
	Amount decimal.Decimal `yaml:"amount" json:"amount"`
}
