package core

import "fmt"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// Period is a calendar month of a given year.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
}

// PeriodOf returns the month containing d.
func PeriodOf(d Date) Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

// Before orders periods chronologically.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// String formats the period as "M/YYYY", the label used by the dashboard chart.
func (p Period) String() string {
	return fmt.Sprintf("%d/%d", p.Month, p.Year)
}

// MonthlyTotal holds income and expense totals for one period.
type MonthlyTotal struct {
	Period   Period `json:"period"`
	Income   Money  `json:"income"`
	Expenses Money  `json:"expenses"`
}

// Summary is the dashboard headline: lifetime totals plus averages over the
// current month.
type Summary struct {
	TotalIncome   Money `json:"totalIncome"`
	TotalExpenses Money `json:"totalExpenses"`
	Balance       Money `json:"balance"`
	AvgIncome     Money `json:"avgIncome"`
	AvgExpenses   Money `json:"avgExpenses"`
}
