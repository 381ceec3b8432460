// Package analytics computes read-only aggregate views over a ledger.
//
// Every function is pure: it reads the slice it is given, never mutates
// it, and never touches storage, so it is safe to call concurrently.
package analytics

import (
	"cmp"
	"slices"
	"time"

	"fintrack/internal/core"
)

// Summarize totals income and expenses over txs and averages each type over
// the transactions dated in the calendar month of now. An empty month
// averages to zero.
func Summarize(txs []core.Transaction, now time.Time) core.Summary {
	current := core.PeriodOf(core.DateOf(now))

	var (
		s                          core.Summary
		monthIncome, monthExpenses core.Money
		incomeCount, expensesCount int
	)
	for _, t := range txs {
		inMonth := core.PeriodOf(t.Date) == current
		switch t.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
			if inMonth {
				monthIncome = monthIncome.Add(t.Amount)
				incomeCount++
			}
		case core.Expense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
			if inMonth {
				monthExpenses = monthExpenses.Add(t.Amount)
				expensesCount++
			}
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	s.AvgIncome = monthIncome.Mean(incomeCount)
	s.AvgExpenses = monthExpenses.Mean(expensesCount)
	return s
}

// CategoryTotals sums amounts per category label across both types.
func CategoryTotals(txs []core.Transaction) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, t := range txs {
		out[t.Category] = out[t.Category].Add(t.Amount)
	}
	return out
}

// CategoryBreakdown is CategoryTotals as a list, largest amount first and
// then by name.
func CategoryBreakdown(txs []core.Transaction) []core.CategoryAmount {
	return sortedAmounts(CategoryTotals(txs))
}

// CategoryBreakdownByType restricts CategoryBreakdown to one transaction type.
func CategoryBreakdownByType(txs []core.Transaction, typ core.TransactionType) []core.CategoryAmount {
	totals := make(map[string]core.Money)
	for _, t := range txs {
		if t.Type == typ {
			totals[t.Category] = totals[t.Category].Add(t.Amount)
		}
	}
	return sortedAmounts(totals)
}

func sortedAmounts(totals map[string]core.Money) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// MonthlyBreakdown groups txs by calendar month, oldest first.
func MonthlyBreakdown(txs []core.Transaction) []core.MonthlyTotal {
	byPeriod := make(map[core.Period]*core.MonthlyTotal)
	for _, t := range txs {
		p := core.PeriodOf(t.Date)
		m, ok := byPeriod[p]
		if !ok {
			m = &core.MonthlyTotal{Period: p}
			byPeriod[p] = m
		}
		switch t.Type {
		case core.Income:
			m.Income = m.Income.Add(t.Amount)
		case core.Expense:
			m.Expenses = m.Expenses.Add(t.Amount)
		}
	}

	out := make([]core.MonthlyTotal, 0, len(byPeriod))
	for _, m := range byPeriod {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b core.MonthlyTotal) int {
		switch {
		case a.Period.Before(b.Period):
			return -1
		case b.Period.Before(a.Period):
			return 1
		default:
			return 0
		}
	})
	return out
}

// TotalByType sums the amounts of one transaction type.
func TotalByType(txs []core.Transaction, typ core.TransactionType) core.Money {
	var total core.Money
	for _, t := range txs {
		if t.Type == typ {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// Recent returns up to n transactions, newest date first. Same-day entries
// are ordered by creation time, newest first, then by id.
func Recent(txs []core.Transaction, n int) []core.Transaction {
	if n <= 0 {
		return []core.Transaction{}
	}
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	slices.SortFunc(out, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
