package core

import "slices"

var (
	incomeCategories  = []string{"Salary", "Freelance", "Investment", "Business", "Gift", "Misc"}
	expenseCategories = []string{"Food", "Transport", "Bills", "Rent", "Entertainment", "Shopping", "Healthcare", "Education", "Misc"}
)

// CategoriesFor returns the selectable categories for a transaction type,
// in display order. Unknown types yield nil.
func CategoriesFor(t TransactionType) []string {
	switch t {
	case Income:
		return slices.Clone(incomeCategories)
	case Expense:
		return slices.Clone(expenseCategories)
	default:
		return nil
	}
}

// CategoryAllowed reports whether category belongs to the set for t.
func CategoryAllowed(t TransactionType, category string) bool {
	switch t {
	case Income:
		return slices.Contains(incomeCategories, category)
	case Expense:
		return slices.Contains(expenseCategories, category)
	default:
		return false
	}
}
