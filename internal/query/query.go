// Package query filters and orders transaction sets for list and search
// views. Nothing here mutates its input.
package query

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"fintrack/internal/core"
)

type SortField string

const (
	SortByDate        SortField = "date"
	SortByAmount      SortField = "amount"
	SortByCategory    SortField = "category"
	SortByType        SortField = "type"
	SortByDescription SortField = "description"
	SortByCreatedAt   SortField = "createdAt"
	SortByID          SortField = "id"
)

type Direction int

const (
	Ascending Direction = iota
	Descending
)

var (
	ErrUnknownSortField = errors.New("unknown sort field")
	ErrUnknownDirection = errors.New("unknown sort direction")
)

// Criteria narrows a transaction set. Zero-valued fields are ignored and the
// rest are combined with AND.
type Criteria struct {
	Type      core.TransactionType
	Category  string
	Search    string
	StartDate core.Date
	EndDate   core.Date
}

// IsZero reports whether c selects every transaction.
func (c Criteria) IsZero() bool {
	return c.Type == "" && c.Category == "" && strings.TrimSpace(c.Search) == "" &&
		c.StartDate.IsZero() && c.EndDate.IsZero()
}

// Filter returns the transactions matching every supplied criterion, in
// their original order.
func Filter(txs []core.Transaction, c Criteria) []core.Transaction {
	needle := strings.ToLower(strings.TrimSpace(c.Search))
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if c.Type != "" && t.Type != c.Type {
			continue
		}
		if c.Category != "" && t.Category != c.Category {
			continue
		}
		if !c.StartDate.IsZero() && t.Date.Compare(c.StartDate) < 0 {
			continue
		}
		if !c.EndDate.IsZero() && t.Date.Compare(c.EndDate) > 0 {
			continue
		}
		if needle != "" && !matches(t, needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t core.Transaction, needle string) bool {
	return strings.Contains(strings.ToLower(t.Description), needle) ||
		strings.Contains(strings.ToLower(t.Category), needle) ||
		strings.Contains(t.Amount.String(), needle)
}

// Sort returns a sorted copy of txs. Equal keys fall back to id and then
// creation time, and Descending is the exact reverse of Ascending.
func Sort(txs []core.Transaction, field SortField, dir Direction) []core.Transaction {
	key := comparator(field)
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		c := key(a, b)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if c == 0 {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if dir == Descending {
			return -c
		}
		return c
	})
	return out
}

func comparator(field SortField) func(a, b core.Transaction) int {
	switch field {
	case SortByAmount:
		return func(a, b core.Transaction) int { return cmp.Compare(a.Amount.Cents, b.Amount.Cents) }
	case SortByCategory:
		return func(a, b core.Transaction) int {
			return cmp.Compare(strings.ToLower(a.Category), strings.ToLower(b.Category))
		}
	case SortByType:
		return func(a, b core.Transaction) int { return cmp.Compare(a.Type, b.Type) }
	case SortByDescription:
		return func(a, b core.Transaction) int { return cmp.Compare(a.Description, b.Description) }
	case SortByCreatedAt:
		return func(a, b core.Transaction) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortByID:
		return func(a, b core.Transaction) int { return cmp.Compare(a.ID, b.ID) }
	default:
		return func(a, b core.Transaction) int { return a.Date.Compare(b.Date) }
	}
}

// ParseSortField maps a request parameter to a SortField. An empty string
// selects SortByDate.
func ParseSortField(s string) (SortField, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortByDate, nil
	}
	for _, f := range []SortField{SortByDate, SortByAmount, SortByCategory, SortByType, SortByDescription, SortByCreatedAt, SortByID} {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortField, s)
}

// ParseDirection accepts asc/ascending and desc/descending. An empty string
// selects Descending, the order lists are shown in by default.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// DistinctCategories lists each category label once, sorted.
func DistinctCategories(txs []core.Transaction) []string {
	seen := make(map[string]struct{}, len(txs))
	out := make([]string, 0)
	for _, t := range txs {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	slices.Sort(out)
	return out
}
