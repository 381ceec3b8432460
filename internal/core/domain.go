package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the wire and input format of a calendar date.
const DateLayout = "2006-01-02"

// MaxDescriptionLength bounds the free-text description of a transaction.
const MaxDescriptionLength = 200

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record owned by one user.
	Transaction struct {
		ID          string
		UserID      string
		Amount      Money
		Type        TransactionType
		Category    string
		Date        Date
		Description string
		CreatedAt   time.Time
	}

	// Draft carries the mutable fields of a transaction as supplied by a
	// caller, before validation and id assignment.
	Draft struct {
		Amount      string
		Type        string
		Category    string
		Date        string
		Description string
	}

	// Fields is a validated Draft.
	Fields struct {
		Amount      Money
		Type        TransactionType
		Category    string
		Date        Date
		Description string
	}
)

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date as observed in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Out-of-range days such as
// 2024-02-30 are rejected rather than normalized.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Compare orders two dates chronologically, ignoring any time of day.
func (d Date) Compare(o Date) int {
	a, b := DateOf(d.Time), DateOf(o.Time)
	return a.Time.Compare(b.Time)
}

// Validate checks a draft and returns its typed fields. The first failing
// field is reported; nothing is partially applied.
func (dr Draft) Validate() (Fields, error) {
	cents, err := ParseAmount(dr.Amount)
	if err != nil {
		return Fields{}, NewValidationError("amount", err)
	}
	typ, err := ParseTransactionType(dr.Type)
	if err != nil {
		return Fields{}, NewValidationError("type", err)
	}
	category := strings.TrimSpace(dr.Category)
	if category == "" {
		return Fields{}, NewValidationError("category", ErrEmptyCategory)
	}
	date, err := ParseDate(dr.Date)
	if err != nil {
		return Fields{}, NewValidationError("date", err)
	}
	desc := strings.TrimSpace(dr.Description)
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return Fields{}, NewValidationError("description", ErrDescriptionTooLong)
	}
	return Fields{
		Amount:      Money{Cents: cents},
		Type:        typ,
		Category:    category,
		Date:        date,
		Description: desc,
	}, nil
}

// Validate checks a stored transaction against the record invariants.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return NewValidationError("id", ErrEmptyID)
	}
	if strings.TrimSpace(t.UserID) == "" {
		return NewValidationError("userId", ErrEmptyUser)
	}
	if err := t.Amount.Validate(); err != nil {
		return NewValidationError("amount", err)
	}
	if !t.Type.Valid() {
		return NewValidationError("type", ErrInvalidType)
	}
	if strings.TrimSpace(t.Category) == "" {
		return NewValidationError("category", ErrEmptyCategory)
	}
	if err := t.Date.Validate(); err != nil {
		return NewValidationError("date", err)
	}
	return nil
}

// Apply replaces the mutable fields of t, leaving ID, UserID and CreatedAt
// untouched.
func (t Transaction) Apply(f Fields) Transaction {
	t.Amount = f.Amount
	t.Type = f.Type
	t.Category = f.Category
	t.Date = f.Date
	t.Description = f.Description
	return t
}
