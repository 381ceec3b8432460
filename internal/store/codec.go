package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// record is the persisted shape of a transaction.
type record struct {
	ID          string      `json:"id"`
	Amount      amountField `json:"amount"`
	Type        string      `json:"type"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
	Description string      `json:"description,omitempty"`
	UserID      string      `json:"userId"`
	CreatedAt   string      `json:"createdAt"`
}

// amountField is written as a JSON number and read from either a number or
// a numeric string, since older payloads stored the raw form input.
type amountField string

func (a amountField) MarshalJSON() ([]byte, error) {
	return []byte(a), nil
}

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = amountField(n)
	return nil
}

func encodeLedger(txs []core.Transaction) (string, error) {
	recs := make([]record, len(txs))
	for i, t := range txs {
		recs[i] = record{
			ID:          t.ID,
			Amount:      amountField(t.Amount.String()),
			Type:        t.Type.String(),
			Category:    t.Category,
			Date:        t.Date.String(),
			Description: t.Description,
			UserID:      t.UserID,
			CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("encode ledger: %w", err)
	}
	return string(b), nil
}

// decodeLedger parses a persisted payload. Any malformed record makes the
// whole payload invalid; callers treat that as corruption.
func decodeLedger(userID, payload string) ([]core.Transaction, error) {
	if strings.TrimSpace(payload) == "" {
		return []core.Transaction{}, nil
	}
	var recs []record
	if err := json.Unmarshal([]byte(payload), &recs); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}

	out := make([]core.Transaction, 0, len(recs))
	seen := make(map[string]struct{}, len(recs))
	for i, r := range recs {
		t, err := r.transaction(userID)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("record %d: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

func (r record) transaction(userID string) (core.Transaction, error) {
	owner := r.UserID
	if owner == "" {
		owner = userID
	}
	if owner != userID {
		return core.Transaction{}, fmt.Errorf("record owned by %q", owner)
	}

	cents, err := core.ParseAmount(string(r.Amount))
	if err != nil {
		return core.Transaction{}, err
	}
	typ, err := core.ParseTransactionType(r.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseStoredDate(r.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	created, err := parseStoredTimestamp(r.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		ID:          r.ID,
		UserID:      owner,
		Amount:      core.Money{Cents: cents},
		Type:        typ,
		Category:    r.Category,
		Date:        date,
		Description: r.Description,
		CreatedAt:   created,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// parseStoredDate accepts a plain date or a full timestamp, keeping the
// calendar date as written.
func parseStoredDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := core.ParseDate(s); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return core.DateOf(ts), nil
	}
	return core.Date{}, core.ErrInvalidDate
}

func parseStoredTimestamp(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.New("invalid createdAt")
	}
	return ts.UTC(), nil
}
