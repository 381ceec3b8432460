package http

import (
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
)

// UserHeader names the header carrying the authenticated user id, set by
// the session layer in front of the API.
const UserHeader = "X-User-ID"

// transactionResponse is the wire shape of a transaction.
type transactionResponse struct {
	ID          string               `json:"id"`
	UserID      string               `json:"userId"`
	Amount      core.Money           `json:"amount"`
	Type        core.TransactionType `json:"type"`
	Category    string               `json:"category"`
	Date        string               `json:"date"`
	Description string               `json:"description"`
	CreatedAt   time.Time            `json:"createdAt"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Amount:      t.Amount,
		Type:        t.Type,
		Category:    t.Category,
		Date:        t.Date.String(),
		Description: t.Description,
		CreatedAt:   t.CreatedAt.UTC(),
	}
}

func newTransactionList(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = newTransactionResponse(t)
	}
	return out
}

// userID returns the caller's user id, or "" when the header is missing.
func userID(r *http.Request) string {
	return sanitizeInput(r.Header.Get(UserHeader))
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
