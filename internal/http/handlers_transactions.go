package http

import (
	"net/http"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/query"
)

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 100
)

type transactionListResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Count        int                   `json:"count"`
	IncomeTotal  core.Money            `json:"incomeTotal"`
	ExpenseTotal core.Money            `json:"expenseTotal"`
	Sort         string                `json:"sort"`
	Order        string                `json:"order"`
}

// handleListTransactions returns the filtered and sorted ledger together
// with per-type totals of the filtered set.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	criteria, err := ParseCriteria(q)
	if err != nil {
		s.fail(w, r, userID, applog.OpList, err)
		return
	}
	field, dir, err := ParseSort(q)
	if err != nil {
		s.fail(w, r, userID, applog.OpList, err)
		return
	}

	txs, err := s.ledger.List(r.Context(), userID)
	if err != nil {
		s.fail(w, r, userID, applog.OpList, err)
		return
	}

	txs = query.Sort(query.Filter(txs, criteria), field, dir)
	NewResponse().JSON(transactionListResponse{
		Transactions: newTransactionList(txs),
		Count:        len(txs),
		IncomeTotal:  analytics.TotalByType(txs, core.Income),
		ExpenseTotal: analytics.TotalByType(txs, core.Expense),
		Sort:         string(field),
		Order:        dir.String(),
	}).Write(w)
}

// handleRecentTransactions returns the newest transactions, five by default.
func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	limit, err := ParseLimit(r.URL.Query(), defaultRecentLimit, maxRecentLimit)
	if err != nil {
		s.fail(w, r, userID, applog.OpList, err)
		return
	}

	txs, err := s.ledger.List(r.Context(), userID)
	if err != nil {
		s.fail(w, r, userID, applog.OpList, err)
		return
	}

	recent := analytics.Recent(txs, limit)
	NewResponse().JSON(map[string]any{
		"transactions": newTransactionList(recent),
		"count":        len(recent),
	}).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	tx, err := s.ledger.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, userID, applog.OpRead, err)
		return
	}
	NewResponse().JSON(newTransactionResponse(tx)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	draft, err := ParseDraft(w, r)
	if err != nil {
		s.fail(w, r, userID, applog.OpCreate, err)
		return
	}

	tx, err := s.ledger.Create(r.Context(), userID, draft)
	if err != nil {
		s.fail(w, r, userID, applog.OpCreate, err)
		return
	}

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		JSON(newTransactionResponse(tx)).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	draft, err := ParseDraft(w, r)
	if err != nil {
		s.fail(w, r, userID, applog.OpUpdate, err)
		return
	}

	tx, err := s.ledger.Update(r.Context(), userID, r.PathValue("id"), draft)
	if err != nil {
		s.fail(w, r, userID, applog.OpUpdate, err)
		return
	}
	NewResponse().JSON(newTransactionResponse(tx)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.ledger.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		s.fail(w, r, userID, applog.OpDelete, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// handleResetLedger discards every transaction of the caller. It is the
// only mutation accepted while the stored ledger is corrupt.
func (s *Server) handleResetLedger(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.ledger.Reset(r.Context(), userID); err != nil {
		s.fail(w, r, userID, applog.OpReset, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
