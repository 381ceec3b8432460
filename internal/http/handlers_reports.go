package http

import (
	"net/http"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/query"
)

// filteredLedger loads the caller's ledger narrowed by the request's filter
// parameters. On failure the response has already been written.
func (s *Server) filteredLedger(w http.ResponseWriter, r *http.Request, userID string) ([]core.Transaction, query.Criteria, bool) {
	criteria, err := ParseCriteria(r.URL.Query())
	if err != nil {
		s.fail(w, r, userID, applog.OpList, err)
		return nil, query.Criteria{}, false
	}
	txs, err := s.ledger.List(r.Context(), userID)
	if err != nil {
		s.fail(w, r, userID, applog.OpList, err)
		return nil, query.Criteria{}, false
	}
	if !criteria.IsZero() {
		txs = query.Filter(txs, criteria)
	}
	return txs, criteria, true
}

// handleSummary returns totals, balance and current-month averages.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, userID string) {
	txs, _, ok := s.filteredLedger(w, r, userID)
	if !ok {
		return
	}
	NewResponse().JSON(analytics.Summarize(txs, s.now())).Write(w)
}

// handleCategoryBreakdown returns per-category totals, largest first. The
// type parameter restricts the breakdown to one transaction type.
func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request, userID string) {
	txs, criteria, ok := s.filteredLedger(w, r, userID)
	if !ok {
		return
	}

	var categories []core.CategoryAmount
	if criteria.Type != "" {
		categories = analytics.CategoryBreakdownByType(txs, criteria.Type)
	} else {
		categories = analytics.CategoryBreakdown(txs)
	}
	NewResponse().JSON(map[string]any{"categories": categories}).Write(w)
}

type monthResponse struct {
	Label    string     `json:"label"`
	Year     int        `json:"year"`
	Month    int        `json:"month"`
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
}

// handleMonthlyBreakdown returns income and expense totals per month,
// oldest month first.
func (s *Server) handleMonthlyBreakdown(w http.ResponseWriter, r *http.Request, userID string) {
	txs, _, ok := s.filteredLedger(w, r, userID)
	if !ok {
		return
	}

	monthly := analytics.MonthlyBreakdown(txs)
	months := make([]monthResponse, len(monthly))
	for i, m := range monthly {
		months[i] = monthResponse{
			Label:    m.Period.String(),
			Year:     m.Period.Year,
			Month:    m.Period.Month,
			Income:   m.Income,
			Expenses: m.Expenses,
		}
	}
	NewResponse().JSON(map[string]any{"months": months}).Write(w)
}

// handleCategories lists the distinct categories in use by the caller.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, userID string) {
	txs, err := s.ledger.List(r.Context(), userID)
	if err != nil {
		s.fail(w, r, userID, applog.OpList, err)
		return
	}
	NewResponse().JSON(map[string]any{"categories": query.DistinctCategories(txs)}).Write(w)
}

// handleAllowedCategories lists the fixed category set for a type. It does
// not depend on the caller's ledger.
func (s *Server) handleAllowedCategories(w http.ResponseWriter, r *http.Request) {
	typ, err := ParseTypeParam(r.URL.Query())
	if err != nil {
		s.fail(w, r, userID(r), applog.OpRead, err)
		return
	}
	NewResponse().JSON(map[string]any{
		"type":       typ,
		"categories": s.ledger.AllowedCategories(typ),
	}).Write(w)
}

// handleReport returns the snapshot last built by the worker. It is 404
// until the first ledger event for the caller has been processed.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, userID string) {
	if s.reports == nil {
		NotFoundError("reports are not available").Write(w)
		return
	}
	report, found, err := s.reports.Load(r.Context(), userID)
	if err != nil {
		s.fail(w, r, userID, applog.OpRead, err)
		return
	}
	if !found {
		NotFoundError("report has not been built yet").Write(w)
		return
	}
	NewResponse().JSON(report).Write(w)
}
