package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

const reportKeyPrefix = "reports:"

// ReportKey returns the KV key holding a user's report snapshot.
func ReportKey(userID string) string {
	return reportKeyPrefix + userID
}

// Report is the precomputed dashboard view for one user.
type Report struct {
	UserID       string                `json:"userId"`
	GeneratedAt  time.Time             `json:"generatedAt"`
	Transactions int                   `json:"transactions"`
	Summary      core.Summary          `json:"summary"`
	Categories   []core.CategoryAmount `json:"categories"`
	Monthly      []core.MonthlyTotal   `json:"monthly"`
}

// LedgerReader loads a user's ledger.
type LedgerReader interface {
	Load(ctx context.Context, userID string) ([]core.Transaction, error)
}

// ReportWorker rebuilds report snapshots when ledger events arrive and
// optionally mirrors the ledger to a spreadsheet.
type ReportWorker struct {
	ledgers  LedgerReader
	kv       storage.KV
	exporter sheets.LedgerExporter
	now      func() time.Time
}

// NewReportWorker creates a worker. exporter may be nil.
func NewReportWorker(ledgers LedgerReader, kv storage.KV, exporter sheets.LedgerExporter, now func() time.Time) *ReportWorker {
	if now == nil {
		now = time.Now
	}
	return &ReportWorker{
		ledgers:  ledgers,
		kv:       kv,
		exporter: exporter,
		now:      now,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP. A corrupt
// ledger is logged and skipped since redelivery cannot fix it. Export
// failures are logged only: the report is already stored and the next event
// exports the whole ledger again.
func (w *ReportWorker) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"type", event.Type,
		"user_id", event.UserID,
		"transaction_id", event.TransactionID)

	txs, err := w.ledgers.Load(ctx, event.UserID)
	if errors.Is(err, core.ErrStorageCorrupt) {
		slog.WarnContext(ctx, "Skipping report for corrupt ledger",
			"user_id", event.UserID,
			"error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	report, err := w.Rebuild(ctx, event.UserID, txs)
	if err != nil {
		return err
	}

	if w.exporter != nil {
		rows, err := w.exporter.ExportLedger(ctx, event.UserID, txs)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to export ledger",
				"user_id", event.UserID,
				"error", err)
		} else {
			slog.InfoContext(ctx, "Ledger exported",
				"user_id", event.UserID,
				"rows", rows)
		}
	}

	slog.InfoContext(ctx, "Report updated",
		"user_id", event.UserID,
		"transactions", report.Transactions,
		"balance", report.Summary.Balance.String())
	return nil
}

// Rebuild computes and stores the report for txs.
func (w *ReportWorker) Rebuild(ctx context.Context, userID string, txs []core.Transaction) (Report, error) {
	now := w.now()
	report := Report{
		UserID:       userID,
		GeneratedAt:  now.UTC(),
		Transactions: len(txs),
		Summary:      analytics.Summarize(txs, now),
		Categories:   analytics.CategoryBreakdown(txs),
		Monthly:      analytics.MonthlyBreakdown(txs),
	}

	b, err := json.Marshal(report)
	if err != nil {
		return Report{}, fmt.Errorf("encode report: %w", err)
	}
	if err := w.kv.Set(ctx, ReportKey(userID), string(b)); err != nil {
		return Report{}, fmt.Errorf("save report: %w", err)
	}
	return report, nil
}

// ReportStore reads the snapshots written by ReportWorker.
type ReportStore struct {
	kv storage.KV
}

func NewReportStore(kv storage.KV) *ReportStore {
	return &ReportStore{kv: kv}
}

// Load reads a stored snapshot. found is false when none exists yet.
func (s *ReportStore) Load(ctx context.Context, userID string) (report Report, found bool, err error) {
	raw, found, err := s.kv.Get(ctx, ReportKey(userID))
	if err != nil || !found {
		return Report{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return Report{}, false, fmt.Errorf("decode report: %w", err)
	}
	return report, true, nil
}
