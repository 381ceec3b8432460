package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerExporter mirrors a user's whole ledger into an external sheet.
	LedgerExporter interface {
		ExportLedger(ctx context.Context, userID string, txs []core.Transaction) (rows int, err error)
	}
)
