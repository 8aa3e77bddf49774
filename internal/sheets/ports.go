package sheets

import (
	"context"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
)

// Ports for outbound adapters.
type (
	// SummaryExporter publishes a group's debt summary to an external
	// spreadsheet. Each export replaces the previous one for the group.
	SummaryExporter interface {
		ExportSummary(ctx context.Context, groupID core.GroupID, summary ledger.DebtSummary) error
	}
)
