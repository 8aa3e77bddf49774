package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
	"splitledger/internal/log"
	"splitledger/internal/sheets"
)

// HistoryReader is the read side of ExpenseStore used by audits.
type HistoryReader interface {
	ListGroups(ctx context.Context) ([]core.Group, error)
	ListGroupExpenses(ctx context.Context, groupID core.GroupID) ([]core.ExpenseWithSplits, error)
}

// AuditResult is the outcome of recomputing one group.
type AuditResult struct {
	GroupID   core.GroupID
	Expenses  int
	Debts     int
	Exported  bool
	Violation *ledger.BalanceIntegrityError
}

type AuditReport struct {
	Groups     int
	Violations int
	Failures   int
	Duration   time.Duration
}

// AuditProcessor recomputes group summaries from the stored history,
// reports integrity violations and pushes summaries to the exporter.
type AuditProcessor struct {
	store    HistoryReader
	exporter sheets.SummaryExporter
	logger   *log.Logger
}

// NewAuditProcessor creates a processor. exporter may be nil.
func NewAuditProcessor(store HistoryReader, exporter sheets.SummaryExporter, logger *log.Logger) *AuditProcessor {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AuditProcessor{
		store:    store,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// AuditGroup recomputes one group. An integrity violation is logged and
// reported in the result; it is not an error because retrying cannot fix
// stored history. Storage and export failures are returned.
func (p *AuditProcessor) AuditGroup(ctx context.Context, groupID core.GroupID) (AuditResult, error) {
	result := AuditResult{GroupID: groupID}

	expenses, err := p.store.ListGroupExpenses(ctx, groupID)
	if err != nil {
		return result, fmt.Errorf("load history for group %s: %w", groupID, err)
	}
	result.Expenses = len(expenses)

	summary, err := ledger.BuildSummary(expenses)
	if err != nil {
		var integrity *ledger.BalanceIntegrityError
		if errors.As(err, &integrity) {
			result.Violation = integrity
			p.logger.ErrorContext(ctx, "Balance integrity violation",
				log.FieldOperation, log.OpAudit,
				log.FieldGroupID, groupID,
				log.FieldCurrency, integrity.Currency.Code(),
				log.FieldSum, integrity.Sum)
			return result, nil
		}
		return result, fmt.Errorf("build summary for group %s: %w", groupID, err)
	}

	for _, c := range summary.Currencies {
		result.Debts += len(c.Debts)
	}

	if p.exporter != nil {
		if err := p.exporter.ExportSummary(ctx, groupID, summary); err != nil {
			p.logger.ErrorContext(ctx, "Failed to export summary",
				log.FieldOperation, log.OpExport,
				log.FieldGroupID, groupID,
				log.FieldError, err)
			return result, fmt.Errorf("export summary for group %s: %w", groupID, err)
		}
		result.Exported = true
	}

	p.logger.DebugContext(ctx, "Group audited",
		log.FieldOperation, log.OpAudit,
		log.FieldGroupID, groupID,
		"expenses", result.Expenses,
		log.FieldDebtCount, result.Debts)
	return result, nil
}

// AuditAll audits every group, continuing past individual failures.
func (p *AuditProcessor) AuditAll(ctx context.Context) (AuditReport, error) {
	start := time.Now()

	groups, err := p.store.ListGroups(ctx)
	if err != nil {
		return AuditReport{}, fmt.Errorf("list groups: %w", err)
	}

	report := AuditReport{Groups: len(groups)}
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := p.AuditGroup(ctx, g.ID)
		if err != nil {
			report.Failures++
			p.logger.WarnContext(ctx, "Group audit failed",
				log.FieldGroupID, g.ID,
				log.FieldError, err)
			continue
		}
		if result.Violation != nil {
			report.Violations++
		}
	}
	report.Duration = time.Since(start)

	p.logger.InfoContext(ctx, "Audit completed",
		log.FieldOperation, log.OpAudit,
		"groups", report.Groups,
		"violations", report.Violations,
		"failures", report.Failures,
		log.FieldDuration, report.Duration.Milliseconds())
	return report, nil
}
