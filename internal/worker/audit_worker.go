package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/services"
)

// Auditor recomputes group summaries. services.AuditProcessor implements it.
type Auditor interface {
	AuditGroup(ctx context.Context, groupID core.GroupID) (services.AuditResult, error)
	AuditAll(ctx context.Context) (services.AuditReport, error)
}

// Consumer delivers ledger changes. amqp.Client implements it.
type Consumer interface {
	ConsumeLedgerChanged(ctx context.Context, handler amqp.Handler) error
}

// AuditWorker audits groups when their history changes and sweeps every
// group on a fixed interval to catch changes whose messages were lost.
type AuditWorker struct {
	auditor  Auditor
	consumer Consumer
	interval time.Duration
	logger   *log.Logger
}

// NewAuditWorker creates a worker. consumer may be nil, in which case only
// the periodic sweep runs.
func NewAuditWorker(auditor Auditor, consumer Consumer, interval time.Duration, logger *log.Logger) *AuditWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AuditWorker{
		auditor:  auditor,
		consumer: consumer,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerChanged audits the group named by a message.
func (w *AuditWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.DebugContext(ctx, "Processing ledger change",
		log.FieldGroupID, msg.GroupID,
		log.FieldExpenseID, msg.ExpenseID,
		"kind", msg.Kind)

	if _, err := w.auditor.AuditGroup(ctx, msg.GroupID); err != nil {
		return fmt.Errorf("audit group %s: %w", msg.GroupID, err)
	}
	return nil
}

// Run blocks until ctx is done or the consumer fails.
func (w *AuditWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			return w.consumer.ConsumeLedgerChanged(ctx, w.HandleLedgerChanged)
		})
	} else {
		w.logger.WarnContext(ctx, "AMQP consumer not configured, running periodic audits only")
	}

	g.Go(func() error {
		return w.runPeriodic(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *AuditWorker) runPeriodic(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Sweep immediately on startup
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *AuditWorker) sweep(ctx context.Context) {
	if _, err := w.auditor.AuditAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.ErrorContext(ctx, "Periodic audit failed", log.FieldError, err)
	}
}
