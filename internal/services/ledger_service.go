package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"splitledger/internal/amqp"
	"splitledger/internal/cache"
	"splitledger/internal/core"
	"splitledger/internal/ledger"
	"splitledger/internal/log"
	"splitledger/internal/storage"
)

// ExpenseStore is the persistence the ledger needs. storage.Repository
// implements it.
type ExpenseStore interface {
	CreateGroup(ctx context.Context, g core.Group) error
	GetGroup(ctx context.Context, id core.GroupID) (core.Group, error)
	ListGroups(ctx context.Context) ([]core.Group, error)
	AddMember(ctx context.Context, m core.Member) error
	IsMember(ctx context.Context, groupID core.GroupID, memberID core.MemberID) (bool, error)
	ListMembers(ctx context.Context, groupID core.GroupID) ([]core.Member, error)
	CreateExpense(ctx context.Context, e core.ExpenseWithSplits) error
	SoftDeleteExpense(ctx context.Context, groupID core.GroupID, id core.ExpenseID, at time.Time) error
	ListGroupExpenses(ctx context.Context, groupID core.GroupID) ([]core.ExpenseWithSplits, error)
}

// EventPublisher announces history changes. amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerChanged(ctx context.Context, groupID core.GroupID, expenseID core.ExpenseID, kind amqp.ChangeKind) error
}

type CreateExpenseRequest struct {
	GroupID      core.GroupID
	PayerID      core.MemberID
	AmountCents  int64
	Currency     string
	SplitMethod  string
	Description  string
	Category     string
	OccurredAt   time.Time
	Participants []ledger.Participant
}

type SettlementRequest struct {
	GroupID      core.GroupID
	FromMemberID core.MemberID
	ToMemberID   core.MemberID
	AmountCents  int64
	Currency     string
	OccurredAt   time.Time
}

type PreviewRequest struct {
	AmountCents  int64
	SplitMethod  string
	Participants []ledger.Participant
}

type PreviewResult struct {
	Splits     []core.ExpenseSplit
	Validation ledger.ValidationResult
}

// LedgerService runs every write through allocation and validation before
// it reaches storage, and serves debt summaries from the cache.
type LedgerService struct {
	store     ExpenseStore
	publisher EventPublisher
	summaries *cache.SummaryCache
	logger    *log.Logger

	now   func() time.Time
	newID func() string
}

// NewLedgerService wires the service. publisher and summaries may be nil.
func NewLedgerService(store ExpenseStore, publisher EventPublisher, summaries *cache.SummaryCache, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		summaries: summaries,
		logger:    logger.WithComponent(log.ComponentLedger),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (s *LedgerService) CreateGroup(ctx context.Context, name string) (core.Group, error) {
	g := core.Group{ID: core.GroupID(s.newID()), Name: name, CreatedAt: s.now()}
	if err := g.Validate(); err != nil {
		return core.Group{}, invalid(err)
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return core.Group{}, err
	}
	return g, nil
}

func (s *LedgerService) AddMember(ctx context.Context, groupID core.GroupID, memberID core.MemberID, displayName string) (core.Member, error) {
	m := core.Member{GroupID: groupID, ID: memberID, DisplayName: displayName, JoinedAt: s.now()}
	if err := m.Validate(); err != nil {
		return core.Member{}, invalid(err)
	}
	if err := s.store.AddMember(ctx, m); err != nil {
		return core.Member{}, err
	}
	return m, nil
}

func (s *LedgerService) ListGroups(ctx context.Context) ([]core.Group, error) {
	return s.store.ListGroups(ctx)
}

func (s *LedgerService) ListMembers(ctx context.Context, groupID core.GroupID) ([]core.Member, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, groupID)
}

// ListExpenses returns the live history of a group, oldest first.
func (s *LedgerService) ListExpenses(ctx context.Context, groupID core.GroupID) ([]core.ExpenseWithSplits, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListGroupExpenses(ctx, groupID)
}

// CreateExpense allocates, validates and stores an expense. Rejected
// expenses return a *ValidationError and are never persisted.
func (s *LedgerService) CreateExpense(ctx context.Context, req CreateExpenseRequest) (core.ExpenseWithSplits, error) {
	currency, err := core.ParseCurrency(req.Currency)
	if err != nil {
		return core.ExpenseWithSplits{}, invalid(err)
	}
	method, err := core.ParseSplitMethod(req.SplitMethod)
	if err != nil {
		return core.ExpenseWithSplits{}, invalid(err)
	}
	if method == core.SplitSettlement {
		return core.ExpenseWithSplits{}, invalid(ErrSettlementSplit)
	}
	if req.AmountCents <= 0 {
		return core.ExpenseWithSplits{}, invalid(core.ErrInvalidAmount)
	}

	members := make([]core.MemberID, 0, len(req.Participants)+1)
	members = append(members, req.PayerID)
	for _, p := range req.Participants {
		members = append(members, p.MemberID)
	}
	if err := s.requireMembers(ctx, req.GroupID, members...); err != nil {
		return core.ExpenseWithSplits{}, err
	}

	splits, err := ledger.Allocate(req.AmountCents, method, req.Participants)
	if err != nil {
		return core.ExpenseWithSplits{}, invalid(err)
	}
	if len(splits) == 0 {
		return core.ExpenseWithSplits{}, invalid(ErrNoParticipants)
	}

	e := s.newExpense(req.GroupID, req.PayerID, req.AmountCents, currency, method, req.OccurredAt)
	e.Description = req.Description
	e.Category = req.Category
	e.Splits = splits

	if err := s.persist(ctx, e, amqp.ChangeCreated); err != nil {
		return core.ExpenseWithSplits{}, err
	}
	return e, nil
}

// RecordSettlement stores a payment from one member to another. It is an
// expense paid by the sender with the receiver as the only split.
func (s *LedgerService) RecordSettlement(ctx context.Context, req SettlementRequest) (core.ExpenseWithSplits, error) {
	currency, err := core.ParseCurrency(req.Currency)
	if err != nil {
		return core.ExpenseWithSplits{}, invalid(err)
	}
	if req.AmountCents <= 0 {
		return core.ExpenseWithSplits{}, invalid(core.ErrInvalidAmount)
	}
	if req.FromMemberID == req.ToMemberID {
		return core.ExpenseWithSplits{}, invalid(ErrSelfSettlement)
	}
	if err := s.requireMembers(ctx, req.GroupID, req.FromMemberID, req.ToMemberID); err != nil {
		return core.ExpenseWithSplits{}, err
	}

	e := s.newExpense(req.GroupID, req.FromMemberID, req.AmountCents, currency, core.SplitSettlement, req.OccurredAt)
	e.Description = "Settlement"
	e.Splits = []core.ExpenseSplit{{MemberID: req.ToMemberID, AmountCents: req.AmountCents}}

	if err := s.persist(ctx, e, amqp.ChangeSettled); err != nil {
		return core.ExpenseWithSplits{}, err
	}
	return e, nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, groupID core.GroupID, expenseID core.ExpenseID) error {
	if err := s.store.SoftDeleteExpense(ctx, groupID, expenseID, s.now()); err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}
	s.invalidate(groupID)

	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldGroupID, groupID,
		log.FieldExpenseID, expenseID)

	s.publish(ctx, groupID, expenseID, amqp.ChangeDeleted)
	return nil
}

// DebtSummary returns the simplified debts and member balances of a group.
func (s *LedgerService) DebtSummary(ctx context.Context, groupID core.GroupID) (ledger.DebtSummary, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return ledger.DebtSummary{}, err
	}
	if s.summaries == nil {
		return s.computeSummary(ctx, groupID)
	}
	return s.summaries.Get(ctx, groupID, s.computeSummary)
}

// MemberBalance returns one member's net balance per currency.
func (s *LedgerService) MemberBalance(ctx context.Context, groupID core.GroupID, memberID core.MemberID) (map[core.Currency]int64, error) {
	summary, err := s.DebtSummary(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.IsMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("member %s: %w", memberID, storage.ErrNotFound)
	}
	return summary.BalanceFor(memberID), nil
}

// PreviewSplit allocates and validates without storing anything. It applies
// the same member checks as CreateExpense.
func (s *LedgerService) PreviewSplit(req PreviewRequest) (PreviewResult, error) {
	method, err := core.ParseSplitMethod(req.SplitMethod)
	if err != nil {
		return PreviewResult{}, invalid(err)
	}
	splits, err := ledger.Allocate(req.AmountCents, method, req.Participants)
	if err != nil {
		return PreviewResult{}, invalid(err)
	}
	if splits == nil {
		splits = []core.ExpenseSplit{}
	}
	if err := core.ValidateSplitMembers(splits); err != nil {
		return PreviewResult{}, invalid(err)
	}
	return PreviewResult{
		Splits: splits,
		Validation: ledger.ValidateSplits(ledger.ValidationInput{
			Splits:           splits,
			TotalAmountCents: req.AmountCents,
			Method:           method,
		}),
	}, nil
}

func (s *LedgerService) computeSummary(ctx context.Context, groupID core.GroupID) (ledger.DebtSummary, error) {
	expenses, err := s.store.ListGroupExpenses(ctx, groupID)
	if err != nil {
		return ledger.DebtSummary{}, fmt.Errorf("load history: %w", err)
	}

	summary, err := ledger.BuildSummary(expenses)
	if err != nil {
		var integrity *ledger.BalanceIntegrityError
		if errors.As(err, &integrity) {
			s.logger.ErrorContext(ctx, "Balance integrity violation",
				log.FieldOperation, log.OpSummary,
				log.FieldGroupID, groupID,
				log.FieldCurrency, integrity.Currency.Code(),
				log.FieldSum, integrity.Sum)
		}
		return ledger.DebtSummary{}, fmt.Errorf("build summary for group %s: %w", groupID, err)
	}
	return summary, nil
}

func (s *LedgerService) newExpense(groupID core.GroupID, payer core.MemberID, amount int64, currency core.Currency, method core.SplitMethod, occurredAt time.Time) core.ExpenseWithSplits {
	now := s.now()
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return core.ExpenseWithSplits{Expense: core.Expense{
		ID:          core.ExpenseID(s.newID()),
		GroupID:     groupID,
		PayerID:     payer,
		AmountCents: amount,
		Currency:    currency,
		Method:      method,
		OccurredAt:  occurredAt.UTC(),
		CreatedAt:   now,
	}}
}

// persist validates the splits against the total, stores the expense and
// announces it.
func (s *LedgerService) persist(ctx context.Context, e core.ExpenseWithSplits, kind amqp.ChangeKind) error {
	if err := e.Validate(); err != nil {
		return invalid(err)
	}
	result := ledger.ValidateSplits(ledger.ValidationInput{
		Splits:           e.Splits,
		TotalAmountCents: e.AmountCents,
		Method:           e.Method,
	})
	if !result.IsValid {
		s.logger.WarnContext(ctx, "Rejected expense",
			log.FieldOperation, log.OpValidate,
			log.FieldGroupID, e.GroupID,
			log.FieldSplitMethod, e.Method.String(),
			log.FieldError, result.Error)
		return &ValidationError{Message: result.Error, Err: result.Err}
	}

	if err := s.store.CreateExpense(ctx, e); err != nil {
		return fmt.Errorf("save expense: %w", err)
	}
	s.invalidate(e.GroupID)

	op := log.OpCreate
	if kind == amqp.ChangeSettled {
		op = log.OpSettle
	}
	fields := log.NewFields().
		WithOperation(op).
		WithGroup(string(e.GroupID)).
		WithExpense(string(e.ID), e.Currency.Code(), e.Method.String(), e.AmountCents, len(e.Splits))
	s.logger.InfoContext(ctx, "Expense recorded", fields.ToSlice()...)

	s.publish(ctx, e.GroupID, e.ID, kind)
	return nil
}

func (s *LedgerService) requireMembers(ctx context.Context, groupID core.GroupID, members ...core.MemberID) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	for _, m := range members {
		if m == "" {
			return invalid(core.ErrEmptyMember)
		}
		ok, err := s.store.IsMember(ctx, groupID, m)
		if err != nil {
			return err
		}
		if !ok {
			return invalid(fmt.Errorf("%w: %s", ErrNotMember, m))
		}
	}
	return nil
}

func (s *LedgerService) invalidate(groupID core.GroupID) {
	if s.summaries != nil {
		s.summaries.Invalidate(groupID)
	}
}

// publish never fails the write; the history is already stored.
func (s *LedgerService) publish(ctx context.Context, groupID core.GroupID, expenseID core.ExpenseID, kind amqp.ChangeKind) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping ledger change")
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, groupID, expenseID, kind); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			log.FieldGroupID, groupID,
			log.FieldExpenseID, expenseID,
			log.FieldError, err)
	}
}
