package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/ledger"
	"splitledger/internal/log"
	"splitledger/internal/storage"
)

type fakeStore struct {
	mu        sync.Mutex
	groups    []core.Group
	members   map[core.GroupID][]core.Member
	expenses  []core.ExpenseWithSplits
	deleted   map[core.ExpenseID]bool
	loads     int
	listErr   error
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members: make(map[core.GroupID][]core.Member),
		deleted: make(map[core.ExpenseID]bool),
	}
}

// withGroup seeds a group with members and returns the store.
func (f *fakeStore) withGroup(id core.GroupID, members ...core.MemberID) *fakeStore {
	f.groups = append(f.groups, core.Group{ID: id, Name: string(id)})
	for _, m := range members {
		f.members[id] = append(f.members[id], core.Member{GroupID: id, ID: m})
	}
	return f
}

func (f *fakeStore) CreateGroup(ctx context.Context, g core.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, g)
	return nil
}

func (f *fakeStore) GetGroup(ctx context.Context, id core.GroupID) (core.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return core.Group{}, fmt.Errorf("group %s: %w", id, storage.ErrNotFound)
}

func (f *fakeStore) ListGroups(ctx context.Context) ([]core.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Group(nil), f.groups...), nil
}

func (f *fakeStore) AddMember(ctx context.Context, m core.Member) error {
	if _, err := f.GetGroup(ctx, m.GroupID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.members[m.GroupID] {
		if existing.ID == m.ID {
			return storage.ErrAlreadyExists
		}
	}
	f.members[m.GroupID] = append(f.members[m.GroupID], m)
	return nil
}

func (f *fakeStore) IsMember(ctx context.Context, groupID core.GroupID, memberID core.MemberID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members[groupID] {
		if m.ID == memberID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListMembers(ctx context.Context, groupID core.GroupID) ([]core.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Member(nil), f.members[groupID]...), nil
}

func (f *fakeStore) CreateExpense(ctx context.Context, e core.ExpenseWithSplits) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.expenses = append(f.expenses, e)
	return nil
}

func (f *fakeStore) SoftDeleteExpense(ctx context.Context, groupID core.GroupID, id core.ExpenseID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.expenses {
		if e.ID == id && e.GroupID == groupID && !f.deleted[id] {
			f.deleted[id] = true
			return nil
		}
	}
	return fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
}

func (f *fakeStore) ListGroupExpenses(ctx context.Context, groupID core.GroupID) ([]core.ExpenseWithSplits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.ExpenseWithSplits
	for _, e := range f.expenses {
		if e.GroupID == groupID && !f.deleted[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.expenses)
}

type published struct {
	GroupID   core.GroupID
	ExpenseID core.ExpenseID
	Kind      amqp.ChangeKind
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) PublishLedgerChanged(ctx context.Context, groupID core.GroupID, expenseID core.ExpenseID, kind amqp.ChangeKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{groupID, expenseID, kind})
	return p.err
}

type fakeExporter struct {
	mu       sync.Mutex
	exported map[core.GroupID]ledger.DebtSummary
	err      error
}

func (e *fakeExporter) ExportSummary(ctx context.Context, groupID core.GroupID, s ledger.DebtSummary) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	if e.exported == nil {
		e.exported = make(map[core.GroupID]ledger.DebtSummary)
	}
	e.exported[groupID] = s
	return nil
}

func discardLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

// sequentialIDs makes generated IDs predictable.
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}
