package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	SplitEqual SplitMethod = iota + 1
	SplitExact
	SplitPercentage
	SplitShares
	SplitSettlement
)

// MaxDescriptionLength bounds free-text fields stored with an expense.
const MaxDescriptionLength = 200

type (
	// SplitMethod is the closed set of policies an expense can be divided with.
	// The zero value is invalid.
	SplitMethod uint8

	GroupID   string
	MemberID  string
	ExpenseID string

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          ExpenseID
		GroupID     GroupID
		PayerID     MemberID
		AmountCents int64
		Currency    Currency
		Method      SplitMethod
		Description string
		Category    string
		OccurredAt  time.Time
		CreatedAt   time.Time
	}

	// ExpenseSplit is one member's portion of an expense. RawValue carries the
	// basis points (percentage) or weight (shares) the portion was derived from.
	ExpenseSplit struct {
		MemberID    MemberID
		AmountCents int64
		RawValue    *int64
	}

	ExpenseWithSplits struct {
		Expense
		Splits []ExpenseSplit
	}

	Group struct {
		ID        GroupID
		Name      string
		CreatedAt time.Time
	}

	Member struct {
		GroupID     GroupID
		ID          MemberID
		DisplayName string
		JoinedAt    time.Time
	}
)

var (
	ErrUnknownSplitMethod = errors.New("unknown split method")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyPayer         = errors.New("empty payer")
	ErrEmptyGroup         = errors.New("empty group")
	ErrEmptyMember        = errors.New("empty member")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidSettlement  = errors.New("invalid settlement")
	ErrDuplicateMember    = errors.New("duplicate member")
)

var splitMethodNames = map[SplitMethod]string{
	SplitEqual:      "equal",
	SplitExact:      "exact",
	SplitPercentage: "percentage",
	SplitShares:     "shares",
	SplitSettlement: "settlement",
}

// ParseSplitMethod maps the wire name of a split method to its value.
// "custom" is accepted as an alias of exact.
func ParseSplitMethod(s string) (SplitMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equal":
		return SplitEqual, nil
	case "exact", "custom":
		return SplitExact, nil
	case "percentage":
		return SplitPercentage, nil
	case "shares":
		return SplitShares, nil
	case "settlement":
		return SplitSettlement, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSplitMethod, s)
	}
}

func (m SplitMethod) String() string {
	if name, ok := splitMethodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("SplitMethod(%d)", uint8(m))
}

func (m SplitMethod) Valid() bool {
	_, ok := splitMethodNames[m]
	return ok
}

func (m SplitMethod) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSplitMethod, uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *SplitMethod) UnmarshalText(b []byte) error {
	parsed, err := ParseSplitMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(string(e.GroupID)) == "" {
		return ErrEmptyGroup
	}
	if strings.TrimSpace(string(e.PayerID)) == "" {
		return ErrEmptyPayer
	}
	if err := (Money{Cents: e.AmountCents}).Validate(); err != nil {
		return err
	}
	if e.Currency.IsZero() {
		return ErrUnknownCurrency
	}
	if !e.Method.Valid() {
		return ErrUnknownSplitMethod
	}
	if len(e.Description) > MaxDescriptionLength {
		return fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	}
	return nil
}

// Validate checks the expense header plus the structural rules on its splits.
// Whether amounts add up is ledger.ValidateSplits' job.
func (e ExpenseWithSplits) Validate() error {
	if err := e.Expense.Validate(); err != nil {
		return err
	}
	if err := ValidateSplitMembers(e.Splits); err != nil {
		return err
	}
	if e.Method == SplitSettlement {
		if len(e.Splits) != 1 {
			return fmt.Errorf("%w: expected exactly one split, got %d", ErrInvalidSettlement, len(e.Splits))
		}
		s := e.Splits[0]
		if s.AmountCents != e.AmountCents {
			return fmt.Errorf("%w: split %d does not match amount %d", ErrInvalidSettlement, s.AmountCents, e.AmountCents)
		}
		if s.MemberID == e.PayerID {
			return fmt.Errorf("%w: member %s cannot settle with themselves", ErrInvalidSettlement, s.MemberID)
		}
	}
	return nil
}

// ValidateSplitMembers rejects empty or repeated member IDs.
func ValidateSplitMembers(splits []ExpenseSplit) error {
	seen := make(map[MemberID]struct{}, len(splits))
	for _, s := range splits {
		if strings.TrimSpace(string(s.MemberID)) == "" {
			return ErrEmptyMember
		}
		if _, dup := seen[s.MemberID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, s.MemberID)
		}
		seen[s.MemberID] = struct{}{}
	}
	return nil
}

func (g Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if len(g.Name) > MaxDescriptionLength {
		return fmt.Errorf("name too long (max %d characters)", MaxDescriptionLength)
	}
	return nil
}

func (m Member) Validate() error {
	if strings.TrimSpace(string(m.GroupID)) == "" {
		return ErrEmptyGroup
	}
	if strings.TrimSpace(string(m.ID)) == "" {
		return ErrEmptyMember
	}
	return nil
}
