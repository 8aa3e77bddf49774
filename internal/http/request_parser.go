package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var (
	errEmptyBody      = errors.New("request body is empty")
	errTrailingData   = errors.New("request body must contain a single JSON object")
	errAmbiguousTotal = errors.New("set either amount or amountInCents, not both")
)

type createGroupRequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	MemberID    string `json:"memberId"`
	DisplayName string `json:"displayName"`
}

type participantRequest struct {
	MemberID    string `json:"memberId"`
	AmountCents int64  `json:"amountInCents"`
	BasisPoints int64  `json:"basisPoints"`
	Weight      int64  `json:"weight"`
}

type createExpenseRequest struct {
	PayerID      string               `json:"payerId"`
	Amount       string               `json:"amount"`
	AmountCents  *int64               `json:"amountInCents"`
	Currency     string               `json:"currency"`
	SplitMethod  string               `json:"splitMethod"`
	Description  string               `json:"description"`
	Category     string               `json:"category"`
	OccurredAt   time.Time            `json:"occurredAt"`
	Participants []participantRequest `json:"participants"`
}

type settlementRequest struct {
	FromMemberID string    `json:"fromMemberId"`
	ToMemberID   string    `json:"toMemberId"`
	Amount       string    `json:"amount"`
	AmountCents  *int64    `json:"amountInCents"`
	Currency     string    `json:"currency"`
	OccurredAt   time.Time `json:"occurredAt"`
}

type previewRequest struct {
	AmountCents  int64                `json:"amountInCents"`
	SplitMethod  string               `json:"splitMethod"`
	Participants []participantRequest `json:"participants"`
}

// decodeJSON reads one JSON object from the body into dst. Unknown fields
// are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

// resolveAmount picks the total in minor units from either a decimal string
// or an integer. The decimal is read with the currency's scale, falling back
// to two digits for an unknown code, which is rejected later. A missing
// amount resolves to zero.
func resolveAmount(amount string, amountCents *int64, currencyCode string) (int64, error) {
	amount = strings.TrimSpace(amount)
	switch {
	case amount != "" && amountCents != nil:
		return 0, errAmbiguousTotal
	case amountCents != nil:
		return *amountCents, nil
	case amount == "":
		return 0, nil
	}

	scale := 2
	if c, err := core.ParseCurrency(currencyCode); err == nil {
		scale = c.Scale()
	}
	return core.ParseDecimal(amount, scale)
}

func toParticipants(in []participantRequest) []ledger.Participant {
	out := make([]ledger.Participant, len(in))
	for i, p := range in {
		out[i] = ledger.Participant{
			MemberID:    core.MemberID(strings.TrimSpace(p.MemberID)),
			AmountCents: p.AmountCents,
			BasisPoints: p.BasisPoints,
			Weight:      p.Weight,
		}
	}
	return out
}

// sanitizeInput trims whitespace and strips control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
