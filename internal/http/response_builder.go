package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/services"
	"splitledger/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

type groupResponse struct {
	ID        core.GroupID `json:"id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"createdAt"`
}

type memberResponse struct {
	GroupID     core.GroupID  `json:"groupId"`
	MemberID    core.MemberID `json:"memberId"`
	DisplayName string        `json:"displayName"`
	JoinedAt    time.Time     `json:"joinedAt"`
}

type splitResponse struct {
	MemberID    core.MemberID `json:"memberId"`
	AmountCents int64         `json:"amountInCents"`
	RawValue    *int64        `json:"rawValue,omitempty"`
}

type expenseResponse struct {
	ID          core.ExpenseID   `json:"id"`
	GroupID     core.GroupID     `json:"groupId"`
	PayerID     core.MemberID    `json:"payerId"`
	AmountCents int64            `json:"amountInCents"`
	Formatted   string           `json:"formatted"`
	Currency    core.Currency    `json:"currency"`
	SplitMethod core.SplitMethod `json:"splitMethod"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	OccurredAt  time.Time        `json:"occurredAt"`
	CreatedAt   time.Time        `json:"createdAt"`
	Splits      []splitResponse  `json:"splits"`
}

type balanceResponse struct {
	MemberID core.MemberID           `json:"memberId"`
	Balances map[core.Currency]int64 `json:"balances"`
}

func toGroupResponse(g core.Group) groupResponse {
	return groupResponse{ID: g.ID, Name: g.Name, CreatedAt: g.CreatedAt}
}

func toMemberResponse(m core.Member) memberResponse {
	return memberResponse{GroupID: m.GroupID, MemberID: m.ID, DisplayName: m.DisplayName, JoinedAt: m.JoinedAt}
}

func toSplitResponses(splits []core.ExpenseSplit) []splitResponse {
	out := make([]splitResponse, len(splits))
	for i, s := range splits {
		out[i] = splitResponse{MemberID: s.MemberID, AmountCents: s.AmountCents, RawValue: s.RawValue}
	}
	return out
}

func toExpenseResponse(e core.ExpenseWithSplits) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		PayerID:     e.PayerID,
		AmountCents: e.AmountCents,
		Formatted:   core.FormatCents(e.AmountCents, e.Currency),
		Currency:    e.Currency,
		SplitMethod: e.Method,
		Description: e.Description,
		Category:    e.Category,
		OccurredAt:  e.OccurredAt,
		CreatedAt:   e.CreatedAt,
		Splits:      toSplitResponses(e.Splits),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// errorStatus maps a service error to its HTTP status.
func errorStatus(err error) int {
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports err to the client. Internal failures are logged
// and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
