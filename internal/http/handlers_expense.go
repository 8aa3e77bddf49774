package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"splitledger/internal/core"
	"splitledger/internal/services"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := resolveAmount(req.Amount, req.AmountCents, req.Currency)
	if err != nil {
		writeAmountError(w, err)
		return
	}

	e, err := s.ledger.CreateExpense(r.Context(), services.CreateExpenseRequest{
		GroupID:      groupIDParam(r),
		PayerID:      core.MemberID(strings.TrimSpace(req.PayerID)),
		AmountCents:  amount,
		Currency:     req.Currency,
		SplitMethod:  req.SplitMethod,
		Description:  sanitizeInput(req.Description),
		Category:     sanitizeInput(req.Category),
		OccurredAt:   req.OccurredAt,
		Participants: toParticipants(req.Participants),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

func (s *Server) handleRecordSettlement(w http.ResponseWriter, r *http.Request) {
	var req settlementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := resolveAmount(req.Amount, req.AmountCents, req.Currency)
	if err != nil {
		writeAmountError(w, err)
		return
	}

	e, err := s.ledger.RecordSettlement(r.Context(), services.SettlementRequest{
		GroupID:      groupIDParam(r),
		FromMemberID: core.MemberID(strings.TrimSpace(req.FromMemberID)),
		ToMemberID:   core.MemberID(strings.TrimSpace(req.ToMemberID)),
		AmountCents:  amount,
		Currency:     req.Currency,
		OccurredAt:   req.OccurredAt,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID := core.ExpenseID(strings.TrimSpace(chi.URLParam(r, "expenseID")))
	if err := s.ledger.DeleteExpense(r.Context(), groupIDParam(r), expenseID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.ledger.ListExpenses(r.Context(), groupIDParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		out[i] = toExpenseResponse(e)
	}
	writeJSON(w, http.StatusOK, out)
}

// writeAmountError answers 400 for a request that sets the total twice and
// 422 for an amount that does not parse.
func writeAmountError(w http.ResponseWriter, err error) {
	if errors.Is(err, errAmbiguousTotal) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}
