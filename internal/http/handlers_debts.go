package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
	"splitledger/internal/services"
)

type previewResponse struct {
	Splits     []splitResponse         `json:"splits"`
	Validation ledger.ValidationResult `json:"validation"`
}

func (s *Server) handleDebtSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.DebtSummary(r.Context(), groupIDParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMemberBalance(w http.ResponseWriter, r *http.Request) {
	memberID := core.MemberID(strings.TrimSpace(chi.URLParam(r, "memberID")))
	balances, err := s.ledger.MemberBalance(r.Context(), groupIDParam(r), memberID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{MemberID: memberID, Balances: balances})
}

// handlePreviewSplit shows how an amount would be divided without storing
// anything.
func (s *Server) handlePreviewSplit(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.ledger.PreviewSplit(services.PreviewRequest{
		AmountCents:  req.AmountCents,
		SplitMethod:  req.SplitMethod,
		Participants: toParticipants(req.Participants),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{
		Splits:     toSplitResponses(result.Splits),
		Validation: result.Validation,
	})
}
