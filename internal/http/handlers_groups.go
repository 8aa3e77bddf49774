package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"splitledger/internal/core"
)

func groupIDParam(r *http.Request) core.GroupID {
	return core.GroupID(strings.TrimSpace(chi.URLParam(r, "groupID")))
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, err := s.ledger.CreateGroup(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(g))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.ledger.ListGroups(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]groupResponse, len(groups))
	for i, g := range groups {
		out[i] = toGroupResponse(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := s.ledger.AddMember(r.Context(), groupIDParam(r),
		core.MemberID(strings.TrimSpace(req.MemberID)), sanitizeInput(req.DisplayName))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberResponse(m))
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.ledger.ListMembers(r.Context(), groupIDParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]memberResponse, len(members))
	for i, m := range members {
		out[i] = toMemberResponse(m)
	}
	writeJSON(w, http.StatusOK, out)
}
