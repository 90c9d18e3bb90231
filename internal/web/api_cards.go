package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/arctek/blaze/board"
)

// cardCreateRequest is the body for POST /api/cards.
type cardCreateRequest struct {
	Title              string         `json:"title" validate:"required"`
	Description        string         `json:"description"`
	Priority           board.Priority `json:"priority"`
	Column             board.Column   `json:"column"`
	DueDate            *time.Time     `json:"due_date"`
	Tags               []string       `json:"tags"`
	AgentAssignable    bool           `json:"agent_assignable"`
	AcceptanceCriteria []string       `json:"acceptance_criteria"`
}

// cardUpdateRequest is the body for PUT /api/cards/{id}. Absent fields are
// left untouched.
type cardUpdateRequest struct {
	Title              *string         `json:"title"`
	Description        *string         `json:"description"`
	Priority           *board.Priority `json:"priority"`
	Column             *board.Column   `json:"column"`
	DueDate            *time.Time      `json:"due_date"`
	Tags               []string        `json:"tags"`
	Archived           *bool           `json:"archived"`
	AgentAssignable    *bool           `json:"agent_assignable"`
	AcceptanceCriteria []string        `json:"acceptance_criteria"`
}

func (s *Server) apiListCards(w http.ResponseWriter, r *http.Request) {
	var col *board.Column
	if v := r.URL.Query().Get("column"); v != "" {
		c := board.Column(v)
		if !c.Valid() {
			s.jsonError(w, "unknown column "+strconv.Quote(v), http.StatusBadRequest)
			return
		}
		col = &c
	}
	includeArchived := r.URL.Query().Get("include_archived") == "true"

	cards, err := s.store.ListCards(col, includeArchived)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if cards == nil {
		cards = []*board.Card{}
	}
	s.jsonResponse(w, cards)
}

func (s *Server) apiCreateCard(w http.ResponseWriter, r *http.Request) {
	var req cardCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.jsonError(w, "title is required", http.StatusBadRequest)
		return
	}

	card, err := s.store.CreateCard(board.CardCreate{
		Title:              req.Title,
		Description:        req.Description,
		Priority:           req.Priority,
		Column:             req.Column,
		DueDate:            req.DueDate,
		Tags:               req.Tags,
		AgentAssignable:    req.AgentAssignable,
		AcceptanceCriteria: req.AcceptanceCriteria,
	})
	if err != nil {
		s.storeError(w, err)
		return
	}

	s.hub.Broadcast(map[string]any{"type": EventCardCreated, "card": card})
	s.jsonCreated(w, card)
}

func (s *Server) apiGetCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.store.GetCard(r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, card)
}

func (s *Server) apiUpdateCard(w http.ResponseWriter, r *http.Request) {
	var req cardUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	card, err := s.store.UpdateCard(r.PathValue("id"), board.CardPatch{
		Title:              req.Title,
		Description:        req.Description,
		Priority:           req.Priority,
		Column:             req.Column,
		DueDate:            req.DueDate,
		Tags:               req.Tags,
		Archived:           req.Archived,
		AgentAssignable:    req.AgentAssignable,
		AcceptanceCriteria: req.AcceptanceCriteria,
	})
	if err != nil {
		s.storeError(w, err)
		return
	}

	s.hub.Broadcast(map[string]any{"type": EventCardUpdated, "card": card})
	s.jsonResponse(w, card)
}

func (s *Server) apiDeleteCard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteCard(id); err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventCardDeleted, "card_id": id})
	s.jsonResponse(w, map[string]string{"status": "deleted", "card_id": id})
}

func (s *Server) apiMoveCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Column board.Column `json:"column" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.jsonError(w, "column is required", http.StatusBadRequest)
		return
	}

	card, err := s.store.MoveCard(r.PathValue("id"), req.Column)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventCardMoved, "card": card})
	s.jsonResponse(w, card)
}

func (s *Server) apiArchiveCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.store.ArchiveCard(r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventCardArchived, "card": card})
	s.jsonResponse(w, card)
}

func (s *Server) apiUnarchiveCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.store.UnarchiveCard(r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventCardUnarchived, "card": card})
	s.jsonResponse(w, card)
}

func (s *Server) apiArchiveColumn(w http.ResponseWriter, r *http.Request) {
	col := board.Column(r.PathValue("column"))
	count, err := s.store.ArchiveColumn(col)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventColumnArchived, "column": col, "count": count})
	s.jsonResponse(w, map[string]any{"column": col, "archived_count": count})
}

func (s *Server) apiGetBoard(w http.ResponseWriter, r *http.Request) {
	columns, err := s.store.Board()
	if err != nil {
		s.storeError(w, err)
		return
	}
	stats, err := s.store.Stats()
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, map[string]any{"columns": columns, "stats": stats})
}

func (s *Server) apiGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, stats)
}

func (s *Server) apiListAgentReady(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.ListAgentReady()
	if err != nil {
		s.storeError(w, err)
		return
	}
	if cards == nil {
		cards = []*board.Card{}
	}
	s.jsonResponse(w, cards)
}

func (s *Server) apiAddAgentProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.jsonError(w, "message is required", http.StatusBadRequest)
		return
	}

	card, err := s.store.AddAgentProgress(r.PathValue("id"), req.Message)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventCardUpdated, "card": card})
	s.jsonResponse(w, card)
}

func (s *Server) apiSetAgentStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status        board.AgentStatus `json:"status" validate:"required"`
		BlockedReason string            `json:"blocked_reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.jsonError(w, "status is required", http.StatusBadRequest)
		return
	}

	card, err := s.store.SetAgentStatus(r.PathValue("id"), req.Status, req.BlockedReason)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventCardUpdated, "card": card})
	s.jsonResponse(w, card)
}

func (s *Server) apiToggleCriterion(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.jsonError(w, "criterion index must be an integer", http.StatusBadRequest)
		return
	}
	var req struct {
		Checked bool `json:"checked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	card, err := s.store.ToggleCriterion(r.PathValue("id"), index, req.Checked)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventCardUpdated, "card": card})
	s.jsonResponse(w, card)
}
