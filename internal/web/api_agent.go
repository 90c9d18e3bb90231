package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/arctek/blaze/board"
)

// agentUnavailable guards the natural-language endpoints when no agent binary
// was configured at startup.
func (s *Server) agentUnavailable(w http.ResponseWriter) bool {
	if s.agent == nil {
		s.jsonError(w, "agent is not configured", http.StatusServiceUnavailable)
		return true
	}
	return false
}

// collectCards resolves agent-reported IDs to cards. IDs the agent claimed
// but that do not exist on the board are skipped rather than failing the
// whole request.
func (s *Server) collectCards(ids []string) []*board.Card {
	cards := make([]*board.Card, 0, len(ids))
	for _, id := range ids {
		card, err := s.store.GetCard(id)
		if err != nil {
			s.logger.Warn("agent reported unknown card", "card_id", id)
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

// apiNLCreateCards turns a free-form prompt into one or more cards.
func (s *Server) apiNLCreateCards(w http.ResponseWriter, r *http.Request) {
	if s.agentUnavailable(w) {
		return
	}
	var req struct {
		Prompt string `json:"prompt" validate:"required"`
		Column string `json:"column"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.jsonError(w, "prompt is required", http.StatusBadRequest)
		return
	}
	if req.Column != "" && !board.Column(req.Column).Valid() {
		s.jsonError(w, "unknown column "+strconv.Quote(req.Column), http.StatusBadRequest)
		return
	}

	ids, err := s.agent.CreateCardsFromPrompt(r.Context(), req.Prompt, req.Column)
	if err != nil {
		s.logger.Error("agent create-cards failed", "error", err)
		s.jsonError(w, "agent request failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	cards := s.collectCards(ids)
	for _, card := range cards {
		s.hub.Broadcast(map[string]any{"type": EventCardCreated, "card": card})
	}
	s.jsonResponse(w, map[string]any{"card_ids": ids, "cards": cards})
}

// apiNLCreatePlan turns a product idea into a plan with generated documents.
func (s *Server) apiNLCreatePlan(w http.ResponseWriter, r *http.Request) {
	if s.agentUnavailable(w) {
		return
	}
	var req struct {
		Idea string `json:"idea" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.jsonError(w, "idea is required", http.StatusBadRequest)
		return
	}

	planID, err := s.agent.CreatePlanFromIdea(r.Context(), req.Idea)
	if err != nil {
		s.logger.Error("agent create-plan failed", "error", err)
		s.jsonError(w, "agent request failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	plan, err := s.store.GetPlan(planID)
	if err != nil {
		s.logger.Error("agent reported unknown plan", "plan_id", planID, "error", err)
		s.jsonError(w, "agent reported a plan that does not exist", http.StatusInternalServerError)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventPlanCreated, "plan": plan})
	s.jsonResponse(w, plan)
}

// apiNLGenerateCards derives implementation cards from an existing plan.
func (s *Server) apiNLGenerateCards(w http.ResponseWriter, r *http.Request) {
	if s.agentUnavailable(w) {
		return
	}
	var req struct {
		PlanID  string `json:"plan_id" validate:"required"`
		Context string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.jsonError(w, "plan_id is required", http.StatusBadRequest)
		return
	}

	// Resolve before spending an agent call on a bad ID.
	if _, err := s.store.GetPlan(req.PlanID); err != nil {
		s.storeError(w, err)
		return
	}

	ids, err := s.agent.GenerateCardsFromPlan(r.Context(), req.PlanID, req.Context)
	if err != nil {
		s.logger.Error("agent generate-cards failed", "plan_id", req.PlanID, "error", err)
		s.jsonError(w, "agent request failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	cards := s.collectCards(ids)
	for _, card := range cards {
		s.hub.Broadcast(map[string]any{"type": EventCardCreated, "card": card})
	}
	s.jsonResponse(w, map[string]any{"card_ids": ids, "cards": cards})
}

// apiGetAgentAudit lists recent agent invocations, newest first.
func (s *Server) apiGetAgentAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		s.jsonError(w, "audit log is not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.audit.List(limit)
	if err != nil {
		s.logger.Error("audit query failed", "error", err)
		s.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, entries)
}
