package web

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/arctek/blaze/board"
)

// markdown renders plan documents for the HTML endpoint. GFM covers the
// tables and task lists that plan files lean on.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// planCreateRequest is the body for POST /api/plans.
type planCreateRequest struct {
	Title string `json:"title" validate:"required"`
	Files []struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	} `json:"files"`
}

// planUpdateRequest is the body for PATCH /api/plans/{id}.
type planUpdateRequest struct {
	Title    *string           `json:"title"`
	Status   *board.PlanStatus `json:"status"`
	Archived *bool             `json:"archived"`
}

func (s *Server) apiListPlans(w http.ResponseWriter, r *http.Request) {
	var status *board.PlanStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := board.PlanStatus(v)
		status = &st
	}
	includeArchived := r.URL.Query().Get("include_archived") == "true"

	plans, err := s.store.ListPlans(status, includeArchived)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if plans == nil {
		plans = []*board.Plan{}
	}
	s.jsonResponse(w, plans)
}

func (s *Server) apiCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.jsonError(w, "title is required", http.StatusBadRequest)
		return
	}

	files := make([]board.PlanFile, 0, len(req.Files))
	seen := make(map[string]bool, len(req.Files))
	for _, f := range req.Files {
		if f.Name == "" {
			s.jsonError(w, "file name is required", http.StatusBadRequest)
			return
		}
		if seen[f.Name] {
			s.jsonError(w, "duplicate file name "+f.Name, http.StatusBadRequest)
			return
		}
		seen[f.Name] = true
		files = append(files, board.PlanFile{Name: f.Name, Content: f.Content})
	}

	plan, err := s.store.CreatePlan(req.Title, files)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventPlanCreated, "plan": plan})
	s.jsonCreated(w, plan)
}

func (s *Server) apiGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.GetPlan(r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, plan)
}

func (s *Server) apiUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req planUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	plan, err := s.store.UpdatePlan(r.PathValue("id"), board.PlanPatch{
		Title:    req.Title,
		Status:   req.Status,
		Archived: req.Archived,
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventPlanUpdated, "plan": plan})
	s.jsonResponse(w, plan)
}

func (s *Server) apiDeletePlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeletePlan(id); err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventPlanDeleted, "plan_id": id})
	s.jsonResponse(w, map[string]string{"status": "deleted", "plan_id": id})
}

func (s *Server) apiArchivePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.ArchivePlan(r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventPlanUpdated, "plan": plan})
	s.jsonResponse(w, plan)
}

func (s *Server) apiUnarchivePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.UnarchivePlan(r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventPlanUpdated, "plan": plan})
	s.jsonResponse(w, plan)
}

func (s *Server) apiAddPlanFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name" validate:"required"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.jsonError(w, "file name is required", http.StatusBadRequest)
		return
	}

	plan, err := s.store.AddPlanFile(r.PathValue("id"), req.Name, req.Content)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventPlanUpdated, "plan": plan})
	s.jsonCreated(w, plan)
}

func (s *Server) apiGetPlanFile(w http.ResponseWriter, r *http.Request) {
	file, err := s.store.GetPlanFile(r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, file)
}

func (s *Server) apiUpdatePlanFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    *string `json:"name"`
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	plan, err := s.store.UpdatePlanFile(r.PathValue("id"), r.PathValue("name"), req.Name, req.Content)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventPlanUpdated, "plan": plan})
	s.jsonResponse(w, plan)
}

func (s *Server) apiDeletePlanFile(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.DeletePlanFile(r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.hub.Broadcast(map[string]any{"type": EventPlanUpdated, "plan": plan})
	s.jsonResponse(w, plan)
}

// apiRenderPlanFile returns a plan document rendered as HTML.
func (s *Server) apiRenderPlanFile(w http.ResponseWriter, r *http.Request) {
	file, err := s.store.GetPlanFile(r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		s.storeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(file.Content), &buf); err != nil {
		s.logger.Error("markdown render failed", "file", file.Name, "error", err)
		s.jsonError(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
