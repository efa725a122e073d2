package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/metalagman/devboard/internal/db"
	"github.com/metalagman/devboard/internal/workitem"
)

type loginRequest struct {
	Organization string `json:"organization"`
	Project      string `json:"project"`
	PAT          string `json:"pat"`
}

type loginResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Organization string `json:"organization,omitempty"`
	Project      string `json:"project,omitempty"`
	Token        string `json:"token,omitempty"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
}

type createRequest struct {
	Type               string                     `json:"workItemType"`
	Title              string                     `json:"title"`
	Description        string                     `json:"description"`
	State              string                     `json:"state"`
	AreaPath           string                     `json:"areaPath"`
	Tags               string                     `json:"tags"`
	Effort             float64                    `json:"effort"`
	AcceptanceCriteria string                     `json:"acceptanceCriteria"`
	HistoryComment     string                     `json:"historyComment"`
	Categories         workitem.CategorySelection `json:"categories"`
}

type updateRequest struct {
	Title              *string                     `json:"title"`
	Description        *string                     `json:"description"`
	State              *string                     `json:"state"`
	AreaPath           *string                     `json:"areaPath"`
	Tags               *string                     `json:"tags"`
	Effort             *float64                    `json:"effort"`
	AcceptanceCriteria *string                     `json:"acceptanceCriteria"`
	HistoryComment     string                      `json:"historyComment"`
	Categories         *workitem.CategorySelection `json:"categories"`
}

func (u updateRequest) edit() workitem.Edit {
	return workitem.Edit{
		Title:              u.Title,
		Description:        u.Description,
		State:              u.State,
		AreaPath:           u.AreaPath,
		Tags:               u.Tags,
		Effort:             u.Effort,
		AcceptanceCriteria: u.AcceptanceCriteria,
		Categories:         u.Categories,
		HistoryComment:     u.HistoryComment,
	}
}

type scoreRequest struct {
	Categories workitem.CategorySelection `json:"categories"`
	Tags       string                     `json:"tags"`
}

type scoreResponse struct {
	Score    int               `json:"score"`
	Complete bool              `json:"complete"`
	Tags     string            `json:"tags"`
	Labels   map[string]string `json:"labels"`
}

type listResponse struct {
	Items  []workitem.View `json:"items"`
	Tags   []string        `json:"tags"`
	States []string        `json:"states"`
	Count  int             `json:"count"`
	Total  int             `json:"total"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, "login", &req); err != nil {
		writeError(w, err)
		return
	}
	remote, err := s.newRemote(req.Organization, req.Project, req.PAT)
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	if err := remote.ValidateCredentials(r.Context()); err != nil {
		status := statusOf(err)
		msg := "could not reach Azure DevOps"
		switch status {
		case http.StatusUnauthorized:
			msg = "invalid personal access token"
		case http.StatusNotFound:
			msg = "organization or project not found"
		}
		writeJSON(w, status, loginResponse{Success: false, Message: msg})
		return
	}
	sess, err := s.sessions.Create(r.Context(), req.Organization, req.Project, req.PAT)
	if err != nil {
		writeError(w, internalError(err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Success:      true,
		Message:      "logged in",
		Organization: sess.Organization,
		Project:      sess.Project,
		Token:        sess.Token,
		ExpiresAt:    sess.ExpiresAt.Format(time.RFC3339),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := strings.TrimSpace(r.Header.Get(AuthHeader)); token != "" {
		if err := s.sessions.Delete(r.Context(), token); err != nil {
			writeError(w, internalError(err))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeBody(w, r, "score", &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{
		Score:    workitem.ComputeScore(req.Categories),
		Complete: req.Categories.Complete(),
		Tags:     workitem.EncodeTags(req.Tags, req.Categories),
		Labels:   req.Categories.Labels(),
	})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request, sc scope) {
	model, err := sc.tracker.Load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	model.SetFilter(workitem.FilterSpec{
		AreaPath:       q.Get("areaPath"),
		WorkItemType:   q.Get("type"),
		SelectedTags:   q["tag"],
		SelectedStates: q["state"],
	})
	views := model.Views()
	writeJSON(w, http.StatusOK, listResponse{
		Items:  views,
		Tags:   model.TagSet(),
		States: model.StateSet(),
		Count:  len(views),
		Total:  len(model.Items()),
	})
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request, sc scope) {
	var req createRequest
	if err := decodeBody(w, r, "create", &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := workitem.ParseType(req.Type)
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	d := workitem.NewDraft(t)
	if req.State != "" {
		d.State = req.State
	}
	d.Title = req.Title
	d.Description = req.Description
	d.AreaPath = req.AreaPath
	d.Tags = req.Tags
	d.Effort = req.Effort
	d.AcceptanceCriteria = req.AcceptanceCriteria
	d.Categories = req.Categories
	d.HistoryComment = req.HistoryComment

	item, err := sc.tracker.Create(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request, sc scope) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateRequest
	if err := decodeBody(w, r, "update", &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := sc.tracker.Update(r.Context(), id, req.edit())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleAreaPaths(w http.ResponseWriter, r *http.Request, sc scope) {
	areas, err := sc.tracker.AreaPaths(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if areas == nil {
		areas = []string{}
	}
	writeJSON(w, http.StatusOK, areas)
}

func (s *Server) handleRelations(w http.ResponseWriter, r *http.Request, sc scope) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	rels, err := sc.tracker.Relations(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (s *Server) handleSetParent(w http.ResponseWriter, r *http.Request, sc scope) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		ParentID *int `json:"parentId"`
	}
	if err := decodeBody(w, r, "parent", &req); err != nil {
		writeError(w, err)
		return
	}
	parentID := 0
	if req.ParentID != nil {
		parentID = *req.ParentID
	}
	intents, err := sc.tracker.SetParent(r.Context(), id, parentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if intents == nil {
		intents = []workitem.RelationIntent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": intents})
}

func (s *Server) handleAddChild(w http.ResponseWriter, r *http.Request, sc scope) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		ChildID int `json:"childId"`
	}
	if err := decodeBody(w, r, "child", &req); err != nil {
		writeError(w, err)
		return
	}
	intent, err := sc.tracker.AddChild(r.Context(), id, req.ChildID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": []workitem.RelationIntent{intent}})
}

func (s *Server) handleRemoveChild(w http.ResponseWriter, r *http.Request, sc scope) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	childID, err := pathID(r, "childId")
	if err != nil {
		writeError(w, err)
		return
	}
	intent, err := sc.tracker.RemoveChild(r.Context(), id, childID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": []workitem.RelationIntent{intent}})
}

type eventResponse struct {
	ID      int64  `json:"id"`
	Time    string `json:"time"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Server) handleItemEvents(w http.ResponseWriter, r *http.Request, sc scope) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	out := []eventResponse{}
	if s.events != nil {
		events, err := s.events.ListEvents(r.Context(), db.EventFilter{
			Organization: sc.session.Organization,
			Project:      sc.session.Project,
			ItemID:       id,
			Limit:        100,
		})
		if err != nil {
			writeError(w, internalError(err))
			return
		}
		for _, ev := range events {
			out = append(out, eventResponse{ID: ev.ID, Time: ev.Time, Type: ev.Type, Message: ev.Message})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func pathID(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid work item id " + strconv.Quote(raw))
	}
	return id, nil
}
