package httpserver

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/overview"
	"github.com/ronappleton/studioflow/internal/studio"
	"github.com/ronappleton/studioflow/internal/workflow"
)

func filtersFrom(r *http.Request) overview.Filters {
	q := r.URL.Query()
	return overview.Filters{
		Status:      q.Get("status"),
		School:      q.Get("school"),
		SessionType: q.Get("session_type"),
		DateRange:   overview.DateRange(q.Get("date_range")),
		Search:      q.Get("search"),
	}
}

// engine loads the organization snapshot and applies the request filters
// and sort order.
func (s *Server) engine(r *http.Request) (*overview.Engine, []workflow.Instance, error) {
	snap, err := s.svc.Snapshot(r.Context(), s.actor(r).OrganizationID)
	if err != nil {
		return nil, nil, err
	}
	e := overview.NewEngine(overview.FromSnapshot(snap), s.svc.Now())
	list := e.Filter(e.Workflows(), filtersFrom(r))
	q := r.URL.Query()
	if by := q.Get("sort"); by != "" {
		order := overview.SortOrder(q.Get("order"))
		if order == "" {
			order = overview.Asc
		}
		list = e.Sort(list, overview.SortBy(by), order)
	}
	return e, list, nil
}

func (s *Server) viewModel(r *http.Request, inst workflow.Instance) (overview.ViewModel, error) {
	data := overview.Dataset{
		Workflows: []workflow.Instance{inst},
		Templates: map[string]workflow.Template{},
		Sessions:  map[string]studio.SessionSummary{},
	}
	tpl, err := s.svc.GetTemplate(r.Context(), inst.TemplateID)
	switch {
	case err == nil:
		data.Templates[tpl.ID] = tpl
	case !errors.Is(err, workflow.ErrNotFound):
		return overview.ViewModel{}, err
	}
	if inst.SessionID != "" {
		sess, err := s.svc.Directory().Session(r.Context(), inst.SessionID)
		switch {
		case err == nil:
			data.Sessions[sess.ID] = sess
		case !errors.Is(err, studio.ErrSessionNotFound):
			return overview.ViewModel{}, &workflow.PersistenceError{Op: "get session", Err: err}
		}
	}
	return overview.NewEngine(data, s.svc.Now()).ViewModel(inst), nil
}

type bucketView struct {
	Key      string               `json:"key"`
	Fallback bool                 `json:"fallback,omitempty"`
	Items    []overview.ViewModel `json:"items"`
}

func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	e, list, err := s.engine(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if key := r.URL.Query().Get("group"); key != "" {
		buckets := e.GroupBy(list, overview.GroupKey(key))
		out := make([]bucketView, 0, len(buckets))
		for _, b := range buckets {
			out = append(out, bucketView{Key: b.Key, Fallback: b.Fallback, Items: e.ViewModels(b.Workflows)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"groups": out})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": e.ViewModels(list)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	e, list, err := s.engine(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Stats(list))
}

func (s *Server) handleKanban(w http.ResponseWriter, r *http.Request) {
	e, list, err := s.engine(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": e.Kanban(list)})
}

func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	e, list, err := s.engine(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Matrix(list))
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	e, list, err := s.engine(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": e.Timeline(list)})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	e, list, err := s.engine(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	user := r.URL.Query().Get("user_id")
	if user == "" {
		user = s.actor(r).ID
	}
	if user == "" {
		badRequest(w, r, "user_id is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": e.PendingTasksForUser(list, user)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	e, list, err := s.engine(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="workflows.csv"`)
	if err := e.WriteCSV(w, list); err != nil {
		s.logger.Warn("csv export interrupted", zap.Error(err))
	}
}
