package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/workflow"
)

const maxBody = 1 << 20

// Routes builds the REST surface. Actors are taken from the X-User-ID,
// X-User-Role and X-Organization-ID headers set by the gateway.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleCreateTemplate)
			r.Get("/{templateID}", s.handleGetTemplate)
			r.Put("/{templateID}", s.handleUpdateTemplate)
			r.Delete("/{templateID}", s.handleDeleteTemplate)
			r.Get("/{templateID}/versions", s.handleListVersions)
		})
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", s.handleCatalog)
			r.Get("/resolve", s.handleResolve)
			r.Post("/{key}/instantiate", s.handleInstantiate)
		})
		r.Route("/instances", func(r chi.Router) {
			r.Get("/", s.handleListInstances)
			r.Post("/", s.handleCreateInstance)
			r.Route("/{instanceID}", func(r chi.Router) {
				r.Get("/", s.handleGetInstance)
				r.Put("/status", s.handleSetStatus)
				r.Post("/move", s.handleMove)
				r.Route("/steps/{stepID}", func(r chi.Router) {
					r.Patch("/", s.handleUpdateStep)
					r.Post("/transition", s.handleTransition)
					r.Post("/complete", s.handleComplete)
					r.Put("/assignee", s.handleAssign)
				})
			})
		})
		r.Route("/overview", func(r chi.Router) {
			r.Get("/stats", s.handleStats)
			r.Get("/kanban", s.handleKanban)
			r.Get("/matrix", s.handleMatrix)
			r.Get("/timeline", s.handleTimeline)
			r.Get("/tasks", s.handleTasks)
			r.Get("/export.csv", s.handleExport)
		})
		r.Get("/team", s.handleTeam)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) actor(r *http.Request) workflow.Actor {
	a := workflow.Actor{
		ID:             strings.TrimSpace(r.Header.Get("X-User-ID")),
		Role:           workflow.Role(strings.ToLower(strings.TrimSpace(r.Header.Get("X-User-Role")))),
		OrganizationID: strings.TrimSpace(r.Header.Get("X-Organization-ID")),
	}
	if a.OrganizationID == "" {
		a.OrganizationID = s.cfg.Organization.DefaultID
	}
	return a
}

// fail writes the problem for err. Unexpected errors are logged; the
// workflow service has already logged its own rejections.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	p := problemFor(err)
	if p.Status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeProblem(w, r, p)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// Templates

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListTemplates(r.Context(), s.actor(r).OrganizationID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list})
}

// readTemplate schema-checks the body before decoding it.
func readTemplate(r *http.Request) (workflow.Template, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return workflow.Template{}, err
	}
	isYAML := strings.Contains(r.Header.Get("Content-Type"), "yaml")
	return workflow.DecodeTemplateDocument(raw, isYAML)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := readTemplate(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	created, err := s.svc.CreateTemplate(r.Context(), s.actor(r), t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetTemplate(r.Context(), chi.URLParam(r, "templateID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := readTemplate(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	t.ID = chi.URLParam(r, "templateID")
	updated, err := s.svc.UpdateTemplate(r.Context(), s.actor(r), t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	deactivated, err := s.svc.DeleteTemplate(r.Context(), s.actor(r), chi.URLParam(r, "templateID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deactivated": deactivated})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.svc.ListVersions(r.Context(), chi.URLParam(r, "templateID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": versions})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": workflow.DefaultTemplates()})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	key := workflow.ResolveTemplateForSessionType(r.URL.Query().Get("session_type"))
	writeJSON(w, http.StatusOK, map[string]string{"key": string(key)})
}

func (s *Server) handleInstantiate(w http.ResponseWriter, r *http.Request) {
	var overrides workflow.TemplateOverrides
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &overrides); err != nil {
			badRequest(w, r, err.Error())
			return
		}
	}
	key := workflow.TemplateKey(chi.URLParam(r, "key"))
	t, err := s.svc.InstantiateDefault(r.Context(), s.actor(r), key, overrides)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Instances

func (s *Server) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	var req workflow.CreateInstanceRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if req.TemplateID == "" {
		badRequest(w, r, "template_id is required")
		return
	}
	inst, err := s.svc.CreateInstance(r.Context(), s.actor(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeInstance(w, r, http.StatusCreated, inst)
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := s.svc.GetInstance(r.Context(), chi.URLParam(r, "instanceID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if org := s.actor(r).OrganizationID; org != "" && inst.OrganizationID != "" && inst.OrganizationID != org {
		s.fail(w, r, workflow.ErrNotFound)
		return
	}
	s.writeInstance(w, r, http.StatusOK, inst)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status workflow.StepStatus `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	inst, err := s.svc.TransitionStep(r.Context(), s.actor(r), chi.URLParam(r, "instanceID"), chi.URLParam(r, "stepID"), body.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeInstance(w, r, http.StatusOK, inst)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var details workflow.StepDetails
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &details); err != nil {
			badRequest(w, r, err.Error())
			return
		}
	}
	inst, err := s.svc.CompleteStep(r.Context(), s.actor(r), chi.URLParam(r, "instanceID"), chi.URLParam(r, "stepID"), details)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeInstance(w, r, http.StatusOK, inst)
}

func (s *Server) handleUpdateStep(w http.ResponseWriter, r *http.Request) {
	var details workflow.StepDetails
	if err := decodeJSON(r, &details); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	inst, err := s.svc.UpdateStepDetails(r.Context(), s.actor(r), chi.URLParam(r, "instanceID"), chi.URLParam(r, "stepID"), details)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeInstance(w, r, http.StatusOK, inst)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AssigneeID string `json:"assignee_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	inst, err := s.svc.AssignStep(r.Context(), s.actor(r), chi.URLParam(r, "instanceID"), chi.URLParam(r, "stepID"), body.AssigneeID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeInstance(w, r, http.StatusOK, inst)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status workflow.InstanceStatus `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	inst, err := s.svc.SetWorkflowStatus(r.Context(), s.actor(r), chi.URLParam(r, "instanceID"), body.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeInstance(w, r, http.StatusOK, inst)
}

// handleMove answers 200 with the per-step report even when some steps were
// skipped; a store failure mid-move is a 502 that still carries the report.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GroupID string `json:"group_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	inst, report, err := s.svc.MoveToGroup(r.Context(), s.actor(r), chi.URLParam(r, "instanceID"), body.GroupID)
	if err != nil {
		var pe *workflow.PersistenceError
		if errors.As(err, &pe) {
			p := problemFor(err)
			writeJSON(w, p.Status, map[string]any{"problem": p, "report": report})
			return
		}
		s.fail(w, r, err)
		return
	}
	vm, err := s.viewModel(r, inst)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflow": vm, "report": report})
}

// writeInstance renders the mutated instance as a view model so clients can
// replace their cached card in one step.
func (s *Server) writeInstance(w http.ResponseWriter, r *http.Request, status int, inst workflow.Instance) {
	vm, err := s.viewModel(r, inst)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, status, vm)
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	members, err := s.svc.TeamMembers(r.Context(), s.actor(r).OrganizationID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": members})
}
