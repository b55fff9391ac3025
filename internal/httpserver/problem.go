package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ronappleton/studioflow/internal/workflow"
)

// Problem is an RFC 7807 problem document. IDs carries the blocking or
// cyclic step ids for dependency and cycle errors.
type Problem struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Status   int      `json:"status"`
	Detail   string   `json:"detail,omitempty"`
	Instance string   `json:"instance,omitempty"`
	IDs      []string `json:"ids,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

func problemFor(err error) Problem {
	var (
		unknown   *workflow.UnknownTemplateKindError
		forbidden *workflow.ForbiddenError
		notFound  *workflow.StepNotFoundError
		cycle     *workflow.CycleDetectedError
		dep       *workflow.DependencyNotSatisfiedError
		invalid   *workflow.InvalidTemplateError
		persist   *workflow.PersistenceError
	)
	p := Problem{Type: "about:blank", Detail: err.Error()}
	switch {
	case errors.As(err, &unknown):
		p.Status, p.Title = http.StatusBadRequest, "Unknown template kind"
	case errors.As(err, &forbidden):
		p.Status, p.Title = http.StatusForbidden, "Forbidden"
	case errors.As(err, &notFound):
		p.Status, p.Title = http.StatusConflict, "Step not found"
		p.Detail = err.Error() + "; please refresh"
		p.IDs = []string{notFound.StepID}
	case errors.As(err, &cycle):
		p.Status, p.Title = http.StatusUnprocessableEntity, "Dependency cycle"
		p.IDs = cycle.StepIDs
	case errors.As(err, &dep):
		p.Status, p.Title = http.StatusUnprocessableEntity, "Dependencies not satisfied"
		p.IDs = dep.MissingDeps
	case errors.As(err, &invalid):
		p.Status, p.Title = http.StatusUnprocessableEntity, "Invalid template"
		p.Problems = invalid.Problems
	case errors.As(err, &persist):
		p.Status, p.Title = http.StatusBadGateway, "Store unavailable"
	case errors.Is(err, workflow.ErrNotFound):
		p.Status, p.Title = http.StatusNotFound, "Not found"
	case errors.Is(err, workflow.ErrInvalidStatus):
		p.Status, p.Title = http.StatusBadRequest, "Invalid status"
	case errors.Is(err, workflow.ErrDerivedStatus):
		p.Status, p.Title = http.StatusConflict, "Status is derived"
	case errors.Is(err, workflow.ErrTemplateInactive), errors.Is(err, workflow.ErrTemplateInUse):
		p.Status, p.Title = http.StatusConflict, "Template unavailable"
	default:
		p.Status, p.Title = http.StatusInternalServerError, "Internal error"
	}
	return p
}

func writeProblem(w http.ResponseWriter, r *http.Request, p Problem) {
	p.Instance = r.URL.Path
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, Problem{
		Type:   "about:blank",
		Title:  "Bad request",
		Status: http.StatusBadRequest,
		Detail: detail,
	})
}
