// Package overview computes the read-only projections behind the workflow
// dashboards: filtering, sorting, grouping, statistics and the per-view
// shapes (kanban, matrix, timeline, personal tasks, CSV).
package overview

import (
	"sort"
	"strings"
	"time"

	"github.com/ronappleton/studioflow/internal/studio"
	"github.com/ronappleton/studioflow/internal/workflow"
)

// Dataset is one consistent read of workflows and the data they link to.
type Dataset struct {
	Workflows []workflow.Instance
	Templates map[string]workflow.Template
	Sessions  map[string]studio.SessionSummary
}

func FromSnapshot(s workflow.Snapshot) Dataset {
	return Dataset{Workflows: s.Instances, Templates: s.Templates, Sessions: s.Sessions}
}

// Engine evaluates projections against a dataset at a fixed instant so
// every derived overdue flag in one response agrees.
type Engine struct {
	data Dataset
	now  time.Time
}

func NewEngine(data Dataset, now time.Time) *Engine {
	if data.Templates == nil {
		data.Templates = map[string]workflow.Template{}
	}
	if data.Sessions == nil {
		data.Sessions = map[string]studio.SessionSummary{}
	}
	return &Engine{data: data, now: now}
}

func (e *Engine) Workflows() []workflow.Instance {
	return e.data.Workflows
}

func (e *Engine) Now() time.Time {
	return e.now
}

func (e *Engine) template(inst workflow.Instance) (workflow.Template, bool) {
	t, ok := e.data.Templates[inst.TemplateID]
	return t, ok
}

func (e *Engine) session(inst workflow.Instance) (studio.SessionSummary, bool) {
	if inst.SessionID == "" {
		return studio.SessionSummary{}, false
	}
	s, ok := e.data.Sessions[inst.SessionID]
	return s, ok
}

// steps returns the template steps, or placeholder steps for each progress
// entry, ordered by id, when the template is gone.
func (e *Engine) steps(inst workflow.Instance) []workflow.Step {
	if t, ok := e.template(inst); ok {
		return t.Steps
	}
	out := make([]workflow.Step, 0, len(inst.StepProgress))
	for id := range inst.StepProgress {
		out = append(out, workflow.Step{ID: id, Title: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Engine) progress(inst workflow.Instance) float64 {
	t, ok := e.template(inst)
	if !ok {
		return 0
	}
	return workflow.ComputeProgress(inst, t)
}

func (e *Engine) templateName(inst workflow.Instance) string {
	if inst.TemplateName != "" {
		return inst.TemplateName
	}
	if t, ok := e.template(inst); ok {
		return t.Name
	}
	return ""
}

func (e *Engine) schoolID(inst workflow.Instance) string {
	if s, ok := e.session(inst); ok && s.SchoolID != "" {
		return s.SchoolID
	}
	return inst.SchoolID
}

func (e *Engine) schoolName(inst workflow.Instance) string {
	if s, ok := e.session(inst); ok {
		return s.SchoolName
	}
	return ""
}

func (e *Engine) clientName(inst workflow.Instance) string {
	if s, ok := e.session(inst); ok {
		return s.ClientName
	}
	return ""
}

// date is the linked session's date string, or the anchor date for
// tracking workflows.
func (e *Engine) date(inst workflow.Instance) string {
	if s, ok := e.session(inst); ok {
		return s.Date
	}
	return inst.AnchorDate.String()
}

func (e *Engine) sessionType(inst workflow.Instance) string {
	if inst.SessionType != "" {
		return inst.SessionType
	}
	if s, ok := e.session(inst); ok {
		return s.PrimarySessionType()
	}
	return ""
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
