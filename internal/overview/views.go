package overview

import (
	"math"
	"sort"

	"github.com/ronappleton/studioflow/internal/studio"
	"github.com/ronappleton/studioflow/internal/workflow"
)

var statusColors = map[workflow.InstanceStatus]string{
	workflow.StatusActive:    "#3b82f6",
	workflow.StatusCompleted: "#10b981",
	workflow.StatusOnHold:    "#f59e0b",
	workflow.StatusCancelled: "#ef4444",
}

func StatusColor(s workflow.InstanceStatus) string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return "#6b7280"
}

type GroupProgress struct {
	Group     workflow.Group `json:"group"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
	Percent   float64        `json:"percent"`
}

// ViewModel is the read-only shape every view renders a workflow from.
type ViewModel struct {
	Workflow        workflow.Instance      `json:"workflow"`
	Template        *workflow.Template     `json:"template,omitempty"`
	Session         *studio.SessionSummary `json:"session,omitempty"`
	ProgressPercent float64                `json:"progress_percent"`
	CurrentStep     *workflow.Step         `json:"current_step,omitempty"`
	StatusColor     string                 `json:"status_color"`
	Groups          []GroupProgress        `json:"groups,omitempty"`
	OverdueSteps    []string               `json:"overdue_steps,omitempty"`
	NeedsEscalation bool                   `json:"needs_escalation"`
}

func (e *Engine) ViewModel(w workflow.Instance) ViewModel {
	vm := ViewModel{Workflow: w, StatusColor: StatusColor(w.Status)}
	if s, ok := e.session(w); ok {
		vm.Session = &s
	}
	t, ok := e.template(w)
	if !ok {
		return vm
	}
	vm.Template = &t
	vm.ProgressPercent = workflow.ComputeProgress(w, t)
	vm.CurrentStep = workflow.CurrentStep(w, t)
	for _, b := range workflow.GroupStepsByGroup(t.Steps, t.Groups) {
		gp := GroupProgress{Group: b.Group, Total: len(b.Steps)}
		for _, s := range b.Steps {
			if w.Progress(s.ID).Status == workflow.StepCompleted {
				gp.Completed++
			}
		}
		gp.Percent = 100 * float64(gp.Completed) / float64(gp.Total)
		vm.Groups = append(vm.Groups, gp)
	}
	for _, s := range t.Steps {
		if workflow.EffectiveStatus(w, s, e.now) == workflow.StepOverdue {
			vm.OverdueSteps = append(vm.OverdueSteps, s.ID)
		}
		if workflow.NeedsEscalation(w, s, e.now) {
			vm.NeedsEscalation = true
		}
	}
	return vm
}

func (e *Engine) ViewModels(workflows []workflow.Instance) []ViewModel {
	out := make([]ViewModel, 0, len(workflows))
	for _, w := range workflows {
		out = append(out, e.ViewModel(w))
	}
	return out
}

type Task struct {
	Workflow workflow.Instance     `json:"workflow"`
	Step     workflow.Step         `json:"step"`
	Progress workflow.StepProgress `json:"progress"`
	Status   workflow.StepStatus   `json:"status"`
	DueDate  *workflow.Date        `json:"due_date,omitempty"`
}

// PendingTasksForUser lists every incomplete step assigned to userID, in
// workflow then template order.
func (e *Engine) PendingTasksForUser(workflows []workflow.Instance, userID string) []Task {
	var out []Task
	for _, w := range workflows {
		for _, s := range e.steps(w) {
			p := w.Progress(s.ID)
			if p.AssignedTo != userID || p.Status == workflow.StepCompleted {
				continue
			}
			task := Task{Workflow: w, Step: s, Progress: p, Status: workflow.EffectiveStatus(w, s, e.now)}
			if due, ok := workflow.DueDate(w, s); ok {
				task.DueDate = &due
			}
			out = append(out, task)
		}
	}
	return out
}

// CompletedColumnID is the kanban column for workflows with no current step.
const CompletedColumnID = "completed"

type KanbanColumn struct {
	GroupID string      `json:"group_id"`
	Name    string      `json:"name"`
	Color   string      `json:"color,omitempty"`
	Order   int         `json:"order"`
	Cards   []ViewModel `json:"cards"`
}

// Kanban places each workflow in the column of its current step's group.
// Columns from different templates merge by group id.
func (e *Engine) Kanban(workflows []workflow.Instance) []KanbanColumn {
	index := map[string]int{}
	var cols []KanbanColumn
	add := func(g workflow.Group, vm ViewModel) {
		i, ok := index[g.ID]
		if !ok {
			i = len(cols)
			index[g.ID] = i
			cols = append(cols, KanbanColumn{GroupID: g.ID, Name: g.Name, Color: g.Color, Order: g.Order})
		}
		cols[i].Cards = append(cols[i].Cards, vm)
	}
	completed := workflow.Group{ID: CompletedColumnID, Name: "Completed", Color: StatusColor(workflow.StatusCompleted), Order: math.MaxInt}
	for _, w := range workflows {
		vm := e.ViewModel(w)
		if vm.Template == nil {
			add(workflow.UngroupedGroup, vm)
			continue
		}
		if vm.CurrentStep == nil {
			add(completed, vm)
			continue
		}
		add(workflow.ResolveGroup(*vm.CurrentStep, vm.Template.Groups), vm)
	}
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Order != cols[j].Order {
			return cols[i].Order < cols[j].Order
		}
		return cols[i].Name < cols[j].Name
	})
	return cols
}

// Matrix is a workflow by step-title grid of effective statuses.
type Matrix struct {
	Columns []string    `json:"columns"`
	Rows    []MatrixRow `json:"rows"`
}

type MatrixRow struct {
	Workflow ViewModel                      `json:"workflow"`
	Cells    map[string]workflow.StepStatus `json:"cells"`
}

// Matrix columns are distinct step titles in first-seen order. A workflow
// whose template lacks a title has no cell for it.
func (e *Engine) Matrix(workflows []workflow.Instance) Matrix {
	m := Matrix{Columns: []string{}, Rows: []MatrixRow{}}
	seen := map[string]bool{}
	for _, w := range workflows {
		row := MatrixRow{Workflow: e.ViewModel(w), Cells: map[string]workflow.StepStatus{}}
		for _, s := range e.steps(w) {
			if !seen[s.Title] {
				seen[s.Title] = true
				m.Columns = append(m.Columns, s.Title)
			}
			if _, dup := row.Cells[s.Title]; !dup {
				row.Cells[s.Title] = workflow.EffectiveStatus(w, s, e.now)
			}
		}
		m.Rows = append(m.Rows, row)
	}
	return m
}

type TimelineItem struct {
	InstanceID   string              `json:"instance_id"`
	TemplateName string              `json:"template_name"`
	SchoolName   string              `json:"school_name,omitempty"`
	StepID       string              `json:"step_id"`
	StepTitle    string              `json:"step_title"`
	DueDate      workflow.Date       `json:"due_date"`
	Status       workflow.StepStatus `json:"status"`
	AssignedTo   string              `json:"assigned_to,omitempty"`
}

// Timeline lists every step with a due date, earliest first. Workflows
// without an anchor date contribute nothing.
func (e *Engine) Timeline(workflows []workflow.Instance) []TimelineItem {
	var out []TimelineItem
	for _, w := range workflows {
		t, ok := e.template(w)
		if !ok {
			continue
		}
		for _, s := range t.Steps {
			due, ok := workflow.DueDate(w, s)
			if !ok {
				continue
			}
			out = append(out, TimelineItem{
				InstanceID:   w.ID,
				TemplateName: e.templateName(w),
				SchoolName:   e.schoolName(w),
				StepID:       s.ID,
				StepTitle:    s.Title,
				DueDate:      due,
				Status:       workflow.EffectiveStatus(w, s, e.now),
				AssignedTo:   w.Progress(s.ID).AssignedTo,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}
