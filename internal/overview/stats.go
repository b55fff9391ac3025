package overview

import (
	"math"

	"github.com/ronappleton/studioflow/internal/workflow"
)

// Stats counts workflows by status and steps by effective status.
type Stats struct {
	Total                  int `json:"total"`
	Active                 int `json:"active"`
	Completed              int `json:"completed"`
	OnHold                 int `json:"on_hold"`
	Cancelled              int `json:"cancelled"`
	OverdueSteps           int `json:"overdue_steps"`
	InProgressSteps        int `json:"in_progress_steps"`
	CompletedSteps         int `json:"completed_steps"`
	CompletedStepsThisWeek int `json:"completed_steps_this_week"`
	CompletionRate         int `json:"completion_rate"`
}

func (e *Engine) Stats(workflows []workflow.Instance) Stats {
	var st Stats
	weekAgo := e.now.AddDate(0, 0, -7)
	for _, w := range workflows {
		st.Total++
		switch w.Status {
		case workflow.StatusActive:
			st.Active++
		case workflow.StatusCompleted:
			st.Completed++
		case workflow.StatusOnHold:
			st.OnHold++
		case workflow.StatusCancelled:
			st.Cancelled++
		}
		for _, step := range e.steps(w) {
			switch workflow.EffectiveStatus(w, step, e.now) {
			case workflow.StepOverdue:
				st.OverdueSteps++
			case workflow.StepInProgress:
				st.InProgressSteps++
			case workflow.StepCompleted:
				st.CompletedSteps++
				if at := w.Progress(step.ID).CompletedAt; at != nil && !at.Before(weekAgo) {
					st.CompletedStepsThisWeek++
				}
			}
		}
	}
	if st.Total > 0 {
		st.CompletionRate = int(math.Round(float64(st.Completed) / float64(st.Total) * 100))
	}
	return st
}
