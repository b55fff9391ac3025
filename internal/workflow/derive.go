package workflow

import "time"

// ComputeProgress returns the completed share of template steps in [0,100].
func ComputeProgress(inst Instance, tpl Template) float64 {
	if len(tpl.Steps) == 0 {
		return 0
	}
	return 100 * float64(CompletedStepCount(inst, tpl)) / float64(len(tpl.Steps))
}

// CompletedStepCount counts template steps whose stored status is completed.
func CompletedStepCount(inst Instance, tpl Template) int {
	n := 0
	for _, s := range tpl.Steps {
		if inst.Progress(s.ID).Status == StepCompleted {
			n++
		}
	}
	return n
}

// AllStepsCompleted is the workflow completion invariant. Templates must
// have at least one step; an empty one is reported as never complete.
func AllStepsCompleted(inst Instance, tpl Template) bool {
	return len(tpl.Steps) > 0 && CompletedStepCount(inst, tpl) == len(tpl.Steps)
}

// CurrentStep returns the first step in template order that is not
// completed, or nil when every step is done.
func CurrentStep(inst Instance, tpl Template) *Step {
	for i := range tpl.Steps {
		if inst.Progress(tpl.Steps[i].ID).Status != StepCompleted {
			s := tpl.Steps[i]
			return &s
		}
	}
	return nil
}

// DueDate returns the step's due date, or false when the instance has no
// anchor date.
func DueDate(inst Instance, step Step) (Date, bool) {
	if inst.AnchorDate.IsZero() {
		return Date{}, false
	}
	return ComputeDueDate(inst.AnchorDate, step.DueOffsetDays), true
}

// EffectiveStatus is the status shown to users. Pending and in-progress
// steps read as overdue once the calendar date of now is past the due date.
func EffectiveStatus(inst Instance, step Step, now time.Time) StepStatus {
	p := inst.Progress(step.ID)
	switch p.Status {
	case StepCompleted, StepOverdue:
		return p.Status
	}
	if due, ok := DueDate(inst, step); ok && DateOf(now).After(due) {
		return StepOverdue
	}
	return p.Status
}

// NeedsEscalation reports an in-progress step that has run longer than its
// escalation window.
func NeedsEscalation(inst Instance, step Step, now time.Time) bool {
	hours := step.Notifications.EscalationHours
	if hours <= 0 {
		return false
	}
	p := inst.Progress(step.ID)
	if p.Status == StepCompleted || p.StartTime == nil {
		return false
	}
	return now.Sub(*p.StartTime) > time.Duration(hours)*time.Hour
}
