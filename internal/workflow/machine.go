package workflow

import (
	"errors"
	"fmt"
	"time"
)

// TransitionStep moves one step to target and re-derives the workflow
// status. inst is not modified; the updated copy is returned. A completed
// step may only be reset to pending.
func TransitionStep(inst Instance, tpl Template, stepID string, target StepStatus, actor Actor, now time.Time) (Instance, error) {
	if !target.Valid() {
		return inst, fmt.Errorf("step status %q: %w", target, ErrInvalidStatus)
	}
	step, _, ok := tpl.Step(stepID)
	if !ok {
		return inst, &StepNotFoundError{StepID: stepID}
	}
	if target == StepInProgress || target == StepCompleted {
		if missing := MissingDependencies(step, inst.StepProgress); len(missing) > 0 {
			return inst, &DependencyNotSatisfiedError{StepID: stepID, MissingDeps: missing}
		}
	}

	if from := inst.Progress(stepID).Status; from == StepCompleted && (target == StepInProgress || target == StepOverdue) {
		return inst, fmt.Errorf("step %s: %s to %s: %w", stepID, from, target, ErrInvalidStatus)
	}

	out := inst.Clone()
	p := out.Progress(stepID)
	switch target {
	case StepInProgress:
		if p.StartTime == nil {
			t := now
			p.StartTime = &t
		}
		p.CompletedAt = nil
	case StepCompleted:
		if p.Status != StepCompleted || p.CompletedAt == nil {
			t := now
			p.CompletedAt = &t
		}
	case StepPending:
		p.StartTime = nil
		p.CompletedAt = nil
	case StepOverdue:
		p.CompletedAt = nil
	}
	p.Status = target
	p.UpdatedAt = now
	p.UpdatedBy = actor.ID
	out.StepProgress[stepID] = p
	out.UpdatedAt = now

	deriveInstanceStatus(&out, tpl)
	return out, nil
}

// deriveInstanceStatus enforces that an instance is completed exactly when
// all of its template steps are.
func deriveInstanceStatus(inst *Instance, tpl Template) {
	done := AllStepsCompleted(*inst, tpl)
	switch {
	case done:
		inst.Status = StatusCompleted
	case inst.Status == StatusCompleted:
		inst.Status = StatusActive
	}
}

// reconcileStatus repairs a stored workflow status that disagrees with the
// step progress: active with every step done reads as completed, completed
// with work outstanding reads as active.
func reconcileStatus(inst Instance, tpl Template) Instance {
	done := AllStepsCompleted(inst, tpl)
	if (done && inst.Status == StatusActive) || (!done && inst.Status == StatusCompleted) {
		out := inst.Clone()
		deriveInstanceStatus(&out, tpl)
		return out
	}
	return inst
}

// AssignStep records a new assignee for a step without touching its status.
func AssignStep(inst Instance, tpl Template, stepID, assigneeID string, actor Actor, now time.Time) (Instance, error) {
	if !actor.CanManage() {
		return inst, &ForbiddenError{Action: "assign steps", Role: actor.Role}
	}
	if _, _, ok := tpl.Step(stepID); !ok {
		return inst, &StepNotFoundError{StepID: stepID}
	}
	out := inst.Clone()
	p := out.Progress(stepID)
	p.AssignedTo = assigneeID
	p.UpdatedAt = now
	p.UpdatedBy = actor.ID
	out.StepProgress[stepID] = p
	out.UpdatedAt = now
	return out, nil
}

// StepDetails are the free-form fields a step carries alongside its status.
type StepDetails struct {
	Notes *string  `json:"notes,omitempty"`
	Files []string `json:"files,omitempty"`
}

// UpdateStepDetails replaces notes and files on a step's progress entry.
func UpdateStepDetails(inst Instance, tpl Template, stepID string, details StepDetails, actor Actor, now time.Time) (Instance, error) {
	if _, _, ok := tpl.Step(stepID); !ok {
		return inst, &StepNotFoundError{StepID: stepID}
	}
	out := inst.Clone()
	p := out.Progress(stepID)
	if details.Notes != nil {
		p.Notes = *details.Notes
	}
	if details.Files != nil {
		p.Files = append([]string(nil), details.Files...)
	}
	p.UpdatedAt = now
	p.UpdatedBy = actor.ID
	out.StepProgress[stepID] = p
	out.UpdatedAt = now
	return out, nil
}

// SetWorkflowStatus applies a manual workflow status change. Completion is
// never set directly, and a completed workflow can only be reopened by
// reverting one of its steps.
func SetWorkflowStatus(inst Instance, tpl Template, status InstanceStatus, actor Actor, now time.Time) (Instance, error) {
	if !actor.CanManage() {
		return inst, &ForbiddenError{Action: "change workflow status", Role: actor.Role}
	}
	if !status.Valid() {
		return inst, fmt.Errorf("workflow status %q: %w", status, ErrInvalidStatus)
	}
	if status == StatusCompleted {
		return inst, ErrDerivedStatus
	}
	if AllStepsCompleted(inst, tpl) {
		if status == StatusActive {
			return inst, nil
		}
		return inst, ErrDerivedStatus
	}
	out := inst.Clone()
	out.Status = status
	out.UpdatedAt = now
	if status == StatusCancelled {
		t := now
		out.ArchivedAt = &t
	} else {
		out.ArchivedAt = nil
	}
	return out, nil
}

// PlannedTransition is one step change within a group move.
type PlannedTransition struct {
	StepID string     `json:"step_id"`
	Target StepStatus `json:"target"`
}

// PlanMoveToGroup lists the transitions that move a workflow into group:
// every incomplete step before the group's first step is completed, then
// the group's first incomplete step is started.
func PlanMoveToGroup(inst Instance, tpl Template, groupID string) ([]PlannedTransition, error) {
	first := -1
	for i, s := range tpl.Steps {
		if ResolveGroup(s, tpl.Groups).ID == groupID {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, fmt.Errorf("group %q: %w", groupID, ErrNotFound)
	}

	var plan []PlannedTransition
	for _, s := range tpl.Steps[:first] {
		if inst.Progress(s.ID).Status != StepCompleted {
			plan = append(plan, PlannedTransition{StepID: s.ID, Target: StepCompleted})
		}
	}
	for _, s := range tpl.Steps[first:] {
		if ResolveGroup(s, tpl.Groups).ID != groupID {
			continue
		}
		switch inst.Progress(s.ID).Status {
		case StepCompleted:
			continue
		case StepInProgress:
		default:
			plan = append(plan, PlannedTransition{StepID: s.ID, Target: StepInProgress})
		}
		break
	}
	return plan, nil
}

// SkippedStep is a planned transition a group move could not apply, with
// the reason it was rejected.
type SkippedStep struct {
	StepID      string     `json:"step_id"`
	Target      StepStatus `json:"target"`
	MissingDeps []string   `json:"missing_deps,omitempty"`
	Reason      string     `json:"reason"`
}

// MoveReport is the per-step outcome of a group move. Moves are not atomic.
type MoveReport struct {
	GroupID   string        `json:"group_id"`
	Completed []string      `json:"completed,omitempty"`
	Started   []string      `json:"started,omitempty"`
	Skipped   []SkippedStep `json:"skipped,omitempty"`
}

// Partial reports whether any planned transition was skipped.
func (r MoveReport) Partial() bool {
	return len(r.Skipped) > 0
}

func (r *MoveReport) record(t PlannedTransition, err error) {
	if err == nil {
		if t.Target == StepCompleted {
			r.Completed = append(r.Completed, t.StepID)
		} else {
			r.Started = append(r.Started, t.StepID)
		}
		return
	}
	skip := SkippedStep{StepID: t.StepID, Target: t.Target, Reason: err.Error()}
	var dep *DependencyNotSatisfiedError
	if errors.As(err, &dep) {
		skip.MissingDeps = dep.MissingDeps
	}
	r.Skipped = append(r.Skipped, skip)
}

// MoveToGroup applies PlanMoveToGroup as a sequence of TransitionStep calls.
// Steps whose dependencies cannot be met are skipped and reported.
func MoveToGroup(inst Instance, tpl Template, groupID string, actor Actor, now time.Time) (Instance, MoveReport, error) {
	report := MoveReport{GroupID: groupID}
	plan, err := PlanMoveToGroup(inst, tpl, groupID)
	if err != nil {
		return inst, report, err
	}
	cur := inst
	for _, t := range plan {
		next, err := TransitionStep(cur, tpl, t.StepID, t.Target, actor, now)
		report.record(t, err)
		if err == nil {
			cur = next
		}
	}
	return cur, report, nil
}
