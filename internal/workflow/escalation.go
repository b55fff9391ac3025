package workflow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Escalation is an in-progress step that has outrun its escalation window.
type Escalation struct {
	Instance Instance
	Step     Step
	Since    time.Time
}

// Key identifies one escalation episode. Restarting the step changes it.
func (e Escalation) Key() string {
	return e.Instance.ID + "/" + e.Step.ID + "@" + e.Since.UTC().Format(time.RFC3339Nano)
}

// PendingEscalations scans active instances of every organization.
func (s *Service) PendingEscalations(ctx context.Context) ([]Escalation, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.PendingEscalations")
	defer span.End()
	list, err := s.ListInstances(ctx, "")
	if err != nil {
		return nil, err
	}
	now := s.now()
	templates := map[string]Template{}
	var out []Escalation
	for _, inst := range list {
		if inst.Status != StatusActive && inst.Status != StatusCompleted {
			continue
		}
		tpl, ok := templates[inst.TemplateID]
		if !ok {
			tpl, err = s.store.GetTemplate(ctx, inst.TemplateID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, &PersistenceError{Op: "get template", Err: err}
			}
			templates[inst.TemplateID] = tpl
		}
		if inst = reconcileStatus(inst, tpl); inst.Status != StatusActive {
			continue
		}
		for _, step := range tpl.Steps {
			if NeedsEscalation(inst, step, now) {
				out = append(out, Escalation{Instance: inst, Step: step, Since: *inst.Progress(step.ID).StartTime})
			}
		}
	}
	return out, nil
}

func (s *Service) Escalate(ctx context.Context, e Escalation) {
	s.logger.Info("step escalated",
		zap.String("instance_id", e.Instance.ID),
		zap.String("step_id", e.Step.ID),
		zap.Time("since", e.Since),
	)
	s.notifier.StepEvent(ctx, e.Instance, e.Step, EventStepEscalated, SystemActor)
}
