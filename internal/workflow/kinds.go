package workflow

import (
	"encoding/json"
	"fmt"
)

type StepType string

const (
	StepTypeTask         StepType = "task"
	StepTypeApproval     StepType = "approval"
	StepTypeNotification StepType = "notification"
	StepTypeDelay        StepType = "delay"
	StepTypeConditional  StepType = "conditional"
)

// StepKind carries the configuration specific to one step type.
type StepKind interface {
	Type() StepType
	isStepKind()
}

type TaskKind struct{}

type ApprovalKind struct {
	Approvers    []string `json:"approvers,omitempty"`
	MinApprovals int      `json:"min_approvals,omitempty"`
}

type NotificationKind struct {
	Channel string `json:"channel,omitempty"`
	Message string `json:"message,omitempty"`
}

type DelayKind struct {
	Days int `json:"days"`
}

// ConditionalKind gates a step on a custom form field value.
type ConditionalKind struct {
	Field  string `json:"field"`
	Equals string `json:"equals,omitempty"`
}

func (TaskKind) Type() StepType         { return StepTypeTask }
func (ApprovalKind) Type() StepType     { return StepTypeApproval }
func (NotificationKind) Type() StepType { return StepTypeNotification }
func (DelayKind) Type() StepType        { return StepTypeDelay }
func (ConditionalKind) Type() StepType  { return StepTypeConditional }

func (TaskKind) isStepKind()         {}
func (ApprovalKind) isStepKind()     {}
func (NotificationKind) isStepKind() {}
func (DelayKind) isStepKind()        {}
func (ConditionalKind) isStepKind()  {}

type stepAlias Step

type stepJSON struct {
	stepAlias
	Type   StepType        `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

func (s Step) MarshalJSON() ([]byte, error) {
	out := stepJSON{stepAlias: stepAlias(s), Type: s.Type()}
	switch s.Kind.(type) {
	case nil, TaskKind:
	default:
		raw, err := json.Marshal(s.Kind)
		if err != nil {
			return nil, err
		}
		out.Config = raw
	}
	return json.Marshal(out)
}

func (s *Step) UnmarshalJSON(b []byte) error {
	var in stepJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	kind, err := decodeKind(in.Type, in.Config)
	if err != nil {
		return fmt.Errorf("step %q: %w", in.ID, err)
	}
	*s = Step(in.stepAlias)
	s.Kind = kind
	return nil
}

func decodeKind(t StepType, raw json.RawMessage) (StepKind, error) {
	var kind StepKind
	switch t {
	case "", StepTypeTask:
		return TaskKind{}, nil
	case StepTypeApproval:
		var k ApprovalKind
		if err := unmarshalConfig(raw, &k); err != nil {
			return nil, err
		}
		kind = k
	case StepTypeNotification:
		var k NotificationKind
		if err := unmarshalConfig(raw, &k); err != nil {
			return nil, err
		}
		kind = k
	case StepTypeDelay:
		var k DelayKind
		if err := unmarshalConfig(raw, &k); err != nil {
			return nil, err
		}
		kind = k
	case StepTypeConditional:
		var k ConditionalKind
		if err := unmarshalConfig(raw, &k); err != nil {
			return nil, err
		}
		kind = k
	default:
		return nil, fmt.Errorf("unknown step type %q", t)
	}
	return kind, nil
}

func unmarshalConfig(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
