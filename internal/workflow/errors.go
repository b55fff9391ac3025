package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrTemplateInUse    = errors.New("template is referenced by workflow instances")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrTemplateInactive = errors.New("template is inactive")
	// ErrDerivedStatus is returned when a caller tries to set a status that
	// only the step progress may decide.
	ErrDerivedStatus = errors.New("workflow completion is derived from step progress")
)

type UnknownTemplateKindError struct {
	Key string
}

func (e *UnknownTemplateKindError) Error() string {
	return fmt.Sprintf("unknown template kind %q", e.Key)
}

type CycleDetectedError struct {
	StepIDs []string
}

func (e *CycleDetectedError) Error() string {
	return "dependency cycle between steps: " + strings.Join(e.StepIDs, " -> ")
}

type StepNotFoundError struct {
	StepID string
}

func (e *StepNotFoundError) Error() string {
	return fmt.Sprintf("step %q is not part of the workflow template", e.StepID)
}

type DependencyNotSatisfiedError struct {
	StepID      string
	MissingDeps []string
}

func (e *DependencyNotSatisfiedError) Error() string {
	return fmt.Sprintf("step %q is blocked by incomplete steps: %s", e.StepID, strings.Join(e.MissingDeps, ", "))
}

type ForbiddenError struct {
	Action string
	Role   Role
}

func (e *ForbiddenError) Error() string {
	role := string(e.Role)
	if role == "" {
		role = "anonymous"
	}
	return fmt.Sprintf("role %s may not %s", role, e.Action)
}

// InvalidTemplateError lists structural problems found when saving a template.
type InvalidTemplateError struct {
	Problems []string
}

func (e *InvalidTemplateError) Error() string {
	return "invalid template: " + strings.Join(e.Problems, "; ")
}

// PersistenceError wraps a failed store write. The in-memory change that
// preceded it has already been rolled back when this is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
