package workflow

import (
	"fmt"
	"sort"
)

// ComputeDueDate offsets the anchor by whole calendar days. Negative offsets
// are preparation before the event.
func ComputeDueDate(anchor Date, offsetDays int) Date {
	return anchor.AddDays(offsetDays)
}

// ValidateDependencyGraph reports the first dependency cycle found, walking
// steps in template order. Dependencies on unknown ids are ignored here and
// reported by ValidateTemplate.
func ValidateDependencyGraph(steps []Step) error {
	deps := make(map[string][]string, len(steps))
	for _, s := range steps {
		deps[s.ID] = s.Dependencies
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(steps))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = visiting
		stack = append(stack, id)
		for _, dep := range deps[id] {
			if _, known := deps[dep]; !known {
				continue
			}
			switch state[dep] {
			case visiting:
				for i, onStack := range stack {
					if onStack == dep {
						return append([]string(nil), stack[i:]...)
					}
				}
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, s := range steps {
		if state[s.ID] != unvisited {
			continue
		}
		if cycle := visit(s.ID); cycle != nil {
			return &CycleDetectedError{StepIDs: cycle}
		}
	}
	return nil
}

// ValidateTemplate checks the structural invariants a template must hold
// before it is saved.
func ValidateTemplate(t Template) error {
	var problems []string
	if t.Name == "" {
		problems = append(problems, "name is required")
	}

	groups := map[string]bool{}
	lastOrder := 0
	for i, g := range t.Groups {
		if g.ID == "" {
			problems = append(problems, fmt.Sprintf("group %d has no id", i))
			continue
		}
		if groups[g.ID] {
			problems = append(problems, fmt.Sprintf("duplicate group id %q", g.ID))
		}
		if i > 0 && g.Order <= lastOrder {
			problems = append(problems, fmt.Sprintf("group %q order must be greater than %d", g.ID, lastOrder))
		}
		groups[g.ID] = true
		lastOrder = g.Order
	}

	if len(t.Steps) == 0 {
		problems = append(problems, "at least one step is required")
	}
	steps := map[string]bool{}
	for i, s := range t.Steps {
		if s.ID == "" {
			problems = append(problems, fmt.Sprintf("step %d has no id", i))
			continue
		}
		if steps[s.ID] {
			problems = append(problems, fmt.Sprintf("duplicate step id %q", s.ID))
		}
		steps[s.ID] = true
	}
	for _, s := range t.Steps {
		if s.EstimatedHours <= 0 {
			problems = append(problems, fmt.Sprintf("step %q estimated hours must be positive", s.ID))
		}
		if id, ok := s.Group(); ok && !groups[id] {
			problems = append(problems, fmt.Sprintf("step %q references unknown group %q", s.ID, id))
		}
		for _, dep := range s.Dependencies {
			if !steps[dep] {
				problems = append(problems, fmt.Sprintf("step %q depends on unknown step %q", s.ID, dep))
			}
		}
	}
	if len(problems) > 0 {
		return &InvalidTemplateError{Problems: problems}
	}
	return ValidateDependencyGraph(t.Steps)
}

// IsStepUnlockable reports whether every dependency of step is completed.
func IsStepUnlockable(step Step, progress map[string]StepProgress) bool {
	return len(MissingDependencies(step, progress)) == 0
}

// MissingDependencies lists the dependencies of step that are not completed,
// sorted for stable reporting.
func MissingDependencies(step Step, progress map[string]StepProgress) []string {
	var missing []string
	for _, dep := range step.Dependencies {
		if p, ok := progress[dep]; !ok || p.Status != StepCompleted {
			missing = append(missing, dep)
		}
	}
	sort.Strings(missing)
	return missing
}
