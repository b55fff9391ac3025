package overview

import (
	"strings"

	"github.com/ronappleton/studioflow/internal/workflow"
)

type DateRange string

const (
	DateRangeAll   DateRange = "all"
	DateRangeToday DateRange = "today"
	DateRangeWeek  DateRange = "week"
	DateRangeMonth DateRange = "month"
)

// All disables a status, school or session type filter.
const All = "all"

// Filters are combined with AND, except Search: a non-empty search is the
// only predicate applied.
type Filters struct {
	Status      string    `json:"status,omitempty"`
	School      string    `json:"school,omitempty"`
	SessionType string    `json:"session_type,omitempty"`
	DateRange   DateRange `json:"date_range,omitempty"`
	Search      string    `json:"search,omitempty"`
}

func (e *Engine) Filter(workflows []workflow.Instance, f Filters) []workflow.Instance {
	out := make([]workflow.Instance, 0, len(workflows))
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		for _, w := range workflows {
			if e.matchesSearch(w, q) {
				out = append(out, w)
			}
		}
		return out
	}
	for _, w := range workflows {
		if e.matches(w, f) {
			out = append(out, w)
		}
	}
	return out
}

func (e *Engine) matchesSearch(w workflow.Instance, q string) bool {
	return containsFold(e.templateName(w), q) ||
		containsFold(e.schoolName(w), q) ||
		containsFold(e.clientName(w), q)
}

func (e *Engine) matches(w workflow.Instance, f Filters) bool {
	if f.Status != "" && f.Status != All && string(w.Status) != f.Status {
		return false
	}
	if f.School != "" && f.School != All && e.schoolID(w) != f.School {
		return false
	}
	if f.SessionType != "" && f.SessionType != All && !e.hasSessionType(w, f.SessionType) {
		return false
	}
	return e.inDateRange(w, f.DateRange)
}

func (e *Engine) hasSessionType(w workflow.Instance, t string) bool {
	if w.SessionType == t {
		return true
	}
	s, ok := e.session(w)
	return ok && s.HasSessionType(t)
}

// inDateRange applies a one-sided lower bound: week and month keep dates on
// or after now minus 7 or 30 days, including future dates.
func (e *Engine) inDateRange(w workflow.Instance, r DateRange) bool {
	if r == "" || r == DateRangeAll {
		return true
	}
	d, err := workflow.ParseDate(e.date(w))
	if err != nil {
		return false
	}
	today := workflow.DateOf(e.now)
	switch r {
	case DateRangeToday:
		return d == today
	case DateRangeWeek:
		return !d.Before(today.AddDays(-7))
	case DateRangeMonth:
		return !d.Before(today.AddDays(-30))
	}
	return true
}
