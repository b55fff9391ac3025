package overview

import (
	"cmp"
	"sort"
	"strings"

	"github.com/ronappleton/studioflow/internal/workflow"
)

type SortBy string

const (
	SortByDate     SortBy = "date"
	SortBySchool   SortBy = "school"
	SortByProgress SortBy = "progress"
	SortByStatus   SortBy = "status"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort returns a stably sorted copy. Equal keys keep their input order in
// both directions.
func (e *Engine) Sort(workflows []workflow.Instance, by SortBy, order SortOrder) []workflow.Instance {
	out := append([]workflow.Instance(nil), workflows...)
	compare := e.comparator(by)
	if compare == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j])
		if order == Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func (e *Engine) comparator(by SortBy) func(a, b workflow.Instance) int {
	switch by {
	case SortByDate:
		return func(a, b workflow.Instance) int { return strings.Compare(e.date(a), e.date(b)) }
	case SortBySchool:
		return func(a, b workflow.Instance) int { return strings.Compare(e.schoolName(a), e.schoolName(b)) }
	case SortByStatus:
		return func(a, b workflow.Instance) int { return strings.Compare(string(a.Status), string(b.Status)) }
	case SortByProgress:
		return func(a, b workflow.Instance) int { return cmp.Compare(e.progress(a), e.progress(b)) }
	}
	return nil
}
