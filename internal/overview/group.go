package overview

import (
	"sort"
	"strings"

	"github.com/ronappleton/studioflow/internal/workflow"
)

type GroupKey string

const (
	GroupByStatus       GroupKey = "status"
	GroupBySchool       GroupKey = "school"
	GroupByPhotographer GroupKey = "photographer"
	GroupByTemplate     GroupKey = "template"
	GroupBySessionType  GroupKey = "sessionType"
)

const (
	UnknownType     = "Unknown Type"
	Unassigned      = "Unassigned"
	UnknownSchool   = "Unknown School"
	UnknownTemplate = "Unknown Template"
)

type Bucket struct {
	Key       string              `json:"key"`
	Fallback  bool                `json:"fallback,omitempty"`
	Workflows []workflow.Instance `json:"workflows"`
}

// GroupBy partitions workflows by key. Buckets are sorted by key with the
// fallback bucket last; workflows keep input order inside a bucket.
func (e *Engine) GroupBy(workflows []workflow.Instance, key GroupKey) []Bucket {
	index := map[string]int{}
	var buckets []Bucket
	for _, w := range workflows {
		k, fallback := e.groupKey(w, key)
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, Bucket{Key: k, Fallback: fallback})
		}
		buckets[i].Workflows = append(buckets[i].Workflows, w)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Fallback != buckets[j].Fallback {
			return !buckets[i].Fallback
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets
}

func (e *Engine) groupKey(w workflow.Instance, key GroupKey) (string, bool) {
	switch key {
	case GroupByStatus:
		return string(w.Status), false
	case GroupBySchool:
		if name := e.schoolName(w); name != "" {
			return name, false
		}
		return UnknownSchool, true
	case GroupByPhotographer:
		if a := assignees(w); len(a) > 0 {
			return strings.Join(a, ", "), false
		}
		return Unassigned, true
	case GroupByTemplate:
		if name := e.templateName(w); name != "" {
			return name, false
		}
		return UnknownTemplate, true
	case GroupBySessionType:
		if t := e.sessionType(w); t != "" {
			return t, false
		}
		if name := e.templateName(w); name != "" {
			return name, false
		}
		return UnknownType, true
	}
	return "", false
}

// assignees is the sorted set of distinct assignees across a workflow's steps.
func assignees(w workflow.Instance) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range w.StepProgress {
		if p.AssignedTo == "" || seen[p.AssignedTo] {
			continue
		}
		seen[p.AssignedTo] = true
		out = append(out, p.AssignedTo)
	}
	sort.Strings(out)
	return out
}
