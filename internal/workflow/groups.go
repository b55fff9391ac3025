package workflow

import "sort"

// UngroupedID identifies the bucket for steps without a valid group.
const UngroupedID = "ungrouped"

// UngroupedGroup is the single fallback bucket. It sorts after every real
// group.
var UngroupedGroup = Group{
	ID:          UngroupedID,
	Name:        "Ungrouped",
	Description: "Steps not assigned to a phase",
	Color:       "#9ca3af",
	Order:       999,
}

type GroupBucket struct {
	Group Group  `json:"group"`
	Steps []Step `json:"steps"`
}

// ResolveGroup returns the group a step is displayed under.
func ResolveGroup(step Step, groups []Group) Group {
	if id, ok := step.Group(); ok {
		for _, g := range groups {
			if g.ID == id {
				return g
			}
		}
	}
	return UngroupedGroup
}

// GroupStepsByGroup partitions steps into buckets ordered by group order.
// Empty buckets are dropped and steps keep their template order.
func GroupStepsByGroup(steps []Step, groups []Group) []GroupBucket {
	index := map[string]int{}
	var buckets []GroupBucket
	for _, s := range steps {
		g := ResolveGroup(s, groups)
		i, ok := index[g.ID]
		if !ok {
			i = len(buckets)
			index[g.ID] = i
			buckets = append(buckets, GroupBucket{Group: g})
		}
		buckets[i].Steps = append(buckets[i].Steps, s)
	}
	sort.SliceStable(buckets, func(a, b int) bool {
		return buckets[a].Group.Order < buckets[b].Group.Order
	})
	return buckets
}
