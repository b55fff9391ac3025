// Package studio is the read side of the scheduling system: session
// summaries and team members that workflows are linked to.
package studio

import (
	"context"
	"errors"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionSummary is what workflows need to know about a scheduled session.
// Date is kept as the scheduler's "YYYY-MM-DD" string so it sorts lexically.
type SessionSummary struct {
	ID              string   `json:"id" yaml:"id"`
	OrganizationID  string   `json:"organization_id" yaml:"organization_id"`
	SchoolID        string   `json:"school_id" yaml:"school_id"`
	SchoolName      string   `json:"school_name" yaml:"school_name"`
	ClientName      string   `json:"client_name,omitempty" yaml:"client_name"`
	Date            string   `json:"date" yaml:"date"`
	SessionTypes    []string `json:"session_types,omitempty" yaml:"session_types"`
	PhotographerIDs []string `json:"photographer_ids,omitempty" yaml:"photographer_ids"`
}

// PrimarySessionType is the first listed type, or "".
func (s SessionSummary) PrimarySessionType() string {
	if len(s.SessionTypes) == 0 {
		return ""
	}
	return s.SessionTypes[0]
}

func (s SessionSummary) HasSessionType(t string) bool {
	for _, st := range s.SessionTypes {
		if st == t {
			return true
		}
	}
	return false
}

type TeamMember struct {
	ID             string `json:"id" yaml:"id"`
	OrganizationID string `json:"organization_id" yaml:"organization_id"`
	Name           string `json:"name" yaml:"name"`
	Email          string `json:"email,omitempty" yaml:"email"`
	Role           string `json:"role" yaml:"role"`
	Active         bool   `json:"active" yaml:"active"`
}

type Directory interface {
	// Sessions returns the organization's sessions keyed by id.
	Sessions(ctx context.Context, organizationID string) (map[string]SessionSummary, error)
	Session(ctx context.Context, id string) (SessionSummary, error)
	TeamMembers(ctx context.Context, organizationID string) ([]TeamMember, error)
}
