package workflow

import (
	"time"
)

type Template struct {
	ID                 string      `json:"id"`
	Key                TemplateKey `json:"key,omitempty"`
	Name               string      `json:"name"`
	Description        string      `json:"description,omitempty"`
	OrganizationID     string      `json:"organization_id,omitempty"`
	SessionTypes       []string    `json:"session_types,omitempty"`
	IsTrackingTemplate bool        `json:"is_tracking_template,omitempty"`
	EstimatedDays      int         `json:"estimated_days"`
	Groups             []Group     `json:"groups,omitempty"`
	Steps              []Step      `json:"steps"`
	CustomFormFields   []FormField `json:"custom_form_fields,omitempty"`
	Version            int         `json:"version"`
	IsActive           bool        `json:"is_active"`
	IsDefault          bool        `json:"is_default,omitempty"`
	CreatedBy          string      `json:"created_by,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Step returns the step with the given id and its position in template order.
func (t Template) Step(id string) (Step, int, bool) {
	for i, s := range t.Steps {
		if s.ID == id {
			return s, i, true
		}
	}
	return Step{}, -1, false
}

func (t Template) Group(id string) (Group, bool) {
	for _, g := range t.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Order       int    `json:"order"`
}

type FormField struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

type AssigneeRule string

const (
	AssignByRole   AssigneeRule = "role"
	AssignSpecific AssigneeRule = "specific"
	AssignAuto     AssigneeRule = "auto"
)

type Step struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	Kind           StepKind      `json:"-"`
	GroupID        string        `json:"group,omitempty"`
	AssigneeRule   AssigneeRule  `json:"assignee_rule,omitempty"`
	AssigneeValue  string        `json:"assignee_value,omitempty"`
	EstimatedHours float64       `json:"estimated_hours"`
	DueOffsetDays  int           `json:"due_offset_days"`
	Dependencies   []string      `json:"dependencies,omitempty"`
	Notifications  Notifications `json:"notifications"`
	Files          StepFiles     `json:"files"`
}

// Type reports the step's kind, treating an unset kind as a task.
func (s Step) Type() StepType {
	if s.Kind == nil {
		return StepTypeTask
	}
	return s.Kind.Type()
}

// Group returns the referenced group id, if any.
func (s Step) Group() (string, bool) {
	return s.GroupID, s.GroupID != ""
}

type Notifications struct {
	OnStart         bool `json:"on_start,omitempty"`
	OnComplete      bool `json:"on_complete,omitempty"`
	EscalationHours int  `json:"escalation_hours,omitempty"`
}

type StepFiles struct {
	Required []string `json:"required,omitempty"`
	Outputs  []string `json:"outputs,omitempty"`
}

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepOverdue    StepStatus = "overdue"
)

func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepInProgress, StepCompleted, StepOverdue:
		return true
	}
	return false
}

type InstanceStatus string

const (
	StatusActive    InstanceStatus = "active"
	StatusCompleted InstanceStatus = "completed"
	StatusOnHold    InstanceStatus = "on_hold"
	StatusCancelled InstanceStatus = "cancelled"
)

func (s InstanceStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusOnHold, StatusCancelled:
		return true
	}
	return false
}

// Instance is one execution of a template. TemplateName and SessionType are
// copied at creation so later template edits do not change what is displayed.
type Instance struct {
	ID                string                  `json:"id"`
	OrganizationID    string                  `json:"organization_id,omitempty"`
	TemplateID        string                  `json:"template_id"`
	TemplateName      string                  `json:"template_name"`
	SessionType       string                  `json:"session_type,omitempty"`
	SessionID         string                  `json:"session_id,omitempty"`
	SchoolID          string                  `json:"school_id,omitempty"`
	TrackingStartDate *Date                   `json:"tracking_start_date,omitempty"`
	AnchorDate        Date                    `json:"anchor_date"`
	Status            InstanceStatus          `json:"status"`
	StepProgress      map[string]StepProgress `json:"step_progress,omitempty"`
	CreatedBy         string                  `json:"created_by,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
	ArchivedAt        *time.Time              `json:"archived_at,omitempty"`
}

// IsTracking reports whether the instance is a freestanding task rather than
// a session workflow.
func (i Instance) IsTracking() bool {
	return i.SessionID == ""
}

// Progress returns the recorded progress for a step. Steps without an entry
// are pending.
func (i Instance) Progress(stepID string) StepProgress {
	if p, ok := i.StepProgress[stepID]; ok {
		return p
	}
	return StepProgress{Status: StepPending}
}

// Clone returns a copy that shares no mutable state with i.
func (i Instance) Clone() Instance {
	out := i
	if i.TrackingStartDate != nil {
		d := *i.TrackingStartDate
		out.TrackingStartDate = &d
	}
	if i.ArchivedAt != nil {
		t := *i.ArchivedAt
		out.ArchivedAt = &t
	}
	out.StepProgress = make(map[string]StepProgress, len(i.StepProgress))
	for id, p := range i.StepProgress {
		out.StepProgress[id] = p.clone()
	}
	return out
}

type StepProgress struct {
	Status      StepStatus `json:"status"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Files       []string   `json:"files,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
	UpdatedBy   string     `json:"updated_by,omitempty"`
}

func (p StepProgress) clone() StepProgress {
	out := p
	if p.Files != nil {
		out.Files = append([]string(nil), p.Files...)
	}
	if p.StartTime != nil {
		t := *p.StartTime
		out.StartTime = &t
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RolePhotographer Role = "photographer"
	RoleEditor       Role = "editor"
	RoleStaff        Role = "staff"
)

type Actor struct {
	ID             string `json:"id"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// CanManage reports whether the actor may assign steps, edit templates and
// change workflow status.
func (a Actor) CanManage() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}
