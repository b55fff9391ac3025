package workflow

import "time"

// TemplateVersion is the snapshot of a template taken before an edit.
type TemplateVersion struct {
	ID          string    `json:"id"`
	TemplateID  string    `json:"template_id"`
	Version     int       `json:"version"`
	Payload     Template  `json:"payload"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
}

func snapshot(t Template, actor Actor, now time.Time) TemplateVersion {
	return TemplateVersion{
		ID:         newID("tplver"),
		TemplateID: t.ID,
		Version:    t.Version,
		Payload:    t,
		CreatedBy:  actor.ID,
		CreatedAt:  now,
	}
}
