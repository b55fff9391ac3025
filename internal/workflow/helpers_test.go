package workflow

import "time"

var (
	t0      = time.Date(2024, time.August, 20, 9, 0, 0, 0, time.UTC)
	admin   = Actor{ID: "u_admin", Role: RoleAdmin, OrganizationID: "org_1"}
	editor  = Actor{ID: "u_editor", Role: RoleEditor, OrganizationID: "org_1"}
	manager = Actor{ID: "u_manager", Role: RoleManager, OrganizationID: "org_1"}
)

func chainTemplate() Template {
	return Template{
		ID:            "tpl_chain",
		Name:          "Wedding",
		EstimatedDays: 10,
		IsActive:      true,
		Groups: []Group{
			{ID: "prep", Name: "Prep", Order: 1},
			{ID: "edit", Name: "Edit", Order: 2},
			{ID: "deliver", Name: "Deliver", Order: 3},
		},
		Steps: []Step{
			{ID: "S1", Title: "Consult", GroupID: "prep", EstimatedHours: 1, DueOffsetDays: -2},
			{ID: "S2", Title: "Edit", GroupID: "edit", EstimatedHours: 4, DueOffsetDays: 3, Dependencies: []string{"S1"}},
			{ID: "S3", Title: "Deliver", GroupID: "deliver", EstimatedHours: 1, DueOffsetDays: 10, Dependencies: []string{"S2"}},
		},
	}
}

func newInstance(tpl Template) Instance {
	return Instance{
		ID:           "wf_1",
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		Status:       StatusActive,
		AnchorDate:   NewDate(2024, time.September, 1),
		StepProgress: map[string]StepProgress{},
	}
}
