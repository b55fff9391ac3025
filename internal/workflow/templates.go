package workflow

import (
	"strings"
	"time"
)

type TemplateKey string

const (
	TemplatePortrait   TemplateKey = "portrait"
	TemplateSports     TemplateKey = "sports"
	TemplateWedding    TemplateKey = "wedding"
	TemplateGraduation TemplateKey = "graduation"
)

// templatePriority is the order keyword matching is tried in.
var templatePriority = []TemplateKey{TemplatePortrait, TemplateSports, TemplateWedding, TemplateGraduation}

var sessionTypeTemplates = map[string]TemplateKey{
	"portrait":           TemplatePortrait,
	"portraits":          TemplatePortrait,
	"headshot":           TemplatePortrait,
	"headshots":          TemplatePortrait,
	"family":             TemplatePortrait,
	"school_portrait":    TemplatePortrait,
	"picture_day":        TemplatePortrait,
	"retake":             TemplatePortrait,
	"sports":             TemplateSports,
	"sport":              TemplateSports,
	"team":               TemplateSports,
	"team_photos":        TemplateSports,
	"sports_photography": TemplateSports,
	"wedding":            TemplateWedding,
	"engagement":         TemplateWedding,
	"elopement":          TemplateWedding,
	"graduation":         TemplateGraduation,
	"commencement":       TemplateGraduation,
	"cap_and_gown":       TemplateGraduation,
	"senior":             TemplateGraduation,
}

var templateKeywords = map[TemplateKey][]string{
	TemplatePortrait:   {"portrait", "headshot", "family", "individual", "newborn", "maternity", "picture"},
	TemplateSports:     {"sport", "team", "athletic", "league", "game", "tournament"},
	TemplateWedding:    {"wedding", "bridal", "engagement", "ceremony", "elopement", "reception"},
	TemplateGraduation: {"graduat", "grad", "commencement", "cap_and_gown", "senior", "prom"},
}

// ResolveTemplateForSessionType maps a session type to a default template
// key: exact table first, then keyword match in priority order, then
// portrait. Every input resolves.
func ResolveTemplateForSessionType(sessionType string) TemplateKey {
	normalized := normalizeSessionType(sessionType)
	if normalized == "" {
		return TemplatePortrait
	}
	if key, ok := sessionTypeTemplates[normalized]; ok {
		return key
	}
	for _, key := range templatePriority {
		for _, kw := range templateKeywords[key] {
			if strings.Contains(normalized, kw) {
				return key
			}
		}
	}
	return TemplatePortrait
}

func normalizeSessionType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// TemplateOverrides replaces parts of a default blueprint. Nil fields keep
// the blueprint value.
type TemplateOverrides struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	SessionTypes  []string `json:"session_types,omitempty"`
	Steps         []Step   `json:"steps,omitempty"`
	EstimatedDays *int     `json:"estimated_days,omitempty"`
}

// InstantiateTemplate copies a default blueprint into an organization-owned
// template.
func InstantiateTemplate(organizationID string, key TemplateKey, overrides TemplateOverrides, now time.Time) (Template, error) {
	base, ok := DefaultTemplate(key)
	if !ok {
		return Template{}, &UnknownTemplateKindError{Key: string(key)}
	}
	tpl := base
	tpl.ID = newID("tpl")
	tpl.OrganizationID = organizationID
	tpl.IsDefault = false
	tpl.IsActive = true
	tpl.Version = 1
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	if overrides.Name != nil {
		tpl.Name = *overrides.Name
	}
	if overrides.Description != nil {
		tpl.Description = *overrides.Description
	}
	if overrides.SessionTypes != nil {
		tpl.SessionTypes = append([]string(nil), overrides.SessionTypes...)
	}
	if overrides.Steps != nil {
		tpl.Steps = append([]Step(nil), overrides.Steps...)
	}
	if overrides.EstimatedDays != nil {
		tpl.EstimatedDays = *overrides.EstimatedDays
	}
	return tpl, nil
}

// DefaultTemplate returns a fresh copy of one built-in blueprint.
func DefaultTemplate(key TemplateKey) (Template, bool) {
	for _, t := range DefaultTemplates() {
		if t.Key == key {
			return t, true
		}
	}
	return Template{}, false
}

func phaseGroups() []Group {
	return []Group{
		{ID: "pre_shoot", Name: "Pre-Shoot", Description: "Booking and preparation", Color: "#6366f1", Order: 1},
		{ID: "shoot", Name: "Shoot", Description: "Day-of coverage", Color: "#0ea5e9", Order: 2},
		{ID: "editing", Name: "Editing", Description: "Culling and retouching", Color: "#f59e0b", Order: 3},
		{ID: "production", Name: "Production", Description: "Proofing, printing and delivery", Color: "#10b981", Order: 4},
	}
}

// DefaultTemplates returns the built-in blueprints. Each call returns new
// slices so callers may modify the result.
func DefaultTemplates() []Template {
	return []Template{
		{
			ID:            "default_portrait",
			Key:           TemplatePortrait,
			Name:          "Portrait Session",
			Description:   "Individual and family portrait sessions from booking to gallery delivery",
			SessionTypes:  []string{"portrait", "headshot", "family"},
			EstimatedDays: 14,
			Groups:        phaseGroups(),
			IsActive:      true,
			IsDefault:     true,
			Version:       1,
			Steps: []Step{
				{ID: "confirm_booking", Title: "Confirm booking", GroupID: "pre_shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RoleManager), EstimatedHours: 0.5, DueOffsetDays: -7, Notifications: Notifications{OnComplete: true}},
				{ID: "prep_shot_list", Title: "Prepare shot list", GroupID: "pre_shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RolePhotographer), EstimatedHours: 1, DueOffsetDays: -2, Dependencies: []string{"confirm_booking"}},
				{ID: "photo_session", Title: "Photo session", GroupID: "shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RolePhotographer), EstimatedHours: 2, DueOffsetDays: 0, Dependencies: []string{"prep_shot_list"}, Notifications: Notifications{OnStart: true}, Files: StepFiles{Outputs: []string{"raw_images"}}},
				{ID: "cull_images", Title: "Cull images", GroupID: "editing", AssigneeRule: AssignByRole, AssigneeValue: string(RoleEditor), EstimatedHours: 2, DueOffsetDays: 2, Dependencies: []string{"photo_session"}, Files: StepFiles{Required: []string{"raw_images"}}},
				{ID: "retouch", Title: "Retouch selects", GroupID: "editing", AssigneeRule: AssignByRole, AssigneeValue: string(RoleEditor), EstimatedHours: 4, DueOffsetDays: 5, Dependencies: []string{"cull_images"}, Notifications: Notifications{EscalationHours: 48}, Files: StepFiles{Outputs: []string{"edited_images"}}},
				{ID: "client_proofing", Title: "Client proofing", Kind: ApprovalKind{MinApprovals: 1}, GroupID: "production", AssigneeRule: AssignByRole, AssigneeValue: string(RoleManager), EstimatedHours: 1, DueOffsetDays: 7, Dependencies: []string{"retouch"}, Notifications: Notifications{OnComplete: true}},
				{ID: "deliver_gallery", Title: "Deliver gallery", Kind: NotificationKind{Channel: "email", Message: "Your gallery is ready"}, GroupID: "production", AssigneeRule: AssignAuto, EstimatedHours: 0.5, DueOffsetDays: 10, Dependencies: []string{"client_proofing"}, Notifications: Notifications{OnComplete: true}},
			},
		},
		{
			ID:            "default_sports",
			Key:           TemplateSports,
			Name:          "Sports Team Session",
			Description:   "League and team photography with roster matching and print runs",
			SessionTypes:  []string{"sports", "team"},
			EstimatedDays: 21,
			Groups:        phaseGroups(),
			IsActive:      true,
			IsDefault:     true,
			Version:       1,
			Steps: []Step{
				{ID: "import_roster", Title: "Import team rosters", GroupID: "pre_shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RoleManager), EstimatedHours: 1, DueOffsetDays: -14, Files: StepFiles{Required: []string{"roster.csv"}}},
				{ID: "schedule_teams", Title: "Schedule team slots", GroupID: "pre_shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RoleManager), EstimatedHours: 2, DueOffsetDays: -7, Dependencies: []string{"import_roster"}, Notifications: Notifications{OnComplete: true}},
				{ID: "equipment_check", Title: "Equipment check", GroupID: "pre_shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RolePhotographer), EstimatedHours: 1, DueOffsetDays: -1},
				{ID: "team_shoot", Title: "Team and individual shoot", GroupID: "shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RolePhotographer), EstimatedHours: 6, DueOffsetDays: 0, Dependencies: []string{"schedule_teams", "equipment_check"}, Notifications: Notifications{OnStart: true}},
				{ID: "match_roster", Title: "Match images to roster", GroupID: "editing", AssigneeRule: AssignByRole, AssigneeValue: string(RoleEditor), EstimatedHours: 4, DueOffsetDays: 2, Dependencies: []string{"team_shoot"}},
				{ID: "color_correct", Title: "Color correction", GroupID: "editing", AssigneeRule: AssignByRole, AssigneeValue: string(RoleEditor), EstimatedHours: 6, DueOffsetDays: 5, Dependencies: []string{"match_roster"}, Notifications: Notifications{EscalationHours: 72}},
				{ID: "order_window", Title: "Order window", Kind: DelayKind{Days: 7}, GroupID: "production", AssigneeRule: AssignAuto, EstimatedHours: 0.25, DueOffsetDays: 12, Dependencies: []string{"color_correct"}},
				{ID: "print_production", Title: "Print production", GroupID: "production", AssigneeRule: AssignByRole, AssigneeValue: string(RoleStaff), EstimatedHours: 5, DueOffsetDays: 17, Dependencies: []string{"order_window"}},
				{ID: "distribute_packages", Title: "Distribute packages", GroupID: "production", AssigneeRule: AssignByRole, AssigneeValue: string(RoleStaff), EstimatedHours: 2, DueOffsetDays: 21, Dependencies: []string{"print_production"}, Notifications: Notifications{OnComplete: true}},
			},
		},
		{
			ID:            "default_wedding",
			Key:           TemplateWedding,
			Name:          "Wedding",
			Description:   "Ceremony coverage from planning consult to album delivery",
			SessionTypes:  []string{"wedding", "engagement"},
			EstimatedDays: 60,
			Groups:        phaseGroups(),
			IsActive:      true,
			IsDefault:     true,
			Version:       1,
			Steps: []Step{
				{ID: "planning_consult", Title: "Planning consultation", GroupID: "pre_shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RolePhotographer), EstimatedHours: 1.5, DueOffsetDays: -30},
				{ID: "timeline_review", Title: "Review day-of timeline", GroupID: "pre_shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RolePhotographer), EstimatedHours: 1, DueOffsetDays: -7, Dependencies: []string{"planning_consult"}},
				{ID: "ceremony_coverage", Title: "Ceremony coverage", GroupID: "shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RolePhotographer), EstimatedHours: 10, DueOffsetDays: 0, Dependencies: []string{"timeline_review"}, Notifications: Notifications{OnStart: true}},
				{ID: "backup_images", Title: "Back up cards", GroupID: "shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RolePhotographer), EstimatedHours: 1, DueOffsetDays: 1, Dependencies: []string{"ceremony_coverage"}},
				{ID: "sneak_peek", Title: "Send sneak peek", Kind: NotificationKind{Channel: "email", Message: "A few favourites from your day"}, GroupID: "editing", AssigneeRule: AssignByRole, AssigneeValue: string(RoleEditor), EstimatedHours: 2, DueOffsetDays: 3, Dependencies: []string{"backup_images"}, Notifications: Notifications{OnComplete: true}},
				{ID: "full_edit", Title: "Full gallery edit", GroupID: "editing", AssigneeRule: AssignByRole, AssigneeValue: string(RoleEditor), EstimatedHours: 20, DueOffsetDays: 30, Dependencies: []string{"backup_images"}, Notifications: Notifications{EscalationHours: 120}},
				{ID: "album_design", Title: "Album design approval", Kind: ApprovalKind{MinApprovals: 2}, GroupID: "production", AssigneeRule: AssignByRole, AssigneeValue: string(RoleManager), EstimatedHours: 6, DueOffsetDays: 45, Dependencies: []string{"full_edit"}},
				{ID: "deliver_album", Title: "Deliver gallery and album", GroupID: "production", AssigneeRule: AssignByRole, AssigneeValue: string(RoleStaff), EstimatedHours: 1, DueOffsetDays: 60, Dependencies: []string{"album_design", "sneak_peek"}, Notifications: Notifications{OnComplete: true}},
			},
		},
		{
			ID:            "default_graduation",
			Key:           TemplateGraduation,
			Name:          "Graduation",
			Description:   "Commencement coverage with optional studio portraits",
			SessionTypes:  []string{"graduation", "commencement"},
			EstimatedDays: 14,
			Groups:        phaseGroups(),
			IsActive:      true,
			IsDefault:     true,
			Version:       1,
			Steps: []Step{
				{ID: "confirm_ceremony", Title: "Confirm ceremony details", GroupID: "pre_shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RoleManager), EstimatedHours: 1, DueOffsetDays: -14},
				{ID: "studio_portraits", Title: "Studio portraits", Kind: ConditionalKind{Field: "include_studio_portraits", Equals: "yes"}, GroupID: "pre_shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RolePhotographer), EstimatedHours: 3, DueOffsetDays: -3, Dependencies: []string{"confirm_ceremony"}},
				{ID: "commencement_coverage", Title: "Commencement coverage", GroupID: "shoot", AssigneeRule: AssignByRole, AssigneeValue: string(RolePhotographer), EstimatedHours: 4, DueOffsetDays: 0, Dependencies: []string{"confirm_ceremony"}, Notifications: Notifications{OnStart: true}},
				{ID: "cull_and_name", Title: "Cull and name images", GroupID: "editing", AssigneeRule: AssignByRole, AssigneeValue: string(RoleEditor), EstimatedHours: 3, DueOffsetDays: 2, Dependencies: []string{"commencement_coverage"}},
				{ID: "edit_selects", Title: "Edit selects", GroupID: "editing", AssigneeRule: AssignByRole, AssigneeValue: string(RoleEditor), EstimatedHours: 4, DueOffsetDays: 5, Dependencies: []string{"cull_and_name"}},
				{ID: "proof_approval", Title: "Proof approval", Kind: ApprovalKind{MinApprovals: 1}, GroupID: "production", AssigneeRule: AssignByRole, AssigneeValue: string(RoleManager), EstimatedHours: 1, DueOffsetDays: 7, Dependencies: []string{"edit_selects"}},
				{ID: "print_and_ship", Title: "Print and ship", GroupID: "production", AssigneeRule: AssignByRole, AssigneeValue: string(RoleStaff), EstimatedHours: 2, DueOffsetDays: 14, Dependencies: []string{"proof_approval"}, Notifications: Notifications{OnComplete: true}},
			},
			CustomFormFields: []FormField{
				{ID: "include_studio_portraits", Label: "Include studio portraits", Type: "select", Options: []string{"yes", "no"}},
			},
		},
	}
}
