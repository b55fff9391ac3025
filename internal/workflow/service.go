package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/cache"
	"github.com/ronappleton/studioflow/internal/overlay"
	"github.com/ronappleton/studioflow/internal/studio"
)

// SystemActor is used for writes that do not originate from a user, such as
// template directory sync.
var SystemActor = Actor{ID: "system", Role: RoleAdmin}

type ServiceOptions struct {
	Store       Store
	Directory   studio.Directory
	Templates   cache.Cache[[]Template]
	TemplateTTL time.Duration
	Notifier    *Notifier
	Logger      *zap.Logger
	Now         func() time.Time
}

// Service is the mutation and read entry point over a Store. Every instance
// write goes through the pending overlay first so reads issued while the
// store write is in flight see the new state; a failed write drops it again.
type Service struct {
	store       Store
	directory   studio.Directory
	templates   cache.Cache[[]Template]
	templateTTL time.Duration
	pending     *overlay.Overlay[string, Instance]
	notifier    *Notifier
	logger      *zap.Logger
	now         func() time.Time

	tracer          trace.Tracer
	transitions     metric.Int64Counter
	rejections      metric.Int64Counter
	persistFailures metric.Int64Counter
}

func NewService(opts ServiceOptions) *Service {
	s := &Service{
		store:       opts.Store,
		directory:   opts.Directory,
		templates:   opts.Templates,
		templateTTL: opts.TemplateTTL,
		pending:     overlay.New[string, Instance](),
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		now:         opts.Now,
		tracer:      otel.Tracer("studioflow/workflow"),
	}
	if s.store == nil {
		s.store = NewMemoryStore()
	}
	if s.directory == nil {
		s.directory = studio.NewMemoryDirectory()
	}
	if s.templates == nil {
		s.templates = cache.Nop[[]Template]{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	meter := otel.Meter("studioflow/workflow")
	s.transitions, _ = meter.Int64Counter("studioflow.step.transitions",
		metric.WithDescription("Step status transitions persisted"))
	s.rejections, _ = meter.Int64Counter("studioflow.step.rejections",
		metric.WithDescription("Step mutations rejected by validation"))
	s.persistFailures, _ = meter.Int64Counter("studioflow.store.failures",
		metric.WithDescription("Store writes that failed"))
	return s
}

// Now is the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) Directory() studio.Directory {
	return s.directory
}

// Templates

func (s *Service) ListTemplates(ctx context.Context, organizationID string) ([]Template, error) {
	if cached, ok := s.templates.Get(organizationID); ok {
		return cached, nil
	}
	list, err := s.store.ListTemplates(ctx, organizationID)
	if err != nil {
		return nil, &PersistenceError{Op: "list templates", Err: err}
	}
	s.templates.Set(organizationID, list, s.templateTTL)
	return list, nil
}

func (s *Service) GetTemplate(ctx context.Context, id string) (Template, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return Template{}, storeErr("get template", err)
	}
	return t, nil
}

func (s *Service) CreateTemplate(ctx context.Context, actor Actor, t Template) (Template, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.CreateTemplate")
	defer span.End()
	if !actor.CanManage() {
		return Template{}, &ForbiddenError{Action: "create templates", Role: actor.Role}
	}
	if err := ValidateTemplate(t); err != nil {
		s.logger.Warn("template rejected", zap.String("name", t.Name), zap.Error(err))
		return Template{}, err
	}
	now := s.now()
	if t.OrganizationID == "" {
		t.OrganizationID = actor.OrganizationID
	}
	t.Version = 1
	t.IsActive = true
	t.CreatedBy = actor.ID
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.ID == "" {
		t.ID = newID("tpl")
	}
	id, err := s.store.CreateTemplate(ctx, t)
	if err != nil {
		return Template{}, s.persistFailed(ctx, span, "create template", err)
	}
	t.ID = id
	s.invalidateTemplates(t.OrganizationID)
	s.logger.Info("template created", zap.String("template_id", t.ID), zap.String("name", t.Name))
	return t, nil
}

// UpdateTemplate replaces a template, snapshotting the previous revision and
// bumping Version. Existing instances keep their frozen name.
func (s *Service) UpdateTemplate(ctx context.Context, actor Actor, t Template) (Template, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.UpdateTemplate", trace.WithAttributes(attribute.String("template.id", t.ID)))
	defer span.End()
	if !actor.CanManage() {
		return Template{}, &ForbiddenError{Action: "edit templates", Role: actor.Role}
	}
	if err := ValidateTemplate(t); err != nil {
		s.logger.Warn("template rejected", zap.String("template_id", t.ID), zap.Error(err))
		return Template{}, err
	}
	existing, err := s.store.GetTemplate(ctx, t.ID)
	if err != nil {
		return Template{}, storeErr("get template", err)
	}
	now := s.now()
	if err := s.store.SaveVersion(ctx, snapshot(existing, actor, now)); err != nil {
		return Template{}, s.persistFailed(ctx, span, "save template version", err)
	}
	t.Version = existing.Version + 1
	t.IsActive = existing.IsActive
	t.CreatedBy = existing.CreatedBy
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = now
	if t.OrganizationID == "" {
		t.OrganizationID = existing.OrganizationID
	}
	if err := s.store.UpdateTemplate(ctx, t); err != nil {
		return Template{}, s.persistFailed(ctx, span, "update template", err)
	}
	s.invalidateTemplates(existing.OrganizationID, t.OrganizationID)
	s.logger.Info("template updated", zap.String("template_id", t.ID), zap.Int("version", t.Version))
	return t, nil
}

// DeleteTemplate hard-deletes a template that was never instantiated and
// otherwise deactivates it. deactivated reports which happened.
func (s *Service) DeleteTemplate(ctx context.Context, actor Actor, id string) (deactivated bool, err error) {
	ctx, span := s.tracer.Start(ctx, "workflow.DeleteTemplate", trace.WithAttributes(attribute.String("template.id", id)))
	defer span.End()
	if !actor.CanManage() {
		return false, &ForbiddenError{Action: "delete templates", Role: actor.Role}
	}
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return false, storeErr("get template", err)
	}
	n, err := s.store.CountInstances(ctx, id)
	if err != nil {
		return false, s.persistFailed(ctx, span, "count instances", err)
	}
	if n == 0 {
		err = s.store.DeleteTemplate(ctx, id)
		if err == nil {
			s.invalidateTemplates(t.OrganizationID)
			s.logger.Info("template deleted", zap.String("template_id", id))
			return false, nil
		}
		if !errors.Is(err, ErrTemplateInUse) {
			return false, s.persistFailed(ctx, span, "delete template", err)
		}
	}
	t.IsActive = false
	t.UpdatedAt = s.now()
	if err := s.store.UpdateTemplate(ctx, t); err != nil {
		return false, s.persistFailed(ctx, span, "deactivate template", err)
	}
	s.invalidateTemplates(t.OrganizationID)
	s.logger.Info("template deactivated", zap.String("template_id", id), zap.Int("instances", n))
	return true, nil
}

func (s *Service) ListVersions(ctx context.Context, templateID string) ([]TemplateVersion, error) {
	if _, err := s.store.GetTemplate(ctx, templateID); err != nil {
		return nil, storeErr("get template", err)
	}
	v, err := s.store.ListVersions(ctx, templateID)
	if err != nil {
		return nil, &PersistenceError{Op: "list template versions", Err: err}
	}
	return v, nil
}

// InstantiateDefault copies a built-in blueprint into the actor's
// organization.
func (s *Service) InstantiateDefault(ctx context.Context, actor Actor, key TemplateKey, overrides TemplateOverrides) (Template, error) {
	t, err := InstantiateTemplate(actor.OrganizationID, key, overrides, s.now())
	if err != nil {
		return Template{}, err
	}
	return s.CreateTemplate(ctx, actor, t)
}

// UpsertTemplate creates t or, when a template with its id exists, updates
// it. created reports which happened.
func (s *Service) UpsertTemplate(ctx context.Context, actor Actor, t Template) (Template, bool, error) {
	if t.ID != "" {
		_, err := s.store.GetTemplate(ctx, t.ID)
		switch {
		case err == nil:
			out, err := s.UpdateTemplate(ctx, actor, t)
			return out, false, err
		case !errors.Is(err, ErrNotFound):
			return Template{}, false, &PersistenceError{Op: "get template", Err: err}
		}
	}
	out, err := s.CreateTemplate(ctx, actor, t)
	return out, true, err
}

func (s *Service) invalidateTemplates(orgIDs ...string) {
	for _, id := range orgIDs {
		s.templates.Invalidate(id)
	}
	// shared templates appear in every organization's list
	for _, id := range orgIDs {
		if id == "" {
			if f, ok := s.templates.(interface{ Flush() }); ok {
				f.Flush()
			}
			return
		}
	}
}

// Instances

type CreateInstanceRequest struct {
	TemplateID        string `json:"template_id"`
	SessionID         string `json:"session_id,omitempty"`
	SchoolID          string `json:"school_id,omitempty"`
	SessionType       string `json:"session_type,omitempty"`
	TrackingStartDate *Date  `json:"tracking_start_date,omitempty"`
}

// CreateInstance attaches a template to a session or starts a tracking
// workflow. The anchor date is frozen from the session date or the tracking
// start date.
func (s *Service) CreateInstance(ctx context.Context, actor Actor, req CreateInstanceRequest) (Instance, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.CreateInstance", trace.WithAttributes(attribute.String("template.id", req.TemplateID)))
	defer span.End()
	tpl, err := s.store.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return Instance{}, storeErr("get template", err)
	}
	if !tpl.IsActive {
		return Instance{}, fmt.Errorf("template %s: %w", tpl.ID, ErrTemplateInactive)
	}
	now := s.now()
	inst := Instance{
		ID:             newID("wf"),
		OrganizationID: actor.OrganizationID,
		TemplateID:     tpl.ID,
		TemplateName:   tpl.Name,
		SessionType:    req.SessionType,
		SessionID:      req.SessionID,
		SchoolID:       req.SchoolID,
		Status:         StatusActive,
		StepProgress:   map[string]StepProgress{},
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if inst.OrganizationID == "" {
		inst.OrganizationID = tpl.OrganizationID
	}
	if req.SessionID != "" {
		sess, err := s.directory.Session(ctx, req.SessionID)
		if err != nil {
			if errors.Is(err, studio.ErrSessionNotFound) {
				return Instance{}, fmt.Errorf("session %s: %w", req.SessionID, ErrNotFound)
			}
			return Instance{}, &PersistenceError{Op: "get session", Err: err}
		}
		if sess.Date != "" {
			anchor, err := ParseDate(sess.Date)
			if err != nil {
				return Instance{}, fmt.Errorf("session %s date: %w", sess.ID, err)
			}
			inst.AnchorDate = anchor
		}
		if inst.SchoolID == "" {
			inst.SchoolID = sess.SchoolID
		}
		if inst.SessionType == "" {
			inst.SessionType = sess.PrimarySessionType()
		}
	} else if req.TrackingStartDate != nil {
		d := *req.TrackingStartDate
		inst.TrackingStartDate = &d
		inst.AnchorDate = d
	}
	if err := s.store.CreateInstance(ctx, inst); err != nil {
		return Instance{}, s.persistFailed(ctx, span, "create instance", err)
	}
	s.logger.Info("workflow created",
		zap.String("instance_id", inst.ID),
		zap.String("template_id", tpl.ID),
		zap.String("session_id", inst.SessionID))
	return inst, nil
}

func (s *Service) GetInstance(ctx context.Context, id string) (Instance, error) {
	inst, err := s.store.GetInstance(ctx, id)
	if err != nil {
		return Instance{}, storeErr("get instance", err)
	}
	return s.pending.Apply(id, inst), nil
}

func (s *Service) ListInstances(ctx context.Context, organizationID string) ([]Instance, error) {
	list, err := s.store.ListInstances(ctx, organizationID)
	if err != nil {
		return nil, &PersistenceError{Op: "list instances", Err: err}
	}
	for i := range list {
		list[i] = s.pending.Apply(list[i].ID, list[i])
	}
	return list, nil
}

// Snapshot is everything the overview needs for one organization.
type Snapshot struct {
	Instances []Instance
	Templates map[string]Template
	Sessions  map[string]studio.SessionSummary
}

func (s *Service) Snapshot(ctx context.Context, organizationID string) (Snapshot, error) {
	instances, err := s.ListInstances(ctx, organizationID)
	if err != nil {
		return Snapshot{}, err
	}
	templates, err := s.ListTemplates(ctx, organizationID)
	if err != nil {
		return Snapshot{}, err
	}
	byID := make(map[string]Template, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	for _, inst := range instances {
		if _, ok := byID[inst.TemplateID]; ok {
			continue
		}
		t, err := s.store.GetTemplate(ctx, inst.TemplateID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return Snapshot{}, &PersistenceError{Op: "get template", Err: err}
		}
		byID[t.ID] = t
	}
	for i, inst := range instances {
		if t, ok := byID[inst.TemplateID]; ok {
			instances[i] = reconcileStatus(inst, t)
		}
	}
	sessions, err := s.directory.Sessions(ctx, organizationID)
	if err != nil {
		return Snapshot{}, &PersistenceError{Op: "list sessions", Err: err}
	}
	return Snapshot{Instances: instances, Templates: byID, Sessions: sessions}, nil
}

func (s *Service) TeamMembers(ctx context.Context, organizationID string) ([]studio.TeamMember, error) {
	members, err := s.directory.TeamMembers(ctx, organizationID)
	if err != nil {
		return nil, &PersistenceError{Op: "list team members", Err: err}
	}
	return members, nil
}

// Step mutations

func (s *Service) TransitionStep(ctx context.Context, actor Actor, instanceID, stepID string, target StepStatus) (Instance, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.TransitionStep", trace.WithAttributes(
		attribute.String("instance.id", instanceID),
		attribute.String("step.id", stepID),
		attribute.String("step.target", string(target)),
	))
	defer span.End()
	inst, tpl, err := s.load(ctx, actor, instanceID)
	if err != nil {
		return Instance{}, err
	}
	next, err := TransitionStep(inst, tpl, stepID, target, actor, s.now())
	if err != nil {
		return Instance{}, s.rejected(ctx, "transition step", instanceID, stepID, err)
	}
	if err := s.commit(ctx, span, "transition step", inst, next, stepID); err != nil {
		return Instance{}, err
	}
	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("target", string(target))))
	s.notifyTransition(ctx, inst, next, tpl, stepID, actor)
	return next, nil
}

// CompleteStep records notes and files and completes the step in one write.
func (s *Service) CompleteStep(ctx context.Context, actor Actor, instanceID, stepID string, details StepDetails) (Instance, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.CompleteStep", trace.WithAttributes(
		attribute.String("instance.id", instanceID),
		attribute.String("step.id", stepID),
	))
	defer span.End()
	inst, tpl, err := s.load(ctx, actor, instanceID)
	if err != nil {
		return Instance{}, err
	}
	now := s.now()
	next, err := TransitionStep(inst, tpl, stepID, StepCompleted, actor, now)
	if err != nil {
		return Instance{}, s.rejected(ctx, "complete step", instanceID, stepID, err)
	}
	next, err = UpdateStepDetails(next, tpl, stepID, details, actor, now)
	if err != nil {
		return Instance{}, s.rejected(ctx, "complete step", instanceID, stepID, err)
	}
	if err := s.commit(ctx, span, "complete step", inst, next, stepID); err != nil {
		return Instance{}, err
	}
	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("target", string(StepCompleted))))
	s.notifyTransition(ctx, inst, next, tpl, stepID, actor)
	return next, nil
}

func (s *Service) UpdateStepDetails(ctx context.Context, actor Actor, instanceID, stepID string, details StepDetails) (Instance, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.UpdateStepDetails")
	defer span.End()
	inst, tpl, err := s.load(ctx, actor, instanceID)
	if err != nil {
		return Instance{}, err
	}
	next, err := UpdateStepDetails(inst, tpl, stepID, details, actor, s.now())
	if err != nil {
		return Instance{}, s.rejected(ctx, "update step", instanceID, stepID, err)
	}
	if err := s.commit(ctx, span, "update step", inst, next, stepID); err != nil {
		return Instance{}, err
	}
	return next, nil
}

func (s *Service) AssignStep(ctx context.Context, actor Actor, instanceID, stepID, assigneeID string) (Instance, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.AssignStep", trace.WithAttributes(
		attribute.String("instance.id", instanceID),
		attribute.String("step.id", stepID),
	))
	defer span.End()
	inst, tpl, err := s.load(ctx, actor, instanceID)
	if err != nil {
		return Instance{}, err
	}
	next, err := AssignStep(inst, tpl, stepID, assigneeID, actor, s.now())
	if err != nil {
		return Instance{}, s.rejected(ctx, "assign step", instanceID, stepID, err)
	}
	if err := s.commit(ctx, span, "assign step", inst, next, stepID); err != nil {
		return Instance{}, err
	}
	s.logger.Info("step assigned",
		zap.String("instance_id", instanceID),
		zap.String("step_id", stepID),
		zap.String("assignee", assigneeID))
	return next, nil
}

func (s *Service) SetWorkflowStatus(ctx context.Context, actor Actor, instanceID string, status InstanceStatus) (Instance, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.SetWorkflowStatus", trace.WithAttributes(
		attribute.String("instance.id", instanceID),
		attribute.String("status", string(status)),
	))
	defer span.End()
	inst, tpl, err := s.load(ctx, actor, instanceID)
	if err != nil {
		return Instance{}, err
	}
	next, err := SetWorkflowStatus(inst, tpl, status, actor, s.now())
	if err != nil {
		return Instance{}, s.rejected(ctx, "set workflow status", instanceID, "", err)
	}
	if err := s.commit(ctx, span, "set workflow status", inst, next); err != nil {
		return Instance{}, err
	}
	s.logger.Info("workflow status changed",
		zap.String("instance_id", instanceID),
		zap.String("from", string(inst.Status)),
		zap.String("to", string(next.Status)))
	return next, nil
}

// MoveToGroup is the kanban drag: a sequence of independent transitions.
// Each successful transition is persisted on its own; steps that fail
// validation are reported as skipped. A store failure stops the move and is
// returned together with the partial report.
func (s *Service) MoveToGroup(ctx context.Context, actor Actor, instanceID, groupID string) (Instance, MoveReport, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.MoveToGroup", trace.WithAttributes(
		attribute.String("instance.id", instanceID),
		attribute.String("group.id", groupID),
	))
	defer span.End()
	report := MoveReport{GroupID: groupID}
	inst, tpl, err := s.load(ctx, actor, instanceID)
	if err != nil {
		return Instance{}, report, err
	}
	plan, err := PlanMoveToGroup(inst, tpl, groupID)
	if err != nil {
		return Instance{}, report, err
	}
	cur := inst
	for _, t := range plan {
		next, err := TransitionStep(cur, tpl, t.StepID, t.Target, actor, s.now())
		if err != nil {
			report.record(t, err)
			continue
		}
		if err := s.commit(ctx, span, "move to group", cur, next, t.StepID); err != nil {
			return cur, report, err
		}
		report.record(t, nil)
		s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("target", string(t.Target))))
		s.notifyTransition(ctx, cur, next, tpl, t.StepID, actor)
		cur = next
	}
	if report.Partial() {
		s.logger.Warn("group move partially applied",
			zap.String("instance_id", instanceID),
			zap.String("group_id", groupID),
			zap.Int("skipped", len(report.Skipped)))
	}
	return cur, report, nil
}

func (s *Service) load(ctx context.Context, actor Actor, instanceID string) (Instance, Template, error) {
	inst, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return Instance{}, Template{}, err
	}
	if actor.OrganizationID != "" && inst.OrganizationID != "" && actor.OrganizationID != inst.OrganizationID {
		return Instance{}, Template{}, fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}
	tpl, err := s.store.GetTemplate(ctx, inst.TemplateID)
	if err != nil {
		return Instance{}, Template{}, storeErr("get template", err)
	}
	return reconcileStatus(inst, tpl), tpl, nil
}

// commit persists the difference between before and after: the named step
// entries, then the workflow status when it changed. A failed write puts the
// step entries already written back to their before values.
func (s *Service) commit(ctx context.Context, span trace.Span, op string, before, after Instance, stepIDs ...string) error {
	token := s.pending.Put(after.ID, after)
	defer s.pending.Drop(after.ID, token)
	written := make([]string, 0, len(stepIDs))
	for _, id := range stepIDs {
		if err := s.store.SaveStepProgress(ctx, after.ID, id, after.StepProgress[id]); err != nil {
			s.restoreSteps(ctx, before, written)
			return s.persistFailed(ctx, span, op, err)
		}
		written = append(written, id)
	}
	if before.Status != after.Status || !sameTime(before.ArchivedAt, after.ArchivedAt) {
		if err := s.store.SaveInstanceStatus(ctx, after.ID, after.Status, after.ArchivedAt, after.UpdatedAt); err != nil {
			s.restoreSteps(ctx, before, written)
			return s.persistFailed(ctx, span, op, err)
		}
	}
	return nil
}

// restoreSteps rewrites the given step entries as they were in before. A
// step missing from before is written back as pending.
func (s *Service) restoreSteps(ctx context.Context, before Instance, stepIDs []string) {
	for _, id := range stepIDs {
		if err := s.store.SaveStepProgress(context.WithoutCancel(ctx), before.ID, id, before.Progress(id)); err != nil {
			s.logger.Error("step rollback failed",
				zap.String("instance_id", before.ID),
				zap.String("step_id", id),
				zap.Error(err))
		}
	}
}

func (s *Service) notifyTransition(ctx context.Context, before, after Instance, tpl Template, stepID string, actor Actor) {
	step, _, ok := tpl.Step(stepID)
	if !ok {
		return
	}
	was := before.Progress(stepID).Status
	switch now := after.Progress(stepID).Status; {
	case now == StepInProgress && was != StepInProgress:
		s.notifier.StepEvent(ctx, after, step, EventStepStarted, actor)
	case now == StepCompleted && was != StepCompleted:
		s.notifier.StepEvent(ctx, after, step, EventStepCompleted, actor)
	}
	if after.Status == StatusCompleted && before.Status != StatusCompleted {
		s.notifier.WorkflowEvent(ctx, after, EventWorkflowCompleted, actor)
		s.logger.Info("workflow completed", zap.String("instance_id", after.ID))
	}
}

func (s *Service) rejected(ctx context.Context, op, instanceID, stepID string, err error) error {
	s.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	s.logger.Warn(op+" rejected",
		zap.String("instance_id", instanceID),
		zap.String("step_id", stepID),
		zap.Error(err))
	return err
}

func (s *Service) persistFailed(ctx context.Context, span trace.Span, op string, err error) error {
	s.persistFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	s.logger.Error("store write failed", zap.String("op", op), zap.Error(err))
	return &PersistenceError{Op: op, Err: err}
}

// storeErr passes ErrNotFound through and wraps everything else.
func storeErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
