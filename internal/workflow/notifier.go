package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	EventStepStarted       = "step.started"
	EventStepCompleted     = "step.completed"
	EventWorkflowCompleted = "workflow.completed"
	EventStepEscalated     = "step.escalated"
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier fans workflow events out to the audit endpoint and the event
// subject. Delivery failures are logged and never surface to callers.
type Notifier struct {
	audit         *endpoint
	publisher     Publisher
	subjectPrefix string
	client        *http.Client
	logger        *zap.Logger
}

type endpoint struct {
	baseURL string
	timeout time.Duration
}

type NotifierOptions struct {
	AuditURL      string
	AuditTimeout  string
	Publisher     Publisher
	SubjectPrefix string
	Logger        *zap.Logger
}

func NewNotifier(opts NotifierOptions) *Notifier {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := opts.SubjectPrefix
	if prefix == "" {
		prefix = "studioflow"
	}
	audit := parseEndpoint(opts.AuditURL, opts.AuditTimeout)
	timeout := 5 * time.Second
	if audit != nil {
		timeout = audit.timeout
	}
	return &Notifier{
		audit:         audit,
		publisher:     opts.Publisher,
		subjectPrefix: prefix,
		client:        &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// StepEvent reports a step transition. Steps opt in through their
// notification settings.
func (n *Notifier) StepEvent(ctx context.Context, inst Instance, step Step, event string, actor Actor) {
	if n == nil {
		return
	}
	switch event {
	case EventStepStarted:
		if !step.Notifications.OnStart {
			return
		}
	case EventStepCompleted:
		if !step.Notifications.OnComplete {
			return
		}
	}
	p := inst.Progress(step.ID)
	payload := map[string]any{
		"event":           event,
		"instance_id":     inst.ID,
		"organization_id": inst.OrganizationID,
		"template_id":     inst.TemplateID,
		"session_id":      inst.SessionID,
		"step_id":         step.ID,
		"step_title":      step.Title,
		"step_type":       step.Type(),
		"step_status":     p.Status,
		"assigned_to":     p.AssignedTo,
		"actor_id":        actor.ID,
		"ts":              time.Now().UTC().Format(time.RFC3339),
	}
	n.emit(ctx, event, payload)
}

func (n *Notifier) WorkflowEvent(ctx context.Context, inst Instance, event string, actor Actor) {
	if n == nil {
		return
	}
	payload := map[string]any{
		"event":           event,
		"instance_id":     inst.ID,
		"organization_id": inst.OrganizationID,
		"template_id":     inst.TemplateID,
		"template_name":   inst.TemplateName,
		"session_id":      inst.SessionID,
		"status":          inst.Status,
		"actor_id":        actor.ID,
		"ts":              time.Now().UTC().Format(time.RFC3339),
	}
	n.emit(ctx, event, payload)
}

func (n *Notifier) emit(ctx context.Context, event string, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("notification encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	n.postAudit(ctx, event, raw)
	n.publish(event, raw)
}

func (n *Notifier) postAudit(ctx context.Context, event string, raw []byte) {
	if n.audit == nil || n.audit.baseURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.audit.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.audit.baseURL+"/v1/events", bytes.NewReader(raw))
	if err != nil {
		n.logger.Warn("audit request failed", zap.String("event", event), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("audit post failed", zap.String("event", event), zap.Error(err))
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("audit post rejected", zap.String("event", event), zap.Int("status", resp.StatusCode))
	}
}

func (n *Notifier) publish(event string, raw []byte) {
	if n.publisher == nil {
		return
	}
	subject := n.subjectPrefix + "." + event
	if err := n.publisher.Publish(subject, raw); err != nil {
		n.logger.Warn("event publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

func parseEndpoint(url, timeout string) *endpoint {
	if url == "" {
		return nil
	}
	dur, err := time.ParseDuration(timeout)
	if err != nil {
		dur = 5 * time.Second
	}
	return &endpoint{baseURL: url, timeout: dur}
}
