package workflow

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store is the persistence contract for templates and workflow instances.
// Step progress is written per entry so concurrent writers to different
// steps never overwrite each other; writers to the same step are
// last-write-wins.
type Store interface {
	// ListTemplates returns templates owned by the organization plus shared
	// templates with no owner.
	ListTemplates(ctx context.Context, organizationID string) ([]Template, error)
	GetTemplate(ctx context.Context, id string) (Template, error)
	CreateTemplate(ctx context.Context, t Template) (string, error)
	UpdateTemplate(ctx context.Context, t Template) error
	// DeleteTemplate fails with ErrTemplateInUse while instances reference it.
	DeleteTemplate(ctx context.Context, id string) error
	SaveVersion(ctx context.Context, v TemplateVersion) error
	ListVersions(ctx context.Context, templateID string) ([]TemplateVersion, error)
	CountInstances(ctx context.Context, templateID string) (int, error)

	CreateInstance(ctx context.Context, inst Instance) error
	GetInstance(ctx context.Context, id string) (Instance, error)
	ListInstances(ctx context.Context, organizationID string) ([]Instance, error)
	SaveStepProgress(ctx context.Context, instanceID, stepID string, p StepProgress) error
	SaveInstanceStatus(ctx context.Context, instanceID string, status InstanceStatus, archivedAt *time.Time, updatedAt time.Time) error
}

type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]Template
	versions  map[string][]TemplateVersion
	instances map[string]Instance
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: map[string]Template{},
		versions:  map[string][]TemplateVersion{},
		instances: map[string]Instance{},
	}
}

func (s *MemoryStore) ListTemplates(_ context.Context, organizationID string) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Template, 0, len(s.templates))
	for _, t := range s.templates {
		if t.OrganizationID == "" || t.OrganizationID == organizationID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetTemplate(_ context.Context, id string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) CreateTemplate(_ context.Context, t Template) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID("tpl")
	}
	s.templates[t.ID] = t
	return t.ID, nil
}

func (s *MemoryStore) UpdateTemplate(_ context.Context, t Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[t.ID]; !ok {
		return ErrNotFound
	}
	s.templates[t.ID] = t
	return nil
}

func (s *MemoryStore) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return ErrNotFound
	}
	for _, inst := range s.instances {
		if inst.TemplateID == id {
			return ErrTemplateInUse
		}
	}
	delete(s.templates, id)
	delete(s.versions, id)
	return nil
}

func (s *MemoryStore) SaveVersion(_ context.Context, v TemplateVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[v.TemplateID] = append(s.versions[v.TemplateID], v)
	return nil
}

func (s *MemoryStore) ListVersions(_ context.Context, templateID string) ([]TemplateVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TemplateVersion(nil), s.versions[templateID]...), nil
}

func (s *MemoryStore) CountInstances(_ context.Context, templateID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, inst := range s.instances {
		if inst.TemplateID == templateID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateInstance(_ context.Context, inst Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID] = inst.Clone()
	return nil
}

func (s *MemoryStore) GetInstance(_ context.Context, id string) (Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return Instance{}, ErrNotFound
	}
	return inst.Clone(), nil
}

func (s *MemoryStore) ListInstances(_ context.Context, organizationID string) ([]Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		if organizationID == "" || inst.OrganizationID == organizationID {
			out = append(out, inst.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) SaveStepProgress(_ context.Context, instanceID, stepID string, p StepProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return ErrNotFound
	}
	if inst.StepProgress == nil {
		inst.StepProgress = map[string]StepProgress{}
	}
	inst.StepProgress[stepID] = p.clone()
	if p.UpdatedAt.After(inst.UpdatedAt) {
		inst.UpdatedAt = p.UpdatedAt
	}
	s.instances[instanceID] = inst
	return nil
}

func (s *MemoryStore) SaveInstanceStatus(_ context.Context, instanceID string, status InstanceStatus, archivedAt *time.Time, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return ErrNotFound
	}
	inst.Status = status
	inst.ArchivedAt = archivedAt
	inst.UpdatedAt = updatedAt
	s.instances[instanceID] = inst
	return nil
}
