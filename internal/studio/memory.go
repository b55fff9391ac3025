package studio

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

type MemoryDirectory struct {
	mu       sync.RWMutex
	sessions map[string]SessionSummary
	members  []TeamMember
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{sessions: map[string]SessionSummary{}}
}

// Seed is the on-disk shape of a directory seed file.
type Seed struct {
	Sessions []SessionSummary `yaml:"sessions"`
	Team     []TeamMember     `yaml:"team"`
}

// LoadSeedFile reads a yaml seed. A missing file yields an empty directory.
func LoadSeedFile(path string) (*MemoryDirectory, error) {
	d := NewMemoryDirectory()
	if path == "" {
		return d, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, err
	}
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse studio seed %s: %w", path, err)
	}
	for _, s := range seed.Sessions {
		d.PutSession(s)
	}
	for _, m := range seed.Team {
		d.PutMember(m)
	}
	return d, nil
}

func (d *MemoryDirectory) PutSession(s SessionSummary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[s.ID] = s
}

func (d *MemoryDirectory) PutMember(m TeamMember) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.members {
		if d.members[i].ID == m.ID {
			d.members[i] = m
			return
		}
	}
	d.members = append(d.members, m)
}

func (d *MemoryDirectory) Sessions(_ context.Context, organizationID string) (map[string]SessionSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]SessionSummary, len(d.sessions))
	for id, s := range d.sessions {
		if organizationID == "" || s.OrganizationID == organizationID {
			out[id] = s
		}
	}
	return out, nil
}

func (d *MemoryDirectory) Session(_ context.Context, id string) (SessionSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sessions[id]
	if !ok {
		return SessionSummary{}, ErrSessionNotFound
	}
	return s, nil
}

func (d *MemoryDirectory) TeamMembers(_ context.Context, organizationID string) ([]TeamMember, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []TeamMember
	for _, m := range d.members {
		if organizationID == "" || m.OrganizationID == organizationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
