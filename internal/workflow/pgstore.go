package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps templates and instances as jsonb payloads. Step progress
// lives in its own table keyed by (instance, step) so each entry is written
// independently.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(ctx context.Context, db *pgxpool.Pool) (*PGStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pgstore: nil pool")
	}
	s := &PGStore{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("pgstore migrate: %w", err)
	}
	return s, nil
}

func (s *PGStore) migrate(ctx context.Context) error {
	statements := []string{
		`create table if not exists studioflow_templates (
  id text primary key,
  organization_id text not null default '',
  payload jsonb not null,
  created_at timestamptz not null,
  updated_at timestamptz not null
)`,
		`create index if not exists studioflow_templates_org on studioflow_templates (organization_id)`,
		`create table if not exists studioflow_template_versions (
  id text primary key,
  template_id text not null,
  version int not null,
  created_by text not null default '',
  description text not null default '',
  payload jsonb not null,
  created_at timestamptz not null
)`,
		`create table if not exists studioflow_instances (
  id text primary key,
  organization_id text not null default '',
  template_id text not null,
  status text not null,
  archived_at timestamptz,
  payload jsonb not null,
  created_at timestamptz not null,
  updated_at timestamptz not null
)`,
		`create index if not exists studioflow_instances_template on studioflow_instances (template_id)`,
		`create table if not exists studioflow_step_progress (
  instance_id text not null,
  step_id text not null,
  payload jsonb not null,
  updated_at timestamptz not null,
  primary key (instance_id, step_id)
)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PGStore) ListTemplates(ctx context.Context, organizationID string) ([]Template, error) {
	rows, err := s.db.Query(ctx, `select payload from studioflow_templates
where organization_id = '' or organization_id = $1
order by created_at asc, id asc`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Template
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var t Template
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PGStore) GetTemplate(ctx context.Context, id string) (Template, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `select payload from studioflow_templates where id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrNotFound
		}
		return Template{}, err
	}
	var t Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *PGStore) CreateTemplate(ctx context.Context, t Template) (string, error) {
	if t.ID == "" {
		t.ID = newID("tpl")
	}
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(ctx, `insert into studioflow_templates (id, organization_id, payload, created_at, updated_at)
values ($1, $2, $3, $4, $5)`, t.ID, t.OrganizationID, b, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

func (s *PGStore) UpdateTemplate(ctx context.Context, t Template) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `update studioflow_templates set organization_id = $2, payload = $3, updated_at = $4 where id = $1`,
		t.ID, t.OrganizationID, b, t.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) DeleteTemplate(ctx context.Context, id string) error {
	n, err := s.CountInstances(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrTemplateInUse
	}
	tag, err := s.db.Exec(ctx, `delete from studioflow_templates where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	_, err = s.db.Exec(ctx, `delete from studioflow_template_versions where template_id = $1`, id)
	return err
}

func (s *PGStore) SaveVersion(ctx context.Context, v TemplateVersion) error {
	b, err := json.Marshal(v.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `insert into studioflow_template_versions (id, template_id, version, created_by, description, payload, created_at)
values ($1, $2, $3, $4, $5, $6, $7)`, v.ID, v.TemplateID, v.Version, v.CreatedBy, v.Description, b, v.CreatedAt)
	return err
}

func (s *PGStore) ListVersions(ctx context.Context, templateID string) ([]TemplateVersion, error) {
	rows, err := s.db.Query(ctx, `select id, version, created_by, description, payload, created_at from studioflow_template_versions
where template_id = $1 order by version asc`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TemplateVersion
	for rows.Next() {
		var (
			v   TemplateVersion
			raw []byte
		)
		if err := rows.Scan(&v.ID, &v.Version, &v.CreatedBy, &v.Description, &raw, &v.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &v.Payload); err != nil {
			return nil, err
		}
		v.TemplateID = templateID
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PGStore) CountInstances(ctx context.Context, templateID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `select count(*) from studioflow_instances where template_id = $1`, templateID).Scan(&n)
	return n, err
}

func (s *PGStore) CreateInstance(ctx context.Context, inst Instance) error {
	progress := inst.StepProgress
	inst.StepProgress = nil
	b, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	_, err = tx.Exec(ctx, `insert into studioflow_instances (id, organization_id, template_id, status, archived_at, payload, created_at, updated_at)
values ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inst.ID, inst.OrganizationID, inst.TemplateID, inst.Status, inst.ArchivedAt, b, inst.CreatedAt, inst.UpdatedAt)
	if err != nil {
		return err
	}
	for stepID, p := range progress {
		if err := upsertProgress(ctx, tx, inst.ID, stepID, p); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PGStore) GetInstance(ctx context.Context, id string) (Instance, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `select payload from studioflow_instances where id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Instance{}, ErrNotFound
		}
		return Instance{}, err
	}
	var inst Instance
	if err := json.Unmarshal(raw, &inst); err != nil {
		return Instance{}, err
	}
	progress, err := s.loadProgress(ctx, []string{id})
	if err != nil {
		return Instance{}, err
	}
	inst.StepProgress = progress[id]
	return inst, nil
}

func (s *PGStore) ListInstances(ctx context.Context, organizationID string) ([]Instance, error) {
	rows, err := s.db.Query(ctx, `select payload from studioflow_instances
where $1 = '' or organization_id = $1
order by created_at asc, id asc`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Instance
	var ids []string
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var inst Instance
		if err := json.Unmarshal(raw, &inst); err != nil {
			return nil, err
		}
		out = append(out, inst)
		ids = append(ids, inst.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	progress, err := s.loadProgress(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].StepProgress = progress[out[i].ID]
	}
	return out, nil
}

func (s *PGStore) loadProgress(ctx context.Context, instanceIDs []string) (map[string]map[string]StepProgress, error) {
	rows, err := s.db.Query(ctx, `select instance_id, step_id, payload from studioflow_step_progress
where instance_id = any($1)`, instanceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]map[string]StepProgress{}
	for rows.Next() {
		var (
			instanceID, stepID string
			raw                []byte
		)
		if err := rows.Scan(&instanceID, &stepID, &raw); err != nil {
			return nil, err
		}
		var p StepProgress
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		if out[instanceID] == nil {
			out[instanceID] = map[string]StepProgress{}
		}
		out[instanceID][stepID] = p
	}
	return out, rows.Err()
}

func (s *PGStore) SaveStepProgress(ctx context.Context, instanceID, stepID string, p StepProgress) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `select exists(select 1 from studioflow_instances where id = $1)`, instanceID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	if err := upsertProgress(ctx, s.db, instanceID, stepID, p); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `update studioflow_instances set updated_at = greatest(updated_at, $2) where id = $1`, instanceID, p.UpdatedAt)
	return err
}

func (s *PGStore) SaveInstanceStatus(ctx context.Context, instanceID string, status InstanceStatus, archivedAt *time.Time, updatedAt time.Time) error {
	tag, err := s.db.Exec(ctx, `update studioflow_instances
set status = $2,
    archived_at = $3,
    updated_at = $4,
    payload = jsonb_set(jsonb_set(jsonb_set(payload, '{status}', to_jsonb($2::text)), '{archived_at}', coalesce(to_jsonb($3::timestamptz), 'null'::jsonb)), '{updated_at}', to_jsonb($4::timestamptz))
where id = $1`, instanceID, string(status), archivedAt, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertProgress(ctx context.Context, db execer, instanceID, stepID string, p StepProgress) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `insert into studioflow_step_progress (instance_id, step_id, payload, updated_at)
values ($1, $2, $3, $4)
on conflict (instance_id, step_id) do update set payload = excluded.payload, updated_at = excluded.updated_at`,
		instanceID, stepID, b, p.UpdatedAt)
	return err
}
