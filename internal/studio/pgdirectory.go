package studio

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGDirectory reads sessions and team members from tables owned by the
// scheduling system. It never writes.
type PGDirectory struct {
	db *pgxpool.Pool
}

func NewPGDirectory(db *pgxpool.Pool) (*PGDirectory, error) {
	if db == nil {
		return nil, fmt.Errorf("studio directory: nil pool")
	}
	return &PGDirectory{db: db}, nil
}

const sessionColumns = `id, organization_id, school_id, school_name, client_name, session_date, session_types, photographer_ids`

func scanSession(row pgx.Row) (SessionSummary, error) {
	var s SessionSummary
	err := row.Scan(&s.ID, &s.OrganizationID, &s.SchoolID, &s.SchoolName, &s.ClientName, &s.Date, &s.SessionTypes, &s.PhotographerIDs)
	return s, err
}

func (d *PGDirectory) Sessions(ctx context.Context, organizationID string) (map[string]SessionSummary, error) {
	rows, err := d.db.Query(ctx, `select `+sessionColumns+` from studio_sessions where $1 = '' or organization_id = $1`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]SessionSummary{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

func (d *PGDirectory) Session(ctx context.Context, id string) (SessionSummary, error) {
	s, err := scanSession(d.db.QueryRow(ctx, `select `+sessionColumns+` from studio_sessions where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return SessionSummary{}, ErrSessionNotFound
	}
	return s, err
}

func (d *PGDirectory) TeamMembers(ctx context.Context, organizationID string) ([]TeamMember, error) {
	rows, err := d.db.Query(ctx, `select id, organization_id, name, email, role, active from studio_team_members
where $1 = '' or organization_id = $1 order by name asc`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TeamMember
	for rows.Next() {
		var m TeamMember
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.Name, &m.Email, &m.Role, &m.Active); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
