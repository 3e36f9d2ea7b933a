package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/acme/inbound-call-desk/internal/domain"
	"github.com/acme/inbound-call-desk/internal/repository"
)

// WorkerRepository persists the agent roster in Postgres.
type WorkerRepository struct {
	db *sqlx.DB
}

// NewWorkerRepository creates a new repository.
func NewWorkerRepository(db *sqlx.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

type workerRow struct {
	SID          string    `db:"sid"`
	FriendlyName string    `db:"friendly_name"`
	ContactURI   string    `db:"contact_uri"`
	Role         string    `db:"role"`
	SimulRing    bool      `db:"simul_ring"`
	Activity     string    `db:"activity"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r workerRow) toDomain() *domain.Worker {
	return &domain.Worker{
		SID:          r.SID,
		FriendlyName: r.FriendlyName,
		ContactURI:   r.ContactURI,
		Role:         r.Role,
		SimulRing:    r.SimulRing,
		Activity:     domain.Activity(r.Activity),
		UpdatedAt:    r.UpdatedAt,
	}
}

// Get retrieves a worker by SID.
func (r *WorkerRepository) Get(ctx context.Context, sid string) (*domain.Worker, error) {
	var row workerRow
	err := r.db.GetContext(ctx, &row, `SELECT sid, friendly_name, contact_uri, role, simul_ring, activity, updated_at
		FROM workers WHERE sid = $1`, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("worker repository: %s: %w", sid, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("worker repository: get: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateActivity writes the current activity for a worker. Last write wins.
func (r *WorkerRepository) UpdateActivity(ctx context.Context, sid string, activity domain.Activity, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE workers SET activity = $1, updated_at = $2 WHERE sid = $3`,
		string(activity), at, sid)
	if err != nil {
		return fmt.Errorf("worker repository: update activity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("worker repository: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("worker repository: %s: %w", sid, repository.ErrNotFound)
	}
	return nil
}

// List returns up to limit workers ordered by friendly name.
func (r *WorkerRepository) List(ctx context.Context, limit int) ([]*domain.Worker, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryxContext(ctx, `SELECT sid, friendly_name, contact_uri, role, simul_ring, activity, updated_at
		FROM workers ORDER BY friendly_name LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("worker repository: list: %w", err)
	}
	defer rows.Close()

	var workers []*domain.Worker
	for rows.Next() {
		var row workerRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("worker repository: scan: %w", err)
		}
		workers = append(workers, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("worker repository: rows err: %w", err)
	}
	return workers, nil
}
