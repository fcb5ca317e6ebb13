package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sorahub/internal/job"
)

// DBTX is the subset of the pgx pool the store depends on.
type DBTX interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// Postgres persists generation jobs in a single table, replacing the
// per-kind SQLite files of earlier deployments.
type Postgres struct {
	db DBTX
}

// NewPostgres wraps a pgx pool (or transaction) as a JobStore.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS generation_jobs (
	request_id     TEXT PRIMARY KEY,
	kind           TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	prompt         TEXT NOT NULL,
	params         JSONB NOT NULL DEFAULT '{}',
	status         TEXT NOT NULL DEFAULT '',
	progress       INT NOT NULL DEFAULT 0,
	result_url     TEXT NOT NULL DEFAULT '',
	result_content TEXT NOT NULL DEFAULT '',
	pid            TEXT NOT NULL DEFAULT '',
	failure_reason TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT ''
)`

// EnsureSchema creates the jobs table when it does not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) Insert(ctx context.Context, rec Record) error {
	params, err := marshalParams(rec.Params)
	if err != nil {
		return fmt.Errorf("store: encode params: %w", err)
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO generation_jobs (request_id, kind, created_at, prompt, params, status, progress)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.RequestID, string(rec.Kind), rec.CreatedAt, rec.Prompt, params, rec.Status, rec.Progress,
	)
	if err != nil {
		return fmt.Errorf("store: insert job: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, requestID string, upd Update) error {
	tag, err := s.db.Exec(ctx, `
UPDATE generation_jobs SET
	status         = COALESCE($2, status),
	progress       = COALESCE($3, progress),
	result_url     = COALESCE($4, result_url),
	result_content = COALESCE($5, result_content),
	pid            = COALESCE($6, pid),
	failure_reason = COALESCE($7, failure_reason),
	error          = COALESCE($8, error)
WHERE request_id = $1`,
		requestID, upd.Status, upd.Progress, upd.ResultURL, upd.ResultContent,
		upd.PID, upd.FailureReason, upd.ErrorDetail,
	)
	if err != nil {
		return fmt.Errorf("store: update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Fetch(ctx context.Context, requestID string) (*Record, error) {
	row := s.db.QueryRow(ctx, `
SELECT request_id, kind, created_at, prompt, params, status, progress,
       result_url, result_content, pid, failure_reason, error
FROM generation_jobs WHERE request_id = $1`, requestID)

	var rec Record
	var kind string
	var params []byte
	err := row.Scan(
		&rec.RequestID, &kind, &rec.CreatedAt, &rec.Prompt, &params,
		&rec.Status, &rec.Progress, &rec.ResultURL, &rec.ResultContent,
		&rec.PID, &rec.FailureReason, &rec.ErrorDetail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: fetch job: %w", err)
	}
	rec.Kind = job.Kind(kind)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &rec.Params); err != nil {
			return nil, fmt.Errorf("store: decode params: %w", err)
		}
	}
	return &rec, nil
}

var _ JobStore = (*Postgres)(nil)
