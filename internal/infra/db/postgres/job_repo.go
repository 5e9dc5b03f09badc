package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"saas-ai-orchestrator/internal/domain"
	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

// Save is an upsert by id so every state transition goes through one call.
func (r *jobRepo) Save(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	meta, err := json.Marshal(job.Metadata)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO generation_jobs
  (id, tenant_id, user_id, model_name, prompt, output, status, last_error, tokens_used, cost, duration_ms, metadata, created_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
  model_name   = EXCLUDED.model_name,
  output       = EXCLUDED.output,
  status       = EXCLUDED.status,
  last_error   = EXCLUDED.last_error,
  tokens_used  = EXCLUDED.tokens_used,
  cost         = EXCLUDED.cost,
  duration_ms  = EXCLUDED.duration_ms,
  completed_at = EXCLUDED.completed_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, nullable(job.TenantID), nullable(job.UserID), nullable(job.ModelName),
		job.Prompt, job.Output, string(job.Status), job.LastError,
		job.TokensUsed, job.Cost, job.DurationMs, meta, job.CreatedAt, job.CompletedAt,
	)
	return err
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	const q = `
SELECT id, tenant_id, user_id, model_name, prompt, output, status, last_error, tokens_used, cost, duration_ms, metadata, created_at, completed_at
  FROM generation_jobs
 WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}

	var (
		j        model.GenerationJob
		tenantID *string
		userID   *string
		mdlName  *string
		status   string
		meta     []byte
	)
	if err := row.Scan(&j.ID, &tenantID, &userID, &mdlName, &j.Prompt, &j.Output, &status, &j.LastError,
		&j.TokensUsed, &j.Cost, &j.DurationMs, &meta, &j.CreatedAt, &j.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if tenantID != nil {
		j.TenantID = *tenantID
	}
	if userID != nil {
		j.UserID = *userID
	}
	if mdlName != nil {
		j.ModelName = *mdlName
	}
	j.Status = model.JobStatus(status)
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &j.Metadata)
	}
	return &j, nil
}

func (r *jobRepo) CountForTenantSince(ctx context.Context, tx repository.Tx, tenantID string, since time.Time) (int64, error) {
	const q = `SELECT COUNT(*) FROM generation_jobs WHERE tenant_id=$1 AND created_at >= $2;`
	row, err := pickRow(ctx, r.pool, tx, q, tenantID, since)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *jobRepo) PurgeTerminalBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `
DELETE FROM generation_jobs
 WHERE status IN ('completed', 'failed')
   AND completed_at IS NOT NULL
   AND completed_at < $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *jobRepo) FailStaleNonTerminal(ctx context.Context, tx repository.Tx, cutoff time.Time, reason string) (int64, error) {
	const q = `
UPDATE generation_jobs
   SET status='failed', last_error=$2, completed_at=now()
 WHERE status IN ('pending', 'processing', 'streaming')
   AND created_at < $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, cutoff, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
