package repository

import (
	"context"
	"time"

	"saas-ai-orchestrator/internal/domain/model"
)

// JobRepository owns GenerationJob rows. Save is an upsert by id so the
// pipeline can write each state transition through the same call.
type JobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.GenerationJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.GenerationJob, error)
	// CountForTenantSince counts jobs created for a tenant at or after the
	// given instant. Used by the quota guard; recomputed per request, never
	// cached.
	CountForTenantSince(ctx context.Context, tx Tx, tenantID string, since time.Time) (int64, error)
	// PurgeTerminalBefore deletes completed/failed jobs whose completion
	// timestamp is older than cutoff. Returns the number of rows removed.
	PurgeTerminalBefore(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
	// FailStaleNonTerminal marks pending/processing/streaming jobs created
	// before cutoff as failed. Crash recovery sweep; see purge worker.
	FailStaleNonTerminal(ctx context.Context, tx Tx, cutoff time.Time, reason string) (int64, error)
}
