package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/domain/ports/repository"
	"saas-ai-orchestrator/internal/infra/metrics"
)

// PurgeWorker applies the job retention policy: terminal jobs older than
// the retention window are deleted, and non-terminal jobs abandoned by a
// crashed replica are failed so they stop counting as in-flight.
type PurgeWorker struct {
	interval  time.Duration
	retention time.Duration
	staleAge  time.Duration
	jobs      repository.JobRepository
	log       *zerolog.Logger
}

func NewPurgeWorker(interval, retention, staleAge time.Duration, jobs repository.JobRepository, logger *zerolog.Logger) *PurgeWorker {
	purgeLog := logger.With().Str("component", "PurgeWorker").Logger()
	return &PurgeWorker{
		interval:  interval,
		retention: retention,
		staleAge:  staleAge,
		jobs:      jobs,
		log:       &purgeLog,
	}
}

func (w *PurgeWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting purge worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping purge worker")
			return ctx.Err()
		case <-ticker.C:
			now := time.Now().UTC()

			purged, err := w.jobs.PurgeTerminalBefore(ctx, nil, now.Add(-w.retention))
			if err != nil {
				w.log.Error().Err(err).Msg("purge terminal jobs")
			} else if purged > 0 {
				metrics.AddJobsPurged(purged)
				w.log.Info().Int64("count", purged).Msg("terminal jobs purged")
			}

			stale, err := w.jobs.FailStaleNonTerminal(ctx, nil, now.Add(-w.staleAge), "abandoned: job exceeded maximum processing age")
			if err != nil {
				w.log.Error().Err(err).Msg("fail stale jobs")
			} else if stale > 0 {
				w.log.Warn().Int64("count", stale).Msg("stale jobs failed")
			}
		}
	}
}
