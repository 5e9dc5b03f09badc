package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/infra/hardware"
)

// LoadSampler refreshes the host load snapshot exposed on the system
// endpoint. Sampling is cheap but not free, so it runs on its own tick
// instead of per request.
type LoadSampler struct {
	interval time.Duration
	state    *hardware.State
	log      *zerolog.Logger
}

func NewLoadSampler(interval time.Duration, state *hardware.State, logger *zerolog.Logger) *LoadSampler {
	sampLog := logger.With().Str("component", "LoadSampler").Logger()
	return &LoadSampler{
		interval: interval,
		state:    state,
		log:      &sampLog,
	}
}

func (w *LoadSampler) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting load sampler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping load sampler")
			return ctx.Err()
		case <-ticker.C:
			w.state.SampleLoad(ctx)
		}
	}
}
