package provider

import (
	"context"

	"saas-ai-orchestrator/internal/domain/ports/adapter"
)

// Compile-time checks
var (
	_ adapter.TextProvider   = (*limitedProvider)(nil)
	_ adapter.StreamProvider = (*limitedStreamProvider)(nil)
	_ adapter.UpdateChecker  = (*limitedUpdateProvider)(nil)
	_ adapter.StreamProvider = (*limitedStreamUpdateProvider)(nil)
	_ adapter.UpdateChecker  = (*limitedStreamUpdateProvider)(nil)
)

// limitedProvider bounds concurrent generation calls per backend with a
// semaphore sized from the host's parallel job capacity. Availability probes
// are not limited; they are cheap and run off the request path.
type limitedProvider struct {
	inner adapter.TextProvider
	sem   chan struct{}
}

type limitedStreamProvider struct {
	limitedProvider
	stream adapter.StreamProvider
}

type limitedUpdateProvider struct {
	limitedProvider
	updates adapter.UpdateChecker
}

type limitedStreamUpdateProvider struct {
	limitedStreamProvider
	updates adapter.UpdateChecker
}

// NewLimited wraps an adapter with a concurrency bound. Each capability of
// the inner adapter (streaming, update checking) is exposed by a dedicated
// wrapper type, so type assertions on the result report exactly what the
// inner adapter supports.
func NewLimited(inner adapter.TextProvider, maxConcurrent int) adapter.TextProvider {
	if maxConcurrent <= 0 {
		return inner
	}
	lp := limitedProvider{inner: inner, sem: make(chan struct{}, maxConcurrent)}
	sp, isStream := inner.(adapter.StreamProvider)
	uc, isChecker := inner.(adapter.UpdateChecker)
	switch {
	case isStream && isChecker:
		return &limitedStreamUpdateProvider{
			limitedStreamProvider: limitedStreamProvider{limitedProvider: lp, stream: sp},
			updates:               uc,
		}
	case isStream:
		return &limitedStreamProvider{limitedProvider: lp, stream: sp}
	case isChecker:
		return &limitedUpdateProvider{limitedProvider: lp, updates: uc}
	default:
		return &lp
	}
}

func (l *limitedProvider) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *limitedProvider) Name() string { return l.inner.Name() }

func (l *limitedProvider) Generate(ctx context.Context, modelName, prompt string, opts adapter.GenerateOptions) (*adapter.GenerateResult, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, modelName, prompt, opts)
}

func (l *limitedProvider) CheckAvailability(ctx context.Context, modelName string) bool {
	return l.inner.CheckAvailability(ctx, modelName)
}

// Update checks run off the request path and are not limited.
func (l *limitedUpdateProvider) CheckModelUpdates(ctx context.Context) ([]adapter.ModelUpdate, error) {
	return l.updates.CheckModelUpdates(ctx)
}

func (l *limitedStreamUpdateProvider) CheckModelUpdates(ctx context.Context) ([]adapter.ModelUpdate, error) {
	return l.updates.CheckModelUpdates(ctx)
}

func (l *limitedStreamProvider) GenerateStream(ctx context.Context, modelName, prompt string, opts adapter.GenerateOptions, chunks chan<- adapter.Chunk) (*adapter.GenerateResult, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	defer func() { <-l.sem }()
	return l.stream.GenerateStream(ctx, modelName, prompt, opts, chunks)
}
