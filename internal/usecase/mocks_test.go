// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/domain"
	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/domain/ports/adapter"
	"saas-ai-orchestrator/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// memTxManager runs the callback directly; the fakes take a nil tx. An
// injected err simulates a transaction that could not commit.
type memTxManager struct {
	calls int
	err   error
}

var _ repository.TransactionManager = (*memTxManager)(nil)

func (m *memTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return fn(ctx, nil)
}

// --- in-memory job repository ---

type memJobRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.GenerationJob
	saveErr error
	findErr error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.GenerationJob)}
}

func (m *memJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.store[job.ID] = &cp
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) CountForTenantSince(ctx context.Context, tx repository.Tx, tenantID string, since time.Time) (int64, error) {
	if m.findErr != nil {
		return 0, m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, j := range m.store {
		if j.TenantID == tenantID && !j.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memJobRepo) PurgeTerminalBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, j := range m.store {
		if j.Status.IsTerminal() && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

func (m *memJobRepo) FailStaleNonTerminal(ctx context.Context, tx repository.Tx, cutoff time.Time, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, j := range m.store {
		if !j.Status.IsTerminal() && j.CreatedAt.Before(cutoff) {
			j.Fail(reason, 0)
			n++
		}
	}
	return n, nil
}

// all returns a snapshot sorted by creation time, oldest first.
func (m *memJobRepo) all() []*model.GenerationJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.GenerationJob, 0, len(m.store))
	for _, j := range m.store {
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out
}

// seed inserts n completed jobs for a tenant inside the current period.
func (m *memJobRepo) seed(tenantID string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		j := model.NewGenerationJob(tenantID, "u1", "seeded", model.JobMetadata{})
		j.Complete("ok", 1, 0, time.Millisecond)
		m.store[j.ID] = j
	}
}

// --- in-memory model repository ---

type memModelRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.AIModel
	listErr error
}

func newMemModelRepo() *memModelRepo {
	return &memModelRepo{store: make(map[string]*model.AIModel)}
}

func (m *memModelRepo) Upsert(ctx context.Context, tx repository.Tx, models []*model.AIModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range models {
		cp := *entry
		if prev, ok := m.store[entry.Name]; ok {
			cp.Active = prev.Active
			cp.CreatedAt = prev.CreatedAt
		}
		m.store[entry.Name] = &cp
	}
	return nil
}

func (m *memModelRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.AIModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.store[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (m *memModelRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.AIModel, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.AIModel, 0, len(m.store))
	for _, entry := range m.store {
		if entry.Active {
			cp := *entry
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out, nil
}

func (m *memModelRepo) SetActive(ctx context.Context, tx repository.Tx, name string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.store[name]
	if !ok {
		return domain.ErrNotFound
	}
	entry.Active = active
	return nil
}

func (m *memModelRepo) DeactivateMissing(ctx context.Context, tx repository.Tx, keep []string) (int64, error) {
	keepSet := make(map[string]bool, len(keep))
	for _, n := range keep {
		keepSet[n] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for name, entry := range m.store {
		if entry.Active && !keepSet[name] {
			entry.Active = false
			n++
		}
	}
	return n, nil
}

// mustModel builds an active catalog entry or fails loudly.
func mustModel(name, provider string, costPerToken float64, maxTokens int) *model.AIModel {
	m, err := model.NewAIModel(name, provider, model.ModelKindTextGeneration, model.ProviderConfig{}, model.TierMedium, costPerToken, maxTokens)
	if err != nil {
		panic(err)
	}
	return m
}

// --- in-memory tenant repository ---

type memTenantRepo struct {
	mu      sync.RWMutex
	tiers   map[string]model.PlanTier
	findErr error
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tiers: make(map[string]model.PlanTier)}
}

func (m *memTenantRepo) FindPlanTier(ctx context.Context, tx repository.Tx, tenantID string) (model.PlanTier, error) {
	if m.findErr != nil {
		return "", m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	tier, ok := m.tiers[tenantID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return tier, nil
}

// --- fake providers ---

type fakeProvider struct {
	mu       sync.Mutex
	name     string
	result   *adapter.GenerateResult
	err      error
	calls    int
	lastOpts adapter.GenerateOptions
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, modelName, prompt string, opts adapter.GenerateOptions) (*adapter.GenerateResult, error) {
	f.mu.Lock()
	f.calls++
	f.lastOpts = opts
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.result
	return &cp, nil
}

func (f *fakeProvider) CheckAvailability(ctx context.Context, modelName string) bool { return true }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStreamProvider struct {
	fakeProvider
	chunks    []adapter.Chunk
	chunkGap  time.Duration
	streamErr error
}

func (f *fakeStreamProvider) GenerateStream(ctx context.Context, modelName, prompt string, opts adapter.GenerateOptions, chunks chan<- adapter.Chunk) (*adapter.GenerateResult, error) {
	for _, c := range f.chunks {
		if f.chunkGap > 0 {
			select {
			case <-time.After(f.chunkGap):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		select {
		case chunks <- c:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	cp := *f.result
	return &cp, nil
}

// fakeProviderSet is a fixed registration map for tests.
type fakeProviderSet struct {
	providers map[string]adapter.TextProvider
}

func newFakeProviderSet(providers ...adapter.TextProvider) *fakeProviderSet {
	set := &fakeProviderSet{providers: make(map[string]adapter.TextProvider)}
	for _, p := range providers {
		set.providers[p.Name()] = p
	}
	return set
}

func (s *fakeProviderSet) Get(provider string) (adapter.TextProvider, bool) {
	p, ok := s.providers[provider]
	return p, ok
}

func (s *fakeProviderSet) GetStream(provider string) (adapter.StreamProvider, bool) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, false
	}
	sp, ok := p.(adapter.StreamProvider)
	return sp, ok
}

func (s *fakeProviderSet) Names() []string {
	out := make([]string, 0, len(s.providers))
	for n := range s.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// --- fake publisher ---

type published struct {
	channel string
	payload any
}

type memPublisher struct {
	mu     sync.Mutex
	events []published
}

func (m *memPublisher) Publish(ctx context.Context, channel string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, published{channel: channel, payload: payload})
	return nil
}

func (m *memPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// --- fixed assignment ---

type fixedAssignment struct {
	byClass map[model.Classification][]string
}

func (f *fixedAssignment) AssignedModels(ctx context.Context, class model.Classification) []string {
	return f.byClass[class]
}

func (f *fixedAssignment) Recompute(ctx context.Context) error { return nil }
