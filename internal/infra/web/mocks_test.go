package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/config"
	"saas-ai-orchestrator/internal/domain"
	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/domain/ports/adapter"
	"saas-ai-orchestrator/internal/infra/hardware"
	"saas-ai-orchestrator/internal/usecase"
)

type fakeOrchestrator struct {
	processResp  *usecase.GenerateResponse
	processErr   error
	lastReq      usecase.GenerateRequest
	streamEvents []usecase.StreamEvent
	streamErr    error
	job          *model.GenerationJob
	jobErr       error
}

func (f *fakeOrchestrator) Process(ctx context.Context, req usecase.GenerateRequest) (*usecase.GenerateResponse, error) {
	f.lastReq = req
	if f.processErr != nil {
		return nil, f.processErr
	}
	return f.processResp, nil
}

func (f *fakeOrchestrator) ProcessStreaming(ctx context.Context, req usecase.GenerateRequest) (<-chan usecase.StreamEvent, error) {
	f.lastReq = req
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	events := make(chan usecase.StreamEvent, len(f.streamEvents))
	for _, evt := range f.streamEvents {
		events <- evt
	}
	close(events)
	return events, nil
}

func (f *fakeOrchestrator) JobByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	if f.jobErr != nil {
		return nil, f.jobErr
	}
	if f.job == nil || f.job.ID != id {
		return nil, domain.ErrNotFound
	}
	cp := *f.job
	return &cp, nil
}

type fakeQuota struct {
	status *usecase.QuotaStatus
	err    error
}

func (f *fakeQuota) CheckAndReserve(ctx context.Context, tenantID string, feature model.Feature) (*usecase.QuotaStatus, error) {
	return f.status, f.err
}

func (f *fakeQuota) Usage(ctx context.Context, tenantID string, feature model.Feature) (*usecase.QuotaStatus, error) {
	return f.status, f.err
}

type fakeRegistry struct {
	models []*model.AIModel
	err    error
}

func (f *fakeRegistry) SyncFromConfig(ctx context.Context, entries []config.ModelConfig) error {
	return nil
}

func (f *fakeRegistry) Lookup(ctx context.Context, name string) (*model.AIModel, error) {
	for _, m := range f.models {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistry) ListActive(ctx context.Context) ([]*model.AIModel, error) {
	return f.models, f.err
}

type fakeAssignment struct {
	names []string
}

func (f *fakeAssignment) AssignedModels(ctx context.Context, class model.Classification) []string {
	return f.names
}

func (f *fakeAssignment) Recompute(ctx context.Context) error { return nil }

type fakeProviderSet struct{ names []string }

func (f *fakeProviderSet) Get(provider string) (adapter.TextProvider, bool)         { return nil, false }
func (f *fakeProviderSet) GetStream(provider string) (adapter.StreamProvider, bool) { return nil, false }
func (f *fakeProviderSet) Names() []string                                          { return f.names }

type fakeAvailability struct {
	known map[string]bool
}

func (f *fakeAvailability) Get(ctx context.Context, modelName string) (bool, bool) {
	avail, ok := f.known[modelName]
	return avail, ok
}

type testDeps struct {
	orch   *fakeOrchestrator
	quota  *fakeQuota
	reg    *fakeRegistry
	assign *fakeAssignment
}

// newTestServer builds a dev-mode server (header identity) over fakes.
func newTestServer(deps testDeps) http.Handler {
	logger := zerolog.New(io.Discard)
	if deps.orch == nil {
		deps.orch = &fakeOrchestrator{}
	}
	if deps.quota == nil {
		deps.quota = &fakeQuota{status: &usecase.QuotaStatus{Tier: model.PlanFree, Feature: model.FeatureAIRequests, Limit: 100, Allowed: true}}
	}
	if deps.reg == nil {
		deps.reg = &fakeRegistry{}
	}
	if deps.assign == nil {
		deps.assign = &fakeAssignment{}
	}
	cfg := config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second, JWTSecret: "secret"}
	srv := NewServer(ServerParams{
		Orchestrator: deps.orch,
		Quota:        deps.quota,
		Registry:     deps.reg,
		Assignment:   deps.assign,
		Providers:    &fakeProviderSet{names: []string{"openai"}},
		Hardware: hardware.NewStateForTest(model.HardwareProfile{
			CPUCores: 8, TotalMemoryGB: 32, HasGPU: true, GPUMemoryGB: 16, OS: "linux",
		}),
		Availability:   &fakeAvailability{known: map[string]bool{"gpt-4": true}},
		LocalProvider:  "ollama",
		HostedProvider: "openai",
	}, cfg, true, &logger)
	return srv.Router(cfg)
}

func doRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
