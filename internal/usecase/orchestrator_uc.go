// File: internal/usecase/orchestrator_uc.go
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/domain"
	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/domain/ports/adapter"
	"saas-ai-orchestrator/internal/domain/ports/repository"
	"saas-ai-orchestrator/internal/infra/logging"
	"saas-ai-orchestrator/internal/infra/metrics"
)

// Compile-time check
var _ OrchestratorUseCase = (*orchestratorUC)(nil)

// GenerateRequest is the validated inbound request. Identity arrives
// out-of-band (headers/context), never in the body.
type GenerateRequest struct {
	TenantID    string
	UserID      string
	Prompt      string
	Model       string // optional; empty means "use the assignment default"
	MaxTokens   int
	Temperature float64
	Options     map[string]any
}

// GenerateResponse mirrors the synchronous response shape on the wire.
type GenerateResponse struct {
	JobID            string        `json:"jobId"`
	Response         string        `json:"response"`
	Model            string        `json:"model"`
	Provider         string        `json:"provider"`
	Usage            adapter.Usage `json:"usage"`
	Cost             float64       `json:"cost"`
	ProcessingTimeMs int64         `json:"processingTimeMs"`
}

type OrchestratorUseCase interface {
	Process(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	ProcessStreaming(ctx context.Context, req GenerateRequest) (<-chan StreamEvent, error)
	JobByID(ctx context.Context, id string) (*model.GenerationJob, error)
}

type orchestratorUC struct {
	jobs       repository.JobRepository
	tm         repository.TransactionManager
	registry   RegistryUseCase
	assignment AssignmentUseCase
	quota      QuotaUseCase
	providers  adapter.ProviderSet
	publisher  adapter.EventPublisher
	class      model.Classification

	defaultModel     string
	maxPromptChars   int
	providerTimeout  time.Duration
	chunkIdleTimeout time.Duration
	devMode          bool
	log              *zerolog.Logger
}

type OrchestratorParams struct {
	Jobs             repository.JobRepository
	TxManager        repository.TransactionManager
	Registry         RegistryUseCase
	Assignment       AssignmentUseCase
	Quota            QuotaUseCase
	Providers        adapter.ProviderSet
	Publisher        adapter.EventPublisher
	Classification   model.Classification
	DefaultModel     string
	MaxPromptChars   int
	ProviderTimeout  time.Duration
	ChunkIdleTimeout time.Duration
	DevMode          bool
}

func NewOrchestratorUseCase(p OrchestratorParams, log *zerolog.Logger) *orchestratorUC {
	if p.MaxPromptChars <= 0 {
		p.MaxPromptChars = 10000
	}
	if p.ProviderTimeout <= 0 {
		p.ProviderTimeout = 45 * time.Second
	}
	if p.ChunkIdleTimeout <= 0 {
		p.ChunkIdleTimeout = 30 * time.Second
	}
	l := log.With().Str("component", "Orchestrator").Logger()
	return &orchestratorUC{
		jobs:             p.Jobs,
		tm:               p.TxManager,
		registry:         p.Registry,
		assignment:       p.Assignment,
		quota:            p.Quota,
		providers:        p.Providers,
		publisher:        p.Publisher,
		class:            p.Classification,
		defaultModel:     p.DefaultModel,
		maxPromptChars:   p.MaxPromptChars,
		providerTimeout:  p.ProviderTimeout,
		chunkIdleTimeout: p.ChunkIdleTimeout,
		devMode:          p.DevMode,
		log:              &l,
	}
}

func (o *orchestratorUC) validate(req GenerateRequest) error {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return &domain.ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if len(req.Prompt) > o.maxPromptChars {
		return &domain.ValidationError{Field: "prompt", Reason: "exceeds maximum length"}
	}
	return nil
}

// resolveModel picks the model name: explicit request > first assigned for
// this host's classification > configured default.
func (o *orchestratorUC) resolveModel(ctx context.Context, req GenerateRequest) string {
	if req.Model != "" {
		return req.Model
	}
	if assigned := o.assignment.AssignedModels(ctx, o.class); len(assigned) > 0 {
		return assigned[0]
	}
	return o.defaultModel
}

// resolution is the outcome of steps 1-4 shared by both pipelines.
type resolution struct {
	model    *model.AIModel
	provider adapter.TextProvider
	stream   adapter.StreamProvider
}

// resolve runs validation, quota, model and provider resolution. Validation
// and quota failures return before any job exists; model/provider failures
// persist an audit job already in failed state.
func (o *orchestratorUC) resolve(ctx context.Context, req GenerateRequest, streaming bool) (*resolution, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	if !o.devMode {
		if _, err := o.quota.CheckAndReserve(ctx, req.TenantID, model.FeatureAIRequests); err != nil {
			if qe, ok := err.(*domain.QuotaExceededError); ok {
				metrics.IncQuotaDenied(qe.PlanTier)
			}
			return nil, err
		}
	}

	name := o.resolveModel(ctx, req)
	if name == "" {
		err := &domain.ModelUnavailableError{ModelName: "", Reason: "no model assigned for this host"}
		o.recordFailedResolution(ctx, req, "", streaming, err)
		return nil, err
	}

	m, err := o.registry.Lookup(ctx, name)
	if err != nil && err != domain.ErrNotFound {
		return nil, &domain.StorageError{Op: "model lookup", Err: err}
	}
	if err == domain.ErrNotFound || m == nil || !m.Active {
		reason := "inactive"
		if m == nil {
			reason = "not registered"
		}
		uerr := &domain.ModelUnavailableError{ModelName: name, Reason: reason}
		o.recordFailedResolution(ctx, req, name, streaming, uerr)
		return nil, uerr
	}

	provider, ok := o.providers.Get(m.Provider)
	if !ok {
		uerr := &domain.ProviderUnavailableError{Provider: m.Provider}
		o.recordFailedResolution(ctx, req, name, streaming, uerr)
		return nil, uerr
	}

	res := &resolution{model: m, provider: provider}
	if streaming {
		sp, ok := o.providers.GetStream(m.Provider)
		if !ok {
			uerr := &domain.ProviderUnavailableError{Provider: m.Provider}
			o.recordFailedResolution(ctx, req, name, streaming, uerr)
			return nil, uerr
		}
		res.stream = sp
	}
	return res, nil
}

// recordFailedResolution persists an audit-only job in failed state so the
// attempt is visible, with no provider ever invoked. Publish is best-effort.
func (o *orchestratorUC) recordFailedResolution(ctx context.Context, req GenerateRequest, modelName string, streaming bool, cause error) {
	job := model.NewGenerationJob(req.TenantID, req.UserID, req.Prompt, model.JobMetadata{
		RequestedModel: req.Model,
		Options:        req.Options,
		Streaming:      streaming,
	})
	job.ModelName = modelName
	job.Fail(cause.Error(), 0)
	if err := o.jobs.Save(ctx, nil, job); err != nil {
		o.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist audit job")
		return
	}
	metrics.IncJob(string(model.JobStatusFailed))
	o.publishStatus(ctx, job, nil)
}

func (o *orchestratorUC) options(req GenerateRequest, m *model.AIModel) adapter.GenerateOptions {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 || (m.MaxTokens > 0 && maxTokens > m.MaxTokens) {
		maxTokens = m.MaxTokens
	}
	return adapter.GenerateOptions{
		MaxTokens:    maxTokens,
		Temperature:  req.Temperature,
		CostPerToken: m.CostPerToken,
		Extra:        req.Options,
	}
}

// Process runs the synchronous pipeline: resolve, create the job in pending,
// move it to processing, invoke the provider once, finalize exactly once.
func (o *orchestratorUC) Process(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	defer logging.TraceDuration(o.log, "Orchestrator.Process")()

	res, err := o.resolve(ctx, req, false)
	if err != nil {
		return nil, err
	}

	job := model.NewGenerationJob(req.TenantID, req.UserID, req.Prompt, model.JobMetadata{
		RequestedModel: req.Model,
		Options:        req.Options,
	})
	ctx = logging.WithJobID(ctx, job.ID)

	// Creation and the processing transition are one atomic write, so a
	// crash between them cannot strand a bare pending row.
	txErr := o.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := o.jobs.Save(ctx, tx, job); err != nil {
			return err
		}
		job.MarkProcessing(res.model.Name, false)
		return o.jobs.Save(ctx, tx, job)
	})
	if txErr != nil {
		return nil, &domain.StorageError{Op: "job create", Err: txErr}
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, o.providerTimeout)
	defer cancel()

	result, callErr := res.provider.Generate(callCtx, res.model.Name, req.Prompt, o.options(req, res.model))
	elapsed := time.Since(start)

	if callErr != nil {
		job.Fail(callErr.Error(), elapsed)
		o.finalize(ctx, job, res.provider.Name(), nil, elapsed)
		return nil, &domain.ProviderExecutionError{Provider: res.provider.Name(), Model: res.model.Name, Err: callErr}
	}

	job.Complete(result.Text, result.Usage.TotalTokens, result.Cost, elapsed)
	o.finalize(ctx, job, res.provider.Name(), result, elapsed)

	return &GenerateResponse{
		JobID:            job.ID,
		Response:         result.Text,
		Model:            res.model.Name,
		Provider:         res.provider.Name(),
		Usage:            result.Usage,
		Cost:             result.Cost,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}, nil
}

// finalize persists the terminal state, records metrics and publishes the
// status event. The save uses a background context so a cancelled request
// cannot leave the row non-terminal.
func (o *orchestratorUC) finalize(ctx context.Context, job *model.GenerationJob, provider string, result *adapter.GenerateResult, elapsed time.Duration) {
	log := logging.With(logging.WithJobID(ctx, job.ID), o.log)
	if err := o.jobs.Save(context.WithoutCancel(ctx), nil, job); err != nil {
		log.Error().Err(err).Msg("failed to persist terminal job state")
	}
	metrics.IncJob(string(job.Status))
	success := job.Status == model.JobStatusCompleted
	tokens, cost := 0, 0.0
	if result != nil {
		tokens, cost = result.Usage.TotalTokens, result.Cost
	}
	metrics.ObserveGeneration(provider, job.ModelName, tokens, cost, elapsed.Milliseconds(), success)
	o.publishStatus(ctx, job, result)

	log.Info().
		Str("model", job.ModelName).
		Str("status", string(job.Status)).
		Int("tokens", job.TokensUsed).
		Dur("duration", elapsed).
		Msg("job finished")
}

// jobStatusEvent is the payload pushed on the broadcast channel per terminal
// transition, keyed by job id.
type jobStatusEvent struct {
	JobID      string  `json:"job_id"`
	TenantID   string  `json:"tenant_id,omitempty"`
	Status     string  `json:"status"`
	Model      string  `json:"model,omitempty"`
	Tokens     int     `json:"tokens,omitempty"`
	Cost       float64 `json:"cost,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`
}

func (o *orchestratorUC) publishStatus(ctx context.Context, job *model.GenerationJob, result *adapter.GenerateResult) {
	if o.publisher == nil {
		return
	}
	evt := jobStatusEvent{
		JobID:      job.ID,
		TenantID:   job.TenantID,
		Status:     string(job.Status),
		Model:      job.ModelName,
		Tokens:     job.TokensUsed,
		Cost:       job.Cost,
		Error:      job.LastError,
		DurationMs: job.DurationMs,
	}
	if err := o.publisher.Publish(context.WithoutCancel(ctx), "jobs:"+job.ID, evt); err != nil {
		o.log.Warn().Err(err).Str("job_id", job.ID).Msg("status publish failed")
	}
}

func (o *orchestratorUC) JobByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	return o.jobs.FindByID(ctx, nil, id)
}
