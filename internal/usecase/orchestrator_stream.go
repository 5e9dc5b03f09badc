// File: internal/usecase/orchestrator_stream.go
package usecase

import (
	"context"
	"errors"
	"time"

	"saas-ai-orchestrator/internal/domain"
	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/domain/ports/adapter"
	"saas-ai-orchestrator/internal/infra/logging"
)

type StreamEventType string

const (
	StreamStarted  StreamEventType = "started"
	StreamChunk    StreamEventType = "chunk"
	StreamComplete StreamEventType = "complete"
	StreamError    StreamEventType = "error"
)

// StreamEvent is one tagged event of a streamed generation. Events for one
// job are strictly ordered: started, zero or more chunks, then exactly one
// complete or error. No chunk follows the terminal event.
type StreamEvent struct {
	Type             StreamEventType `json:"type"`
	JobID            string          `json:"jobId"`
	Text             string          `json:"text,omitempty"`
	TokenEstimate    int             `json:"tokenEstimate,omitempty"`
	Model            string          `json:"model,omitempty"`
	Provider         string          `json:"provider,omitempty"`
	Usage            *adapter.Usage  `json:"usage,omitempty"`
	Cost             float64         `json:"cost,omitempty"`
	ProcessingTimeMs int64           `json:"processingTimeMs,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// streamOutcome carries the provider's final summary across goroutines.
type streamOutcome struct {
	result *adapter.GenerateResult
	err    error
}

// ProcessStreaming runs resolution steps 1-4 synchronously, then streams.
// Resolution failures are returned directly (no event sequence starts); the
// returned channel is closed after the terminal event. The job row is created
// directly in streaming state since the provider capability is known up
// front, and finalized exactly once when the provider stream ends or raises.
func (o *orchestratorUC) ProcessStreaming(ctx context.Context, req GenerateRequest) (<-chan StreamEvent, error) {
	defer logging.TraceDuration(o.log, "Orchestrator.ProcessStreaming")()

	res, err := o.resolve(ctx, req, true)
	if err != nil {
		return nil, err
	}

	job := model.NewGenerationJob(req.TenantID, req.UserID, req.Prompt, model.JobMetadata{
		RequestedModel: req.Model,
		Options:        req.Options,
		Streaming:      true,
	})
	job.MarkProcessing(res.model.Name, true)
	if err := o.jobs.Save(ctx, nil, job); err != nil {
		return nil, &domain.StorageError{Op: "job create", Err: err}
	}

	events := make(chan StreamEvent, 16)
	go o.runStream(logging.WithJobID(ctx, job.ID), req, res, job, events)
	return events, nil
}

func (o *orchestratorUC) runStream(ctx context.Context, req GenerateRequest, res *resolution, job *model.GenerationJob, events chan<- StreamEvent) {
	defer close(events)
	start := time.Now()

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks := make(chan adapter.Chunk, 16)
	outcome := make(chan streamOutcome, 1)
	go func() {
		result, err := res.stream.GenerateStream(callCtx, res.model.Name, req.Prompt, o.options(req, res.model), chunks)
		// The provider has returned; by contract nothing else is sent.
		close(chunks)
		outcome <- streamOutcome{result: result, err: err}
	}()

	o.emit(ctx, events, StreamEvent{
		Type:     StreamStarted,
		JobID:    job.ID,
		Model:    res.model.Name,
		Provider: res.provider.Name(),
	})

	// Forward chunks until the provider is done. A stalled provider trips the
	// idle timeout; a disconnected client cancels ctx. Either way the
	// in-flight generation is abandoned and no further chunks are delivered.
	aborted := false
	abortReason := ""
	idle := time.NewTimer(o.chunkIdleTimeout)
	defer idle.Stop()
	idleC := idle.C
	done := ctx.Done()

forward:
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				break forward
			}
			if aborted {
				continue // drain without delivering
			}
			// Reset without Stop/drain; go 1.23 timer semantics make a
			// stale receive from idle.C impossible after Reset returns.
			idle.Reset(o.chunkIdleTimeout)
			o.emit(ctx, events, StreamEvent{
				Type:          StreamChunk,
				JobID:         job.ID,
				Text:          c.Text,
				TokenEstimate: c.TokenEstimate,
			})
		case <-idleC:
			aborted = true
			abortReason = "stream aborted: no chunk received within idle timeout"
			cancel()
			idleC, done = nil, nil
		case <-done:
			aborted = true
			abortReason = "stream aborted: client disconnected"
			cancel()
			idleC, done = nil, nil
		}
	}

	out := <-outcome
	elapsed := time.Since(start)

	switch {
	case aborted:
		job.Fail(abortReason, elapsed)
		o.finalize(ctx, job, res.provider.Name(), nil, elapsed)
		o.emit(ctx, events, StreamEvent{
			Type:  StreamError,
			JobID: job.ID,
			Error: abortReason,
		})
	case out.err != nil:
		job.Fail(out.err.Error(), elapsed)
		o.finalize(ctx, job, res.provider.Name(), nil, elapsed)
		o.emit(ctx, events, StreamEvent{
			Type:  StreamError,
			JobID: job.ID,
			Error: out.err.Error(),
		})
	default:
		job.Complete(out.result.Text, out.result.Usage.TotalTokens, out.result.Cost, elapsed)
		o.finalize(ctx, job, res.provider.Name(), out.result, elapsed)
		usage := out.result.Usage
		o.emit(ctx, events, StreamEvent{
			Type:             StreamComplete,
			JobID:            job.ID,
			Model:            res.model.Name,
			Provider:         res.provider.Name(),
			Usage:            &usage,
			Cost:             out.result.Cost,
			ProcessingTimeMs: elapsed.Milliseconds(),
		})
	}
}

// emit pushes an event without blocking forever on a consumer that went
// away. Terminal events still land because finalize already persisted the
// job before emit is called.
func (o *orchestratorUC) emit(ctx context.Context, events chan<- StreamEvent, evt StreamEvent) {
	select {
	case events <- evt:
	case <-ctx.Done():
	}
}

// IsClientFault reports whether an error should map to a 4xx response.
func IsClientFault(err error) bool {
	var ve *domain.ValidationError
	var qe *domain.QuotaExceededError
	var me *domain.ModelUnavailableError
	return errors.As(err, &ve) || errors.As(err, &qe) || errors.As(err, &me)
}
