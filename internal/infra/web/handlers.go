package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/infra/logging"
	"saas-ai-orchestrator/internal/usecase"
)

// generateRequest is the inbound body. Identity is never part of the
// body; it comes from the bearer token (or dev headers).
type generateRequest struct {
	Prompt  string         `json:"prompt"`
	Model   string         `json:"model,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// toUseCase lifts the wire shape into the orchestrator's request, pulling
// the well-known option keys out and passing the rest through untouched.
func (g generateRequest) toUseCase(tenantID, userID string) usecase.GenerateRequest {
	req := usecase.GenerateRequest{
		TenantID: tenantID,
		UserID:   userID,
		Prompt:   g.Prompt,
		Model:    g.Model,
	}
	opts := make(map[string]any, len(g.Options))
	for k, v := range g.Options {
		switch k {
		case "maxOutputSize":
			if n, ok := v.(float64); ok {
				req.MaxTokens = int(n)
				continue
			}
		case "temperature":
			if t, ok := v.(float64); ok {
				req.Temperature = t
				continue
			}
		}
		opts[k] = v
	}
	if len(opts) > 0 {
		req.Options = opts
	}
	return req
}

func (s *Server) generateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Code: "validation_error"})
			return
		}

		resp, err := s.orchestrator.Process(ctx, req.toUseCase(logging.TenantID(ctx), logging.UserID(ctx)))
		if err != nil {
			writeError(w, logging.With(ctx, s.log), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type jobResponse struct {
	JobID       string            `json:"jobId"`
	Status      model.JobStatus   `json:"status"`
	Model       string            `json:"model,omitempty"`
	Output      string            `json:"output,omitempty"`
	Error       string            `json:"error,omitempty"`
	TokensUsed  int               `json:"tokensUsed,omitempty"`
	Cost        float64           `json:"cost,omitempty"`
	DurationMs  int64             `json:"durationMs,omitempty"`
	Metadata    model.JobMetadata `json:"metadata"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

func (s *Server) jobGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		job, err := s.orchestrator.JobByID(ctx, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, logging.With(ctx, s.log), err)
			return
		}
		// Tenants only see their own jobs.
		if job.TenantID != "" && job.TenantID != logging.TenantID(ctx) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "not found", Code: "not_found"})
			return
		}
		writeJSON(w, http.StatusOK, jobResponse{
			JobID:       job.ID,
			Status:      job.Status,
			Model:       job.ModelName,
			Output:      job.Output,
			Error:       job.LastError,
			TokensUsed:  job.TokensUsed,
			Cost:        job.Cost,
			DurationMs:  job.DurationMs,
			Metadata:    job.Metadata,
			CreatedAt:   job.CreatedAt,
			CompletedAt: job.CompletedAt,
		})
	}
}

type modelInfo struct {
	Name         string  `json:"name"`
	Provider     string  `json:"provider"`
	Tier         string  `json:"tier"`
	CostPerToken float64 `json:"costPerToken"`
	MaxTokens    int     `json:"maxTokens,omitempty"`
	Available    *bool   `json:"available,omitempty"` // absent until first probe
	Assigned     bool    `json:"assigned"`
}

func (s *Server) modelsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		models, err := s.registry.ListActive(ctx)
		if err != nil {
			writeError(w, logging.With(ctx, s.log), err)
			return
		}
		assigned := map[string]bool{}
		for _, name := range s.assignment.AssignedModels(ctx, s.hw.Classify()) {
			assigned[name] = true
		}
		out := make([]modelInfo, 0, len(models))
		for _, m := range models {
			info := modelInfo{
				Name:         m.Name,
				Provider:     m.Provider,
				Tier:         m.Tier.String(),
				CostPerToken: m.CostPerToken,
				MaxTokens:    m.MaxTokens,
				Assigned:     assigned[m.Name],
			}
			if s.availability != nil {
				if avail, known := s.availability.Get(ctx, m.Name); known {
					info.Available = &avail
				}
			}
			out = append(out, info)
		}
		writeJSON(w, http.StatusOK, map[string]any{"models": out})
	}
}

func (s *Server) quotaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status, err := s.quota.Usage(ctx, logging.TenantID(ctx), model.FeatureAIRequests)
		if err != nil {
			writeError(w, logging.With(ctx, s.log), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"plan_tier":     status.Tier,
			"feature":       status.Feature,
			"current_usage": status.CurrentUsage,
			"limit":         status.Limit,
			"unlimited":     status.Limit == model.UnlimitedQuota,
		})
	}
}

func (s *Server) systemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		writeJSON(w, http.StatusOK, map[string]any{
			"hardware":        s.hw.Profile(),
			"classification":  s.hw.Classify(),
			"optimal":         s.hw.Optimal(s.localProvider, s.hostedProvider),
			"load":            s.hw.CurrentLoad(),
			"assigned_models": s.assignment.AssignedModels(ctx, s.hw.Classify()),
			"providers":       s.providers.Names(),
		})
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
