package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/config"
	"saas-ai-orchestrator/internal/domain/ports/adapter"
	"saas-ai-orchestrator/internal/infra/hardware"
	"saas-ai-orchestrator/internal/infra/metrics"
	"saas-ai-orchestrator/internal/usecase"
)

// AvailabilityReader answers whether the last probe saw a model as
// reachable. known=false means no probe has run yet.
type AvailabilityReader interface {
	Get(ctx context.Context, modelName string) (available bool, known bool)
}

type Server struct {
	orchestrator usecase.OrchestratorUseCase
	quota        usecase.QuotaUseCase
	registry     usecase.RegistryUseCase
	assignment   usecase.AssignmentUseCase
	providers    adapter.ProviderSet
	hw           *hardware.State
	availability AvailabilityReader

	localProvider  string
	hostedProvider string

	auth *authenticator
	log  *zerolog.Logger
}

type ServerParams struct {
	Orchestrator usecase.OrchestratorUseCase
	Quota        usecase.QuotaUseCase
	Registry     usecase.RegistryUseCase
	Assignment   usecase.AssignmentUseCase
	Providers    adapter.ProviderSet
	Hardware     *hardware.State
	Availability AvailabilityReader

	LocalProvider  string
	HostedProvider string
}

func NewServer(p ServerParams, cfg config.ServerConfig, dev bool, logger *zerolog.Logger) *Server {
	webLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		orchestrator:   p.Orchestrator,
		quota:          p.Quota,
		registry:       p.Registry,
		assignment:     p.Assignment,
		providers:      p.Providers,
		hw:             p.Hardware,
		availability:   p.Availability,
		localProvider:  p.LocalProvider,
		hostedProvider: p.HostedProvider,
		auth:           newAuthenticator(cfg.JWTSecret, dev, &webLog),
		log:            &webLog,
	}
}

// Router wires the full route tree. The streaming route skips the server
// timeout since event delivery is bounded by the orchestrator's own idle
// timeout instead.
func (s *Server) Router(cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(traceMiddleware)
	r.Use(recoverMiddleware(s.log))
	r.Use(requestLogMiddleware(s.log))

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.middleware)

		r.With(timeoutMiddleware(cfg.RequestTimeout)).Post("/generate", s.generateHandler())
		r.Post("/generate/stream", s.streamHandler())
		r.Get("/jobs/{id}", s.jobGetHandler())
		r.Get("/models", s.modelsListHandler())
		r.Get("/quota", s.quotaHandler())
		r.Get("/system", s.systemHandler())
	})

	return r
}
