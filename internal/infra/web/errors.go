package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/domain"
)

// errorBody is the wire shape of every non-2xx response. Code is stable
// and machine-matchable; Details carries enough structure for a client
// to act (switch model, upgrade plan) without parsing the message.
type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	var ve *domain.ValidationError
	var qe *domain.QuotaExceededError
	var me *domain.ModelUnavailableError
	var pu *domain.ProviderUnavailableError
	var pe *domain.ProviderExecutionError
	var se *domain.StorageError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: ve.Error(),
			Code:  "validation_error",
			Details: map[string]any{
				"field":  ve.Field,
				"reason": ve.Reason,
			},
		})
	case errors.As(err, &qe):
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error: qe.Error(),
			Code:  "quota_exceeded",
			Details: map[string]any{
				"feature":       qe.Feature,
				"plan_tier":     qe.PlanTier,
				"current_usage": qe.CurrentUsage,
				"limit":         qe.Limit,
				"hint":          "upgrade your plan or wait for the monthly reset",
			},
		})
	case errors.As(err, &me):
		writeJSON(w, http.StatusNotFound, errorBody{
			Error: me.Error(),
			Code:  "model_unavailable",
			Details: map[string]any{
				"model":  me.ModelName,
				"reason": me.Reason,
			},
		})
	case errors.As(err, &pu):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error: pu.Error(),
			Code:  "provider_unavailable",
			Details: map[string]any{
				"provider": pu.Provider,
			},
		})
	case errors.As(err, &pe):
		log.Error().Err(err).Msg("provider execution failed")
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error: pe.Error(),
			Code:  "provider_error",
			Details: map[string]any{
				"provider": pe.Provider,
				"model":    pe.Model,
			},
		})
	case errors.As(err, &se):
		log.Error().Err(err).Msg("storage failure")
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error: "internal storage failure",
			Code:  "storage_error",
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{
			Error: "not found",
			Code:  "not_found",
		})
	default:
		log.Error().Err(err).Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error: "internal error",
			Code:  "internal",
		})
	}
}
