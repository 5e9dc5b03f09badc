package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/infra/logging"
)

// tenantClaims is the token shape minted by the account service: tenant
// and user identity arrive out-of-band in the bearer token, never in
// request bodies.
type tenantClaims struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	jwt.RegisteredClaims
}

type authenticator struct {
	secret []byte
	dev    bool
	log    *zerolog.Logger
}

func newAuthenticator(secret string, dev bool, logger *zerolog.Logger) *authenticator {
	return &authenticator{secret: []byte(secret), dev: dev, log: logger}
}

func (a *authenticator) parse(tok string) (*tenantClaims, error) {
	claims := &tenantClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TenantID == "" {
		return nil, errors.New("token missing tenant_id")
	}
	return claims, nil
}

// middleware resolves the caller's identity into the request context.
// Dev mode accepts plain X-Tenant-ID / X-User-ID headers so local
// testing does not need a token mint.
func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if hdr := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			claims, err := a.parse(strings.TrimSpace(hdr[7:]))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Code: "unauthorized"})
				return
			}
			ctx = logging.WithTenantID(ctx, claims.TenantID)
			ctx = logging.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if a.dev {
			if tid := r.Header.Get("X-Tenant-ID"); tid != "" {
				ctx = logging.WithTenantID(ctx, tid)
			}
			if uid := r.Header.Get("X-User-ID"); uid != "" {
				ctx = logging.WithUserID(ctx, uid)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Code: "unauthorized"})
	})
}
