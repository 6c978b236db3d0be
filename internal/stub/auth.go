package stub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"suivi/internal/domain"
	"suivi/internal/identity"
)

type AuthConfig struct {
	JWTSecret string
	Logger    *slog.Logger
}

type principalKey struct{}

func withPrincipal(ctx context.Context, v domain.Viewer) context.Context {
	return context.WithValue(ctx, principalKey{}, v)
}

// principalFromContext returns the authenticated viewer of the request.
func principalFromContext(ctx context.Context) (domain.Viewer, huma.StatusError) {
	if v, ok := ctx.Value(principalKey{}).(domain.Viewer); ok && v.ID != "" {
		return v, nil
	}
	return domain.Viewer{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// newAuthMiddleware verifies bearer tokens under basePath. Health and dev
// login stay open. The role is re-read from the store so a token cannot
// outlive a demotion.
func newAuthMiddleware(basePath string, cfg AuthConfig, store *Store) func(http.Handler) http.Handler {
	open := map[string]bool{
		path.Join(basePath, "health"):         true,
		path.Join(basePath, "auth/dev/login"): true,
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.URL.Path, basePath) || open[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}
			authz := strings.TrimSpace(req.Header.Get("Authorization"))
			if authz == "" {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
				return
			}
			token, ok := bearerToken(authz)
			if !ok {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
				return
			}
			claims, err := identity.ParseToken(token, cfg.JWTSecret)
			if err != nil {
				logger.Debug("token rejected", "error", err)
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
				return
			}
			subject, err := store.GetDisciple(req.Context(), claims.Subject)
			if err != nil {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "unknown disciple", nil))
				return
			}
			ctx := withPrincipal(req.Context(), domain.Viewer{ID: subject.ID, Role: subject.Role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.GetStatus())
	_ = json.NewEncoder(w).Encode(err)
}
