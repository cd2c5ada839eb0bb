package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/stockmatch/internal/auth"
)

var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Auth returns a middleware that authenticates operators. Health and
// metrics endpoints and CORS preflights stay open. A nil authenticator
// lets every request through.
func Auth(authenticator auth.Authenticator, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if authenticator == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			info, err := authenticator.Authenticate(r)
			if err != nil {
				logger.Warn("authentication failed",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeAuthError(w, err)
				return
			}

			logger.Debug("authenticated",
				zap.String("subject", info.Subject),
				zap.String("auth_method", string(info.Method)),
				zap.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(auth.WithAuthInfo(r.Context(), info)))
		})
	}
}

// isPublicPath matches the public paths and their sub-paths, but not paths
// that only share a prefix.
func isPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	for p := range publicPaths {
		if strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

type authErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", `Basic realm="stockmatch"`)
	case errors.Is(err, auth.ErrInvalidAPIKey):
		w.Header().Set("WWW-Authenticate", "API-Key")
	default:
		w.Header().Set("WWW-Authenticate", `Basic realm="stockmatch", API-Key`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	_ = json.NewEncoder(w).Encode(authErrorResponse{
		Code:    http.StatusUnauthorized,
		Message: err.Error(),
	})
}
