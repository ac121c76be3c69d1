package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"trackd.org/internal/auth"
	"trackd.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/token",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth extracts the bearer token and stashes it in the context. Handlers
// run the actual authorization decision per operation; this layer only
// rejects requests that carry no usable credential at all.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) || isRegistration(r) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithToken(r.Context(), token)))
	})
}

// authorize runs the gate for one operation in one project scope. It writes
// the error response itself and reports whether the handler may proceed; on
// allow the returned request carries the principal in its context. Any
// failure, including internal ones, denies the request.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, operationID, projectID string) (auth.Principal, *http.Request, bool) {
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		obs.ObserveAuthDecision(operationID, "deny_authn")
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return auth.Principal{}, r, false
	}

	principal, err := a.auth.Authorize(r.Context(), token, operationID, a.requirements, projectID)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			obs.ObserveAuthDecision(operationID, "deny_authn")
			writeError(w, r, http.StatusUnauthorized, "invalid token")
		case errors.Is(err, auth.ErrPermissionDenied):
			obs.ObserveAuthDecision(operationID, "deny_authz")
			writeError(w, r, http.StatusForbidden, "permission denied")
		default:
			obs.ObserveAuthDecision(operationID, "deny_error")
			writeError(w, r, http.StatusInternalServerError, "authorization error")
		}
		return auth.Principal{}, r, false
	}

	obs.ObserveAuthDecision(operationID, "allow")
	r = r.WithContext(auth.ContextWithPrincipal(r.Context(), principal))
	return principal, r, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// isRegistration: POST /v1/users is open so new accounts can be created.
func isRegistration(r *http.Request) bool {
	return r.Method == http.MethodPost && r.URL.Path == "/v1/users"
}
