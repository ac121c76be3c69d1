package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trackd.org/internal/audit"
	"trackd.org/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	RealName string `json:"real_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *auth.User `json:"user"`
}

type grantPermissionRequest struct {
	Permission string `json:"permission"`
}

func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, user, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"user_id": user.ID,
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(auth.DefaultTokenTTL),
		User:      user,
	})
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.registerUser(w, r)
	case http.MethodGet:
		a.listUsers(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.auth.Register(r.Context(), req.Email, req.Password, req.Nickname, req.RealName)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.registered", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, r, ok := a.authorize(w, r, auth.OpListUsers, ""); ok {
		q := r.URL.Query()
		filter := auth.UserFilter{
			Name:     strings.TrimSpace(q.Get("name")),
			Nickname: strings.TrimSpace(q.Get("nickname")),
			Email:    strings.TrimSpace(q.Get("email")),
		}
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 1000 {
				writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 1000")
				return
			}
			filter.Limit = n
		}
		if raw := q.Get("offset"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, r, http.StatusBadRequest, "offset must be >= 0")
				return
			}
			filter.Offset = n
		}
		users, err := a.auth.ListUsers(r.Context(), filter)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": users})
	}
}

func (a *API) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if principal, _, ok := a.authorize(w, r, auth.OpGetUserInfo, ""); ok {
		writeJSON(w, http.StatusOK, principal.User)
	}
}

// handleUserResource routes /v1/users/{id} and /v1/users/{id}/permissions[/...].
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	userID := parts[0]
	switch {
	case len(parts) == 1:
		a.getUser(w, r, userID)
	case len(parts) == 2 && parts[1] == "permissions":
		a.grantUserPermission(w, r, userID)
	case len(parts) == 3 && parts[1] == "permissions":
		a.revokeUserPermission(w, r, userID, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, r, ok := a.authorize(w, r, auth.OpGetUserInfo, ""); ok {
		user, err := a.auth.GetUser(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (a *API) grantUserPermission(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, r, ok := a.authorize(w, r, auth.OpGrantPermission, ""); ok {
		var req grantPermissionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.auth.GrantPermissionToUser(r.Context(), userID, req.Permission); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "permission.user.granted", map[string]any{
			"target_user_id": userID,
			"permission":     req.Permission,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) revokeUserPermission(w http.ResponseWriter, r *http.Request, userID, permission string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if _, r, ok := a.authorize(w, r, auth.OpRevokePermission, ""); ok {
		if err := a.auth.RevokePermissionFromUser(r.Context(), userID, permission); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "permission.user.revoked", map[string]any{
			"target_user_id": userID,
			"permission":     permission,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
