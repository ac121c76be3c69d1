package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"trackd.org/internal/audit"
	"trackd.org/internal/auth"
)

type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type rolePermissionRequest struct {
	Permission string `json:"permission"`
}

func (a *API) handleRolesCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, r, ok := a.authorize(w, r, auth.OpCreateRole, ""); ok {
		var req roleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.auth.CreateRole(r.Context(), req.Name, req.Description)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "role.created", map[string]any{
			"role_id": role.ID,
			"name":    role.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/roles/%s", role.ID))
		writeJSON(w, http.StatusCreated, role)
	}
}

// handleRoleResource routes /v1/roles/{id} and /v1/roles/{id}/permissions[/...].
func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	roleID := parts[0]
	switch {
	case len(parts) == 1:
		a.handleRole(w, r, roleID)
	case len(parts) == 2 && parts[1] == "permissions":
		a.handleRolePermissions(w, r, roleID)
	case len(parts) == 3 && parts[1] == "permissions":
		a.revokeRolePermission(w, r, roleID, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleRole(w http.ResponseWriter, r *http.Request, roleID string) {
	switch r.Method {
	case http.MethodGet:
		if _, r, ok := a.authorize(w, r, auth.OpListRoles, ""); ok {
			role, err := a.auth.GetRole(r.Context(), roleID)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, role)
		}
	case http.MethodPut:
		if _, r, ok := a.authorize(w, r, auth.OpUpdateRole, ""); ok {
			var req roleRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			role, err := a.auth.UpdateRole(r.Context(), roleID, req.Name, req.Description)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "role.updated", map[string]any{
				"role_id": role.ID,
			})
			writeJSON(w, http.StatusOK, role)
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleRolePermissions(w http.ResponseWriter, r *http.Request, roleID string) {
	switch r.Method {
	case http.MethodGet:
		if _, r, ok := a.authorize(w, r, auth.OpListPermissions, ""); ok {
			perms, err := a.auth.RolePermissions(r.Context(), roleID)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": perms})
		}
	case http.MethodPost:
		if _, r, ok := a.authorize(w, r, auth.OpGrantPermission, ""); ok {
			var req rolePermissionRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			if err := a.auth.GrantPermissionToRole(r.Context(), roleID, req.Permission); err != nil {
				handleAuthError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "permission.role.granted", map[string]any{
				"role_id":    roleID,
				"permission": req.Permission,
			})
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) revokeRolePermission(w http.ResponseWriter, r *http.Request, roleID, permission string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if _, r, ok := a.authorize(w, r, auth.OpRevokePermission, ""); ok {
		if err := a.auth.RevokePermissionFromRole(r.Context(), roleID, permission); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "permission.role.revoked", map[string]any{
			"role_id":    roleID,
			"permission": permission,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) handlePermissionsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, r, ok := a.authorize(w, r, auth.OpListPermissions, ""); ok {
		perms, err := a.auth.ListPermissions(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": perms})
	}
}

// handleProjectRoles serves GET /v1/projects/{id}/roles.
func (a *API) handleProjectRoles(w http.ResponseWriter, r *http.Request, projectID string, rest []string) {
	if len(rest) != 0 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, r, ok := a.authorize(w, r, auth.OpListRoles, projectID); ok {
		roles, err := a.auth.ProjectRoles(r.Context(), projectID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": roles})
	}
}
