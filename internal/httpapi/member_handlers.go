package httpapi

import (
	"net/http"

	"trackd.org/internal/audit"
	"trackd.org/internal/auth"
)

type addMemberRequest struct {
	UserID  string   `json:"user_id"`
	RoleIDs []string `json:"role_ids"`
}

type grantRoleRequest struct {
	RoleID string `json:"role_id"`
}

type memberResponse struct {
	Membership *auth.Membership `json:"membership"`
	Roles      []*auth.Role     `json:"roles"`
}

// handleProjectMembers routes /v1/projects/{id}/members and below.
func (a *API) handleProjectMembers(w http.ResponseWriter, r *http.Request, projectID string, rest []string) {
	switch {
	case len(rest) == 0:
		a.handleMembersCollection(w, r, projectID)
	case len(rest) == 1:
		a.handleMember(w, r, projectID, rest[0])
	case len(rest) == 2 && rest[1] == "roles":
		a.handleMemberRoles(w, r, projectID, rest[0])
	case len(rest) == 3 && rest[1] == "roles":
		a.revokeMemberRole(w, r, projectID, rest[0], rest[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleMembersCollection(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		if _, r, ok := a.authorize(w, r, auth.OpGetMember, projectID); ok {
			members, err := a.auth.ListMembers(r.Context(), projectID)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": members})
		}
	case http.MethodPost:
		if _, r, ok := a.authorize(w, r, auth.OpAddMember, projectID); ok {
			var req addMemberRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			m, err := a.auth.AddMember(r.Context(), req.UserID, projectID)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}
			for _, roleID := range req.RoleIDs {
				if err := a.auth.GrantRole(r.Context(), req.UserID, projectID, roleID); err != nil {
					handleAuthError(w, r, err)
					return
				}
			}
			_ = audit.LogEvent(r.Context(), "member.added", map[string]any{
				"project_id":     projectID,
				"target_user_id": req.UserID,
				"role_ids":       req.RoleIDs,
			})
			writeJSON(w, http.StatusCreated, m)
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleMember(w http.ResponseWriter, r *http.Request, projectID, userID string) {
	switch r.Method {
	case http.MethodGet:
		if _, r, ok := a.authorize(w, r, auth.OpGetMember, projectID); ok {
			isMember, err := a.auth.IsMember(r.Context(), userID, projectID)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}
			if !isMember {
				writeError(w, r, http.StatusNotFound, "member not found")
				return
			}
			roles, err := a.auth.RolesOf(r.Context(), userID, projectID)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, memberResponse{
				Membership: &auth.Membership{UserID: userID, ProjectID: projectID},
				Roles:      roles,
			})
		}
	case http.MethodDelete:
		if _, r, ok := a.authorize(w, r, auth.OpRemoveMember, projectID); ok {
			if err := a.auth.RemoveMember(r.Context(), userID, projectID); err != nil {
				handleAuthError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "member.removed", map[string]any{
				"project_id":     projectID,
				"target_user_id": userID,
			})
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleMemberRoles(w http.ResponseWriter, r *http.Request, projectID, userID string) {
	switch r.Method {
	case http.MethodGet:
		if _, r, ok := a.authorize(w, r, auth.OpGetMember, projectID); ok {
			roles, err := a.auth.RolesOf(r.Context(), userID, projectID)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": roles})
		}
	case http.MethodPost:
		if _, r, ok := a.authorize(w, r, auth.OpGrantRole, projectID); ok {
			var req grantRoleRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			if err := a.auth.GrantRole(r.Context(), userID, projectID, req.RoleID); err != nil {
				handleAuthError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "role.granted", map[string]any{
				"project_id":     projectID,
				"target_user_id": userID,
				"role_id":        req.RoleID,
			})
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) revokeMemberRole(w http.ResponseWriter, r *http.Request, projectID, userID, roleID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if _, r, ok := a.authorize(w, r, auth.OpRevokeRole, projectID); ok {
		if err := a.auth.RevokeRole(r.Context(), userID, projectID, roleID); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "role.revoked", map[string]any{
			"project_id":     projectID,
			"target_user_id": userID,
			"role_id":        roleID,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
