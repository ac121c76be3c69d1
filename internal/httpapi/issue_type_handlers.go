package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"trackd.org/internal/audit"
	"trackd.org/internal/auth"
)

type issueTypeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type bindIssueTypeRequest struct {
	IssueTypeID string `json:"issue_type_id"`
}

func (a *API) handleIssueTypesCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, r, ok := a.authorize(w, r, auth.OpCreateIssueType, ""); ok {
		var req issueTypeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		it, err := a.tracker.CreateIssueType(r.Context(), req.Name, req.Description)
		if err != nil {
			handleTrackerError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "issue_type.created", map[string]any{
			"issue_type_id": it.ID,
			"name":          it.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/issue-types/%s", it.ID))
		writeJSON(w, http.StatusCreated, it)
	}
}

func (a *API) handleIssueTypeResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/issue-types/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if _, r, ok := a.authorize(w, r, auth.OpListIssueTypes, ""); ok {
			it, err := a.tracker.GetIssueType(r.Context(), id)
			if err != nil {
				handleTrackerError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, it)
		}
	case http.MethodPut:
		if _, r, ok := a.authorize(w, r, auth.OpUpdateIssueType, ""); ok {
			var req issueTypeRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			it, err := a.tracker.UpdateIssueType(r.Context(), id, req.Name, req.Description)
			if err != nil {
				handleTrackerError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "issue_type.updated", map[string]any{
				"issue_type_id": it.ID,
			})
			writeJSON(w, http.StatusOK, it)
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

// handleProjectIssueTypes serves /v1/projects/{id}/issue-types: listing the
// bound types and binding a new one.
func (a *API) handleProjectIssueTypes(w http.ResponseWriter, r *http.Request, projectID string, rest []string) {
	if len(rest) != 0 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if _, r, ok := a.authorize(w, r, auth.OpListIssueTypes, projectID); ok {
			types, err := a.tracker.ListProjectIssueTypes(r.Context(), projectID)
			if err != nil {
				handleTrackerError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": types})
		}
	case http.MethodPost:
		if _, r, ok := a.authorize(w, r, auth.OpBindIssueType, projectID); ok {
			var req bindIssueTypeRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			if err := a.tracker.BindIssueType(r.Context(), projectID, req.IssueTypeID); err != nil {
				handleTrackerError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "issue_type.bound", map[string]any{
				"project_id":    projectID,
				"issue_type_id": req.IssueTypeID,
			})
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}
