package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"trackd.org/internal/audit"
	"trackd.org/internal/auth"
)

type createIssueRequest struct {
	TypeID           string `json:"type_id"`
	ShortDescription string `json:"short_description"`
	FullDescription  string `json:"full_description"`
}

type updateIssueRequest struct {
	TypeID           string `json:"type_id"`
	Status           string `json:"status"`
	ShortDescription string `json:"short_description"`
	FullDescription  string `json:"full_description"`
}

// handleProjectIssues routes /v1/projects/{id}/issues and below. Issues are
// addressed by their per-project index, not by id.
func (a *API) handleProjectIssues(w http.ResponseWriter, r *http.Request, projectID string, rest []string) {
	switch {
	case len(rest) == 0:
		a.handleIssuesCollection(w, r, projectID)
		return
	case len(rest) <= 2:
		index, err := strconv.Atoi(rest[0])
		if err != nil || index <= 0 {
			writeError(w, r, http.StatusNotFound, "issue not found")
			return
		}
		if len(rest) == 1 {
			a.handleIssue(w, r, projectID, index)
			return
		}
		switch rest[1] {
		case "close":
			a.closeIssue(w, r, projectID, index)
			return
		case "changes":
			a.issueChanges(w, r, projectID, index)
			return
		}
	}
	writeError(w, r, http.StatusNotFound, "resource not found")
}

func (a *API) handleIssuesCollection(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		if _, r, ok := a.authorize(w, r, auth.OpListIssues, projectID); ok {
			issues, err := a.tracker.ListIssues(r.Context(), projectID)
			if err != nil {
				handleTrackerError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": issues})
		}
	case http.MethodPost:
		if _, r, ok := a.authorize(w, r, auth.OpCreateIssue, projectID); ok {
			var req createIssueRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			issue, err := a.tracker.CreateIssue(r.Context(), projectID, req.TypeID, req.ShortDescription, req.FullDescription)
			if err != nil {
				handleTrackerError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "issue.created", map[string]any{
				"project_id":  projectID,
				"issue_id":    issue.ID,
				"issue_index": issue.Index,
			})
			w.Header().Set("Location", fmt.Sprintf("/v1/projects/%s/issues/%d", projectID, issue.Index))
			writeJSON(w, http.StatusCreated, issue)
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleIssue(w http.ResponseWriter, r *http.Request, projectID string, index int) {
	switch r.Method {
	case http.MethodGet:
		if _, r, ok := a.authorize(w, r, auth.OpGetIssue, projectID); ok {
			issue, err := a.tracker.GetIssue(r.Context(), projectID, index)
			if err != nil {
				handleTrackerError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, issue)
		}
	case http.MethodPut:
		if principal, r, ok := a.authorize(w, r, auth.OpUpdateIssue, projectID); ok {
			var req updateIssueRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			issue, err := a.tracker.UpdateIssue(r.Context(), principal.User.ID, projectID, index,
				req.TypeID, req.Status, req.ShortDescription, req.FullDescription)
			if err != nil {
				handleTrackerError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "issue.updated", map[string]any{
				"project_id":  projectID,
				"issue_index": index,
			})
			writeJSON(w, http.StatusOK, issue)
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) closeIssue(w http.ResponseWriter, r *http.Request, projectID string, index int) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if principal, r, ok := a.authorize(w, r, auth.OpCloseIssue, projectID); ok {
		issue, err := a.tracker.CloseIssue(r.Context(), principal.User.ID, projectID, index)
		if err != nil {
			handleTrackerError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "issue.closed", map[string]any{
			"project_id":  projectID,
			"issue_index": index,
		})
		writeJSON(w, http.StatusOK, issue)
	}
}

func (a *API) issueChanges(w http.ResponseWriter, r *http.Request, projectID string, index int) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, r, ok := a.authorize(w, r, auth.OpGetIssue, projectID); ok {
		changes, err := a.tracker.IssueChanges(r.Context(), projectID, index)
		if err != nil {
			handleTrackerError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": changes})
	}
}
