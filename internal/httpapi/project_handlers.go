package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"trackd.org/internal/audit"
	"trackd.org/internal/auth"
)

type projectRequest struct {
	Name             string `json:"name"`
	ShortDescription string `json:"short_description"`
	FullDescription  string `json:"full_description"`
}

func (a *API) handleProjectsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createProject(w, r)
	case http.MethodGet:
		a.listProjects(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	// Project creation is unscoped: there is no project yet to scope to.
	principal, r, ok := a.authorize(w, r, auth.OpCreateProject, "")
	if !ok {
		return
	}
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	project, err := a.tracker.CreateProject(r.Context(), principal.User.ID, req.Name, req.ShortDescription, req.FullDescription)
	if err != nil {
		handleTrackerError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "project.created", map[string]any{
		"project_id": project.ID,
		"name":       project.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/projects/%s", project.ID))
	writeJSON(w, http.StatusCreated, project)
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	principal, r, ok := a.authorize(w, r, auth.OpListProjects, "")
	if !ok {
		return
	}
	var err error
	var projects any
	if r.URL.Query().Get("mine") == "true" {
		projects, err = a.tracker.ListUserProjects(r.Context(), principal.User.ID)
	} else {
		projects, err = a.tracker.ListProjects(r.Context())
	}
	if err != nil {
		handleTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": projects})
}

// handleProjectScoped routes everything under /v1/projects/{id}.
func (a *API) handleProjectScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/projects/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	projectID := parts[0]
	if len(parts) == 1 {
		a.handleProject(w, r, projectID)
		return
	}
	switch parts[1] {
	case "members":
		a.handleProjectMembers(w, r, projectID, parts[2:])
	case "roles":
		a.handleProjectRoles(w, r, projectID, parts[2:])
	case "issue-types":
		a.handleProjectIssueTypes(w, r, projectID, parts[2:])
	case "issues":
		a.handleProjectIssues(w, r, projectID, parts[2:])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleProject(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		if _, r, ok := a.authorize(w, r, auth.OpGetProject, projectID); ok {
			project, err := a.tracker.GetProject(r.Context(), projectID)
			if err != nil {
				handleTrackerError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, project)
		}
	case http.MethodPut:
		if _, r, ok := a.authorize(w, r, auth.OpUpdateProject, projectID); ok {
			var req projectRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			project, err := a.tracker.UpdateProject(r.Context(), projectID, req.Name, req.ShortDescription, req.FullDescription)
			if err != nil {
				handleTrackerError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "project.updated", map[string]any{
				"project_id": project.ID,
			})
			writeJSON(w, http.StatusOK, project)
		}
	case http.MethodDelete:
		if _, r, ok := a.authorize(w, r, auth.OpDeleteProject, projectID); ok {
			if err := a.tracker.DeleteProject(r.Context(), projectID); err != nil {
				handleTrackerError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "project.deleted", map[string]any{
				"project_id": projectID,
			})
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
