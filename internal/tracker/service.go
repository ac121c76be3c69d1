package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trackd.org/internal/auth"
	"trackd.org/internal/ids"
)

// Service provides project, issue-type and issue operations. Authorization
// happens before any of these are invoked; the service trusts its callers on
// that and only validates inputs.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the tracker service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateProject creates a project owned by creatorID. The project row, the
// creator record and the default role instantiation land in one transaction:
// either the project exists fully set up or not at all.
func (s *Service) CreateProject(ctx context.Context, creatorID, name, shortDesc, fullDesc string) (*Project, error) {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil, fmt.Errorf("%w: creator is required", ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	p := &Project{
		ID:               ids.New(),
		Name:             name,
		ShortDescription: strings.TrimSpace(shortDesc),
		FullDescription:  strings.TrimSpace(fullDesc),
		CreatorID:        creatorID,
	}
	defaults := auth.DefaultProjectRoles()
	for i := range defaults {
		defaults[i].ID = ids.New()
	}
	if err := s.store.Projects(ctx).Create(ctx, p, defaults); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject fetches one project.
func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: project_id is required", ErrInvalidInput)
	}
	return s.store.Projects(ctx).Find(ctx, id)
}

// ListProjects returns all projects.
func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.store.Projects(ctx).List(ctx)
}

// ListUserProjects returns projects the user is an explicit member of.
func (s *Service) ListUserProjects(ctx context.Context, userID string) ([]*Project, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.Projects(ctx).ListForUser(ctx, userID)
}

// UpdateProject applies non-empty fields to the project.
func (s *Service) UpdateProject(ctx context.Context, id, name, shortDesc, fullDesc string) (*Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: project_id is required", ErrInvalidInput)
	}
	projects := s.store.Projects(ctx)
	p, err := projects.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		p.Name = name
	}
	if shortDesc = strings.TrimSpace(shortDesc); shortDesc != "" {
		p.ShortDescription = shortDesc
	}
	if fullDesc = strings.TrimSpace(fullDesc); fullDesc != "" {
		p.FullDescription = fullDesc
	}
	if err := projects.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProject removes the project and its creator record.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: project_id is required", ErrInvalidInput)
	}
	return s.store.Projects(ctx).Delete(ctx, id)
}

// CreateIssueType adds an issue classification.
func (s *Service) CreateIssueType(ctx context.Context, name, description string) (*IssueType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: issue type name is required", ErrInvalidInput)
	}
	it := &IssueType{ID: ids.New(), Name: name, Description: strings.TrimSpace(description)}
	if err := s.store.IssueTypes(ctx).Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// GetIssueType fetches one issue type.
func (s *Service) GetIssueType(ctx context.Context, id string) (*IssueType, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: issue_type_id is required", ErrInvalidInput)
	}
	return s.store.IssueTypes(ctx).Find(ctx, id)
}

// UpdateIssueType applies non-empty fields to an issue type.
func (s *Service) UpdateIssueType(ctx context.Context, id, name, description string) (*IssueType, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: issue_type_id is required", ErrInvalidInput)
	}
	types := s.store.IssueTypes(ctx)
	it, err := types.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		it.Name = name
	}
	if description = strings.TrimSpace(description); description != "" {
		it.Description = description
	}
	if err := types.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// BindIssueType makes an issue type usable inside a project.
func (s *Service) BindIssueType(ctx context.Context, projectID, issueTypeID string) error {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(issueTypeID) == "" {
		return fmt.Errorf("%w: project_id and issue_type_id are required", ErrInvalidInput)
	}
	return s.store.IssueTypes(ctx).BindToProject(ctx, projectID, issueTypeID)
}

// ListProjectIssueTypes returns the issue types bound to a project.
func (s *Service) ListProjectIssueTypes(ctx context.Context, projectID string) ([]*IssueType, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", ErrInvalidInput)
	}
	return s.store.IssueTypes(ctx).ListByProject(ctx, projectID)
}

// CreateIssue opens a new issue inside a project. The per-project index is
// assigned by the store in the insert transaction.
func (s *Service) CreateIssue(ctx context.Context, projectID, typeID, shortDesc, fullDesc string) (*Issue, error) {
	projectID = strings.TrimSpace(projectID)
	typeID = strings.TrimSpace(typeID)
	if projectID == "" || typeID == "" {
		return nil, fmt.Errorf("%w: project_id and type_id are required", ErrInvalidInput)
	}
	if strings.TrimSpace(shortDesc) == "" {
		return nil, fmt.Errorf("%w: short description is required", ErrInvalidInput)
	}
	issue := &Issue{
		ID:               ids.New(),
		ProjectID:        projectID,
		TypeID:           typeID,
		Status:           StatusOpen,
		ShortDescription: strings.TrimSpace(shortDesc),
		FullDescription:  strings.TrimSpace(fullDesc),
	}
	if err := s.store.Issues(ctx).Create(ctx, issue); err != nil {
		return nil, err
	}
	return issue, nil
}

// GetIssue fetches an issue by its per-project index.
func (s *Service) GetIssue(ctx context.Context, projectID string, index int) (*Issue, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" || index <= 0 {
		return nil, fmt.Errorf("%w: project_id and a positive index are required", ErrInvalidInput)
	}
	return s.store.Issues(ctx).FindByIndex(ctx, projectID, index)
}

// ListIssues returns all issues of a project in index order.
func (s *Service) ListIssues(ctx context.Context, projectID string) ([]*Issue, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", ErrInvalidInput)
	}
	return s.store.Issues(ctx).ListByProject(ctx, projectID)
}

// UpdateIssue applies changes to an issue and appends the field-level diff to
// the change log, attributed to authorID.
func (s *Service) UpdateIssue(ctx context.Context, authorID, projectID string, index int, typeID, status, shortDesc, fullDesc string) (*Issue, error) {
	issue, err := s.GetIssue(ctx, projectID, index)
	if err != nil {
		return nil, err
	}
	before := *issue

	if typeID = strings.TrimSpace(typeID); typeID != "" {
		issue.TypeID = typeID
	}
	if status = strings.TrimSpace(status); status != "" {
		if status != StatusOpen && status != StatusClosed {
			return nil, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
		}
		issue.Status = status
	}
	if shortDesc = strings.TrimSpace(shortDesc); shortDesc != "" {
		issue.ShortDescription = shortDesc
	}
	if fullDesc = strings.TrimSpace(fullDesc); fullDesc != "" {
		issue.FullDescription = fullDesc
	}

	diff := issueDiff(&before, issue)
	if diff == "" {
		return issue, nil
	}
	issues := s.store.Issues(ctx)
	if err := issues.Update(ctx, issue); err != nil {
		return nil, err
	}
	change := &IssueChange{
		IssueID:  issue.ID,
		Date:     s.now().UTC(),
		AuthorID: strings.TrimSpace(authorID),
		Change:   diff,
	}
	if err := issues.AppendChange(ctx, change); err != nil {
		return nil, err
	}
	return issue, nil
}

// CloseIssue transitions an issue to closed and records the change.
func (s *Service) CloseIssue(ctx context.Context, authorID, projectID string, index int) (*Issue, error) {
	issue, err := s.GetIssue(ctx, projectID, index)
	if err != nil {
		return nil, err
	}
	if issue.Status == StatusClosed {
		return nil, ErrClosed
	}
	return s.UpdateIssue(ctx, authorID, projectID, index, "", StatusClosed, "", "")
}

// IssueChanges returns the diff log of an issue, oldest first.
func (s *Service) IssueChanges(ctx context.Context, projectID string, index int) ([]*IssueChange, error) {
	issue, err := s.GetIssue(ctx, projectID, index)
	if err != nil {
		return nil, err
	}
	return s.store.Issues(ctx).Changes(ctx, issue.ID)
}
