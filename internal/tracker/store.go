package tracker

import (
	"context"

	"trackd.org/internal/auth"
)

// Store describes persistence operations required by the tracker domain.
type Store interface {
	Projects(ctx context.Context) ProjectStore
	IssueTypes(ctx context.Context) IssueTypeStore
	Issues(ctx context.Context) IssueStore
}

// ProjectStore manages projects.
type ProjectStore interface {
	// Create persists the project, its creator record, the default role
	// instantiation and the project-role bindings as one transaction.
	Create(ctx context.Context, p *Project, defaultRoles []auth.Role) error
	Find(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
	// ListForUser returns projects where the user holds a membership row.
	ListForUser(ctx context.Context, userID string) ([]*Project, error)
	Update(ctx context.Context, p *Project) error
	// Delete removes the project and its creator record.
	Delete(ctx context.Context, id string) error
}

// IssueTypeStore manages issue classifications and their availability per
// project.
type IssueTypeStore interface {
	Create(ctx context.Context, it *IssueType) error
	Find(ctx context.Context, id string) (*IssueType, error)
	Update(ctx context.Context, it *IssueType) error
	ListByProject(ctx context.Context, projectID string) ([]*IssueType, error)
	BindToProject(ctx context.Context, projectID, issueTypeID string) error
}

// IssueStore manages issues and their change log.
type IssueStore interface {
	// Create inserts the issue with the next free index inside its project;
	// the index assignment happens in the same transaction as the insert.
	Create(ctx context.Context, issue *Issue) error
	FindByIndex(ctx context.Context, projectID string, index int) (*Issue, error)
	ListByProject(ctx context.Context, projectID string) ([]*Issue, error)
	Update(ctx context.Context, issue *Issue) error
	AppendChange(ctx context.Context, change *IssueChange) error
	Changes(ctx context.Context, issueID string) ([]*IssueChange, error)
}
