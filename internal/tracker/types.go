package tracker

import "time"

// Project groups issues and members. CreatorID is set at creation and never
// changes.
type Project struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ShortDescription string    `json:"short_description,omitempty"`
	FullDescription  string    `json:"full_description,omitempty"`
	CreatorID        string    `json:"creator_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IssueType is a reusable issue classification (Bug, Feature, ...).
type IssueType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Issue statuses. Status transitions are recorded in the change log.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Issue belongs to exactly one project and carries a per-project index that
// is stable and human-facing (project "P", issue #4).
type Issue struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"project_id"`
	Index            int       `json:"index"`
	TypeID           string    `json:"type_id"`
	Status           string    `json:"status"`
	ShortDescription string    `json:"short_description"`
	FullDescription  string    `json:"full_description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IssueChange is one entry of the per-issue diff log.
type IssueChange struct {
	IssueID  string    `json:"issue_id"`
	Date     time.Time `json:"date"`
	AuthorID string    `json:"author_id,omitempty"`
	Change   string    `json:"change"`
}
