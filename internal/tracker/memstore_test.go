package tracker

import (
	"context"
	"sort"

	"trackd.org/internal/auth"
)

// memStore is an in-memory Store for the service tests.
type memStore struct {
	projects     map[string]*Project
	creators     map[string]string // projectID -> creatorID
	projectRoles map[string][]auth.Role
	members      map[string][]string // projectID -> user ids
	issueTypes   map[string]*IssueType
	typeBindings map[string][]string // projectID -> issue type ids
	issues       map[string]*Issue   // by id
	changes      map[string][]*IssueChange
}

func newMemStore() *memStore {
	return &memStore{
		projects:     map[string]*Project{},
		creators:     map[string]string{},
		projectRoles: map[string][]auth.Role{},
		members:      map[string][]string{},
		issueTypes:   map[string]*IssueType{},
		typeBindings: map[string][]string{},
		issues:       map[string]*Issue{},
		changes:      map[string][]*IssueChange{},
	}
}

func (m *memStore) Projects(context.Context) ProjectStore     { return (*memProjects)(m) }
func (m *memStore) IssueTypes(context.Context) IssueTypeStore { return (*memIssueTypes)(m) }
func (m *memStore) Issues(context.Context) IssueStore         { return (*memIssues)(m) }

type memProjects memStore

func (m *memProjects) Create(_ context.Context, p *Project, defaultRoles []auth.Role) error {
	if _, ok := m.projects[p.ID]; ok {
		return ErrAlreadyExists
	}
	m.projects[p.ID] = p
	m.creators[p.ID] = p.CreatorID
	m.projectRoles[p.ID] = defaultRoles
	return nil
}

func (m *memProjects) Find(_ context.Context, id string) (*Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *memProjects) List(_ context.Context) ([]*Project, error) {
	var out []*Project
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memProjects) ListForUser(_ context.Context, userID string) ([]*Project, error) {
	var out []*Project
	for projectID, users := range m.members {
		for _, id := range users {
			if id == userID {
				if p, ok := m.projects[projectID]; ok {
					out = append(out, p)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memProjects) Update(_ context.Context, p *Project) error {
	if _, ok := m.projects[p.ID]; !ok {
		return ErrNotFound
	}
	m.projects[p.ID] = p
	return nil
}

func (m *memProjects) Delete(_ context.Context, id string) error {
	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.projects, id)
	delete(m.creators, id)
	return nil
}

type memIssueTypes memStore

func (m *memIssueTypes) Create(_ context.Context, it *IssueType) error {
	m.issueTypes[it.ID] = it
	return nil
}

func (m *memIssueTypes) Find(_ context.Context, id string) (*IssueType, error) {
	it, ok := m.issueTypes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return it, nil
}

func (m *memIssueTypes) Update(_ context.Context, it *IssueType) error {
	if _, ok := m.issueTypes[it.ID]; !ok {
		return ErrNotFound
	}
	m.issueTypes[it.ID] = it
	return nil
}

func (m *memIssueTypes) ListByProject(_ context.Context, projectID string) ([]*IssueType, error) {
	var out []*IssueType
	for _, id := range m.typeBindings[projectID] {
		if it, ok := m.issueTypes[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memIssueTypes) BindToProject(_ context.Context, projectID, issueTypeID string) error {
	if _, ok := m.issueTypes[issueTypeID]; !ok {
		return ErrNotFound
	}
	m.typeBindings[projectID] = append(m.typeBindings[projectID], issueTypeID)
	return nil
}

type memIssues memStore

func (m *memIssues) Create(_ context.Context, issue *Issue) error {
	if _, ok := m.projects[issue.ProjectID]; !ok {
		return ErrNotFound
	}
	next := 1
	for _, existing := range m.issues {
		if existing.ProjectID == issue.ProjectID && existing.Index >= next {
			next = existing.Index + 1
		}
	}
	issue.Index = next
	m.issues[issue.ID] = issue
	return nil
}

func (m *memIssues) FindByIndex(_ context.Context, projectID string, index int) (*Issue, error) {
	for _, issue := range m.issues {
		if issue.ProjectID == projectID && issue.Index == index {
			return issue, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memIssues) ListByProject(_ context.Context, projectID string) ([]*Issue, error) {
	var out []*Issue
	for _, issue := range m.issues {
		if issue.ProjectID == projectID {
			out = append(out, issue)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *memIssues) Update(_ context.Context, issue *Issue) error {
	if _, ok := m.issues[issue.ID]; !ok {
		return ErrNotFound
	}
	m.issues[issue.ID] = issue
	return nil
}

func (m *memIssues) AppendChange(_ context.Context, change *IssueChange) error {
	m.changes[change.IssueID] = append(m.changes[change.IssueID], change)
	return nil
}

func (m *memIssues) Changes(_ context.Context, issueID string) ([]*IssueChange, error) {
	return m.changes[issueID], nil
}

var _ Store = (*memStore)(nil)
