package httpapi

import (
	"context"
	"sort"
	"strings"

	"trackd.org/internal/auth"
	"trackd.org/internal/tracker"
)

// memBackend implements auth.Store and tracker.Store in memory for handler
// tests. Minimal semantics, no concurrency guarantees.
type memBackend struct {
	users        map[string]*auth.User
	tokens       map[string]*auth.Token // by user id
	memberships  map[string]bool        // userID|projectID
	creators     map[string]bool
	roles        map[string]*auth.Role
	projectRoles map[string][]string
	bindings     []auth.RoleBinding
	rolePerms    map[string][]string
	userPerms    map[string][]string
	perms        map[string]auth.Permission

	projects     map[string]*tracker.Project
	issueTypes   map[string]*tracker.IssueType
	typeBindings map[string][]string
	issues       map[string]*tracker.Issue
	changes      map[string][]*tracker.IssueChange
}

func newMemBackend() *memBackend {
	return &memBackend{
		users:        map[string]*auth.User{},
		tokens:       map[string]*auth.Token{},
		memberships:  map[string]bool{},
		creators:     map[string]bool{},
		roles:        map[string]*auth.Role{},
		projectRoles: map[string][]string{},
		rolePerms:    map[string][]string{},
		userPerms:    map[string][]string{},
		perms:        map[string]auth.Permission{},
		projects:     map[string]*tracker.Project{},
		issueTypes:   map[string]*tracker.IssueType{},
		typeBindings: map[string][]string{},
		issues:       map[string]*tracker.Issue{},
		changes:      map[string][]*tracker.IssueChange{},
	}
}

func pairKey(userID, projectID string) string { return userID + "|" + projectID }

// --- auth.Store ---

func (b *memBackend) Users(context.Context) auth.UserStore             { return (*stubUsers)(b) }
func (b *memBackend) Tokens(context.Context) auth.TokenStore           { return (*stubTokens)(b) }
func (b *memBackend) Memberships(context.Context) auth.MembershipStore { return (*stubMemberships)(b) }
func (b *memBackend) Roles(context.Context) auth.RoleStore             { return (*stubRoles)(b) }
func (b *memBackend) Permissions(context.Context) auth.PermissionStore { return (*stubPerms)(b) }

type stubUsers memBackend

func (b *stubUsers) Create(_ context.Context, u *auth.User) error {
	b.users[u.ID] = u
	return nil
}

func (b *stubUsers) Find(_ context.Context, id string) (*auth.User, error) {
	if u, ok := b.users[id]; ok {
		return u, nil
	}
	return nil, auth.ErrNotFound
}

func (b *stubUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range b.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (b *stubUsers) List(_ context.Context, _ auth.UserFilter) ([]*auth.User, error) {
	var out []*auth.User
	for _, u := range b.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type stubTokens memBackend

func (b *stubTokens) Upsert(_ context.Context, tok *auth.Token) error {
	b.tokens[tok.UserID] = tok
	return nil
}

func (b *stubTokens) Find(_ context.Context, value string) (*auth.Token, error) {
	for _, tok := range b.tokens {
		if tok.Value == value {
			return tok, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (b *stubTokens) FindUser(ctx context.Context, value string) (*auth.User, error) {
	tok, err := b.Find(ctx, value)
	if err != nil {
		return nil, err
	}
	if u, ok := b.users[tok.UserID]; ok {
		return u, nil
	}
	return nil, auth.ErrNotFound
}

type stubMemberships memBackend

func (b *stubMemberships) Add(_ context.Context, m *auth.Membership) error {
	b.memberships[pairKey(m.UserID, m.ProjectID)] = true
	return nil
}

func (b *stubMemberships) Remove(_ context.Context, userID, projectID string) error {
	delete(b.memberships, pairKey(userID, projectID))
	return nil
}

func (b *stubMemberships) Exists(_ context.Context, userID, projectID string) (bool, error) {
	return b.memberships[pairKey(userID, projectID)], nil
}

func (b *stubMemberships) IsCreator(_ context.Context, userID, projectID string) (bool, error) {
	return b.creators[pairKey(userID, projectID)], nil
}

func (b *stubMemberships) ListByProject(_ context.Context, projectID string) ([]*auth.Membership, error) {
	var out []*auth.Membership
	for key := range b.memberships {
		parts := strings.SplitN(key, "|", 2)
		if parts[1] == projectID {
			out = append(out, &auth.Membership{UserID: parts[0], ProjectID: projectID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type stubRoles memBackend

func (b *stubRoles) Create(_ context.Context, role *auth.Role) error {
	b.roles[role.ID] = role
	return nil
}

func (b *stubRoles) Find(_ context.Context, id string) (*auth.Role, error) {
	if role, ok := b.roles[id]; ok {
		return role, nil
	}
	return nil, auth.ErrNotFound
}

func (b *stubRoles) Update(_ context.Context, role *auth.Role) error {
	b.roles[role.ID] = role
	return nil
}

func (b *stubRoles) ListByProject(_ context.Context, projectID string) ([]*auth.Role, error) {
	var out []*auth.Role
	for _, id := range b.projectRoles[projectID] {
		if role, ok := b.roles[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (b *stubRoles) Grant(_ context.Context, binding auth.RoleBinding) error {
	b.bindings = append(b.bindings, binding)
	return nil
}

func (b *stubRoles) Revoke(_ context.Context, binding auth.RoleBinding) error {
	for i, existing := range b.bindings {
		if existing == binding {
			b.bindings = append(b.bindings[:i], b.bindings[i+1:]...)
			return nil
		}
	}
	return auth.ErrNotFound
}

func (b *stubRoles) BindingsFor(_ context.Context, userID, projectID string) ([]auth.RoleBinding, error) {
	var out []auth.RoleBinding
	for _, binding := range b.bindings {
		if binding.UserID == userID && binding.ProjectID == projectID {
			out = append(out, binding)
		}
	}
	return out, nil
}

type stubPerms memBackend

func (b *stubPerms) Ensure(_ context.Context, perms []auth.Permission) error {
	for _, p := range perms {
		b.perms[p.Name] = p
	}
	return nil
}

func (b *stubPerms) List(_ context.Context) ([]auth.Permission, error) {
	var out []auth.Permission
	for _, p := range b.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *stubPerms) PermissionsForRole(_ context.Context, roleID string) ([]auth.Permission, error) {
	var out []auth.Permission
	for _, name := range b.rolePerms[roleID] {
		out = append(out, auth.Permission{Name: name})
	}
	return out, nil
}

func (b *stubPerms) GrantToRole(_ context.Context, roleID, name string) error {
	b.rolePerms[roleID] = append(b.rolePerms[roleID], name)
	return nil
}

func (b *stubPerms) RevokeFromRole(_ context.Context, roleID, name string) error {
	kept := b.rolePerms[roleID][:0]
	for _, existing := range b.rolePerms[roleID] {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	b.rolePerms[roleID] = kept
	return nil
}

func (b *stubPerms) GrantToUser(_ context.Context, userID, name string) error {
	b.userPerms[userID] = append(b.userPerms[userID], name)
	return nil
}

func (b *stubPerms) RevokeFromUser(_ context.Context, userID, name string) error {
	kept := b.userPerms[userID][:0]
	for _, existing := range b.userPerms[userID] {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	b.userPerms[userID] = kept
	return nil
}

func (b *stubPerms) DirectGrants(_ context.Context, userID string) ([]string, error) {
	return append([]string(nil), b.userPerms[userID]...), nil
}

// --- tracker.Store ---

func (b *memBackend) Projects(context.Context) tracker.ProjectStore {
	return (*stubProjects)(b)
}
func (b *memBackend) IssueTypes(context.Context) tracker.IssueTypeStore {
	return (*stubIssueTypes)(b)
}
func (b *memBackend) Issues(context.Context) tracker.IssueStore { return (*stubIssues)(b) }

type stubProjects memBackend

func (b *stubProjects) Create(_ context.Context, p *tracker.Project, defaultRoles []auth.Role) error {
	b.projects[p.ID] = p
	b.creators[pairKey(p.CreatorID, p.ID)] = true
	for _, role := range defaultRoles {
		roleCopy := role
		b.roles[role.ID] = &roleCopy
		b.projectRoles[p.ID] = append(b.projectRoles[p.ID], role.ID)
	}
	return nil
}

func (b *stubProjects) Find(_ context.Context, id string) (*tracker.Project, error) {
	if p, ok := b.projects[id]; ok {
		return p, nil
	}
	return nil, tracker.ErrNotFound
}

func (b *stubProjects) List(_ context.Context) ([]*tracker.Project, error) {
	var out []*tracker.Project
	for _, p := range b.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *stubProjects) ListForUser(_ context.Context, _ string) ([]*tracker.Project, error) {
	return nil, nil
}

func (b *stubProjects) Update(_ context.Context, p *tracker.Project) error {
	if _, ok := b.projects[p.ID]; !ok {
		return tracker.ErrNotFound
	}
	b.projects[p.ID] = p
	return nil
}

func (b *stubProjects) Delete(_ context.Context, id string) error {
	if _, ok := b.projects[id]; !ok {
		return tracker.ErrNotFound
	}
	delete(b.projects, id)
	return nil
}

type stubIssueTypes memBackend

func (b *stubIssueTypes) Create(_ context.Context, it *tracker.IssueType) error {
	b.issueTypes[it.ID] = it
	return nil
}

func (b *stubIssueTypes) Find(_ context.Context, id string) (*tracker.IssueType, error) {
	if it, ok := b.issueTypes[id]; ok {
		return it, nil
	}
	return nil, tracker.ErrNotFound
}

func (b *stubIssueTypes) Update(_ context.Context, it *tracker.IssueType) error {
	b.issueTypes[it.ID] = it
	return nil
}

func (b *stubIssueTypes) ListByProject(_ context.Context, projectID string) ([]*tracker.IssueType, error) {
	var out []*tracker.IssueType
	for _, id := range b.typeBindings[projectID] {
		if it, ok := b.issueTypes[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (b *stubIssueTypes) BindToProject(_ context.Context, projectID, issueTypeID string) error {
	b.typeBindings[projectID] = append(b.typeBindings[projectID], issueTypeID)
	return nil
}

type stubIssues memBackend

func (b *stubIssues) Create(_ context.Context, issue *tracker.Issue) error {
	next := 1
	for _, existing := range b.issues {
		if existing.ProjectID == issue.ProjectID && existing.Index >= next {
			next = existing.Index + 1
		}
	}
	issue.Index = next
	b.issues[issue.ID] = issue
	return nil
}

func (b *stubIssues) FindByIndex(_ context.Context, projectID string, index int) (*tracker.Issue, error) {
	for _, issue := range b.issues {
		if issue.ProjectID == projectID && issue.Index == index {
			return issue, nil
		}
	}
	return nil, tracker.ErrNotFound
}

func (b *stubIssues) ListByProject(_ context.Context, projectID string) ([]*tracker.Issue, error) {
	var out []*tracker.Issue
	for _, issue := range b.issues {
		if issue.ProjectID == projectID {
			out = append(out, issue)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (b *stubIssues) Update(_ context.Context, issue *tracker.Issue) error {
	b.issues[issue.ID] = issue
	return nil
}

func (b *stubIssues) AppendChange(_ context.Context, change *tracker.IssueChange) error {
	b.changes[change.IssueID] = append(b.changes[change.IssueID], change)
	return nil
}

func (b *stubIssues) Changes(_ context.Context, issueID string) ([]*tracker.IssueChange, error) {
	return b.changes[issueID], nil
}

var (
	_ auth.Store    = (*memBackend)(nil)
	_ tracker.Store = (*memBackend)(nil)
)
