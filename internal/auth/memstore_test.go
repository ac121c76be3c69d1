package auth

import (
	"context"
	"sort"
	"strings"
)

// memStore is an in-memory Store used by the service, resolver and gate
// tests. Not safe for concurrent use; tests are sequential.
type memStore struct {
	users        map[string]*User   // by id
	tokens       map[string]*Token  // by user id
	memberships  map[string]bool    // userID|projectID
	creators     map[string]bool    // userID|projectID
	roles        map[string]*Role   // by id
	projectRoles map[string][]string
	bindings     []RoleBinding
	rolePerms    map[string][]string // roleID -> permission names
	userPerms    map[string][]string // userID -> permission names
	perms        map[string]Permission

	// failWith, when set, makes every lookup fail. Used to verify that the
	// gate treats store errors as denials.
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]*User{},
		tokens:       map[string]*Token{},
		memberships:  map[string]bool{},
		creators:     map[string]bool{},
		roles:        map[string]*Role{},
		projectRoles: map[string][]string{},
		rolePerms:    map[string][]string{},
		userPerms:    map[string][]string{},
		perms:        map[string]Permission{},
	}
}

func memKey(userID, projectID string) string { return userID + "|" + projectID }

func (m *memStore) Users(context.Context) UserStore             { return (*memUsers)(m) }
func (m *memStore) Tokens(context.Context) TokenStore           { return (*memTokens)(m) }
func (m *memStore) Memberships(context.Context) MembershipStore { return (*memMemberships)(m) }
func (m *memStore) Roles(context.Context) RoleStore             { return (*memRoles)(m) }
func (m *memStore) Permissions(context.Context) PermissionStore { return (*memPerms)(m) }

type memUsers memStore

func (m *memUsers) Create(_ context.Context, u *User) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) Find(_ context.Context, id string) (*User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) List(_ context.Context, filter UserFilter) ([]*User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []*User
	for _, u := range m.users {
		if filter.Email != "" && !strings.Contains(u.Email, filter.Email) {
			continue
		}
		if filter.Nickname != "" && !strings.Contains(u.Nickname, filter.Nickname) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memTokens memStore

func (m *memTokens) Upsert(_ context.Context, tok *Token) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.tokens[tok.UserID] = tok
	return nil
}

func (m *memTokens) Find(_ context.Context, value string) (*Token, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, tok := range m.tokens {
		if tok.Value == value {
			return tok, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memTokens) FindUser(ctx context.Context, value string) (*User, error) {
	tok, err := m.Find(ctx, value)
	if err != nil {
		return nil, err
	}
	u, ok := m.users[tok.UserID]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

type memMemberships memStore

func (m *memMemberships) Add(_ context.Context, ms *Membership) error {
	if m.failWith != nil {
		return m.failWith
	}
	key := memKey(ms.UserID, ms.ProjectID)
	if m.memberships[key] {
		return ErrAlreadyExists
	}
	m.memberships[key] = true
	return nil
}

func (m *memMemberships) Remove(_ context.Context, userID, projectID string) error {
	if m.failWith != nil {
		return m.failWith
	}
	key := memKey(userID, projectID)
	if !m.memberships[key] {
		return ErrNotFound
	}
	delete(m.memberships, key)
	return nil
}

func (m *memMemberships) Exists(_ context.Context, userID, projectID string) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	return m.memberships[memKey(userID, projectID)], nil
}

func (m *memMemberships) IsCreator(_ context.Context, userID, projectID string) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	return m.creators[memKey(userID, projectID)], nil
}

func (m *memMemberships) ListByProject(_ context.Context, projectID string) ([]*Membership, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []*Membership
	for key, ok := range m.memberships {
		if !ok {
			continue
		}
		parts := strings.SplitN(key, "|", 2)
		if parts[1] == projectID {
			out = append(out, &Membership{UserID: parts[0], ProjectID: projectID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type memRoles memStore

func (m *memRoles) Create(_ context.Context, role *Role) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.roles[role.ID] = role
	return nil
}

func (m *memRoles) Find(_ context.Context, id string) (*Role, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	role, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return role, nil
}

func (m *memRoles) Update(_ context.Context, role *Role) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.roles[role.ID]; !ok {
		return ErrNotFound
	}
	m.roles[role.ID] = role
	return nil
}

func (m *memRoles) ListByProject(_ context.Context, projectID string) ([]*Role, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []*Role
	for _, id := range m.projectRoles[projectID] {
		if role, ok := m.roles[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (m *memRoles) Grant(_ context.Context, b RoleBinding) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, existing := range m.bindings {
		if existing.UserID == b.UserID && existing.ProjectID == b.ProjectID && existing.RoleID == b.RoleID {
			return nil
		}
	}
	m.bindings = append(m.bindings, b)
	return nil
}

func (m *memRoles) Revoke(_ context.Context, b RoleBinding) error {
	if m.failWith != nil {
		return m.failWith
	}
	for i, existing := range m.bindings {
		if existing.UserID == b.UserID && existing.ProjectID == b.ProjectID && existing.RoleID == b.RoleID {
			m.bindings = append(m.bindings[:i], m.bindings[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memRoles) BindingsFor(_ context.Context, userID, projectID string) ([]RoleBinding, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []RoleBinding
	for _, b := range m.bindings {
		if b.UserID == userID && b.ProjectID == projectID {
			out = append(out, b)
		}
	}
	return out, nil
}

type memPerms memStore

func (m *memPerms) Ensure(_ context.Context, perms []Permission) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, p := range perms {
		if _, ok := m.perms[p.Name]; !ok {
			m.perms[p.Name] = p
		}
	}
	return nil
}

func (m *memPerms) List(_ context.Context) ([]Permission, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []Permission
	for _, p := range m.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memPerms) PermissionsForRole(_ context.Context, roleID string) ([]Permission, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []Permission
	for _, name := range m.rolePerms[roleID] {
		out = append(out, Permission{Name: name})
	}
	return out, nil
}

func (m *memPerms) GrantToRole(_ context.Context, roleID, name string) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.rolePerms[roleID] = append(m.rolePerms[roleID], name)
	return nil
}

func (m *memPerms) RevokeFromRole(_ context.Context, roleID, name string) error {
	if m.failWith != nil {
		return m.failWith
	}
	kept := m.rolePerms[roleID][:0]
	for _, existing := range m.rolePerms[roleID] {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	m.rolePerms[roleID] = kept
	return nil
}

func (m *memPerms) GrantToUser(_ context.Context, userID, name string) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.userPerms[userID] = append(m.userPerms[userID], name)
	return nil
}

func (m *memPerms) RevokeFromUser(_ context.Context, userID, name string) error {
	if m.failWith != nil {
		return m.failWith
	}
	kept := m.userPerms[userID][:0]
	for _, existing := range m.userPerms[userID] {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	m.userPerms[userID] = kept
	return nil
}

func (m *memPerms) DirectGrants(_ context.Context, userID string) ([]string, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return append([]string(nil), m.userPerms[userID]...), nil
}

var _ Store = (*memStore)(nil)
