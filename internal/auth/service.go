package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"trackd.org/internal/ids"
)

// DefaultTokenTTL is the bearer token validity window. A token older than
// this fails validation; the row itself is never swept.
const DefaultTokenTTL = 6 * time.Hour

const tokenEntropyBytes = 64

// Service provides credential, membership and permission operations on top
// of a Store.
type Service struct {
	store    Store
	now      func() time.Time
	tokenTTL time.Duration
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

// WithTokenTTL overrides the token validity window.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// NewService constructs the auth service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	svc := &Service{
		store:    store,
		now:      time.Now,
		tokenTTL: DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// EnsureCatalog makes sure every permission from the static catalog has a row.
func (s *Service) EnsureCatalog(ctx context.Context) error {
	return s.store.Permissions(ctx).Ensure(ctx, Catalog())
}

// Register creates a user account. Email is the unique login identifier.
func (s *Service) Register(ctx context.Context, email, password, nickname, realName string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	users := s.store.Users(ctx)
	if existing, err := users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrAlreadyExists)
	} else if err != nil && err != ErrNotFound {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Nickname:     strings.TrimSpace(nickname),
		RealName:     strings.TrimSpace(realName),
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser fetches one user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.Users(ctx).Find(ctx, id)
}

// ListUsers returns users matching the filter.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]*User, error) {
	return s.store.Users(ctx).List(ctx, filter)
}

// Login verifies credentials and returns a fresh bearer token. Any previous
// token for the user stops validating immediately.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, ErrInvalidToken
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return "", nil, ErrInvalidToken
		}
		return "", nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidToken
	}
	token, err := s.IssueOrRefreshToken(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// IssueOrRefreshToken mints a new opaque token for the user and upserts it,
// keeping the one-live-token-per-user invariant.
func (s *Service) IssueOrRefreshToken(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	raw := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	tok := &Token{
		UserID:    userID,
		Value:     hex.EncodeToString(raw),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.Tokens(ctx).Upsert(ctx, tok); err != nil {
		return "", err
	}
	return tok.Value, nil
}

// ValidateToken reports whether the token exists and is inside its validity
// window. Pure read; no side effects.
func (s *Service) ValidateToken(ctx context.Context, value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	tok, err := s.store.Tokens(ctx).Find(ctx, value)
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return s.now().Sub(tok.UpdatedAt) <= s.tokenTTL, nil
}

// ResolveUser looks up the owning user of a token. Expiry is not checked
// here; callers combine with ValidateToken.
func (s *Service) ResolveUser(ctx context.Context, value string) (*User, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrNotFound
	}
	return s.store.Tokens(ctx).FindUser(ctx, value)
}

// --- Membership & role graph ----------------------------------------------

// IsMember reports whether the user belongs to the project. The project
// creator counts as a member even without an explicit membership row.
func (s *Service) IsMember(ctx context.Context, userID, projectID string) (bool, error) {
	memberships := s.store.Memberships(ctx)
	ok, err := memberships.Exists(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return memberships.IsCreator(ctx, userID, projectID)
}

// AddMember records project membership with the current join date.
func (s *Service) AddMember(ctx context.Context, userID, projectID string) (*Membership, error) {
	userID = strings.TrimSpace(userID)
	projectID = strings.TrimSpace(projectID)
	if userID == "" || projectID == "" {
		return nil, fmt.Errorf("%w: user_id and project_id are required", ErrInvalidInput)
	}
	m := &Membership{UserID: userID, ProjectID: projectID, JoinDate: s.now().UTC()}
	if err := s.store.Memberships(ctx).Add(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveMember deletes the membership row. Role bindings for the pair are
// deliberately not cascaded; they become unreachable until the user rejoins.
func (s *Service) RemoveMember(ctx context.Context, userID, projectID string) error {
	userID = strings.TrimSpace(userID)
	projectID = strings.TrimSpace(projectID)
	if userID == "" || projectID == "" {
		return fmt.Errorf("%w: user_id and project_id are required", ErrInvalidInput)
	}
	return s.store.Memberships(ctx).Remove(ctx, userID, projectID)
}

// ListMembers returns the explicit membership rows of a project. The creator
// is not listed unless they also joined.
func (s *Service) ListMembers(ctx context.Context, projectID string) ([]*Membership, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", ErrInvalidInput)
	}
	return s.store.Memberships(ctx).ListByProject(ctx, projectID)
}

// RolesOf returns the deduplicated roles bound to the user in the project.
func (s *Service) RolesOf(ctx context.Context, userID, projectID string) ([]*Role, error) {
	roles := s.store.Roles(ctx)
	bindings, err := roles.BindingsFor(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(bindings))
	var result []*Role
	for _, b := range bindings {
		if _, ok := seen[b.RoleID]; ok {
			continue
		}
		seen[b.RoleID] = struct{}{}
		role, err := roles.Find(ctx, b.RoleID)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		result = append(result, role)
	}
	return result, nil
}

// GrantRole binds a role to a member within a project. Repeated grants are
// no-ops.
func (s *Service) GrantRole(ctx context.Context, userID, projectID, roleID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(projectID) == "" || strings.TrimSpace(roleID) == "" {
		return fmt.Errorf("%w: user_id, project_id and role_id are required", ErrInvalidInput)
	}
	return s.store.Roles(ctx).Grant(ctx, RoleBinding{UserID: userID, ProjectID: projectID, RoleID: roleID})
}

// RevokeRole removes a role binding.
func (s *Service) RevokeRole(ctx context.Context, userID, projectID, roleID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(projectID) == "" || strings.TrimSpace(roleID) == "" {
		return fmt.Errorf("%w: user_id, project_id and role_id are required", ErrInvalidInput)
	}
	return s.store.Roles(ctx).Revoke(ctx, RoleBinding{UserID: userID, ProjectID: projectID, RoleID: roleID})
}

// CreateRole adds a role definition.
func (s *Service) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	role := &Role{ID: ids.New(), Name: name, Description: strings.TrimSpace(description)}
	if err := s.store.Roles(ctx).Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// GetRole fetches one role definition.
func (s *Service) GetRole(ctx context.Context, roleID string) (*Role, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	return s.store.Roles(ctx).Find(ctx, roleID)
}

// UpdateRole renames or re-describes a role.
func (s *Service) UpdateRole(ctx context.Context, roleID, name, description string) (*Role, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	roles := s.store.Roles(ctx)
	role, err := roles.Find(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		role.Name = name
	}
	if description = strings.TrimSpace(description); description != "" {
		role.Description = description
	}
	if err := roles.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// ProjectRoles lists the roles instantiated for a project.
func (s *Service) ProjectRoles(ctx context.Context, projectID string) ([]*Role, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", ErrInvalidInput)
	}
	return s.store.Roles(ctx).ListByProject(ctx, projectID)
}

// ListPermissions returns the persisted permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.Permissions(ctx).List(ctx)
}

// RolePermissions lists the permissions attached to a role.
func (s *Service) RolePermissions(ctx context.Context, roleID string) ([]Permission, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	return s.store.Permissions(ctx).PermissionsForRole(ctx, roleID)
}

// GrantPermissionToRole attaches a catalog permission to a role.
func (s *Service) GrantPermissionToRole(ctx context.Context, roleID, permissionName string) error {
	if strings.TrimSpace(roleID) == "" || strings.TrimSpace(permissionName) == "" {
		return fmt.Errorf("%w: role_id and permission name are required", ErrInvalidInput)
	}
	return s.store.Permissions(ctx).GrantToRole(ctx, roleID, permissionName)
}

// RevokePermissionFromRole detaches a catalog permission from a role.
func (s *Service) RevokePermissionFromRole(ctx context.Context, roleID, permissionName string) error {
	if strings.TrimSpace(roleID) == "" || strings.TrimSpace(permissionName) == "" {
		return fmt.Errorf("%w: role_id and permission name are required", ErrInvalidInput)
	}
	return s.store.Permissions(ctx).RevokeFromRole(ctx, roleID, permissionName)
}

// GrantPermissionToUser attaches a direct, globally scoped grant to a user.
func (s *Service) GrantPermissionToUser(ctx context.Context, userID, permissionName string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(permissionName) == "" {
		return fmt.Errorf("%w: user_id and permission name are required", ErrInvalidInput)
	}
	return s.store.Permissions(ctx).GrantToUser(ctx, userID, permissionName)
}

// RevokePermissionFromUser removes a direct grant.
func (s *Service) RevokePermissionFromUser(ctx context.Context, userID, permissionName string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(permissionName) == "" {
		return fmt.Errorf("%w: user_id and permission name are required", ErrInvalidInput)
	}
	return s.store.Permissions(ctx).RevokeFromUser(ctx, userID, permissionName)
}
