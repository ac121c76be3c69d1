package auth

import "context"

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Tokens(ctx context.Context) TokenStore
	Memberships(ctx context.Context) MembershipStore
	Roles(ctx context.Context) RoleStore
	Permissions(ctx context.Context) PermissionStore
}

// UserStore manages user accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]*User, error)
}

// UserFilter narrows List results. Empty fields are ignored; Name, Nickname
// and Email are substring matches combined with OR.
type UserFilter struct {
	Name     string
	Nickname string
	Email    string
	Limit    int
	Offset   int
}

// TokenStore manages the single live token per user.
type TokenStore interface {
	// Upsert replaces any previous token for tok.UserID.
	Upsert(ctx context.Context, tok *Token) error
	// Find returns the row matching the opaque value, or ErrNotFound.
	Find(ctx context.Context, value string) (*Token, error)
	// FindUser resolves the owning user of a token value, or ErrNotFound.
	FindUser(ctx context.Context, value string) (*User, error)
}

// MembershipStore manages project membership and creator records.
type MembershipStore interface {
	Add(ctx context.Context, m *Membership) error
	// Remove deletes the membership row only. Role bindings are intentionally
	// left in place; see Service.RemoveMember.
	Remove(ctx context.Context, userID, projectID string) error
	Exists(ctx context.Context, userID, projectID string) (bool, error)
	IsCreator(ctx context.Context, userID, projectID string) (bool, error)
	ListByProject(ctx context.Context, projectID string) ([]*Membership, error)
}

// RoleStore manages roles, per-project role availability and bindings.
type RoleStore interface {
	Create(ctx context.Context, role *Role) error
	Find(ctx context.Context, id string) (*Role, error)
	Update(ctx context.Context, role *Role) error
	ListByProject(ctx context.Context, projectID string) ([]*Role, error)
	// Grant and Revoke are idempotent: duplicate grants are harmless.
	Grant(ctx context.Context, b RoleBinding) error
	Revoke(ctx context.Context, b RoleBinding) error
	BindingsFor(ctx context.Context, userID, projectID string) ([]RoleBinding, error)
}

// PermissionStore manages the permission catalog and grants.
type PermissionStore interface {
	Ensure(ctx context.Context, perms []Permission) error
	List(ctx context.Context) ([]Permission, error)
	PermissionsForRole(ctx context.Context, roleID string) ([]Permission, error)
	GrantToRole(ctx context.Context, roleID, permissionName string) error
	RevokeFromRole(ctx context.Context, roleID, permissionName string) error
	GrantToUser(ctx context.Context, userID, permissionName string) error
	RevokeFromUser(ctx context.Context, userID, permissionName string) error
	// DirectGrants lists permission names granted to the user independent of
	// any role. These apply in every scope.
	DirectGrants(ctx context.Context, userID string) ([]string, error)
}
