package auth

import "time"

// User is a registered account. The password hash never leaves the package.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Nickname     string    `json:"nickname,omitempty"`
	RealName     string    `json:"real_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Token is the single live bearer credential for a user. Expiry is lazy:
// the row survives past the validity window and simply fails validation.
type Token struct {
	UserID    string    `json:"user_id"`
	Value     string    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role groups permissions. A role only takes effect where it is bound to a
// (user, project) pair.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is a named capability. Method and URL are registration metadata
// only; authorization compares names.
type Permission struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

// Membership records that a user belongs to a project.
type Membership struct {
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id"`
	JoinDate  time.Time `json:"join_date"`
}

// RoleBinding assigns a role to a member within one project scope.
type RoleBinding struct {
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id"`
	RoleID    string    `json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
}
