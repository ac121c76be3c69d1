package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"trackd.org/internal/auth"
)

var _ auth.Store = (*Store)(nil)

func (s *Store) Users(ctx context.Context) auth.UserStore        { return &userStore{db: s.db} }
func (s *Store) Tokens(ctx context.Context) auth.TokenStore      { return &tokenStore{db: s.db} }
func (s *Store) Memberships(ctx context.Context) auth.MembershipStore {
	return &membershipStore{db: s.db}
}
func (s *Store) Roles(ctx context.Context) auth.RoleStore { return &roleStore{db: s.db} }
func (s *Store) Permissions(ctx context.Context) auth.PermissionStore {
	return &permissionStore{db: s.db}
}

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, nickname, real_name) values($1,$2,$3,$4,$5)`,
		u.ID, u.Email, u.PasswordHash, u.Nickname, u.RealName,
	)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return auth.ErrAlreadyExists
	}
	return err
}

const userColumns = `id, email, password_hash, nickname, real_name, created_at, updated_at`

func scanUser(row *sql.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &u.RealName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (s *userStore) List(ctx context.Context, filter auth.UserFilter) ([]*auth.User, error) {
	query := `select ` + userColumns + ` from users`
	var (
		conds []string
		args  []any
	)
	like := func(column, value string) {
		args = append(args, "%"+value+"%")
		conds = append(conds, fmt.Sprintf("%s like $%d", column, len(args)))
	}
	if filter.Name != "" {
		like("real_name", filter.Name)
	}
	if filter.Nickname != "" {
		like("nickname", filter.Nickname)
	}
	if filter.Email != "" {
		like("email", filter.Email)
	}
	if len(conds) > 0 {
		query += " where " + strings.Join(conds, " or ")
	}
	query += " order by created_at"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" limit $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" offset $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &u.RealName, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Token store --------------------------------------------------------------
type tokenStore struct{ db *sql.DB }

func (s *tokenStore) Upsert(ctx context.Context, tok *auth.Token) error {
	_, err := s.db.ExecContext(ctx, `
		insert into tokens(user_id, token, updated_at)
		values ($1,$2,$3)
		on conflict (user_id) do update
		set token = excluded.token, updated_at = excluded.updated_at
	`, tok.UserID, tok.Value, tok.UpdatedAt)
	return err
}

func (s *tokenStore) Find(ctx context.Context, value string) (*auth.Token, error) {
	var tok auth.Token
	err := s.db.QueryRowContext(ctx,
		`select user_id, token, updated_at from tokens where token=$1`, value,
	).Scan(&tok.UserID, &tok.Value, &tok.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (s *tokenStore) FindUser(ctx context.Context, value string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, `
		select u.id, u.email, u.password_hash, u.nickname, u.real_name, u.created_at, u.updated_at
		from users u
		join tokens t on t.user_id = u.id
		where t.token=$1
	`, value)
	return scanUser(row)
}

// Membership store ---------------------------------------------------------
type membershipStore struct{ db *sql.DB }

func (s *membershipStore) Add(ctx context.Context, m *auth.Membership) error {
	_, err := s.db.ExecContext(ctx, `
		insert into project_members(user_id, project_id, join_date)
		values ($1,$2,$3)
		on conflict (user_id, project_id) do nothing
	`, m.UserID, m.ProjectID, m.JoinDate)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
		return auth.ErrNotFound
	}
	return err
}

func (s *membershipStore) Remove(ctx context.Context, userID, projectID string) error {
	// Role bindings in project_member_roles survive on purpose; see the
	// service-level note on RemoveMember.
	_, err := s.db.ExecContext(ctx,
		`delete from project_members where user_id=$1 and project_id=$2`,
		userID, projectID)
	return err
}

func (s *membershipStore) Exists(ctx context.Context, userID, projectID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`select 1 from project_members where user_id=$1 and project_id=$2`,
		userID, projectID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *membershipStore) IsCreator(ctx context.Context, userID, projectID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`select 1 from project_creators where user_id=$1 and project_id=$2`,
		userID, projectID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *membershipStore) ListByProject(ctx context.Context, projectID string) ([]*auth.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		`select user_id, project_id, join_date from project_members where project_id=$1 order by join_date`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auth.Membership
	for rows.Next() {
		var m auth.Membership
		if err := rows.Scan(&m.UserID, &m.ProjectID, &m.JoinDate); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	return result, rows.Err()
}

// Role store ---------------------------------------------------------------
type roleStore struct{ db *sql.DB }

func (s *roleStore) Create(ctx context.Context, role *auth.Role) error {
	_, err := s.db.ExecContext(ctx,
		`insert into roles(id, name, description) values($1,$2,$3)`,
		role.ID, role.Name, role.Description)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return auth.ErrAlreadyExists
	}
	return err
}

func (s *roleStore) Find(ctx context.Context, id string) (*auth.Role, error) {
	var role auth.Role
	err := s.db.QueryRowContext(ctx,
		`select id, name, description, created_at, updated_at from roles where id=$1`, id,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *roleStore) Update(ctx context.Context, role *auth.Role) error {
	res, err := s.db.ExecContext(ctx,
		`update roles set name=$2, description=$3, updated_at=now() where id=$1`,
		role.ID, role.Name, role.Description)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *roleStore) ListByProject(ctx context.Context, projectID string) ([]*auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.name, r.description, r.created_at, r.updated_at
		from roles r
		join project_roles pr on pr.role_id = r.id
		where pr.project_id=$1
		order by r.name
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*auth.Role
	for rows.Next() {
		var role auth.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

func (s *roleStore) Grant(ctx context.Context, b auth.RoleBinding) error {
	_, err := s.db.ExecContext(ctx, `
		insert into project_member_roles(user_id, project_id, role_id)
		values ($1,$2,$3)
		on conflict do nothing
	`, b.UserID, b.ProjectID, b.RoleID)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
		return auth.ErrNotFound
	}
	return err
}

func (s *roleStore) Revoke(ctx context.Context, b auth.RoleBinding) error {
	_, err := s.db.ExecContext(ctx,
		`delete from project_member_roles where user_id=$1 and project_id=$2 and role_id=$3`,
		b.UserID, b.ProjectID, b.RoleID)
	return err
}

func (s *roleStore) BindingsFor(ctx context.Context, userID, projectID string) ([]auth.RoleBinding, error) {
	rows, err := s.db.QueryContext(ctx, `
		select user_id, project_id, role_id, created_at
		from project_member_roles
		where user_id=$1 and project_id=$2
	`, userID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.RoleBinding
	for rows.Next() {
		var b auth.RoleBinding
		if err := rows.Scan(&b.UserID, &b.ProjectID, &b.RoleID, &b.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// Permission store ---------------------------------------------------------
type permissionStore struct{ db *sql.DB }

func (s *permissionStore) Ensure(ctx context.Context, perms []auth.Permission) error {
	for _, p := range perms {
		_, err := s.db.ExecContext(ctx, `
			insert into permissions(name, request_method, request_url)
			values ($1,$2,$3)
			on conflict (name) do nothing
		`, p.Name, p.Method, p.URL)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *permissionStore) List(ctx context.Context) ([]auth.Permission, error) {
	rows, err := s.db.QueryContext(ctx,
		`select name, request_method, request_url from permissions order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []auth.Permission
	for rows.Next() {
		var p auth.Permission
		if err := rows.Scan(&p.Name, &p.Method, &p.URL); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (s *permissionStore) PermissionsForRole(ctx context.Context, roleID string) ([]auth.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.name, p.request_method, p.request_url
		from permissions p
		join role_permissions rp on rp.permission_name = p.name
		where rp.role_id=$1
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []auth.Permission
	for rows.Next() {
		var p auth.Permission
		if err := rows.Scan(&p.Name, &p.Method, &p.URL); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (s *permissionStore) GrantToRole(ctx context.Context, roleID, permissionName string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into role_permissions(role_id, permission_name)
		values ($1,$2)
		on conflict do nothing
	`, roleID, permissionName)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
		return auth.ErrNotFound
	}
	return err
}

func (s *permissionStore) RevokeFromRole(ctx context.Context, roleID, permissionName string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from role_permissions where role_id=$1 and permission_name=$2`,
		roleID, permissionName)
	return err
}

func (s *permissionStore) GrantToUser(ctx context.Context, userID, permissionName string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_permissions(user_id, permission_name)
		values ($1,$2)
		on conflict do nothing
	`, userID, permissionName)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
		return auth.ErrNotFound
	}
	return err
}

func (s *permissionStore) RevokeFromUser(ctx context.Context, userID, permissionName string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from user_permissions where user_id=$1 and permission_name=$2`,
		userID, permissionName)
	return err
}

func (s *permissionStore) DirectGrants(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select permission_name from user_permissions where user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
