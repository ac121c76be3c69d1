package pg

import (
	"context"
	"database/sql"
	"errors"

	"trackd.org/internal/auth"
	"trackd.org/internal/tracker"
)

var _ tracker.Store = (*Store)(nil)

func (s *Store) Projects(ctx context.Context) tracker.ProjectStore {
	return &projectStore{db: s.db}
}
func (s *Store) IssueTypes(ctx context.Context) tracker.IssueTypeStore {
	return &issueTypeStore{db: s.db}
}
func (s *Store) Issues(ctx context.Context) tracker.IssueStore { return &issueStore{db: s.db} }

// Project store ------------------------------------------------------------
type projectStore struct{ db *sql.DB }

// Create writes the project, its creator record, the default roles and the
// project-role bindings in one transaction.
func (s *projectStore) Create(ctx context.Context, p *tracker.Project, defaultRoles []auth.Role) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into projects(id, name, short_description, full_description, creator_id)
		values ($1,$2,$3,$4,$5)
	`, p.ID, p.Name, p.ShortDescription, p.FullDescription, p.CreatorID); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return tracker.ErrAlreadyExists
		}
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`insert into project_creators(user_id, project_id) values ($1,$2)`,
		p.CreatorID, p.ID); err != nil {
		return err
	}
	for _, role := range defaultRoles {
		if _, err := tx.ExecContext(ctx,
			`insert into roles(id, name, description) values ($1,$2,$3)`,
			role.ID, role.Name, role.Description); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`insert into project_roles(project_id, role_id) values ($1,$2)`,
			p.ID, role.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const projectColumns = `id, name, short_description, full_description, creator_id, created_at, updated_at`

func scanProject(row *sql.Row) (*tracker.Project, error) {
	var p tracker.Project
	if err := row.Scan(&p.ID, &p.Name, &p.ShortDescription, &p.FullDescription, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tracker.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *projectStore) Find(ctx context.Context, id string) (*tracker.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+projectColumns+` from projects where id=$1`, id)
	return scanProject(row)
}

func collectProjects(rows *sql.Rows) ([]*tracker.Project, error) {
	defer rows.Close()
	var result []*tracker.Project
	for rows.Next() {
		var p tracker.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.ShortDescription, &p.FullDescription, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}

func (s *projectStore) List(ctx context.Context) ([]*tracker.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+projectColumns+` from projects order by created_at`)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

func (s *projectStore) ListForUser(ctx context.Context, userID string) ([]*tracker.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+projectColumns+` from projects
		where id in (select project_id from project_members where user_id=$1)
		order by created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

func (s *projectStore) Update(ctx context.Context, p *tracker.Project) error {
	res, err := s.db.ExecContext(ctx, `
		update projects
		set name=$2, short_description=$3, full_description=$4, updated_at=now()
		where id=$1
	`, p.ID, p.Name, p.ShortDescription, p.FullDescription)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return tracker.ErrNotFound
	}
	return nil
}

func (s *projectStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from project_creators where project_id=$1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from projects where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return tracker.ErrNotFound
	}
	return tx.Commit()
}

// Issue type store ----------------------------------------------------------
type issueTypeStore struct{ db *sql.DB }

func (s *issueTypeStore) Create(ctx context.Context, it *tracker.IssueType) error {
	_, err := s.db.ExecContext(ctx,
		`insert into issue_types(id, name, description) values ($1,$2,$3)`,
		it.ID, it.Name, it.Description)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return tracker.ErrAlreadyExists
	}
	return err
}

func (s *issueTypeStore) Find(ctx context.Context, id string) (*tracker.IssueType, error) {
	var it tracker.IssueType
	err := s.db.QueryRowContext(ctx,
		`select id, name, description from issue_types where id=$1`, id,
	).Scan(&it.ID, &it.Name, &it.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracker.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *issueTypeStore) Update(ctx context.Context, it *tracker.IssueType) error {
	res, err := s.db.ExecContext(ctx,
		`update issue_types set name=$2, description=$3 where id=$1`,
		it.ID, it.Name, it.Description)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return tracker.ErrNotFound
	}
	return nil
}

func (s *issueTypeStore) ListByProject(ctx context.Context, projectID string) ([]*tracker.IssueType, error) {
	rows, err := s.db.QueryContext(ctx, `
		select it.id, it.name, it.description
		from issue_types it
		join project_issue_types pit on pit.issue_type_id = it.id
		where pit.project_id=$1
		order by it.name
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*tracker.IssueType
	for rows.Next() {
		var it tracker.IssueType
		if err := rows.Scan(&it.ID, &it.Name, &it.Description); err != nil {
			return nil, err
		}
		result = append(result, &it)
	}
	return result, rows.Err()
}

func (s *issueTypeStore) BindToProject(ctx context.Context, projectID, issueTypeID string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into project_issue_types(project_id, issue_type_id)
		values ($1,$2)
		on conflict do nothing
	`, projectID, issueTypeID)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
		return tracker.ErrNotFound
	}
	return err
}

// Issue store ---------------------------------------------------------------
type issueStore struct{ db *sql.DB }

// Create assigns the next per-project index inside the insert transaction so
// concurrent creations in the same project cannot collide.
func (s *issueStore) Create(ctx context.Context, issue *tracker.Issue) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`select 1 from projects where id=$1 for update`, issue.ProjectID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tracker.ErrNotFound
		}
		return err
	}
	if err := tx.QueryRowContext(ctx,
		`select coalesce(max(issue_index), 0) + 1 from issues where project_id=$1`,
		issue.ProjectID).Scan(&issue.Index); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into issues(id, project_id, issue_index, type_id, status, short_description, full_description)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, issue.ID, issue.ProjectID, issue.Index, issue.TypeID, issue.Status,
		issue.ShortDescription, issue.FullDescription); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return tracker.ErrNotFound
		}
		return err
	}
	return tx.Commit()
}

const issueColumns = `id, project_id, issue_index, type_id, status, short_description, full_description, created_at, updated_at`

func (s *issueStore) FindByIndex(ctx context.Context, projectID string, index int) (*tracker.Issue, error) {
	var i tracker.Issue
	err := s.db.QueryRowContext(ctx,
		`select `+issueColumns+` from issues where project_id=$1 and issue_index=$2`,
		projectID, index,
	).Scan(&i.ID, &i.ProjectID, &i.Index, &i.TypeID, &i.Status, &i.ShortDescription, &i.FullDescription, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracker.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *issueStore) ListByProject(ctx context.Context, projectID string) ([]*tracker.Issue, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+issueColumns+` from issues where project_id=$1 order by issue_index`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*tracker.Issue
	for rows.Next() {
		var i tracker.Issue
		if err := rows.Scan(&i.ID, &i.ProjectID, &i.Index, &i.TypeID, &i.Status, &i.ShortDescription, &i.FullDescription, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &i)
	}
	return result, rows.Err()
}

func (s *issueStore) Update(ctx context.Context, issue *tracker.Issue) error {
	res, err := s.db.ExecContext(ctx, `
		update issues
		set type_id=$2, status=$3, short_description=$4, full_description=$5, updated_at=now()
		where id=$1
	`, issue.ID, issue.TypeID, issue.Status, issue.ShortDescription, issue.FullDescription)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return tracker.ErrNotFound
	}
	return nil
}

func (s *issueStore) AppendChange(ctx context.Context, change *tracker.IssueChange) error {
	_, err := s.db.ExecContext(ctx, `
		insert into issue_changes(issue_id, date, author_id, change)
		values ($1,$2,$3,$4)
	`, change.IssueID, change.Date, change.AuthorID, change.Change)
	return err
}

func (s *issueStore) Changes(ctx context.Context, issueID string) ([]*tracker.IssueChange, error) {
	rows, err := s.db.QueryContext(ctx,
		`select issue_id, date, author_id, change from issue_changes where issue_id=$1 order by date`,
		issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*tracker.IssueChange
	for rows.Next() {
		var c tracker.IssueChange
		if err := rows.Scan(&c.IssueID, &c.Date, &c.AuthorID, &c.Change); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}
