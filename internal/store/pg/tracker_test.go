package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"trackd.org/internal/auth"
	"trackd.org/internal/tracker"
)

func TestProjectCreateIsOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	roles := []auth.Role{
		{ID: "r1", Name: "Developer", Description: "dev"},
		{ID: "r2", Name: "Manager", Description: "mgr"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`insert into projects`).
		WithArgs("p1", "Demo", "short", "full", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`insert into project_creators`).
		WithArgs("u1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	for _, role := range roles {
		mock.ExpectExec(`insert into roles`).
			WithArgs(role.ID, role.Name, role.Description).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`insert into project_roles`).
			WithArgs("p1", role.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	p := &tracker.Project{ID: "p1", Name: "Demo", ShortDescription: "short", FullDescription: "full", CreatorID: "u1"}
	if err := store.Projects(ctx).Create(ctx, p, roles); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProjectCreateRollsBackOnRoleFailure(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`insert into projects`).
		WithArgs("p1", "Demo", "", "", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`insert into project_creators`).
		WithArgs("u1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`insert into roles`).
		WithArgs("r1", "Developer", "").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	p := &tracker.Project{ID: "p1", Name: "Demo", CreatorID: "u1"}
	err := store.Projects(ctx).Create(ctx, p, []auth.Role{{ID: "r1", Name: "Developer"}})
	if err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIssueCreateAssignsNextIndexInTx(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`select 1 from projects where id=\$1 for update`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`select coalesce\(max\(issue_index\), 0\) \+ 1 from issues`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))
	mock.ExpectExec(`insert into issues`).
		WithArgs("i1", "p1", 4, "t1", tracker.StatusOpen, "crash", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	issue := &tracker.Issue{ID: "i1", ProjectID: "p1", TypeID: "t1", Status: tracker.StatusOpen, ShortDescription: "crash"}
	if err := store.Issues(ctx).Create(ctx, issue); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if issue.Index != 4 {
		t.Fatalf("expected index 4, got %d", issue.Index)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIssueCreateUnknownProject(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`select 1 from projects where id=\$1 for update`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectRollback()

	issue := &tracker.Issue{ID: "i1", ProjectID: "ghost", TypeID: "t1", Status: tracker.StatusOpen, ShortDescription: "crash"}
	if err := store.Issues(ctx).Create(ctx, issue); !errors.Is(err, tracker.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIssueFindByIndex(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select .* from issues where project_id=\$1 and issue_index=\$2`).
		WithArgs("p1", 2).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "project_id", "issue_index", "type_id", "status",
			"short_description", "full_description", "created_at", "updated_at",
		}).AddRow("i2", "p1", 2, "t1", "open", "crash", "", at, at))

	issue, err := store.Issues(ctx).FindByIndex(ctx, "p1", 2)
	if err != nil {
		t.Fatalf("FindByIndex: %v", err)
	}
	if issue.ID != "i2" || issue.Index != 2 {
		t.Fatalf("unexpected issue: %+v", issue)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIssueAppendAndListChanges(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`insert into issue_changes`).
		WithArgs("i1", at, "u1", `status: "open" -> "closed"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`select issue_id, date, author_id, change from issue_changes`).
		WithArgs("i1").
		WillReturnRows(sqlmock.NewRows([]string{"issue_id", "date", "author_id", "change"}).
			AddRow("i1", at, "u1", `status: "open" -> "closed"`))

	issues := store.Issues(ctx)
	change := &tracker.IssueChange{IssueID: "i1", Date: at, AuthorID: "u1", Change: `status: "open" -> "closed"`}
	if err := issues.AppendChange(ctx, change); err != nil {
		t.Fatalf("AppendChange: %v", err)
	}

	changes, err := issues.Changes(ctx, "i1")
	if err != nil {
		t.Fatalf("Changes: %v", err)
	}
	if len(changes) != 1 || changes[0].AuthorID != "u1" {
		t.Fatalf("unexpected changes: %v", changes)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProjectDeleteNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`delete from project_creators`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`delete from projects`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := store.Projects(ctx).Delete(ctx, "ghost"); !errors.Is(err, tracker.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
