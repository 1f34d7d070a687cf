package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func expectationsMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}

func TestPgUserRepositoryCreate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgUserRepository(mock)

	createdAt := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("user@example.com", "hash").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), createdAt))

	user, err := repo.Create(context.Background(), "user@example.com", "hash")
	if err != nil {
		t.Fatalf("expected create success, got %v", err)
	}
	if user.ID != 7 || user.Email != "user@example.com" || user.HashedPassword != "hash" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if !user.CreatedAt.Equal(createdAt) {
		t.Fatalf("expected created_at %v, got %v", createdAt, user.CreatedAt)
	}
	expectationsMet(t, mock)
}

func TestPgUserRepositoryCreate_DuplicateEmail(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("user@example.com", "hash").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err := repo.Create(context.Background(), "user@example.com", "hash")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPgUserRepositoryGetByEmail(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgUserRepository(mock)

	sid := "sid-1"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE email = $1")).
		WithArgs("user@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "hashed_password", "session_id", "reset_token", "created_at"}).
			AddRow(int64(1), "user@example.com", "hash", &sid, nil, time.Now().UTC()))

	user, err := repo.GetByEmail(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("expected lookup success, got %v", err)
	}
	if user.ID != 1 || user.SessionID == nil || *user.SessionID != "sid-1" || user.ResetToken != nil {
		t.Fatalf("unexpected user: %+v", user)
	}
	expectationsMet(t, mock)
}

func TestPgUserRepositoryGetByEmail_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE email = $1")).
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPgUserRepositoryGetBySessionID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgUserRepository(mock)

	sid := "sid-1"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE session_id = $1")).
		WithArgs("sid-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "hashed_password", "session_id", "reset_token", "created_at"}).
			AddRow(int64(1), "user@example.com", "hash", &sid, nil, time.Now().UTC()))

	user, err := repo.GetBySessionID(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("expected lookup success, got %v", err)
	}
	if user.Email != "user@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	expectationsMet(t, mock)
}

func TestPgUserRepositoryGetByResetToken(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgUserRepository(mock)

	token := "tok-1"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE reset_token = $1")).
		WithArgs("tok-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "hashed_password", "session_id", "reset_token", "created_at"}).
			AddRow(int64(1), "user@example.com", "hash", nil, &token, time.Now().UTC()))

	user, err := repo.GetByResetToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("expected lookup success, got %v", err)
	}
	if user.ResetToken == nil || *user.ResetToken != "tok-1" {
		t.Fatalf("unexpected user: %+v", user)
	}
	expectationsMet(t, mock)
}

func TestPgUserRepositoryUpdate_SetSession(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgUserRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET session_id = $1 WHERE id = $2")).
		WithArgs("sid-1", int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sid := "sid-1"
	if err := repo.Update(context.Background(), 1, UserPatch{SessionID: &sid}); err != nil {
		t.Fatalf("expected update success, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPgUserRepositoryUpdate_ClearSession(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgUserRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET session_id = $1 WHERE id = $2")).
		WithArgs(nil, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.Update(context.Background(), 1, UserPatch{ClearSessionID: true}); err != nil {
		t.Fatalf("expected update success, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPgUserRepositoryUpdate_PasswordAndClearToken(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgUserRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET hashed_password = $1, reset_token = $2 WHERE id = $3")).
		WithArgs("newhash", nil, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	hashed := "newhash"
	err := repo.Update(context.Background(), 1, UserPatch{
		HashedPassword:  &hashed,
		ClearResetToken: true,
	})
	if err != nil {
		t.Fatalf("expected update success, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPgUserRepositoryUpdate_MissingUser(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgUserRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET session_id = $1 WHERE id = $2")).
		WithArgs(nil, int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), 42, UserPatch{ClearSessionID: true})
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPgUserRepositoryUpdate_EmptyPatch(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

	if err := repo.Update(context.Background(), 1, UserPatch{}); err != nil {
		t.Fatalf("expected empty patch to verify existence, got %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	err := repo.Update(context.Background(), 42, UserPatch{})
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows for missing user, got %v", err)
	}
	expectationsMet(t, mock)
}
