package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHashedUser(t *testing.T) *domain.User {
	t.Helper()
	u, err := domain.NewUser("Learner@Example.com", "correct-horse-battery")
	require.NoError(t, err)
	u.HashedPassword = "$2a$10$hash"
	return u
}

func TestPostgresUserStore_CreateLowercasesEmail(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresUserStore(db, quietLogger())
	u := newHashedUser(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, "learner@example.com", u.HashedPassword, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), u))
	assert.Empty(t, u.Password)
}

func TestPostgresUserStore_CreateRequiresHash(t *testing.T) {
	db, _ := newMock(t)
	s := NewPostgresUserStore(db, quietLogger())

	u, err := domain.NewUser("a@example.com", "correct-horse-battery")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Create(context.Background(), u), domain.ErrEmptyPassword)
}

func TestPostgresUserStore_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresUserStore(db, quietLogger())

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

	assert.ErrorIs(t, s.Create(context.Background(), newHashedUser(t)), store.ErrEmailExists)
}

func TestPostgresUserStore_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresUserStore(db, quietLogger())
	u := newHashedUser(t)

	mock.ExpectQuery(`WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("Learner@Example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "hashed_password", "created_at", "updated_at"}).
			AddRow(u.ID.String(), "learner@example.com", u.HashedPassword, u.CreatedAt, u.UpdatedAt))

	got, err := s.GetByEmail(context.Background(), " Learner@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.HashedPassword, got.HashedPassword)
}

func TestPostgresUserStore_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresUserStore(db, quietLogger())

	mock.ExpectQuery("FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "hashed_password", "created_at", "updated_at"}))

	_, err := s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestPostgresUserStore_DeleteNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresUserStore(db, quietLogger())

	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.Delete(context.Background(), uuid.New()), store.ErrUserNotFound)
}
