package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/domain/srs"
	"github.com/phrazzld/recall-api/internal/service/auth"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/phrazzld/recall-api/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct horse battery"

type mockHasher struct {
	mock.Mock
}

func (m *mockHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *mockHasher) Compare(hashedPassword, password string) error {
	return m.Called(hashedPassword, password).Error(0)
}

type userFixture struct {
	svc     *UserServiceImpl
	mem     *memstore.DB
	mock    sqlmock.Sqlmock
	emitter *recordingEmitter
}

func newUserFixture(t *testing.T, presets []srs.Preset, hasher auth.PasswordHasher) (*userFixture, func()) {
	t.Helper()
	db, mock := newTxDB(t)
	mem := memstore.New()
	emitter := &recordingEmitter{}
	if hasher == nil {
		hasher = auth.NewBcryptHasher(bcrypt.MinCost)
	}
	svc := NewUserService(db, UserStores{
		Users:     mem.Users(),
		Notebooks: mem.Notebooks(),
		Curves:    mem.Curves(),
	}, hasher, presets, emitter, quietLogger())
	return &userFixture{svc: svc, mem: mem, mock: mock, emitter: emitter}, func() { expectCommit(mock) }
}

func TestUserService_Register(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("seeds notebook and curves", func(t *testing.T) {
		t.Parallel()
		presets := srs.SeedPresets(nil, []srs.Preset{{Name: "Exam", Intervals: []int{10, 60}}})
		f, commit := newUserFixture(t, presets, nil)

		commit()
		user, err := f.svc.Register(ctx, "  Ana@Example.com ", testPassword)
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", user.Email)
		assert.Empty(t, user.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(testPassword)))

		notebooks, err := f.mem.Notebooks().List(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, notebooks, 1)
		assert.Equal(t, domain.DefaultNotebookName, notebooks[0].Name)
		assert.Equal(t, domain.DefaultNotebookColor, notebooks[0].Color)

		curves, err := f.mem.Curves().List(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, curves, 2)
		assert.Equal(t, srs.StandardCurveName, curves[0].Name)
		assert.True(t, curves[0].IsDefault)
		assert.Equal(t, srs.StandardIntervals, curves[0].Intervals)
		assert.False(t, curves[1].IsDefault)
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		f, commit := newUserFixture(t, nil, nil)
		commit()
		_, err := f.svc.Register(ctx, "dup@example.com", testPassword)
		require.NoError(t, err)

		expectRollback(f.mock)
		_, err = f.svc.Register(ctx, "DUP@example.com", testPassword)
		assert.ErrorIs(t, err, store.ErrEmailExists)
	})

	t.Run("weak password never reaches the database", func(t *testing.T) {
		t.Parallel()
		f, _ := newUserFixture(t, nil, nil)
		_, err := f.svc.Register(ctx, "a@example.com", "short")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
	})

	t.Run("hashing failure is wrapped", func(t *testing.T) {
		t.Parallel()
		hasher := new(mockHasher)
		hasher.On("Hash", testPassword).Return("", errors.New("entropy exhausted"))
		f, _ := newUserFixture(t, nil, hasher)

		_, err := f.svc.Register(ctx, "a@example.com", testPassword)
		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "register", svcErr.Operation)
		hasher.AssertExpectations(t)
	})
}

func TestUserService_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, commit := newUserFixture(t, nil, nil)
	commit()
	user, err := f.svc.Register(ctx, "b@example.com", testPassword)
	require.NoError(t, err)

	got, err := f.svc.Authenticate(ctx, "B@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.svc.Authenticate(ctx, "b@example.com", "not the password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Authenticate(ctx, "nobody@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_UpdateUserPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, mock := newTxDB(t)
	mem := memstore.New()
	svc := NewUserService(db, UserStores{
		Users: mem.Users(), Notebooks: mem.Notebooks(), Curves: mem.Curves(),
	}, auth.NewBcryptHasher(bcrypt.MinCost), nil, nil, quietLogger())

	expectCommit(mock)
	user, err := svc.Register(ctx, "c@example.com", testPassword)
	require.NoError(t, err)

	expectCommit(mock)
	require.NoError(t, svc.UpdateUserPassword(ctx, user.ID, "a brand new passphrase"))
	_, err = svc.Authenticate(ctx, "c@example.com", "a brand new passphrase")
	assert.NoError(t, err)

	expectRollback(mock)
	err = svc.UpdateUserPassword(ctx, user.ID, "tiny")
	assert.ErrorIs(t, err, domain.ErrValidation)

	expectRollback(mock)
	err = svc.UpdateUserEmail(ctx, user.ID, "not-an-email")
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	expectCommit(mock)
	require.NoError(t, svc.UpdateUserEmail(ctx, user.ID, "C2@example.com"))
	got, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "c2@example.com", got.Email)

	expectRollback(mock)
	err = svc.UpdateUserEmail(ctx, uuid.New(), "x@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestUserService_SeedDefaultsIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	presets := srs.SeedPresets(nil, []srs.Preset{{Name: "Exam", Intervals: []int{10, 60}, Default: true}})
	f, commit := newUserFixture(t, presets, nil)

	commit()
	user, err := f.svc.Register(ctx, "d@example.com", testPassword)
	require.NoError(t, err)

	def, err := f.mem.Curves().GetDefault(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Exam", def.Name)

	// A user who picked their own default keeps it.
	curves, err := f.mem.Curves().List(ctx, user.ID)
	require.NoError(t, err)
	var standard uuid.UUID
	for _, c := range curves {
		if c.Name == srs.StandardCurveName {
			standard = c.ID
		}
	}
	require.NoError(t, f.mem.Curves().SetDefault(ctx, user.ID, standard))

	for i := 0; i < 2; i++ {
		commit()
		require.NoError(t, f.svc.SeedDefaults(ctx, user.ID))
	}

	curves, err = f.mem.Curves().List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, curves, 2)
	assert.Equal(t, standard, curves[0].ID)
	assert.True(t, curves[0].IsDefault)

	notebooks, err := f.mem.Notebooks().List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, notebooks, 1)
}

func TestUserService_DeleteUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, mock := newTxDB(t)
	mem := memstore.New()
	emitter := &recordingEmitter{}
	svc := NewUserService(db, UserStores{
		Users: mem.Users(), Notebooks: mem.Notebooks(), Curves: mem.Curves(),
	}, auth.NewBcryptHasher(bcrypt.MinCost), nil, emitter, quietLogger())

	expectCommit(mock)
	user, err := svc.Register(ctx, "e@example.com", testPassword)
	require.NoError(t, err)

	expectCommit(mock)
	require.NoError(t, svc.DeleteUser(ctx, user.ID))
	_, err = svc.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	got := emitter.all()
	require.Len(t, got, 1)
	assert.Equal(t, ReasonUserDeleted, got[0].Reason)
	assert.Equal(t, user.ID, got[0].UserID)
	assert.Nil(t, got[0].ItemID)

	expectRollback(mock)
	assert.ErrorIs(t, svc.DeleteUser(ctx, user.ID), store.ErrUserNotFound)
}
