package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/domain/srs"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service/auth"
	"github.com/phrazzld/recall-api/internal/store"
)

// Reasons carried on items_changed events emitted outside the review service.
const (
	ReasonNotebookDeleted = "notebook_deleted"
	ReasonUserDeleted     = "user_deleted"
)

// UserService manages accounts.
type UserService interface {
	// Register creates an account and seeds its default notebook and curves
	// in the same transaction.
	Register(ctx context.Context, email, password string) (*domain.User, error)

	// Authenticate returns the user whose email and password match, or
	// ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	UpdateUserEmail(ctx context.Context, userID uuid.UUID, newEmail string) error
	UpdateUserPassword(ctx context.Context, userID uuid.UUID, newPassword string) error

	// DeleteUser removes the account and everything it owns.
	DeleteUser(ctx context.Context, userID uuid.UUID) error

	// SeedDefaults gives the user a default notebook when they have none and
	// adds any preset curve they lack. It never touches existing rows other
	// than electing a default curve when none is marked, so it is safe to
	// run repeatedly.
	SeedDefaults(ctx context.Context, userID uuid.UUID) error
}

// UserStores are the stores UserService writes through.
type UserStores struct {
	Users     store.UserStore
	Notebooks store.NotebookStore
	Curves    store.CurveStore
}

func (s UserStores) withTx(tx *sql.Tx) UserStores {
	return UserStores{
		Users:     s.Users.WithTx(tx),
		Notebooks: s.Notebooks.WithTx(tx),
		Curves:    s.Curves.WithTx(tx),
	}
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	db      *sql.DB
	stores  UserStores
	hasher  auth.PasswordHasher
	presets []srs.Preset
	emitter events.EventEmitter
	logger  *slog.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a UserService. presets are the curves every new
// account starts with; see srs.SeedPresets.
func NewUserService(
	db *sql.DB,
	stores UserStores,
	hasher auth.PasswordHasher,
	presets []srs.Preset,
	emitter events.EventEmitter,
	logger *slog.Logger,
) *UserServiceImpl {
	if db == nil || stores.Users == nil || stores.Notebooks == nil || stores.Curves == nil {
		panic("user service requires a db and all stores")
	}
	if hasher == nil {
		panic("password hasher cannot be nil")
	}
	if len(presets) == 0 {
		presets = srs.SeedPresets(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		db:      db,
		stores:  stores,
		hasher:  hasher,
		presets: presets,
		emitter: emitter,
		logger:  logger.With("component", "user_service"),
	}
}

// Register implements UserService.Register.
func (s *UserServiceImpl) Register(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(email, password)
	if err != nil {
		return nil, invalid(err)
	}
	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		return nil, wrapError(log, "user", "register", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		st := s.stores.withTx(tx)
		if err := st.Users.Create(ctx, user); err != nil {
			return err
		}
		return s.seed(ctx, st, user.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("attempted to register an existing email", "email", user.Email)
		}
		return nil, wrapError(log, "user", "register", err)
	}

	log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate implements UserService.Authenticate.
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.stores.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, wrapError(log, "user", "authenticate", err)
	}
	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		log.Debug("password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser implements UserService.GetUser.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "user", "get", err)
	}
	return user, nil
}

// UpdateUserEmail implements UserService.UpdateUserEmail.
func (s *UserServiceImpl) UpdateUserEmail(ctx context.Context, userID uuid.UUID, newEmail string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		users := s.stores.Users.WithTx(tx)
		user, err := users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		user.Email = strings.TrimSpace(newEmail)
		if err := user.Validate(); err != nil {
			return invalid(err)
		}
		return users.Update(ctx, user)
	})
	if err != nil {
		return wrapError(log, "user", "update_email", err)
	}
	log.Info("user email updated", "user_id", userID)
	return nil
}

// UpdateUserPassword implements UserService.UpdateUserPassword.
func (s *UserServiceImpl) UpdateUserPassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		users := s.stores.Users.WithTx(tx)
		user, err := users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		user.Password = newPassword
		if err := user.Validate(); err != nil {
			return invalid(err)
		}
		hashed, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		user.HashedPassword = hashed
		user.Password = ""
		return users.Update(ctx, user)
	})
	if err != nil {
		return wrapError(log, "user", "update_password", err)
	}
	log.Info("user password updated", "user_id", userID)
	return nil
}

// DeleteUser implements UserService.DeleteUser.
func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.stores.Users.WithTx(tx).Delete(ctx, userID)
	})
	if err != nil {
		return wrapError(log, "user", "delete", err)
	}

	log.Info("user deleted", "user_id", userID)
	emitBulkChange(ctx, log, s.emitter, userID, ReasonUserDeleted)
	return nil
}

// SeedDefaults implements UserService.SeedDefaults.
func (s *UserServiceImpl) SeedDefaults(ctx context.Context, userID uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		st := s.stores.withTx(tx)
		if _, err := st.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		return s.seed(ctx, st, userID)
	})
	return wrapError(logger.FromContextOrDefault(ctx, s.logger), "user", "seed_defaults", err)
}

func (s *UserServiceImpl) seed(ctx context.Context, st UserStores, userID uuid.UUID) error {
	notebooks, err := st.Notebooks.List(ctx, userID)
	if err != nil {
		return err
	}
	if len(notebooks) == 0 {
		nb, err := domain.NewNotebook(userID, domain.DefaultNotebookName, domain.DefaultNotebookColor)
		if err != nil {
			return err
		}
		if err := st.Notebooks.Create(ctx, nb); err != nil {
			return err
		}
	}

	curves, err := st.Curves.List(ctx, userID)
	if err != nil {
		return err
	}
	byName := make(map[string]uuid.UUID, len(curves))
	var defaultID uuid.UUID
	for _, c := range curves {
		byName[strings.ToLower(c.Name)] = c.ID
		if c.IsDefault {
			defaultID = c.ID
		}
	}

	var presetDefault, first uuid.UUID
	for _, p := range s.presets {
		id, ok := byName[strings.ToLower(p.Name)]
		if !ok {
			curve, err := domain.NewReviewCurve(userID, p.Name, p.Intervals, false)
			if err != nil {
				return err
			}
			if err := st.Curves.Create(ctx, curve); err != nil {
				return err
			}
			id = curve.ID
			byName[strings.ToLower(p.Name)] = id
		}
		if first == uuid.Nil {
			first = id
		}
		if p.Default && presetDefault == uuid.Nil {
			presetDefault = id
		}
	}

	if defaultID != uuid.Nil {
		return nil
	}
	if presetDefault == uuid.Nil {
		presetDefault = first
	}
	if presetDefault == uuid.Nil {
		return nil
	}
	return st.Curves.SetDefault(ctx, userID, presetDefault)
}

// emitBulkChange announces that an unknown set of the user's items changed.
func emitBulkChange(ctx context.Context, log *slog.Logger, emitter events.EventEmitter, userID uuid.UUID, reason string) {
	err := events.Emit(ctx, emitter, events.TypeItemsChanged, events.ItemsChangedPayload{
		UserID: userID,
		Reason: reason,
	})
	if err != nil {
		log.Warn("failed to emit items_changed",
			"user_id", userID,
			"reason", reason,
			"error", err)
	}
}
