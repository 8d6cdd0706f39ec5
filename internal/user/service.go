package user

import (
	"context"
	defError "errors"

	"doc-tracker/internal/auth"
	"doc-tracker/internal/domain"
	"doc-tracker/internal/errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultAdminUsername    = "admin"
	DefaultAdminDisplayName = "System Administrator"
)

// Service defines the interface for user business logic
type Service interface {
	Login(ctx context.Context, username, password string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.SafeUser, error)
	Create(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, actor, username string) error
	ChangePassword(ctx context.Context, username, password, confirm string) error
	SeedDefaultAdmin(ctx context.Context, password string) (bool, error)
}

// DefaultService implements Service
type DefaultService struct {
	repository UserRepository
	log        *zap.Logger
}

// NewService creates a new user service
func NewService(repository UserRepository, log *zap.Logger) Service {
	return &DefaultService{repository: repository, log: log}
}

// Login authenticates a user. Unknown users and wrong passwords get the same
// error.
func (s *DefaultService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.repository.FindByUsername(ctx, username)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Unauthorized("Invalid username or password", nil)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	ok, needsRehash := auth.VerifyPassword(user.PasswordHash, password)
	if !ok {
		return nil, errors.Unauthorized("Invalid username or password", nil)
	}

	if needsRehash {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.repository.UpdatePasswordHash(ctx, username, hash); err != nil {
				s.log.Warn("rehash legacy password", zap.String("username", username), zap.Error(err))
			} else {
				user.PasswordHash = hash
			}
		}
	}

	return user, nil
}

func (s *DefaultService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.repository.FindByUsername(ctx, username)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("User not found", err)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}
	return user, nil
}

func (s *DefaultService) List(ctx context.Context) ([]domain.SafeUser, error) {
	users, err := s.repository.List(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}

	safe := make([]domain.SafeUser, 0, len(users))
	for i := range users {
		safe = append(safe, users[i].ToSafeUser())
	}
	return safe, nil
}

// Create hashes user.Password and stores the user.
func (s *DefaultService) Create(ctx context.Context, user *domain.User) error {
	if user.Username == "" || user.Password == "" || user.DisplayName == "" {
		return errors.UnprocessableEntity("Username, password and display name are required", nil)
	}
	if user.Role != domain.RoleUser && user.Role != domain.RoleAdmin {
		return errors.UnprocessableEntity("Role must be user or admin", nil)
	}

	hash, err := auth.HashPassword(user.Password)
	if err != nil {
		return errors.Internal(err)
	}
	user.PasswordHash = hash

	err = s.repository.Create(ctx, user)
	if defError.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Conflict("Username already exists", err)
	}
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *DefaultService) Delete(ctx context.Context, actor, username string) error {
	if actor == username {
		return errors.UnprocessableEntity("You cannot delete your own account", nil)
	}

	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	if user.IsAdmin() {
		admins, err := s.repository.CountAdmins(ctx)
		if err != nil {
			return errors.Internal(err)
		}
		if admins <= 1 {
			return errors.UnprocessableEntity("Cannot delete the last admin", nil)
		}
	}

	err = s.repository.Delete(ctx, username)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("User not found", err)
	}
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *DefaultService) ChangePassword(ctx context.Context, username, password, confirm string) error {
	if password == "" {
		return errors.UnprocessableEntity("Password is required", nil)
	}
	if password != confirm {
		return errors.UnprocessableEntity("Passwords do not match", nil)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return errors.Internal(err)
	}

	err = s.repository.UpdatePasswordHash(ctx, username, hash)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("User not found", err)
	}
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}

// SeedDefaultAdmin creates the admin account on an empty user table and
// reports whether it did.
func (s *DefaultService) SeedDefaultAdmin(ctx context.Context, password string) (bool, error) {
	n, err := s.repository.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	err = s.Create(ctx, &domain.User{
		Username:    DefaultAdminUsername,
		Password:    password,
		DisplayName: DefaultAdminDisplayName,
		Role:        domain.RoleAdmin,
	})
	if err != nil {
		return false, err
	}

	s.log.Info("seeded default admin", zap.String("username", DefaultAdminUsername))
	return true, nil
}
