package user

import (
	"context"

	"doc-tracker/internal/domain"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Delete(ctx context.Context, username string) error
	UpdatePasswordHash(ctx context.Context, username, hash string) error
	CountAdmins(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new user repository
func NewRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create inserts a user. A taken username surfaces as gorm.ErrDuplicatedKey.
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByUsername returns gorm.ErrRecordNotFound for unknown users.
func (r *UserRepositoryImpl) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Order("username").Find(&users).Error
	return users, errors.Wrap(err, "listing users")
}

func (r *UserRepositoryImpl) Delete(ctx context.Context, username string) error {
	res := r.db.WithContext(ctx).Where("username = ?", username).Delete(&domain.User{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "deleting user %s", username)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("username = ?", username).
		Update("password_hash", hash)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "updating password of %s", username)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("role = ?", domain.RoleAdmin).Count(&n).Error
	return n, errors.Wrap(err, "counting admins")
}

func (r *UserRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error
	return n, errors.Wrap(err, "counting users")
}
