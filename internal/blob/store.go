package blob

import (
	"context"
	defError "errors"
	"net/http"
	"time"

	"doc-tracker/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = defError.New("blob not found")
	ErrInvalidInput = defError.New("blob name and folder are required")
)

// Store keeps opaque files addressed by an id it assigns.
type Store interface {
	Upload(ctx context.Context, data []byte, name, folder string) (string, error)
	Download(ctx context.Context, id string) ([]byte, error)
	Move(ctx context.Context, id, folder string) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Upload(ctx context.Context, data []byte, name, folder string) (string, error) {
	if name == "" || folder == "" {
		return "", ErrInvalidInput
	}

	b := domain.Blob{
		ID:          uuid.NewString(),
		Name:        name,
		Folder:      folder,
		ContentType: http.DetectContentType(data),
		Size:        int64(len(data)),
		Content:     data,
	}
	if err := s.db.WithContext(ctx).Create(&b).Error; err != nil {
		return "", errors.Wrapf(err, "uploading %s", name)
	}
	return b.ID, nil
}

func (s *GormStore) Download(ctx context.Context, id string) ([]byte, error) {
	var b domain.Blob
	err := s.db.WithContext(ctx).Select("content").Where("id = ?", id).First(&b).Error
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "downloading %s", id)
	}
	return b.Content, nil
}

func (s *GormStore) Move(ctx context.Context, id, folder string) error {
	if folder == "" {
		return ErrInvalidInput
	}

	res := s.db.WithContext(ctx).Model(&domain.Blob{}).
		Where("id = ?", id).
		Updates(map[string]any{"folder": folder, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "moving %s", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stat returns blob metadata without the content.
func (s *GormStore) Stat(ctx context.Context, id string) (*domain.Blob, error) {
	var b domain.Blob
	err := s.db.WithContext(ctx).Omit("content").Where("id = ?", id).First(&b).Error
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", id)
	}
	return &b, nil
}
