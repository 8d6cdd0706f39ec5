package blob

import (
	"context"
	"path/filepath"
	"testing"

	"doc-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "blob.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Blob{}))
	return NewGormStore(db)
}

var pdf = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

func TestUploadDownload(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Upload(ctx, pdf, "20240115001_agency_subject.pdf", "documents")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := s.Download(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, pdf, got)

	meta, err := s.Stat(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "documents", meta.Folder)
	assert.Equal(t, "application/pdf", meta.ContentType)
	assert.Equal(t, int64(len(pdf)), meta.Size)
	assert.Empty(t, meta.Content)
}

func TestUpload_RequiresNameAndFolder(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Upload(context.Background(), pdf, "", "documents")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Upload(context.Background(), pdf, "a.pdf", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDownload_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Download(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Upload(ctx, pdf, "a.pdf", "documents")
	require.NoError(t, err)

	require.NoError(t, s.Move(ctx, id, "deleted"))

	meta, err := s.Stat(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "deleted", meta.Folder)

	// content survives the move
	got, err := s.Download(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, pdf, got)

	assert.ErrorIs(t, s.Move(ctx, "missing", "deleted"), ErrNotFound)
}
