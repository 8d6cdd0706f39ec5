package document

import (
	"context"
	"time"

	"doc-tracker/internal/domain"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentRepository interface {
	ListActive(ctx context.Context) ([]domain.Document, error)
	FindByID(ctx context.Context, id string) (*domain.Document, error)
	Append(ctx context.Context, doc *domain.Document) error
	UpdateOCR(ctx context.Context, id string, text, status string, at *time.Time) error
	SoftDelete(ctx context.Context, doc domain.Document, deletedAt time.Time, deletedBy string) error
	ListDeleted(ctx context.Context) ([]domain.DeletedDocument, error)
}

type DocumentRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) DocumentRepository {
	return &DocumentRepositoryImpl{db: db}
}

// ListActive returns every active document in insertion order.
func (r *DocumentRepositoryImpl) ListActive(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Order("seq").
		Find(&docs).Error
	return docs, errors.Wrap(err, "listing documents")
}

// FindByID returns gorm.ErrRecordNotFound for unknown or deleted ids.
func (r *DocumentRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, domain.StatusActive).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Append stores doc after every existing row. An id that is already taken
// fails with gorm.ErrDuplicatedKey and leaves the table unchanged.
func (r *DocumentRepositoryImpl) Append(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last struct{ Seq int64 }
		err := tx.Model(&domain.Document{}).
			Select("COALESCE(MAX(seq), 0) AS seq").
			Scan(&last).Error
		if err != nil {
			return errors.Wrap(err, "reading sequence")
		}

		doc.Seq = last.Seq + 1
		if doc.Status == "" {
			doc.Status = domain.StatusActive
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = time.Now().UTC()
		}
		return tx.Create(doc).Error
	})
}

func (r *DocumentRepositoryImpl) UpdateOCR(ctx context.Context, id string, text, status string, at *time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"ocr_text":   text,
			"ocr_status": status,
			"ocr_date":   at,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "updating ocr of %s", id)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDelete writes the audit copy and removes the active row in one
// transaction.
func (r *DocumentRepositoryImpl) SoftDelete(ctx context.Context, doc domain.Document, deletedAt time.Time, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := domain.NewDeletedDocument(doc, deletedAt, deletedBy)
		if err := tx.Create(&record).Error; err != nil {
			return errors.Wrapf(err, "archiving %s", doc.ID)
		}

		res := tx.Where("id = ?", doc.ID).Delete(&domain.Document{})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "deleting %s", doc.ID)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListDeleted returns the audit records, newest first.
func (r *DocumentRepositoryImpl) ListDeleted(ctx context.Context) ([]domain.DeletedDocument, error) {
	var records []domain.DeletedDocument
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "deleted_at"}, Desc: true}).
		Find(&records).Error
	return records, errors.Wrap(err, "listing deleted documents")
}
