package domain

import "time"

// DateLayout is the calendar date format used in document rows.
const DateLayout = "2006-01-02"

type DocumentType string

const (
	TypeOutgoing DocumentType = "outgoing"
	TypeIncoming DocumentType = "incoming"
	TypeMemo     DocumentType = "memo"
	TypeLetter   DocumentType = "letter"
)

// DocumentTypes lists every accepted type in display order.
var DocumentTypes = []DocumentType{TypeOutgoing, TypeIncoming, TypeMemo, TypeLetter}

func (t DocumentType) Valid() bool {
	for _, v := range DocumentTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Outbound reports whether documents of this type wait for a reply.
func (t DocumentType) Outbound() bool {
	return t == TypeOutgoing || t == TypeLetter
}

const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

const (
	OCRPending     = "pending"
	OCRDone        = "done"
	OCRFailed      = "failed"
	OCRUnavailable = "unavailable"
)

type Document struct {
	ID        string       `gorm:"primaryKey;size:64" json:"id"`
	Date      string       `gorm:"size:10;index;not null" json:"date"`
	Type      DocumentType `gorm:"size:16;not null" json:"type"`
	Agency    string       `gorm:"not null" json:"agency"`
	Subject   string       `gorm:"not null" json:"subject"`
	ParentID  string       `gorm:"size:64;index" json:"parent_id"`
	BlobID    string       `gorm:"size:64" json:"blob_id"`
	CreatedAt time.Time    `json:"created_at"`
	CreatedBy string       `json:"created_by"`
	Status    string       `gorm:"size:16;default:active" json:"status"`
	OCRText   string       `gorm:"column:ocr_text" json:"ocr_text,omitempty"`
	OCRStatus string       `gorm:"column:ocr_status;size:16" json:"ocr_status,omitempty"`
	OCRDate   *time.Time   `gorm:"column:ocr_date" json:"ocr_date,omitempty"`
	// Seq keeps insertion order, which sibling ordering in threads relies on.
	Seq int64 `gorm:"index" json:"-"`
}

// IsRoot reports whether the document starts a thread.
func (d Document) IsRoot() bool {
	return d.ParentID == ""
}

// ParsedDate returns the document date as a UTC calendar date.
func (d Document) ParsedDate() (time.Time, error) {
	return time.Parse(DateLayout, d.Date)
}

// DeletedDocument is the append-only audit copy written by a soft delete.
type DeletedDocument struct {
	ID        string       `gorm:"primaryKey;size:64" json:"id"`
	DeletedAt time.Time    `gorm:"primaryKey" json:"deleted_at"`
	Date      string       `gorm:"size:10" json:"date"`
	Type      DocumentType `gorm:"size:16" json:"type"`
	Agency    string       `json:"agency"`
	Subject   string       `json:"subject"`
	ParentID  string       `gorm:"size:64" json:"parent_id"`
	BlobID    string       `gorm:"size:64" json:"blob_id"`
	CreatedAt time.Time    `json:"created_at"`
	CreatedBy string       `json:"created_by"`
	OCRText   string       `gorm:"column:ocr_text" json:"ocr_text,omitempty"`
	OCRStatus string       `gorm:"column:ocr_status;size:16" json:"ocr_status,omitempty"`
	OCRDate   *time.Time   `gorm:"column:ocr_date" json:"ocr_date,omitempty"`
	DeletedBy string       `json:"deleted_by"`
}

// NewDeletedDocument copies every field of doc into an audit record.
func NewDeletedDocument(doc Document, deletedAt time.Time, deletedBy string) DeletedDocument {
	return DeletedDocument{
		ID:        doc.ID,
		Date:      doc.Date,
		Type:      doc.Type,
		Agency:    doc.Agency,
		Subject:   doc.Subject,
		ParentID:  doc.ParentID,
		BlobID:    doc.BlobID,
		CreatedAt: doc.CreatedAt,
		CreatedBy: doc.CreatedBy,
		OCRText:   doc.OCRText,
		OCRStatus: doc.OCRStatus,
		OCRDate:   doc.OCRDate,
		DeletedAt: deletedAt,
		DeletedBy: deletedBy,
	}
}
