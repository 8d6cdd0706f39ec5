package domain

import "time"

// Blob is an opaque stored file. Folder groups blobs the way drive folders do.
type Blob struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"not null"`
	Folder      string `gorm:"size:128;index;not null"`
	ContentType string `gorm:"size:128"`
	Size        int64
	Content     []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
