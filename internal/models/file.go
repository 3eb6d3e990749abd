package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is an attachment extracted from an imported archive. There is no
// direct upload endpoint; rows are created by the import pipeline only.
type File struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Filename  string         `json:"filename" gorm:"not null"`
	Mimetype  string         `json:"mimetype" gorm:"not null"`
	Size      int64          `json:"size" gorm:"not null"`
	Path      string         `json:"path" gorm:"not null"`
	BoardID   uuid.UUID      `json:"boardId" gorm:"type:uuid;index;not null"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
