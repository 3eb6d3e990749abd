package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Board roles.
const (
	RoleAdmin  = "ADMIN"
	RoleEditor = "EDITOR"
	RoleViewer = "VIEWER"
)

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleEditor || role == RoleViewer
}

type BoardMember struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	BoardID   uuid.UUID      `json:"boardId" gorm:"type:uuid;uniqueIndex:idx_board_user;not null"`
	UserID    uuid.UUID      `json:"userId" gorm:"type:uuid;uniqueIndex:idx_board_user;not null"`
	Role      string         `json:"role" gorm:"not null;default:'EDITOR'"` // ADMIN, EDITOR, VIEWER
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations (for preloading)
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (bm *BoardMember) BeforeCreate(tx *gorm.DB) error {
	if bm.ID == uuid.Nil {
		bm.ID = uuid.New()
	}
	return nil
}

// Member DTOs
type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" validate:"required"`
}
