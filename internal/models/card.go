package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Card struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string         `json:"title" gorm:"not null"`
	Content     *string        `json:"content"`
	Properties  datatypes.JSON `json:"properties" gorm:"type:json"`
	Icon        string         `json:"icon" gorm:"default:'📝'"`
	Order       int            `json:"order" gorm:"column:card_order;not null;default:0"`
	ParentID    *uuid.UUID     `json:"parentId" gorm:"type:uuid"`
	BoardID     uuid.UUID      `json:"boardId" gorm:"type:uuid;index;not null"`
	CreatedByID uuid.UUID      `json:"createdById" gorm:"type:uuid;not null"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	CreatedBy User `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID"`
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if len(c.Properties) == 0 {
		c.Properties = datatypes.JSON([]byte("{}"))
	}
	return nil
}

// PropertyMap decodes the card's property bag (property id -> value).
func (c *Card) PropertyMap() (map[string]string, error) {
	if len(c.Properties) == 0 {
		return map[string]string{}, nil
	}
	var props map[string]string
	if err := json.Unmarshal(c.Properties, &props); err != nil {
		return nil, fmt.Errorf("decode card %s properties: %w", c.ID, err)
	}
	return props, nil
}

func (c *Card) SetPropertyMap(props map[string]string) error {
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	c.Properties = datatypes.JSON(raw)
	return nil
}

// Card DTOs
type CreateCardRequest struct {
	Title      string            `json:"title"`
	Properties map[string]string `json:"properties"`
	Icon       string            `json:"icon"`
	ParentID   *uuid.UUID        `json:"parentId"`
}

type UpdateCardRequest struct {
	Title      *string            `json:"title"`
	Content    *string            `json:"content"`
	Properties *map[string]string `json:"properties"`
	Icon       *string            `json:"icon"`
	Order      *int               `json:"order"`
	ParentID   *uuid.UUID         `json:"parentId"`
}

// CardOrderUpdate is one entry of a batch reorder request.
type CardOrderUpdate struct {
	ID         uuid.UUID          `json:"id"`
	Order      int                `json:"order"`
	Properties *map[string]string `json:"properties"`
}

type ReorderCardsRequest struct {
	Cards []CardOrderUpdate `json:"cards"`
}

// MoveCardRequest asks the server to compute a drag-and-drop move within the
// kanban grouping: place the card at toIndex inside toGroupId.
type MoveCardRequest struct {
	GroupByID string `json:"groupById"`
	ToGroupID string `json:"toGroupId" validate:"required"`
	ToIndex   int    `json:"toIndex"`
}
