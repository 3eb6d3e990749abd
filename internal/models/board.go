package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Property types recognized by the card property schema.
const (
	PropertyTypeSelect      = "select"
	PropertyTypeText        = "text"
	PropertyTypeDate        = "date"
	PropertyTypeNumber      = "number"
	PropertyTypeURL         = "url"
	PropertyTypeMultiPerson = "multiPerson"
	PropertyTypeCreatedBy   = "createdBy"
	PropertyTypeCreatedTime = "createdTime"
	PropertyTypeUpdatedBy   = "updatedBy"
	PropertyTypeUpdatedTime = "updatedTime"
)

// PropertyOption is one choice of a select-typed property. The id must be
// unique within the owning property's option list.
type PropertyOption struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Color string `json:"color"`
}

// CardProperty is one field of a board's card schema. Only select-typed
// properties carry options.
type CardProperty struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Type    string           `json:"type"`
	Options []PropertyOption `json:"options"`
}

type Board struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title           string         `json:"title" gorm:"not null"`
	Description     *string        `json:"description"`
	Icon            string         `json:"icon" gorm:"default:'📋'"`
	ShowDescription bool           `json:"showDescription" gorm:"default:false"`
	Properties      datatypes.JSON `json:"properties" gorm:"type:json"`
	CreatedByID     uuid.UUID      `json:"createdById" gorm:"type:uuid;index;not null"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`

	Members []BoardMember `json:"members,omitempty" gorm:"foreignKey:BoardID"`
	Cards   []Card        `json:"cards,omitempty" gorm:"foreignKey:BoardID"`
	Views   []View        `json:"views,omitempty" gorm:"foreignKey:BoardID"`
	Files   []File        `json:"files,omitempty" gorm:"foreignKey:BoardID"`
}

func (b *Board) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// CardProperties decodes the board's property schema. The column is opaque
// JSON at the storage boundary, so a shape mismatch is a hard error rather
// than a silent zero value.
func (b *Board) CardProperties() ([]CardProperty, error) {
	if len(b.Properties) == 0 {
		return []CardProperty{}, nil
	}
	var props []CardProperty
	if err := json.Unmarshal(b.Properties, &props); err != nil {
		return nil, fmt.Errorf("decode board %s properties: %w", b.ID, err)
	}
	return props, nil
}

func (b *Board) SetCardProperties(props []CardProperty) error {
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	b.Properties = datatypes.JSON(raw)
	return nil
}

// Board DTOs
type CreateBoardRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
	Icon        string  `json:"icon"`
}

type UpdateBoardRequest struct {
	Title           *string        `json:"title"`
	Description     *string        `json:"description"`
	Icon            *string        `json:"icon"`
	ShowDescription *bool          `json:"showDescription"`
	Properties      []CardProperty `json:"properties"`
}
