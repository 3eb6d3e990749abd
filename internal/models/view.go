package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// View types.
const (
	ViewTypeBoard    = "BOARD"
	ViewTypeTable    = "TABLE"
	ViewTypeCalendar = "CALENDAR"
	ViewTypeGallery  = "GALLERY"
)

// SortOption orders cards by one property, optionally descending.
type SortOption struct {
	PropertyID string `json:"propertyId"`
	Reversed   bool   `json:"reversed"`
}

type View struct {
	ID                 uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title              string         `json:"title" gorm:"not null"`
	Type               string         `json:"type" gorm:"not null;default:'BOARD'"` // BOARD, TABLE, CALENDAR, GALLERY
	ParentID           *uuid.UUID     `json:"parentId" gorm:"type:uuid"`
	Filter             datatypes.JSON `json:"filter" gorm:"type:json"`
	SortOptions        datatypes.JSON `json:"sortOptions" gorm:"type:json"`
	VisiblePropertyIDs datatypes.JSON `json:"visiblePropertyIds" gorm:"type:json"`
	ColumnWidths       datatypes.JSON `json:"columnWidths" gorm:"type:json"`
	KanbanCalculations datatypes.JSON `json:"kanbanCalculations" gorm:"type:json"`
	BoardID            uuid.UUID      `json:"boardId" gorm:"type:uuid;index;not null"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`
}

func (v *View) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if len(v.Filter) == 0 {
		v.Filter = datatypes.JSON([]byte("{}"))
	}
	if len(v.SortOptions) == 0 {
		v.SortOptions = datatypes.JSON([]byte("[]"))
	}
	if len(v.VisiblePropertyIDs) == 0 {
		v.VisiblePropertyIDs = datatypes.JSON([]byte("[]"))
	}
	if len(v.ColumnWidths) == 0 {
		v.ColumnWidths = datatypes.JSON([]byte("{}"))
	}
	if len(v.KanbanCalculations) == 0 {
		v.KanbanCalculations = datatypes.JSON([]byte("{}"))
	}
	return nil
}

// DecodedSortOptions decodes the view's sort settings, failing loudly on a
// shape mismatch.
func (v *View) DecodedSortOptions() ([]SortOption, error) {
	if len(v.SortOptions) == 0 {
		return []SortOption{}, nil
	}
	var opts []SortOption
	if err := json.Unmarshal(v.SortOptions, &opts); err != nil {
		return nil, fmt.Errorf("decode view %s sortOptions: %w", v.ID, err)
	}
	return opts, nil
}

// DecodedVisiblePropertyIDs decodes the ordered list of visible property ids.
func (v *View) DecodedVisiblePropertyIDs() ([]string, error) {
	if len(v.VisiblePropertyIDs) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(v.VisiblePropertyIDs, &ids); err != nil {
		return nil, fmt.Errorf("decode view %s visiblePropertyIds: %w", v.ID, err)
	}
	return ids, nil
}

// NormalizeViewType maps an external view-type tag onto a known view type,
// case-insensitively, defaulting to BOARD.
func NormalizeViewType(tag string) string {
	switch strings.ToUpper(tag) {
	case ViewTypeTable:
		return ViewTypeTable
	case ViewTypeCalendar:
		return ViewTypeCalendar
	case ViewTypeGallery:
		return ViewTypeGallery
	default:
		return ViewTypeBoard
	}
}

// View DTOs
type CreateViewRequest struct {
	Title              string         `json:"title"`
	Type               string         `json:"type"`
	ParentID           *uuid.UUID     `json:"parentId"`
	Filter             map[string]any `json:"filter"`
	SortOptions        []SortOption   `json:"sortOptions"`
	VisiblePropertyIDs []string       `json:"visiblePropertyIds"`
}

type UpdateViewRequest struct {
	Title              *string             `json:"title"`
	Type               *string             `json:"type"`
	Filter             *map[string]any     `json:"filter"`
	SortOptions        *[]SortOption       `json:"sortOptions"`
	VisiblePropertyIDs *[]string           `json:"visiblePropertyIds"`
	ColumnWidths       *map[string]float64 `json:"columnWidths"`
	KanbanCalculations *map[string]any     `json:"kanbanCalculations"`
}
