package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kanflow/kanflow-api/internal/database"
	"github.com/kanflow/kanflow-api/internal/middleware"
	"github.com/kanflow/kanflow-api/internal/models"
	"gorm.io/gorm"
)

// defaultCardProperties is the schema every freshly created board starts with.
func defaultCardProperties() []models.CardProperty {
	return []models.CardProperty{
		{
			ID:   uuid.New().String(),
			Name: "Status",
			Type: models.PropertyTypeSelect,
			Options: []models.PropertyOption{
				{ID: uuid.New().String(), Value: "In progress", Color: "propColorRed"},
				{ID: uuid.New().String(), Value: "Up next", Color: "propColorPurple"},
				{ID: uuid.New().String(), Value: "Ready to report", Color: "propColorGreen"},
				{ID: uuid.New().String(), Value: "Idea", Color: "propColorGray"},
				{ID: uuid.New().String(), Value: "Shelved", Color: "propColorBrown"},
			},
		},
		{
			ID:   uuid.New().String(),
			Name: "Priority",
			Type: models.PropertyTypeSelect,
			Options: []models.PropertyOption{
				{ID: uuid.New().String(), Value: "High", Color: "propColorRed"},
				{ID: uuid.New().String(), Value: "Medium", Color: "propColorYellow"},
				{ID: uuid.New().String(), Value: "Low", Color: "propColorGray"},
			},
		},
		{ID: uuid.New().String(), Name: "Assignee", Type: models.PropertyTypeText, Options: []models.PropertyOption{}},
		{ID: uuid.New().String(), Name: "Due date", Type: models.PropertyTypeDate, Options: []models.PropertyOption{}},
		{ID: uuid.New().String(), Name: "Notes", Type: models.PropertyTypeText, Options: []models.PropertyOption{}},
	}
}

// GetBoards lists every board the caller is a member of.
func GetBoards(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var boards []models.Board
	if err := database.DB.
		Joins("JOIN board_members ON board_members.board_id = boards.id").
		Where("board_members.user_id = ? AND board_members.deleted_at IS NULL", userID).
		Preload("Members").
		Preload("Members.User").
		Order("boards.updated_at DESC").
		Find(&boards).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch boards",
		})
	}

	return c.JSON(fiber.Map{"boards": boards})
}

// GetBoard returns one board with its cards and views.
func GetBoard(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}

	if !isBoardMember(boardID, userID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Board not found",
		})
	}

	var board models.Board
	if err := database.DB.
		Preload("Members").
		Preload("Members.User").
		Preload("Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("card_order ASC")
		}).
		Preload("Views", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&board, "id = ?", boardID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Board not found",
		})
	}

	return c.JSON(fiber.Map{"board": board})
}

// CreateBoard creates a board seeded with the default property schema, one
// default kanban view, and the caller as ADMIN.
func CreateBoard(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.CreateBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	icon := req.Icon
	if icon == "" {
		icon = "📋"
	}

	board := models.Board{
		Title:       req.Title,
		Description: req.Description,
		Icon:        icon,
		CreatedByID: userID,
	}
	if err := board.SetCardProperties(defaultCardProperties()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create board",
		})
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&board).Error; err != nil {
			return err
		}
		member := models.BoardMember{
			BoardID: board.ID,
			UserID:  userID,
			Role:    models.RoleAdmin,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		view := models.View{
			Title:   "Kanban view",
			Type:    models.ViewTypeBoard,
			BoardID: board.ID,
		}
		return tx.Create(&view).Error
	})
	if err != nil {
		log.Printf("create board: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create board",
		})
	}

	database.DB.Preload("Members").Preload("Members.User").Preload("Views").First(&board, "id = ?", board.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Board created",
		"board":   board,
	})
}

// UpdateBoard updates board metadata and, optionally, the property schema.
// Requires ADMIN or EDITOR.
func UpdateBoard(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}

	var board models.Board
	if err := database.DB.First(&board, "id = ?", boardID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Board not found",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin, models.RoleEditor) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to edit this board",
		})
	}

	var req models.UpdateBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title != nil {
		board.Title = *req.Title
	}
	if req.Description != nil {
		board.Description = req.Description
	}
	if req.Icon != nil {
		board.Icon = *req.Icon
	}
	if req.ShowDescription != nil {
		board.ShowDescription = *req.ShowDescription
	}
	if req.Properties != nil {
		if err := board.SetCardProperties(req.Properties); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid properties",
			})
		}
	}

	if err := database.DB.Save(&board).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update board",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Board updated",
		"board":   board,
	})
}

// DeleteBoard removes a board and everything it owns. Requires ADMIN.
func DeleteBoard(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}

	var board models.Board
	if err := database.DB.First(&board, "id = ?", boardID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Board not found",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to delete this board",
		})
	}

	// Cascade delete all dependents
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		for _, dep := range []interface{}{&models.Card{}, &models.View{}, &models.File{}, &models.BoardMember{}} {
			if err := tx.Where("board_id = ?", boardID).Delete(dep).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&board).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete board",
		})
	}

	return c.JSON(fiber.Map{"message": "Board deleted"})
}
