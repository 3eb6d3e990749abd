package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kanflow/kanflow-api/internal/database"
	"github.com/kanflow/kanflow-api/internal/middleware"
	"github.com/kanflow/kanflow-api/internal/models"
	"gorm.io/datatypes"
)

func encodeJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// GetViews lists a board's views in creation order.
func GetViews(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}

	if !isBoardMember(boardID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have access to this board",
		})
	}

	var views []models.View
	if err := database.DB.Where("board_id = ?", boardID).
		Order("created_at ASC").
		Find(&views).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch views",
		})
	}

	return c.JSON(fiber.Map{"views": views})
}

// CreateView adds a view to a board. Requires ADMIN or EDITOR.
func CreateView(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin, models.RoleEditor) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to create views",
		})
	}

	var req models.CreateViewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	title := req.Title
	if title == "" {
		title = "New view"
	}

	view := models.View{
		Title:    title,
		Type:     models.NormalizeViewType(req.Type),
		ParentID: req.ParentID,
		BoardID:  boardID,
	}
	if req.Filter != nil {
		view.Filter = encodeJSON(req.Filter)
	}
	if req.SortOptions != nil {
		view.SortOptions = encodeJSON(req.SortOptions)
	}
	if req.VisiblePropertyIDs != nil {
		view.VisiblePropertyIDs = encodeJSON(req.VisiblePropertyIDs)
	}

	if err := database.DB.Create(&view).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create view",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "View created",
		"view":    view,
	})
}

// UpdateView mutates view settings. Requires ADMIN or EDITOR.
func UpdateView(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}
	viewID, err := uuid.Parse(c.Params("viewId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid view ID",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin, models.RoleEditor) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to edit views",
		})
	}

	var view models.View
	if err := database.DB.Where("id = ? AND board_id = ?", viewID, boardID).First(&view).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "View not found",
		})
	}

	var req models.UpdateViewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title != nil {
		view.Title = *req.Title
	}
	if req.Type != nil {
		view.Type = models.NormalizeViewType(*req.Type)
	}
	if req.Filter != nil {
		view.Filter = encodeJSON(*req.Filter)
	}
	if req.SortOptions != nil {
		view.SortOptions = encodeJSON(*req.SortOptions)
	}
	if req.VisiblePropertyIDs != nil {
		view.VisiblePropertyIDs = encodeJSON(*req.VisiblePropertyIDs)
	}
	if req.ColumnWidths != nil {
		view.ColumnWidths = encodeJSON(*req.ColumnWidths)
	}
	if req.KanbanCalculations != nil {
		view.KanbanCalculations = encodeJSON(*req.KanbanCalculations)
	}

	if err := database.DB.Save(&view).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update view",
		})
	}

	return c.JSON(fiber.Map{
		"message": "View updated",
		"view":    view,
	})
}

// DeleteView removes a view, refusing to delete a board's last one. Requires
// ADMIN or EDITOR.
func DeleteView(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}
	viewID, err := uuid.Parse(c.Params("viewId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid view ID",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin, models.RoleEditor) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to delete views",
		})
	}

	var view models.View
	if err := database.DB.Where("id = ? AND board_id = ?", viewID, boardID).First(&view).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "View not found",
		})
	}

	var viewCount int64
	database.DB.Model(&models.View{}).Where("board_id = ?", boardID).Count(&viewCount)
	if viewCount <= 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot delete the last view of a board",
		})
	}

	if err := database.DB.Delete(&view).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete view",
		})
	}

	return c.JSON(fiber.Map{"message": "View deleted"})
}
