package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kanflow/kanflow-api/internal/database"
	"github.com/kanflow/kanflow-api/internal/kanban"
	"github.com/kanflow/kanflow-api/internal/middleware"
	"github.com/kanflow/kanflow-api/internal/models"
)

// GetCards lists a board's cards in ascending order.
func GetCards(c *fiber.Ctx) error {
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

	var cards []models.Card
	if err := database.DB.Where("board_id = ?", boardID).
		Order("card_order ASC").
		Preload("CreatedBy").
		Find(&cards).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch cards",
		})
	}

	return c.JSON(fiber.Map{"cards": cards})
}

// CreateCard appends a card at the end of the board. Requires ADMIN or EDITOR.
func CreateCard(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin, models.RoleEditor) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to add cards",
		})
	}

	var req models.CreateCardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	title := req.Title
	if title == "" {
		title = "New card"
	}
	icon := req.Icon
	if icon == "" {
		icon = "📝"
	}

	var maxOrder int
	database.DB.Model(&models.Card{}).Where("board_id = ?", boardID).
		Select("COALESCE(MAX(card_order), 0)").Scan(&maxOrder)

	card := models.Card{
		Title:       title,
		Icon:        icon,
		Order:       maxOrder + 1,
		ParentID:    req.ParentID,
		BoardID:     boardID,
		CreatedByID: userID,
	}
	if req.Properties != nil {
		if err := card.SetPropertyMap(req.Properties); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid properties",
			})
		}
	}

	if err := database.DB.Create(&card).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create card",
		})
	}

	database.DB.Preload("CreatedBy").First(&card, "id = ?", card.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Card created",
		"card":    card,
	})
}

// GetCard returns one card.
func GetCard(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}
	cardID, err := uuid.Parse(c.Params("cardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid card ID",
		})
	}

	if !isBoardMember(boardID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have access to this board",
		})
	}

	var card models.Card
	if err := database.DB.Where("id = ? AND board_id = ?", cardID, boardID).
		Preload("CreatedBy").First(&card).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Card not found",
		})
	}

	return c.JSON(fiber.Map{"card": card})
}

// UpdateCard mutates card fields in place. Requires ADMIN or EDITOR.
func UpdateCard(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}
	cardID, err := uuid.Parse(c.Params("cardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid card ID",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin, models.RoleEditor) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to edit cards",
		})
	}

	var card models.Card
	if err := database.DB.Where("id = ? AND board_id = ?", cardID, boardID).First(&card).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Card not found",
		})
	}

	var req models.UpdateCardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title != nil {
		card.Title = *req.Title
	}
	if req.Content != nil {
		card.Content = req.Content
	}
	if req.Properties != nil {
		if err := card.SetPropertyMap(*req.Properties); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid properties",
			})
		}
	}
	if req.Icon != nil {
		card.Icon = *req.Icon
	}
	if req.Order != nil {
		card.Order = *req.Order
	}
	if req.ParentID != nil {
		card.ParentID = req.ParentID
	}

	if err := database.DB.Save(&card).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update card",
		})
	}

	database.DB.Preload("CreatedBy").First(&card, "id = ?", card.ID)

	return c.JSON(fiber.Map{
		"message": "Card updated",
		"card":    card,
	})
}

// DeleteCard removes a card. Requires ADMIN or EDITOR.
func DeleteCard(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}
	cardID, err := uuid.Parse(c.Params("cardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid card ID",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin, models.RoleEditor) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to delete cards",
		})
	}

	result := database.DB.Where("id = ? AND board_id = ?", cardID, boardID).Delete(&models.Card{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Card not found",
		})
	}

	return c.JSON(fiber.Map{"message": "Card deleted"})
}

// ReorderCards applies a batch of {id, order, properties?} updates produced
// by a drag-and-drop move. Requires ADMIN or EDITOR. The writes are issued
// per card, mirroring the non-atomic batch the client protocol expects.
func ReorderCards(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin, models.RoleEditor) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to edit cards",
		})
	}

	var req models.ReorderCardsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	for _, update := range req.Cards {
		values := map[string]interface{}{"card_order": update.Order}
		if update.Properties != nil {
			card := models.Card{}
			if err := card.SetPropertyMap(*update.Properties); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid properties",
				})
			}
			values["properties"] = card.Properties
		}
		if err := database.DB.Model(&models.Card{}).
			Where("id = ? AND board_id = ?", update.ID, boardID).
			Updates(values).Error; err != nil {
			log.Printf("reorder card %s: %v", update.ID, err)
		}
	}

	return c.JSON(fiber.Map{"message": "Cards reordered"})
}

// MoveCard computes a kanban column move server-side: groups the board's
// cards by the grouping property, places the card at the requested index, and
// applies the resulting batch of order updates.
func MoveCard(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}
	cardID, err := uuid.Parse(c.Params("cardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid card ID",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin, models.RoleEditor) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to edit cards",
		})
	}

	var req models.MoveCardRequest
	if err := c.BodyParser(&req); err != nil || req.ToGroupID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "toGroupId is required",
		})
	}

	var board models.Board
	if err := database.DB.First(&board, "id = ?", boardID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Board not found",
		})
	}
	props, err := board.CardProperties()
	if err != nil {
		log.Printf("move card: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read board schema",
		})
	}

	var groupBy models.CardProperty
	if req.GroupByID != "" {
		found := false
		for _, p := range props {
			if p.ID == req.GroupByID {
				groupBy, found = p, true
				break
			}
		}
		if !found {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown grouping property",
			})
		}
	} else {
		var ok bool
		groupBy, ok = kanban.PickGroupingProperty(props)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Board has no groupable property",
			})
		}
	}

	var cards []models.Card
	if err := database.DB.Where("board_id = ?", boardID).Order("card_order ASC").Find(&cards).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch cards",
		})
	}

	groups, err := kanban.GroupCards(cards, groupBy)
	if err != nil {
		log.Printf("move card: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to group cards",
		})
	}

	patches, err := kanban.MoveCard(groups, cardID, groupBy.ID, req.ToGroupID, req.ToIndex)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Card not found",
		})
	}

	for _, patch := range patches {
		values := map[string]interface{}{"card_order": patch.Order}
		if patch.Properties != nil {
			card := models.Card{}
			if err := card.SetPropertyMap(patch.Properties); err == nil {
				values["properties"] = card.Properties
			}
		}
		if err := database.DB.Model(&models.Card{}).
			Where("id = ? AND board_id = ?", patch.ID, boardID).
			Updates(values).Error; err != nil {
			log.Printf("move card %s: %v", patch.ID, err)
		}
	}

	return c.JSON(fiber.Map{
		"message": "Card moved",
		"updated": len(patches),
	})
}
