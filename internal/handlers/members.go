package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kanflow/kanflow-api/internal/database"
	"github.com/kanflow/kanflow-api/internal/middleware"
	"github.com/kanflow/kanflow-api/internal/models"
)

// AddBoardMember adds an existing user to a board by email. Requires ADMIN.
func AddBoardMember(c *fiber.Ctx) error {
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
			"error": "You do not have permission to add members",
		})
	}

	var req models.AddMemberRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email is required",
		})
	}

	role := req.Role
	if role == "" {
		role = models.RoleEditor
	}
	if !models.ValidRole(role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid role",
		})
	}

	var userToAdd models.User
	if err := database.DB.Where("email = ?", req.Email).First(&userToAdd).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No user with that email",
		})
	}

	var existing models.BoardMember
	if err := database.DB.Where("board_id = ? AND user_id = ?", boardID, userToAdd.ID).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "User is already a member of this board",
		})
	}

	member := models.BoardMember{
		BoardID: boardID,
		UserID:  userToAdd.ID,
		Role:    role,
	}
	if err := database.DB.Create(&member).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add member",
		})
	}

	database.DB.Preload("User").First(&member, "id = ?", member.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Member added",
		"member":  member,
	})
}

// RemoveBoardMember removes a membership row. Requires ADMIN.
func RemoveBoardMember(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}
	memberID, err := uuid.Parse(c.Params("memberId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid member ID",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to remove members",
		})
	}

	result := database.DB.Where("id = ? AND board_id = ?", memberID, boardID).Delete(&models.BoardMember{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	}

	return c.JSON(fiber.Map{"message": "Member removed"})
}

// UpdateMemberRole changes a member's role. Requires ADMIN.
func UpdateMemberRole(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	boardID, err := uuid.Parse(c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid board ID",
		})
	}
	memberID, err := uuid.Parse(c.Params("memberId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid member ID",
		})
	}

	if !authorize(boardID, userID, models.RoleAdmin) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to change roles",
		})
	}

	var req models.UpdateMemberRoleRequest
	if err := c.BodyParser(&req); err != nil || !models.ValidRole(req.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid role",
		})
	}

	var member models.BoardMember
	if err := database.DB.Where("id = ? AND board_id = ?", memberID, boardID).First(&member).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	}

	member.Role = req.Role
	if err := database.DB.Save(&member).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update role",
		})
	}

	database.DB.Preload("User").First(&member, "id = ?", member.ID)

	return c.JSON(fiber.Map{
		"message": "Role updated",
		"member":  member,
	})
}
