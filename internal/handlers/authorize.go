package handlers

import (
	"github.com/google/uuid"
	"github.com/kanflow/kanflow-api/internal/database"
	"github.com/kanflow/kanflow-api/internal/models"
)

// authorize reports whether userID holds one of the allowed roles on the
// board. It is the precondition of every mutating operation; callers must
// reject the request before performing any writes when it returns false.
func authorize(boardID, userID uuid.UUID, allowedRoles ...string) bool {
	var member models.BoardMember
	if err := database.DB.Where("board_id = ? AND user_id = ?", boardID, userID).First(&member).Error; err != nil {
		return false
	}
	for _, role := range allowedRoles {
		if member.Role == role {
			return true
		}
	}
	return false
}

// isBoardMember checks membership with any role.
func isBoardMember(boardID, userID uuid.UUID) bool {
	return authorize(boardID, userID, models.RoleAdmin, models.RoleEditor, models.RoleViewer)
}
