package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kanflow/kanflow-api/internal/handlers"
	"github.com/kanflow/kanflow-api/internal/middleware"
)

func Setup(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := api.Group("/auth")
	auth.Post("/register", handlers.Register)
	auth.Post("/login", handlers.Login)
	auth.Get("/profile", middleware.Protected(), handlers.GetProfile)
	auth.Put("/profile", middleware.Protected(), handlers.UpdateProfile)

	protected := api.Group("/", middleware.Protected())

	boards := protected.Group("/boards")
	boards.Get("/", handlers.GetBoards)
	boards.Post("/", handlers.CreateBoard)
	boards.Get("/:boardId", handlers.GetBoard)
	boards.Put("/:boardId", handlers.UpdateBoard)
	boards.Delete("/:boardId", handlers.DeleteBoard)

	boards.Post("/:boardId/members", handlers.AddBoardMember)
	boards.Delete("/:boardId/members/:memberId", handlers.RemoveBoardMember)
	boards.Put("/:boardId/members/:memberId", handlers.UpdateMemberRole)

	boards.Get("/:boardId/cards", handlers.GetCards)
	boards.Post("/:boardId/cards", handlers.CreateCard)
	boards.Get("/:boardId/cards/:cardId", handlers.GetCard)
	boards.Put("/:boardId/cards/:cardId", handlers.UpdateCard)
	boards.Delete("/:boardId/cards/:cardId", handlers.DeleteCard)
	boards.Put("/:boardId/cards-reorder", handlers.ReorderCards)
	boards.Put("/:boardId/cards/:cardId/move", handlers.MoveCard)

	boards.Get("/:boardId/views", handlers.GetViews)
	boards.Post("/:boardId/views", handlers.CreateView)
	boards.Put("/:boardId/views/:viewId", handlers.UpdateView)
	boards.Delete("/:boardId/views/:viewId", handlers.DeleteView)

	imports := protected.Group("/import")
	imports.Post("/archive", handlers.ImportArchive)
}
