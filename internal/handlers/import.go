package handlers

import (
	"errors"
	"io"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kanflow/kanflow-api/internal/config"
	"github.com/kanflow/kanflow-api/internal/database"
	"github.com/kanflow/kanflow-api/internal/middleware"
	"github.com/kanflow/kanflow-api/internal/services"
)

// ImportArchive accepts a multipart .boardarchive upload and runs the import
// pipeline. Wrong extension and oversized uploads are rejected before the
// pipeline runs; a structurally invalid archive fails without any writes.
func ImportArchive(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	cfg := config.Load()

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Please upload a .boardarchive file",
		})
	}

	if !strings.HasSuffix(file.Filename, ".boardarchive") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only .boardarchive files are supported",
		})
	}

	if file.Size > int64(cfg.MaxUploadMB)*1024*1024 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Archive exceeds the upload size limit",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read upload",
		})
	}
	defer src.Close()

	buf, err := io.ReadAll(src)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read upload",
		})
	}

	importer := &services.Importer{DB: database.DB, UploadDir: cfg.UploadDir}
	result, err := importer.ImportBoardArchive(buf, userID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidArchive) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("import archive: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to import archive",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":        "Board imported",
		"boardId":        result.BoardID,
		"boardTitle":     result.BoardTitle,
		"cardsImported":  result.CardsImported,
		"viewsImported":  result.ViewsImported,
		"filesImported":  result.FilesImported,
		"recordsSkipped": result.RecordsSkipped,
	})
}
