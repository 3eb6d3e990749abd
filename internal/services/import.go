// Package services holds the board archive import pipeline.
package services

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kanflow/kanflow-api/internal/models"
	"gorm.io/gorm"
)

// ErrInvalidArchive marks structural failures detected before any persistent
// write: missing version marker, no board directory, no board descriptor.
var ErrInvalidArchive = errors.New("invalid board archive")

// ImportResult summarizes one import. The counts can be lower than the
// archive's contents: per-record failures are skipped, not fatal.
type ImportResult struct {
	BoardID        uuid.UUID `json:"boardId"`
	BoardTitle     string    `json:"boardTitle"`
	CardsImported  int       `json:"cardsImported"`
	ViewsImported  int       `json:"viewsImported"`
	FilesImported  int       `json:"filesImported"`
	RecordsSkipped int       `json:"recordsSkipped"`
}

// Importer rebuilds a board from an external archive export under a new
// owner, minting fresh ids for every entity.
type Importer struct {
	DB        *gorm.DB
	UploadDir string
}

// Record shapes of the external export format. A record is either the board
// descriptor (type "board") or a block (type "block") whose inner type
// discriminates cards, views and content blocks.
type archiveRecord struct {
	Type string           `json:"type"`
	Data archiveBlockData `json:"data"`
}

type archiveBlockData struct {
	ID              string                `json:"id"`
	Type            string                `json:"type"`
	Title           string                `json:"title"`
	Description     *string               `json:"description"`
	Icon            string                `json:"icon"`
	ShowDescription bool                  `json:"showDescription"`
	Fields          archiveBlockFields    `json:"fields"`
	CardProperties  []models.CardProperty `json:"cardProperties"`
}

type archiveBlockFields struct {
	Icon               string                     `json:"icon"`
	ViewType           string                     `json:"viewType"`
	Properties         map[string]json.RawMessage `json:"properties"`
	Filter             json.RawMessage            `json:"filter"`
	SortOptions        json.RawMessage            `json:"sortOptions"`
	VisiblePropertyIDs []string                   `json:"visiblePropertyIds"`
	ColumnWidths       json.RawMessage            `json:"columnWidths"`
	KanbanCalculations json.RawMessage            `json:"kanbanCalculations"`
}

// parsedArchive is the result of folding over the record stream.
type parsedArchive struct {
	board   *archiveBlockData
	cards   []archiveBlockData
	views   []archiveBlockData
	other   []archiveBlockData
	skipped int
}

// ImportBoardArchive runs the full pipeline: validate structure, parse the
// record stream, re-key identifiers, create the board with the importing
// user as ADMIN, then rebuild cards, views and attachment files. Structural
// failures abort before any write; later per-record failures are logged and
// counted but never roll the import back.
func (imp *Importer) ImportBoardArchive(buf []byte, userID uuid.UUID) (*ImportResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip file", ErrInvalidArchive)
	}

	rc, err := openEntry(zr, "version.json")
	if err != nil {
		return nil, fmt.Errorf("%w: version.json not found", ErrInvalidArchive)
	}
	rc.Close()

	boardDir, err := findBoardDir(zr)
	if err != nil {
		return nil, err
	}

	parsed, err := imp.parseRecords(zr, boardDir)
	if err != nil {
		return nil, err
	}

	propIDMap, optionIDMap, newProps := rekeyProperties(parsed.board.CardProperties)

	board, err := imp.createBoard(parsed.board, newProps, userID)
	if err != nil {
		return nil, err
	}

	imp.createCards(board, parsed.cards, propIDMap, optionIDMap, userID)
	viewsImported := imp.createViews(board, parsed.views, propIDMap)
	filesImported := imp.extractFiles(zr, board)

	return &ImportResult{
		BoardID:        board.ID,
		BoardTitle:     board.Title,
		CardsImported:  len(parsed.cards),
		ViewsImported:  viewsImported,
		FilesImported:  filesImported,
		RecordsSkipped: parsed.skipped,
	}, nil
}

func openEntry(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("entry %s not found", name)
}

// findBoardDir locates the exported board's namespace: the first top-level
// directory encountered in the archive. Additional directories are ignored.
func findBoardDir(zr *zip.Reader) (string, error) {
	for _, f := range zr.File {
		if idx := strings.Index(f.Name, "/"); idx > 0 {
			return f.Name[:idx], nil
		}
	}
	return "", fmt.Errorf("%w: no board directory found", ErrInvalidArchive)
}

// parseRecords folds over the newline-delimited record stream. Lines that
// fail to parse are logged and counted, never fatal. If several board
// descriptors appear, the last one wins. A stream with no board descriptor
// is a structural failure.
func (imp *Importer) parseRecords(zr *zip.Reader, boardDir string) (*parsedArchive, error) {
	rc, err := openEntry(zr, boardDir+"/board.jsonl")
	if err != nil {
		return nil, fmt.Errorf("%w: board.jsonl not found", ErrInvalidArchive)
	}
	defer rc.Close()

	parsed := &parsedArchive{}
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record archiveRecord
		if err := json.Unmarshal(line, &record); err != nil {
			log.Printf("import: skipping unparseable record: %v", err)
			parsed.skipped++
			continue
		}

		switch record.Type {
		case "board":
			data := record.Data
			parsed.board = &data
		case "block":
			switch record.Data.Type {
			case "card":
				parsed.cards = append(parsed.cards, record.Data)
			case "view":
				parsed.views = append(parsed.views, record.Data)
			default:
				// Content blocks are not imported in this version.
				parsed.other = append(parsed.other, record.Data)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: unreadable board.jsonl", ErrInvalidArchive)
	}

	if parsed.board == nil {
		return nil, fmt.Errorf("%w: no board record found", ErrInvalidArchive)
	}
	return parsed, nil
}

// rekeyProperties mints fresh ids for every property and option, preserving
// order, and returns the old->new lookup tables used to rewrite card values
// and view settings.
func rekeyProperties(props []models.CardProperty) (map[string]string, map[string]string, []models.CardProperty) {
	propIDMap := make(map[string]string, len(props))
	optionIDMap := make(map[string]string)

	newProps := make([]models.CardProperty, 0, len(props))
	for _, prop := range props {
		newProp := models.CardProperty{
			ID:      uuid.New().String(),
			Name:    prop.Name,
			Type:    prop.Type,
			Options: make([]models.PropertyOption, 0, len(prop.Options)),
		}
		propIDMap[prop.ID] = newProp.ID

		for _, opt := range prop.Options {
			newOpt := models.PropertyOption{
				ID:    uuid.New().String(),
				Value: opt.Value,
				Color: opt.Color,
			}
			optionIDMap[opt.ID] = newOpt.ID
			newProp.Options = append(newProp.Options, newOpt)
		}
		newProps = append(newProps, newProp)
	}
	return propIDMap, optionIDMap, newProps
}

// createBoard writes the new board and grants the importing user ADMIN
// membership in the same transaction. Views are attached later from the
// record stream.
func (imp *Importer) createBoard(desc *archiveBlockData, props []models.CardProperty, userID uuid.UUID) (*models.Board, error) {
	title := desc.Title
	if title == "" {
		title = "Imported board"
	}
	icon := desc.Icon
	if icon == "" {
		icon = "📋"
	}

	board := models.Board{
		Title:           title,
		Description:     desc.Description,
		Icon:            icon,
		ShowDescription: desc.ShowDescription,
		CreatedByID:     userID,
	}
	if err := board.SetCardProperties(props); err != nil {
		return nil, err
	}

	err := imp.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&board).Error; err != nil {
			return err
		}
		member := models.BoardMember{
			BoardID: board.ID,
			UserID:  userID,
			Role:    models.RoleAdmin,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create imported board: %w", err)
	}
	return &board, nil
}

// createCards rebuilds cards in stream order with a dense zero-based order
// sequence, rewriting property keys through the property table and values
// through the option table. Keys with no mapping are dropped; unmappable
// values pass through verbatim.
func (imp *Importer) createCards(board *models.Board, cards []archiveBlockData, propIDMap, optionIDMap map[string]string, userID uuid.UUID) {
	cardIDMap := make(map[string]string, len(cards))

	for order, block := range cards {
		newProperties := make(map[string]string)
		for oldPropID, raw := range block.Fields.Properties {
			newPropID, ok := propIDMap[oldPropID]
			if !ok {
				log.Printf("import: card %s references unknown property %s, dropping", block.ID, oldPropID)
				continue
			}
			var value string
			if err := json.Unmarshal(raw, &value); err != nil {
				log.Printf("import: card %s property %s has a non-string value, dropping", block.ID, oldPropID)
				continue
			}
			if mapped, ok := optionIDMap[value]; ok {
				value = mapped
			}
			newProperties[newPropID] = value
		}

		icon := block.Fields.Icon
		if icon == "" {
			icon = "📝"
		}

		card := models.Card{
			Title:       block.Title,
			Icon:        icon,
			Order:       order,
			BoardID:     board.ID,
			CreatedByID: userID,
		}
		if err := card.SetPropertyMap(newProperties); err != nil {
			log.Printf("import: card %s properties: %v", block.ID, err)
			continue
		}

		if err := imp.DB.Create(&card).Error; err != nil {
			log.Printf("import: create card %s: %v", block.ID, err)
			continue
		}
		cardIDMap[block.ID] = card.ID.String()
	}
	_ = cardIDMap // reserved for cross-card references once content blocks import
}

// createViews rebuilds views, mapping visible property ids through the
// property table (unmapped ids pass through unchanged) and carrying filter,
// sort and width settings verbatim. When the archive holds no views, one
// default kanban view is synthesized so the board keeps its one-view
// invariant.
func (imp *Importer) createViews(board *models.Board, views []archiveBlockData, propIDMap map[string]string) int {
	imported := 0

	for _, block := range views {
		title := block.Title
		if title == "" {
			title = "View"
		}

		visible := make([]string, 0, len(block.Fields.VisiblePropertyIDs))
		for _, id := range block.Fields.VisiblePropertyIDs {
			if mapped, ok := propIDMap[id]; ok {
				id = mapped
			}
			visible = append(visible, id)
		}
		visibleRaw, err := json.Marshal(visible)
		if err != nil {
			log.Printf("import: view %s visiblePropertyIds: %v", block.ID, err)
			continue
		}

		view := models.View{
			Title:              title,
			Type:               models.NormalizeViewType(block.Fields.ViewType),
			Filter:             jsonOrDefault(block.Fields.Filter, "{}"),
			SortOptions:        jsonOrDefault(block.Fields.SortOptions, "[]"),
			VisiblePropertyIDs: visibleRaw,
			ColumnWidths:       jsonOrDefault(block.Fields.ColumnWidths, "{}"),
			KanbanCalculations: jsonOrDefault(block.Fields.KanbanCalculations, "{}"),
			BoardID:            board.ID,
		}
		if err := imp.DB.Create(&view).Error; err != nil {
			log.Printf("import: create view %s: %v", block.ID, err)
			continue
		}
		imported++
	}

	if imported == 0 {
		view := models.View{
			Title:   "Kanban view",
			Type:    models.ViewTypeBoard,
			BoardID: board.ID,
		}
		if err := imp.DB.Create(&view).Error; err != nil {
			log.Printf("import: create default view: %v", err)
			return 0
		}
		imported = 1
	}
	return imported
}

func jsonOrDefault(raw json.RawMessage, fallback string) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return []byte(fallback)
	}
	return raw
}

// extractFiles writes every non-JSON archive entry into the board's blob
// namespace and records a File row for each. Failures skip the entry.
func (imp *Importer) extractFiles(zr *zip.Reader, board *models.Board) int {
	imported := 0
	boardDir := filepath.Join(imp.UploadDir, board.ID.String())

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := f.Name
		if strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".jsonl") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			log.Printf("import: open %s: %v", name, err)
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			log.Printf("import: read %s: %v", name, err)
			continue
		}

		if err := os.MkdirAll(boardDir, 0o755); err != nil {
			log.Printf("import: mkdir %s: %v", boardDir, err)
			continue
		}
		filename := filepath.Base(name)
		if err := os.WriteFile(filepath.Join(boardDir, filename), data, 0o644); err != nil {
			log.Printf("import: write %s: %v", filename, err)
			continue
		}

		file := models.File{
			Filename: filename,
			Mimetype: mimeTypeFor(filename),
			Size:     int64(len(data)),
			Path:     "/uploads/" + board.ID.String() + "/" + filename,
			BoardID:  board.ID,
		}
		if err := imp.DB.Create(&file).Error; err != nil {
			log.Printf("import: record file %s: %v", filename, err)
			continue
		}
		imported++
	}
	return imported
}

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

func mimeTypeFor(filename string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mt
	}
	return "application/octet-stream"
}
