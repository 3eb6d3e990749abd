package services

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/kanflow/kanflow-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Board{},
		&models.BoardMember{},
		&models.Card{},
		&models.View{},
		&models.File{},
	))
	return db
}

type archiveEntry struct {
	name    string
	content []byte
}

func buildArchive(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for _, e := range entries {
		f, err := w.Create(e.name)
		require.NoError(t, err)
		_, err = f.Write(e.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newImporter(t *testing.T) (*Importer, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return &Importer{DB: db, UploadDir: t.TempDir()}, db
}

const boardLine = `{"type":"board","data":{"title":"T","cardProperties":[{"id":"p1","name":"Status","type":"select","options":[{"id":"o1","value":"Doing","color":"propColorRed"}]}]}}`

func TestImportRekeysPropertiesAndCardValues(t *testing.T) {
	imp, db := newImporter(t)

	jsonl := boardLine + "\n" +
		`{"type":"block","data":{"id":"c1","type":"card","title":"Task A","fields":{"properties":{"p1":"o1"}}}}` + "\n"

	buf := buildArchive(t, []archiveEntry{
		{name: "version.json", content: []byte(`{"version":2}`)},
		{name: "b1/board.jsonl", content: []byte(jsonl)},
	})

	result, err := imp.ImportBoardArchive(buf, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "T", result.BoardTitle)
	assert.Equal(t, 1, result.CardsImported)
	assert.Equal(t, 0, result.RecordsSkipped)

	var board models.Board
	require.NoError(t, db.First(&board, "id = ?", result.BoardID).Error)
	props, err := board.CardProperties()
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "Status", props[0].Name)
	assert.Equal(t, models.PropertyTypeSelect, props[0].Type)
	assert.NotEqual(t, "p1", props[0].ID, "property id must be re-keyed")
	require.Len(t, props[0].Options, 1)
	assert.Equal(t, "Doing", props[0].Options[0].Value)
	assert.NotEqual(t, "o1", props[0].Options[0].ID, "option id must be re-keyed")

	var card models.Card
	require.NoError(t, db.First(&card, "board_id = ?", board.ID).Error)
	assert.Equal(t, "Task A", card.Title)
	bag, err := card.PropertyMap()
	require.NoError(t, err)
	require.Len(t, bag, 1)
	assert.Equal(t, props[0].Options[0].ID, bag[props[0].ID],
		"card value points at the new option id, never the source ids")
}

func TestImportRekeyingIsInjective(t *testing.T) {
	imp, db := newImporter(t)

	jsonl := `{"type":"board","data":{"title":"T","cardProperties":[` +
		`{"id":"p1","name":"A","type":"select","options":[{"id":"o1","value":"x","color":"propColorRed"},{"id":"o2","value":"y","color":"propColorGray"}]},` +
		`{"id":"p2","name":"B","type":"select","options":[{"id":"o3","value":"z","color":"propColorGreen"}]}]}}`

	buf := buildArchive(t, []archiveEntry{
		{name: "version.json", content: []byte(`{}`)},
		{name: "b1/board.jsonl", content: []byte(jsonl)},
	})

	result, err := imp.ImportBoardArchive(buf, uuid.New())
	require.NoError(t, err)

	var board models.Board
	require.NoError(t, db.First(&board, "id = ?", result.BoardID).Error)
	props, err := board.CardProperties()
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, p := range props {
		assert.False(t, seen[p.ID], "duplicate property id %s", p.ID)
		seen[p.ID] = true
		for _, o := range p.Options {
			assert.False(t, seen[o.ID], "duplicate option id %s", o.ID)
			seen[o.ID] = true
		}
	}
	assert.Len(t, seen, 5)
}

func TestImportDropsUnmappedCardPropertyKeys(t *testing.T) {
	imp, db := newImporter(t)

	jsonl := boardLine + "\n" +
		`{"type":"block","data":{"id":"c1","type":"card","title":"Task","fields":{"properties":{"p1":"free text","ghost":"value"}}}}`

	buf := buildArchive(t, []archiveEntry{
		{name: "version.json", content: []byte(`{}`)},
		{name: "b1/board.jsonl", content: []byte(jsonl)},
	})

	result, err := imp.ImportBoardArchive(buf, uuid.New())
	require.NoError(t, err)

	var card models.Card
	require.NoError(t, db.First(&card, "board_id = ?", result.BoardID).Error)
	bag, err := card.PropertyMap()
	require.NoError(t, err)
	require.Len(t, bag, 1, "unmapped keys are dropped, mapped ones kept")
	for _, v := range bag {
		assert.Equal(t, "free text", v, "non-option values pass through verbatim")
	}
}

func TestImportCardsGetDenseOrder(t *testing.T) {
	imp, db := newImporter(t)

	jsonl := boardLine + "\n" +
		`{"type":"block","data":{"id":"c1","type":"card","title":"first","fields":{}}}` + "\n" +
		`{"type":"block","data":{"id":"c2","type":"card","title":"second","fields":{}}}` + "\n" +
		`{"type":"block","data":{"id":"c3","type":"card","title":"third","fields":{}}}`

	buf := buildArchive(t, []archiveEntry{
		{name: "version.json", content: []byte(`{}`)},
		{name: "b1/board.jsonl", content: []byte(jsonl)},
	})

	result, err := imp.ImportBoardArchive(buf, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 3, result.CardsImported)

	var cards []models.Card
	require.NoError(t, db.Where("board_id = ?", result.BoardID).Order("card_order ASC").Find(&cards).Error)
	require.Len(t, cards, 3)
	for i, card := range cards {
		assert.Equal(t, i, card.Order)
	}
	assert.Equal(t, "first", cards[0].Title)
	assert.Equal(t, "third", cards[2].Title)
}

func TestImportViewsMappedAndDefaulted(t *testing.T) {
	imp, db := newImporter(t)

	jsonl := boardLine + "\n" +
		`{"type":"block","data":{"id":"v1","type":"view","title":"My table","fields":{"viewType":"table","visiblePropertyIds":["p1","ghost"],"sortOptions":[{"propertyId":"p1","reversed":true}]}}}`

	buf := buildArchive(t, []archiveEntry{
		{name: "version.json", content: []byte(`{}`)},
		{name: "b1/board.jsonl", content: []byte(jsonl)},
	})

	result, err := imp.ImportBoardArchive(buf, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ViewsImported)

	var board models.Board
	require.NoError(t, db.First(&board, "id = ?", result.BoardID).Error)
	props, err := board.CardProperties()
	require.NoError(t, err)

	var view models.View
	require.NoError(t, db.First(&view, "board_id = ?", board.ID).Error)
	assert.Equal(t, models.ViewTypeTable, view.Type, "view type tag matched case-insensitively")

	visible, err := view.DecodedVisiblePropertyIDs()
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, props[0].ID, visible[0], "mapped id rewritten")
	assert.Equal(t, "ghost", visible[1], "unmapped id passes through unchanged")

	sorts, err := view.DecodedSortOptions()
	require.NoError(t, err)
	require.Len(t, sorts, 1)
	assert.Equal(t, "p1", sorts[0].PropertyID, "sortOptions carried verbatim, no id rewriting")
}

func TestImportSynthesizesDefaultView(t *testing.T) {
	imp, db := newImporter(t)

	buf := buildArchive(t, []archiveEntry{
		{name: "version.json", content: []byte(`{}`)},
		{name: "b1/board.jsonl", content: []byte(boardLine)},
	})

	result, err := imp.ImportBoardArchive(buf, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ViewsImported)

	var view models.View
	require.NoError(t, db.First(&view, "board_id = ?", result.BoardID).Error)
	assert.Equal(t, models.ViewTypeBoard, view.Type)
}

func TestImportExtractsAttachmentFiles(t *testing.T) {
	imp, db := newImporter(t)

	buf := buildArchive(t, []archiveEntry{
		{name: "version.json", content: []byte(`{}`)},
		{name: "b1/board.jsonl", content: []byte(boardLine)},
		{name: "b1/attachments/photo.png", content: []byte{0x89, 0x50, 0x4e, 0x47}},
		{name: "b1/readme.bin", content: []byte("hello")},
	})

	result, err := imp.ImportBoardArchive(buf, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesImported)

	var files []models.File
	require.NoError(t, db.Where("board_id = ?", result.BoardID).Order("filename ASC").Find(&files).Error)
	require.Len(t, files, 2)

	assert.Equal(t, "photo.png", files[0].Filename)
	assert.Equal(t, "image/png", files[0].Mimetype)
	assert.Equal(t, int64(4), files[0].Size)

	assert.Equal(t, "readme.bin", files[1].Filename)
	assert.Equal(t, "application/octet-stream", files[1].Mimetype)

	// Bytes really land in the board's blob namespace.
	data, err := os.ReadFile(filepath.Join(imp.UploadDir, result.BoardID.String(), "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, data)
}

func TestImportSkipsUnparseableRecords(t *testing.T) {
	imp, _ := newImporter(t)

	jsonl := "this is not json\n" + boardLine + "\n" +
		`{"type":"block","data":{"id":"c1","type":"card","title":"ok","fields":{}}}`

	buf := buildArchive(t, []archiveEntry{
		{name: "version.json", content: []byte(`{}`)},
		{name: "b1/board.jsonl", content: []byte(jsonl)},
	})

	result, err := imp.ImportBoardArchive(buf, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, result.CardsImported)
	assert.Equal(t, 1, result.RecordsSkipped)
}

func TestImportLastBoardRecordWins(t *testing.T) {
	imp, _ := newImporter(t)

	jsonl := `{"type":"board","data":{"title":"first"}}` + "\n" +
		`{"type":"board","data":{"title":"second"}}`

	buf := buildArchive(t, []archiveEntry{
		{name: "version.json", content: []byte(`{}`)},
		{name: "b1/board.jsonl", content: []byte(jsonl)},
	})

	result, err := imp.ImportBoardArchive(buf, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "second", result.BoardTitle)
}

func assertNoRows(t *testing.T, db *gorm.DB) {
	t.Helper()
	for name, model := range map[string]interface{}{
		"boards": &models.Board{},
		"cards":  &models.Card{},
		"views":  &models.View{},
		"files":  &models.File{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "expected no %s rows", name)
	}
}

func TestImportMissingVersionMarkerIsFatal(t *testing.T) {
	imp, db := newImporter(t)

	buf := buildArchive(t, []archiveEntry{
		{name: "b1/board.jsonl", content: []byte(boardLine)},
	})

	_, err := imp.ImportBoardArchive(buf, uuid.New())
	require.ErrorIs(t, err, ErrInvalidArchive)
	assertNoRows(t, db)
}

func TestImportWithoutBoardDirectoryIsFatal(t *testing.T) {
	imp, db := newImporter(t)

	buf := buildArchive(t, []archiveEntry{
		{name: "version.json", content: []byte(`{}`)},
	})

	_, err := imp.ImportBoardArchive(buf, uuid.New())
	require.ErrorIs(t, err, ErrInvalidArchive)
	assertNoRows(t, db)
}

func TestImportWithoutBoardRecordIsFatal(t *testing.T) {
	imp, db := newImporter(t)

	jsonl := `{"type":"block","data":{"id":"c1","type":"card","title":"orphan","fields":{}}}`
	buf := buildArchive(t, []archiveEntry{
		{name: "version.json", content: []byte(`{}`)},
		{name: "b1/board.jsonl", content: []byte(jsonl)},
	})

	_, err := imp.ImportBoardArchive(buf, uuid.New())
	require.ErrorIs(t, err, ErrInvalidArchive)
	assertNoRows(t, db)
}

func TestImportGarbageBufferIsFatal(t *testing.T) {
	imp, db := newImporter(t)

	_, err := imp.ImportBoardArchive([]byte("definitely not a zip"), uuid.New())
	require.ErrorIs(t, err, ErrInvalidArchive)
	assertNoRows(t, db)
}
