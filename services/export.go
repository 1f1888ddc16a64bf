package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/repository"
	"pdf-chat-backend/models"
)

const (
	ExportFormatExcel = "xlsx"
	ExportFormatJSON  = "json"

	excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// HistoryProvider returns the conversation of one document.
type HistoryProvider interface {
	History(ctx context.Context, documentID string) ([]models.Turn, error)
}

// ConversationExport is the exported conversation of one document.
type ConversationExport struct {
	DocumentID   string        `json:"document_id"`
	DocumentName string        `json:"document_name"`
	ExportDate   time.Time     `json:"export_date"`
	TotalTurns   int           `json:"total_turns"`
	Turns        []models.Turn `json:"turns"`
}

// ExportFile is a rendered export ready to be sent as an attachment.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type ExportService struct {
	history   HistoryProvider
	documents repository.DocumentRepository
}

func NewExportService(history HistoryProvider, documents repository.DocumentRepository) *ExportService {
	return &ExportService{history: history, documents: documents}
}

// ExportConversation renders the conversation of documentID as xlsx (default) or json.
func (es *ExportService) ExportConversation(ctx context.Context, documentID, format string) (*ExportFile, error) {
	if format == "" {
		format = ExportFormatExcel
	}
	if format != ExportFormatExcel && format != ExportFormatJSON {
		return nil, fmt.Errorf("%w: unsupported export format %q", ErrInvalidInput, format)
	}

	doc, err := es.documents.Get(ctx, documentID)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, documentID)
	}
	if err != nil {
		return nil, err
	}

	turns, err := es.history.History(ctx, documentID)
	if err != nil {
		return nil, err
	}

	data := &ConversationExport{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		ExportDate:   time.Now().UTC(),
		TotalTurns:   len(turns),
		Turns:        turns,
	}

	if format == ExportFormatJSON {
		return es.exportJSON(data)
	}
	return es.exportExcel(data)
}

func (es *ExportService) exportJSON(data *ConversationExport) (*ExportFile, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return &ExportFile{
		Name:        fmt.Sprintf("conversation_%s.json", data.DocumentID),
		ContentType: "application/json",
		Data:        b,
	}, nil
}

func (es *ExportService) exportExcel(data *ConversationExport) (*ExportFile, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("error closing Excel file", "error", err)
		}
	}()

	sheetName := "Conversation"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{"#", "Role", "Message", "Timestamp"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	for i, turn := range data.Turns {
		row := i + 2
		values := []interface{}{i + 1, string(turn.Role), turn.Content, turn.CreatedAt.Format("2006-01-02 15:04:05")}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 6)
	f.SetColWidth(sheetName, "B", "B", 12)
	f.SetColWidth(sheetName, "C", "C", 80)
	f.SetColWidth(sheetName, "D", "D", 20)

	summarySheetName := "Summary"
	if _, err := f.NewSheet(summarySheetName); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Document ID", data.DocumentID},
		{"Document Name", data.DocumentName},
		{"Export Date", data.ExportDate.Format("2006-01-02 15:04:05")},
		{"Total Turns", data.TotalTurns},
	}
	for i, row := range summary {
		f.SetCellValue(summarySheetName, fmt.Sprintf("A%d", i+1), row[0])
		f.SetCellValue(summarySheetName, fmt.Sprintf("B%d", i+1), row[1])
	}
	f.SetColWidth(summarySheetName, "A", "B", 25)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return &ExportFile{
		Name:        fmt.Sprintf("conversation_%s.xlsx", data.DocumentID),
		ContentType: excelContentType,
		Data:        buf.Bytes(),
	}, nil
}
