package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"strompris/internal/validation"
)

// RawSheet is one worksheet exactly as stored, before any header handling.
// It is discarded once normalized.
type RawSheet struct {
	Name string
	Rows [][]string
}

// WorkbookReader loads the region sheets of a price workbook
type WorkbookReader struct {
	logger    *slog.Logger
	validator *validation.FileValidator
}

// NewWorkbookReader creates a reader that logs through logger
func NewWorkbookReader(logger *slog.Logger) *WorkbookReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookReader{
		logger:    logger,
		validator: validation.NewFileValidator(logger),
	}
}

// ReadFile opens the workbook at path and returns its sheets in workbook order.
// Failures are classified as ErrSourceFileMissing or ErrSourceFileUnreadable.
func (r *WorkbookReader) ReadFile(ctx context.Context, path string) ([]RawSheet, error) {
	if err := r.validator.ValidateWorkbook(path); err != nil {
		if errors.Is(err, validation.ErrFileMissing) {
			return nil, &SheetError{Reason: err.Error(), Err: ErrSourceFileMissing}
		}
		return nil, &SheetError{Reason: err.Error(), Err: ErrSourceFileUnreadable}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &SheetError{Reason: fmt.Sprintf("failed to open workbook: %v", err), Err: ErrSourceFileUnreadable}
	}
	defer f.Close()

	return r.readSheets(ctx, f)
}

func (r *WorkbookReader) readSheets(ctx context.Context, f *excelize.File) ([]RawSheet, error) {
	names := f.GetSheetList()
	sheets := make([]RawSheet, 0, len(names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Raw values keep number formats like "# ##0,00" from leaking into parsing.
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &SheetError{Sheet: name, Reason: fmt.Sprintf("failed to read rows: %v", err), Err: ErrSourceFileUnreadable}
		}

		r.logger.DebugContext(ctx, "sheet read",
			slog.String("sheet", name),
			slog.Int("rows", len(rows)))

		sheets = append(sheets, RawSheet{Name: name, Rows: rows})
	}

	return sheets, nil
}
