// spreadsheet.go - Catalog rows from .xlsx and .csv files

package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetSource reads the first sheet of an .xlsx workbook, or a .csv
// file. The first row is the header.
type SpreadsheetSource struct {
	path string
}

// NewSpreadsheetSource creates a source for path.
func NewSpreadsheetSource(path string) *SpreadsheetSource {
	return &SpreadsheetSource{path: path}
}

// Describe returns the file path.
func (s *SpreadsheetSource) Describe() string {
	return s.path
}

// Rows reads the whole file.
func (s *SpreadsheetSource) Rows(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(s.path), ".csv") {
		return s.readCSV()
	}
	return s.readXLSX()
}

func (s *SpreadsheetSource) readXLSX() (*Table, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return splitHeader(rows), nil
}

func (s *SpreadsheetSource) readCSV() (*Table, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		// Excel writes a UTF-8 BOM before the first header
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return splitHeader(rows), nil
}

func splitHeader(rows [][]string) *Table {
	if len(rows) == 0 {
		return &Table{}
	}
	return &Table{Headers: rows[0], Rows: rows[1:]}
}
