// internal/output/excel.go
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/FormScrapexter/internal/scraper"
	"github.com/valpere/FormScrapexter/internal/utils"
)

const (
	// DefaultExcelSheet is the worksheet holding the results
	DefaultExcelSheet = "Forms"
	// DefaultExcelColumnWidth applies to every column
	DefaultExcelColumnWidth = 22.0
)

// ExcelStore writes the tabular layout to an .xlsx workbook
type ExcelStore struct {
	path  string
	sheet string
	prior []Row
}

// NewExcelStore creates an Excel store. Merge behaves as for NewCSVStore.
func NewExcelStore(path string, merge bool) (*ExcelStore, error) {
	if path == "" {
		return nil, fmt.Errorf("Excel file path is required")
	}
	s := &ExcelStore{path: path, sheet: DefaultExcelSheet}
	if !merge {
		return s, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}

	rows, err := ReadExcel(path)
	if err != nil {
		return nil, err
	}
	s.prior = rows
	return s, nil
}

// Save rebuilds the workbook from prior rows and results
func (s *ExcelStore) Save(ctx context.Context, results []*scraper.PageResult) error {
	file, err := s.build(Merge(s.prior, results))
	if err != nil {
		return err
	}
	defer file.Close()

	return writeFileAtomic(s.path, func(w io.Writer) error {
		return file.Write(w)
	})
}

// Close implements Store
func (s *ExcelStore) Close() error {
	return nil
}

func (s *ExcelStore) build(rows []Row) (*excelize.File, error) {
	columns := Columns(MaxAdditional(rows))

	file := excelize.NewFile()
	if defaultSheet := file.GetSheetName(0); defaultSheet != s.sheet {
		if err := file.SetSheetName(defaultSheet, s.sheet); err != nil {
			file.Close()
			return nil, err
		}
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := file.SetSheetRow(s.sheet, "A1", &header); err != nil {
		file.Close()
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			file.Close()
			return nil, err
		}
		values := row.Values(columns)
		record := make([]interface{}, len(values))
		for j, v := range values {
			record[j] = v
		}
		if err := file.SetSheetRow(s.sheet, cell, &record); err != nil {
			file.Close()
			return nil, err
		}
	}

	if err := s.format(file, len(columns), len(rows)); err != nil {
		file.Close()
		return nil, err
	}
	return file, nil
}

func (s *ExcelStore) format(file *excelize.File, cols, rows int) error {
	lastCol, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}

	style, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}
	if err := file.SetCellStyle(s.sheet, "A1", lastCol+"1", style); err != nil {
		return err
	}
	if err := file.SetColWidth(s.sheet, "A", lastCol, DefaultExcelColumnWidth); err != nil {
		return err
	}
	if rows > 0 {
		if err := file.AutoFilter(s.sheet, fmt.Sprintf("A1:%s%d", lastCol, rows+1), nil); err != nil {
			return err
		}
	}
	return file.SetPanes(s.sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	})
}

// ReadExcel loads the rows of a workbook written by ExcelStore
func ReadExcel(path string) ([]Row, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeParsingError, "failed to open result workbook").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	defer file.Close()

	records, err := file.GetRows(DefaultExcelSheet)
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeParsingError, "failed to read result workbook").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
