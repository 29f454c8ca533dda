// internal/output/csv.go
package output

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/valpere/FormScrapexter/internal/scraper"
	"github.com/valpere/FormScrapexter/internal/utils"
)

// CSVStore rewrites the result file on every Save
type CSVStore struct {
	path  string
	prior []Row
}

// NewCSVStore creates a CSV store. With merge set, rows already present in
// an existing file at path are kept unless a new result replaces them.
func NewCSVStore(path string, merge bool) (*CSVStore, error) {
	if path == "" {
		return nil, fmt.Errorf("CSV file path is required")
	}
	s := &CSVStore{path: path}
	if !merge {
		return s, nil
	}

	rows, err := ReadCSV(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	s.prior = rows
	return s, nil
}

// Save writes prior rows and results to the file
func (s *CSVStore) Save(ctx context.Context, results []*scraper.PageResult) error {
	rows := Merge(s.prior, results)
	return writeFileAtomic(s.path, func(w io.Writer) error {
		return WriteCSV(w, rows)
	})
}

// Close implements Store
func (s *CSVStore) Close() error {
	return nil
}

// WriteCSV writes rows with a header sized to the widest additional block
func WriteCSV(w io.Writer, rows []Row) error {
	columns := Columns(MaxAdditional(rows))
	writer := csv.NewWriter(w)

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row.Values(columns)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadCSV loads a result file written by WriteCSV
func ReadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadCSVFrom(f)
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeParsingError, "failed to read result CSV").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return rows, nil
}

// ReadCSVFrom reads rows keyed by the header line
func ReadCSVFrom(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
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

// writeFileAtomic writes through a temporary file in the target directory
// and renames it over path
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return utils.WrapError(err, utils.ErrCodeFilePermission, "failed to create output directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return utils.WrapError(err, utils.ErrCodeFilePermission, "failed to create output file")
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return utils.WrapError(err, utils.ErrCodeOutputFailed, "failed to write output file")
	}
	if err := tmp.Close(); err != nil {
		return utils.WrapError(err, utils.ErrCodeOutputFailed, "failed to write output file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return utils.WrapError(err, utils.ErrCodeOutputFailed, "failed to replace output file")
	}
	return nil
}
