// internal/output/json.go
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/valpere/FormScrapexter/internal/scraper"
)

// FieldRecord is a canonical field in the external record
type FieldRecord struct {
	Type     string `json:"type"`
	XPath    string `json:"xpath"`
	Required bool   `json:"required"`
}

// AdditionalRecord is a required additional field in the external record
type AdditionalRecord struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	XPath    string `json:"xpath"`
	Required bool   `json:"required"`
}

// Record is the external per-URL record consumed by form automation
type Record struct {
	URLID            int                    `json:"url_id"`
	URL              string                 `json:"url"`
	Domain           string                 `json:"domain"`
	HasCaptcha       bool                   `json:"has_captcha"`
	Error            string                 `json:"error"`
	Fields           map[string]FieldRecord `json:"fields"`
	AdditionalFields []AdditionalRecord     `json:"additional_fields"`
}

// FieldRequired is the required flag the external record carries for a
// canonical field. Privacy and ConfirmEmail are treated as optional.
func FieldRequired(f scraper.Field) bool {
	return f != scraper.Privacy && f != scraper.ConfirmEmail
}

// BuildRecords converts rows to external records numbered from 1 in row
// order. Only found fields and required additional fields are kept.
func BuildRecords(rows []Row) []Record {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec := Record{
			URLID:            i + 1,
			URL:              row[ColumnURL],
			Domain:           row[ColumnDomain],
			HasCaptcha:       strings.EqualFold(row[ColumnHasCaptcha], "true"),
			Error:            row[ColumnError],
			Fields:           make(map[string]FieldRecord),
			AdditionalFields: []AdditionalRecord{},
		}
		if rec.Domain == "" {
			rec.Domain = scraper.Domain(rec.URL)
		}

		for _, f := range scraper.Fields() {
			xpath := row[xpathColumn(f)]
			if xpath == "" {
				continue
			}
			rec.Fields[f.String()] = FieldRecord{
				Type:     row[typeColumn(f)],
				XPath:    xpath,
				Required: FieldRequired(f),
			}
		}

		for n := 1; n <= row.AdditionalCount(); n++ {
			if !parseBool(row[AdditionalColumn(n, "Required")]) {
				continue
			}
			rec.AdditionalFields = append(rec.AdditionalFields, AdditionalRecord{
				Name:     row[AdditionalColumn(n, "Name")],
				Type:     row[AdditionalColumn(n, "Type")],
				XPath:    row[AdditionalColumn(n, "XPath")],
				Required: true,
			})
		}
		records = append(records, rec)
	}
	return records
}

// WriteJSON writes records as an indented JSON array
func WriteJSON(w io.Writer, records []Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}

// JSONStore writes the external records of the current run directly
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON store
func NewJSONStore(path string) (*JSONStore, error) {
	if path == "" {
		return nil, fmt.Errorf("JSON file path is required")
	}
	return &JSONStore{path: path}, nil
}

// Save rewrites the JSON file
func (s *JSONStore) Save(ctx context.Context, results []*scraper.PageResult) error {
	records := BuildRecords(FlattenAll(results))
	return writeFileAtomic(s.path, func(w io.Writer) error {
		return WriteJSON(w, records)
	})
}

// Close implements Store
func (s *JSONStore) Close() error {
	return nil
}

// Convert reads a result CSV and writes the external JSON records. It
// returns the number of records written.
func Convert(csvPath, jsonPath string) (int, error) {
	rows, err := ReadCSV(csvPath)
	if err != nil {
		return 0, err
	}
	records := BuildRecords(rows)
	if err := writeFileAtomic(jsonPath, func(w io.Writer) error {
		return WriteJSON(w, records)
	}); err != nil {
		return 0, err
	}
	return len(records), nil
}
