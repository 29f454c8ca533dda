// internal/output/table_test.go
package output

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/FormScrapexter/internal/scraper"
)

func TestColumns(t *testing.T) {
	base := BaseColumns()
	if base[0] != ColumnURL || base[1] != ColumnDomain {
		t.Errorf("Expected url and domain first, got %v", base[:2])
	}
	if base[2] != "TitleType" || base[3] != "TitleXPath" {
		t.Errorf("Expected Title columns after domain, got %v", base[2:4])
	}
	if base[len(base)-1] != ColumnError {
		t.Errorf("Expected error column last, got %s", base[len(base)-1])
	}

	cols := Columns(2)
	if len(cols) != len(base)+8 {
		t.Errorf("Expected %d columns, got %d", len(base)+8, len(cols))
	}
	if cols[len(cols)-1] != "AdditionalField2Required" {
		t.Errorf("Expected AdditionalField2Required last, got %s", cols[len(cols)-1])
	}
}

func TestFlatten(t *testing.T) {
	row := Flatten(sampleResult("https://a.example/signup"))

	if row[ColumnDomain] != "a.example" {
		t.Errorf("Expected domain a.example, got %s", row[ColumnDomain])
	}
	if row["EmailXPath"] != "/html/body/form/input[1]" || row["EmailType"] != "input" {
		t.Errorf("Unexpected Email columns: %s %s", row["EmailType"], row["EmailXPath"])
	}
	if row["PhoneXPath"] != "" {
		t.Errorf("Expected empty Phone column, got %s", row["PhoneXPath"])
	}
	if row[ColumnHasAdditional] != "True" || row[ColumnHasCaptcha] != "False" {
		t.Errorf("Unexpected flags: %s %s", row[ColumnHasAdditional], row[ColumnHasCaptcha])
	}
	if row.AdditionalCount() != 2 {
		t.Errorf("Expected 2 additional fields, got %d", row.AdditionalCount())
	}
	if row["AdditionalField2Required"] != "False" {
		t.Errorf("Expected second additional field optional, got %s", row["AdditionalField2Required"])
	}
}

func TestMergeReplacesByURL(t *testing.T) {
	prior := []Row{
		{ColumnURL: "https://a.example/", ColumnError: "Timeout loading page"},
		{ColumnURL: "https://b.example/"},
	}
	fresh := scraper.NewPageResult("https://a.example/")

	rows := Merge(prior, []*scraper.PageResult{fresh})
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0][ColumnURL] != "https://b.example/" {
		t.Errorf("Expected untouched prior row first, got %s", rows[0][ColumnURL])
	}
	if rows[1][ColumnError] != "" {
		t.Errorf("Expected replaced row without error, got %q", rows[1][ColumnError])
	}
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rows := FlattenAll([]*scraper.PageResult{
		sampleResult("https://a.example/"),
		scraper.NewPageResult("https://b.example/"),
	})
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	if !strings.HasSuffix(header, "AdditionalField2Required") {
		t.Errorf("Expected header sized to two additional fields, got %s", header)
	}

	read, err := ReadCSVFrom(&buf)
	if err != nil {
		t.Fatalf("ReadCSVFrom failed: %v", err)
	}
	if len(read) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(read))
	}
	if read[0]["AdditionalField1Name"] != "Referral code" {
		t.Errorf("Expected Referral code, got %s", read[0]["AdditionalField1Name"])
	}
	if read[1].AdditionalCount() != 0 {
		t.Errorf("Expected no additional fields on second row, got %d", read[1].AdditionalCount())
	}
}

func TestCSVStoreMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	first, err := NewCSVStore(path, false)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := first.Save(context.Background(), []*scraper.PageResult{sampleResult("https://a.example/")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	resumed, err := NewCSVStore(path, true)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	if err := resumed.Save(context.Background(), []*scraper.PageResult{scraper.NewPageResult("https://b.example/")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rows, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows after resume, got %d", len(rows))
	}
	if rows[0][ColumnURL] != "https://a.example/" || rows[1][ColumnURL] != "https://b.example/" {
		t.Errorf("Unexpected row order: %s, %s", rows[0][ColumnURL], rows[1][ColumnURL])
	}
}

func TestCSVStoreMergeMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")
	if _, err := NewCSVStore(path, true); err != nil {
		t.Errorf("Expected missing file to be ignored, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no file to be created before Save")
	}
}
