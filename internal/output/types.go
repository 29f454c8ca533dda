// internal/output/types.go
package output

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/valpere/FormScrapexter/internal/scraper"
)

// OutputFormat represents supported output formats
type OutputFormat string

const (
	FormatCSV        OutputFormat = "csv"
	FormatJSON       OutputFormat = "json"
	FormatExcel      OutputFormat = "excel"
	FormatSQLite     OutputFormat = "sqlite"
	FormatPostgreSQL OutputFormat = "postgresql"
	FormatMySQL      OutputFormat = "mysql"
	FormatMongoDB    OutputFormat = "mongodb"
)

// ValidOutputFormats returns all valid output format values
func ValidOutputFormats() []OutputFormat {
	return []OutputFormat{FormatCSV, FormatJSON, FormatExcel, FormatSQLite, FormatPostgreSQL, FormatMySQL, FormatMongoDB}
}

// IsValid checks if the output format is valid
func (of OutputFormat) IsValid() bool {
	for _, valid := range ValidOutputFormats() {
		if of == valid {
			return true
		}
	}
	return false
}

// IsFile reports whether the format writes a local file
func (of OutputFormat) IsFile() bool {
	switch of {
	case FormatCSV, FormatJSON, FormatExcel:
		return true
	}
	return false
}

// GetFileExtension returns the appropriate file extension for the format
func (of OutputFormat) GetFileExtension() string {
	switch of {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	case FormatExcel:
		return ".xlsx"
	case FormatSQLite:
		return ".db"
	default:
		return ""
	}
}

// Config defines where results are stored
type Config struct {
	Format OutputFormat `yaml:"format" json:"format"`
	// File is the output path for file formats and the database path for sqlite
	File string `yaml:"file" json:"file"`
	// Table is the page table name for SQL formats
	Table string `yaml:"table,omitempty" json:"table,omitempty"`
	// DSN is the connection string for postgresql, mysql and mongodb
	DSN        string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Database   string `yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`
}

// DefaultConfig returns the default output configuration
func DefaultConfig() Config {
	return Config{
		Format:     FormatCSV,
		File:       "form_fields_new.csv",
		Table:      "form_pages",
		Collection: "form_pages",
	}
}

// Store persists page results. Save receives every result of the run so
// far; stores replace earlier records for the same URL.
type Store interface {
	Save(ctx context.Context, results []*scraper.PageResult) error
	Close() error
}

// SQL identifier validation
var (
	sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	reservedWords = map[string]bool{
		"ALL": true, "AND": true, "AS": true, "ASC": true, "BY": true, "CASE": true, "CHECK": true,
		"COLUMN": true, "CONSTRAINT": true, "CREATE": true, "DEFAULT": true, "DELETE": true, "DESC": true,
		"DISTINCT": true, "DROP": true, "ELSE": true, "END": true, "EXISTS": true, "FOR": true,
		"FOREIGN": true, "FROM": true, "GROUP": true, "HAVING": true, "IN": true, "INDEX": true,
		"INSERT": true, "INTO": true, "IS": true, "JOIN": true, "KEY": true, "LIMIT": true, "NOT": true,
		"NULL": true, "ON": true, "OR": true, "ORDER": true, "PRIMARY": true, "REFERENCES": true,
		"SELECT": true, "SET": true, "TABLE": true, "THEN": true, "TO": true, "UNION": true,
		"UNIQUE": true, "UPDATE": true, "USER": true, "VALUES": true, "WHEN": true, "WHERE": true, "WITH": true,
	}
)

// MaxIdentifierLength leaves room for the child table suffixes within the
// PostgreSQL and MySQL limits
const MaxIdentifierLength = 48

// ValidateSQLIdentifier validates that a string is a safe SQL table name
func ValidateSQLIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if len(identifier) > MaxIdentifierLength {
		return fmt.Errorf("identifier too long (max %d characters): %s", MaxIdentifierLength, identifier)
	}

	if !sqlIdentifierRegex.MatchString(identifier) {
		return fmt.Errorf("invalid identifier format: %s", identifier)
	}

	if reservedWords[strings.ToUpper(identifier)] {
		return fmt.Errorf("identifier is a reserved SQL keyword: %s", identifier)
	}

	return nil
}
