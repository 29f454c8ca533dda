// internal/output/manager.go
package output

import (
	"context"
	"fmt"

	"github.com/valpere/FormScrapexter/internal/utils"
)

// NewStore creates the store for cfg.Format. Merge keeps rows of an
// existing result file for formats that rewrite the whole file on Save.
func NewStore(ctx context.Context, cfg Config, merge bool) (Store, error) {
	if cfg.Format == "" {
		cfg.Format = FormatCSV
	}
	if !cfg.Format.IsValid() {
		return nil, utils.NewError(utils.ErrCodeInvalidConfig, fmt.Sprintf("unsupported output format: %s", cfg.Format)).
			WithContext("format", string(cfg.Format)).
			Build()
	}

	switch cfg.Format {
	case FormatCSV:
		return NewCSVStore(cfg.File, merge)
	case FormatJSON:
		return NewJSONStore(cfg.File)
	case FormatExcel:
		return NewExcelStore(cfg.File, merge)
	case FormatSQLite:
		path := cfg.DSN
		if path == "" {
			path = cfg.File
		}
		return NewSQLStore(ctx, cfg.Format, path, cfg.Table)
	case FormatPostgreSQL, FormatMySQL:
		return NewSQLStore(ctx, cfg.Format, cfg.DSN, cfg.Table)
	case FormatMongoDB:
		return NewMongoStore(ctx, cfg.DSN, cfg.Database, cfg.Collection)
	}
	return nil, fmt.Errorf("unsupported output format: %s", cfg.Format)
}

// Validate checks that cfg names everything its format needs
func (cfg Config) Validate() error {
	if cfg.Format == "" {
		cfg.Format = FormatCSV
	}
	if !cfg.Format.IsValid() {
		return fmt.Errorf("unsupported output format: %s (valid: %v)", cfg.Format, ValidOutputFormats())
	}
	switch cfg.Format {
	case FormatCSV, FormatJSON, FormatExcel:
		if cfg.File == "" {
			return fmt.Errorf("output file is required for %s format", cfg.Format)
		}
	case FormatSQLite:
		if cfg.File == "" && cfg.DSN == "" {
			return fmt.Errorf("database path is required for sqlite format")
		}
	case FormatPostgreSQL, FormatMySQL, FormatMongoDB:
		if cfg.DSN == "" {
			return fmt.Errorf("dsn is required for %s format", cfg.Format)
		}
	}
	if cfg.Format == FormatMongoDB && cfg.Database == "" {
		return fmt.Errorf("database is required for mongodb format")
	}
	if cfg.Table != "" {
		if err := ValidateSQLIdentifier(cfg.Table); err != nil {
			return err
		}
	}
	return nil
}
