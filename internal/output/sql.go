// internal/output/sql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/valpere/FormScrapexter/internal/scraper"
	"github.com/valpere/FormScrapexter/internal/utils"
)

// SQL dialects
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// SQLStore writes results to three tables: pages, canonical fields and
// additional fields. A page saved again replaces its earlier rows.
type SQLStore struct {
	db      *sql.DB
	dialect string
	pages   string
	fields  string
	extra   string
}

// NewSQLStore opens the database for format and creates the tables
func NewSQLStore(ctx context.Context, format OutputFormat, dsn, table string) (*SQLStore, error) {
	if table == "" {
		table = DefaultConfig().Table
	}
	if err := ValidateSQLIdentifier(table); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "invalid output table name")
	}

	dialect, source, err := dataSource(format, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect, source)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to connect to database")
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1) // SQLite works best with single writer
	}

	s := &SQLStore{
		db:      db,
		dialect: dialect,
		pages:   table,
		fields:  table + "_fields",
		extra:   table + "_additional",
	}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to create tables")
	}
	return s, nil
}

func dataSource(format OutputFormat, dsn string) (dialect, source string, err error) {
	switch format {
	case FormatSQLite:
		if dsn == "" {
			return "", "", fmt.Errorf("SQLite database path is required")
		}
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", "", fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return DialectSQLite, dsn + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", nil
	case FormatPostgreSQL:
		if dsn == "" {
			return "", "", fmt.Errorf("PostgreSQL connection string is required")
		}
		return DialectPostgres, dsn, nil
	case FormatMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", "", utils.WrapError(err, utils.ErrCodeInvalidConfig, "invalid MySQL DSN")
		}
		cfg.ParseTime = true
		return DialectMySQL, cfg.FormatDSN(), nil
	}
	return "", "", fmt.Errorf("unsupported SQL format: %s", format)
}

func (s *SQLStore) quote(identifier string) string {
	switch s.dialect {
	case DialectPostgres:
		return pq.QuoteIdentifier(identifier)
	case DialectMySQL:
		return "`" + identifier + "`"
	default:
		return `"` + identifier + `"`
	}
}

// bind rewrites ? placeholders for dialects that number them
func (s *SQLStore) bind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) createTables(ctx context.Context) error {
	key := "TEXT"
	stamp := "TIMESTAMP"
	if s.dialect == DialectMySQL {
		key = "VARCHAR(700)"
		stamp = "DATETIME"
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			url %s PRIMARY KEY,
			domain TEXT NOT NULL,
			has_captcha BOOLEAN NOT NULL,
			has_additional_fields BOOLEAN NOT NULL,
			error TEXT NOT NULL,
			scraped_at %s NOT NULL
		)`, s.quote(s.pages), key, stamp),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			url %s NOT NULL,
			field VARCHAR(32) NOT NULL,
			element_type TEXT NOT NULL,
			xpath TEXT NOT NULL,
			required BOOLEAN NOT NULL,
			PRIMARY KEY (url, field)
		)`, s.quote(s.fields), key),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			url %s NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			element_type TEXT NOT NULL,
			xpath TEXT NOT NULL,
			required BOOLEAN NOT NULL,
			PRIMARY KEY (url, position)
		)`, s.quote(s.extra), key),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save replaces the stored rows of every result in one transaction
func (s *SQLStore) Save(ctx context.Context, results []*scraper.PageResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to begin transaction")
	}

	now := time.Now().UTC()
	for _, r := range results {
		if err := s.savePage(ctx, tx, r, now); err != nil {
			tx.Rollback()
			return utils.NewError(utils.ErrCodeDatabaseError, "failed to save page").
				WithCause(err).
				WithContext("url", r.URL).
				Build()
		}
	}

	if err := tx.Commit(); err != nil {
		return utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to commit results")
	}
	return nil
}

func (s *SQLStore) savePage(ctx context.Context, tx *sql.Tx, r *scraper.PageResult, now time.Time) error {
	for _, table := range []string{s.extra, s.fields, s.pages} {
		query := s.bind(fmt.Sprintf("DELETE FROM %s WHERE url = ?", s.quote(table)))
		if _, err := tx.ExecContext(ctx, query, r.URL); err != nil {
			return err
		}
	}

	insertPage := s.bind(fmt.Sprintf(
		"INSERT INTO %s (url, domain, has_captcha, has_additional_fields, error, scraped_at) VALUES (?, ?, ?, ?, ?, ?)",
		s.quote(s.pages)))
	if _, err := tx.ExecContext(ctx, insertPage, r.URL, r.Domain, r.HasCaptcha, r.HasAdditionalFields(), r.Error, now); err != nil {
		return err
	}

	insertField := s.bind(fmt.Sprintf(
		"INSERT INTO %s (url, field, element_type, xpath, required) VALUES (?, ?, ?, ?, ?)",
		s.quote(s.fields)))
	for _, f := range scraper.Fields() {
		m := r.Fields[f]
		if !m.Found {
			continue
		}
		if _, err := tx.ExecContext(ctx, insertField, r.URL, f.String(), m.Type, m.XPath, m.Required); err != nil {
			return err
		}
	}

	insertExtra := s.bind(fmt.Sprintf(
		"INSERT INTO %s (url, position, name, element_type, xpath, required) VALUES (?, ?, ?, ?, ?, ?)",
		s.quote(s.extra)))
	for i, a := range r.AdditionalFields {
		if _, err := tx.ExecContext(ctx, insertExtra, r.URL, i+1, a.Name, a.Type, a.XPath, a.Required); err != nil {
			return err
		}
	}
	return nil
}

// Ping verifies the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
