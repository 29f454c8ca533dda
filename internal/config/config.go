// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valpere/FormScrapexter/internal/browser"
	"github.com/valpere/FormScrapexter/internal/crawl"
	"github.com/valpere/FormScrapexter/internal/output"
	"github.com/valpere/FormScrapexter/internal/scraper"
	"github.com/valpere/FormScrapexter/internal/utils"
)

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, utils.NewError(utils.ErrCodeMissingConfig, "configuration filename cannot be empty").Build()
	}

	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, utils.NewError(utils.ErrCodeMissingConfig, "configuration file not found").
			WithContext("path", filename).
			Build()
	}
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeFilePermission, "failed to read configuration file").
			WithCause(err).
			WithContext("path", filename).
			Build()
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Keys missing from
// data keep their default values.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, utils.NewError(utils.ErrCodeMissingConfig, "configuration data cannot be empty").Build()
	}

	expanded := expandEnvironmentVariables(string(data))

	config := Default()
	config.Output.File = ""
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, utils.NewError(utils.ErrCodeConfigSyntax, "failed to parse YAML configuration").
			WithCause(err).
			Build()
	}

	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}
	return LoadFromBytes(data)
}

// SaveToFile writes configuration as YAML
func SaveToFile(config *Config, filename string) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %v", err)
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %v", err)
	}
	return nil
}

// expandEnvironmentVariables substitutes ${VAR} and $VAR references
func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// applyDefaults replaces zero values that have no meaning
func applyDefaults(config *Config) {
	if config.URLsFile == "" {
		config.URLsFile = DefaultURLsFile
	}

	defaults := output.DefaultConfig()
	if config.Output.Format == "" {
		config.Output.Format = defaults.Format
	}
	if config.Output.File == "" && (config.Output.Format.IsFile() || config.Output.Format == output.FormatSQLite && config.Output.DSN == "") {
		config.Output.File = strings.TrimSuffix(defaults.File, ".csv") + config.Output.Format.GetFileExtension()
	}
	if config.Output.Table == "" {
		config.Output.Table = defaults.Table
	}
	if config.Output.Collection == "" {
		config.Output.Collection = defaults.Collection
	}

	crawlDefaults := crawl.DefaultConfig()
	if config.Crawl.BatchSize == 0 {
		config.Crawl.BatchSize = crawlDefaults.BatchSize
	}
	if config.Crawl.PageTimeout == 0 {
		config.Crawl.PageTimeout = crawlDefaults.PageTimeout
	}

	if config.Browser.Driver == "" {
		config.Browser.Driver = "chromedp"
	}
	if config.Browser.ViewportWidth == 0 {
		config.Browser.ViewportWidth = 1920
	}
	if config.Browser.ViewportHeight == 0 {
		config.Browser.ViewportHeight = 1080
	}
	if config.Browser.UserAgentMode == "" {
		config.Browser.UserAgentMode = browser.UserAgentRotate
	}
	if config.Browser.SnapshotTimeout == 0 {
		config.Browser.SnapshotTimeout = browser.DefaultSnapshotTimeout
	}

	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.Format == "" {
		config.Logging.Format = DefaultLogFormat
	}
	if config.Monitoring.ListenAddress == "" {
		config.Monitoring.ListenAddress = DefaultListenAddress
	}
}

// Checkpoint returns the checkpoint path: the configured one, or the
// output location with the checkpoint suffix
func (c *Config) Checkpoint() string {
	if c.Crawl.Checkpoint != "" {
		return c.Crawl.Checkpoint
	}
	base := c.Output.File
	if base == "" {
		base = string(c.Output.Format) + "_" + c.Output.Table
	}
	return base + crawl.CheckpointSuffix
}

// PatternTable builds the generic pattern table with the configured
// extra patterns
func (c *Config) PatternTable() (*scraper.PatternTable, error) {
	if len(c.Patterns) == 0 {
		return scraper.DefaultPatterns(), nil
	}
	extra := make(map[scraper.Field][]string, len(c.Patterns))
	for name, patterns := range c.Patterns {
		f, ok := scraper.ParseField(name)
		if !ok {
			return nil, utils.NewError(utils.ErrCodeInvalidConfig, fmt.Sprintf("unknown field in patterns: %s", name)).
				WithContext("field", name).
				Build()
		}
		extra[f] = append(extra[f], patterns...)
	}
	return scraper.NewPatternTable(extra), nil
}

// LoggerOptions converts the logging section for utils.NewLoggerWithOptions
func (c *Config) LoggerOptions() utils.LoggerOptions {
	return utils.LoggerOptions{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		File:   c.Logging.File,
	}
}
