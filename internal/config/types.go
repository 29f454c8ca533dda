// internal/config/types.go
package config

import (
	"github.com/valpere/FormScrapexter/internal/browser"
	"github.com/valpere/FormScrapexter/internal/crawl"
	"github.com/valpere/FormScrapexter/internal/output"
)

// Config is the complete run configuration
type Config struct {
	// URLsFile lists the pages to crawl, one URL per line
	URLsFile   string                `yaml:"urls_file" json:"urls_file"`
	Output     output.Config         `yaml:"output" json:"output"`
	Crawl      crawl.Config          `yaml:"crawl" json:"crawl"`
	Browser    browser.BrowserConfig `yaml:"browser" json:"browser"`
	Logging    LoggingConfig         `yaml:"logging" json:"logging"`
	Monitoring MonitoringConfig      `yaml:"monitoring" json:"monitoring"`
	// Patterns extends the generic pattern table, keyed by canonical
	// field name
	Patterns map[string][]string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// MonitoringConfig configures the metrics and status server
type MonitoringConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	ListenAddress string `yaml:"listen_address" json:"listen_address"`
}

// Default values
const (
	DefaultURLsFile      = "urls.txt"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultListenAddress = ":9090"
)

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		URLsFile: DefaultURLsFile,
		Output:   output.DefaultConfig(),
		Crawl:    crawl.DefaultConfig(),
		Browser:  *browser.DefaultBrowserConfig(),
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Monitoring: MonitoringConfig{
			ListenAddress: DefaultListenAddress,
		},
	}
}
