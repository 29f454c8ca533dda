// internal/config/validation.go
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/valpere/FormScrapexter/internal/browser"
	"github.com/valpere/FormScrapexter/internal/scraper"
	"github.com/valpere/FormScrapexter/internal/utils"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

func (r *ValidationResult) fail(field, value, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks the configuration and returns an INVALID_CONFIG error
// listing every problem
func (c *Config) Validate() error {
	result := c.ValidateWithDetails()
	if result.Valid {
		return nil
	}
	return utils.NewError(utils.ErrCodeInvalidConfig, formatValidationError(result)).
		WithContext("errors", len(result.Errors)).
		Build()
}

// ValidateWithDetails provides detailed validation results
func (c *Config) ValidateWithDetails() *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]ValidationError, 0),
		Warnings: make([]string, 0),
	}

	c.validateOutput(result)
	c.validateCrawl(result)
	c.validateBrowser(result)
	c.validateLogging(result)
	c.validateMonitoring(result)
	c.validatePatterns(result)

	return result
}

func (c *Config) validateOutput(result *ValidationResult) {
	if err := c.Output.Validate(); err != nil {
		result.fail("output", string(c.Output.Format), err.Error())
	}
}

func (c *Config) validateCrawl(result *ValidationResult) {
	if c.Crawl.BatchSize < 1 {
		result.fail("crawl.batch_size", fmt.Sprint(c.Crawl.BatchSize), "Batch size must be at least 1")
	}
	if c.Crawl.MaxRetries < 0 {
		result.fail("crawl.max_retries", fmt.Sprint(c.Crawl.MaxRetries), "Max retries cannot be negative")
	}
	if c.Crawl.PageTimeout <= 0 {
		result.fail("crawl.page_timeout", c.Crawl.PageTimeout.String(), "Page timeout must be positive")
	}
	if c.Crawl.Delay < 0 {
		result.fail("crawl.delay", c.Crawl.Delay.String(), "Delay cannot be negative")
	}
	if c.Crawl.Delay == 0 {
		result.warn("crawl.delay is 0: navigations are not rate limited")
	}
}

func (c *Config) validateBrowser(result *ValidationResult) {
	switch c.Browser.Driver {
	case browser.DriverChromedp, browser.DriverRod, browser.DriverStatic:
	default:
		result.fail("browser.driver", c.Browser.Driver,
			fmt.Sprintf("Unsupported driver (valid: %s, %s, %s)", browser.DriverChromedp, browser.DriverRod, browser.DriverStatic))
	}
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportHeight < 0 {
		result.fail("browser.viewport", fmt.Sprintf("%dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight),
			"Viewport dimensions cannot be negative")
	}
	if c.Browser.RemoteURL != "" {
		u, err := url.Parse(c.Browser.RemoteURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			result.fail("browser.remote_url", c.Browser.RemoteURL, "Remote URL must be an absolute URL")
		}
	}
	switch c.Browser.UserAgentMode {
	case "", browser.UserAgentRotate, browser.UserAgentRandom:
	default:
		result.fail("browser.user_agent_mode", c.Browser.UserAgentMode,
			fmt.Sprintf("Unsupported user agent mode (valid: %s, %s)", browser.UserAgentRotate, browser.UserAgentRandom))
	}
	if c.Browser.SnapshotTimeout < 0 {
		result.fail("browser.snapshot_timeout", c.Browser.SnapshotTimeout.String(), "Snapshot timeout cannot be negative")
	}
	for i, ua := range c.Browser.UserAgents {
		if strings.TrimSpace(ua) == "" {
			result.fail(fmt.Sprintf("browser.user_agents[%d]", i), "", "User agent cannot be empty")
		}
	}
}

func (c *Config) validateLogging(result *ValidationResult) {
	if _, err := log.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		result.fail("logging.level", c.Logging.Level, "Unknown log level")
	}
	switch strings.ToLower(c.Logging.Format) {
	case utils.FormatText, utils.FormatJSON, utils.FormatLogfmt:
	default:
		result.fail("logging.format", c.Logging.Format, "Log format must be text, json or logfmt")
	}
}

func (c *Config) validateMonitoring(result *ValidationResult) {
	if !c.Monitoring.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(c.Monitoring.ListenAddress); err != nil {
		result.fail("monitoring.listen_address", c.Monitoring.ListenAddress, "Listen address must be host:port")
	}
}

func (c *Config) validatePatterns(result *ValidationResult) {
	for name, patterns := range c.Patterns {
		if _, ok := scraper.ParseField(name); !ok {
			result.fail("patterns."+name, name, "Unknown field name")
			continue
		}
		for i, p := range patterns {
			if strings.TrimSpace(p) == "" {
				result.fail(fmt.Sprintf("patterns.%s[%d]", name, i), "", "Pattern cannot be empty")
			}
		}
	}
}

func formatValidationError(result *ValidationResult) string {
	var msg strings.Builder
	msg.WriteString("Configuration validation failed:\n")

	for i, err := range result.Errors {
		msg.WriteString(fmt.Sprintf("  %d. %s", i+1, err.Message))
		if err.Field != "" {
			msg.WriteString(fmt.Sprintf(" (field: %s)", err.Field))
		}
		if err.Value != "" {
			msg.WriteString(fmt.Sprintf(" (value: %s)", err.Value))
		}
		msg.WriteString("\n")
	}
	return strings.TrimRight(msg.String(), "\n")
}
