// internal/errors/service.go - Retry and CLI error reporting service
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/FormScrapexter/internal/utils"
)

// Service runs operations with bounded retries and turns failures into
// messages and exit codes for the command line
type Service struct {
	retryConfig    RetryConfig
	shouldRetry    func(err error) bool
	beforeRetry    func(attempt int, err error)
	messageHandler *MessageHandler
}

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	BaseDelay     time.Duration `yaml:"base_delay" json:"base_delay"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
	MaxDelay      time.Duration `yaml:"max_delay" json:"max_delay"`
}

// DefaultRetryConfig retries twice without waiting
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    2,
		BackoffFactor: 2.0,
		MaxDelay:      time.Minute,
	}
}

// MessageHandler converts technical errors to user-friendly messages
type MessageHandler struct {
	showTechnical bool
}

// RetryError is returned once every attempt failed with a retryable error
type RetryError struct {
	Operation string
	Retries   int
	Err       error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("operation %s failed after %d retries: %v", e.Operation, e.Retries, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// NewService creates a new service
func NewService(config RetryConfig) *Service {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Service{
		retryConfig:    config,
		shouldRetry:    utils.IsRetryableError,
		messageHandler: &MessageHandler{showTechnical: false},
	}
}

// WithVerbose enables technical error details
func (s *Service) WithVerbose(verbose bool) *Service {
	s.messageHandler.showTechnical = verbose
	return s
}

// WithRetryPredicate replaces the test deciding which errors are retried
func (s *Service) WithRetryPredicate(fn func(err error) bool) *Service {
	if fn != nil {
		s.shouldRetry = fn
	}
	return s
}

// WithBeforeRetry registers a hook run before every retry. attempt is the
// 1-based number of the retry about to run.
func (s *Service) WithBeforeRetry(fn func(attempt int, err error)) *Service {
	s.beforeRetry = fn
	return s
}

// MaxRetries returns the configured retry limit
func (s *Service) MaxRetries() int {
	return s.retryConfig.MaxRetries
}

// ExecuteWithRetry runs operation until it succeeds, fails with an error the
// predicate rejects, or the retries are used up. Only the last case returns
// a *RetryError.
func (s *Service) ExecuteWithRetry(ctx context.Context, operation func() error, operationName string) error {
	for attempt := 0; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !s.shouldRetry(err) {
			return err
		}
		if attempt >= s.retryConfig.MaxRetries {
			return &RetryError{Operation: operationName, Retries: s.retryConfig.MaxRetries, Err: err}
		}

		if s.beforeRetry != nil {
			s.beforeRetry(attempt+1, err)
		}

		delay := s.calculateDelay(attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// calculateDelay computes exponential backoff delay
func (s *Service) calculateDelay(attempt int) time.Duration {
	if s.retryConfig.BaseDelay <= 0 {
		return 0
	}
	factor := s.retryConfig.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := time.Duration(float64(s.retryConfig.BaseDelay) * pow(factor, attempt))
	if s.retryConfig.MaxDelay > 0 && delay > s.retryConfig.MaxDelay {
		delay = s.retryConfig.MaxDelay
	}
	return delay
}

// GetUserFriendlyError converts technical errors to user-friendly messages
func (s *Service) GetUserFriendlyError(err error) (title, message string, suggestions []string) {
	if err == nil {
		return "", "", nil
	}

	var structErr *utils.StructuredError
	if errors.As(err, &structErr) {
		switch structErr.Code {
		case utils.ErrCodeInvalidConfig, utils.ErrCodeMissingConfig, utils.ErrCodeConfigSyntax, utils.ErrCodeValidation:
			return "Configuration Error",
				utils.GetUserFriendlyMessage(err),
				[]string{
					"Run 'formscrapexter template' for a commented example",
					"Check YAML indentation (use spaces, not tabs)",
				}
		case utils.ErrCodeInvalidInput:
			return "Input Error",
				utils.GetUserFriendlyMessage(err),
				[]string{
					"Check that the URL file exists and lists one URL per line",
				}
		case utils.ErrCodeBrowserFailed, utils.ErrCodeSessionInvalid:
			return "Browser Error",
				utils.GetUserFriendlyMessage(err),
				[]string{
					"Install Chrome or Chromium, or set browser.remote_url",
					"Use --driver static to fetch pages without a browser",
				}
		case utils.ErrCodeOutputFailed, utils.ErrCodeFilePermission, utils.ErrCodeDatabaseError, utils.ErrCodeCheckpoint:
			return "Output Error",
				utils.GetUserFriendlyMessage(err),
				[]string{
					"Check the output path and its permissions",
					"Check the database connection string",
				}
		}
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "yaml") {
		return "Configuration Error",
			"The configuration file has invalid YAML syntax.",
			[]string{
				"Check YAML indentation (use spaces, not tabs)",
				"Ensure proper quoting of string values",
			}
	}

	if strings.Contains(errStr, "chrome") || strings.Contains(errStr, "browser") {
		return "Browser Error",
			"The browser could not be started or stopped responding.",
			[]string{
				"Install Chrome or Chromium, or set browser.remote_url",
				"Use --driver static to fetch pages without a browser",
			}
	}

	if strings.Contains(errStr, "timeout") {
		return "Connection Timeout",
			"A page took too long to load.",
			[]string{
				"Increase crawl.page_timeout in the configuration",
				"The website might be slow or experiencing issues",
			}
	}

	return "Unexpected Error",
		"An unexpected error occurred during the operation.",
		[]string{
			"Try running the command again",
			"Check your configuration file",
		}
}

// GetExitCode returns appropriate exit code for error
func (s *Service) GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}

	var structErr *utils.StructuredError
	if errors.As(err, &structErr) {
		switch structErr.Code {
		case utils.ErrCodeInvalidConfig, utils.ErrCodeMissingConfig, utils.ErrCodeConfigSyntax:
			return 2 // Configuration error
		case utils.ErrCodeBrowserFailed, utils.ErrCodeSessionInvalid, utils.ErrCodeNavigationTimeout:
			return 3 // Browser error
		case utils.ErrCodeParsingError, utils.ErrCodeInvalidInput:
			return 4 // Input error
		case utils.ErrCodeOutputFailed, utils.ErrCodeFilePermission, utils.ErrCodeDatabaseError, utils.ErrCodeCheckpoint:
			return 5 // Output error
		case utils.ErrCodeValidation:
			return 6 // Validation error
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "config") || strings.Contains(errStr, "yaml"):
		return 2
	case strings.Contains(errStr, "browser") || strings.Contains(errStr, "chrome"):
		return 3
	case strings.Contains(errStr, "output") || strings.Contains(errStr, "write"):
		return 5
	default:
		return 1 // General error
	}
}

// FormatErrorForCLI formats error for command-line display
func (s *Service) FormatErrorForCLI(err error) string {
	title, message, suggestions := s.GetUserFriendlyError(err)

	output := fmt.Sprintf("Error: %s\n%s\n", title, message)

	if s.messageHandler.showTechnical {
		output += fmt.Sprintf("\nTechnical details: %s\n", err.Error())
	}

	if len(suggestions) > 0 {
		output += "\nSuggestions:\n"
		for _, suggestion := range suggestions {
			output += fmt.Sprintf("  - %s\n", suggestion)
		}
	}

	return output
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
