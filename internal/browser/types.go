// internal/browser/types.go
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/valpere/FormScrapexter/internal/dom"
)

// Supported session drivers
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
	DriverStatic   = "static"
)

// User agent selection modes
const (
	UserAgentRotate = "rotate"
	UserAgentRandom = "random"
)

// DefaultSnapshotTimeout bounds the in-page snapshot script
const DefaultSnapshotTimeout = 30 * time.Second

var (
	// ErrSessionInvalid reports that the underlying browser is gone and the
	// session must be replaced before it can be used again.
	ErrSessionInvalid = errors.New("invalid session id")

	// ErrNavigationTimeout reports that a page did not finish loading in time.
	ErrNavigationTimeout = errors.New("navigation timeout")
)

// BrowserConfig defines browser automation configuration
type BrowserConfig struct {
	Driver          string        `yaml:"driver" json:"driver"`
	Headless        bool          `yaml:"headless" json:"headless"`
	UserAgents      []string      `yaml:"user_agents,omitempty" json:"user_agents,omitempty"`
	UserAgentMode   string        `yaml:"user_agent_mode,omitempty" json:"user_agent_mode,omitempty"`
	ViewportWidth   int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight  int           `yaml:"viewport_height" json:"viewport_height"`
	WaitDelay       time.Duration `yaml:"wait_delay,omitempty" json:"wait_delay,omitempty"`
	DisableImages   bool          `yaml:"disable_images" json:"disable_images"`
	SnapshotTimeout time.Duration `yaml:"snapshot_timeout,omitempty" json:"snapshot_timeout,omitempty"`
	RemoteURL       string        `yaml:"remote_url,omitempty" json:"remote_url,omitempty"`
}

// DefaultBrowserConfig returns default browser configuration
func DefaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		Driver:          DriverChromedp,
		Headless:        true,
		ViewportWidth:   1920,
		ViewportHeight:  1080,
		UserAgentMode:   UserAgentRotate,
		SnapshotTimeout: DefaultSnapshotTimeout,
	}
}

// snapshotTimeout returns the snapshot bound, falling back to the default
func (c *BrowserConfig) snapshotTimeout() time.Duration {
	if c.SnapshotTimeout > 0 {
		return c.SnapshotTimeout
	}
	return DefaultSnapshotTimeout
}

// Session is one live page the crawler drives. A session is used by a
// single goroutine at a time.
type Session interface {
	// Navigate loads url and waits for the document to be ready. It returns
	// an error wrapping ErrNavigationTimeout when timeout elapses and one
	// wrapping ErrSessionInvalid when the browser is no longer usable.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// Snapshot captures the currently loaded document.
	Snapshot(ctx context.Context) (dom.Page, error)

	// Close releases the session and its browser.
	Close() error
}

// Factory builds new sessions
type Factory interface {
	NewSession(ctx context.Context) (Session, error)
}

// FactoryFunc adapts a function to the Factory interface
type FactoryFunc func(ctx context.Context) (Session, error)

// NewSession calls f(ctx)
func (f FactoryFunc) NewSession(ctx context.Context) (Session, error) {
	return f(ctx)
}
