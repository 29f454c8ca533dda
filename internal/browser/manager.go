// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/valpere/FormScrapexter/internal/antidetect"
	"github.com/valpere/FormScrapexter/internal/dom"
	"github.com/valpere/FormScrapexter/internal/utils"
)

func parseSnapshot(markup string) (dom.Page, error) {
	doc, err := dom.ParseString(markup)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return doc, nil
}

// SessionFactory builds sessions for the configured driver. Each new
// browser session takes the next user agent, or a random one when
// UserAgentMode is random.
type SessionFactory struct {
	config     *BrowserConfig
	userAgents *antidetect.UserAgentRotator
	client     *http.Client
	logger     utils.Logger
}

// NewFactory creates a factory for config.Driver
func NewFactory(config *BrowserConfig, logger utils.Logger) (*SessionFactory, error) {
	if config == nil {
		config = DefaultBrowserConfig()
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	switch config.Driver {
	case DriverChromedp, DriverRod, DriverStatic:
	case "":
		config.Driver = DriverChromedp
	default:
		return nil, utils.NewError(utils.ErrCodeInvalidConfig, fmt.Sprintf("unknown browser driver %q", config.Driver)).
			WithContext("driver", config.Driver).
			Build()
	}
	return &SessionFactory{
		config:     config,
		userAgents: antidetect.NewUserAgentRotator(config.UserAgents),
		client:     &http.Client{},
		logger:     logger,
	}, nil
}

// NewSession starts a new session
func (f *SessionFactory) NewSession(ctx context.Context) (Session, error) {
	switch f.config.Driver {
	case DriverStatic:
		return NewStaticSession(f.client, f.config.UserAgents), nil
	case DriverRod:
		s, err := NewRodSession(ctx, f.config, f.userAgent(), f.logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := NewChromeSession(ctx, f.config, f.userAgent(), f.logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// userAgent picks the agent for a new browser session
func (f *SessionFactory) userAgent() string {
	if f.config.UserAgentMode == UserAgentRandom {
		return f.userAgents.GetRandom()
	}
	return f.userAgents.GetNext()
}

// SessionManager owns the single live session of a crawl and replaces it
// on demand.
type SessionManager struct {
	factory Factory
	logger  utils.Logger

	mu      sync.Mutex
	current Session
	resets  int
	closed  bool
}

// NewSessionManager creates a manager drawing sessions from factory
func NewSessionManager(factory Factory, logger utils.Logger) *SessionManager {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &SessionManager{factory: factory, logger: logger}
}

// Session returns the live session, starting one if needed
func (m *SessionManager) Session(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("%w: manager closed", ErrSessionInvalid)
	}
	if m.current != nil {
		return m.current, nil
	}
	s, err := m.factory.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	m.current = s
	return s, nil
}

// Reset closes the live session. The next call to Session starts a new one.
func (m *SessionManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	if m.current == nil {
		return
	}
	if err := m.current.Close(); err != nil {
		m.logger.Warnf("failed to close session: %v", err)
	}
	m.current = nil
}

// Resets returns how many times Reset was called
func (m *SessionManager) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Close closes the live session and refuses new ones
func (m *SessionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}
