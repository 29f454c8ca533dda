// internal/browser/rod.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/valpere/FormScrapexter/internal/dom"
	"github.com/valpere/FormScrapexter/internal/utils"
)

// RodSession implements Session using rod with the stealth page patches
type RodSession struct {
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
	config  *BrowserConfig
	logger  utils.Logger

	mu     sync.Mutex
	loaded bool
	closed bool
}

// NewRodSession launches (or connects to) Chrome and opens a stealth tab
func NewRodSession(ctx context.Context, config *BrowserConfig, userAgent string, logger utils.Logger) (*RodSession, error) {
	if config == nil {
		config = DefaultBrowserConfig()
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	s := &RodSession{
		config: config,
		logger: logger.WithField("driver", DriverRod),
	}
	if err := s.launch(ctx, userAgent); err != nil {
		s.Close()
		return nil, utils.NewError(utils.ErrCodeBrowserFailed, "failed to start rod browser").
			WithCause(err).
			WithRetryable(true).
			Build()
	}
	return s, nil
}

func (s *RodSession) launch(ctx context.Context, userAgent string) error {
	wsURL := s.config.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(s.config.Headless).
			NoSandbox(true).
			Set("disable-blink-features", "AutomationControlled").
			Set("disable-extensions").
			Set("disable-notifications").
			Set("window-size", fmt.Sprintf("%d,%d", s.config.ViewportWidth, s.config.ViewportHeight))
		if s.config.DisableImages {
			l = l.Set("blink-settings", "imagesEnabled=false")
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return fmt.Errorf("launch: %w", err)
		}
		s.lnch = l
		wsURL = u
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.browser = b

	p, err := stealth.Page(b)
	if err != nil {
		return fmt.Errorf("create tab: %w", err)
	}
	s.page = p

	if userAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.config.ViewportWidth,
		Height:            s.config.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	s.logger.Debugf("rod session connected to %s", wsURL)
	return nil
}

// Navigate loads url in the stealth tab and waits for the load event
func (s *RodSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	s.mu.Lock()
	closed := s.closed
	s.loaded = false
	s.mu.Unlock()
	if closed || s.page == nil {
		return fmt.Errorf("%w: session closed", ErrSessionInvalid)
	}

	navCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p := s.page.Context(navCtx)
	err := p.Navigate(url)
	if err == nil {
		err = p.WaitLoad()
	}
	if err == nil && s.config.WaitDelay > 0 {
		select {
		case <-time.After(s.config.WaitDelay):
		case <-navCtx.Done():
			err = navCtx.Err()
		}
	}
	if err != nil {
		return s.classify(ctx, url, err)
	}

	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Snapshot annotates element visibility in the live page and returns the
// resulting document.
func (s *RodSession) Snapshot(ctx context.Context) (dom.Page, error) {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		return nil, fmt.Errorf("cannot snapshot: navigation has not completed successfully")
	}

	evalCtx, cancel := context.WithTimeout(ctx, s.config.snapshotTimeout())
	defer cancel()
	res, err := s.page.Context(evalCtx).Eval(dom.AnnotateScript)
	if err != nil {
		return nil, s.classify(ctx, "", err)
	}
	return parseSnapshot(res.Value.Str())
}

func (s *RodSession) classify(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
	}
	if _, verr := (proto.BrowserGetVersion{}).Call(s.browser); verr != nil {
		return fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	if url == "" {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	return fmt.Errorf("navigation failed: %w", err)
}

// Close closes the tab, the browser and any launched process
func (s *RodSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.loaded = false

	var firstErr error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			firstErr = err
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
	}
	return firstErr
}
