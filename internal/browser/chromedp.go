// internal/browser/chromedp.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/valpere/FormScrapexter/internal/antidetect"
	"github.com/valpere/FormScrapexter/internal/dom"
	"github.com/valpere/FormScrapexter/internal/utils"
)

// ChromeSession implements Session using chromedp
type ChromeSession struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	config      *BrowserConfig
	logger      utils.Logger

	mu     sync.Mutex
	loaded bool
	closed bool
}

// NewChromeSession starts a browser and opens one tab configured with the
// given user agent. An empty userAgent keeps the browser default.
func NewChromeSession(ctx context.Context, config *BrowserConfig, userAgent string, logger utils.Logger) (*ChromeSession, error) {
	if config == nil {
		config = DefaultBrowserConfig()
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if config.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.WithoutCancel(ctx), config.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.WithoutCancel(ctx), execOptions(config, userAgent)...)
	}

	tabCtx, cancel := chromedp.NewContext(allocCtx)
	s := &ChromeSession{
		allocCancel: allocCancel,
		ctx:         tabCtx,
		cancel:      cancel,
		config:      config,
		logger:      logger.WithField("driver", DriverChromedp),
	}

	if err := s.initialize(userAgent); err != nil {
		s.Close()
		return nil, utils.NewError(utils.ErrCodeBrowserFailed, "failed to start chrome").
			WithCause(err).
			WithRetryable(true).
			Build()
	}
	return s, nil
}

func execOptions(config *BrowserConfig, userAgent string) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
		chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	return opts
}

// initialize starts the browser and installs the stealth script so it runs
// before any page script on every navigation.
func (s *ChromeSession) initialize(userAgent string) error {
	tasks := []chromedp.Action{
		chromedp.EmulateViewport(int64(s.config.ViewportWidth), int64(s.config.ViewportHeight)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(antidetect.StealthScript).Do(ctx)
			return err
		}),
	}
	if err := chromedp.Run(s.ctx, tasks...); err != nil {
		return err
	}
	s.logger.Debugf("chrome session started (user agent %q)", userAgent)
	return nil
}

// Navigate navigates to a URL and waits for the body to be ready
func (s *ChromeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	s.mu.Lock()
	closed := s.closed
	s.loaded = false
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: session closed", ErrSessionInvalid)
	}

	tasks := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if s.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(s.config.WaitDelay))
	}

	if err := s.run(ctx, timeout, tasks...); err != nil {
		return s.classify(ctx, url, err)
	}

	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Snapshot annotates element visibility in the live page and returns the
// resulting document.
func (s *ChromeSession) Snapshot(ctx context.Context) (dom.Page, error) {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		return nil, fmt.Errorf("cannot snapshot: navigation has not completed successfully")
	}

	var markup string
	if err := s.run(ctx, s.config.snapshotTimeout(), chromedp.Evaluate(dom.AnnotateScript, &markup)); err != nil {
		return nil, s.classify(ctx, "", err)
	}
	return parseSnapshot(markup)
}

// run executes actions on the tab. The tab context outlives ctx, so ctx
// cancellation and the optional timeout are applied to a child context.
func (s *ChromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *ChromeSession) classify(ctx context.Context, url string, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case s.ctx.Err() != nil,
		errors.Is(err, chromedp.ErrInvalidContext),
		errors.Is(err, chromedp.ErrChannelClosed):
		return fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
	}
	if url == "" {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	return fmt.Errorf("navigation failed: %w", err)
}

// Close closes the tab and shuts the browser down
func (s *ChromeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.loaded = false
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	return nil
}
