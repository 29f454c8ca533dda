// internal/crawl/orchestrator.go
package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/valpere/FormScrapexter/internal/antidetect"
	"github.com/valpere/FormScrapexter/internal/browser"
	retry "github.com/valpere/FormScrapexter/internal/errors"
	"github.com/valpere/FormScrapexter/internal/scraper"
	"github.com/valpere/FormScrapexter/internal/utils"
)

// Page-level error messages recorded by the orchestrator
const (
	ErrMsgTimeout        = "Timeout loading page"
	ErrMsgSessionInvalid = "Invalid session ID after %d retries"
)

// Session reset reasons reported to the Observer
const (
	ResetBatch   = "batch"
	ResetSession = "session"
)

// Config defines crawl behavior
type Config struct {
	BatchSize   int           `yaml:"batch_size" json:"batch_size"`
	MaxRetries  int           `yaml:"max_retries" json:"max_retries"`
	PageTimeout time.Duration `yaml:"page_timeout" json:"page_timeout"`
	Delay       time.Duration `yaml:"delay" json:"delay"`
	Checkpoint  string        `yaml:"checkpoint,omitempty" json:"checkpoint,omitempty"`
}

// DefaultConfig returns default crawl configuration
func DefaultConfig() Config {
	return Config{
		BatchSize:   20,
		MaxRetries:  2,
		PageTimeout: 30 * time.Second,
		Delay:       time.Second,
	}
}

// ResultStore persists the results of a run. Save receives every result
// of the run so far and may be called more than once.
type ResultStore interface {
	Save(ctx context.Context, results []*scraper.PageResult) error
}

// Observer receives crawl events, typically to export metrics
type Observer interface {
	RunStarted(pending, skipped int)
	PageProcessed(result *scraper.PageResult, duration time.Duration)
	CaptchaDetected(kind antidetect.CaptchaType)
	SessionReset(reason string)
	BatchCompleted(size int)
}

type nopObserver struct{}

func (nopObserver) RunStarted(int, int)                              {}
func (nopObserver) PageProcessed(*scraper.PageResult, time.Duration) {}
func (nopObserver) CaptchaDetected(antidetect.CaptchaType)           {}
func (nopObserver) SessionReset(string)                              {}
func (nopObserver) BatchCompleted(int)                               {}

// Orchestrator drives field extraction over a URL list with one browser
// session at a time
type Orchestrator struct {
	config    Config
	sessions  *browser.SessionManager
	extractor *scraper.Extractor
	captcha   *antidetect.CaptchaDetector
	store     ResultStore
	observer  Observer
	logger    utils.Logger
	limiter   *rate.Limiter
}

// NewOrchestrator creates an orchestrator. store may be nil when results
// are only returned to the caller.
func NewOrchestrator(config Config, factory browser.Factory, extractor *scraper.Extractor, store ResultStore, logger utils.Logger) *Orchestrator {
	defaults := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.PageTimeout <= 0 {
		config.PageTimeout = defaults.PageTimeout
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if extractor == nil {
		extractor = scraper.NewExtractor(nil, logger)
	}

	limit := rate.Inf
	if config.Delay > 0 {
		limit = rate.Every(config.Delay)
	}

	return &Orchestrator{
		config:    config,
		sessions:  browser.NewSessionManager(factory, logger),
		extractor: extractor,
		captcha:   antidetect.NewCaptchaDetector(logger),
		store:     store,
		observer:  nopObserver{},
		logger:    logger,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// WithObserver sets the event observer
func (o *Orchestrator) WithObserver(observer Observer) *Orchestrator {
	if observer != nil {
		o.observer = observer
	}
	return o
}

// Run processes every URL not yet in the checkpoint. Results are saved
// after each batch and once more at the end. When ctx is canceled the
// results gathered so far are saved and ctx.Err() is returned with the
// summary.
func (o *Orchestrator) Run(ctx context.Context, urls []string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Total: len(urls)}

	var checkpoint *Checkpoint
	if o.config.Checkpoint != "" {
		cp, err := OpenCheckpoint(o.config.Checkpoint)
		if err != nil {
			return nil, err
		}
		defer cp.Close()
		checkpoint = cp
		o.logger.Infof("Loaded %d completed URLs from checkpoint", cp.Len())
	}

	pending := make([]string, 0, len(urls))
	for _, u := range urls {
		if checkpoint != nil && checkpoint.Contains(u) {
			continue
		}
		pending = append(pending, u)
	}
	summary.Skipped = len(urls) - len(pending)
	o.logger.Infof("Processing %d URLs out of %d total", len(pending), len(urls))
	o.observer.RunStarted(len(pending), summary.Skipped)

	defer o.sessions.Close()
	if len(pending) > 0 {
		if _, err := o.sessions.Session(ctx); err != nil {
			return nil, utils.NewError(utils.ErrCodeBrowserFailed, "failed to start browser session").
				WithCause(err).
				Build()
		}
	}

	var results []*scraper.PageResult
	batches := (len(pending) + o.config.BatchSize - 1) / o.config.BatchSize

	var runErr error
	for i := 0; i < len(pending) && runErr == nil; i += o.config.BatchSize {
		end := min(i+o.config.BatchSize, len(pending))
		batch := pending[i:end]
		o.logger.Infof("Processing batch %d/%d (%d URLs)", i/o.config.BatchSize+1, batches, len(batch))

		for j, u := range batch {
			// Wait also fails when the next slot falls past the ctx deadline.
			if err := o.limiter.Wait(ctx); err != nil {
				runErr = err
				break
			}
			o.logger.Infof("Processing URL %d/%d: %s", i+j+1, len(pending), u)

			began := time.Now()
			result, err := o.processURL(ctx, u)
			if err != nil {
				runErr = err
				break
			}
			results = append(results, result)
			o.observer.PageProcessed(result, time.Since(began))

			if checkpoint != nil {
				if err := checkpoint.Append(u); err != nil {
					o.logger.Warnf("Error updating checkpoint: %v", err)
				}
			}
		}

		o.observer.BatchCompleted(len(batch))
		if err := o.save(ctx, results); err != nil {
			return summary.finish(results, start), err
		}

		if runErr == nil && end < len(pending) {
			o.logger.Info("Resetting browser between batches")
			o.sessions.Reset()
			o.observer.SessionReset(ResetBatch)
		}
	}

	if runErr != nil {
		summary.Interrupted = true
		o.logger.Warnf("Crawl interrupted after %d URLs: %v", len(results), runErr)
		return summary.finish(results, start), runErr
	}

	if err := o.save(ctx, results); err != nil {
		return summary.finish(results, start), err
	}
	return summary.finish(results, start), nil
}

func (o *Orchestrator) save(ctx context.Context, results []*scraper.PageResult) error {
	if o.store == nil {
		return nil
	}
	// The run context may already be canceled; results are flushed anyway.
	if err := o.store.Save(context.WithoutCancel(ctx), results); err != nil {
		return utils.NewError(utils.ErrCodeOutputFailed, "failed to save results").
			WithCause(err).
			WithContext("results", len(results)).
			Build()
	}
	return nil
}

// processURL scrapes one URL with session-reset retries. The returned
// error is non-nil only when ctx was canceled; every other failure ends up
// in the result.
func (o *Orchestrator) processURL(ctx context.Context, url string) (result *scraper.PageResult, err error) {
	result = scraper.NewPageResult(url)
	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorf("Unrecoverable error processing %s: %v", url, r)
			result = scraper.NewPageResult(url)
			result.Error = fmt.Sprint(r)
			err = nil
		}
	}()

	service := retry.NewService(retry.RetryConfig{MaxRetries: o.config.MaxRetries}).
		WithRetryPredicate(isSessionError).
		WithBeforeRetry(func(attempt int, cause error) {
			o.logger.Warnf("Session problem on %s: %v", url, cause)
			o.logger.Infof("Retrying URL (attempt %d/%d): %s", attempt, o.config.MaxRetries, url)
			o.sessions.Reset()
			o.observer.SessionReset(ResetSession)
		})

	runErr := service.ExecuteWithRetry(ctx, func() error {
		// Partial state from a failed attempt is discarded.
		result = scraper.NewPageResult(url)
		return o.scrape(ctx, url, result)
	}, "scrape")

	if runErr == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var retryErr *retry.RetryError
	switch {
	case errors.As(runErr, &retryErr) && errors.Is(retryErr.Err, browser.ErrSessionInvalid):
		result.Error = fmt.Sprintf(ErrMsgSessionInvalid, retryErr.Retries)
	case retryErr != nil:
		result.Error = retryErr.Err.Error()
	default:
		result.Error = runErr.Error()
	}
	o.logger.Errorf("Error processing %s: %s", url, result.Error)
	return result, nil
}

// scrape runs one attempt. Timeouts are recorded in result; other
// failures are returned for the retry decision.
func (o *Orchestrator) scrape(ctx context.Context, url string, result *scraper.PageResult) (err error) {
	session, err := o.sessions.Session(ctx)
	if err != nil {
		return err
	}

	if err := session.Navigate(ctx, url, o.config.PageTimeout); err != nil {
		if errors.Is(err, browser.ErrNavigationTimeout) {
			result.Error = ErrMsgTimeout
			return nil
		}
		return err
	}

	page, err := session.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, browser.ErrNavigationTimeout) {
			result.Error = ErrMsgTimeout
			return nil
		}
		return err
	}

	if found, kind := o.captcha.Inspect(page); found {
		result.HasCaptcha = true
		o.observer.CaptchaDetected(kind)
		o.logger.Infof("CAPTCHA detected on %s - continuing to extract fields anyway", url)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction failed: %v", r)
		}
	}()
	o.extractor.Extract(page, result)
	return nil
}

// isSessionError reports whether err calls for a session reset and retry
func isSessionError(err error) bool {
	if errors.Is(err, browser.ErrNavigationTimeout) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, browser.ErrSessionInvalid) {
		return true
	}
	return utils.IsRetryableError(err)
}
