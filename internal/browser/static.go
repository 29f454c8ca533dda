// internal/browser/static.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/valpere/FormScrapexter/internal/antidetect"
	"github.com/valpere/FormScrapexter/internal/dom"
)

const maxStaticBody = 10 << 20

// StaticSession fetches pages over plain HTTP without running scripts.
// Visibility falls back to markup heuristics since nothing is rendered.
type StaticSession struct {
	client  *http.Client
	headers *antidetect.HeaderRotator

	mu     sync.Mutex
	body   []byte
	closed bool
}

// NewStaticSession creates a static session. A nil client uses a default
// client that follows redirects.
func NewStaticSession(client *http.Client, userAgents []string) *StaticSession {
	if client == nil {
		client = &http.Client{}
	}
	return &StaticSession{
		client:  client,
		headers: antidetect.NewHeaderRotator(userAgents),
	}
}

// Navigate downloads url and keeps the body for the next Snapshot
func (s *StaticSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	s.mu.Lock()
	closed := s.closed
	s.body = nil
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: session closed", ErrSessionInvalid)
	}

	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	req.Header = s.headers.GetHeaders()

	resp, err := s.client.Do(req)
	if err != nil {
		return s.classify(ctx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("navigation failed: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStaticBody))
	if err != nil {
		return s.classify(ctx, url, err)
	}

	s.mu.Lock()
	s.body = body
	s.mu.Unlock()
	return nil
}

func (s *StaticSession) classify(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
	}
	return fmt.Errorf("navigation failed: %w", err)
}

// Snapshot parses the last downloaded body
func (s *StaticSession) Snapshot(ctx context.Context) (dom.Page, error) {
	s.mu.Lock()
	body := s.body
	s.mu.Unlock()
	if body == nil {
		return nil, fmt.Errorf("cannot snapshot: navigation has not completed successfully")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return parseSnapshot(string(body))
}

// Close marks the session unusable
func (s *StaticSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.body = nil
	s.client.CloseIdleConnections()
	return nil
}
