// internal/browser/browser_test.go
package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/valpere/FormScrapexter/internal/dom"
)

const formPage = `<html><body><form><input name="email" type="email"><button type="submit">Send</button></form></body></html>`

func TestDefaultBrowserConfig(t *testing.T) {
	config := DefaultBrowserConfig()

	if config == nil {
		t.Fatal("Expected non-nil config")
	}
	if config.Driver != DriverChromedp {
		t.Errorf("Expected chromedp driver by default, got %q", config.Driver)
	}
	if !config.Headless {
		t.Error("Expected headless mode by default")
	}
	if config.ViewportWidth != 1920 {
		t.Errorf("Expected viewport width 1920, got %d", config.ViewportWidth)
	}
	if config.ViewportHeight != 1080 {
		t.Errorf("Expected viewport height 1080, got %d", config.ViewportHeight)
	}
}

func TestNewFactory_UnknownDriver(t *testing.T) {
	_, err := NewFactory(&BrowserConfig{Driver: "lynx"}, nil)
	if err == nil {
		t.Fatal("Expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "lynx") {
		t.Errorf("Expected error to name the driver, got %v", err)
	}
}

func TestSnapshotTimeout(t *testing.T) {
	if got := DefaultBrowserConfig().snapshotTimeout(); got != DefaultSnapshotTimeout {
		t.Errorf("Expected default snapshot timeout %s, got %s", DefaultSnapshotTimeout, got)
	}
	if got := (&BrowserConfig{}).snapshotTimeout(); got != DefaultSnapshotTimeout {
		t.Errorf("Expected unset snapshot timeout to fall back, got %s", got)
	}
	if got := (&BrowserConfig{SnapshotTimeout: time.Second}).snapshotTimeout(); got != time.Second {
		t.Errorf("Expected configured snapshot timeout, got %s", got)
	}
}

func TestSessionFactory_UserAgentMode(t *testing.T) {
	agents := []string{"agent-a", "agent-b"}

	rotating, err := NewFactory(&BrowserConfig{Driver: DriverChromedp, UserAgents: agents}, nil)
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	for i, want := range []string{"agent-a", "agent-b", "agent-a"} {
		if got := rotating.userAgent(); got != want {
			t.Errorf("Session %d: expected %s, got %s", i, want, got)
		}
	}

	random, err := NewFactory(&BrowserConfig{Driver: DriverChromedp, UserAgents: agents, UserAgentMode: UserAgentRandom}, nil)
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		if got := random.userAgent(); got != "agent-a" && got != "agent-b" {
			t.Errorf("Expected a configured agent, got %s", got)
		}
	}
}

func TestStaticSession_NavigateAndSnapshot(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(formPage))
	}))
	defer srv.Close()

	s := NewStaticSession(srv.Client(), []string{"test-agent/1.0"})
	defer s.Close()

	ctx := context.Background()
	if _, err := s.Snapshot(ctx); err == nil {
		t.Error("Expected snapshot before navigation to fail")
	}

	if err := s.Navigate(ctx, srv.URL, 5*time.Second); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("Expected rotated user agent, got %q", gotUA)
	}

	page, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	inputs, err := page.Find("input[name='email']", nil)
	if err != nil || len(inputs) != 1 {
		t.Fatalf("Expected one email input, got %d (%v)", len(inputs), err)
	}
}

func TestStaticSession_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s := NewStaticSession(srv.Client(), nil)
	defer s.Close()

	err := s.Navigate(context.Background(), srv.URL, 50*time.Millisecond)
	if !errors.Is(err, ErrNavigationTimeout) {
		t.Fatalf("Expected ErrNavigationTimeout, got %v", err)
	}
}

func TestStaticSession_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	s := NewStaticSession(srv.Client(), nil)
	defer s.Close()

	err := s.Navigate(context.Background(), srv.URL, time.Second)
	if err == nil || !strings.Contains(err.Error(), "410") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestStaticSession_Closed(t *testing.T) {
	s := NewStaticSession(nil, nil)
	s.Close()

	err := s.Navigate(context.Background(), "http://127.0.0.1:1", time.Second)
	if !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Expected ErrSessionInvalid after Close, got %v", err)
	}
}

type countingSession struct {
	closed int
}

func (c *countingSession) Navigate(context.Context, string, time.Duration) error { return nil }
func (c *countingSession) Snapshot(context.Context) (dom.Page, error)           { return nil, nil }
func (c *countingSession) Close() error                                         { c.closed++; return nil }

func TestSessionManager_Reset(t *testing.T) {
	var created []*countingSession
	factory := FactoryFunc(func(ctx context.Context) (Session, error) {
		s := &countingSession{}
		created = append(created, s)
		return s, nil
	})

	m := NewSessionManager(factory, nil)
	ctx := context.Background()

	first, err := m.Session(ctx)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	again, _ := m.Session(ctx)
	if first != again {
		t.Error("Expected the live session to be reused")
	}

	m.Reset()
	if created[0].closed != 1 {
		t.Errorf("Expected reset to close the session once, got %d", created[0].closed)
	}
	second, _ := m.Session(ctx)
	if second == first {
		t.Error("Expected a new session after reset")
	}
	if m.Resets() != 1 {
		t.Errorf("Expected 1 reset, got %d", m.Resets())
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := m.Session(ctx); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Expected ErrSessionInvalid from closed manager, got %v", err)
	}
}

func TestChromeSession_DataURL(t *testing.T) {
	config := DefaultBrowserConfig()
	s, err := NewChromeSession(context.Background(), config, "", nil)
	if err != nil {
		t.Skipf("Skipping browser test - Chrome may not be available: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if _, err := s.Snapshot(ctx); err == nil {
		t.Error("Expected snapshot before navigation to fail")
	}

	if err := s.Navigate(ctx, "data:text/html,"+formPage, 10*time.Second); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	page, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	inputs, _ := page.Find("input", nil)
	if len(inputs) != 1 {
		t.Fatalf("Expected one input, got %d", len(inputs))
	}
	v, _ := page.Attribute(inputs[0], "data-fs-visible")
	if v != "true" {
		t.Errorf("Expected rendered input to be annotated visible, got %q", v)
	}

	s.Close()
	if err := s.Navigate(ctx, "data:text/html,"+formPage, time.Second); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Expected ErrSessionInvalid after Close, got %v", err)
	}
}
