// internal/crawl/crawl_test.go
package crawl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valpere/FormScrapexter/internal/antidetect"
	"github.com/valpere/FormScrapexter/internal/browser"
	"github.com/valpere/FormScrapexter/internal/dom"
	"github.com/valpere/FormScrapexter/internal/scraper"
)

const signupPage = `<html><body>
<form>
  <div><label for="fn">First name</label><input id="fn" type="text" name="first_name"></div>
  <div><label for="em">Email</label><input id="em" type="email" name="email"></div>
  <button type="submit">Register</button>
</form>
</body></html>`

const captchaPage = `<html><body>
<form>
  <div><label for="fn">First name</label><input id="fn" type="text" name="first_name"></div>
  <div><label for="em">Email</label><input id="em" type="email" name="email"></div>
  <div class="g-recaptcha" data-sitekey="6Lc_test"></div>
  <button type="submit">Register</button>
</form>
</body></html>`

// fakeSession serves canned markup; navigate overrides the outcome per URL
type fakeSession struct {
	pages    map[string]string
	navigate func(ctx context.Context, url string) error
	snapErr  error
	current  string
	visits   *[]string
}

func (s *fakeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	*s.visits = append(*s.visits, url)
	if s.navigate != nil {
		if err := s.navigate(ctx, url); err != nil {
			return err
		}
	}
	s.current = url
	return nil
}

func (s *fakeSession) Snapshot(ctx context.Context) (dom.Page, error) {
	if s.snapErr != nil {
		return nil, s.snapErr
	}
	markup, ok := s.pages[s.current]
	if !ok {
		markup = "<html><body></body></html>"
	}
	return dom.ParseString(markup)
}

func (s *fakeSession) Close() error { return nil }

type fakeBrowser struct {
	pages    map[string]string
	navigate func(ctx context.Context, url string) error
	snapErr  error
	created  int
	visits   []string
}

func (b *fakeBrowser) factory() browser.Factory {
	return browser.FactoryFunc(func(ctx context.Context) (browser.Session, error) {
		b.created++
		return &fakeSession{pages: b.pages, navigate: b.navigate, snapErr: b.snapErr, visits: &b.visits}, nil
	})
}

type recordingObserver struct {
	pending  int
	resets   []string
	pages    int
	captchas []antidetect.CaptchaType
	batches  []int
}

func (r *recordingObserver) RunStarted(pending, skipped int)                   { r.pending = pending }
func (r *recordingObserver) PageProcessed(*scraper.PageResult, time.Duration) { r.pages++ }
func (r *recordingObserver) CaptchaDetected(kind antidetect.CaptchaType)      { r.captchas = append(r.captchas, kind) }
func (r *recordingObserver) SessionReset(reason string)                       { r.resets = append(r.resets, reason) }
func (r *recordingObserver) BatchCompleted(size int)                          { r.batches = append(r.batches, size) }

type memoryStore struct {
	saves [][]*scraper.PageResult
}

func (m *memoryStore) Save(ctx context.Context, results []*scraper.PageResult) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.saves = append(m.saves, append([]*scraper.PageResult(nil), results...))
	return nil
}

func (m *memoryStore) last() []*scraper.PageResult {
	if len(m.saves) == 0 {
		return nil
	}
	return m.saves[len(m.saves)-1]
}

func testConfig() Config {
	return Config{BatchSize: 20, MaxRetries: 2, PageTimeout: time.Second}
}

func TestReadURLs(t *testing.T) {
	input := "https://a.example/\n\n# comment\n  https://b.example/signup  \n#https://skipped.example/\nhttps://a.example/\n"
	urls, err := ReadURLs(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadURLs failed: %v", err)
	}
	want := []string{"https://a.example/", "https://b.example/signup", "https://a.example/"}
	if len(urls) != len(want) {
		t.Fatalf("Expected %d URLs, got %v", len(want), urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("URL %d: expected %q, got %q", i, want[i], urls[i])
		}
	}
}

func TestLoadURLs_Missing(t *testing.T) {
	_, err := LoadURLs(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("Expected error for missing URL file")
	}
}

func TestCheckpoint_LoadAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv"+CheckpointSuffix)
	if err := os.WriteFile(path, []byte("https://a.example/\n\nhttps://b.example/\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cp, err := OpenCheckpoint(path)
	if err != nil {
		t.Fatalf("OpenCheckpoint failed: %v", err)
	}
	if cp.Len() != 2 {
		t.Errorf("Expected 2 loaded URLs, got %d", cp.Len())
	}
	if !cp.Contains("https://b.example/") {
		t.Error("Expected loaded URL to be contained")
	}
	if err := cp.Append("https://c.example/"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if !cp.Contains("https://c.example/") {
		t.Error("Expected appended URL to be contained")
	}
	cp.Close()

	if err := cp.Append("https://d.example/"); err == nil {
		t.Error("Expected append after close to fail")
	}

	data, _ := os.ReadFile(path)
	if !strings.HasSuffix(string(data), "https://c.example/\n") {
		t.Errorf("Expected appended line at end of file, got %q", data)
	}
}

func TestOrchestrator_SessionInvalidRetries(t *testing.T) {
	fb := &fakeBrowser{
		navigate: func(ctx context.Context, url string) error {
			return browser.ErrSessionInvalid
		},
	}
	obs := &recordingObserver{}
	store := &memoryStore{}
	o := NewOrchestrator(testConfig(), fb.factory(), nil, store, nil).WithObserver(obs)

	summary, err := o.Run(context.Background(), []string{"https://x.example/"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(obs.resets) != 2 {
		t.Fatalf("Expected exactly 2 session resets, got %v", obs.resets)
	}
	for _, r := range obs.resets {
		if r != ResetSession {
			t.Errorf("Expected session reset reason, got %q", r)
		}
	}
	if fb.created != 3 {
		t.Errorf("Expected 3 sessions (initial + 2 resets), got %d", fb.created)
	}
	if len(fb.visits) != 3 {
		t.Errorf("Expected 3 navigation attempts, got %d", len(fb.visits))
	}

	results := store.last()
	if len(results) != 1 {
		t.Fatalf("Expected 1 saved result, got %d", len(results))
	}
	if results[0].Error != "Invalid session ID after 2 retries" {
		t.Errorf("Unexpected error message %q", results[0].Error)
	}
	if summary.Errors != 1 {
		t.Errorf("Expected 1 error in summary, got %d", summary.Errors)
	}
}

func TestOrchestrator_BrowserMessageRetriedKeepsMessage(t *testing.T) {
	fb := &fakeBrowser{
		navigate: func(ctx context.Context, url string) error {
			return errors.New("browser crashed unexpectedly")
		},
	}
	obs := &recordingObserver{}
	o := NewOrchestrator(Config{MaxRetries: 1}, fb.factory(), nil, nil, nil).WithObserver(obs)

	summary, err := o.Run(context.Background(), []string{"https://x.example/"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(obs.resets) != 1 {
		t.Errorf("Expected 1 session reset, got %v", obs.resets)
	}
	if got := summary.Results[0].Error; got != "browser crashed unexpectedly" {
		t.Errorf("Expected original message, got %q", got)
	}
}

func TestOrchestrator_CaptchaStillExtracts(t *testing.T) {
	url := "https://shop.example/register"
	fb := &fakeBrowser{pages: map[string]string{url: captchaPage}}
	obs := &recordingObserver{}
	o := NewOrchestrator(testConfig(), fb.factory(), nil, nil, nil).WithObserver(obs)

	summary, err := o.Run(context.Background(), []string{url})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	result := summary.Results[0]
	if !result.HasCaptcha {
		t.Error("Expected has_captcha=true")
	}
	if result.Error != "" {
		t.Errorf("Expected no error, got %q", result.Error)
	}
	if !result.Fields[scraper.Email].Found {
		t.Error("Expected Email to be found despite the CAPTCHA")
	}
	if !result.Fields[scraper.FirstName].Found {
		t.Error("Expected FirstName to be found despite the CAPTCHA")
	}
	if result.Domain != "shop.example" {
		t.Errorf("Expected domain shop.example, got %q", result.Domain)
	}
	if len(obs.captchas) != 1 || obs.captchas[0] != antidetect.RecaptchaV2 {
		t.Errorf("Expected one reCAPTCHA event, got %v", obs.captchas)
	}
	if summary.Captchas != 1 {
		t.Errorf("Expected 1 CAPTCHA page in summary, got %d", summary.Captchas)
	}
}

func TestOrchestrator_CheckpointResume(t *testing.T) {
	dir := t.TempDir()
	checkpoint := filepath.Join(dir, "results.csv"+CheckpointSuffix)
	urls := []string{
		"https://a.example/", "https://b.example/", "https://c.example/",
		"https://d.example/", "https://e.example/",
	}
	if err := os.WriteFile(checkpoint, []byte(urls[0]+"\n"+urls[1]+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fb := &fakeBrowser{}
	config := testConfig()
	config.Checkpoint = checkpoint
	o := NewOrchestrator(config, fb.factory(), nil, nil, nil)

	summary, err := o.Run(context.Background(), urls)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 3 || summary.Skipped != 2 {
		t.Errorf("Expected 3 processed and 2 skipped, got %d and %d", summary.Processed, summary.Skipped)
	}
	if len(fb.visits) != 3 {
		t.Errorf("Expected 3 navigations, got %v", fb.visits)
	}
	for _, v := range fb.visits {
		if v == urls[0] || v == urls[1] {
			t.Errorf("Expected checkpointed URL %s to be skipped", v)
		}
	}

	data, err := os.ReadFile(checkpoint)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Errorf("Expected 5 checkpoint lines (3 new), got %d", len(lines))
	}

	// A second run finds everything done.
	fb2 := &fakeBrowser{}
	summary, err = NewOrchestrator(config, fb2.factory(), nil, nil, nil).Run(context.Background(), urls)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if summary.Processed != 0 || fb2.created != 0 {
		t.Errorf("Expected nothing to do, processed %d, sessions %d", summary.Processed, fb2.created)
	}
}

func TestOrchestrator_BatchesResetSession(t *testing.T) {
	fb := &fakeBrowser{}
	obs := &recordingObserver{}
	store := &memoryStore{}
	config := testConfig()
	config.BatchSize = 2
	o := NewOrchestrator(config, fb.factory(), nil, store, nil).WithObserver(obs)

	urls := []string{"https://1.example/", "https://2.example/", "https://3.example/", "https://4.example/", "https://5.example/"}
	if _, err := o.Run(context.Background(), urls); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(obs.resets) != 2 || obs.resets[0] != ResetBatch || obs.resets[1] != ResetBatch {
		t.Errorf("Expected 2 batch resets, got %v", obs.resets)
	}
	if fb.created != 3 {
		t.Errorf("Expected a session per batch, got %d", fb.created)
	}
	if len(obs.batches) != 3 || obs.batches[2] != 1 {
		t.Errorf("Expected batches of 2,2,1, got %v", obs.batches)
	}
	if len(store.saves) != 4 {
		t.Errorf("Expected a save per batch plus a final save, got %d", len(store.saves))
	}
	if len(store.last()) != 5 {
		t.Errorf("Expected final save to hold 5 results, got %d", len(store.last()))
	}
	if obs.pages != 5 {
		t.Errorf("Expected 5 page events, got %d", obs.pages)
	}
	if obs.pending != 5 {
		t.Errorf("Expected run start with 5 pending URLs, got %d", obs.pending)
	}
}

func TestOrchestrator_Timeout(t *testing.T) {
	fb := &fakeBrowser{
		navigate: func(ctx context.Context, url string) error {
			if strings.Contains(url, "slow") {
				return browser.ErrNavigationTimeout
			}
			return nil
		},
		pages: map[string]string{"https://fast.example/": signupPage},
	}
	obs := &recordingObserver{}
	o := NewOrchestrator(testConfig(), fb.factory(), nil, nil, nil).WithObserver(obs)

	summary, err := o.Run(context.Background(), []string{"https://slow.example/", "https://fast.example/"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := summary.Results[0].Error; got != ErrMsgTimeout {
		t.Errorf("Expected timeout message, got %q", got)
	}
	if len(obs.resets) != 0 {
		t.Errorf("Expected timeouts not to reset the session, got %v", obs.resets)
	}
	if summary.Results[1].Error != "" || !summary.Results[1].Fields[scraper.Email].Found {
		t.Errorf("Expected the next URL to be processed normally, got %+v", summary.Results[1])
	}
}

func TestOrchestrator_SnapshotTimeout(t *testing.T) {
	fb := &fakeBrowser{snapErr: fmt.Errorf("%w: ", browser.ErrNavigationTimeout)}
	obs := &recordingObserver{}
	o := NewOrchestrator(testConfig(), fb.factory(), nil, nil, nil).WithObserver(obs)

	summary, err := o.Run(context.Background(), []string{"https://wedged.example/"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := summary.Results[0].Error; got != ErrMsgTimeout {
		t.Errorf("Expected timeout message, got %q", got)
	}
	if len(obs.resets) != 0 {
		t.Errorf("Expected a snapshot timeout not to reset the session, got %v", obs.resets)
	}
}

func TestOrchestrator_PanicIsolated(t *testing.T) {
	fb := &fakeBrowser{
		navigate: func(ctx context.Context, url string) error {
			if strings.Contains(url, "boom") {
				panic("driver exploded")
			}
			return nil
		},
		pages: map[string]string{"https://ok.example/": signupPage},
	}
	o := NewOrchestrator(testConfig(), fb.factory(), nil, nil, nil)

	summary, err := o.Run(context.Background(), []string{"https://boom.example/", "https://ok.example/"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("Expected both URLs recorded, got %d", summary.Processed)
	}
	if got := summary.Results[0].Error; got != "driver exploded" {
		t.Errorf("Expected panic message as error, got %q", got)
	}
	if summary.Results[1].Error != "" {
		t.Errorf("Expected second URL to succeed, got %q", summary.Results[1].Error)
	}
}

func TestOrchestrator_InterruptFlushes(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fb := &fakeBrowser{
		navigate: func(navCtx context.Context, url string) error {
			if strings.Contains(url, "second") {
				cancel()
				return navCtx.Err()
			}
			return nil
		},
	}
	store := &memoryStore{}
	config := testConfig()
	config.Checkpoint = filepath.Join(dir, "out.csv"+CheckpointSuffix)
	o := NewOrchestrator(config, fb.factory(), nil, store, nil)

	urls := []string{"https://first.example/", "https://second.example/", "https://third.example/"}
	summary, err := o.Run(ctx, urls)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if !summary.Interrupted {
		t.Error("Expected summary to be marked interrupted")
	}
	if len(store.last()) != 1 {
		t.Errorf("Expected the completed result to be flushed, got %d", len(store.last()))
	}

	data, _ := os.ReadFile(config.Checkpoint)
	if strings.TrimSpace(string(data)) != "https://first.example/" {
		t.Errorf("Expected only the first URL checkpointed, got %q", data)
	}
}

func TestOrchestrator_DeadlineBeforeNextSlotStops(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fb := &fakeBrowser{pages: map[string]string{}}
	store := &memoryStore{}
	config := testConfig()
	config.Delay = time.Hour
	config.Checkpoint = filepath.Join(dir, "out.csv"+CheckpointSuffix)
	o := NewOrchestrator(config, fb.factory(), nil, store, nil)

	urls := []string{"https://first.example/", "https://second.example/", "https://third.example/"}
	summary, err := o.Run(ctx, urls)
	if err == nil {
		t.Fatal("Expected the run to stop when the limiter cannot wait")
	}
	if !summary.Interrupted {
		t.Error("Expected summary to be marked interrupted")
	}
	if len(fb.visits) != 1 {
		t.Errorf("Expected 1 navigation, got %v", fb.visits)
	}
	if len(store.last()) != 1 {
		t.Errorf("Expected the completed result to be flushed, got %d", len(store.last()))
	}

	data, _ := os.ReadFile(config.Checkpoint)
	if strings.TrimSpace(string(data)) != "https://first.example/" {
		t.Errorf("Expected only the first URL checkpointed, got %q", data)
	}
}

func TestOrchestrator_SessionStartFailure(t *testing.T) {
	factory := browser.FactoryFunc(func(ctx context.Context) (browser.Session, error) {
		return nil, errors.New("chrome not found")
	})
	o := NewOrchestrator(testConfig(), factory, nil, nil, nil)

	if _, err := o.Run(context.Background(), []string{"https://a.example/"}); err == nil {
		t.Fatal("Expected run to fail when no session can start")
	}
}

func TestSummary_Write(t *testing.T) {
	r1 := scraper.NewPageResult("https://a.example/")
	r1.HasCaptcha = true
	r2 := scraper.NewPageResult("https://b.example/")
	r2.Error = ErrMsgTimeout
	r2.AdditionalFields = []scraper.AdditionalField{{Name: "promo code"}}

	s := (&Summary{Total: 2}).finish([]*scraper.PageResult{r1, r2}, time.Now())
	var b strings.Builder
	s.Write(&b, "out.csv")

	out := b.String()
	for _, want := range []string{
		"Total URLs processed: 2",
		"Forms with CAPTCHAs: 1",
		"Forms with additional fields: 1",
		"Errors encountered: 1",
		"Results saved to: out.csv",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected summary to contain %q, got:\n%s", want, out)
		}
	}
}
