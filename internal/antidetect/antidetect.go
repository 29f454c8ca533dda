// internal/antidetect/antidetect.go
package antidetect

import (
	"math/rand"
	"net/http"
	"sync"
)

// UserAgentRotator rotates user agents
type UserAgentRotator struct {
	agents []string
	mu     sync.RWMutex
	index  int
}

// NewUserAgentRotator creates a new user agent rotator
func NewUserAgentRotator(agents []string) *UserAgentRotator {
	if len(agents) == 0 {
		agents = DefaultUserAgents()
	}
	return &UserAgentRotator{
		agents: append([]string(nil), agents...),
	}
}

// GetNext returns the next user agent
func (r *UserAgentRotator) GetNext() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent := r.agents[r.index]
	r.index = (r.index + 1) % len(r.agents)
	return agent
}

// GetRandom returns a random user agent
func (r *UserAgentRotator) GetRandom() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.agents[rand.Intn(len(r.agents))]
}

// HeaderRotator builds browser-like request headers for plain HTTP fetches
type HeaderRotator struct {
	userAgentRotator *UserAgentRotator
}

// NewHeaderRotator creates a header rotator drawing from the given agents
func NewHeaderRotator(agents []string) *HeaderRotator {
	return &HeaderRotator{
		userAgentRotator: NewUserAgentRotator(agents),
	}
}

// GetHeaders returns a set of headers
func (hr *HeaderRotator) GetHeaders() http.Header {
	headers := make(http.Header)

	headers.Set("User-Agent", hr.userAgentRotator.GetNext())
	headers.Set("Accept", getRandomAccept())
	headers.Set("Accept-Language", getRandomAcceptLanguage())
	headers.Set("DNT", "1")
	headers.Set("Upgrade-Insecure-Requests", "1")

	return headers
}

// StealthScript hides the most common automation markers. It must run
// before any page script.
const StealthScript = `(() => {
  Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
  if (!window.chrome) { window.chrome = { runtime: {} }; }
  Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
})();`

// DefaultUserAgents returns the built-in desktop user agents
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

func getRandomAccept() string {
	accepts := []string{
		"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	}
	return accepts[rand.Intn(len(accepts))]
}

func getRandomAcceptLanguage() string {
	languages := []string{
		"en-US,en;q=0.9",
		"en-GB,en;q=0.9",
		"en-US,en;q=0.9,fr;q=0.8",
		"en-US,en;q=0.9,de;q=0.8",
	}
	return languages[rand.Intn(len(languages))]
}
