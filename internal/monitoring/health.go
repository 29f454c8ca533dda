// internal/monitoring/health.go
package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// DefaultCheckTimeout bounds a single health check
const DefaultCheckTimeout = 5 * time.Second

// HealthCheck is a named probe. Critical checks make the whole process
// unhealthy when they fail; the others only degrade it.
type HealthCheck struct {
	Name      string
	Critical  bool
	Timeout   time.Duration
	CheckFunc func(ctx context.Context) HealthCheckResult
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status   HealthStatus           `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Duration time.Duration          `json:"duration"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SystemHealth represents overall health information
type SystemHealth struct {
	Status    HealthStatus                 `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Uptime    string                       `json:"uptime"`
	Checks    map[string]HealthCheckResult `json:"checks"`
}

// HealthManager runs registered checks on demand
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]*HealthCheck
	started time.Time
}

// NewHealthManager creates a health manager with no checks
func NewHealthManager() *HealthManager {
	return &HealthManager{
		checks:  make(map[string]*HealthCheck),
		started: time.Now(),
	}
}

// RegisterCheck adds or replaces a check
func (hm *HealthManager) RegisterCheck(check *HealthCheck) {
	if check.Timeout == 0 {
		check.Timeout = DefaultCheckTimeout
	}
	hm.mu.Lock()
	hm.checks[check.Name] = check
	hm.mu.Unlock()
}

// Names returns the registered check names in order
func (hm *HealthManager) Names() []string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	names := make([]string, 0, len(hm.checks))
	for name := range hm.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs every check concurrently and aggregates the result
func (hm *HealthManager) Check(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	checks := make([]*HealthCheck, 0, len(hm.checks))
	for _, c := range hm.checks {
		checks = append(checks, c)
	}
	hm.mu.RUnlock()

	results := make(map[string]HealthCheckResult, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(c *HealthCheck) {
			defer wg.Done()
			r := runCheck(ctx, c)
			mu.Lock()
			results[c.Name] = r
			mu.Unlock()
		}(check)
	}
	wg.Wait()

	status := HealthStatusHealthy
	for _, c := range checks {
		switch results[c.Name].Status {
		case HealthStatusHealthy:
		case HealthStatusUnhealthy:
			if c.Critical {
				status = HealthStatusUnhealthy
			} else if status == HealthStatusHealthy {
				status = HealthStatusDegraded
			}
		default:
			if status == HealthStatusHealthy {
				status = HealthStatusDegraded
			}
		}
	}

	return SystemHealth{
		Status:    status,
		Timestamp: time.Now(),
		Uptime:    time.Since(hm.started).Round(time.Second).String(),
		Checks:    results,
	}
}

func runCheck(ctx context.Context, check *HealthCheck) HealthCheckResult {
	if check.CheckFunc == nil {
		return HealthCheckResult{Status: HealthStatusUnknown, Message: "No check function defined"}
	}
	ctx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	start := time.Now()
	result := check.CheckFunc(ctx)
	result.Duration = time.Since(start)
	return result
}

// PingHealthCheck reports the reachability of a store. It is critical:
// results cannot be saved without it.
func PingHealthCheck(name string, ping func(ctx context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:     name,
		Critical: true,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			if err := ping(ctx); err != nil {
				return HealthCheckResult{
					Status:  HealthStatusUnhealthy,
					Message: "Connection failed",
					Error:   err.Error(),
				}
			}
			return HealthCheckResult{Status: HealthStatusHealthy, Message: "Connection successful"}
		},
	}
}

// ErrorRateHealthCheck degrades once at least minPages pages were
// processed and more than maxRatio of them recorded an error
func ErrorRateHealthCheck(metrics *Metrics, minPages int, maxRatio float64) *HealthCheck {
	return &HealthCheck{
		Name: "error_rate",
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			p := metrics.Progress()
			metadata := map[string]interface{}{
				"processed": p.Processed,
				"errors":    p.Errors,
			}
			if p.Processed < minPages {
				return HealthCheckResult{Status: HealthStatusHealthy, Message: "Not enough pages processed", Metadata: metadata}
			}
			ratio := float64(p.Errors) / float64(p.Processed)
			metadata["ratio"] = ratio
			if ratio > maxRatio {
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  fmt.Sprintf("High page error rate: %.0f%%", ratio*100),
					Metadata: metadata,
				}
			}
			return HealthCheckResult{
				Status:   HealthStatusHealthy,
				Message:  fmt.Sprintf("Page error rate: %.0f%%", ratio*100),
				Metadata: metadata,
			}
		},
	}
}

// GoroutineHealthCheck creates a goroutine count health check
func GoroutineHealthCheck(maxGoroutines int) *HealthCheck {
	return &HealthCheck{
		Name: "goroutines",
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			count := runtime.NumGoroutine()
			metadata := map[string]interface{}{
				"goroutine_count": count,
				"max_allowed":     maxGoroutines,
			}
			if count > maxGoroutines {
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  fmt.Sprintf("High goroutine count: %d", count),
					Metadata: metadata,
				}
			}
			return HealthCheckResult{
				Status:   HealthStatusHealthy,
				Message:  fmt.Sprintf("Goroutine count normal: %d", count),
				Metadata: metadata,
			}
		},
	}
}
