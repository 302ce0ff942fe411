// Package health runs registered dependency probes concurrently and serves
// the aggregate as liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status is the verdict for one component or the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// rank orders statuses from healthiest to worst.
func (s Status) rank() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check probes one dependency.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth is one probe result. ElapsedMS is filled in by the
// Checker.
type ComponentHealth struct {
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Report aggregates all probe results. The overall status is the worst
// component status.
type Report struct {
	Status    Status                     `json:"status"`
	Checks    map[string]ComponentHealth `json:"checks"`
	CheckedAt time.Time                  `json:"checked_at"`
}

// probeTimeout bounds one readiness pass; a stuck dependency turns into a
// degraded report instead of a hung probe.
const probeTimeout = 5 * time.Second

type namedCheck struct {
	name  string
	check Check
}

// Checker holds the registered probes. Register during startup, then serve
// the handlers; registration is not synchronized against Run.
type Checker struct {
	checks []namedCheck
}

func NewChecker() *Checker {
	return &Checker{}
}

// Register adds a probe under the given name. Later registrations with the
// same name are kept as separate probes; use distinct names.
func (c *Checker) Register(name string, check Check) {
	c.checks = append(c.checks, namedCheck{name: name, check: check})
}

// Run executes every probe concurrently and aggregates the verdicts.
func (c *Checker) Run(ctx context.Context) Report {
	report := Report{
		Status:    StatusUp,
		Checks:    make(map[string]ComponentHealth, len(c.checks)),
		CheckedAt: time.Now().UTC(),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, nc := range c.checks {
		nc := nc
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			result := nc.check(ctx)
			result.ElapsedMS = time.Since(start).Milliseconds()
			mu.Lock()
			report.Checks[nc.name] = result
			if result.Status.rank() > report.Status.rank() {
				report.Status = result.Status
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	return report
}

// LiveHandler answers liveness probes. It only proves the process serves
// HTTP; dependency state belongs to readiness.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeReport(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers readiness probes by running every registered check.
// Anything short of fully up returns 503 so the instance is pulled from
// rotation.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		report := c.Run(ctx)
		status := http.StatusOK
		if report.Status != StatusUp {
			status = http.StatusServiceUnavailable
		}
		writeReport(w, status, report)
	}
}

func writeReport(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
