// Package metrics keeps a handful of in-process counters surfaced by the
// admin metrics endpoint. It is intentionally not a metrics pipeline:
// one process, atomic counters, JSON snapshot.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"
)

type Collector struct {
	requests   atomic.Uint64
	errors     atomic.Uint64
	throttled  atomic.Uint64
	durationMs atomic.Uint64
	runs       atomic.Uint64
	payslips   atomic.Uint64
}

func New() *Collector {
	return &Collector{}
}

// Record accounts one finished HTTP request.
func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.Add(1)
	c.durationMs.Add(uint64(duration.Milliseconds()))
	switch {
	case status == http.StatusTooManyRequests:
		c.throttled.Add(1)
	case status >= http.StatusInternalServerError:
		c.errors.Add(1)
	}
}

func (c *Collector) IncPayrollRun() {
	c.runs.Add(1)
}

func (c *Collector) IncPayslipRendered() {
	c.payslips.Add(1)
}

// Snapshot returns the counters plus a derived average latency.
func (c *Collector) Snapshot() map[string]any {
	requests := c.requests.Load()
	durationMs := c.durationMs.Load()
	var avg float64
	if requests > 0 {
		avg = float64(durationMs) / float64(requests)
	}
	return map[string]any{
		"requestsTotal":         requests,
		"errorsTotal":           c.errors.Load(),
		"rateLimitedTotal":      c.throttled.Load(),
		"avgDurationMs":         avg,
		"totalDurationMs":       durationMs,
		"payrollRunsTotal":      c.runs.Load(),
		"payslipsRenderedTotal": c.payslips.Load(),
	}
}
