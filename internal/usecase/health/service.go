package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional provider is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the review store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 3 * time.Second

type component struct {
	name     string
	required bool // failure makes the service Unhealthy
	check    func(ctx context.Context) error
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs component checks concurrently, each under its own timeout.
type Service struct {
	components []component
	timeout    time.Duration
}

// New creates a Service whose only required component is the database.
func New(db DBPinger) *Service {
	return &Service{
		components: []component{{name: "database", required: true, check: db.Ping}},
		timeout:    DefaultCheckTimeout,
	}
}

// WithChecker adds an optional named check. A nil checker is ignored.
func (s *Service) WithChecker(name string, c Checker) *Service {
	if c != nil {
		s.components = append(s.components, component{name: name, check: c.HealthCheck})
	}
	return s
}

// WithTimeout overrides the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs every component check and folds the results into one status.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	checks := make(map[string]CheckResult, len(s.components))
	status := Healthy

	for _, c := range s.components {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			err := c.check(cctx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				checks[c.name] = CheckOK
				return nil
			}
			checks[c.name] = CheckError
			switch {
			case c.required:
				status = Unhealthy
			case status == Healthy:
				status = Degraded
			}
			return nil
		})
	}
	_ = g.Wait() // checks never return errors, failures land in the report

	return Report{Status: status, Checks: checks}
}
