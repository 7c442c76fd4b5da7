package health

import "context"

// DBPinger checks review store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an optional provider (embedding, synthesis).
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// HealthCheck calls f.
func (f CheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
