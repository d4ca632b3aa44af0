package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Proton-105/interview-coach/internal/health"
)

const defaultProbeTimeout = 3 * time.Second

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	// Readiness returns the status of every dependency and an error when
	// any of them is down.
	Readiness(ctx context.Context) (map[string]string, error)
}

// Probes answers the probes from a health.Checker. Liveness only reports
// that the process serves requests.
type Probes struct {
	checker *health.Checker
	timeout time.Duration
	log     *slog.Logger
}

// NewProbes creates a new Probes instance.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, timeout: defaultProbeTimeout, log: log}
}

func (p *Probes) Liveness(ctx context.Context) error {
	p.log.Debug("liveness probe called")
	return ctx.Err()
}

func (p *Probes) Readiness(ctx context.Context) (map[string]string, error) {
	if p.checker == nil {
		return map[string]string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := p.checker.Check(ctx)

	var failing []string
	for name, status := range results {
		if status != health.StatusOK {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		return results, fmt.Errorf("not ready: %s", strings.Join(failing, ", "))
	}
	return results, nil
}
