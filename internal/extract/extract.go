// Package extract mediates every call to the extraction service: rate
// limiting, retries, response parsing, and failure bookkeeping. Failures
// are recorded for end-of-run reporting, never raised; a failed unit
// simply yields no records.
package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meridian-legal/casebook-cli/internal/model"
	"github.com/meridian-legal/casebook-cli/internal/ratelimit"
	"github.com/meridian-legal/casebook-cli/internal/resilience"
)

// Service is a text completion backend. Implementations wrap a concrete
// provider and surface rate-limit signals as resilience.RateLimitError.
type Service interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config controls the gateway's retry budget and pacing.
type Config struct {
	// MaxAttempts caps transport-error attempts. Rate-limit rejections do
	// not count against it.
	MaxAttempts int
	// RetryDelay is the wait between transport retries, and the fallback
	// wait after a rate-limit rejection carrying no hint.
	RetryDelay time.Duration
	// Timeout bounds a single service call.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}

// Gateway is the single path between the pipeline and the extraction
// service.
type Gateway struct {
	svc     Service
	limiter *ratelimit.Limiter
	cfg     Config
	errs    []model.UnitError

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// NewGateway wires a service behind the shared rate limiter.
func NewGateway(svc Service, limiter *ratelimit.Limiter, cfg Config) *Gateway {
	return &Gateway{
		svc:     svc,
		limiter: limiter,
		cfg:     cfg.withDefaults(),
		sleep:   wait,
		now:     time.Now,
	}
}

// Extract runs one unit's prompt through the service and returns whatever
// case fragments come back. Transport exhaustion and undecodable responses
// are recorded against the unit and yield an empty result.
func (g *Gateway) Extract(ctx context.Context, unit int, prompt string) []model.CandidateRecord {
	raw, attempts, err := g.complete(ctx, prompt)
	if err != nil {
		g.record(unit, model.StageExtract, err.Error(), attempts)
		return nil
	}

	records, err := ParseRecords(raw)
	if err != nil {
		g.record(unit, model.StageParse, err.Error(), attempts)
		return nil
	}
	for i := range records {
		records[i].SourceUnit = unit
	}
	return records
}

// complete issues the request with the two retry tracks: rate-limit
// rejections wait (service hint if one was given) and retry without
// consuming an attempt; transport errors consume attempts up to the cap.
func (g *Gateway) complete(ctx context.Context, prompt string) (string, int, error) {
	attempts := 0
	var lastErr error

	for attempts < g.cfg.MaxAttempts {
		if err := g.limiter.Admit(ctx); err != nil {
			return "", attempts, err
		}

		cctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		out, err := g.svc.Complete(cctx, prompt)
		cancel()
		if err == nil {
			return out, attempts, nil
		}

		if hint, ok := resilience.AsRateLimit(err); ok {
			delay := g.cfg.RetryDelay
			if hint > 0 {
				delay = hint
			}
			zap.L().Warn("extract: rate limited, backing off",
				zap.Duration("delay", delay))
			if serr := g.sleep(ctx, delay); serr != nil {
				return "", attempts, serr
			}
			continue
		}

		attempts++
		lastErr = err
		if attempts >= g.cfg.MaxAttempts {
			break
		}
		zap.L().Debug("extract: transient failure, retrying",
			zap.Int("attempt", attempts),
			zap.Error(err))
		if serr := g.sleep(ctx, g.cfg.RetryDelay); serr != nil {
			return "", attempts, serr
		}
	}

	return "", attempts, eris.Wrap(lastErr, "extract: attempts exhausted")
}

func (g *Gateway) record(unit int, stage, reason string, attempts int) {
	g.errs = append(g.errs, model.UnitError{
		Unit:     unit,
		Stage:    stage,
		Reason:   reason,
		Attempts: attempts,
		At:       g.now(),
	})
	zap.L().Warn("extract: unit failed",
		zap.Int("unit", unit),
		zap.String("stage", stage),
		zap.String("reason", reason))
}

// Errors returns the failures recorded so far, in occurrence order.
func (g *Gateway) Errors() []model.UnitError {
	return g.errs
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
