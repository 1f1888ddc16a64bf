package ai

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"pdf-chat-backend/internal/logger"
)

// StateChangeFunc observes circuit breaker transitions.
type StateChangeFunc func(name, from, to string)

// GuardSettings configures a Guard.
type GuardSettings struct {
	Name string

	// RequestsPerMinute caps outgoing calls; zero disables client-side limiting.
	RequestsPerMinute int

	// Breaker tuning; zero values fall back to the defaults below.
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	MinRequests   uint32
	FailureRatio  float64
	OnStateChange StateChangeFunc
}

// Guard protects an upstream provider with a circuit breaker and a rate limiter.
type Guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewGuard(s GuardSettings) *Guard {
	if s.MaxRequests == 0 {
		s.MaxRequests = 5
	}
	if s.Interval == 0 {
		s.Interval = 10 * time.Second
	}
	if s.Timeout == 0 {
		s.Timeout = 60 * time.Second
	}
	if s.MinRequests == 0 {
		s.MinRequests = 3
	}
	if s.FailureRatio == 0 {
		s.FailureRatio = 0.6
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRatio
		},
		// The caller going away says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if s.OnStateChange != nil {
				s.OnStateChange(name, from.String(), to.String())
			}
		},
	})

	var limiter *rate.Limiter
	if s.RequestsPerMinute > 0 {
		burst := s.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(s.RequestsPerMinute)/60.0), burst)
	}

	return &Guard{breaker: breaker, limiter: limiter}
}

// Do runs fn through the limiter and the breaker.
func (g *Guard) Do(ctx context.Context, fn func() (any, error)) (any, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	result, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return result, err
}

// State reports the breaker state name.
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// GuardedEmbedder routes every call of an Embedder through a Guard.
type GuardedEmbedder struct {
	Embedder
	guard *Guard
}

func NewGuardedEmbedder(e Embedder, g *Guard) *GuardedEmbedder {
	return &GuardedEmbedder{Embedder: e, guard: g}
}

func (e *GuardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.guard.Do(ctx, func() (any, error) {
		return e.Embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return res.([]float32), nil
}

func (e *GuardedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := e.guard.Do(ctx, func() (any, error) {
		return e.Embedder.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return res.([][]float32), nil
}

func (e *GuardedEmbedder) Unwrap() any { return e.Embedder }

// GuardedGenerator routes every call of a Generator through a Guard.
type GuardedGenerator struct {
	Generator
	guard *Guard
}

func NewGuardedGenerator(g Generator, guard *Guard) *GuardedGenerator {
	return &GuardedGenerator{Generator: g, guard: guard}
}

func (g *GuardedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := g.guard.Do(ctx, func() (any, error) {
		return g.Generator.Generate(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (g *GuardedGenerator) Unwrap() any { return g.Generator }
