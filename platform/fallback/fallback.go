// Package fallback runs an ordered list of attempts and keeps the first
// acceptable result. Attempts run strictly one after another; an attempt that
// errors or yields a rejected value hands over to the next one.
package fallback

import (
	"context"
	"time"

	"arrume_backend/platform/logger"
)

// Attempt produces a candidate value.
type Attempt[T any] func(ctx context.Context) (T, error)

type step[T any] struct {
	name    string
	timeout time.Duration
	run     Attempt[T]
}

// Chain is built once and may then be Run from many goroutines.
type Chain[T any] struct {
	name   string
	steps  []step[T]
	reject func(T) bool
	log    *logger.Logger
}

// Result is the outcome of Run. Step is "" when every attempt failed and the
// default value was returned.
type Result[T any] struct {
	Value T
	Step  string
}

// New creates an empty chain. reject decides whether a successful attempt's
// value is still unusable (for example an empty slice); nil accepts all.
func New[T any](name string, reject func(T) bool, log *logger.Logger) *Chain[T] {
	if reject == nil {
		reject = func(T) bool { return false }
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Chain[T]{name: name, reject: reject, log: log}
}

// Then appends an attempt without its own deadline.
func (c *Chain[T]) Then(name string, run Attempt[T]) *Chain[T] {
	return c.ThenWithin(name, 0, run)
}

// ThenWithin appends an attempt bounded by timeout. Zero means no bound
// beyond the caller's context.
func (c *Chain[T]) ThenWithin(name string, timeout time.Duration, run Attempt[T]) *Chain[T] {
	c.steps = append(c.steps, step[T]{name: name, timeout: timeout, run: run})
	return c
}

// Len returns the number of attempts.
func (c *Chain[T]) Len() int {
	return len(c.steps)
}

// Run executes attempts in order and returns the first accepted value, or
// def when none is accepted or ctx ends.
func (c *Chain[T]) Run(ctx context.Context, def T) Result[T] {
	log := c.log.WithContext(ctx)

	for _, s := range c.steps {
		if err := ctx.Err(); err != nil {
			log.Warn("fallback chain interrupted", "chain", c.name, "step", s.name, "error", err)
			break
		}

		value, err := c.runStep(ctx, s)
		if err != nil {
			log.Warn("fallback attempt failed", "chain", c.name, "step", s.name, "error", err)
			continue
		}
		if c.reject(value) {
			log.Debug("fallback attempt produced no usable result", "chain", c.name, "step", s.name)
			continue
		}

		return Result[T]{Value: value, Step: s.name}
	}

	return Result[T]{Value: def}
}

func (c *Chain[T]) runStep(ctx context.Context, s step[T]) (T, error) {
	if s.timeout <= 0 {
		return s.run(ctx)
	}
	stepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.run(stepCtx)
}
