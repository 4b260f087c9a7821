// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

// Package retry runs network operations with a bounded number of attempts and
// a linear backoff between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zhaopengme/transclaw/pkg/logger"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 5 * time.Second
)

// ErrExhausted is wrapped by every error returned after the last attempt failed.
var ErrExhausted = errors.New("retries exhausted")

// Policy waits BaseDelay*k after the k-th failed attempt.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration

	// OnRetry is called before each wait. Optional.
	OnRetry func(op string, attempt int, err error)
	// OnExhausted is called once when all attempts failed. Optional.
	OnExhausted func(op string, err error)
}

func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, ctx is done, or
// the policy runs out of attempts.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, fmt.Errorf("%s: %w", op, ctxErr)
		}
		lastErr = err

		logger.WarnCF("retry", "Operation failed", map[string]interface{}{
			"op":       op,
			"attempt":  attempt,
			"attempts": attempts,
			"error":    err.Error(),
		})

		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(op, attempt, err)
		}
		if err := sleep(ctx, p.BaseDelay*time.Duration(attempt)); err != nil {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
	}

	if p.OnExhausted != nil {
		p.OnExhausted(op, lastErr)
	}
	return zero, fmt.Errorf("%s: %w after %d attempts: %w", op, ErrExhausted, attempts, lastErr)
}

// Run is Do for operations without a result value.
func Run(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
