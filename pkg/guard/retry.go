// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryableError marks an attempt whose result should not be trusted and
// may be retried.
type RetryableError struct {
	Reason string
	Cause  error
}

func (e *RetryableError) Error() string {
	if e.Cause != nil {
		return "retryable: " + e.Reason + ": " + e.Cause.Error()
	}
	return "retryable: " + e.Reason
}

func (e *RetryableError) Unwrap() error { return e.Cause }

// Retryable wraps cause as a RetryableError.
func Retryable(reason string, cause error) error {
	return &RetryableError{Reason: reason, Cause: cause}
}

// RetryOption configures Retry.
type RetryOption func(*retryOptions)

type retryOptions struct {
	delay       time.Duration
	description string
	logger      *slog.Logger
}

// WithDelay sets the pause between attempts.
func WithDelay(d time.Duration) RetryOption {
	return func(o *retryOptions) { o.delay = d }
}

// WithDescription names the operation in log lines.
func WithDescription(desc string) RetryOption {
	return func(o *retryOptions) { o.description = desc }
}

// WithLogger sets the logger used for retry messages.
func WithLogger(l *slog.Logger) RetryOption {
	return func(o *retryOptions) { o.logger = l }
}

// Retry runs op up to 1+maxRetries times. The interrupt signal attached to
// ctx is cleared before every attempt; once it is stopped, Retry returns def
// and ErrStopped without another attempt. Only *RetryableError triggers
// another attempt; any other error is returned at once. When attempts are
// exhausted, def is returned with a nil error.
func Retry[T any](ctx context.Context, op func(context.Context) (T, error), maxRetries int, def T,
	opts ...RetryOption) (T, error) {

	o := retryOptions{description: "operation", logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	intr := InterruptFrom(ctx)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 && o.delay > 0 {
			timer := time.NewTimer(o.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return def, ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return def, err
		}
		if intr != nil {
			if intr.Stopped() {
				return def, ErrStopped
			}
			intr.Clear()
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var re *RetryableError
		if !errors.As(err, &re) {
			return def, err
		}
		retryAttempts.WithLabelValues(o.description).Inc()
		o.logger.Debug("attempt will be retried",
			"operation", o.description,
			"attempt", attempt+1,
			"maxRetries", maxRetries,
			"reason", re.Reason)
	}

	retryExhausted.WithLabelValues(o.description).Inc()
	o.logger.Debug("retries exhausted", "operation", o.description, "maxRetries", maxRetries)
	return def, nil
}
