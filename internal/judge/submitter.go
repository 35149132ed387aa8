package judge

import (
	"context"
	"time"

	appErr "codeverse/pkg/errors"
	"codeverse/pkg/utils/logger"
	"go.uber.org/zap"
)

const defaultSubmitRetries = 3

// SleepFunc waits for d or until ctx is done. Tests substitute a recorder.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep is the production SleepFunc.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SubmitBackoff returns the wait before retrying a rate-limited batch
// creation: 2s, 4s, 8s for retries 0, 1, 2.
func SubmitBackoff(retry int) time.Duration {
	return time.Duration(1<<(retry+1)) * time.Second
}

// Submitter creates judge batches, retrying when the judge rate-limits.
type Submitter struct {
	client     Client
	maxRetries int
	sleep      SleepFunc
}

// SubmitterOption customizes a Submitter.
type SubmitterOption func(*Submitter)

// WithSubmitRetries overrides the rate-limit retry budget.
func WithSubmitRetries(n int) SubmitterOption {
	return func(s *Submitter) { s.maxRetries = n }
}

// WithSubmitSleep overrides the wait implementation.
func WithSubmitSleep(sleep SleepFunc) SubmitterOption {
	return func(s *Submitter) { s.sleep = sleep }
}

// NewSubmitter creates a Submitter with a 3-retry budget.
func NewSubmitter(client Client, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		client:     client,
		maxRetries: defaultSubmitRetries,
		sleep:      ContextSleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a batch and returns one token per item. A rate-limited
// creation is retried with exponential backoff; any other judge failure
// aborts immediately.
func (s *Submitter) Submit(ctx context.Context, items []BatchItem) ([]string, error) {
	if len(items) == 0 {
		return nil, appErr.New(appErr.JudgeEmptyBatch).WithMessage("batch has no test cases")
	}

	for retry := 0; ; retry++ {
		tokens, err := s.client.CreateBatch(ctx, items)
		if err == nil {
			if len(tokens) == 0 {
				return nil, appErr.New(appErr.JudgeEmptyBatch).WithMessage("judge returned no tokens")
			}
			return tokens, nil
		}
		if !IsRateLimited(err) {
			return nil, appErr.Wrapf(err, appErr.JudgeUnavailable, "create batch failed")
		}
		if retry >= s.maxRetries {
			return nil, appErr.Wrapf(err, appErr.JudgeRateLimited, "judge rate limit persisted")
		}

		wait := SubmitBackoff(retry)
		logger.Warn(ctx, "judge rate limited, retrying batch creation",
			zap.Int("retry", retry+1),
			zap.Duration("wait", wait))
		if err := s.sleep(ctx, wait); err != nil {
			return nil, appErr.Wrapf(err, appErr.Timeout, "submit wait interrupted")
		}
	}
}
