package judge

import (
	"context"
	"time"

	appErr "codeverse/pkg/errors"
	"codeverse/pkg/utils/logger"
	"go.uber.org/zap"
)

const (
	defaultPollAttempts = 30

	// maxPollWait caps the linearly growing wait between polls.
	maxPollWait = 5 * time.Second

	// rateLimitWait is the fixed wait after a rate-limited poll.
	rateLimitWait = 5 * time.Second
)

// PollBackoff returns the wait after a poll that found non-terminal
// results: 1s, 2s, 3s, 4s, then 5s for every later attempt.
func PollBackoff(attempt int) time.Duration {
	wait := time.Duration(attempt+1) * time.Second
	if wait > maxPollWait {
		wait = maxPollWait
	}
	return wait
}

// Poller fetches batch results until every run is terminal or the
// attempt budget runs out.
type Poller struct {
	client      Client
	maxAttempts int
	sleep       SleepFunc
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithPollAttempts overrides the poll attempt budget.
func WithPollAttempts(n int) PollerOption {
	return func(p *Poller) { p.maxAttempts = n }
}

// WithPollSleep overrides the wait implementation.
func WithPollSleep(sleep SleepFunc) PollerOption {
	return func(p *Poller) { p.sleep = sleep }
}

// NewPoller creates a Poller with a 30-attempt budget.
func NewPoller(client Client, opts ...PollerOption) *Poller {
	p := &Poller{
		client:      client,
		maxAttempts: defaultPollAttempts,
		sleep:       ContextSleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll fetches results for tokens until all runs are terminal. Each
// fetch, rate-limited or not, consumes one attempt so the loop always
// terminates; exhausting the budget returns JudgeTimeout with no
// partial results.
func (p *Poller) Poll(ctx context.Context, tokens []string) ([]Result, error) {
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		results, err := p.client.GetBatch(ctx, tokens)
		if err != nil {
			if !IsRateLimited(err) {
				return nil, appErr.Wrapf(err, appErr.JudgeUnavailable, "fetch batch results failed")
			}
			logger.Warn(ctx, "judge rate limited while polling",
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", rateLimitWait))
			if err := p.sleep(ctx, rateLimitWait); err != nil {
				return nil, appErr.Wrapf(err, appErr.Timeout, "poll wait interrupted")
			}
			continue
		}

		if allTerminal(results) {
			return results, nil
		}
		if err := p.sleep(ctx, PollBackoff(attempt)); err != nil {
			return nil, appErr.Wrapf(err, appErr.Timeout, "poll wait interrupted")
		}
	}
	return nil, appErr.Newf(appErr.JudgeTimeout, "judge did not finish within %d attempts", p.maxAttempts)
}

func allTerminal(results []Result) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Terminal() {
			return false
		}
	}
	return true
}
