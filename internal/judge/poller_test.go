package judge

import (
	"context"
	"testing"
	"time"

	appErr "codeverse/pkg/errors"
)

func TestPollerWaitsLinearlyUntilTerminal(t *testing.T) {
	client := &fakeClient{
		getBatches: [][]Result{
			terminalBatch(1, 1),
			terminalBatch(3, 2),
			terminalBatch(3, 3),
		},
	}
	recorder := &sleepRecorder{}
	poller := NewPoller(client, WithPollSleep(recorder.sleep))

	results, err := poller.Poll(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if client.getCalls != 3 {
		t.Errorf("expected 3 poll calls, got %d", client.getCalls)
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(recorder.waits) != len(want) {
		t.Fatalf("expected waits %v, got %v", want, recorder.waits)
	}
	for i, wait := range want {
		if recorder.waits[i] != wait {
			t.Errorf("wait %d: expected %v, got %v", i, wait, recorder.waits[i])
		}
	}
}

func TestPollerTimesOutWithoutPartialResults(t *testing.T) {
	client := &fakeClient{
		getBatches: [][]Result{terminalBatch(1, 1)},
	}
	recorder := &sleepRecorder{}
	poller := NewPoller(client, WithPollSleep(recorder.sleep), WithPollAttempts(4))

	results, err := poller.Poll(context.Background(), []string{"a", "b"})
	if appErr.GetCode(err) != appErr.JudgeTimeout {
		t.Fatalf("expected JudgeTimeout, got %v", err)
	}
	if results != nil {
		t.Errorf("expected no partial results, got %v", results)
	}
	if client.getCalls != 4 {
		t.Errorf("expected 4 poll calls, got %d", client.getCalls)
	}
}

func TestPollerWaitsFixedFiveSecondsWhenRateLimited(t *testing.T) {
	client := &fakeClient{
		getErrs:    []error{rateLimited()},
		getBatches: [][]Result{nil, terminalBatch(3)},
	}
	recorder := &sleepRecorder{}
	poller := NewPoller(client, WithPollSleep(recorder.sleep))

	results, err := poller.Poll(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if len(recorder.waits) != 1 || recorder.waits[0] != 5*time.Second {
		t.Errorf("expected a single 5s wait, got %v", recorder.waits)
	}
}

func TestPollerRateLimitConsumesAttemptBudget(t *testing.T) {
	errs := make([]error, 3)
	for i := range errs {
		errs[i] = rateLimited()
	}
	client := &fakeClient{getErrs: errs}
	recorder := &sleepRecorder{}
	poller := NewPoller(client, WithPollSleep(recorder.sleep), WithPollAttempts(3))

	_, err := poller.Poll(context.Background(), []string{"a"})
	if appErr.GetCode(err) != appErr.JudgeTimeout {
		t.Fatalf("expected JudgeTimeout, got %v", err)
	}
	if client.getCalls != 3 {
		t.Errorf("expected 3 poll calls, got %d", client.getCalls)
	}
}

func TestPollBackoffCapsAtFiveSeconds(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tc := range cases {
		if got := PollBackoff(tc.attempt); got != tc.want {
			t.Errorf("PollBackoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
