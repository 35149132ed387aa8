package judge

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// fakeClient scripts per-call responses for Submitter and Poller tests.
type fakeClient struct {
	createCalls int
	createErrs  []error
	tokens      []string

	getCalls   int
	getBatches [][]Result
	getErrs    []error
}

func (f *fakeClient) CreateBatch(_ context.Context, _ []BatchItem) ([]string, error) {
	call := f.createCalls
	f.createCalls++
	if call < len(f.createErrs) && f.createErrs[call] != nil {
		return nil, f.createErrs[call]
	}
	return f.tokens, nil
}

func (f *fakeClient) GetBatch(_ context.Context, _ []string) ([]Result, error) {
	call := f.getCalls
	f.getCalls++
	if call < len(f.getErrs) && f.getErrs[call] != nil {
		return nil, f.getErrs[call]
	}
	if call < len(f.getBatches) {
		return f.getBatches[call], nil
	}
	if len(f.getBatches) == 0 {
		return nil, fmt.Errorf("no scripted batch for call %d", call)
	}
	return f.getBatches[len(f.getBatches)-1], nil
}

// sleepRecorder captures requested waits instead of sleeping.
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func rateLimited() error {
	return &StatusError{StatusCode: http.StatusTooManyRequests, Body: "too many requests"}
}

func terminalBatch(statusIDs ...int) []Result {
	results := make([]Result, 0, len(statusIDs))
	for i, id := range statusIDs {
		results = append(results, Result{
			Token:  fmt.Sprintf("tok-%d", i),
			Status: ResultStatus{ID: id},
		})
	}
	return results
}
