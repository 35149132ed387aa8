package judge

import (
	"context"
	"fmt"
	"testing"
	"time"

	appErr "codeverse/pkg/errors"
)

func TestSubmitterRetriesRateLimitWithBackoff(t *testing.T) {
	client := &fakeClient{
		createErrs: []error{rateLimited(), rateLimited(), nil},
		tokens:     []string{"a", "b"},
	}
	recorder := &sleepRecorder{}
	submitter := NewSubmitter(client, WithSubmitSleep(recorder.sleep))

	tokens, err := submitter.Submit(context.Background(), []BatchItem{{LanguageID: 71}})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}
	if client.createCalls != 3 {
		t.Errorf("expected 3 create calls, got %d", client.createCalls)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(recorder.waits) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), recorder.waits)
	}
	for i, wait := range want {
		if recorder.waits[i] != wait {
			t.Errorf("wait %d: expected %v, got %v", i, wait, recorder.waits[i])
		}
	}
}

func TestSubmitterGivesUpAfterRetryBudget(t *testing.T) {
	client := &fakeClient{
		createErrs: []error{rateLimited(), rateLimited(), rateLimited(), rateLimited()},
	}
	recorder := &sleepRecorder{}
	submitter := NewSubmitter(client, WithSubmitSleep(recorder.sleep))

	_, err := submitter.Submit(context.Background(), []BatchItem{{LanguageID: 71}})
	if appErr.GetCode(err) != appErr.JudgeRateLimited {
		t.Fatalf("expected JudgeRateLimited, got %v", err)
	}
	if client.createCalls != 4 {
		t.Errorf("expected 4 create calls (1 + 3 retries), got %d", client.createCalls)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(recorder.waits) != len(want) {
		t.Fatalf("expected waits %v, got %v", want, recorder.waits)
	}
	for i, wait := range want {
		if recorder.waits[i] != wait {
			t.Errorf("wait %d: expected %v, got %v", i, wait, recorder.waits[i])
		}
	}
}

func TestSubmitterFailsFastOnOtherErrors(t *testing.T) {
	client := &fakeClient{
		createErrs: []error{fmt.Errorf("connection refused")},
	}
	recorder := &sleepRecorder{}
	submitter := NewSubmitter(client, WithSubmitSleep(recorder.sleep))

	_, err := submitter.Submit(context.Background(), []BatchItem{{LanguageID: 71}})
	if appErr.GetCode(err) != appErr.JudgeUnavailable {
		t.Fatalf("expected JudgeUnavailable, got %v", err)
	}
	if client.createCalls != 1 {
		t.Errorf("expected 1 create call, got %d", client.createCalls)
	}
	if len(recorder.waits) != 0 {
		t.Errorf("expected no waits, got %v", recorder.waits)
	}
}

func TestSubmitterRejectsEmptyBatch(t *testing.T) {
	submitter := NewSubmitter(&fakeClient{})

	_, err := submitter.Submit(context.Background(), nil)
	if appErr.GetCode(err) != appErr.JudgeEmptyBatch {
		t.Fatalf("expected JudgeEmptyBatch, got %v", err)
	}
}

func TestSubmitterRejectsEmptyTokenResponse(t *testing.T) {
	submitter := NewSubmitter(&fakeClient{tokens: []string{}})

	_, err := submitter.Submit(context.Background(), []BatchItem{{LanguageID: 71}})
	if appErr.GetCode(err) != appErr.JudgeEmptyBatch {
		t.Fatalf("expected JudgeEmptyBatch, got %v", err)
	}
}

func TestSubmitBackoff(t *testing.T) {
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
	}
	for _, tc := range cases {
		if got := SubmitBackoff(tc.retry); got != tc.want {
			t.Errorf("SubmitBackoff(%d) = %v, want %v", tc.retry, got, tc.want)
		}
	}
}
