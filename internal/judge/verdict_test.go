package judge

import "testing"

func accepted(timeStr string, memory int) Result {
	return Result{Status: ResultStatus{ID: 3}, Time: timeStr, Memory: memory}
}

func TestClassifyAllAccepted(t *testing.T) {
	verdict := Classify([]Result{
		accepted("0.01", 1000),
		accepted("0.02", 1200),
	})

	if verdict.Status != StatusAccepted {
		t.Errorf("expected accepted, got %s", verdict.Status)
	}
	if verdict.TestCasesPassed != 2 {
		t.Errorf("expected 2 passed, got %d", verdict.TestCasesPassed)
	}
	if verdict.Runtime < 0.029 || verdict.Runtime > 0.031 {
		t.Errorf("expected runtime near 0.03, got %f", verdict.Runtime)
	}
	if verdict.Memory != 1200 {
		t.Errorf("expected peak memory 1200, got %d", verdict.Memory)
	}
	if verdict.ErrorMessage != "" {
		t.Errorf("expected empty error message, got %q", verdict.ErrorMessage)
	}
}

func TestClassifyFailureStatuses(t *testing.T) {
	cases := []struct {
		name        string
		result      Result
		wantStatus  VerdictStatus
		wantMessage string
	}{
		{
			name:        "wrong answer default message",
			result:      Result{Status: ResultStatus{ID: 4}},
			wantStatus:  StatusWrong,
			wantMessage: "Wrong Answer",
		},
		{
			name:        "wrong answer with stderr",
			result:      Result{Status: ResultStatus{ID: 4}, Stderr: "expected 3, got 4"},
			wantStatus:  StatusWrong,
			wantMessage: "expected 3, got 4",
		},
		{
			name:        "time limit",
			result:      Result{Status: ResultStatus{ID: 5}},
			wantStatus:  StatusTimeout,
			wantMessage: "Time Limit Exceeded",
		},
		{
			name:        "compile error uses compile output",
			result:      Result{Status: ResultStatus{ID: 6}, CompileOutput: "main.go:3: undefined: foo", Stderr: "ignored"},
			wantStatus:  StatusCompileError,
			wantMessage: "main.go:3: undefined: foo",
		},
		{
			name:        "sigsegv",
			result:      Result{Status: ResultStatus{ID: 7}},
			wantStatus:  StatusRuntimeErrorSIGSEGV,
			wantMessage: "Segmentation Fault",
		},
		{
			name:        "sigxfsz",
			result:      Result{Status: ResultStatus{ID: 8}},
			wantStatus:  StatusRuntimeErrorSIGXFSZ,
			wantMessage: "Output File Too Large",
		},
		{
			name:        "sigfpe",
			result:      Result{Status: ResultStatus{ID: 9}},
			wantStatus:  StatusRuntimeErrorSIGFPE,
			wantMessage: "Floating Point Exception",
		},
		{
			name:        "sigabrt",
			result:      Result{Status: ResultStatus{ID: 10}},
			wantStatus:  StatusRuntimeErrorSIGABRT,
			wantMessage: "Aborted",
		},
		{
			name:        "nzec",
			result:      Result{Status: ResultStatus{ID: 11}, Stderr: "exit status 2"},
			wantStatus:  StatusRuntimeErrorNZEC,
			wantMessage: "exit status 2",
		},
		{
			name:        "other runtime error",
			result:      Result{Status: ResultStatus{ID: 12}},
			wantStatus:  StatusRuntimeErrorOther,
			wantMessage: "Other Runtime Error",
		},
		{
			name:        "internal error uses message field",
			result:      Result{Status: ResultStatus{ID: 13}, Message: "worker crashed", Stderr: "ignored"},
			wantStatus:  StatusInternalError,
			wantMessage: "worker crashed",
		},
		{
			name:        "execution timeout",
			result:      Result{Status: ResultStatus{ID: 14}},
			wantStatus:  StatusExecutionTimeout,
			wantMessage: "Execution Timed Out",
		},
		{
			name:        "unknown status id",
			result:      Result{Status: ResultStatus{ID: 42}},
			wantStatus:  StatusUnknownError,
			wantMessage: "Unknown status_id: 42",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := Classify([]Result{tc.result})
			if verdict.Status != tc.wantStatus {
				t.Errorf("expected status %s, got %s", tc.wantStatus, verdict.Status)
			}
			if verdict.ErrorMessage != tc.wantMessage {
				t.Errorf("expected message %q, got %q", tc.wantMessage, verdict.ErrorMessage)
			}
		})
	}
}

func TestClassifyLastFailureWins(t *testing.T) {
	verdict := Classify([]Result{
		{Status: ResultStatus{ID: 5}, Stderr: "slow"},
		accepted("0.01", 500),
		{Status: ResultStatus{ID: 4}, Stderr: "mismatch on case 3"},
	})

	if verdict.Status != StatusWrong {
		t.Errorf("expected wrong, got %s", verdict.Status)
	}
	if verdict.ErrorMessage != "mismatch on case 3" {
		t.Errorf("expected last failure's message, got %q", verdict.ErrorMessage)
	}
	if verdict.TestCasesPassed != 1 {
		t.Errorf("expected 1 passed, got %d", verdict.TestCasesPassed)
	}
}

func TestClassifyRuntimeCountsOnlyPassingCases(t *testing.T) {
	verdict := Classify([]Result{
		accepted("0.10", 900),
		{Status: ResultStatus{ID: 5}, Time: "2.00", Memory: 9000},
	})

	if verdict.Runtime < 0.099 || verdict.Runtime > 0.101 {
		t.Errorf("expected runtime near 0.10, got %f", verdict.Runtime)
	}
	if verdict.Memory != 900 {
		t.Errorf("expected memory 900, got %d", verdict.Memory)
	}
}

func TestClassifyIgnoresUnparsableTime(t *testing.T) {
	verdict := Classify([]Result{accepted("", 100)})
	if verdict.Runtime != 0 {
		t.Errorf("expected runtime 0, got %f", verdict.Runtime)
	}
	if verdict.TestCasesPassed != 1 {
		t.Errorf("expected 1 passed, got %d", verdict.TestCasesPassed)
	}
}
