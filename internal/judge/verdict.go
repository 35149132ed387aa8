package judge

import (
	"fmt"
	"strconv"
)

// VerdictStatus is the final classification of a submission.
type VerdictStatus string

const (
	StatusPending             VerdictStatus = "pending"
	StatusAccepted            VerdictStatus = "accepted"
	StatusWrong               VerdictStatus = "wrong"
	StatusTimeout             VerdictStatus = "timeout"
	StatusCompileError        VerdictStatus = "compile_error"
	StatusRuntimeErrorSIGSEGV VerdictStatus = "runtime_error_sigsegv"
	StatusRuntimeErrorSIGXFSZ VerdictStatus = "runtime_error_sigxfsz"
	StatusRuntimeErrorSIGFPE  VerdictStatus = "runtime_error_sigfpe"
	StatusRuntimeErrorSIGABRT VerdictStatus = "runtime_error_sigabrt"
	StatusRuntimeErrorNZEC    VerdictStatus = "runtime_error_nzec"
	StatusRuntimeErrorOther   VerdictStatus = "runtime_error_other"
	StatusInternalError       VerdictStatus = "internal_error"
	StatusExecutionTimeout    VerdictStatus = "execution_timeout"
	StatusUnknownError        VerdictStatus = "unknown_error"
)

// Verdict aggregates a batch of terminal judge results.
type Verdict struct {
	Status VerdictStatus

	// TestCasesPassed counts accepted runs; Runtime sums their wall
	// times in seconds and Memory is their peak in kilobytes.
	TestCasesPassed int
	Runtime         float64
	Memory          int

	// ErrorMessage describes the last failing run, empty when accepted.
	ErrorMessage string
}

// messageSource selects which judge output field explains a failure.
type messageSource int

const (
	fromStderr messageSource = iota
	fromCompileOutput
	fromMessage
)

type failureClass struct {
	status  VerdictStatus
	message string
	source  messageSource
}

var failureClasses = map[int]failureClass{
	4:  {StatusWrong, "Wrong Answer", fromStderr},
	5:  {StatusTimeout, "Time Limit Exceeded", fromStderr},
	6:  {StatusCompileError, "Compilation Error", fromCompileOutput},
	7:  {StatusRuntimeErrorSIGSEGV, "Segmentation Fault", fromStderr},
	8:  {StatusRuntimeErrorSIGXFSZ, "Output File Too Large", fromStderr},
	9:  {StatusRuntimeErrorSIGFPE, "Floating Point Exception", fromStderr},
	10: {StatusRuntimeErrorSIGABRT, "Aborted", fromStderr},
	11: {StatusRuntimeErrorNZEC, "Non Zero Exit Code", fromStderr},
	12: {StatusRuntimeErrorOther, "Other Runtime Error", fromStderr},
	13: {StatusInternalError, "Internal Judge Error", fromMessage},
	14: {StatusExecutionTimeout, "Execution Timed Out", fromStderr},
}

// Classify folds terminal results into a single verdict. Accepted runs
// contribute to the pass count, runtime and peak memory; when any run
// fails, the last failing run decides the status and error message.
func Classify(results []Result) Verdict {
	verdict := Verdict{Status: StatusAccepted}

	for _, r := range results {
		if r.Accepted() {
			verdict.TestCasesPassed++
			if t, err := strconv.ParseFloat(r.Time, 64); err == nil {
				verdict.Runtime += t
			}
			if r.Memory > verdict.Memory {
				verdict.Memory = r.Memory
			}
			continue
		}

		class, ok := failureClasses[r.Status.ID]
		if !ok {
			verdict.Status = StatusUnknownError
			verdict.ErrorMessage = fmt.Sprintf("Unknown status_id: %d", r.Status.ID)
			continue
		}
		verdict.Status = class.status
		verdict.ErrorMessage = failureMessage(r, class)
	}
	return verdict
}

func failureMessage(r Result, class failureClass) string {
	var detail string
	switch class.source {
	case fromCompileOutput:
		detail = r.CompileOutput
	case fromMessage:
		detail = r.Message
	default:
		detail = r.Stderr
	}
	if detail != "" {
		return detail
	}
	return class.message
}
