package domain

import "time"

// VerifyStatus represents the outcome of verifying one snapshot.
type VerifyStatus string

// Verification status values.
const (
	// StatusPass indicates both toolchain stages exited zero.
	StatusPass VerifyStatus = "pass"
	// StatusFailCompile indicates the compile stage exited non-zero.
	StatusFailCompile VerifyStatus = "fail-compile"
	// StatusFailRun indicates the run stage exited non-zero.
	StatusFailRun VerifyStatus = "fail-run"
	// StatusFailTimeout indicates an invocation exceeded its time limit.
	StatusFailTimeout VerifyStatus = "fail-timeout"
)

// VerificationResult is the outcome for one (exercise, label, language) pair.
type VerificationResult struct {
	// Exercise is the exercise name.
	Exercise string `json:"exercise"`
	// Label is the version label that was verified.
	Label string `json:"label"`
	// Rank is the label's rank, used for deterministic report ordering.
	Rank int `json:"rank"`
	// Language is the language variant that was verified.
	Language Language `json:"language"`
	// Status classifies the outcome.
	Status VerifyStatus `json:"status"`
	// Output is the combined stdout/stderr of the failing stage, or of the
	// run stage on success.
	Output string `json:"output,omitempty"`
	// Duration is the total invocation time for this pair.
	Duration time.Duration `json:"duration"`
}

// Passed reports whether the pair verified successfully.
func (r VerificationResult) Passed() bool {
	return r.Status == StatusPass
}
