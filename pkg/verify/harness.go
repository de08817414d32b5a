package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ComputingTeachers/language-reference/pkg/domain"
	"github.com/ComputingTeachers/language-reference/pkg/exercise"
)

// MaxWorkers caps the verification worker pool regardless of options.
const MaxWorkers = 256

// Target is one (exercise, label, language) snapshot to verify.
type Target struct {
	// Exercise is the exercise name.
	Exercise string
	// Label is the version label.
	Label string
	// Rank is the label's rank, used for report ordering.
	Rank int
	// Language selects the toolchain.
	Language domain.Language
	// Content is the materialized snapshot text.
	Content string
}

// Targets flattens aggregated payloads into the harness input: every
// (label, language) pair of every exercise.
func Targets(payloads []exercise.Payload) []Target {
	var targets []Target
	for _, payload := range payloads {
		for i, entry := range payload.Versions {
			for lang, le := range entry.Languages {
				targets = append(targets, Target{
					Exercise: payload.Exercise,
					Label:    entry.Label,
					Rank:     payload.Labels[i].Rank,
					Language: lang,
					Content:  le.Snapshot.Text(),
				})
			}
		}
	}
	return targets
}

// Report is the complete outcome of one harness run.
type Report struct {
	// Results holds one entry per verified pair, sorted by exercise, then
	// label rank, then language.
	Results []domain.VerificationResult
	// Skipped lists pairs whose language has no configured toolchain.
	Skipped []Target
}

// OK reports whether every pair was verified and passed.
func (r *Report) OK() bool {
	if len(r.Skipped) > 0 {
		return false
	}
	for _, res := range r.Results {
		if !res.Passed() {
			return false
		}
	}
	return true
}

// Options configures harness behavior.
type Options struct {
	// Workers caps concurrent toolchain invocations.
	// Zero or negative uses runtime.GOMAXPROCS(0).
	Workers int

	// Logger receives per-invocation progress. Defaults to discarding.
	Logger *log.Logger
}

// Option is a functional option for configuring the Harness.
type Option func(*Options)

// WithWorkers caps concurrent toolchain invocations.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.Workers = n
		}
	}
}

// WithLogger sets the progress logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Harness validates version snapshots through external toolchains.
type Harness struct {
	config  Config
	options *Options
}

// New creates a harness for the given toolchain configuration.
func New(cfg Config, opts ...Option) *Harness {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Logger == nil {
		options.Logger = log.New(io.Discard)
	}
	return &Harness{config: cfg, options: options}
}

// Run verifies every target independently and returns the complete result
// set. It never stops at the first failure: the purpose is to localize which
// incremental step broke, not merely to detect that something broke. A
// failing invocation is never retried.
func (h *Harness) Run(ctx context.Context, targets []Target) (*Report, error) {
	report := &Report{}

	var runnable []Target
	for _, t := range targets {
		if _, ok := h.config.Toolchains[t.Language]; !ok {
			report.Skipped = append(report.Skipped, t)
			continue
		}
		runnable = append(runnable, t)
	}

	workers := h.options.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}

	sem := semaphore.NewWeighted(int64(workers))
	g, gCtx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	for _, target := range runnable {
		target := target

		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			result := h.verifyOne(gCtx, target)

			mu.Lock()
			report.Results = append(report.Results, result)
			mu.Unlock()

			h.options.Logger.Info("verified",
				"exercise", result.Exercise,
				"label", result.Label,
				"language", result.Language,
				"status", result.Status,
			)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("verification interrupted: %w", err)
	}

	sortResults(report.Results)
	sortTargets(report.Skipped)
	return report, nil
}

// verifyOne materializes one snapshot in an isolated workspace and runs the
// toolchain stages against it.
func (h *Harness) verifyOne(ctx context.Context, target Target) domain.VerificationResult {
	start := time.Now()
	result := domain.VerificationResult{
		Exercise: target.Exercise,
		Label:    target.Label,
		Rank:     target.Rank,
		Language: target.Language,
	}
	finish := func(status domain.VerifyStatus, output string) domain.VerificationResult {
		result.Status = status
		result.Output = output
		result.Duration = time.Since(start)
		return result
	}

	toolchain := h.config.Toolchains[target.Language]
	info, ok := domain.Lookup(target.Language)
	if !ok {
		return finish(domain.StatusFailCompile, fmt.Sprintf("unknown language %q", target.Language))
	}

	dir, err := os.MkdirTemp("", "verify-*")
	if err != nil {
		return finish(domain.StatusFailCompile, fmt.Sprintf("create workspace: %v", err))
	}
	defer func() { _ = os.RemoveAll(dir) }()

	file := filepath.Join(dir, toolchain.fileName(info))
	if err := os.WriteFile(file, []byte(target.Content), 0o644); err != nil {
		return finish(domain.StatusFailCompile, fmt.Sprintf("write snapshot: %v", err))
	}

	if toolchain.Compile != "" {
		output, exitCode, timedOut, err := runStage(ctx, toolchain.Compile, file, dir, toolchain.timeout())
		switch {
		case timedOut:
			return finish(domain.StatusFailTimeout, output)
		case err != nil:
			return finish(domain.StatusFailCompile, fmt.Sprintf("%v\n%s", err, output))
		case exitCode != 0:
			return finish(domain.StatusFailCompile, output)
		}
	}

	output, exitCode, timedOut, err := runStage(ctx, toolchain.Run, file, dir, toolchain.timeout())
	switch {
	case timedOut:
		return finish(domain.StatusFailTimeout, output)
	case err != nil:
		return finish(domain.StatusFailRun, fmt.Sprintf("%v\n%s", err, output))
	case exitCode != 0:
		return finish(domain.StatusFailRun, output)
	}
	return finish(domain.StatusPass, output)
}

// runStage executes one toolchain command inside the workspace with its own
// timeout, returning the combined output and exit code. On timeout the whole
// process group is killed so stray children cannot outlive the stage.
func runStage(ctx context.Context, command, file, dir string, timeout time.Duration) (output string, exitCode int, timedOut bool, err error) {
	argv, err := splitCommand(command, file, dir)
	if err != nil {
		return "", 0, false, err
	}

	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return "", 0, false, fmt.Errorf("start %s: %w", argv[0], err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-stageCtx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
			return combined.String(), 0, true, nil
		}
		return combined.String(), 0, false, stageCtx.Err()
	case waitErr := <-done:
		if waitErr != nil {
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				return combined.String(), exitErr.ExitCode(), false, nil
			}
			return combined.String(), 0, false, waitErr
		}
		return combined.String(), 0, false, nil
	}
}

func sortResults(results []domain.VerificationResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Exercise != b.Exercise {
			return a.Exercise < b.Exercise
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Language < b.Language
	})
}

func sortTargets(targets []Target) {
	sort.Slice(targets, func(i, j int) bool {
		a, b := targets[i], targets[j]
		if a.Exercise != b.Exercise {
			return a.Exercise < b.Exercise
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Language < b.Language
	})
}
