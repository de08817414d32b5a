package exercise

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// ScanOptions configures scanner behavior.
type ScanOptions struct {
	// ExcludePatterns specifies directory names to skip during discovery.
	// These are combined with DefaultSkipPatterns.
	ExcludePatterns []string

	// Logger receives warning-level parse diagnostics and progress.
	// Defaults to a discarding logger.
	Logger *log.Logger

	// MaxFileSize is the maximum source file size in bytes to load.
	// Larger files are skipped with a scan error.
	MaxFileSize int64

	// Patterns specifies doublestar globs that manifest paths (relative to
	// the root) must match. Empty means every manifest is processed.
	Patterns []string

	// Timeout is the maximum duration for the entire scan operation.
	// Zero or negative values use DefaultTimeout.
	Timeout time.Duration

	// Workers specifies the number of concurrently built exercises.
	// Zero or negative values use runtime.GOMAXPROCS(0).
	Workers int
}

// ScanOption is a functional option for configuring Scanner.
type ScanOption func(*ScanOptions)

// WithWorkers sets the number of concurrently built exercises.
// Negative values are ignored.
func WithWorkers(n int) ScanOption {
	return func(o *ScanOptions) {
		if n >= 0 {
			o.Workers = n
		}
	}
}

// WithTimeout sets the scan timeout duration. Negative values are ignored.
func WithTimeout(d time.Duration) ScanOption {
	return func(o *ScanOptions) {
		if d >= 0 {
			o.Timeout = d
		}
	}
}

// WithPatterns sets glob patterns manifests must match.
func WithPatterns(patterns []string) ScanOption {
	return func(o *ScanOptions) {
		o.Patterns = patterns
	}
}

// WithExcludePatterns adds directory names to skip during discovery.
func WithExcludePatterns(patterns []string) ScanOption {
	return func(o *ScanOptions) {
		o.ExcludePatterns = patterns
	}
}

// WithMaxFileSize sets the maximum source file size to load.
func WithMaxFileSize(size int64) ScanOption {
	return func(o *ScanOptions) {
		o.MaxFileSize = size
	}
}

// WithLogger sets the logger for diagnostics and progress.
func WithLogger(logger *log.Logger) ScanOption {
	return func(o *ScanOptions) {
		o.Logger = logger
	}
}

func applyDefaults(opts *ScanOptions) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
}
