package exercise

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ComputingTeachers/language-reference/pkg/domain"
	"github.com/ComputingTeachers/language-reference/pkg/parser"
	"github.com/ComputingTeachers/language-reference/pkg/source"
)

const (
	// DefaultTimeout is the default scan timeout duration.
	DefaultTimeout = 5 * time.Minute
	// MaxWorkers is the maximum number of concurrent workers allowed.
	MaxWorkers = 1024
	// DefaultMaxFileSize is the default maximum source file size (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024
)

// DefaultSkipPatterns contains directory names skipped by default during
// discovery. Prefix entries ending in "*" match any directory starting with
// the prefix.
var DefaultSkipPatterns = []string{
	"_*",
	".*",
	"cgi*",
	"bin",
	"obj",
	"node_modules",
	"vendor",
	"__pycache__",
}

var (
	// ErrScanCancelled is returned when scanning is cancelled via context.
	ErrScanCancelled = errors.New("exercise: scan cancelled")
	// ErrScanTimeout is returned when scanning exceeds the timeout duration.
	ErrScanTimeout = errors.New("exercise: scan timeout")
)

// Scanner discovers exercise manifests under a source tree and builds the
// aggregated payload for each exercise in parallel.
type Scanner struct {
	options *ScanOptions
}

// ScanResult contains the outcome of a scan operation.
type ScanResult struct {
	// Payloads are the successfully aggregated exercises, sorted by name.
	Payloads []Payload

	// Diagnostics are warning-level parse findings across all files.
	Diagnostics []parser.Diagnostic

	// Errors contains exercise-scoped errors; a failed exercise never
	// stops the rest of the batch.
	Errors []ScanError

	// Stats provides scan statistics.
	Stats ScanStats
}

// ScanError represents an error scoped to one phase of scanning.
type ScanError struct {
	// Err is the underlying error.
	Err error

	// Path is the manifest or file path the error is scoped to.
	Path string

	// Phase indicates which phase the error occurred in.
	// Values: "discovery", "manifest", "load", "aggregate"
	Phase string
}

// Error implements the error interface.
func (e ScanError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Phase, e.Path, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e ScanError) Unwrap() error { return e.Err }

// ScanStats provides statistics about the scan operation.
type ScanStats struct {
	// ManifestsFound is the number of manifests discovered.
	ManifestsFound int

	// ExercisesBuilt is the number of exercises aggregated successfully.
	ExercisesBuilt int

	// ExercisesFailed is the number of exercises that failed.
	ExercisesFailed int

	// FilesParsed is the number of sibling source files parsed.
	FilesParsed int

	// Duration is the total scan duration.
	Duration time.Duration
}

// NewScanner creates a new scanner with the given options.
func NewScanner(opts ...ScanOption) *Scanner {
	options := &ScanOptions{}
	for _, opt := range opts {
		opt(options)
	}
	applyDefaults(options)
	return &Scanner{options: options}
}

// Scan discovers every manifest under the source root, loads each exercise's
// sibling files, and aggregates them in parallel. Exercise failures are
// collected, never propagated across exercises.
//
// The caller is responsible for calling src.Close() when done.
func (s *Scanner) Scan(ctx context.Context, src source.Source) (*ScanResult, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.options.Timeout)
	defer cancel()

	result := &ScanResult{
		Payloads: []Payload{},
		Errors:   []ScanError{},
	}

	manifests, siblings, errs := s.discover(ctx, src)
	result.Errors = append(result.Errors, errs...)
	result.Stats.ManifestsFound = len(manifests)

	if len(manifests) > 0 {
		s.buildParallel(ctx, src, manifests, siblings, result)
	}

	result.Stats.ExercisesBuilt = len(result.Payloads)
	result.Stats.Duration = time.Since(startTime)

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return result, ErrScanTimeout
		}
		if errors.Is(err, context.Canceled) {
			return result, ErrScanCancelled
		}
	}

	return result, nil
}

// discover walks the source root once, collecting manifest paths and, per
// directory, the candidate sibling files with a known language extension.
// All returned paths are relative to the source root.
func (s *Scanner) discover(ctx context.Context, src source.Source) ([]string, map[string][]string, []ScanError) {
	rootPath := src.Root()
	skip := append([]string{}, DefaultSkipPatterns...)
	skip = append(skip, s.options.ExcludePatterns...)

	var (
		manifests []string
		siblings  = map[string][]string{}
		errs      []ScanError
	)

	walkErr := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			errs = append(errs, ScanError{Err: err, Path: path, Phase: "discovery"})
			return nil
		}

		if d.IsDir() {
			if path != rootPath && shouldSkipDir(filepath.Base(path), skip) {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			errs = append(errs, ScanError{Err: err, Path: path, Phase: "discovery"})
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if IsManifestPath(relPath) {
			if matchesAnyPattern(relPath, s.options.Patterns) {
				manifests = append(manifests, relPath)
			}
			return nil
		}

		if _, ok := domain.LanguageForExtension(filepath.Ext(relPath)); ok {
			dir := filepath.ToSlash(filepath.Dir(relPath))
			siblings[dir] = append(siblings[dir], relPath)
		}
		return nil
	})

	if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded) {
		errs = append(errs, ScanError{Err: walkErr, Phase: "discovery"})
	}

	sort.Strings(manifests)
	return manifests, siblings, errs
}

func (s *Scanner) buildParallel(ctx context.Context, src source.Source, manifests []string, siblings map[string][]string, result *ScanResult) {
	workers := s.options.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}

	sem := semaphore.NewWeighted(int64(workers))
	g, gCtx := errgroup.WithContext(ctx)

	var mu sync.Mutex

	for _, manifestPath := range manifests {
		manifestPath := manifestPath

		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			payload, diags, filesParsed, scanErr := s.buildOne(gCtx, src, manifestPath, siblings)

			mu.Lock()
			defer mu.Unlock()

			result.Stats.FilesParsed += filesParsed
			result.Diagnostics = append(result.Diagnostics, diags...)
			if scanErr != nil {
				result.Errors = append(result.Errors, *scanErr)
				result.Stats.ExercisesFailed++
				return nil
			}
			result.Payloads = append(result.Payloads, *payload)
			return nil
		})
	}

	_ = g.Wait()

	// Sort for deterministic output order regardless of completion order.
	sort.Slice(result.Payloads, func(i, j int) bool {
		return result.Payloads[i].Exercise < result.Payloads[j].Exercise
	})
	sort.Slice(result.Diagnostics, func(i, j int) bool {
		if result.Diagnostics[i].Path != result.Diagnostics[j].Path {
			return result.Diagnostics[i].Path < result.Diagnostics[j].Path
		}
		return result.Diagnostics[i].Line < result.Diagnostics[j].Line
	})
	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].Path < result.Errors[j].Path
	})
}

// buildOne loads one exercise's manifest and sibling files and aggregates
// them into a payload.
func (s *Scanner) buildOne(ctx context.Context, src source.Source, manifestPath string, siblings map[string][]string) (*Payload, []parser.Diagnostic, int, *ScanError) {
	data, err := source.ReadFile(ctx, src, manifestPath)
	if err != nil {
		return nil, nil, 0, &ScanError{Err: err, Path: manifestPath, Phase: "manifest"}
	}

	manifest, err := ParseManifest(manifestPath, data)
	if err != nil {
		return nil, nil, 0, &ScanError{Err: err, Path: manifestPath, Phase: "manifest"}
	}

	var files []string
	if len(manifest.Files) == 0 {
		files = siblingFiles(manifestPath, siblings)
	} else {
		// Manifest file entries are relative to the manifest's directory.
		dir := filepath.ToSlash(filepath.Dir(manifestPath))
		for _, f := range manifest.Files {
			if dir != "." {
				f = dir + "/" + f
			}
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return nil, nil, 0, &ScanError{
			Err:   fmt.Errorf("no sibling source files for exercise %s", manifest.Name),
			Path:  manifestPath,
			Phase: "load",
		}
	}

	ex := Exercise{Name: manifest.Name, Manifest: manifest}
	var diags []parser.Diagnostic

	for _, relPath := range files {
		info, ok := domain.LanguageForExtension(filepath.Ext(relPath))
		if !ok {
			return nil, diags, len(ex.Files), &ScanError{
				Err:   fmt.Errorf("unknown language for %s", relPath),
				Path:  manifestPath,
				Phase: "load",
			}
		}

		content, err := source.ReadFile(ctx, src, relPath)
		if err != nil {
			return nil, diags, len(ex.Files), &ScanError{Err: err, Path: relPath, Phase: "load"}
		}
		if s.options.MaxFileSize > 0 && int64(len(content)) > s.options.MaxFileSize {
			return nil, diags, len(ex.Files), &ScanError{
				Err:   fmt.Errorf("file exceeds %d bytes", s.options.MaxFileSize),
				Path:  relPath,
				Phase: "load",
			}
		}

		file, fileDiags := parser.ParseFile(relPath, string(content), info)
		for _, d := range fileDiags {
			s.options.Logger.Warn("malformed version tag", "file", d.Path, "line", d.Line, "detail", d.Message)
		}
		diags = append(diags, fileDiags...)
		ex.Files = append(ex.Files, file)
	}

	payload, err := Aggregate(ex)
	if err != nil {
		return nil, diags, len(ex.Files), &ScanError{Err: err, Path: manifestPath, Phase: "aggregate"}
	}

	s.options.Logger.Debug("exercise built", "exercise", ex.Name, "labels", len(payload.Labels), "languages", len(ex.Files))
	return payload, diags, len(ex.Files), nil
}

// siblingFiles returns the language files in the manifest's directory whose
// stem matches the exercise name, sorted for a stable reference file choice.
// The stem match is case-insensitive so conventions like Test.java sit next
// to test.py.
func siblingFiles(manifestPath string, siblings map[string][]string) []string {
	dir := filepath.ToSlash(filepath.Dir(manifestPath))
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(ExerciseName(manifestPath)), filepath.Ext(ExerciseName(manifestPath))))

	var files []string
	for _, relPath := range siblings[dir] {
		base := filepath.Base(relPath)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if strings.ToLower(name) == stem {
			files = append(files, relPath)
		}
	}
	sort.Strings(files)
	return files
}

func shouldSkipDir(name string, patterns []string) bool {
	for _, p := range patterns {
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(name, strings.TrimSuffix(p, "*")) {
				return true
			}
		} else if name == p {
			return true
		}
	}
	return false
}

func matchesAnyPattern(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, relPath)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// Scan is a convenience wrapper constructing a Scanner and running it.
func Scan(ctx context.Context, src source.Source, opts ...ScanOption) (*ScanResult, error) {
	scanner := NewScanner(opts...)
	return scanner.Scan(ctx, src)
}
