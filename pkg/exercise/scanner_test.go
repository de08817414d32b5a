package exercise

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ComputingTeachers/language-reference/pkg/domain"
	"github.com/ComputingTeachers/language-reference/pkg/source"
)

func writeFiles(t *testing.T, files map[string]string) source.Source {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	src, err := source.NewLocalSource(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestScanDiscoversSiblingsByBaseName(t *testing.T) {
	src := writeFiles(t, map[string]string{
		"test.ver.json": `{}`,
		"test.py":       "print('Hello World')  # VER: hello_world\n",
		"test.js":       "console.log(\"Hello World\")    // VER: hello_world\n",
		"notes.txt":     "unrelated\n",
	})

	result, err := Scan(context.Background(), src)
	require.NoError(t, err)

	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Stats.ManifestsFound)
	assert.Equal(t, 1, result.Stats.ExercisesBuilt)
	assert.Equal(t, 2, result.Stats.FilesParsed)

	require.Len(t, result.Payloads, 1)
	payload := result.Payloads[0]
	assert.Equal(t, "test", payload.Exercise)
	require.Len(t, payload.Versions, 1)
	assert.Contains(t, payload.Versions[0].Languages, domain.LanguagePython)
	assert.Contains(t, payload.Versions[0].Languages, domain.LanguageJavaScript)
}

func TestScanManifestFileListAndYAML(t *testing.T) {
	src := writeFiles(t, map[string]string{
		"lessons/loops.ver.yaml": "versions: [setup, loop]\nfiles: [loops.py]\n",
		"lessons/loops.py":       "total = 0  # VER: setup\nfor i in range(3): total += i  # VER: loop\n",
	})

	result, err := Scan(context.Background(), src)
	require.NoError(t, err)

	assert.Empty(t, result.Errors)
	require.Len(t, result.Payloads, 1)
	assert.Equal(t, "lessons/loops", result.Payloads[0].Exercise)
	assert.Equal(t, []domain.VersionLabel{
		{Name: "setup", Rank: 0},
		{Name: "loop", Rank: 1},
	}, result.Payloads[0].Labels)
}

func TestScanIsolatesFailingExercise(t *testing.T) {
	src := writeFiles(t, map[string]string{
		// Healthy exercise.
		"good.ver.json": `{}`,
		"good.py":       "a = 1  # VER: setup\n",
		// Label order disagreement between siblings.
		"bad.ver.json": `{}`,
		"bad.py":       "a = 1  # VER: setup\nb = 2  # VER: loop\n",
		"bad.js":       "let a = 1  // VER: setup\nconsole.log(a)  // VER: print\n",
	})

	result, err := Scan(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, result.Payloads, 1)
	assert.Equal(t, "good", result.Payloads[0].Exercise)

	// Siblings sort alphabetically, so bad.js is the reference file and
	// bad.py is the one reported out of step.
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "aggregate", result.Errors[0].Phase)
	assert.Contains(t, result.Errors[0].Error(), "bad.py")
	assert.Contains(t, result.Errors[0].Error(), "loop")
	assert.Equal(t, 1, result.Stats.ExercisesFailed)
}

func TestScanMalformedManifest(t *testing.T) {
	src := writeFiles(t, map[string]string{
		"broken.ver.json": `{not json`,
		"broken.py":       "a = 1  # VER: setup\n",
	})

	result, err := Scan(context.Background(), src)
	require.NoError(t, err)

	assert.Empty(t, result.Payloads)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "manifest", result.Errors[0].Phase)
}

func TestScanCollectsParseDiagnostics(t *testing.T) {
	src := writeFiles(t, map[string]string{
		"diag.ver.json": `{}`,
		"diag.py":       "a = 1  # VER: setup\nb = 2  # VER:\n",
	})

	result, err := Scan(context.Background(), src)
	require.NoError(t, err)

	// The malformed tag is a warning, not a failure.
	require.Len(t, result.Payloads, 1)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "diag.py", result.Diagnostics[0].Path)
	assert.Equal(t, 2, result.Diagnostics[0].Line)
}

func TestScanSkipsHiddenAndUnderscoreDirs(t *testing.T) {
	src := writeFiles(t, map[string]string{
		"keep/k.ver.json":   `{}`,
		"keep/k.py":         "a = 1  # VER: setup\n",
		"_draft/d.ver.json": `{}`,
		"_draft/d.py":       "a = 1  # VER: setup\n",
		".git/g.ver.json":   `{}`,
	})

	result, err := Scan(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, result.Payloads, 1)
	assert.Equal(t, "keep/k", result.Payloads[0].Exercise)
}

func TestScanPatternsFilterManifests(t *testing.T) {
	src := writeFiles(t, map[string]string{
		"a/one.ver.json": `{}`,
		"a/one.py":       "x = 1  # VER: setup\n",
		"b/two.ver.json": `{}`,
		"b/two.py":       "x = 1  # VER: setup\n",
	})

	result, err := Scan(context.Background(), src, WithPatterns([]string{"a/**"}))
	require.NoError(t, err)

	require.Len(t, result.Payloads, 1)
	assert.Equal(t, "a/one", result.Payloads[0].Exercise)
}

func TestScanDeterministicOrder(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"zeta", "alpha", "mid"} {
		files[name+".ver.json"] = `{}`
		files[name+".py"] = "a = 1  # VER: setup\n"
	}
	src := writeFiles(t, files)

	first, err := Scan(context.Background(), src, WithWorkers(4))
	require.NoError(t, err)
	second, err := Scan(context.Background(), src, WithWorkers(1))
	require.NoError(t, err)

	assert.Equal(t, first.Payloads, second.Payloads)
	require.Len(t, first.Payloads, 3)
	assert.Equal(t, "alpha", first.Payloads[0].Exercise)
	assert.Equal(t, "mid", first.Payloads[1].Exercise)
	assert.Equal(t, "zeta", first.Payloads[2].Exercise)
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		data     string
		versions []string
		wantErr  bool
	}{
		{
			name:     "json with versions",
			path:     "test.ver.json",
			data:     `{"versions": ["a", "b"]}`,
			versions: []string{"a", "b"},
		},
		{
			name: "empty json object",
			path: "test.ver.json",
			data: `{}`,
		},
		{
			name:     "yaml",
			path:     "test.ver.yaml",
			data:     "versions:\n  - setup\n  - loop\n",
			versions: []string{"setup", "loop"},
		},
		{
			name:    "malformed json",
			path:    "test.ver.json",
			data:    `{`,
			wantErr: true,
		},
		{
			name:    "not a manifest path",
			path:    "test.py",
			data:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manifest, err := ParseManifest(tt.path, []byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test", manifest.Name)
			assert.Equal(t, tt.versions, manifest.Versions)
		})
	}
}

func TestExerciseName(t *testing.T) {
	assert.Equal(t, "test", ExerciseName("test.ver.json"))
	assert.Equal(t, "lessons/loops", ExerciseName("lessons/loops.ver.yaml"))
	assert.Equal(t, "x", ExerciseName("x.ver.yml"))
}
