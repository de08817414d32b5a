package exercise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ComputingTeachers/language-reference/pkg/domain"
	"github.com/ComputingTeachers/language-reference/pkg/parser"
	"github.com/ComputingTeachers/language-reference/pkg/version"
)

func parseAs(t *testing.T, lang domain.Language, path, src string) domain.SourceFile {
	t.Helper()
	info, ok := domain.Lookup(lang)
	require.True(t, ok)
	file, diags := parser.ParseFile(path, src, info)
	require.Empty(t, diags)
	return file
}

func TestAggregateSingleLanguage(t *testing.T) {
	file := parseAs(t, domain.LanguagePython, "python.py",
		"a = 1  # VER: arithmetic\nprint('hello')  # VER: output\n")

	payload, err := Aggregate(Exercise{Name: "basics", Files: []domain.SourceFile{file}})
	require.NoError(t, err)

	assert.Equal(t, "basics", payload.Exercise)
	assert.Equal(t, []domain.VersionLabel{
		{Name: "arithmetic", Rank: 0},
		{Name: "output", Rank: 1},
	}, payload.Labels)

	require.Len(t, payload.Versions, 2)

	arithmetic := payload.Versions[0].Languages[domain.LanguagePython]
	assert.Equal(t, []string{"a = 1"}, arithmetic.Snapshot.Lines)
	assert.Equal(t, "", arithmetic.Diff.FromLabel)
	assert.Equal(t, 1, arithmetic.Diff.Added())

	output := payload.Versions[1].Languages[domain.LanguagePython]
	assert.Equal(t, []string{"a = 1", "print('hello')"}, output.Snapshot.Lines)
	assert.Equal(t, "arithmetic", output.Diff.FromLabel)
	assert.Equal(t, 1, output.Diff.Added())
	assert.Equal(t, 0, output.Diff.Removed())
}

func TestAggregateTwoLanguagesInLockstep(t *testing.T) {
	py := parseAs(t, domain.LanguagePython, "test.py",
		"a = 1  # VER: setup\nprint(a)  # VER: loop\n")
	js := parseAs(t, domain.LanguageJavaScript, "test.js",
		"let a = 1  // VER: setup\nconsole.log(a)  // VER: loop\n")

	payload, err := Aggregate(Exercise{Name: "test", Files: []domain.SourceFile{py, js}})
	require.NoError(t, err)

	require.Len(t, payload.Versions, 2)
	for _, entry := range payload.Versions {
		assert.Contains(t, entry.Languages, domain.LanguagePython)
		assert.Contains(t, entry.Languages, domain.LanguageJavaScript)
	}
}

func TestAggregateOrderMismatch(t *testing.T) {
	a := parseAs(t, domain.LanguagePython, "a.py",
		"x = 1  # VER: setup\ny = 2  # VER: loop\n")
	b := parseAs(t, domain.LanguageJavaScript, "b.js",
		"let x = 1  // VER: setup\nconsole.log(x)  // VER: print\n")

	_, err := Aggregate(Exercise{Name: "broken", Files: []domain.SourceFile{a, b}})

	var mismatch *version.OrderMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "b.js", mismatch.File)
	assert.Equal(t, "print", mismatch.Label)
}

func TestAggregateManifestLabelOrderWins(t *testing.T) {
	// The manifest declares a label the file never tags; the snapshot for
	// it repeats the previous one.
	file := parseAs(t, domain.LanguagePython, "p.py",
		"a = 1  # VER: setup\nprint(a)  # VER: print\n")
	manifest := domain.Manifest{
		Name:     "p",
		Versions: []string{"setup", "loop", "print"},
	}

	payload, err := Aggregate(Exercise{Name: "p", Manifest: manifest, Files: []domain.SourceFile{file}})
	require.NoError(t, err)

	require.Len(t, payload.Versions, 3)
	setup := payload.Versions[0].Languages[domain.LanguagePython].Snapshot
	loop := payload.Versions[1].Languages[domain.LanguagePython].Snapshot
	assert.Equal(t, setup.Lines, loop.Lines)

	loopDiff := payload.Versions[1].Languages[domain.LanguagePython].Diff
	assert.Equal(t, 0, loopDiff.Added())
	assert.Equal(t, 0, loopDiff.Removed())
}

func TestAggregateRejectsDuplicateLanguage(t *testing.T) {
	a := parseAs(t, domain.LanguagePython, "a.py", "x = 1  # VER: setup\n")
	b := parseAs(t, domain.LanguagePython, "b.py", "x = 1  # VER: setup\n")

	_, err := Aggregate(Exercise{Name: "dup", Files: []domain.SourceFile{a, b}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "python")
}

func TestAggregateNoFiles(t *testing.T) {
	_, err := Aggregate(Exercise{Name: "empty"})
	require.Error(t, err)
}
