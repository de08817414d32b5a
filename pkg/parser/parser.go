// Package parser extracts version tags from annotated source lines.
//
// A tag is a trailing comment of the form `<comment-start> VER: <name>`,
// optionally closed by the language's comment end token. The marker and
// everything after it is stripped from the stored line, so snapshots never
// contain leftover annotations.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ComputingTeachers/language-reference/pkg/domain"
)

// Diagnostic is a non-fatal, warning-level parse finding localized to one
// line. The line itself is retained as untagged content.
type Diagnostic struct {
	// Path is the source file the finding belongs to.
	Path string
	// Line is the 1-based line number.
	Line int
	// Message describes the finding.
	Message string
}

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s", d.Path, d.Line, d.Message)
}

var (
	regexMu    sync.Mutex
	tagRegexes = map[domain.Comment]*regexp.Regexp{}
	barePrefix = map[domain.Comment]*regexp.Regexp{}
)

// tagRegex matches the trailing version marker for one comment token pair.
// The VER keyword is case-insensitive; the captured name is not.
func tagRegex(c domain.Comment) *regexp.Regexp {
	regexMu.Lock()
	defer regexMu.Unlock()

	if re, ok := tagRegexes[c]; ok {
		return re
	}
	end := c.End
	if end == "" {
		end = c.Start
	}
	re := regexp.MustCompile(fmt.Sprintf(
		`(?i)%s\s*VER:\s*(?P<name>.*?)\s*($|%s)`,
		regexp.QuoteMeta(c.Start), regexp.QuoteMeta(end),
	))
	tagRegexes[c] = re
	return re
}

// leadingCommentRegex matches a single comment token at the start of a line,
// preserving indentation.
func leadingCommentRegex(c domain.Comment) *regexp.Regexp {
	regexMu.Lock()
	defer regexMu.Unlock()

	if re, ok := barePrefix[c]; ok {
		return re
	}
	re := regexp.MustCompile(fmt.Sprintf(`^(\s*)%s\s*`, regexp.QuoteMeta(c.Start)))
	barePrefix[c] = re
	return re
}

// ParseLine extracts the optional version tag from one raw line.
// It returns the line content with the marker stripped and the tag name,
// which is empty for untagged lines. A marker with an empty name is reported
// through the returned error; the line is still usable as untagged content.
func ParseLine(raw string, info domain.LanguageInfo) (content, label string, err error) {
	line := strings.TrimRight(raw, "\r\n")

	for _, comment := range info.Comments {
		match := tagRegex(comment).FindStringSubmatchIndex(line)
		if match == nil {
			continue
		}

		name := line[match[2]:match[3]]
		stripped := strings.TrimRight(line[:match[0]], " \t")

		// A tagged line that is itself commented out gets one leading
		// comment token removed, so scaffolding lines re-enter the
		// snapshot as live code.
		stripped = leadingCommentRegex(comment).ReplaceAllString(stripped, "$1")

		if name == "" {
			return line, "", fmt.Errorf("version marker %q has no label name", comment.Start+" VER:")
		}
		return stripped, name, nil
	}

	return line, "", nil
}

// ParseFile parses a whole source file into positioned lines with extracted
// tags. Malformed markers never abort the file: the offending line is kept
// untagged and the finding is returned as a Diagnostic.
func ParseFile(path string, content string, info domain.LanguageInfo) (domain.SourceFile, []Diagnostic) {
	raw := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	file := domain.SourceFile{
		Path:     path,
		Language: info.Language,
		Lines:    make([]domain.Line, 0, len(raw)),
	}
	var diags []Diagnostic

	for i, rawLine := range raw {
		text, label, err := ParseLine(rawLine, info)
		if err != nil {
			diags = append(diags, Diagnostic{
				Path:    path,
				Line:    i + 1,
				Message: err.Error(),
			})
		}
		file.Lines = append(file.Lines, domain.Line{
			Content: text,
			Label:   label,
			Number:  i + 1,
		})
	}

	return file, diags
}
