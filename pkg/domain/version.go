package domain

// BaselineRank is the rank assigned to lines that precede any version tag.
// Baseline lines are visible in every snapshot.
const BaselineRank = -1

// VersionLabel is a named point in an exercise's growth.
type VersionLabel struct {
	// Name is the label as written in the tag. Case-sensitive.
	Name string `json:"name"`
	// Rank is the order of first appearance in the exercise's reference file.
	Rank int `json:"rank"`
}

// Line is one source line with its extracted tag, position-significant.
type Line struct {
	// Content is the line text with any version marker stripped.
	Content string `json:"content"`
	// Label is the tag name extracted from the line, empty when untagged.
	Label string `json:"label,omitempty"`
	// Number is the 1-based position in the source file.
	Number int `json:"number"`
}

// SourceFile is one parsed sibling file of an exercise.
type SourceFile struct {
	// Path identifies the file.
	Path string `json:"path"`
	// Language is the language the file was parsed as.
	Language Language `json:"language"`
	// Lines are the parsed lines in original order.
	Lines []Line `json:"lines"`
}

// Snapshot is the cumulative source text visible at one version label.
type Snapshot struct {
	// Label names the version this snapshot belongs to.
	Label string `json:"label"`
	// Lines are the visible line contents in original file order.
	Lines []string `json:"lines"`
}

// Text returns the snapshot joined as file content with a trailing newline.
func (s Snapshot) Text() string {
	if len(s.Lines) == 0 {
		return ""
	}
	out := ""
	for _, line := range s.Lines {
		out += line + "\n"
	}
	return out
}

// Manifest is the per-exercise descriptor enumerating the ordered version
// labels and the sibling source files that implement the exercise.
type Manifest struct {
	// Name is the exercise name, derived from the manifest path.
	Name string `json:"name"`
	// Versions is the declared label order. Optional: when empty the
	// reference file's tag order is authoritative.
	Versions []string `json:"versions,omitempty" yaml:"versions,omitempty"`
	// Files lists the sibling source files, one per language. The first
	// entry is the reference file for rank assignment.
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`
}
