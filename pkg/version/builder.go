// Package version assigns ranks to version labels and derives cumulative
// snapshots from parsed source files.
//
// Rank assignment is a pure function over one designated reference file's
// parse output. It is computed once per exercise and the resulting label list
// is passed as an immutable value to every downstream component.
package version

import (
	"fmt"

	"github.com/ComputingTeachers/language-reference/pkg/domain"
)

// OrderMismatchError reports a sibling file whose label set or order
// disagrees with the exercise's reference file.
type OrderMismatchError struct {
	// File is the offending sibling file path.
	File string
	// Label is the first label at which the disagreement was observed.
	Label string
	// Expected is the label the reference order called for, empty when the
	// sibling introduced a label unknown to the reference file.
	Expected string
}

// Error implements the error interface.
func (e *OrderMismatchError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("version order mismatch in %s: label %q not declared by the reference file", e.File, e.Label)
	}
	return fmt.Sprintf("version order mismatch in %s: got label %q, reference order expects %q", e.File, e.Label, e.Expected)
}

// labelOrder returns the distinct label names of a file in order of first
// appearance, scanning top to bottom.
func labelOrder(file domain.SourceFile) []string {
	seen := map[string]bool{}
	var order []string
	for _, line := range file.Lines {
		if line.Label == "" || seen[line.Label] {
			continue
		}
		seen[line.Label] = true
		order = append(order, line.Label)
	}
	return order
}

// BuildLabels computes the ordered version labels for an exercise from its
// reference file. Rank is the order of first appearance.
func BuildLabels(reference domain.SourceFile) []domain.VersionLabel {
	order := labelOrder(reference)
	labels := make([]domain.VersionLabel, len(order))
	for i, name := range order {
		labels[i] = domain.VersionLabel{Name: name, Rank: i}
	}
	return labels
}

// CheckOrder validates that a sibling file first-encounters the reference
// labels in the reference rank order. A sibling may omit labels entirely but
// must never introduce unknown ones or reorder known ones.
func CheckOrder(labels []domain.VersionLabel, file domain.SourceFile) error {
	rank := make(map[string]int, len(labels))
	for _, l := range labels {
		rank[l.Name] = l.Rank
	}

	prev := -1
	for _, name := range labelOrder(file) {
		r, known := rank[name]
		if !known {
			return &OrderMismatchError{File: file.Path, Label: name}
		}
		if r <= prev {
			return &OrderMismatchError{File: file.Path, Label: name, Expected: labels[prev].Name}
		}
		prev = r
	}
	return nil
}

// Attribute assigns a rank to every line of a file. Untagged lines take the
// rank of the next tagged line below them; untagged lines after the final
// tag take the final label's rank. A file with no tags at all is entirely
// baseline and visible in every snapshot.
func Attribute(file domain.SourceFile, labels []domain.VersionLabel) []int {
	rank := make(map[string]int, len(labels))
	for _, l := range labels {
		rank[l.Name] = l.Rank
	}

	ranks := make([]int, len(file.Lines))
	next := domain.BaselineRank
	// Walk bottom-up so each untagged line inherits the tag that follows it.
	for i := len(file.Lines) - 1; i >= 0; i-- {
		if label := file.Lines[i].Label; label != "" {
			if r, ok := rank[label]; ok {
				next = r
			}
		}
		ranks[i] = next
	}

	// Lines after the final tag inherited BaselineRank from the walk start;
	// they belong to the final label instead.
	last := domain.BaselineRank
	for i := range ranks {
		if ranks[i] == domain.BaselineRank && last != domain.BaselineRank {
			ranks[i] = last
		}
		last = ranks[i]
	}

	return ranks
}

// Snapshot derives the cumulative snapshot of a file at one label: every
// line whose attributed rank is at most the label's rank, in original file
// order. Baseline lines are always visible.
func Snapshot(file domain.SourceFile, ranks []int, label domain.VersionLabel) domain.Snapshot {
	snap := domain.Snapshot{Label: label.Name}
	for i, line := range file.Lines {
		if ranks[i] <= label.Rank {
			snap.Lines = append(snap.Lines, line.Content)
		}
	}
	return snap
}

// Snapshots derives every label's snapshot for one file.
func Snapshots(file domain.SourceFile, labels []domain.VersionLabel) ([]domain.Snapshot, error) {
	if err := CheckOrder(labels, file); err != nil {
		return nil, err
	}
	ranks := Attribute(file, labels)
	out := make([]domain.Snapshot, len(labels))
	for i, label := range labels {
		out[i] = Snapshot(file, ranks, label)
	}
	return out, nil
}
