// Package exercise aggregates per-language version builds into render-ready
// payloads and discovers exercises under a source tree.
package exercise

import (
	"fmt"

	"github.com/ComputingTeachers/language-reference/pkg/diff"
	"github.com/ComputingTeachers/language-reference/pkg/domain"
	"github.com/ComputingTeachers/language-reference/pkg/version"
)

// Exercise is one logical lesson: sibling source files, one per language,
// sharing one ordered set of version labels.
type Exercise struct {
	// Name identifies the exercise, typically the manifest path without
	// its suffix.
	Name string
	// Manifest is the exercise descriptor.
	Manifest domain.Manifest
	// Files are the parsed sibling files. The first entry is the reference
	// file for rank assignment.
	Files []domain.SourceFile
}

// LanguageEntry is one language's view of one version label.
type LanguageEntry struct {
	// Snapshot is the visible source at this label.
	Snapshot domain.Snapshot `json:"snapshot"`
	// Diff is the change from the previous label's snapshot.
	Diff domain.Diff `json:"diff"`
}

// VersionEntry maps one label to every language's snapshot and diff.
type VersionEntry struct {
	// Label is the version label name.
	Label string `json:"label"`
	// Languages maps language identifier to that language's entry.
	Languages map[domain.Language]LanguageEntry `json:"languages"`
}

// Payload is the aggregated structure handed to an external renderer:
// ordered labels, each mapped per language to snapshot and diff.
type Payload struct {
	// Exercise is the exercise name.
	Exercise string `json:"exercise"`
	// Labels is the ordered label list with ranks.
	Labels []domain.VersionLabel `json:"labels"`
	// Versions holds one entry per label, in rank order.
	Versions []VersionEntry `json:"versions"`
}

// Aggregate merges the per-language builds of one exercise. The label order
// comes from the manifest when declared, otherwise from the reference file's
// tag order. A label set or order disagreement between sibling files
// surfaces as *version.OrderMismatchError and fails this exercise only.
func Aggregate(ex Exercise) (*Payload, error) {
	if len(ex.Files) == 0 {
		return nil, fmt.Errorf("exercise %s: no source files", ex.Name)
	}

	var labels []domain.VersionLabel
	if len(ex.Manifest.Versions) > 0 {
		labels = make([]domain.VersionLabel, len(ex.Manifest.Versions))
		for i, name := range ex.Manifest.Versions {
			labels[i] = domain.VersionLabel{Name: name, Rank: i}
		}
	} else {
		labels = version.BuildLabels(ex.Files[0])
	}

	payload := &Payload{
		Exercise: ex.Name,
		Labels:   labels,
		Versions: make([]VersionEntry, len(labels)),
	}
	for i, label := range labels {
		payload.Versions[i] = VersionEntry{
			Label:     label.Name,
			Languages: make(map[domain.Language]LanguageEntry, len(ex.Files)),
		}
	}

	seen := make(map[domain.Language]string, len(ex.Files))
	for _, file := range ex.Files {
		if prev, dup := seen[file.Language]; dup {
			return nil, fmt.Errorf("exercise %s: language %s provided by both %s and %s",
				ex.Name, file.Language, prev, file.Path)
		}
		seen[file.Language] = file.Path

		snaps, err := version.Snapshots(file, labels)
		if err != nil {
			return nil, fmt.Errorf("exercise %s: %w", ex.Name, err)
		}

		prev := domain.Snapshot{}
		for i, snap := range snaps {
			payload.Versions[i].Languages[file.Language] = LanguageEntry{
				Snapshot: snap,
				Diff:     diff.Between(prev, snap, file.Language),
			}
			prev = snap
		}
	}

	return payload, nil
}
