package exercise

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ComputingTeachers/language-reference/pkg/domain"
)

// Manifest file suffixes, checked in order.
var manifestSuffixes = []string{".ver.json", ".ver.yaml", ".ver.yml"}

// IsManifestPath reports whether a path names an exercise manifest.
func IsManifestPath(path string) bool {
	return manifestSuffix(path) != ""
}

func manifestSuffix(path string) string {
	for _, suffix := range manifestSuffixes {
		if strings.HasSuffix(path, suffix) {
			return suffix
		}
	}
	return ""
}

// ExerciseName derives the exercise name from a manifest path relative to
// the scan root.
func ExerciseName(relPath string) string {
	return strings.TrimSuffix(relPath, manifestSuffix(relPath))
}

// ParseManifest decodes a manifest file. JSON and YAML manifests carry the
// same shape: an ordered `versions` list and an optional `files` list.
func ParseManifest(relPath string, data []byte) (domain.Manifest, error) {
	manifest := domain.Manifest{Name: ExerciseName(relPath)}

	var err error
	switch manifestSuffix(relPath) {
	case ".ver.json":
		err = json.Unmarshal(data, &manifest)
	case ".ver.yaml", ".ver.yml":
		err = yaml.Unmarshal(data, &manifest)
	default:
		return manifest, fmt.Errorf("not a manifest path: %s", relPath)
	}
	if err != nil {
		return manifest, fmt.Errorf("malformed manifest %s: %w", relPath, err)
	}

	manifest.Name = ExerciseName(relPath)
	return manifest, nil
}
