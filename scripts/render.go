//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ComputingTeachers/language-reference/pkg/exercise"
	"github.com/ComputingTeachers/language-reference/pkg/source"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/render.go <path>\n")
		os.Exit(1)
	}

	path := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	src, err := source.NewLocalSource(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "source error: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	result, err := exercise.Scan(ctx, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan error: %v\n", err)
		os.Exit(1)
	}

	for _, scanErr := range result.Errors {
		fmt.Fprintf(os.Stderr, "exercise error: %v\n", scanErr)
	}
	for _, diag := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "warning: %s\n", diag)
	}

	output := map[string]interface{}{
		"manifestsFound":  result.Stats.ManifestsFound,
		"exercisesBuilt":  result.Stats.ExercisesBuilt,
		"exercisesFailed": result.Stats.ExercisesFailed,
		"filesParsed":     result.Stats.FilesParsed,
		"duration":        result.Stats.Duration.String(),
		"exercises":       result.Payloads,
	}
	json.NewEncoder(os.Stdout).Encode(output)
}
