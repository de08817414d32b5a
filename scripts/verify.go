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
	"github.com/ComputingTeachers/language-reference/pkg/verify"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/verify.go <path> [toolchains.yaml]\n")
		os.Exit(1)
	}

	path := os.Args[1]

	cfg := verify.DefaultConfig()
	if len(os.Args) > 2 {
		data, err := os.ReadFile(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
		cfg, err = verify.LoadConfig(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
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

	harness := verify.New(cfg)
	report, err := harness.Run(ctx, verify.Targets(result.Payloads))
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify error: %v\n", err)
		os.Exit(1)
	}

	output := map[string]interface{}{
		"results": report.Results,
		"skipped": len(report.Skipped),
		"ok":      report.OK(),
	}
	json.NewEncoder(os.Stdout).Encode(output)

	if !report.OK() {
		os.Exit(1)
	}
}
