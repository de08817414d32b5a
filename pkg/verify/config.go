// Package verify runs every generated version snapshot through its
// language's toolchain and reports the first point of breakage.
package verify

import (
	"fmt"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"

	"github.com/ComputingTeachers/language-reference/pkg/domain"
)

// DefaultInvocationTimeout bounds a single toolchain stage.
const DefaultInvocationTimeout = 30 * time.Second

// Duration wraps time.Duration so YAML values like "10s" decode.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Toolchain configures how one language's snapshots are validated.
// Commands may reference {file} (the materialized snapshot path) and {dir}
// (its workspace directory).
type Toolchain struct {
	// Compile is the optional compile-stage command. Empty for languages
	// that are run directly.
	Compile string `yaml:"compile,omitempty"`
	// Run is the run-stage command.
	Run string `yaml:"run"`
	// FileName is the name the snapshot is written under inside its
	// workspace. Defaults to "main." plus the language's first extension.
	FileName string `yaml:"filename,omitempty"`
	// Timeout bounds each stage. Zero uses DefaultInvocationTimeout.
	Timeout Duration `yaml:"timeout,omitempty"`
}

// Config maps languages to their toolchains.
type Config struct {
	Toolchains map[domain.Language]Toolchain `yaml:"toolchains"`
}

// DefaultConfig returns toolchains for the interpreted languages plus the
// common compiled ones, assuming the tools are on PATH.
func DefaultConfig() Config {
	return Config{Toolchains: map[domain.Language]Toolchain{
		domain.LanguagePython:     {Run: "python3 {file}"},
		domain.LanguageJavaScript: {Run: "node {file}"},
		domain.LanguageRuby:       {Run: "ruby {file}"},
		domain.LanguagePHP:        {Run: "php {file}"},
		domain.LanguageLua:        {Run: "lua {file}"},
		domain.LanguageC:          {Compile: "gcc {file} -o {dir}/snippet", Run: "{dir}/snippet"},
		domain.LanguageCpp:        {Compile: "g++ {file} -o {dir}/snippet", Run: "{dir}/snippet"},
		domain.LanguageGo:         {Run: "go run {file}"},
		domain.LanguageRust:       {Compile: "rustc {file} -o {dir}/snippet", Run: "{dir}/snippet"},
		domain.LanguageJava:       {Compile: "javac {file}", Run: "java -cp {dir} Main", FileName: "Main.java"},
	}}
}

// LoadConfig parses a YAML toolchain configuration and validates it.
func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse toolchain config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every toolchain references a known language, has a run
// command, and has parseable command strings.
func (c Config) Validate() error {
	for lang, tc := range c.Toolchains {
		if _, ok := domain.Lookup(lang); !ok {
			return fmt.Errorf("toolchain for unknown language %q", lang)
		}
		if strings.TrimSpace(tc.Run) == "" {
			return fmt.Errorf("toolchain for %s has no run command", lang)
		}
		for _, command := range []string{tc.Compile, tc.Run} {
			if command == "" {
				continue
			}
			if _, err := shellquote.Split(command); err != nil {
				return fmt.Errorf("toolchain for %s: unparseable command %q: %w", lang, command, err)
			}
		}
	}
	return nil
}

// fileName returns the snapshot file name for a language.
func (t Toolchain) fileName(info domain.LanguageInfo) string {
	if t.FileName != "" {
		return t.FileName
	}
	return "main." + info.Extensions[0]
}

// timeout returns the per-stage time limit.
func (t Toolchain) timeout() time.Duration {
	if t.Timeout > 0 {
		return time.Duration(t.Timeout)
	}
	return DefaultInvocationTimeout
}

// splitCommand expands the {file} and {dir} placeholders and splits the
// command into argv form.
func splitCommand(command, file, dir string) ([]string, error) {
	expanded := strings.NewReplacer("{file}", file, "{dir}", dir).Replace(command)
	argv, err := shellquote.Split(expanded)
	if err != nil {
		return nil, fmt.Errorf("split command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command %q", command)
	}
	return argv, nil
}
