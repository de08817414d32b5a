// Package domain defines the core types for versioned source material.
package domain

import (
	"fmt"
	"strings"
)

// Language represents a programming language.
type Language string

// Supported languages for version tag extraction.
const (
	LanguageC           Language = "c"
	LanguageCpp         Language = "cpp"
	LanguageCSharp      Language = "csharp"
	LanguageGo          Language = "go"
	LanguageHTML        Language = "html"
	LanguageJava        Language = "java"
	LanguageJavaScript  Language = "javascript"
	LanguageLua         Language = "lua"
	LanguagePHP         Language = "php"
	LanguagePython      Language = "python"
	LanguageRuby        Language = "ruby"
	LanguageRust        Language = "rust"
	LanguageVisualBasic Language = "visual-basic"
)

// Comment describes one comment token pair for a language.
// End is empty for line comments that run to the end of the line.
type Comment struct {
	Start string
	End   string
}

// Common comment styles shared across language entries.
var (
	commentsStyleC      = []Comment{{Start: "/*", End: "*/"}, {Start: "//"}}
	commentsStylePython = []Comment{{Start: "#"}}
)

// LanguageInfo holds the static metadata for one supported language.
type LanguageInfo struct {
	// Language is the canonical language identifier.
	Language Language
	// Extensions are the file extensions (without dot) mapped to this language.
	Extensions []string
	// Comments are the comment token pairs recognized for version tags,
	// checked in order.
	Comments []Comment
}

// languages is the closed comment-syntax table. Adding a language means
// adding one entry here, not new control flow.
var languages = []LanguageInfo{
	{LanguagePython, []string{"py"}, commentsStylePython},
	{LanguageJavaScript, []string{"js"}, commentsStyleC},
	{LanguageHTML, []string{"html"}, append([]Comment{{Start: "<!--", End: "-->"}}, commentsStyleC...)},
	{LanguageJava, []string{"java"}, commentsStyleC},
	{LanguageVisualBasic, []string{"vb"}, []Comment{{Start: "'"}}},
	{LanguagePHP, []string{"php"}, commentsStylePython},
	{LanguageC, []string{"c"}, commentsStyleC},
	{LanguageCpp, []string{"cpp"}, commentsStyleC},
	{LanguageRuby, []string{"rb"}, commentsStylePython},
	{LanguageCSharp, []string{"cs"}, commentsStyleC},
	{LanguageLua, []string{"lua"}, []Comment{{Start: "--"}}},
	{LanguageGo, []string{"go"}, commentsStyleC},
	{LanguageRust, []string{"rs"}, commentsStyleC},
}

var (
	byLanguage  = map[Language]LanguageInfo{}
	byExtension = map[string]LanguageInfo{}
)

func init() {
	for _, info := range languages {
		if len(info.Comments) == 0 {
			panic(fmt.Sprintf("domain: language %s has no comment tokens", info.Language))
		}
		for _, c := range info.Comments {
			if c.Start == "" {
				panic(fmt.Sprintf("domain: language %s has an empty comment start token", info.Language))
			}
		}
		if _, dup := byLanguage[info.Language]; dup {
			panic(fmt.Sprintf("domain: duplicate language %s", info.Language))
		}
		byLanguage[info.Language] = info
		for _, ext := range info.Extensions {
			if _, dup := byExtension[ext]; dup {
				panic(fmt.Sprintf("domain: extension %q mapped twice", ext))
			}
			byExtension[ext] = info
		}
	}
}

// Lookup returns the metadata for a language identifier.
func Lookup(lang Language) (LanguageInfo, bool) {
	info, ok := byLanguage[lang]
	return info, ok
}

// LanguageForExtension resolves a file extension (with or without a leading
// dot) to its language metadata.
func LanguageForExtension(ext string) (LanguageInfo, bool) {
	info, ok := byExtension[strings.TrimPrefix(strings.ToLower(ext), ".")]
	return info, ok
}

// Languages returns the table entries in declaration order.
func Languages() []LanguageInfo {
	out := make([]LanguageInfo, len(languages))
	copy(out, languages)
	return out
}
