// Package pattern holds the detection rule library and the matcher that
// classifies request text against it. The library is an immutable snapshot:
// reloading produces a new value, never in-place mutation visible to
// in-flight requests.
package pattern

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/skillgate/internal/model"
)

// RawPattern is one detection rule as written in YAML.
type RawPattern struct {
	ID    string `yaml:"id"`
	Regex string `yaml:"regex"`
}

// RawCategory groups rules under a threat category with a default verdict.
type RawCategory struct {
	Category string       `yaml:"category"`
	Verdict  string       `yaml:"verdict"`
	Patterns []RawPattern `yaml:"patterns"`
}

// RawLibrary is the YAML shape of a pattern library file.
type RawLibrary struct {
	Version    string        `yaml:"version"`
	Categories []RawCategory `yaml:"categories"`
}

// compiledPattern pairs a rule ID with its compiled matcher.
type compiledPattern struct {
	id string
	re *regexp.Regexp
}

// category is an ordered group of compiled patterns sharing a verdict.
type category struct {
	name     model.ThreatCategory
	verdict  model.ThreatLevel
	patterns []compiledPattern
}

// Library is a versioned, immutable, ordered set of detection rules.
// Categories are matched in the order they appear: highest-impact first.
type Library struct {
	version    string
	categories []category
}

// Version returns the library's version string.
func (l *Library) Version() string { return l.version }

// Size returns the total number of compiled patterns.
func (l *Library) Size() int {
	n := 0
	for _, c := range l.categories {
		n += len(c.patterns)
	}
	return n
}

// New compiles a library from raw definitions. Patterns that fail to compile
// are skipped rather than failing the whole library; an unknown category or
// verdict string is an error since it indicates a config mistake, not a bad
// regex.
func New(raw RawLibrary) (*Library, error) {
	lib := &Library{version: raw.Version}
	for _, rc := range raw.Categories {
		name := model.ThreatCategory(rc.Category)
		switch name {
		case model.CategoryCommandInjection, model.CategoryIoTInjection,
			model.CategoryDataExfiltration, model.CategorySupplyChain,
			model.CategoryPolicyOverride, model.CategoryJudgeBypass,
			model.CategoryReflectionLeak, model.CategoryJailbreak:
		default:
			return nil, fmt.Errorf("pattern: unknown category %q", rc.Category)
		}

		verdict := model.ThreatLevel(rc.Verdict)
		switch verdict {
		case model.Suspicious, model.Malicious:
		default:
			return nil, fmt.Errorf("pattern: category %q has invalid verdict %q", rc.Category, rc.Verdict)
		}

		c := category{name: name, verdict: verdict}
		for _, rp := range rc.Patterns {
			re, err := regexp.Compile("(?i)" + rp.Regex)
			if err != nil {
				continue
			}
			c.patterns = append(c.patterns, compiledPattern{id: rp.ID, re: re})
		}
		lib.categories = append(lib.categories, c)
	}
	return lib, nil
}

// NewDefault compiles the built-in rule set.
func NewDefault() *Library {
	lib, err := New(defaultLibrary)
	if err != nil {
		// The default library is covered by tests; a compile failure here
		// is a programmer error.
		panic(fmt.Sprintf("pattern: default library invalid: %v", err))
	}
	return lib
}

// Load reads a pattern library from a YAML file. Falls back to the built-in
// defaults if path is empty or the file does not exist.
func Load(path string) (*Library, error) {
	if path == "" {
		return NewDefault(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return nil, fmt.Errorf("pattern: read library: %w", err)
	}

	var raw RawLibrary
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("pattern: parse library: %w", err)
	}

	return New(raw)
}
