package pattern

import "github.com/ppiankov/skillgate/internal/model"

// Matcher runs text against a Library in fixed category priority order.
// A Matcher is a pure function over immutable pattern data and is safe for
// concurrent use.
type Matcher struct {
	lib *Library
}

// NewMatcher creates a Matcher over the given library.
func NewMatcher(lib *Library) *Matcher {
	return &Matcher{lib: lib}
}

// Library returns the matcher's library snapshot.
func (m *Matcher) Library() *Library { return m.lib }

// Match classifies text. Categories are checked in priority order and
// matching stops at the first hit, so when several categories would match
// the most severe classification is reported. Never fails: no match returns
// Safe with category None.
func (m *Matcher) Match(text string) model.MatchResult {
	if text == "" {
		return model.SafeResult()
	}

	normalized := Normalize(text)

	for _, c := range m.lib.categories {
		for _, p := range c.patterns {
			if p.re.MatchString(normalized) || p.re.MatchString(text) {
				return model.MatchResult{
					Verdict:   c.verdict,
					Category:  c.name,
					PatternID: p.id,
					Reason:    "pattern " + p.id + " matched",
				}
			}
		}
	}

	return model.SafeResult()
}

// MatchCategory runs only the named category's patterns. Used by the judge
// to pre-filter judge-bypass phrasing before text reaches the backend.
func (m *Matcher) MatchCategory(text string, name model.ThreatCategory) model.MatchResult {
	if text == "" {
		return model.SafeResult()
	}

	normalized := Normalize(text)

	for _, c := range m.lib.categories {
		if c.name != name {
			continue
		}
		for _, p := range c.patterns {
			if p.re.MatchString(normalized) || p.re.MatchString(text) {
				return model.MatchResult{
					Verdict:   c.verdict,
					Category:  c.name,
					PatternID: p.id,
					Reason:    "pattern " + p.id + " matched",
				}
			}
		}
	}

	return model.SafeResult()
}
