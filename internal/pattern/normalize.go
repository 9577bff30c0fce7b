package pattern

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// homoglyphs maps lookalike characters to their ASCII equivalents. Covers the
// Cyrillic and fullwidth forms most commonly used to slip past keyword
// matching.
var homoglyphs = map[rune]rune{
	// Cyrillic lookalikes
	'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'х': 'x',
	'і': 'i', 'ѕ': 's', 'у': 'y', 'ԁ': 'd', 'һ': 'h', 'ɡ': 'g',
	'А': 'A', 'В': 'B', 'Е': 'E', 'К': 'K', 'М': 'M', 'Н': 'H',
	'О': 'O', 'Р': 'P', 'С': 'C', 'Т': 'T', 'Х': 'X',
	// Greek lookalikes
	'ο': 'o', 'ν': 'v', 'α': 'a', 'ρ': 'p', 'τ': 't',
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// base64Token matches standalone tokens long enough to plausibly encode a
// command. Short tokens are left alone to avoid decoding ordinary words.
var base64Token = regexp.MustCompile(`\b[A-Za-z0-9+/]{16,}={0,2}\b`)

// Normalize produces the obfuscation-resistant form of text that patterns
// are matched against: fullwidth folding, homoglyph mapping, case folding,
// whitespace collapsing, and a best-effort decode of base64-looking tokens
// appended so encoded payloads are visible to the same rules.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if mapped, ok := homoglyphs[r]; ok {
			r = mapped
		}
		// Fullwidth ASCII variants fold to their ASCII counterparts.
		if r >= 0xFF01 && r <= 0xFF5E {
			r = r - 0xFF01 + '!'
		}
		if r == 0 {
			continue
		}
		b.WriteRune(r)
	}

	folded := b.String()

	// Base64 is case-sensitive: decode before case folding.
	decoded := decodeBase64Tokens(folded)

	normalized := strings.ToLower(folded)
	normalized = whitespaceRun.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)

	if decoded != "" {
		normalized += " " + decoded
	}

	return normalized
}

// decodeBase64Tokens attempts to decode base64-looking tokens and returns the
// concatenation of every decode that yields printable text. Failures are
// ignored: a token that does not decode cleanly is just an ordinary word.
func decodeBase64Tokens(text string) string {
	tokens := base64Token.FindAllString(text, 8)
	if len(tokens) == 0 {
		return ""
	}

	var decoded []string
	for _, tok := range tokens {
		raw, err := base64.StdEncoding.DecodeString(tok)
		if err != nil {
			raw, err = base64.RawStdEncoding.DecodeString(tok)
		}
		if err != nil {
			continue
		}
		if !isPrintableText(raw) {
			continue
		}
		decoded = append(decoded, strings.ToLower(string(raw)))
	}
	return strings.Join(decoded, " ")
}

// isPrintableText reports whether data is valid UTF-8 made of printable
// runes and ordinary whitespace.
func isPrintableText(data []byte) bool {
	if len(data) == 0 || !utf8.Valid(data) {
		return false
	}
	for _, r := range string(data) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
