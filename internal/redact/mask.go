// Package redact masks credential-shaped substrings before they are
// persisted. Masking preserves the first and last two characters of a secret
// for debugging; the middle is replaced by a fixed-length filler so the mask
// leaks nothing about the secret's length.
package redact

import (
	"regexp"
	"strings"
)

// maskFiller is the fixed-length middle of every masked secret.
const maskFiller = "************"

// minSecretLen is the shortest string treated as a maskable secret. Below
// this, keeping edge characters would reveal most of the value.
const minSecretLen = 8

// secretPatterns match credential-shaped substrings: well-known token
// prefixes plus generic key=value pairs where the key names a secret.
// Patterns with a capture group mask only the group (the secret value);
// patterns without one mask the whole match.
var secretPatterns = []*regexp.Regexp{
	// GitHub tokens (classic and fine-grained).
	regexp.MustCompile(`\bghp_[A-Za-z0-9]{20,}\b`),
	regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{20,}\b`),
	// OpenAI / Anthropic / OpenRouter style keys.
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}\b`),
	// AWS access key IDs.
	regexp.MustCompile(`\bAKIA[A-Z0-9]{16}\b`),
	// Google API keys.
	regexp.MustCompile(`\bAIza[A-Za-z0-9_-]{30,}\b`),
	// Slack tokens.
	regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`),
	// Telegram bot tokens.
	regexp.MustCompile(`\b[0-9]{8,10}:[A-Za-z0-9_-]{30,40}\b`),
	// Bearer headers; only the token is masked.
	regexp.MustCompile(`(?i)\bbearer\s+([A-Za-z0-9._~+/-]{16,}=*)`),
	// Private key PEM material.
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[^-]*-----END [A-Z ]*PRIVATE KEY-----`),
	// Generic password/secret/token assignments; only the value is masked.
	regexp.MustCompile(`(?i)\b(?:password|passwd|secret|token|api[_-]?key|apikey|auth)\s*[=:]\s*(\S{8,})`),
}

// Mask replaces every credential-shaped substring in text with a masked form
// that keeps the first and last two characters. Applying Mask to already
// masked text is a no-op: a masked value re-masks to itself.
func Mask(text string) string {
	if text == "" {
		return ""
	}

	for _, re := range secretPatterns {
		if re.NumSubexp() > 0 {
			text = re.ReplaceAllStringFunc(text, func(m string) string {
				sub := re.FindStringSubmatch(m)
				if len(sub) < 2 || sub[1] == "" {
					return maskValue(m)
				}
				return strings.Replace(m, sub[1], maskValue(sub[1]), 1)
			})
			continue
		}
		text = re.ReplaceAllStringFunc(text, maskValue)
	}

	return text
}

// Contains reports whether text holds at least one credential-shaped
// substring.
func Contains(text string) bool {
	for _, re := range secretPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// maskValue keeps the first and last two characters of a secret around the
// fixed filler. Values too short to keep edges safely become the filler
// alone.
func maskValue(s string) string {
	if len(s) < minSecretLen {
		return maskFiller
	}
	return s[:2] + maskFiller + s[len(s)-2:]
}
