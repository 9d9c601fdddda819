// Package contentfilter decides whether outbound message text is acceptable
// and produces a sanitized version. All functions are deterministic and
// stateless; the analyzer runs synchronously before a message is persisted.
package contentfilter

import (
	"regexp"
	"strings"

	"artmarket/backend/internal/config"
)

// Violation categories reported to the sender on rejection.
const (
	ViolationContactInfo    = "contact_information"
	ViolationURL            = "external_links"
	ViolationSocialHandle   = "social_media_handles"
	ViolationPlatform       = "messaging_platform_references"
	ViolationContactRequest = "direct_contact_requests"
	ViolationProfanity      = "profanity"
	ViolationEvasion        = "obfuscated_contact_details"
)

var (
	emailRe  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlRe    = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+)`)
	phoneRe  = regexp.MustCompile(`\+?\d[\d\s\-().]{5,}\d`)
	handleRe = regexp.MustCompile(`(^|\s)@[A-Za-z0-9_.]{2,}`)

	platformRe = regexp.MustCompile(`(?i)\b(whatsapp|telegram|instagram|insta|snapchat|signal|viber|discord|skype|messenger|wechat)\b`)

	contactRequestRe = regexp.MustCompile(`(?i)\b(call me|text me|dm me|email me|reach me|contact me|message me on|add me on|find me on|my number is?)\b`)

	// Creative evasion heuristics.
	spelledDigitsRe   = regexp.MustCompile(`(?i)\b(zero|one|two|three|four|five|six|seven|eight|nine)([\s\-]+(zero|one|two|three|four|five|six|seven|eight|nine)){4,}\b`)
	obfuscatedMailRe  = regexp.MustCompile(`(?i)\b\w+\s*(\(at\)|\[at\]|\bat\b)\s*\w+\s*(\(dot\)|\[dot\]|\bdot\b)\s*\w+\b`)
	dashedDigitsRe    = regexp.MustCompile(`\b\d{2,4}([\-\s]\d{2,4}){2,}\b`)
	platformHandoffRe = regexp.MustCompile(`(?i)\b(whatsapp|telegram|instagram|insta|snapchat|signal|viber|discord|skype)\s*:\s*\S+`)

	whitespaceRe = regexp.MustCompile(`\s{2,}`)
)

// profaneTerms is the configured deny list, matched case-insensitively as
// whole words.
var profaneTerms = []string{
	"shit", "fuck", "bitch", "bastard", "asshole", "dick", "cunt", "piss",
}

var profanityRe = regexp.MustCompile(`(?i)\b(` + strings.Join(profaneTerms, "|") + `)\b`)

// Report is the result of analyzing a message.
type Report struct {
	Score      int      `json:"score"`
	Acceptable bool     `json:"acceptable"`
	Violations []string `json:"violations"`
}

// Redact replaces detected contact information with fixed placeholder tokens
// and collapses repeated whitespace. Empty input is returned unchanged.
func Redact(text string) string {
	if text == "" {
		return text
	}
	out := emailRe.ReplaceAllString(text, "[email removed]")
	out = urlRe.ReplaceAllString(out, "[link removed]")
	// Phone-like sequences only: require enough digits so prices and years
	// survive redaction.
	out = phoneRe.ReplaceAllStringFunc(out, func(m string) string {
		if digitCount(m) < 7 {
			return m
		}
		return "[phone removed]"
	})
	out = handleRe.ReplaceAllStringFunc(out, func(m string) string {
		if strings.HasPrefix(m, " ") {
			return " [handle removed]"
		}
		return "[handle removed]"
	})
	out = platformRe.ReplaceAllString(out, "[platform removed]")
	out = whitespaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// FilterProfanity masks configured profane terms with asterisks of equal
// length, case-insensitively, whole words only.
func FilterProfanity(text string) string {
	if text == "" {
		return text
	}
	return profanityRe.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat("*", len(m))
	})
}

// Analyze scores the text from 100 downward and reports which violation
// categories were detected. A message is acceptable iff the score stays at
// or above the configured threshold.
func Analyze(text string) Report {
	score := 100
	var violations []string

	category := func(name string) {
		score -= config.CategoryPenalty
		violations = append(violations, name)
	}

	if emailRe.MatchString(text) || hasPhone(text) {
		category(ViolationContactInfo)
	}
	if urlRe.MatchString(text) {
		category(ViolationURL)
	}
	if handleRe.MatchString(text) {
		category(ViolationSocialHandle)
	}
	if platformRe.MatchString(text) {
		category(ViolationPlatform)
	}
	if contactRequestRe.MatchString(text) {
		category(ViolationContactRequest)
	}

	if n := len(profanityRe.FindAllString(text, -1)); n > 0 {
		score -= n * config.ProfanityPenalty
		violations = append(violations, ViolationProfanity)
	}

	if spelledDigitsRe.MatchString(text) || obfuscatedMailRe.MatchString(text) ||
		dashedDigitsRe.MatchString(text) || platformHandoffRe.MatchString(text) {
		score -= config.EvasionPenalty
		violations = append(violations, ViolationEvasion)
	}

	if score < 0 {
		score = 0
	}

	return Report{
		Score:      score,
		Acceptable: score >= config.AcceptableScore,
		Violations: violations,
	}
}

// Sanitize is the storage form of an accepted message: redacted, then
// profanity-masked.
func Sanitize(text string) string {
	return FilterProfanity(Redact(text))
}

func hasPhone(text string) bool {
	for _, m := range phoneRe.FindAllString(text, -1) {
		if digitCount(m) >= 7 {
			return true
		}
	}
	return false
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
