package usecase

import (
	"regexp"
	"strings"
)

var (
	danglingDashRe   = regexp.MustCompile(`\s*-\s*`)
	danglingColonRe  = regexp.MustCompile(`\s*:\s*`)
	ellipsisRe       = regexp.MustCompile(`\s*\.\s*\.\s*\.\s*`)
	punctOnlyLineRe  = regexp.MustCompile(`^[\W_]+$`)
	leadingPunctRe   = regexp.MustCompile(`^[\s.,;:!?-]+`)
	trailingPunctRe  = regexp.MustCompile(`[\s.,;:!?-]+$`)
	multipleSpacesRe = regexp.MustCompile(`  +`)
)

const ttsAllowed = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 .,!?;:'\"-()[]\n"

// ExtractEnglishForTTS keeps only English letters, digits and basic
// punctuation. Cyrillic has to go before synthesis or the engine spells the
// Russian words letter by letter; the punctuation left hanging after that
// removal gets cleaned up too.
func ExtractEnglishForTTS(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	for _, ch := range text {
		if strings.ContainsRune(ttsAllowed, ch) {
			b.WriteRune(ch)
		}
	}
	filtered := b.String()

	filtered = danglingDashRe.ReplaceAllString(filtered, " ")
	filtered = danglingColonRe.ReplaceAllString(filtered, " ")
	filtered = ellipsisRe.ReplaceAllString(filtered, ". ")

	var lines []string
	for _, ln := range strings.Split(filtered, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || punctOnlyLineRe.MatchString(ln) {
			continue
		}
		ln = leadingPunctRe.ReplaceAllString(ln, "")
		ln = trailingPunctRe.ReplaceAllString(ln, "")
		if ln != "" {
			lines = append(lines, ln)
		}
	}

	out := strings.Join(lines, "\n")
	out = multipleSpacesRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
