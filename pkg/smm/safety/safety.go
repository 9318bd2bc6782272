// Package safety implements the lexical content filter applied to operator
// themes and free-text draft requests before they reach the generation
// gateway. It is a best-effort substring match against a curated lexicon:
// false negatives are acceptable, false positives are fixed by rephrasing.
package safety

import "strings"

// lexicon is the curated set of explicit/profane fragments. Matching is
// case-insensitive substring, so each entry also catches derived forms
// ("porn" catches "pornographic").
var lexicon = []string{
	"porn",
	"nsfw",
	"nude",
	"naked",
	"erotic",
	"explicit sex",
	"sexual",
	"xxx",
	"fetish",
	"blowjob",
	"handjob",
	"cunniling",
	"fellatio",
	"genital",
	"penis",
	"vagina",
	"orgasm",
	"anal sex",
	"escort service",
	"onlyfans",
}

// IsUnsafe reports whether text matches the explicit-content lexicon.
// Pure function, no state. Callers must reject matching input without
// creating a draft or calling the generation gateway.
func IsUnsafe(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, term := range lexicon {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
