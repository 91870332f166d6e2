package translate

import (
	"strings"

	"golang.org/x/text/language"
)

// BaseCode reduces a BCP 47 tag such as "en-US" or "pt-BR" to the two-letter
// code the translation backend expects.
func BaseCode(tag string) (string, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", false
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", false
	}
	// Anything but an explicit base subtag (e.g. "und") is guesswork.
	base, conf := t.Base()
	if conf != language.Exact {
		return "", false
	}
	return base.String(), true
}
