package catalog

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[\s._\-()]+`)

// NormalizeName folds a class or role name for matching: "Off-Tank (Druid)" and
// "offtank druid" compare equal.
func NormalizeName(name string) string {
	return nonWord.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "")
}
