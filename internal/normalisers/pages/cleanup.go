package pages

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ligatures maps presentation-form ligatures and soft hyphens emitted by PDF
// text layers to plain text.
var ligatures = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬅ", "st",
	"ﬆ", "st",
	"\u00ad", "",
)

var (
	hyphenBreak = regexp.MustCompile(`(\p{L})-[ \t]*\r?\n[ \t]*(\p{L})`)
	blankRuns   = regexp.MustCompile(`\n[ \t]*(?:\r?\n[ \t]*)+`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// Clean applies the fixed cleanup chain to a block of extracted text.
//
// Order matters: ligature, hyphenation and Unicode fixes run while line breaks
// are still present, whitespace collapsing runs last.
func Clean(s string) string {
	s = ligatures.Replace(s)
	s = hyphenBreak.ReplaceAllString(s, "$1$2")
	s = norm.NFKC.String(s)
	s = blankRuns.ReplaceAllString(s, "\n\n")
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
