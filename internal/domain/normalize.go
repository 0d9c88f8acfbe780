package domain

import (
	"regexp"
	"strings"
)

var (
	footnotePattern    = regexp.MustCompile(`\[[^\[\]]*\]`)
	titleMarkerPattern = regexp.MustCompile(`(?i)\(\s*i?c\s*\)`)
	dashReplacer       = strings.NewReplacer(
		"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-",
		"\u2014", "-", "\u2015", "-", "\u2212", "-", "\ufe63", "-", "\uff0d", "-",
	)
	invisibleReplacer = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "")
)

// CleanText removes footnote markers ([1], [a], [note 2]) and invisible characters,
// and collapses every run of whitespace (non-breaking spaces included) into one space.
func CleanText(s string) string {
	s = invisibleReplacer.Replace(s)
	s = replaceUntilStable(footnotePattern, s, " ")
	return collapseSpaces(s)
}

// NormalizeName returns the lookup form of a fighter name: cleaned text with
// title-holder markers removed and every dash variant turned into '-'.
// NormalizeName(NormalizeName(s)) == NormalizeName(s) for any s.
func NormalizeName(s string) string {
	s = collapseSpaces(dashReplacer.Replace(invisibleReplacer.Replace(s)))
	for {
		next := replaceUntilStable(titleMarkerPattern, replaceUntilStable(footnotePattern, s, " "), "")
		if next == s {
			break
		}
		s = next
	}
	return collapseSpaces(s)
}

// ShortKey returns the case-folded prefix of an event name up to its first colon,
// so "UFC 300: Pereira vs. Hill" and "UFC 300" share the key "ufc 300".
func ShortKey(name string) string {
	prefix, _, _ := strings.Cut(CleanText(name), ":")
	return strings.ToLower(strings.TrimSpace(prefix))
}

func replaceUntilStable(re *regexp.Regexp, s, repl string) string {
	for {
		next := re.ReplaceAllLiteralString(s, repl)
		if next == s {
			return s
		}
		s = next
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
