package app

import (
	"strings"
	"unicode/utf8"
)

// BundleSize is the largest text body sent in one provider message.
const BundleSize = 1000

// SplitIntoBundles packs the whitespace-separated tokens of text into
// bundles of at most size characters, joined by single spaces. A token
// longer than size is emitted alone and never split.
func SplitIntoBundles(text string, size int) []string {
	var bundles []string
	var cur strings.Builder
	curLen := 0

	for _, tok := range strings.Fields(text) {
		n := utf8.RuneCountInString(tok)
		switch {
		case curLen == 0:
			cur.WriteString(tok)
			curLen = n
		case curLen+1+n > size:
			bundles = append(bundles, cur.String())
			cur.Reset()
			cur.WriteString(tok)
			curLen = n
		default:
			cur.WriteByte(' ')
			cur.WriteString(tok)
			curLen += 1 + n
		}
	}
	if curLen > 0 {
		bundles = append(bundles, cur.String())
	}
	return bundles
}
