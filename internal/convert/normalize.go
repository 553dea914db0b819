// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"regexp"
	"strings"
)

var (
	fenceOpener = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n")
	fenceCloser = regexp.MustCompile("\r?\n```$")
)

// Normalize strips a code fence the model wrapped around its answer despite
// the prompt, then trims surrounding whitespace. Wrappers are peeled until
// none remain, so Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	text := strings.TrimSpace(raw)
	for {
		next := fenceOpener.ReplaceAllString(text, "")
		next = fenceCloser.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == text {
			return text
		}
		text = next
	}
}
