// Package sqlextract pulls executable statements out of assistant
// output. Statements are delimited by a fixed <SQL>...</SQL> marker
// pair; anything outside the markers is prose and ignored. This is a
// textual scan on purpose: the surrounding model output is not
// guaranteed to be valid SQL syntax, so no parsing is attempted.
package sqlextract

import (
	"regexp"
	"strings"
)

var sqlBlock = regexp.MustCompile(`(?s)<SQL>(.*?)</SQL>`)

// Extract returns every delimited statement in order of appearance,
// trimmed of surrounding whitespace. Nil when the text contains no
// well-formed marker pair.
func Extract(text string) []string {
	matches := sqlBlock.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	statements := make([]string, 0, len(matches))
	for _, match := range matches {
		statements = append(statements, strings.TrimSpace(match[1]))
	}
	return statements
}
