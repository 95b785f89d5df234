// Package term parses raw search input: tag expressions are pulled out into
// filter values and the remainder is escaped for the engine's query syntax.
package term

import (
	"regexp"
	"strings"
)

// tagPattern matches `#word`, `#"some phrase"`, `tag:word` and `tag:"some phrase"`
// at the start of the input or after whitespace.
var tagPattern = regexp.MustCompile(`(?:^|\s)(?:#|tag:)(?:"([^"]*)"|(\S+))`)

// Values is the result of extracting tags from a raw term.
type Values struct {
	Tags []string
	// Search is the escaped remainder for the engine query syntax.
	Search string
	// Plain is the unescaped remainder for substring matching.
	Plain string
}

// Extract pulls tag expressions out of raw and escapes what is left.
// The returned Search may be empty: the caller must then run a filter-only query.
func Extract(raw string) Values {
	var tags []string
	rest := tagPattern.ReplaceAllStringFunc(raw, func(match string) string {
		sub := tagPattern.FindStringSubmatch(match)
		value := sub[1]
		if value == "" {
			// An unterminated quote falls through to the bare form.
			value = strings.Trim(sub[2], `"`)
		}
		if value = strings.TrimSpace(value); value != "" {
			tags = append(tags, value)
		}
		return " "
	})

	plain := collapse(rest)
	return Values{
		Tags:   tags,
		Search: Escape(plain),
		Plain:  plain,
	}
}

// Escape backslash-escapes reserved query characters. Angle brackets cannot be
// escaped in the target syntax, so they become a space to keep token boundaries.
func Escape(s string) string {
	return collapse(reservedEscaper.Replace(s))
}

var reservedEscaper = strings.NewReplacer(
	`&&`, `\&&`,
	`||`, `\||`,
	`\`, `\\`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`!`, `\!`,
	`(`, `\(`,
	`)`, `\)`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`^`, `\^`,
	`"`, `\"`,
	`~`, `\~`,
	`*`, `\*`,
	`?`, `\?`,
	`:`, `\:`,
	`/`, `\/`,
	`<`, ` `,
	`>`, ` `,
)

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
