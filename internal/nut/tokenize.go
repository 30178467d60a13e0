package nut

import (
	"strings"

	"github.com/sweeney/upslist/internal/upserr"
)

// Tokenize splits one upsd reply line into words. Whitespace separates
// words; a double-quoted span is part of a single word and may contain
// spaces. Inside quotes a backslash escapes the next character, which is how
// upsd emits embedded quotes and backslashes. An unterminated quote or a
// dangling backslash is a ProtocolError.
func Tokenize(line string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		inWord  bool
		quoted  bool
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
			inWord = true
		case !quoted && (r == ' ' || r == '\t'):
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quoted || escaped {
		return nil, upserr.Protocolf(line, "unterminated quote")
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}

// quote renders s as a single protocol word, quoting it when needed.
func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"\\") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
