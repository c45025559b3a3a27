package launcher

import (
	"fmt"
	"strings"
)

// SplitArgs splits an argument string using shell-like rules: whitespace
// separates words, single quotes are literal and double quotes group. A
// backslash escapes only a following quote or whitespace character; any
// other backslash is kept, so Windows paths pass through unchanged.
func SplitArgs(s string) ([]string, error) {
	var out []string
	var buf strings.Builder
	inSingle := false
	inDouble := false
	started := false

	flush := func() {
		if !started {
			return
		}
		out = append(out, buf.String())
		buf.Reset()
		started = false
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && !inSingle && i+1 < len(runes) && escapable(runes[i+1], inDouble) {
			buf.WriteRune(runes[i+1])
			started = true
			i++
			continue
		}
		if !inDouble && r == '\'' {
			inSingle = !inSingle
			started = true
			continue
		}
		if !inSingle && r == '"' {
			inDouble = !inDouble
			started = true
			continue
		}
		if !inSingle && !inDouble && isSpace(r) {
			flush()
			continue
		}
		buf.WriteRune(r)
		started = true
	}

	if inSingle || inDouble {
		return nil, fmt.Errorf("unterminated quote in arguments")
	}

	flush()
	return out, nil
}

// escapable reports whether a backslash before r is an escape. Inside
// double quotes only an embedded double quote can be escaped.
func escapable(r rune, inDouble bool) bool {
	if inDouble {
		return r == '"'
	}
	return r == '"' || r == '\'' || isSpace(r)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
