package agents

import "github.com/tidwall/gjson"

// firstObject returns the first balanced, valid JSON object in text that
// satisfies accept. A nil accept takes any object.
func firstObject(text string, accept func(gjson.Result) bool) (string, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := closingBrace(text, i)
		if end < 0 {
			continue
		}
		obj := text[i : end+1]
		if !gjson.Valid(obj) {
			continue
		}
		if accept == nil || accept(gjson.Parse(obj)) {
			return obj, true
		}
		i = end
	}
	return "", false
}

// closingBrace returns the index of the brace closing the one at start,
// or -1. Braces inside JSON strings are ignored.
func closingBrace(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
