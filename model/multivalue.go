package model

import (
	"strings"

	"github.com/goccy/go-json"
)

// EncodeList serializes the values of a multiple choice answer as a
// bracketed list of quoted items.
func EncodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		// a []string always marshals
		panic(err)
	}
	return string(b)
}

// DecodeList reads a stored multiple choice body back into its values.
// Accepted forms are JSON arrays, legacy lists quoted with ' or " (as in
// "['a', 'b']"), the empty list, and a bare scalar which yields one value.
func DecodeList(body string) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return []string{}
	}
	if !strings.HasPrefix(body, "[") || !strings.HasSuffix(body, "]") {
		return []string{body}
	}

	var values []string
	if err := json.Unmarshal([]byte(body), &values); err == nil {
		if values == nil {
			values = []string{}
		}
		return values
	}
	return decodeQuotedList(body[1 : len(body)-1])
}

func decodeQuotedList(s string) []string {
	values := []string{}
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == ',' || r == ' ' || r == '\t' || r == '\n':
			i++

		case r == '\'' || r == '"':
			quote := r
			var sb strings.Builder
			i++
			for i < len(runes) && runes[i] != quote {
				if runes[i] == '\\' && i+1 < len(runes) {
					i++
					switch runes[i] {
					case 'n':
						sb.WriteRune('\n')
					case 't':
						sb.WriteRune('\t')
					default:
						sb.WriteRune(runes[i])
					}
				} else {
					sb.WriteRune(runes[i])
				}
				i++
			}
			i++ // closing quote
			values = append(values, sb.String())

		default:
			start := i
			for i < len(runes) && runes[i] != ',' {
				i++
			}
			if v := strings.TrimSpace(string(runes[start:i])); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}
