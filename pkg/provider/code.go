package provider

import (
	"regexp"
	"strings"
)

var fence = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[ \t]*\r?\n(.*?)```")

// ExtractCode returns the body of the first fenced code block tagged lang.
// Without such a block it falls back to the first fenced block of any
// language, then to the whole text when it contains no fence at all. An
// unterminated fence yields everything after its opening line.
func ExtractCode(text, lang string) string {
	matches := fence.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		if strings.EqualFold(m[1], lang) {
			return strings.TrimSpace(m[2])
		}
	}
	if len(matches) > 0 {
		return strings.TrimSpace(matches[0][2])
	}

	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			return strings.TrimSpace(rest[nl+1:])
		}
		return ""
	}
	return strings.TrimSpace(text)
}
