package database

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotReadOnly is returned for statements that could modify data.
var ErrNotReadOnly = errors.New("only a single SELECT statement is allowed")

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLit    = regexp.MustCompile(`'(?:[^']|'')*'`)
	writeWord    = regexp.MustCompile(`(?i)\b(insert|update|delete|merge|drop|alter|create|truncate|grant|revoke|attach|detach|pragma|vacuum|copy|call|lock)\b`)
)

// ReadOnly validates that query is a single SELECT (or WITH ... SELECT)
// statement and returns it without trailing semicolons.
func ReadOnly(query string) (string, error) {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimRight(q, "; \n\t"))
	if q == "" {
		return "", fmt.Errorf("%w: empty query", ErrNotReadOnly)
	}

	bare := blockComment.ReplaceAllString(q, " ")
	bare = lineComment.ReplaceAllString(bare, " ")
	bare = stringLit.ReplaceAllString(bare, "''")
	bare = strings.TrimSpace(bare)

	if strings.Contains(bare, ";") {
		return "", fmt.Errorf("%w: multiple statements", ErrNotReadOnly)
	}
	first := strings.ToLower(strings.Fields(bare + " x")[0])
	if first != "select" && first != "with" {
		return "", fmt.Errorf("%w: statement starts with %q", ErrNotReadOnly, first)
	}
	if m := writeWord.FindString(bare); m != "" {
		return "", fmt.Errorf("%w: contains %s", ErrNotReadOnly, strings.ToUpper(m))
	}
	return q, nil
}
