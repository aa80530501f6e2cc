package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rhuss/askdata/pkg/frame"
)

// Backend runs read-only queries against one database. Implementations
// must be safe for concurrent use.
type Backend interface {
	// Dialect names the SQL dialect the model should write ("postgres", "sqlite").
	Dialect() string

	// Query runs a statement with "?" placeholders and returns at most
	// maxRows rows; maxRows <= 0 means no limit.
	Query(ctx context.Context, query string, maxRows int, args ...any) (*frame.Frame, error)

	// Schema lists the tables visible to queries.
	Schema(ctx context.Context) ([]Table, error)

	Close() error
}

// Table describes one table of the schema.
type Table struct {
	Name    string
	Columns []Column
}

// Column describes one column.
type Column struct {
	Name string
	Type string
}

// DescribeSchema renders tables as the prompt section the model reads
// before writing SQL. When only is non-empty, other tables are left out.
func DescribeSchema(tables []Table, only []string) string {
	keep := make(map[string]bool, len(only))
	for _, n := range only {
		keep[strings.ToLower(n)] = true
	}
	var b strings.Builder
	for _, t := range tables {
		if len(keep) > 0 && !keep[strings.ToLower(t.Name)] {
			continue
		}
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name + " " + strings.ToLower(c.Type)
		}
		fmt.Fprintf(&b, "Table %s(%s)\n", t.Name, strings.Join(cols, ", "))
	}
	return b.String()
}

// numbered rewrites "?" placeholders outside string literals to $1, $2...
func numbered(query string) string {
	var b strings.Builder
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == '?' && !inQuote:
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
