// Package database implements the query_database tool: the model turns a
// natural language question into one read-only SQL query, which runs
// against PostgreSQL (pgx) or SQLite (modernc.org/sqlite).
package database

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/frame"
	"github.com/rhuss/askdata/pkg/provider"
	"github.com/rhuss/askdata/pkg/tools"
)

const doc = `QueryDatabase(question string, columns string) (*frame.Frame, error)
Queries the database with a natural language question. Cannot query anything that is not in the database content.
Returns the rows as a frame whose columns are named after columns.

Args:
- question: what to look up, in plain language.
- columns: comma separated names for the result columns, e.g. "uid, username, stu_num".

Returns an empty frame (df.Empty() is true) when nothing matches.

Example:
	df, err := tools.QueryDatabase("Select the grades of Jane Smith", "lesson_id, lesson_name, grade")
	if err != nil {
		yield("The grades could not be loaded: " + err.Error())
		return
	}
	// lesson_id | lesson_name | grade
	// 001       | Mathematics | 99.00
	yield(df)`

// Options configures the tool.
type Options struct {
	// Tables restricts the schema shown to the model. Empty means all.
	Tables []string

	// MaxRows caps the rows returned by one query (default: 5000).
	MaxRows int

	// Retries is how many corrected queries the model may write after a
	// failing one (default: 1).
	Retries int

	// SchemaTTL is how long the schema description is cached (default: 10m).
	SchemaTTL time.Duration
}

// Tool is the query_database tool.
type Tool struct {
	db    Backend
	model provider.Provider
	opts  Options

	mu       sync.Mutex
	schema   string
	schemaAt time.Time
}

var (
	_ tools.Tool            = (*Tool)(nil)
	_ tools.ContextProvider = (*Tool)(nil)
)

// New creates the tool.
func New(db Backend, model provider.Provider, opts Options) *Tool {
	if opts.MaxRows <= 0 {
		opts.MaxRows = 5000
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	} else if opts.Retries == 0 {
		opts.Retries = 1
	}
	if opts.SchemaTTL <= 0 {
		opts.SchemaTTL = 10 * time.Minute
	}
	return &Tool{db: db, model: model, opts: opts}
}

func (t *Tool) Name() string { return "query_database" }
func (t *Tool) Doc() string  { return doc }

func (t *Tool) Imports() []string { return []string{`import "askdata/frame"`} }

func (t *Tool) Symbols(ctx context.Context) map[string]reflect.Value {
	return map[string]reflect.Value{
		"QueryDatabase": reflect.ValueOf(func(question, columns string) (*frame.Frame, error) {
			return t.QueryDatabase(ctx, question, columns)
		}),
	}
}

// PromptContext describes the database so generated code knows what can
// be asked.
func (t *Tool) PromptContext(ctx context.Context, _ string) (string, error) {
	schema, err := t.Schema(ctx)
	if err != nil {
		return "", err
	}
	return "The database content:\n" + schema, nil
}

// Schema returns the cached schema description.
func (t *Tool) Schema(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.schema != "" && time.Since(t.schemaAt) < t.opts.SchemaTTL {
		return t.schema, nil
	}
	tables, err := t.db.Schema(ctx)
	if err != nil {
		return "", err
	}
	t.schema = DescribeSchema(tables, t.opts.Tables)
	t.schemaAt = time.Now()
	return t.schema, nil
}

// QueryDatabase asks the model for SQL answering question and runs it. A
// failing or rejected query is sent back to the model for correction up
// to Retries times.
func (t *Tool) QueryDatabase(ctx context.Context, question, columns string) (*frame.Frame, error) {
	schema, err := t.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading database schema: %w", err)
	}

	prompt := sqlPrompt(t.db.Dialect(), schema, question, columns)
	var lastErr error
	for attempt := 0; attempt <= t.opts.Retries; attempt++ {
		text, err := provider.Ask(ctx, t.model, "", prompt)
		if err != nil {
			return nil, fmt.Errorf("generating SQL: %w", err)
		}
		raw := provider.ExtractCode(text, "sql")
		query, err := ReadOnly(raw)
		if err == nil {
			debug.Log("tools", "running generated SQL", "attempt", attempt, "sql", query)
			var f *frame.Frame
			f, err = t.db.Query(ctx, query, t.opts.MaxRows)
			if err == nil {
				rename(f, columns)
				return f, nil
			}
		}
		lastErr = err
		debug.Log("tools", "generated SQL failed", "attempt", attempt, "error", err)
		prompt += fmt.Sprintf("\n\nThis query failed:\n```sql\n%s\n```\nError: %s\nWrite a corrected query.", raw, err)
	}
	return nil, fmt.Errorf("query failed: %w", lastErr)
}

func sqlPrompt(dialect, schema, question, columns string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write one read-only %s SQL SELECT statement.\n\n", dialect)
	b.WriteString("Database schema:\n")
	b.WriteString(schema)
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	if strings.TrimSpace(columns) != "" {
		b.WriteString("\nThe result must have exactly these columns, in this order: ")
		b.WriteString(columns)
	}
	b.WriteString("\nReply with the query in a ```sql fenced block and nothing else.")
	return b.String()
}

// rename applies the requested column names when their count matches.
func rename(f *frame.Frame, columns string) {
	var names []string
	for _, c := range strings.Split(columns, ",") {
		if c = strings.TrimSpace(c); c != "" {
			names = append(names, c)
		}
	}
	if len(names) == len(f.Columns) {
		copy(f.Columns, names)
	}
}
