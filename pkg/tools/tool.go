package tools

import (
	"context"
	"reflect"
)

// ImportPath is the import path of the virtual package holding all tools.
const ImportPath = "askdata/tools"

// ImportLine is the import statement generated code needs to call tools.
const ImportLine = `import "` + ImportPath + `"`

// Tool is a capability callable from generated code.
type Tool interface {
	// Name is the catalog name the model selects, e.g. "query_database".
	Name() string

	// Doc documents the Go functions the tool exports. The first three
	// lines are used as the short description during tool selection.
	Doc() string

	// Symbols returns the identifiers the tool adds to the tools package,
	// bound to ctx. Types are exported as nil pointers, e.g.
	// reflect.ValueOf((*Features)(nil)).
	Symbols(ctx context.Context) map[string]reflect.Value
}

// ContextProvider is implemented by tools whose prompt needs request
// specific context, such as the database schema or the documentation of
// the external APIs relevant to the question.
type ContextProvider interface {
	PromptContext(ctx context.Context, question string) (string, error)
}

// Importer is implemented by tools whose calls need extra imports in
// generated code, such as "askdata/frame" for tools taking frames.
type Importer interface {
	Imports() []string
}
