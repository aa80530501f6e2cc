package executor

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
)

// EntrySignature is the shape the entry procedure of generated code must
// have. It matches iter.Seq[any].
const EntrySignature = "func(yield func(any) bool)"

var packageClause = regexp.MustCompile(`(?m)^\s*package\s+[A-Za-z_][A-Za-z0-9_]*`)

// WithPackageClause returns code with a "package main" clause prepended when
// it has none. Models often omit it.
func WithPackageClause(code string) string {
	if packageClause.MatchString(stripLeadingComments(code)) {
		return code
	}
	return "package main\n\n" + code
}

// stripLeadingComments drops line comments before the first statement so a
// commented-out "package" line is not mistaken for a clause.
func stripLeadingComments(code string) string {
	var b strings.Builder
	for line := range strings.Lines(code) {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

// Parse parses generated code as a Go file, adding a package clause when
// missing.
func Parse(fset *token.FileSet, code string) (*ast.File, error) {
	return parser.ParseFile(fset, "generated.go", WithPackageClause(code), parser.ParseComments)
}

// EntryPoints returns every top-level function in f with the entry
// signature.
func EntryPoints(f *ast.File) []*ast.FuncDecl {
	var out []*ast.FuncDecl
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || fn.Body == nil {
			continue
		}
		if isEntrySignature(fn.Type) {
			out = append(out, fn)
		}
	}
	return out
}

func isEntrySignature(ft *ast.FuncType) bool {
	if ft.TypeParams != nil && len(ft.TypeParams.List) > 0 {
		return false
	}
	if ft.Results != nil && len(ft.Results.List) > 0 {
		return false
	}
	param, ok := single(ft.Params)
	if !ok {
		return false
	}
	yield, ok := param.(*ast.FuncType)
	if !ok {
		return false
	}
	arg, ok := single(yield.Params)
	if !ok || !isAny(arg) {
		return false
	}
	res, ok := single(yield.Results)
	if !ok {
		return false
	}
	id, ok := res.(*ast.Ident)
	return ok && id.Name == "bool"
}

// single returns the type of a field list holding exactly one value.
func single(fl *ast.FieldList) (ast.Expr, bool) {
	if fl == nil || len(fl.List) != 1 {
		return nil, false
	}
	field := fl.List[0]
	if len(field.Names) > 1 {
		return nil, false
	}
	return field.Type, true
}

func isAny(e ast.Expr) bool {
	switch t := e.(type) {
	case *ast.Ident:
		return t.Name == "any"
	case *ast.InterfaceType:
		return t.Methods == nil || len(t.Methods.List) == 0
	}
	return false
}
