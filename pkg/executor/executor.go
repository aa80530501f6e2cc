// Package executor runs model-generated Go code in an embedded interpreter
// and streams the values the code yields.
//
// Generated code must define exactly one top-level procedure with the
// signature func(yield func(any) bool). Helpers, imports and package-level
// declarations are allowed. The interpreter isolates control flow only: a
// panic in generated code becomes a *CodeError instead of crashing the
// process, but file and network access through tools is permitted.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"iter"
	"log/slog"
	"maps"
	"path"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"golang.org/x/tools/go/ast/astutil"

	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/frame"
	"github.com/rhuss/askdata/pkg/observability"
)

// FramePackage is the import path under which the frame package is exposed
// to generated code.
const FramePackage = "askdata/frame"

// Runner executes generated code. Implementations must be safe for
// concurrent use.
type Runner interface {
	Execute(ctx context.Context, code string) (iter.Seq2[any, error], error)
}

// SymbolsFunc returns the symbols of a virtual package. It is called once
// per execution so implementations can bind the request context.
type SymbolsFunc func(ctx context.Context) map[string]reflect.Value

// DefaultAllowedImports lists the standard library packages generated code
// may import.
var DefaultAllowedImports = []string{
	"errors",
	"fmt",
	"maps",
	"math",
	"slices",
	"sort",
	"strconv",
	"strings",
	"time",
	"unicode",
	"encoding/json",
	"regexp",
}

// Executor is the interpreter-backed Runner.
type Executor struct {
	allowed  map[string]bool
	packages map[string]SymbolsFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithPackage exposes a virtual package at importPath. The package name is
// the last path element.
func WithPackage(importPath string, symbols SymbolsFunc) Option {
	return func(e *Executor) {
		e.packages[importPath] = symbols
		e.allowed[importPath] = true
	}
}

// WithAllowedImports replaces the standard library allow-list.
func WithAllowedImports(paths ...string) Option {
	return func(e *Executor) {
		for p := range e.allowed {
			if _, virtual := e.packages[p]; !virtual {
				delete(e.allowed, p)
			}
		}
		for _, p := range paths {
			e.allowed[p] = true
		}
	}
}

// New creates an Executor. The frame package is always available.
func New(opts ...Option) *Executor {
	e := &Executor{
		allowed:  make(map[string]bool),
		packages: make(map[string]SymbolsFunc),
	}
	for _, p := range DefaultAllowedImports {
		e.allowed[p] = true
	}
	WithPackage(FramePackage, frameSymbols)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AllowedImports returns the sorted import allow-list including virtual
// packages.
func (e *Executor) AllowedImports() []string {
	return slices.Sorted(maps.Keys(e.allowed))
}

// program is generated code after it has been evaluated.
type program struct {
	entry  func(func(any) bool)
	name   string
	stdout *bytes.Buffer
}

// Execute compiles code and returns a lazy sequence of the values its entry
// procedure yields. Compile and entry point failures are returned directly;
// failures while iterating are delivered as the final element of the
// sequence, after which no more values are produced.
func (e *Executor) Execute(ctx context.Context, code string) (iter.Seq2[any, error], error) {
	prog, err := e.compile(ctx, code)
	if err != nil {
		kind, _ := KindOf(err)
		observability.ExecutionsTotal.WithLabelValues(kind.String()).Inc()
		return nil, err
	}
	debug.Log("executor", "compiled generated code", "entry", prog.name)
	return e.iterate(ctx, code, prog), nil
}

func (e *Executor) compile(ctx context.Context, code string) (prog *program, err error) {
	defer func() {
		if r := recover(); r != nil {
			prog, err = nil, &CodeError{Kind: KindCompile, Code: code, Message: fmt.Sprintf("interpreter: %v", r)}
		}
	}()

	fset := token.NewFileSet()
	f, err := Parse(fset, code)
	if err != nil {
		return nil, compileError(code, err)
	}

	entries := EntryPoints(f)
	switch len(entries) {
	case 1:
	case 0:
		return nil, &CodeError{Kind: KindNoEntryPoint, Code: code,
			Message: "no procedure with signature " + EntrySignature}
	default:
		names := make([]string, len(entries))
		for i, fn := range entries {
			names[i] = fn.Name.Name
		}
		return nil, &CodeError{Kind: KindNoEntryPoint, Code: code,
			Message: fmt.Sprintf("multiple procedures with signature %s: %s", EntrySignature, strings.Join(names, ", "))}
	}
	name := entries[0].Name.Name

	f.Name.Name = "main"
	// Deleting shifts f.Imports in place, so both passes walk a copy.
	imports := slices.Clone(f.Imports)
	for _, imp := range imports {
		p, _ := strconv.Unquote(imp.Path.Value)
		if !e.allowed[p] {
			return nil, &CodeError{Kind: KindCompile, Code: code,
				Message: fmt.Sprintf("import %q is not allowed (allowed: %s)", p, strings.Join(e.AllowedImports(), ", "))}
		}
	}
	for _, imp := range imports {
		p, _ := strconv.Unquote(imp.Path.Value)
		if astutil.UsesImport(f, p) {
			continue
		}
		if imp.Name != nil {
			astutil.DeleteNamedImport(fset, f, imp.Name.Name, p)
		} else {
			astutil.DeleteImport(fset, f, p)
		}
	}

	var src bytes.Buffer
	if err := format.Node(&src, fset, f); err != nil {
		return nil, compileError(code, err)
	}

	stdout := &bytes.Buffer{}
	i := interp.New(interp.Options{Stdout: stdout, Stderr: stdout})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading stdlib symbols: %w", err)
	}
	exports := interp.Exports{}
	for p, symbols := range e.packages {
		exports[p+"/"+path.Base(p)] = symbols(ctx)
	}
	if err := i.Use(exports); err != nil {
		return nil, fmt.Errorf("loading tool symbols: %w", err)
	}

	if _, err := i.EvalWithContext(ctx, src.String()); err != nil {
		var p interp.Panic
		if errors.As(err, &p) {
			return nil, &CodeError{Kind: KindRuntime, Code: code, Message: fmt.Sprint(p.Value)}
		}
		return nil, compileError(code, err)
	}

	v, err := i.Eval("main." + name)
	if err != nil {
		return nil, compileError(code, err)
	}
	entry, ok := v.Interface().(func(func(any) bool))
	if !ok {
		return nil, &CodeError{Kind: KindNoEntryPoint, Code: code,
			Message: fmt.Sprintf("%s has type %T, want %s", name, v.Interface(), EntrySignature)}
	}
	return &program{entry: entry, name: name, stdout: stdout}, nil
}

func (e *Executor) iterate(ctx context.Context, code string, prog *program) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		start := time.Now()
		values := make(chan any)
		done := make(chan error, 1)
		stop := make(chan struct{})
		defer close(stop)

		go func() {
			var err error
			defer func() {
				if r := recover(); r != nil {
					err = &CodeError{Kind: KindRuntime, Code: code, Message: panicMessage(r)}
				}
				done <- err
			}()
			prog.entry(func(v any) bool {
				select {
				case values <- v:
					return true
				case <-stop:
					return false
				}
			})
		}()

		outcome := "success"
		defer func() {
			observability.ExecutionsTotal.WithLabelValues(outcome).Inc()
			observability.ExecutionDuration.Observe(time.Since(start).Seconds())
		}()

		for {
			select {
			case v := <-values:
				if !yield(v, nil) {
					outcome = "stopped"
					return
				}
			case err := <-done:
				if prog.stdout.Len() > 0 {
					debug.Log("executor", "generated code output", "stdout", debug.Truncate(prog.stdout.String(), 2000))
				}
				if err != nil {
					outcome = KindRuntime.String()
					slog.Debug("generated code panicked", "entry", prog.name, "error", err)
					yield(nil, err)
				}
				return
			case <-ctx.Done():
				outcome = KindRuntime.String()
				yield(nil, &CodeError{Kind: KindRuntime, Code: code, Message: ctx.Err().Error()})
				return
			}
		}
	}
}

// Collect drains seq, returning the values produced before the first
// error.
func Collect(seq iter.Seq2[any, error]) ([]any, error) {
	var out []any
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func panicMessage(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(r)
}

func frameSymbols(context.Context) map[string]reflect.Value {
	return map[string]reflect.Value{
		"Frame":       reflect.ValueOf((*frame.Frame)(nil)),
		"New":         reflect.ValueOf(frame.New),
		"FromRecords": reflect.ValueOf(frame.FromRecords),
		"ToFloat":     reflect.ValueOf(frame.ToFloat),
		"Format":      reflect.ValueOf(frame.Format),
	}
}
