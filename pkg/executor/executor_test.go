package executor

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rhuss/askdata/pkg/frame"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func run(t *testing.T, e *Executor, code string) ([]any, error) {
	t.Helper()
	seq, err := e.Execute(context.Background(), code)
	if err != nil {
		return nil, err
	}
	return Collect(seq)
}

func requireKind(t *testing.T, err error, want Kind) *CodeError {
	t.Helper()
	require.Error(t, err)
	var ce *CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, want, ce.Kind, "message: %s", ce.Message)
	return ce
}

func TestExecuteYieldsInOrder(t *testing.T) {
	code := `package main

import (
	"fmt"

	"askdata/frame"
)

func Answer(yield func(any) bool) {
	if !yield("Grades of the class:") {
		return
	}
	df := frame.New([]string{"name", "grade"}, [][]any{{"Jane", 99}, {"Tom", 88}})
	if !yield(df) {
		return
	}
	yield(fmt.Sprintf("%d students", df.Len()))
}
`
	items, err := run(t, New(), code)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Grades of the class:", items[0])
	df, ok := items[1].(*frame.Frame)
	require.True(t, ok, "second item is %T", items[1])
	assert.Equal(t, []string{"name", "grade"}, df.Columns)
	assert.Equal(t, "2 students", items[2])
}

func TestExecuteAddsPackageClause(t *testing.T) {
	code := `func Run(yield func(any) bool) {
	yield("ok")
}`
	items, err := run(t, New(), code)
	require.NoError(t, err)
	assert.Equal(t, []any{"ok"}, items)
}

func TestExecuteAcceptsEmptyInterface(t *testing.T) {
	code := `package report

func Run(yield func(interface{}) bool) {
	yield(42)
}`
	items, err := run(t, New(), code)
	require.NoError(t, err)
	assert.Equal(t, []any{42}, items)
}

func TestExecuteHelpersAreNotEntries(t *testing.T) {
	code := `package main

func double(n int) int { return n * 2 }

func Run(yield func(any) bool) {
	yield(double(21))
}`
	items, err := run(t, New(), code)
	require.NoError(t, err)
	assert.Equal(t, []any{42}, items)
}

func TestExecuteSyntaxError(t *testing.T) {
	code := "func Run(yield func(any) bool) {\n\tyield(\"unterminated)\n}"
	ce := requireKind(t, run2(t, code), KindCompile)
	assert.Equal(t, code, ce.Code)
}

func TestExecuteUndefinedName(t *testing.T) {
	code := `func Run(yield func(any) bool) {
	yield(undefinedTotal)
}`
	ce := requireKind(t, run2(t, code), KindCompile)
	assert.Contains(t, ce.Message, "undefinedTotal")
}

func TestExecuteNoEntryPoint(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"no functions", "var x = 1"},
		{"wrong signature", "func Run() []any { return nil }"},
		{"method", "type T struct{}\nfunc (T) Run(yield func(any) bool) {}"},
		{"two entries", "func A(yield func(any) bool) {}\nfunc B(yield func(any) bool) {}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireKind(t, run2(t, tt.code), KindNoEntryPoint)
		})
	}
}

func TestExecuteRuntimePanicStopsSequence(t *testing.T) {
	code := `func Run(yield func(any) bool) {
	yield("before")
	var rows []int
	yield(rows[3])
	yield("after")
}`
	seq, err := New().Execute(context.Background(), code)
	require.NoError(t, err)

	var items []any
	var failures []error
	for v, err := range seq {
		if err != nil {
			failures = append(failures, err)
			continue
		}
		items = append(items, v)
	}
	assert.Equal(t, []any{"before"}, items)
	require.Len(t, failures, 1)
	ce := requireKind(t, failures[0], KindRuntime)
	assert.Contains(t, ce.Message, "out of range")
}

func TestExecuteExplicitPanic(t *testing.T) {
	code := `import "errors"

func Run(yield func(any) bool) {
	panic(errors.New("population API returned nothing"))
}`
	_, err := run(t, New(), code)
	ce := requireKind(t, err, KindRuntime)
	assert.Contains(t, ce.Message, "population API returned nothing")
}

func TestExecuteForbiddenImport(t *testing.T) {
	code := `import "os"

func Run(yield func(any) bool) {
	yield(os.Getenv("HOME"))
}`
	ce := requireKind(t, run2(t, code), KindCompile)
	assert.Contains(t, ce.Message, `"os" is not allowed`)
}

func TestExecutePrunesUnusedImports(t *testing.T) {
	code := `import (
	"fmt"
	"math"
	"strings"
)

func Run(yield func(any) bool) {
	yield(fmt.Sprint(math.Sqrt(16)))
}`
	items, err := run(t, New(), code)
	require.NoError(t, err)
	assert.Equal(t, []any{"4"}, items)
}

func TestExecutePrunesLeadingUnusedImports(t *testing.T) {
	code := `package main

import "fmt"
import "math"
import "askdata/frame"

import "strings"

func Answer(yield func(any) bool) {
	yield(fmt.Sprint(strings.ToUpper("bedok")))
}`
	items, err := run(t, New(), code)
	require.NoError(t, err)
	assert.Equal(t, []any{"BEDOK"}, items)
}

func TestExecutePrunesNamedImports(t *testing.T) {
	code := `import (
	m "math"
	str "strings"
	"fmt"
)

func Answer(yield func(any) bool) {
	yield(fmt.Sprint(str.Repeat("a", 2)))
}`
	items, err := run(t, New(), code)
	require.NoError(t, err)
	assert.Equal(t, []any{"aa"}, items)
}

func TestExecuteForbiddenImportAfterUnusedImport(t *testing.T) {
	code := `import "math"
import "os"

func Answer(yield func(any) bool) {
	yield(os.Getenv("HOME"))
}`
	ce := requireKind(t, run2(t, code), KindCompile)
	assert.Contains(t, ce.Message, `"os" is not allowed`)

	code = `import (
	"fmt"
	"math"
	"os"
)

func Answer(yield func(any) bool) {
	yield(fmt.Sprint(1))
}`
	ce = requireKind(t, run2(t, code), KindCompile)
	assert.Contains(t, ce.Message, `"os" is not allowed`, "unused forbidden imports are rejected too")
}

func TestExecuteVirtualPackage(t *testing.T) {
	var gotCtx context.Context
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "request-1")

	e := New(WithPackage("askdata/tools", func(ctx context.Context) map[string]reflect.Value {
		gotCtx = ctx
		return map[string]reflect.Value{
			"Shout": reflect.ValueOf(strings.ToUpper),
		}
	}))

	seq, err := e.Execute(ctx, `import "askdata/tools"

func Run(yield func(any) bool) {
	yield(tools.Shout("bedok"))
}`)
	require.NoError(t, err)
	items, err := Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, []any{"BEDOK"}, items)
	require.NotNil(t, gotCtx)
	assert.Equal(t, "request-1", gotCtx.Value(key{}))
	assert.Contains(t, e.AllowedImports(), "askdata/tools")
}

func TestWithAllowedImportsKeepsVirtualPackages(t *testing.T) {
	e := New(WithAllowedImports("fmt"))
	assert.Equal(t, []string{FramePackage, "fmt"}, e.AllowedImports())
}

func TestExecuteConsumerStopsEarly(t *testing.T) {
	code := `func Run(yield func(any) bool) {
	for i := 0; i < 1000; i++ {
		if !yield(i) {
			return
		}
	}
}`
	seq, err := New().Execute(context.Background(), code)
	require.NoError(t, err)

	var got []any
	for v, err := range seq {
		require.NoError(t, err)
		got = append(got, v)
		if len(got) == 3 {
			break
		}
	}
	assert.Equal(t, []any{0, 1, 2}, got)
}

func TestExecuteContextCancelled(t *testing.T) {
	code := `func Run(yield func(any) bool) {
	for i := 0; ; i++ {
		if !yield(i) {
			return
		}
	}
}`
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seq, err := New().Execute(ctx, code)
	require.NoError(t, err)

	var last error
	n := 0
	for _, err := range seq {
		if err != nil {
			last = err
			break
		}
		n++
		if n == 5 {
			cancel()
		}
	}
	ce := requireKind(t, last, KindRuntime)
	assert.Contains(t, ce.Message, "context canceled")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "compile", KindCompile.String())
	assert.Equal(t, "no_entry_point", KindNoEntryPoint.String())
	assert.Equal(t, "runtime", KindRuntime.String())
	_, ok := KindOf(assert.AnError)
	assert.False(t, ok)
}

// run2 returns only the error of compiling and draining code.
func run2(t *testing.T, code string) error {
	t.Helper()
	_, err := run(t, New(), code)
	return err
}
