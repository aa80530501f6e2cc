package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/observability"
)

var errorType = reflect.TypeFor[error]()

// Catalog holds the registered tools. It is built once at startup and is
// safe for concurrent use afterwards.
type Catalog struct {
	mu     sync.RWMutex
	tools  []Tool
	byName map[string]Tool
}

// NewCatalog creates a Catalog holding the given tools.
func NewCatalog(ts ...Tool) *Catalog {
	c := &Catalog{byName: make(map[string]Tool)}
	for _, t := range ts {
		c.Register(t)
	}
	return c
}

// Register adds a tool. Names are resolved first-come, first-served: a
// later tool with the same name is ignored and a warning is logged.
func (c *Catalog) Register(t Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byName[t.Name()]; ok {
		slog.Warn("tool name conflict, keeping first registration",
			"tool", t.Name(),
			"winner", fmt.Sprintf("%T", existing),
			"loser", fmt.Sprintf("%T", t),
		)
		return
	}
	c.tools = append(c.tools, t)
	c.byName[t.Name()] = t
	slog.Info("registered tool", "tool", t.Name())
}

// Lookup returns the named tool.
func (c *Catalog) Lookup(name string) (Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byName[name]
	return t, ok
}

// Names returns the tool names in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.tools))
	for i, t := range c.tools {
		names[i] = t.Name()
	}
	return names
}

// Descriptions renders one short entry per tool for the tool selection
// prompt.
func (c *Catalog) Descriptions() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var b strings.Builder
	for _, t := range c.tools {
		fmt.Fprintf(&b, "- %s:\n", t.Name())
		for _, line := range summary(t.Doc(), 3) {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	return b.String()
}

// Docs returns the full documentation of the named tools, separated by
// blank lines. Unknown names are skipped.
func (c *Catalog) Docs(names []string) string {
	var docs []string
	for _, t := range c.selected(names) {
		docs = append(docs, strings.TrimSpace(t.Doc()))
	}
	return strings.Join(docs, "\n\n")
}

// Imports returns the import lines generated code needs to call the named
// tools, without duplicates.
func (c *Catalog) Imports(names []string) []string {
	lines := []string{ImportLine}
	for _, t := range c.selected(names) {
		if imp, ok := t.(Importer); ok {
			for _, l := range imp.Imports() {
				if !slices.Contains(lines, l) {
					lines = append(lines, l)
				}
			}
		}
	}
	return lines
}

// PromptContexts collects the prompt context of the named tools. A failing
// provider is logged and skipped.
func (c *Catalog) PromptContexts(ctx context.Context, question string, names []string) []string {
	var out []string
	for _, t := range c.selected(names) {
		cp, ok := t.(ContextProvider)
		if !ok {
			continue
		}
		text, err := cp.PromptContext(ctx, question)
		if err != nil {
			slog.Warn("tool prompt context unavailable", "tool", t.Name(), "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// Symbols returns the symbols of every registered tool bound to ctx.
// Functions are wrapped to record call metrics; a panic inside a tool is
// re-raised with the tool name prefixed so it surfaces in the runtime
// error of the generated code.
func (c *Catalog) Symbols(ctx context.Context) map[string]reflect.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]reflect.Value)
	for _, t := range c.tools {
		for name, v := range t.Symbols(ctx) {
			if _, dup := out[name]; dup {
				slog.Warn("duplicate tool symbol, keeping first", "symbol", name, "tool", t.Name())
				continue
			}
			if v.Kind() == reflect.Func {
				v = instrument(t.Name(), v)
			}
			out[name] = v
		}
	}
	return out
}

// Close closes every tool implementing io.Closer.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, t := range c.tools {
		if cl, ok := t.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing tool %s: %w", t.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Catalog) selected(names []string) []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Tool
	seen := make(map[string]bool)
	for _, n := range names {
		if t, ok := c.byName[n]; ok && !seen[n] {
			seen[n] = true
			out = append(out, t)
		}
	}
	return out
}

func summary(doc string, n int) []string {
	var lines []string
	for _, l := range strings.Split(doc, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
			if len(lines) == n {
				break
			}
		}
	}
	return lines
}

func instrument(tool string, fn reflect.Value) reflect.Value {
	typ := fn.Type()
	returnsErr := typ.NumOut() > 0 && typ.Out(typ.NumOut()-1) == errorType

	return reflect.MakeFunc(typ, func(args []reflect.Value) (out []reflect.Value) {
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				observability.ToolCallsTotal.WithLabelValues(tool, "panic").Inc()
				slog.Warn("tool panicked", "tool", tool, "panic", rec)
				panic(fmt.Sprintf("%s: %v", tool, rec))
			}
		}()

		if typ.IsVariadic() {
			out = fn.CallSlice(args)
		} else {
			out = fn.Call(args)
		}

		status := "ok"
		if returnsErr && !out[len(out)-1].IsNil() {
			status = "error"
		}
		observability.ToolCallsTotal.WithLabelValues(tool, status).Inc()
		debug.Log("tools", "tool call", "tool", tool, "status", status, "duration", time.Since(start))
		return out
	})
}
