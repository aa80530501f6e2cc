// Package debug provides category-gated debug logging on top of log/slog.
//
// Categories select WHAT is traced (ASKDATA_DEBUG, comma separated), the
// level selects HOW MUCH (ASKDATA_LOG_LEVEL):
//
//	debug.Log("executor", "compiled generated code", "entry", name)
//	if debug.Enabled("providers") { /* expensive formatting */ }
//
// Categories: agent, executor, providers, tools, knowledge, sandbox, http, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace is below slog.LevelDebug. Generated code, prompts and raw
// model output are only logged untruncated at this level.
const LevelTrace = slog.LevelDebug - 4

// categories is read-only after Init.
var categories map[string]bool

func init() {
	categories = parseCategories(os.Getenv("ASKDATA_DEBUG"))
}

// Options configure Init. Environment variables override them.
type Options struct {
	Categories string
	Level      string
	// Format is "text" (default) or "json".
	Format string
	Output io.Writer
}

// Init installs the default slog logger.
func Init(opts Options) {
	cats := os.Getenv("ASKDATA_DEBUG")
	if cats == "" {
		cats = opts.Categories
	}
	categories = parseCategories(cats)

	level := os.Getenv("ASKDATA_LOG_LEVEL")
	if level == "" {
		level = opts.Level
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(out, handlerOpts)
	} else {
		h = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(h))
}

// Enabled reports whether the category is traced.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug record for the category. No-op when disabled.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace record for the category.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceEnabled reports whether trace records of the category are emitted.
func TraceEnabled(category string) bool {
	return Enabled(category) && slog.Default().Enabled(context.Background(), LevelTrace)
}

// Block writes a titled multi-line block (a prompt, generated code) to
// stderr without slog formatting, so it can be copied verbatim.
func Block(category, title, text string) {
	if !TraceEnabled(category) {
		return
	}
	fmt.Fprintf(os.Stderr, "----- %s -----\n%s\n----- end %s -----\n", title, text, title)
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to
// INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Truncate shortens s to maxLen bytes and marks the cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
