package debug

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func withCategories(t *testing.T, s string) {
	t.Helper()
	orig := categories
	t.Cleanup(func() { categories = orig })
	categories = parseCategories(s)
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "executor", map[string]bool{"executor": true}},
		{"multiple", "executor,agent", map[string]bool{"executor": true, "agent": true}},
		{"with spaces", " executor , agent ", map[string]bool{"executor": true, "agent": true}},
		{"uppercase normalized", "EXECUTOR,Agent", map[string]bool{"executor": true, "agent": true}},
		{"empty segments", "executor,,agent", map[string]bool{"executor": true, "agent": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("len(got) = %d, want %d", len(got), len(tt.want))
			}
			for k := range tt.want {
				if !got[k] {
					t.Errorf("category %q missing", k)
				}
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	withCategories(t, "agent,executor")

	if !Enabled("agent") || !Enabled("executor") {
		t.Error("configured categories should be enabled")
	}
	if Enabled("providers") {
		t.Error("providers should not be enabled")
	}
}

func TestEnabledAll(t *testing.T) {
	withCategories(t, "all")

	for _, c := range []string{"agent", "tools", "anything"} {
		if !Enabled(c) {
			t.Errorf("%s should be enabled via all", c)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("this is a long string", 10); got != "this is a ..." {
		t.Errorf("Truncate long = %q", got)
	}
}

func TestInitJSON(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })
	withCategories(t, "")
	t.Setenv("ASKDATA_DEBUG", "")
	t.Setenv("ASKDATA_LOG_LEVEL", "")

	var buf bytes.Buffer
	Init(Options{Categories: "agent", Level: "DEBUG", Format: "json", Output: &buf})

	Log("agent", "round started", "round", 1)
	Log("tools", "not traced")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "round started" || rec["debug"] != "agent" {
		t.Errorf("record = %v", rec)
	}
}

func TestInitEnvOverridesOptions(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })
	withCategories(t, "")
	t.Setenv("ASKDATA_DEBUG", "executor")
	t.Setenv("ASKDATA_LOG_LEVEL", "ERROR")

	var buf bytes.Buffer
	Init(Options{Categories: "agent", Level: "DEBUG", Output: &buf})

	if Enabled("agent") || !Enabled("executor") {
		t.Error("ASKDATA_DEBUG should replace configured categories")
	}
	slog.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("INFO record written at ERROR level: %q", buf.String())
	}
}
