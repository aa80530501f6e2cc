package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSelection(t *testing.T) {
	known := []string{"query_database", "draw_graph", "get_minimap"}
	tests := []struct {
		name   string
		answer string
		solved bool
		tools  []string
	}{
		{"single", "query_database", false, []string{"query_database"}},
		{"list", "draw_graph, query_database", false, []string{"draw_graph", "query_database"}},
		{"solved", "solved", true, nil},
		{"solved decorated", "`Solved.`", true, nil},
		{"quoted and bulleted", "- \"draw_graph\"\n* get_minimap", false, []string{"draw_graph", "get_minimap"}},
		{"case insensitive", "Query_Database", false, []string{"query_database"}},
		{"unknown dropped", "draw_graph, predict_weather", false, []string{"draw_graph"}},
		{"duplicates", "draw_graph, draw_graph", false, []string{"draw_graph"}},
		{"solved among tools is a tool list", "solved, draw_graph", false, []string{"draw_graph"}},
		{"nothing known", "I am not sure", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := ParseSelection(tt.answer, known)
			assert.Equal(t, tt.solved, sel.Solved)
			assert.Equal(t, tt.tools, sel.Tools)
		})
	}
}

func TestWithRequired(t *testing.T) {
	known := []string{"query_database", "draw_graph"}
	assert.Equal(t, []string{"draw_graph", "query_database"},
		withRequired([]string{"draw_graph"}, []string{"query_database"}, known))
	assert.Equal(t, []string{"query_database"},
		withRequired([]string{"query_database"}, []string{"query_database"}, known))
	assert.Equal(t, []string{"draw_graph"},
		withRequired([]string{"draw_graph"}, []string{"web_search"}, known), "unregistered required tools are skipped")
}

func TestErrorContextKeepsOnlyCodeFailures(t *testing.T) {
	var c errorContext
	c = c.add(Attempt{Kind: KindModel, Message: "timeout"})
	assert.Empty(t, c.String())

	c = c.add(Attempt{Kind: "runtime", Message: "index out of range", Code: "func Answer(yield func(any) bool) {}\n"})
	want := "\nYour previous code failed. Fix every problem below and return the complete corrected code.\n" +
		"\nFailure 1 (runtime error): index out of range\n```go\nfunc Answer(yield func(any) bool) {}\n```\n"
	assert.Equal(t, want, c.String())
}

func TestAnswerText(t *testing.T) {
	a := &Answer{Knowledge: "k", Transcript: "\nt\n", Review: "r"}
	assert.Equal(t, KnowledgeHeading+"k\n\n"+ResultHeading+"\nt\n\n"+ReviewHeading+"r\n", a.Text())

	solved := &Answer{Knowledge: "k", Transcript: "ignored", Solved: true}
	assert.Equal(t, "k", solved.Text())
}
