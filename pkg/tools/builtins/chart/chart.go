// Package chart implements the draw_graph tool. The model turns a plain
// language chart request into a JSON chart spec, which is validated and
// rendered to a PNG in the static store.
package chart

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/frame"
	"github.com/rhuss/askdata/pkg/provider"
	"github.com/rhuss/askdata/pkg/tools"
	"github.com/rhuss/askdata/pkg/transcript"
)

const doc = `DrawGraph(question string, data *frame.Frame) (string, error)
Draw a graph of the data described by a natural language request (chart type, columns, title).
Returns the URL of the PNG image. Yield the URL to show the image.

Supported charts: line, bar, scatter, histogram.

Example:
	data := frame.New([]string{"month", "sales"}, [][]any{{"Jan", 200}, {"Feb", 220}, {"Mar", 250}})
	url, err := tools.DrawGraph("line chart of sales per month", data)
	if err != nil {
		yield("The chart could not be drawn: " + err.Error())
		return
	}
	// "http://127.0.0.1:8003/tmp_imgs/ekhidpcl.png"
	yield(url)`

// Store saves rendered images.
type Store interface {
	Save(ext string, data []byte) (string, error)
	URL(name string) string
}

// Tool is the draw_graph tool.
type Tool struct {
	model   provider.Provider
	store   Store
	retries int
}

var (
	_ tools.Tool     = (*Tool)(nil)
	_ tools.Importer = (*Tool)(nil)
)

// New creates the tool. retries is how many corrected specs the model may
// write after an invalid one.
func New(model provider.Provider, store Store, retries int) *Tool {
	if retries < 0 {
		retries = 0
	}
	return &Tool{model: model, store: store, retries: retries}
}

func (t *Tool) Name() string { return "draw_graph" }
func (t *Tool) Doc() string  { return doc }

func (t *Tool) Imports() []string { return []string{`import "askdata/frame"`} }

func (t *Tool) Symbols(ctx context.Context) map[string]reflect.Value {
	return map[string]reflect.Value{
		"DrawGraph": reflect.ValueOf(func(question string, data *frame.Frame) (string, error) {
			return t.DrawGraph(ctx, question, data)
		}),
	}
}

// DrawGraph renders data as requested by question and returns the image
// URL.
func (t *Tool) DrawGraph(ctx context.Context, question string, data *frame.Frame) (string, error) {
	if data.Empty() {
		return "", fmt.Errorf("no data to draw")
	}

	prompt := specPrompt(question, data)
	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		text, err := provider.Ask(ctx, t.model, "", prompt)
		if err != nil {
			return "", fmt.Errorf("generating chart spec: %w", err)
		}
		raw := provider.ExtractCode(text, "json")
		spec, err := ParseSpec(raw, data)
		if err != nil {
			lastErr = err
			debug.Log("tools", "invalid chart spec", "attempt", attempt, "error", err)
			prompt += fmt.Sprintf("\n\nThis spec is invalid:\n```json\n%s\n```\nError: %s\nWrite a corrected spec.", raw, err)
			continue
		}

		png, err := Render(spec, data)
		if err != nil {
			return "", fmt.Errorf("drawing %s chart: %w", spec.Type, err)
		}
		name, err := t.store.Save(".png", png)
		if err != nil {
			return "", fmt.Errorf("saving chart: %w", err)
		}
		return t.store.URL(name), nil
	}
	return "", fmt.Errorf("no valid chart spec: %w", lastErr)
}

func specPrompt(question string, data *frame.Frame) string {
	var b strings.Builder
	b.WriteString("Describe the chart requested below as JSON matching this schema:\n")
	b.WriteString(SpecSchema)
	b.WriteString("\n\nRequest: ")
	b.WriteString(question)
	fmt.Fprintf(&b, "\n\nThe data has %d rows. First rows:\n", data.Len())
	b.WriteString(transcript.Markdown(data.Head(5)))
	b.WriteString("\nUse column names exactly as shown. Reply with the JSON in a ```json fenced block and nothing else.")
	return b.String()
}
