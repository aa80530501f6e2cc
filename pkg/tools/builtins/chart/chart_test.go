package chart

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/askdata/pkg/frame"
	"github.com/rhuss/askdata/pkg/provider/providertest"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

type memStore struct {
	files map[string][]byte
	err   error
}

func (m *memStore) Save(ext string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	name := "chart" + ext
	m.files[name] = data
	return name, nil
}

func (m *memStore) URL(name string) string { return "http://askdata.local/tmp_imgs/" + name }

func sales() *frame.Frame {
	return frame.New([]string{"month", "sales", "returns"}, [][]any{
		{"Jan", 200, 12}, {"Feb", 220, 9}, {"Mar", 250, 15}, {"Apr", 210, 7},
	})
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"valid", `{"type": "line", "x": "month", "y": ["sales"], "title": "Sales"}`, ""},
		{"histogram without y", `{"type": "histogram", "x": "sales", "bins": 4}`, ""},
		{"not json", `{"type":`, "not valid JSON"},
		{"unknown type", `{"type": "pie", "x": "month", "y": ["sales"]}`, "does not match the schema"},
		{"extra field", `{"type": "bar", "x": "month", "y": ["sales"], "colour": "red"}`, "does not match the schema"},
		{"unknown column", `{"type": "bar", "x": "month", "y": ["profit"]}`, `unknown column "profit"`},
		{"missing y", `{"type": "bar", "x": "month"}`, "needs at least one y column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseSpec(tt.raw, sales())
			if tt.want == "" {
				require.NoError(t, err)
				assert.NotEmpty(t, s.Type)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRender(t *testing.T) {
	specs := []*Spec{
		{Type: TypeLine, X: "month", Y: []string{"sales", "returns"}, Title: "Sales"},
		{Type: TypeBar, X: "month", Y: []string{"sales", "returns"}},
		{Type: TypeScatter, X: "sales", Y: []string{"returns"}},
		{Type: TypeHistogram, X: "sales", Bins: 3},
	}
	for _, s := range specs {
		t.Run(s.Type, func(t *testing.T) {
			png, err := Render(s, sales())
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(png, pngMagic))
		})
	}
}

func TestRenderNonNumericY(t *testing.T) {
	_, err := Render(&Spec{Type: TypeLine, X: "sales", Y: []string{"month"}}, sales())
	assert.Error(t, err)
}

func TestDrawGraph(t *testing.T) {
	model := providertest.New("```json\n{\"type\": \"bar\", \"x\": \"month\", \"y\": [\"sales\"]}\n```")
	store := &memStore{}
	tool := New(model, store, 1)

	url, err := tool.DrawGraph(context.Background(), "bar chart of sales", sales())
	require.NoError(t, err)
	assert.Equal(t, "http://askdata.local/tmp_imgs/chart.png", url)
	assert.True(t, bytes.HasPrefix(store.files["chart.png"], pngMagic))

	prompt := model.Prompts()[0]
	assert.Contains(t, prompt, "Request: bar chart of sales")
	assert.Contains(t, prompt, "month | sales | returns \n")
}

func TestDrawGraphCorrectsSpec(t *testing.T) {
	model := providertest.New(
		`{"type": "line", "x": "month", "y": ["revenue"]}`,
		"```json\n{\"type\": \"line\", \"x\": \"month\", \"y\": [\"sales\"]}\n```",
	)
	tool := New(model, &memStore{}, 1)

	_, err := tool.DrawGraph(context.Background(), "sales trend", sales())
	require.NoError(t, err)
	prompts := model.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], `unknown column "revenue"`)
}

func TestDrawGraphFailures(t *testing.T) {
	t.Run("empty data", func(t *testing.T) {
		_, err := New(providertest.New(), &memStore{}, 0).DrawGraph(context.Background(), "x", frame.New([]string{"a"}, nil))
		assert.ErrorContains(t, err, "no data")
	})
	t.Run("spec never valid", func(t *testing.T) {
		model := providertest.New("nope", "still nope")
		_, err := New(model, &memStore{}, 1).DrawGraph(context.Background(), "x", sales())
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "no valid chart spec"))
		assert.Len(t, model.Prompts(), 2)
	})
	t.Run("store failure", func(t *testing.T) {
		model := providertest.New(`{"type": "histogram", "x": "sales"}`)
		_, err := New(model, &memStore{err: errors.New("disk full")}, 0).DrawGraph(context.Background(), "x", sales())
		assert.ErrorContains(t, err, "disk full")
	})
}
