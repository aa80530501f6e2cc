package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/askdata/pkg/frame"
)

type stubViews struct {
	url   string
	err   error
	calls []*frame.Frame
}

func (s *stubViews) PublishTable(_ context.Context, f *frame.Frame) (string, error) {
	s.calls = append(s.calls, f)
	return s.url, s.err
}

func numbers(n int) *frame.Frame {
	f := frame.New([]string{"n", "square"}, nil)
	for i := 0; i < n; i++ {
		f.Append(i, i*i)
	}
	return f
}

func dataRows(md string) int {
	lines := strings.Split(strings.TrimSpace(md), "\n")
	count := 0
	for _, l := range lines[2:] {
		if strings.Contains(l, " | ") {
			count++
		}
	}
	return count
}

func TestMarkdown(t *testing.T) {
	f := frame.New([]string{"name", "note"}, [][]any{
		{"Jane", "line one\nline two"},
		{"Tom", "a|b"},
		{"Ann", nil},
	})
	want := "name | note \n" +
		"--- | --- \n" +
		"Jane | line one<br>line two \n" +
		`Tom | a\|b ` + "\n" +
		"Ann |  \n" +
		"\n"
	assert.Equal(t, want, Markdown(f))
}

func TestRenderRowCap(t *testing.T) {
	nz := New()
	tests := []struct {
		rows     int
		wantRows int
		footer   bool
	}{
		{0, 0, false},
		{3, 3, false},
		{10, 10, false},
		{11, 10, true},
		{250, 10, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d rows", tt.rows), func(t *testing.T) {
			out := nz.Render(context.Background(), []any{numbers(tt.rows)}).Text
			footer := fmt.Sprintf("first 10 rows of %d", tt.rows)
			if tt.footer {
				require.Contains(t, out, footer)
				assert.Equal(t, tt.wantRows, dataRows(out[:strings.Index(out, footer)]))
			} else {
				assert.NotContains(t, out, "first 10 rows")
				assert.Equal(t, tt.wantRows, dataRows(out))
			}
		})
	}
}

func TestRenderCustomRowCap(t *testing.T) {
	out := New(WithDisplayRows(2)).Render(context.Background(), []any{numbers(5)}).Text
	assert.Contains(t, out, "\nfirst 2 rows of 5\n")
}

func TestRenderImageAndText(t *testing.T) {
	tr := New().Render(context.Background(), []any{"http://host/img.png", "hello"})
	assert.Equal(t, "\n![image](http://host/img.png)\n\nhello\n", tr.Text)
	assert.Equal(t, []string{"http://host/img.png"}, tr.Images)
	require.Len(t, tr.Items, 2)
	assert.Equal(t, KindImage, tr.Items[0].Kind)
	assert.Equal(t, KindText, tr.Items[1].Kind)
}

func TestRenderImageInsideSentence(t *testing.T) {
	tr := New().Render(context.Background(), []any{"Chart saved to https://askdata.local/tmp_imgs/ab12.png for review"})
	assert.Equal(t, "\nChart saved to ![image](https://askdata.local/tmp_imgs/ab12.png) for review\n", tr.Text)
}

func TestRenderViewLinkFollowsTable(t *testing.T) {
	views := &stubViews{url: "http://askdata.local/tmp_imgs/view.html"}
	tr := New(WithViews(views)).Render(context.Background(), []any{"Top towns:", numbers(12)})

	require.Len(t, views.calls, 1)
	assert.Equal(t, 12, views.calls[0].Len(), "interactive view must get the full table")

	footer := strings.Index(tr.Text, "first 10 rows of 12")
	link := strings.Index(tr.Text, `<a href="http://askdata.local/tmp_imgs/view.html" target="_blank">`)
	require.Positive(t, footer)
	assert.Greater(t, link, footer)
}

func TestRenderViewFailureDropsLinkOnly(t *testing.T) {
	views := &stubViews{err: errors.New("disk full")}
	tr := New(WithViews(views)).Render(context.Background(), []any{numbers(2), "done"})
	assert.NotContains(t, tr.Text, "<a href")
	assert.Contains(t, tr.Text, "0 | 0 \n")
	assert.True(t, strings.HasSuffix(tr.Text, "\ndone\n"))
}

func TestRenderMap(t *testing.T) {
	iframe := `<iframe src="https://www.onemap.gov.sg/amm/amm.html?mapStyle=Default&zoomLevel=15"></iframe>`
	tr := New().Render(context.Background(), []any{"Nearby:", iframe})
	assert.Equal(t, iframe, tr.Map)
	assert.Equal(t, "\nNearby:\n\n"+iframe+"\n", tr.Text)
}

func TestClassifyAndStringify(t *testing.T) {
	var nilFrame *frame.Frame
	tests := []struct {
		name string
		in   any
		kind Kind
		text string
	}{
		{"nil", nil, KindText, "null"},
		{"nil frame", nilFrame, KindText, "null"},
		{"float", 412345.5, KindText, "412345.5"},
		{"int", 3, KindText, "3"},
		{"error", errors.New("no rows"), KindText, "no rows"},
		{"records", []map[string]any{{"school": "Bedok Green"}}, KindText, `[{"school":"Bedok Green"}]`},
		{"map", map[string]int{"total": 4}, KindText, `{"total":4}`},
		{"frame value", *numbers(1), KindTable, ""},
		{"png", "https://x/y.png", KindImage, "https://x/y.png"},
		{"jpg", "https://x/y.jpg", KindText, "https://x/y.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := Classify(tt.in)
			assert.Equal(t, tt.kind, item.Kind)
			assert.Equal(t, tt.text, item.Text)
		})
	}
}

func TestRenderPreservesOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("each item renders in production order", prop.ForAll(
		func(kinds []int) bool {
			values := make([]any, len(kinds))
			markers := make([]string, len(kinds))
			for i, k := range kinds {
				marker := fmt.Sprintf("marker%03d", i)
				markers[i] = marker
				switch k {
				case 0:
					values[i] = marker
				case 1:
					values[i] = "http://host/" + marker + ".png"
				case 2:
					values[i] = frame.New([]string{marker}, [][]any{{i}})
				}
			}
			out := New().Render(context.Background(), values).Text
			pos := -1
			for _, m := range markers {
				next := strings.Index(out, m)
				if next <= pos {
					return false
				}
				pos = next
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.TestingRun(t)
}

func TestIsPNGURL(t *testing.T) {
	for s, want := range map[string]bool{
		"http://localhost:8000/tmp_imgs/chart.png":       true,
		"see https://example.com/a-b_c/PLOT%201.png now": true,
		"https://example.com/a/b.jpg":                    false,
		"ftp://example.com/chart.png":                    false,
		// "$-_" is a range, so ':' '/' '=' and '?' are URL characters too.
		"https://example.com/q?x=1/chart.png": true,
	} {
		assert.Equal(t, want, IsPNGURL(s), s)
	}
}
