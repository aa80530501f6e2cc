// Package transcript folds the values yielded by generated code into the
// markdown transcript shown to the user.
//
// Items are rendered strictly in production order:
//
//   - tables as markdown, capped at the display row limit with a
//     "first N rows of M" note, each followed by a link to an interactive
//     view of the full table;
//   - strings containing a PNG URL as markdown images;
//   - map iframes verbatim (the last one is also kept separately);
//   - anything else as its own paragraph.
package transcript

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/rhuss/askdata/pkg/frame"
)

// DefaultDisplayRows is the number of table rows rendered inline.
const DefaultDisplayRows = 10

// ViewPublisher stores a full table as an interactive page and returns its
// URL.
type ViewPublisher interface {
	PublishTable(ctx context.Context, f *frame.Frame) (string, error)
}

// Transcript is the rendered result of one successful execution.
type Transcript struct {
	Text string
	// Map is the last map iframe yielded, if any.
	Map    string
	Items  []Item
	Images []string
}

// Normalizer renders yielded values. It is safe for concurrent use.
type Normalizer struct {
	rows  int
	views ViewPublisher
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDisplayRows sets the inline table row cap.
func WithDisplayRows(n int) Option {
	return func(nz *Normalizer) {
		if n > 0 {
			nz.rows = n
		}
	}
}

// WithViews sets the publisher for interactive table views.
func WithViews(p ViewPublisher) Option {
	return func(nz *Normalizer) { nz.views = p }
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	nz := &Normalizer{rows: DefaultDisplayRows}
	for _, opt := range opts {
		opt(nz)
	}
	return nz
}

// Render folds values into a Transcript. A failing view publisher only
// drops the link of the affected table.
func (nz *Normalizer) Render(ctx context.Context, values []any) *Transcript {
	t := &Transcript{Items: make([]Item, 0, len(values))}
	var b strings.Builder
	for _, v := range values {
		item := Classify(v)
		t.Items = append(t.Items, item)

		switch item.Kind {
		case KindTable:
			b.WriteString(nz.table(item.Table))
			if link := nz.viewLink(ctx, item.Table); link != "" {
				b.WriteString(link)
			}
		case KindImage:
			t.Images = append(t.Images, pngURL.FindAllString(item.Text, -1)...)
			b.WriteString("\n" + WrapPNG(item.Text) + "\n")
		case KindMap:
			t.Map = item.Text
			b.WriteString("\n" + item.Text + "\n")
		default:
			b.WriteString("\n" + item.Text + "\n")
		}
	}
	t.Text = b.String()
	return t
}

func (nz *Normalizer) table(f *frame.Frame) string {
	if f.Len() > nz.rows {
		return Markdown(f.Head(nz.rows)) + fmt.Sprintf("\nfirst %d rows of %d\n", nz.rows, f.Len())
	}
	return Markdown(f)
}

func (nz *Normalizer) viewLink(ctx context.Context, f *frame.Frame) string {
	if nz.views == nil {
		return ""
	}
	url, err := nz.views.PublishTable(ctx, f)
	if err != nil {
		slog.Warn("publishing interactive table view failed", "rows", f.Len(), "error", err)
		return ""
	}
	return WrapLink(url)
}

// WrapLink renders url as an HTML anchor opening in a new tab.
func WrapLink(url string) string {
	return fmt.Sprintf("\n<a href=\"%s\" target=\"_blank\">Open interactive view</a>\n", html.EscapeString(url))
}
