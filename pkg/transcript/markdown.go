package transcript

import (
	"strings"

	"github.com/rhuss/askdata/pkg/frame"
)

var cellEscaper = strings.NewReplacer("\n", "<br>", "|", `\|`)

// Markdown renders f as a markdown table followed by a blank line.
func Markdown(f *frame.Frame) string {
	var b strings.Builder
	cols := make([]string, len(f.Columns))
	seps := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		cols[i] = c
		seps[i] = "---"
	}
	b.WriteString(strings.Join(cols, " | "))
	b.WriteString(" \n")
	b.WriteString(strings.Join(seps, " | "))
	b.WriteString(" \n")

	cells := make([]string, len(f.Columns))
	for _, row := range f.Rows {
		for i := range cells {
			var v any
			if i < len(row) {
				v = row[i]
			}
			cells[i] = cellEscaper.Replace(frame.Format(v))
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" \n")
	}
	b.WriteString("\n")
	return b.String()
}
