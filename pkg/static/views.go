package static

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/rhuss/askdata/pkg/frame"
	"github.com/rhuss/askdata/pkg/transcript"
)

var tablePage = template.Must(template.New("table").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 1em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
th { background: #f3f3f3; cursor: pointer; position: sticky; top: 0; }
input { margin-bottom: 1em; padding: 4px; width: 20em; }
</style>
</head>
<body>
<input id="filter" placeholder="Filter rows">
<p>{{.Count}} rows</p>
<table id="data">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
<script>
document.getElementById("filter").addEventListener("input", function (e) {
  var q = e.target.value.toLowerCase();
  document.querySelectorAll("#data tbody tr").forEach(function (tr) {
    tr.style.display = tr.textContent.toLowerCase().indexOf(q) >= 0 ? "" : "none";
  });
});
document.querySelectorAll("#data th").forEach(function (th, i) {
  var asc = true;
  th.addEventListener("click", function () {
    var body = document.querySelector("#data tbody");
    var rows = Array.from(body.rows);
    rows.sort(function (a, b) {
      var x = a.cells[i].textContent, y = b.cells[i].textContent;
      var nx = parseFloat(x), ny = parseFloat(y);
      var c = (!isNaN(nx) && !isNaN(ny)) ? nx - ny : x.localeCompare(y);
      return asc ? c : -c;
    });
    asc = !asc;
    rows.forEach(function (r) { body.appendChild(r); });
  });
});
</script>
</body>
</html>
`))

// Views publishes interactive HTML pages of full tables.
type Views struct {
	store *Store
	title string
}

var _ transcript.ViewPublisher = (*Views)(nil)

// NewViews creates a publisher writing into store.
func NewViews(store *Store, title string) *Views {
	if title == "" {
		title = "Query result"
	}
	return &Views{store: store, title: title}
}

// PublishTable writes an HTML page of f and returns its URL.
func (v *Views) PublishTable(_ context.Context, f *frame.Frame) (string, error) {
	rows := make([][]string, 0, f.Len())
	if f != nil {
		for _, r := range f.Rows {
			cells := make([]string, len(r))
			for i, c := range r {
				cells[i] = frame.Format(c)
			}
			rows = append(rows, cells)
		}
	}
	var cols []string
	if f != nil {
		cols = f.Columns
	}

	var buf bytes.Buffer
	err := tablePage.Execute(&buf, map[string]any{
		"Title":   v.title,
		"Count":   len(rows),
		"Columns": cols,
		"Rows":    rows,
	})
	if err != nil {
		return "", fmt.Errorf("rendering table view: %w", err)
	}
	name, err := v.store.Save(".html", buf.Bytes())
	if err != nil {
		return "", err
	}
	return v.store.URL(name), nil
}
