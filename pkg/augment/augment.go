// Package augment guarantees that required lines are present in generated
// code before it is executed.
//
// Import lines ("import \"fmt\"", "import m \"math\"") are added as
// file-level declarations because Go does not allow imports inside a
// function. Every other line is inserted as a leading statement of the
// entry procedure. Augmentation is textual and leaves the rest of the code
// byte for byte intact.
package augment

import (
	"go/parser"
	"go/token"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rhuss/askdata/pkg/executor"
)

var importLine = regexp.MustCompile(`^import\s+(?:([A-Za-z_][A-Za-z0-9_]*|\.|_)\s+)?"([^"]+)"$`)

type importSpec struct {
	name string
	path string
}

// ParseImport reports whether line is a single import declaration and
// returns its name (empty when unnamed) and path.
func ParseImport(line string) (name, path string, ok bool) {
	m := importLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Augment returns code with every line of lines present exactly once.
// Lines already present (trimmed text match) are skipped. Empty code,
// code that does not parse, and code without exactly one entry procedure
// are returned unchanged. Applying Augment twice with the same lines is
// the same as applying it once.
func Augment(code string, lines []string) string {
	if strings.TrimSpace(code) == "" || len(lines) == 0 {
		return code
	}

	src := executor.WithPackageClause(code)
	offset := len(src) - len(code)

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "generated.go", src, parser.ParseComments)
	if err != nil {
		return code
	}
	entries := executor.EntryPoints(f)
	if len(entries) != 1 {
		return code
	}
	body := entries[0].Body

	tf := fset.File(f.Pos())
	lbrace := tf.Offset(body.Lbrace) - offset
	rbrace := tf.Offset(body.Rbrace) - offset
	present := bodyLines(code[lbrace+1 : rbrace])

	existing := make(map[importSpec]bool, len(f.Imports))
	for _, imp := range f.Imports {
		p, _ := strconv.Unquote(imp.Path.Value)
		spec := importSpec{path: p}
		if imp.Name != nil {
			spec.name = imp.Name.Name
		}
		existing[spec] = true
	}

	var imports, stmts []string
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true

		if name, path, ok := ParseImport(line); ok {
			if !existing[importSpec{name: name, path: path}] {
				imports = append(imports, line)
			}
			continue
		}
		if present[line] || !isStatement(line) {
			continue
		}
		stmts = append(stmts, line)
	}
	if len(imports) == 0 && len(stmts) == 0 {
		return code
	}

	type insertion struct {
		at   int
		text string
	}
	var ins []insertion
	if len(stmts) > 0 {
		text := "\n\t" + strings.Join(stmts, "\n\t")
		if rest := code[lbrace+1:]; !strings.HasPrefix(rest, "\n") && !strings.HasPrefix(rest, "\r\n") {
			text += "\n"
		}
		ins = append(ins, insertion{at: lbrace + 1, text: text})
	}
	if len(imports) > 0 {
		if offset > 0 {
			ins = append(ins, insertion{at: 0, text: strings.Join(imports, "\n") + "\n\n"})
		} else {
			ins = append(ins, insertion{at: tf.Offset(f.Name.End()), text: "\n\n" + strings.Join(imports, "\n")})
		}
	}
	sort.Slice(ins, func(i, j int) bool { return ins[i].at > ins[j].at })

	out := code
	for _, in := range ins {
		out = out[:in.at] + in.text + out[in.at:]
	}
	return out
}

func bodyLines(body string) map[string]bool {
	m := make(map[string]bool)
	for line := range strings.Lines(body) {
		if t := strings.TrimSpace(line); t != "" {
			m[t] = true
		}
	}
	return m
}

// isStatement reports whether line parses as one or more statements.
func isStatement(line string) bool {
	_, err := parser.ParseFile(token.NewFileSet(), "", "package p\nfunc _() {\n"+line+"\n}\n", 0)
	return err == nil
}

// Imports returns the import lines among lines, in order.
func Imports(lines []string) []string {
	var out []string
	for _, l := range lines {
		if _, _, ok := ParseImport(l); ok {
			out = append(out, strings.TrimSpace(l))
		}
	}
	return out
}
