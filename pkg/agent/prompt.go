package agent

import (
	"strings"

	"github.com/rhuss/askdata/pkg/tools"
)

const codeSystemPrompt = `You are a data analyst who answers questions by writing Go code.
Reply with exactly one fenced go code block and nothing else.`

const instructions = `
Write Go code that answers the question using the functions below.
The code must define exactly one function with the signature
	func Answer(yield func(any) bool)
Helper functions with other signatures are allowed.

Rules:
1. Yield an explanation string before each step, like a report.
2. Yield the result of every step and function call, not only at the end.
3. Stop as soon as yield returns false.
4. Check every error and every nil or empty frame a function returns, and yield a message explaining what was not found.
5. Never invent example inputs or placeholder values for the user to replace.
6. Only import the standard library packages fmt, math, sort, strings, strconv, time, errors, slices, maps, unicode, regexp, encoding/json and the packages named below.
`

const workedExample = "\nHere is an example:\n```go\n" + `package main

import (
	"askdata/frame"
	"askdata/tools"
)

func Answer(yield func(any) bool) {
	if !yield("The enrolment of schools near postcode 139951:") {
		return
	}
	df, err := tools.QueryDatabase("Enrolment of schools near postcode 139951", "school_name, enrolment")
	if err != nil {
		yield(err)
		return
	}
	if df == nil || df.Empty() {
		yield("No school enrolment was found in the database.")
		return
	}
	if !yield(df) {
		return
	}
	top := frame.New(df.Columns, df.Head(3).Rows)
	yield("Enrolment of the first three schools:")
	url, err := tools.DrawGraph("Bar chart of enrolment by school", top)
	if err != nil {
		yield(err)
		return
	}
	yield(url)
}
` + "```\n"

// codePrompt builds the base prompt of a round. The error context of the
// round is appended per attempt.
func codePrompt(question, knowledge string, contexts []string, catalog *tools.Catalog, names []string) string {
	var b strings.Builder
	b.WriteString("Question: " + question + "\n")
	b.WriteString("\nBase knowledge:\n" + knowledge + "\n")
	for _, c := range contexts {
		b.WriteString("\n" + c + "\n")
	}
	b.WriteString(instructions)
	b.WriteString("\nHere are the functions you can use:\n")
	b.WriteString(strings.Join(catalog.Imports(names), "\n"))
	b.WriteString("\n\n")
	b.WriteString(catalog.Docs(names))
	b.WriteString("\n")
	b.WriteString(workedExample)
	return b.String()
}
