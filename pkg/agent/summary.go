package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rhuss/askdata/pkg/provider"
)

// PlanOneStep is the plan answer for questions a single tool call solves.
const PlanOneStep = "one"

// Summarize answers question from the model's own knowledge and the
// retrieved background knowledge, without generating code.
func (a *Agent) Summarize(ctx context.Context, question string) (_ string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("summarizing: %w", panicError("summary", r))
		}
	}()

	know := a.retrieve(ctx, question)
	prompt := "Question: " + question + "\n"
	if know != "" {
		prompt += "\nBase knowledge:\n" + know + "\n"
	}
	prompt += `
Answer the question briefly for a non-technical reader using the base knowledge and what you know.
If you are not sure, say which information is missing instead of guessing numbers.`

	text, err := a.ask(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}
	return text, nil
}

// Plan describes in plain language how the question would be solved: a
// direct answer, the word "one" when a single tool call suffices, or a
// short numbered list of steps.
func (a *Agent) Plan(ctx context.Context, question string) (_ string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("planning: %w", panicError("plan", r))
		}
	}()

	know := a.retrieve(ctx, question)
	sel, err := a.cfg.Selector.Select(ctx, question, know)
	if err != nil {
		return "", err
	}
	if sel.Solved {
		return know, nil
	}

	names := withRequired(sel.Tools, a.cfg.AlwaysInclude, a.cfg.Catalog.Names())
	var b strings.Builder
	b.WriteString("Question: " + question + "\n")
	b.WriteString("\nBase knowledge:\n" + know + "\n")
	for _, c := range a.cfg.Catalog.PromptContexts(ctx, question, names) {
		b.WriteString("\n" + c + "\n")
	}
	b.WriteString(`
If you can answer with your own knowledge and no function call is necessary, answer directly.
Else if you need to call multiple functions, tell me how to solve the problem step by step in natural language.
Else if you need to call just one function, return the single word "one" and nothing else.
Remind:
1. Do not mention code details, users are not specialists.
2. Keep the steps simple, short and clear.
3. If the database is used, name the tables to use.
4. Do not go through the steps in detail.

You can use the following functions to solve the problem:
`)
	b.WriteString(a.cfg.Catalog.Docs(names))
	b.WriteString(`

Example 1:
1. Retrieve the age data from the database.
2. Filter the age data.
3. Draw the graph.

Example 2:
one

Example 3:
Please clarify which town you mean.
`)

	text, err := a.ask(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("planning: %w", err)
	}
	return text, nil
}

func (a *Agent) ask(ctx context.Context, prompt string) (string, error) {
	return provider.Ask(ctx, a.cfg.Model, "", prompt)
}
