package agent

import (
	"context"

	"github.com/rhuss/askdata/pkg/provider"
)

// Reviewer writes the closing summary and critique of an answer.
type Reviewer interface {
	Review(ctx context.Context, question, answer, code string) (string, error)
}

// ModelReviewer asks the model to summarize and review the answer.
type ModelReviewer struct {
	Model provider.Provider
}

func (r *ModelReviewer) Review(ctx context.Context, question, answer, code string) (string, error) {
	prompt := "Question: " + question + `

Here is the answer produced by running the code below:
` + answer + "\n```go\n" + code + "\n```\n" + `
Summarize the answer for the user in a few sentences, then review it:
1. Does the result actually answer the question?
2. Point out assumptions, missing data or steps that could be wrong.
3. Do not mention code details, the user is not a programmer.
4. Do not repeat tables or links from the answer.`
	return provider.Ask(ctx, r.Model, "", prompt)
}
