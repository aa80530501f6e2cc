package agent

import (
	"fmt"
	"strings"

	"github.com/rhuss/askdata/pkg/storage"
)

// Attempt outcome kinds. Code failures use the executor kind names.
const (
	KindSuccess = "success"
	// KindModel means the model call failed.
	KindModel = "model"
	// KindEmpty means the model answered without code.
	KindEmpty = "empty"
	// KindExecution means the runner failed for a reason unrelated to the
	// code, such as an unreachable sandbox.
	KindExecution = "execution"
)

// Attempt records one code generation attempt.
type Attempt struct {
	Round   int
	Index   int
	Prompt  string
	Code    string
	Kind    string
	Message string
}

// Failed reports whether the attempt did not produce an answer.
func (a Attempt) Failed() bool { return a.Kind != KindSuccess }

// errorContext is the failure history of one round. Only attempts with
// code are kept, since a model failure gives the next attempt nothing to
// correct.
type errorContext []Attempt

func (c errorContext) add(a Attempt) errorContext {
	if a.Code == "" {
		return c
	}
	return append(c, a)
}

// String serializes the history for the next prompt.
func (c errorContext) String() string {
	if len(c) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nYour previous code failed. Fix every problem below and return the complete corrected code.\n")
	for i, a := range c {
		fmt.Fprintf(&b, "\nFailure %d (%s error): %s\n```go\n%s\n```\n", i+1, a.Kind, a.Message, strings.TrimSpace(a.Code))
	}
	return b.String()
}

func auditAttempts(attempts []Attempt) []storage.Attempt {
	out := make([]storage.Attempt, len(attempts))
	for i, a := range attempts {
		out[i] = storage.Attempt{Round: a.Round, Index: a.Index, Kind: a.Kind}
		if a.Failed() {
			out[i].Error = a.Message
		}
	}
	return out
}
