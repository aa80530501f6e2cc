package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ErrNoAnswer is returned when every round failed. It is an expected
// outcome: the question needs rephrasing or more context.
var ErrNoAnswer = errors.New("could not answer the question, please rephrase it or provide more information")

// panicError logs a recovered panic from a collaborator with its stack and
// returns it as an error. The stack stays in the log, never in an answer.
func panicError(what string, r any) error {
	slog.Error("recovered panic", "in", what, "panic", r, "stack", string(debug.Stack()))
	return fmt.Errorf("%s panicked: %v", what, r)
}
