package executor

import (
	"errors"
	"fmt"
)

// Kind classifies why generated code could not produce its items.
type Kind int

const (
	// KindCompile means the code did not parse, used a forbidden import,
	// or failed to evaluate in the interpreter.
	KindCompile Kind = iota

	// KindNoEntryPoint means the code does not define exactly one
	// procedure with the entry signature.
	KindNoEntryPoint

	// KindRuntime means the procedure panicked or was cancelled while
	// producing items.
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindCompile:
		return "compile"
	case KindNoEntryPoint:
		return "no_entry_point"
	case KindRuntime:
		return "runtime"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CodeError is returned for every failure attributable to generated code.
// Message is the text handed back to the model on the next attempt.
type CodeError struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// KindOf returns the kind of a CodeError anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}

func compileError(code string, err error) *CodeError {
	return &CodeError{Kind: KindCompile, Code: code, Message: err.Error()}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range []Kind{KindCompile, KindNoEntryPoint, KindRuntime} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}
