// Package sandbox runs generated code on a remote sandbox server instead of
// the in-process interpreter.
//
// The server (cmd/sandbox-server) hosts the same interpreter and tool
// catalog and answers POST /execute with the yielded values encoded as
// items. Runner is the client side and implements executor.Runner, so the
// agent cannot tell a remote execution from a local one except that tables
// come back with JSON-decoded cells.
package sandbox

import (
	"github.com/rhuss/askdata/pkg/frame"
	"github.com/rhuss/askdata/pkg/transcript"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is the body of POST /execute.
type Request struct {
	Code           string `json:"code"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Response is the body returned by POST /execute. Items holds the values
// yielded before Error occurred.
type Response struct {
	Status          string   `json:"status"`
	Items           []Item   `json:"items"`
	Error           *Failure `json:"error,omitempty"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
}

// Failure describes why generated code failed. Kind is an executor kind
// name such as "compile" or "runtime".
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Item is one yielded value on the wire. Tables keep their structure;
// everything else travels as text.
type Item struct {
	Type  string       `json:"type"` // "text" or "table"
	Text  string       `json:"text,omitempty"`
	Table *frame.Frame `json:"table,omitempty"`
}

// Encode converts a yielded value into an Item.
func Encode(v any) Item {
	switch t := v.(type) {
	case *frame.Frame:
		if t != nil {
			return Item{Type: "table", Table: t}
		}
	case frame.Frame:
		return Item{Type: "table", Table: &t}
	}
	return Item{Type: "text", Text: transcript.Stringify(v)}
}

// Decode converts an Item back into a value the transcript can classify.
func (it Item) Decode() any {
	if it.Type == "table" && it.Table != nil {
		return it.Table
	}
	return it.Text
}
