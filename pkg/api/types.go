package api

import (
	"time"

	"github.com/rhuss/askdata/pkg/storage"
)

// Envelope result types.
const (
	TypeSuccess = "success"
	TypeError   = "error"
)

// Envelope messages.
const (
	MessageSuccess = "processed successfully"
	MessageFailure = "processing failed, please try asking in a different way"
)

// Mode selects what the server does with a question.
type Mode string

const (
	// ModeAgent generates and runs code (POST /api/ask-agent/).
	ModeAgent Mode = "agent"
	// ModeSummary answers from background knowledge only (POST /api/agent-summary/).
	ModeSummary Mode = "summary"
	// ModePlan describes how the question would be solved (POST /api/cot-chat/).
	ModePlan Mode = "plan"
)

// AskRequest is the body of every question endpoint.
type AskRequest struct {
	Question string `json:"question"`

	// Mode is set by the route, never by the client.
	Mode Mode `json:"-"`
}

// AskResponse is the answer envelope.
type AskResponse struct {
	Question string `json:"question"`
	Answer   string `json:"ans"`
	// Map is the last map iframe of an agent answer.
	Map     string `json:"map"`
	Type    string `json:"type"`
	Message string `json:"msg"`

	Images  []string `json:"images,omitempty"`
	Code    string   `json:"code,omitempty"`
	Rounds  int      `json:"rounds,omitempty"`
	AuditID string   `json:"audit_id,omitempty"`
}

// Success returns a successful envelope for question.
func Success(question, answer string) *AskResponse {
	return &AskResponse{Question: question, Answer: answer, Type: TypeSuccess, Message: MessageSuccess}
}

// Failure returns the envelope of a question that could not be answered.
func Failure(question string) *AskResponse {
	return &AskResponse{Question: question, Type: TypeError, Message: MessageFailure}
}

// AuditRecord is the public view of an audit record.
type AuditRecord struct {
	ID       string         `json:"id"`
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Code     string         `json:"code,omitempty"`
	Outcome  string         `json:"outcome"`
	Rounds   int            `json:"rounds"`
	Attempts []AuditAttempt `json:"attempts"`
	Created  time.Time      `json:"created_at"`
}

// AuditAttempt is one generation attempt of an audit record.
type AuditAttempt struct {
	Round int    `json:"round"`
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	Error string `json:"error,omitempty"`
}

// AuditList is a page of audit records, newest first.
type AuditList struct {
	Object string         `json:"object"`
	Data   []*AuditRecord `json:"data"`
}

// NewAuditRecord converts a stored record. The tenant is not exposed.
func NewAuditRecord(r *storage.Record) *AuditRecord {
	out := &AuditRecord{
		ID:       r.ID,
		Question: r.Question,
		Answer:   r.Answer,
		Code:     r.Code,
		Outcome:  r.Outcome,
		Rounds:   r.Rounds,
		Attempts: make([]AuditAttempt, len(r.Attempts)),
		Created:  r.Created,
	}
	for i, a := range r.Attempts {
		out.Attempts[i] = AuditAttempt{Round: a.Round, Index: a.Index, Kind: a.Kind, Error: a.Error}
	}
	return out
}
