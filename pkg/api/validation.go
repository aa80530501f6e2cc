package api

import (
	"strings"
	"unicode/utf8"
)

// MaxQuestionLength is the longest question accepted, in characters.
const MaxQuestionLength = 4000

// ValidateAskRequest trims the question in place and checks it. It returns
// nil when the request is valid.
func ValidateAskRequest(req *AskRequest) *APIError {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return NewInvalidRequestError("question", "question is required")
	}
	if !utf8.ValidString(req.Question) {
		return NewInvalidRequestError("question", "question must be valid UTF-8")
	}
	if n := utf8.RuneCountInString(req.Question); n > MaxQuestionLength {
		return NewInvalidRequestError("question", "question is too long")
	}
	switch req.Mode {
	case ModeAgent, ModeSummary, ModePlan:
	default:
		return NewInvalidRequestError("mode", "unknown mode "+string(req.Mode))
	}
	return nil
}
