package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// RequestIDPrefix marks server generated request IDs. Clients may send
// their own ID in X-Request-ID instead; it then names the question for
// DELETE /api/ask-agent/{request_id}.
const RequestIDPrefix = "req_"

var requestIDPattern = regexp.MustCompile(`^req_[0-9a-f]{32}$`)

// NewRequestID returns "req_" followed by a random UUID in hex.
func NewRequestID() string {
	return RequestIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateRequestID checks whether id was produced by NewRequestID.
func ValidateRequestID(id string) bool {
	return requestIDPattern.MatchString(id)
}
