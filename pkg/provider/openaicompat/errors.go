package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/askdata/pkg/api"
)

// MapHTTPError converts a non-2xx backend response into an APIError,
// preferring the message from the backend's error body.
func MapHTTPError(resp *http.Response) *api.APIError {
	message := ExtractErrorMessage(resp.Body)
	fallback := func(s string) string {
		if message != "" {
			return message
		}
		return s
	}

	switch code := resp.StatusCode; {
	case code == http.StatusBadRequest:
		return api.NewModelError(fallback("invalid request to model backend"))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return api.NewServerError(fallback("model backend authentication failed"))
	case code == http.StatusNotFound:
		return api.NewModelError(fallback("model not found on backend"))
	case code == http.StatusTooManyRequests:
		return api.NewTooManyRequestsError(fallback("model backend rate limit exceeded"))
	case code >= http.StatusInternalServerError:
		return api.NewServerError(fallback(fmt.Sprintf("model backend error (HTTP %d)", code)))
	default:
		return api.NewServerError(fallback(fmt.Sprintf("unexpected model backend response (HTTP %d)", code)))
	}
}

// MapNetworkError converts a connection-level failure into an APIError.
func MapNetworkError(err error) *api.APIError {
	return api.NewServerError(fmt.Sprintf("model backend connection error: %s", err.Error()))
}

// ExtractErrorMessage reads at most 4 KiB of body and returns the message
// of a ChatErrorResponse, or "" if the body has none.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return ""
	}
	return errResp.Error.Message
}
