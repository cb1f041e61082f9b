package github

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
)

var (
	// ErrRateLimitExceeded is returned when the GitHub API rate limit is exceeded
	ErrRateLimitExceeded = errors.New("github rate limit exceeded")

	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("github authentication failed")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("github resource not found")

	// ErrForbidden is returned when access is forbidden
	ErrForbidden = errors.New("github access forbidden")

	// ErrServerError is returned when GitHub returns a server error
	ErrServerError = errors.New("github server error")

	// ErrBadRequest is returned when the request is malformed
	ErrBadRequest = errors.New("github bad request")

	// ErrUnprocessable is returned when GitHub rejects the request entity
	ErrUnprocessable = errors.New("github unprocessable entity")

	// ErrTimeout is returned when a request times out
	ErrTimeout = errors.New("github request timeout")
)

// APIError wraps GitHub API errors with additional context
type APIError struct {
	StatusCode int
	Message    string
	URL        string
	Method     string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github api error: %s (status: %d, method: %s, url: %s): %v",
			e.Message, e.StatusCode, e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("github api error: %s (status: %d, method: %s, url: %s)",
		e.Message, e.StatusCode, e.Method, e.URL)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// WrapError converts a GitHub API error into a structured APIError
func WrapError(err error, method, url string) error {
	if err == nil {
		return nil
	}

	// Typed rate limit errors from go-github, including its client-side
	// blocking. Keep the full message: the reset hint inside it drives the
	// retry wait calculation.
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &APIError{
			StatusCode: http.StatusForbidden,
			Message:    err.Error(),
			URL:        url,
			Method:     method,
			Err:        ErrRateLimitExceeded,
		}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &APIError{
			StatusCode: http.StatusForbidden,
			Message:    err.Error(),
			URL:        url,
			Method:     method,
			Err:        ErrRateLimitExceeded,
		}
	}

	// Check if it's already a GitHub error response
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		apiErr := &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
			URL:        url,
			Method:     method,
			Err:        err,
		}

		// Map to specific error types based on status code
		apiErr.Err = mapErrorType(ghErr.Response.StatusCode, ghErr.Response.Header)

		return apiErr
	}

	// Try to extract status code from error message for non-JSON responses
	// This handles cases like nginx HTML error pages (502, 503, etc.)
	statusCode := extractStatusCodeFromError(err)

	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    err.Error(),
		URL:        url,
		Method:     method,
		Err:        err,
	}

	// Map to specific error types if we have a valid status code
	if statusCode > 0 {
		apiErr.Err = mapErrorType(statusCode, nil)
	}

	return apiErr
}

// mapErrorType maps HTTP status codes to specific error types
func mapErrorType(statusCode int, header http.Header) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		// Check if it's a rate limit error
		if header != nil && header.Get("X-RateLimit-Remaining") == "0" {
			return ErrRateLimitExceeded
		}
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnprocessableEntity:
		return ErrUnprocessable
	case http.StatusTooManyRequests:
		return ErrRateLimitExceeded
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return ErrServerError
	default:
		// Return the original status code if no specific mapping
		return nil
	}
}

// extractStatusCodeFromError tries to extract HTTP status code from error message
// This handles cases where GitHub returns HTML error pages instead of JSON
func extractStatusCodeFromError(err error) int {
	if err == nil {
		return 0
	}

	errMsg := err.Error()

	// Map of error patterns to status codes
	// Check in order of specificity (most specific first)
	statusPatterns := map[string]int{
		"500 Internal Server Error": http.StatusInternalServerError,
		"502 Bad Gateway":           http.StatusBadGateway,
		"503 Service Unavailable":   http.StatusServiceUnavailable,
		"504 Gateway Timeout":       http.StatusGatewayTimeout,
		"429 Too Many Requests":     http.StatusTooManyRequests,
		"422 Unprocessable Entity":  http.StatusUnprocessableEntity,
		"403 Forbidden":             http.StatusForbidden,
		"401 Unauthorized":          http.StatusUnauthorized,
		"404 Not Found":             http.StatusNotFound,
		"400 Bad Request":           http.StatusBadRequest,
	}

	for pattern, code := range statusPatterns {
		if strings.Contains(errMsg, pattern) {
			return code
		}
	}

	return 0
}

// rateLimitResetRE matches the reset hint go-github appends to rate limit
// error messages, e.g. "[rate reset in 58m21s]".
var rateLimitResetRE = regexp.MustCompile(`rate reset in ((?:[0-9.]+(?:ms|h|m|s))+)`)

// ParseRateLimitResetTime extracts the rate limit reset time from an error,
// either from go-github's typed errors or from the reset hint embedded in
// the message. The second return reports whether a reset time was found.
func ParseRateLimitResetTime(err error) (time.Time, bool) {
	if err == nil {
		return time.Time{}, false
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && !rateErr.Rate.Reset.Time.IsZero() {
		return rateErr.Rate.Reset.Time, true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.RetryAfter != nil {
		return time.Now().Add(*abuseErr.RetryAfter), true
	}

	if m := rateLimitResetRE.FindStringSubmatch(err.Error()); len(m) == 2 {
		if d, perr := time.ParseDuration(m[1]); perr == nil {
			return time.Now().Add(d), true
		}
	}

	return time.Time{}, false
}

// IsRateLimitBlockedError checks if an error is go-github's client-side
// rate limit block (the request was never sent)
func IsRateLimitBlockedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "not making remote request")
}

// IsSecondaryRateLimitError checks if an error is a GitHub secondary
// (abuse) rate limit
func IsSecondaryRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "secondary rate limit")
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		// Retry on server errors and rate limit errors
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	// Also retry on rate limit errors
	if errors.Is(err, ErrRateLimitExceeded) {
		return true
	}

	// Client-side blocks and secondary limits clear after a wait
	return IsRateLimitBlockedError(err) || IsSecondaryRateLimitError(err)
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if an error is an HTTP 409 conflict (resource
// already exists)
func IsConflictError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusConflict
	}
	return false
}
