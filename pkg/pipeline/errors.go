package pipeline

import "fmt"

// ErrorCode is the closed set of failure categories surfaced to tool
// callers. Codes are stable API; messages are not.
type ErrorCode string

const (
	CodeInvalidParams       ErrorCode = "invalid_params"
	CodeInvalidURL          ErrorCode = "invalid_url"
	CodeNotConfigured       ErrorCode = "not_configured"
	CodeNotSupported        ErrorCode = "not_supported"
	CodeProviderUnavailable ErrorCode = "provider_unavailable"
	CodeFetchFailed         ErrorCode = "fetch_failed"
	CodeSearchFailed        ErrorCode = "search_failed"
	CodeCacheError          ErrorCode = "cache_error"
	CodeUnexpected          ErrorCode = "unexpected_error"
)

// Retryable reports whether retrying the same call can plausibly
// succeed without a config change.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeFetchFailed, CodeSearchFailed, CodeCacheError:
		return true
	}
	return false
}

// Hint is a short remediation note for the caller.
func (c ErrorCode) Hint() string {
	switch c {
	case CodeInvalidParams:
		return "check parameter names, types, and bounds"
	case CodeInvalidURL:
		return "only absolute http or https URLs are accepted"
	case CodeNotConfigured:
		return "the selected backend is missing credentials or an endpoint"
	case CodeNotSupported:
		return "this operation is disabled under the current privacy mode"
	case CodeProviderUnavailable:
		return "no configured provider could serve the request"
	case CodeFetchFailed:
		return "the remote host did not return usable content; retry or try another backend"
	case CodeSearchFailed:
		return "all search providers failed; retry or narrow the query"
	case CodeCacheError:
		return "the local cache could not be read or written; retry"
	default:
		return "unexpected internal failure"
	}
}

// Error is a categorized pipeline failure.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorInfo is the wire form of a pipeline failure, with the retry and
// hint fields expanded so callers need no local table.
type ErrorInfo struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Hint      string    `json:"hint"`
}

func infoFor(err *Error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{
		Code:      err.Code,
		Message:   err.Message,
		Retryable: err.Code.Retryable(),
		Hint:      err.Code.Hint(),
	}
}
