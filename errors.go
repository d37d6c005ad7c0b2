package RSClientGo

import (
	"fmt"
	"net/http"
)

// Typed failures returned by the client. Use errors.As to tell them apart:
//
//	var unauthorized *RSClientGo.UserUnauthorizedError
//	if errors.As(err, &unauthorized) { ... }

// transport-level failure (timeout, DNS, connection refused/reset) that persisted for every attempt
type MaxRetryError struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

func (e *MaxRetryError) Error() string {
	return fmt.Sprintf("%v %v failed after %d attempts: %v", e.Method, e.URL, e.Attempts, e.Err)
}

func (e *MaxRetryError) Unwrap() error {
	return e.Err
}

// non-2xx response that is not a credential failure
type StatusCodeError struct {
	StatusCode int
	Body       string
	Message    string // extracted from a JSON error body when there is one
}

func (e *StatusCodeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d %v: %v", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("HTTP %d %v: %v", e.StatusCode, http.StatusText(e.StatusCode), shortBody(e.Body))
}

// HTTP 401
type UserUnauthorizedError struct {
	Body string
}

func (e *UserUnauthorizedError) Error() string {
	return fmt.Sprintf("user unauthorized (HTTP 401): %v", shortBody(e.Body))
}

// HTTP 403
type InsufficientPrivilegesError struct {
	Body string
}

func (e *InsufficientPrivilegesError) Error() string {
	return fmt.Sprintf("insufficient privileges (HTTP 403): %v", shortBody(e.Body))
}

// the response was 2xx but could not be understood, eg: a search response without a page envelope
type MalformedResponseError struct {
	What string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %v: %v", e.What, e.Err)
	}
	return fmt.Sprintf("malformed response: %v", e.What)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// the platform moved the export job into the ERROR state
type ExportFailedError struct {
	JobID uint64
}

func (e *ExportFailedError) Error() string {
	return fmt.Sprintf("export job %d finished with status %v", e.JobID, ExportStatusError)
}

// the export job did not reach a terminal state within ExportPollingMaxSeconds
type ExportTimeoutError struct {
	JobID      uint64
	LastStatus ExportStatus
	Seconds    int
}

func (e *ExportTimeoutError) Error() string {
	return fmt.Sprintf("export job %d still %v after %d seconds, aborting - use rsclient.get/setclientvars to change", e.JobID, e.LastStatus, e.Seconds)
}

// writing or extracting the export archive failed
type ExportIOError struct {
	Path string
	Err  error
}

func (e *ExportIOError) Error() string {
	return fmt.Sprintf("export file %v: %v", e.Path, e.Err)
}

func (e *ExportIOError) Unwrap() error {
	return e.Err
}

func shortBody(body string) string {
	if len(body) > 200 {
		return body[:200] + "..."
	}
	return body
}
