package connectors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnsupportedMethod is a programmer error: only GET, POST and DELETE are signed.
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// TransportError is a network failure (StatusCode 0, Err set) or a non-2xx
// response from the exchange.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	// Code and Msg are filled when the body is a {"code":..,"msg":..} error.
	Code int
	Msg  string
	Err  error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %s (%d): %s", e.Method, e.Path, e.StatusCode, GetErrorMsg(e.Code), e.Code, e.Msg)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable tells callers whether repeating the request could succeed. The
// client never acts on it by itself.
func (e *TransportError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func newStatusError(method, path string, status int, body []byte) *TransportError {
	te := &TransportError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       string(body),
	}
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Code != 0 {
		te.Code = ae.Code
		te.Msg = ae.Msg
	}
	return te
}
