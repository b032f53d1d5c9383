package api

import (
	"errors"
	"fmt"
)

// APIError is a structured error returned by the labhub HTTP API.
// ErrorCode is the server's numeric error code, zero when the body had none.
type APIError struct {
	Status    int
	Code      string
	ErrorCode int
	Message   string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Code != "" && e.ErrorCode > 0 && e.Message != "":
		return fmt.Sprintf("%s [%d]: %s", e.Code, e.ErrorCode, e.Message)
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	case e.Status > 0:
		return fmt.Sprintf("api error: %d", e.Status)
	}
	return "api error"
}

// HasErrorCode reports whether err wraps an APIError carrying code.
func HasErrorCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == code
}
