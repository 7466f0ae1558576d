package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// user messages returned in Result.Error
const (
	MsgNetworkError = "Network error. Please check your connection or try again."
	MsgNotFound     = "Resource not found."
	MsgUnauthorized = "Unauthorized. Please log in again."
	MsgForbidden    = "Access denied."
	MsgServerError  = "Server error — please try again later."
	MsgUnknownError = "An unknown error occurred."
)

var ErrNoResults = errors.New("response has no JSON body")

// Error represents a failed call to the conveyancing API
// StatusCode 0 = network/connection error, >0 = HTTP response received
type Error struct {
	StatusCode  int    `json:"status_code"`
	UserMessage string `json:"user_message"`
	LogMessage  string `json:"log_message"`

	cause error
}

func (e *Error) Error() string {
	return e.LogMessage
}

// UserError returns the user-friendly message
func (e *Error) UserError() string {
	return e.UserMessage
}

func (e *Error) Unwrap() error {
	return e.cause
}

// IsNetworkError reports whether no response was received
func (e *Error) IsNetworkError() bool {
	return e.StatusCode == 0
}

func logMessage(status int, body json.RawMessage) string {
	msg := fmt.Sprintf("conveyancing api status %d", status)
	if m := bodyMessage(body); m != "" {
		msg += fmt.Sprintf(" - %s", m)
	}
	return msg
}

// AsError returns the *Error in err's chain, if there is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
