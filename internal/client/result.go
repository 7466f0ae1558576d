package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Result is the outcome of a call to Send.
//
// OK is true for 2xx responses. Status is the HTTP status, or 0 when no response was received.
// Results holds the parsed response body on both success and failure, and is nil when the body was empty or not JSON.
type Result struct {
	OK      bool            `json:"ok"`
	Status  int             `json:"status"`
	Error   string          `json:"error,omitempty"`
	Results json.RawMessage `json:"results"`

	cause error
}

// Err returns nil for a successful result, otherwise a *Error describing the failure
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	e := &Error{
		StatusCode:  r.Status,
		UserMessage: r.Error,
		cause:       r.cause,
	}
	if r.cause != nil {
		e.LogMessage = "network error: " + r.cause.Error()
	} else {
		e.LogMessage = logMessage(r.Status, r.Results)
	}
	return e
}

// Get returns the value at the gjson path in the result body.
func (r Result) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Results, path)
}

// Decode unmarshals the result body into v.
func (r Result) Decode(v any) error {
	if r.Results == nil {
		return ErrNoResults
	}
	return json.Unmarshal(r.Results, v)
}

func networkFailure(err error) Result {
	return Result{
		OK:     false,
		Status: 0,
		Error:  MsgNetworkError,
		cause:  err,
	}
}

func newResult(res *http.Response) Result {
	body := parseBody(res.Body)

	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return Result{
			OK:      true,
			Status:  res.StatusCode,
			Results: body,
		}
	}

	return Result{
		OK:      false,
		Status:  res.StatusCode,
		Error:   errorMessage(res.StatusCode, body),
		Results: body,
	}
}

// parseBody reads the response body and returns it if it is a JSON document.
// Empty, unreadable and non JSON bodies are returned as nil.
func parseBody(r io.Reader) json.RawMessage {
	if r == nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	return json.RawMessage(data)
}

// errorMessage picks the user message for a non 2xx response. The first matching rule wins.
func errorMessage(status int, body json.RawMessage) string {
	if status == http.StatusBadRequest {
		if msg := fieldErrors(body); msg != "" {
			return msg
		}
	}

	switch status {
	case http.StatusNotFound:
		return MsgNotFound
	case http.StatusUnauthorized:
		return MsgUnauthorized
	case http.StatusForbidden:
		return MsgForbidden
	case http.StatusInternalServerError:
		if msg := bodyMessage(body); msg != "" {
			return msg
		}
		return MsgServerError
	}

	if msg := bodyMessage(body); msg != "" {
		return msg
	}
	return MsgUnknownError
}

// fieldErrors flattens a validation body of the form {"errors": {"field": ["msg", ...]}}.
// Messages are joined in the order the fields appear in the document. Non-string entries are skipped.
func fieldErrors(body json.RawMessage) string {
	errs := gjson.GetBytes(body, "errors")
	if !errs.IsObject() {
		return ""
	}

	var messages []string
	errs.ForEach(func(_, value gjson.Result) bool {
		switch {
		case value.IsArray():
			for _, m := range value.Array() {
				if m.Type == gjson.String {
					messages = append(messages, m.Str)
				}
			}
		case value.Type == gjson.String:
			messages = append(messages, value.Str)
		}
		return true
	})
	return strings.Join(messages, ", ")
}

func bodyMessage(body json.RawMessage) string {
	msg := gjson.GetBytes(body, "message")
	if msg.Type != gjson.String {
		return ""
	}
	return msg.Str
}
