package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// Descriptor describes a single API call.
type Descriptor struct {
	Path          string            // leading slash optional, may include a query string
	Method        string            // defaults to GET
	Headers       map[string]string // override the default headers
	Body          Body              // JSON or *Form
	ExplicitToken string            // used instead of the session token when set
}

func (d Descriptor) method() string {
	if d.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(d.Method)
}

// Body is the payload of a request: JSON or *Form.
type Body interface {
	encode() (r io.Reader, contentType string, err error)
}

// JSON is a request body that has already been serialised by the caller.
type JSON string

func (j JSON) encode() (io.Reader, string, error) {
	return strings.NewReader(string(j)), "application/json", nil
}

// FormField is a plain multipart form value.
type FormField struct {
	Name  string
	Value string
}

// FormFile is a file part of a multipart form.
type FormFile struct {
	Field    string
	Filename string
	Content  []byte
}

// Form is an opaque multipart/form-data payload.
// The client generates the boundary and sets the multipart Content-Type itself.
type Form struct {
	Fields []FormField
	Files  []FormFile
}

func (f *Form) Add(name, value string) *Form {
	f.Fields = append(f.Fields, FormField{Name: name, Value: value})
	return f
}

func (f *Form) AddFile(field, filename string, content []byte) *Form {
	f.Files = append(f.Files, FormFile{Field: field, Filename: filename, Content: content})
	return f
}

func (f *Form) encode() (io.Reader, string, error) {
	if f == nil {
		f = &Form{}
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, field := range f.Fields {
		if err := w.WriteField(field.Name, field.Value); err != nil {
			return nil, "", fmt.Errorf("writing form field %q: %w", field.Name, err)
		}
	}
	for _, file := range f.Files {
		part, err := w.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %q: %w", file.Field, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", fmt.Errorf("writing form file %q: %w", file.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

// newRequest builds the http request. Caller supplied headers are applied last so they always win.
func (c *Client) newRequest(ctx context.Context, method, url, requestID string, d Descriptor) (*http.Request, error) {
	var (
		body        io.Reader
		contentType = "application/json"
	)
	if d.Body != nil {
		r, ct, err := d.Body.encode()
		if err != nil {
			return nil, err
		}
		body = r
		contentType = ct
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("X-Request-ID", requestID)

	if token := c.resolveToken(d.ExplicitToken); token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	for name, value := range d.Headers {
		req.Header.Set(name, value)
	}

	return req, nil
}
