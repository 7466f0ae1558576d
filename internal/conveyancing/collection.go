package conveyancing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/conveydesk/conveydesk/internal/client"
	"github.com/conveydesk/conveydesk/internal/schemas"
	"github.com/tidwall/gjson"
)

var ErrUnexpectedShape = errors.New("unexpected response shape")

// Collection is a REST collection on the conveyancing API, e.g. /cases
type Collection struct {
	Name   string
	Path   string
	Schema string

	sender  Sender
	schemas *schemas.Registry
}

func (c *Collection) itemPath(id string) string {
	return fmt.Sprintf("%s/%s", c.Path, url.PathEscape(id))
}

// List fetches the collection. The API returns either a bare array or an envelope of the form {"data": [...]}.
func (c *Collection) List(ctx context.Context, query url.Values) ([]json.RawMessage, client.Result, error) {
	path := c.Path
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	res := c.sender.Send(ctx, client.Descriptor{Path: path})
	if !res.OK {
		return nil, res, res.Err()
	}

	list := gjson.ParseBytes(res.Results)
	if !list.IsArray() {
		list = list.Get("data")
	}
	if !list.IsArray() {
		return nil, res, fmt.Errorf("listing %s: %w: expected an array", c.Name, ErrUnexpectedShape)
	}

	items := make([]json.RawMessage, 0, len(list.Array()))
	for i, item := range list.Array() {
		raw := json.RawMessage(item.Raw)
		if err := c.schemas.Validate(c.Schema, raw); err != nil {
			return nil, res, fmt.Errorf("listing %s: item %d: %w", c.Name, i, err)
		}
		items = append(items, raw)
	}
	return items, res, nil
}

// Get fetches a single item
func (c *Collection) Get(ctx context.Context, id string) (json.RawMessage, client.Result, error) {
	res := c.sender.Send(ctx, client.Descriptor{Path: c.itemPath(id)})
	return c.item(res, "getting")
}

// Create posts a new item. body must already be serialised JSON.
func (c *Collection) Create(ctx context.Context, body client.JSON) (json.RawMessage, client.Result, error) {
	res := c.sender.Send(ctx, client.Descriptor{Path: c.Path, Method: http.MethodPost, Body: body})
	return c.item(res, "creating")
}

// Update applies a partial update (PATCH)
func (c *Collection) Update(ctx context.Context, id string, body client.JSON) (json.RawMessage, client.Result, error) {
	res := c.sender.Send(ctx, client.Descriptor{Path: c.itemPath(id), Method: http.MethodPatch, Body: body})
	return c.item(res, "updating")
}

// Replace replaces an item (PUT)
func (c *Collection) Replace(ctx context.Context, id string, body client.JSON) (json.RawMessage, client.Result, error) {
	res := c.sender.Send(ctx, client.Descriptor{Path: c.itemPath(id), Method: http.MethodPut, Body: body})
	return c.item(res, "replacing")
}

func (c *Collection) Delete(ctx context.Context, id string) (client.Result, error) {
	res := c.sender.Send(ctx, client.Descriptor{Path: c.itemPath(id), Method: http.MethodDelete})
	return res, res.Err()
}

// Upload posts a multipart form (e.g. a signed contract) to {path}/{id}/documents
func (c *Collection) Upload(ctx context.Context, id string, form *client.Form) (client.Result, error) {
	res := c.sender.Send(ctx, client.Descriptor{
		Path:   c.itemPath(id) + "/documents",
		Method: http.MethodPost,
		Body:   form,
	})
	return res, res.Err()
}

// item validates a single item response. Write operations may legitimately return no body.
func (c *Collection) item(res client.Result, action string) (json.RawMessage, client.Result, error) {
	if !res.OK {
		return nil, res, res.Err()
	}
	if res.Results == nil && action != "getting" {
		return nil, res, nil
	}

	raw := unwrapData(res.Results)
	if err := c.schemas.Validate(c.Schema, raw); err != nil {
		return nil, res, fmt.Errorf("%s %s: %w", action, c.Name, err)
	}
	return raw, res, nil
}

// unwrapData returns the object inside a {"data": {...}} envelope, or raw unchanged.
func unwrapData(raw json.RawMessage) json.RawMessage {
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() || doc.Get("id").Exists() {
		return raw
	}
	if data := doc.Get("data"); data.IsObject() {
		return json.RawMessage(data.Raw)
	}
	return raw
}

// Decode unmarshals a validated item into one of the record types
func Decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if raw == nil {
		return v, client.ErrNoResults
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decoding %T: %w", v, err)
	}
	return v, nil
}

// DecodeAll decodes every item of a list
func DecodeAll[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, raw := range items {
		v, err := Decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
