package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conveydesk/conveydesk/internal/client"
)

// splitPair splits "key<sep>value". The key must not be empty, the value may be.
func splitPair(pair, sep string) (string, string, error) {
	key, value, ok := strings.Cut(pair, sep)
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid value %q: expected key%svalue", pair, sep)
	}
	return key, value, nil
}

func parseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, err := splitPair(pair, ":")
		if err != nil {
			return nil, err
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func parseQuery(pairs []string) (url.Values, error) {
	query := url.Values{}
	for _, pair := range pairs {
		key, value, err := splitPair(pair, "=")
		if err != nil {
			return nil, err
		}
		query.Add(key, value)
	}
	return query, nil
}

// requestBody builds the body from --data or from --form/--file. A nil body means no body is sent.
func requestBody(data string, fields, files []string) (client.Body, error) {
	if data != "" && (len(fields) > 0 || len(files) > 0) {
		return nil, errors.New("--data cannot be combined with --form or --file")
	}

	if data != "" {
		if name, ok := strings.CutPrefix(data, "@"); ok {
			content, err := os.ReadFile(name)
			if err != nil {
				return nil, fmt.Errorf("reading --data file: %w", err)
			}
			data = string(content)
		}
		if !json.Valid([]byte(data)) {
			return nil, errors.New("--data is not valid JSON")
		}
		return client.JSON(data), nil
	}

	if len(fields) == 0 && len(files) == 0 {
		return nil, nil
	}

	form := &client.Form{}
	for _, pair := range fields {
		name, value, err := splitPair(pair, "=")
		if err != nil {
			return nil, err
		}
		form.Add(name, value)
	}
	for _, pair := range files {
		field, path, err := splitPair(pair, "=")
		if err != nil {
			return nil, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading --file %s: %w", field, err)
		}
		form.AddFile(field, filepath.Base(path), content)
	}
	return form, nil
}
