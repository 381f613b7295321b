package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Content types produced by EncodeBody.
const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// EncodeBody turns a request body into a reader and the content type to
// send with it. nil yields no body; url.Values become a form; []byte,
// string and io.Reader pass through untouched (content type left empty);
// anything else is JSON.
func EncodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case url.Values:
		return strings.NewReader(v.Encode()), ContentTypeForm, nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "", nil
	case io.Reader:
		return v, "", nil
	}
	buf, err := EncodeJSONBody(body)
	if err != nil {
		return nil, "", err
	}
	return buf, ContentTypeJSON, nil
}

// EncodeJSONBody encodes body without HTML escaping; Graph field values
// may legitimately contain <, > and &.
func EncodeJSONBody(body any) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return &buf, nil
}
