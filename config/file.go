package config

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/adsgraph/adsgraph/apierr"
)

// LoadFile reads Params from a YAML file:
//
//	base_path: https://gateway.example.com/graph
//	account_id: act_123456789
//	custom_headers:
//	  x-apikey: k
//	access_token: ...
//
// Unknown keys are rejected so typos don't silently fall back to defaults.
func LoadFile(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, &apierr.ConfigError{Field: "file", Reason: "read " + path, Err: err}
	}

	var p Params
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Params{}, &apierr.ConfigError{Field: "file", Reason: "parse " + path, Err: err}
	}
	return p, nil
}
