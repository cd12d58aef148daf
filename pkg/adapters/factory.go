package adapters

import (
	"encoding/json"
	"fmt"
)

// New creates an adapter based on kind and generic configuration map.
// This is the central extension point for adding new adapter types.
//
// Supported kinds:
//   - "http":   Generic HTTP adapter
//   - "static": Embedded-series adapter
//
// Returns error if kind is unknown or required fields are missing.
func New(kind string, config map[string]string) (Adapter, error) {
	switch kind {
	case "http":
		return newHTTP(config)
	case "static":
		return newStatic(config)
	default:
		return nil, fmt.Errorf("unknown adapter kind: %s (must be http or static)", kind)
	}
}

// newHTTP creates a generic HTTP adapter from generic config.
func newHTTP(config map[string]string) (Adapter, error) {
	url := config["url"]
	if url == "" {
		return nil, fmt.Errorf("http adapter requires 'url' config")
	}

	valuePath := config["valuePath"]
	timestampPath := config["timestampPath"]
	if valuePath == "" || timestampPath == "" {
		return nil, fmt.Errorf("http adapter requires 'valuePath' and 'timestampPath' config")
	}

	method := config["method"]
	if method == "" {
		method = "GET"
	}

	timestampFormat := config["timestampFormat"]
	if timestampFormat == "" {
		timestampFormat = "rfc3339"
	}

	var headers map[string]string
	if headersJSON := config["headers"]; headersJSON != "" {
		if err := json.Unmarshal([]byte(headersJSON), &headers); err != nil {
			return nil, fmt.Errorf("invalid 'headers' JSON: %w", err)
		}
	}

	var templateVars map[string]string
	if varsJSON := config["templateVars"]; varsJSON != "" {
		if err := json.Unmarshal([]byte(varsJSON), &templateVars); err != nil {
			return nil, fmt.Errorf("invalid 'templateVars' JSON: %w", err)
		}
	}

	return &HTTPAdapter{
		URL:             url,
		Method:          method,
		Headers:         headers,
		Body:            config["body"],
		ValuePath:       valuePath,
		TimestampPath:   timestampPath,
		TimestampFormat: timestampFormat,
		Units:           config["units"],
		TemplateVars:    templateVars,
	}, nil
}

// newStatic creates an embedded-series adapter from generic config.
func newStatic(config map[string]string) (Adapter, error) {
	doc := config["document"]
	if doc == "" {
		return nil, fmt.Errorf("static adapter requires 'document' config")
	}

	valuePath := config["valuePath"]
	timestampPath := config["timestampPath"]
	if valuePath == "" || timestampPath == "" {
		return nil, fmt.Errorf("static adapter requires 'valuePath' and 'timestampPath' config")
	}

	return &StaticAdapter{
		Document:        doc,
		ValuePath:       valuePath,
		TimestampPath:   timestampPath,
		TimestampFormat: config["timestampFormat"],
		Units:           config["units"],
	}, nil
}
