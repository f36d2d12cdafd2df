package model

import (
	"encoding/json"
	"fmt"
)

// Endpoint documents a single route of the pizza service.
type Endpoint struct {
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	RequiresAuth bool            `json:"requiresAuth,omitempty"`
	Description  string          `json:"description"`
	Example      string          `json:"example"`
	Response     json.RawMessage `json:"response"`
}

// Heading returns the "[METHOD] path" label used in the docs view.
func (e Endpoint) Heading() string {
	return fmt.Sprintf("[%s] %s", e.Method, e.Path)
}

// PrettyResponse returns the example response indented for display.
func (e Endpoint) PrettyResponse() string {
	if len(e.Response) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(e.Response, &v); err != nil {
		return string(e.Response)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(e.Response)
	}
	return string(out)
}

// APIDocs is the self-description published by the pizza service.
type APIDocs struct {
	Version   string     `json:"version"`
	Endpoints []Endpoint `json:"endpoints"`
}
