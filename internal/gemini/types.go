package gemini

import (
	"context"
	"errors"
	"fmt"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultAPIVersion = "v1beta"
)

var (
	ErrMissingAPIKey = errors.New("gemini api key is not configured")
	ErrNoImage       = errors.New("no image data returned from the API")
	ErrEmptyResponse = errors.New("no text returned from the API")
)

// Schema is the subset of the OpenAPI schema Gemini accepts as a response schema.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

const (
	TypeObject = "OBJECT"
	TypeString = "STRING"
)

// APIError is returned when the service answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API %s: %s", e.Status, e.Body)
}

// Backend is implemented by Client and SDKClient.
type Backend interface {
	GenerateImage(ctx context.Context, model, prompt, aspectRatio string) (string, error)
	GenerateJSON(ctx context.Context, model, prompt string, schema *Schema) (string, error)
}

// NewBackend picks the transport: "sdk" uses the genai SDK, anything else the REST client.
func NewBackend(kind string, opts Options) Backend {
	if kind == "sdk" {
		return NewSDK(opts)
	}
	return New(opts)
}
