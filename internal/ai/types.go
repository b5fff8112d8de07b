package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider produces a completion whose text is expected to be a JSON object
// matching the prompt's declared schema.
type Provider interface {
	Name() string
	Enabled() bool
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Prompt is a single-turn request to a provider.
type Prompt struct {
	Name   string
	System string
	User   string
	Schema Schema
}

// Schema declares the flat object of string fields a provider must reply with.
type Schema struct {
	Fields []Field
}

// Field is one required string key of a Schema.
type Field struct {
	Name        string
	Description string
}

var (
	ErrDisabled        = errors.New("ai provider disabled")
	ErrEmptyResponse   = errors.New("ai provider returned an empty response")
	ErrMalformedOutput = errors.New("ai output does not match the declared schema")
)

// Names returns the declared field names in order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Instructions renders the schema as a reply-format instruction for providers
// that cannot enforce a response schema natively.
func (s Schema) Instructions() string {
	if len(s.Fields) == 0 {
		return ""
	}
	builder := &strings.Builder{}
	builder.WriteString("Reply with a strict JSON object containing exactly these string keys:\n")
	for _, f := range s.Fields {
		fmt.Fprintf(builder, "- %s: %s\n", f.Name, f.Description)
	}
	builder.WriteString("Emit nothing outside the JSON object.")
	return builder.String()
}
