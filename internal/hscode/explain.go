package hscode

import (
	"context"
	"fmt"
	"strings"

	"github.com/aconic-ni/customsclass-r/internal/ai"
)

// Explainer asks a provider for a catalogue-style justification of a code.
type Explainer struct {
	provider ai.Provider
}

// NewExplainer returns an Explainer backed by provider.
func NewExplainer(provider ai.Provider) *Explainer {
	return &Explainer{provider: provider}
}

// Explain justifies code for the product. An empty brand is sent as "not specified".
func (e *Explainer) Explain(ctx context.Context, brand, description, code string) (ExplanationResult, error) {
	if e == nil || e.provider == nil || !e.provider.Enabled() {
		return ExplanationResult{}, ai.ErrDisabled
	}

	user, err := render(explainTemplate, promptInput{Brand: brand, Description: description, HSCode: code})
	if err != nil {
		return ExplanationResult{}, err
	}
	raw, err := e.provider.Generate(ctx, ai.Prompt{
		Name:   "explain_hs_code",
		System: explainSystem,
		User:   user,
		Schema: explainSchema,
	})
	if err != nil {
		return ExplanationResult{}, fmt.Errorf("explain hs code: %w", err)
	}

	var result ExplanationResult
	if err := ai.Decode(raw, explainSchema, &result); err != nil {
		return ExplanationResult{}, fmt.Errorf("explain hs code: %w", err)
	}
	result.Explanation = strings.TrimSpace(result.Explanation)
	return result, nil
}
