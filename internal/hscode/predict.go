package hscode

import (
	"context"
	"fmt"
	"strings"

	"github.com/aconic-ni/customsclass-r/internal/ai"
)

// Predictor asks a provider for the HS code of a product.
type Predictor struct {
	provider ai.Provider
}

// NewPredictor returns a Predictor backed by provider.
func NewPredictor(provider ai.Provider) *Predictor {
	return &Predictor{provider: provider}
}

// Predict returns the predicted code and its justification. A reply that does
// not decode into both fields, or whose code is not a plausible HS code, is an error.
func (p *Predictor) Predict(ctx context.Context, brand, description string) (PredictionResult, error) {
	if p == nil || p.provider == nil || !p.provider.Enabled() {
		return PredictionResult{}, ai.ErrDisabled
	}

	user, err := render(predictTemplate, promptInput{Brand: brand, Description: description})
	if err != nil {
		return PredictionResult{}, err
	}
	raw, err := p.provider.Generate(ctx, ai.Prompt{
		Name:   "predict_hs_code",
		System: predictSystem,
		User:   user,
		Schema: predictSchema,
	})
	if err != nil {
		return PredictionResult{}, fmt.Errorf("predict hs code: %w", err)
	}

	var result PredictionResult
	if err := ai.Decode(raw, predictSchema, &result); err != nil {
		return PredictionResult{}, fmt.Errorf("predict hs code: %w", err)
	}
	code, err := NormalizeCode(result.HSCode)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("predict hs code: %w", err)
	}
	result.HSCode = code
	result.Explanation = strings.TrimSpace(result.Explanation)
	return result, nil
}
