// Package hscode predicts Harmonized System codes for product descriptions and
// explains the classification, delegating the text generation to an ai.Provider.
package hscode

// PredictionResult is the predicted code with the model's own justification.
type PredictionResult struct {
	HSCode      string `json:"hsCode"`
	Explanation string `json:"explanation"`
}

// ExplanationResult is the separately generated, catalogue-style explanation.
type ExplanationResult struct {
	Explanation string `json:"explanation"`
}

// ResultData aggregates one prediction and its explanation.
type ResultData struct {
	Prediction  PredictionResult  `json:"prediction"`
	Explanation ExplanationResult `json:"explanation"`
}
