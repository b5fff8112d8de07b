package hscode

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/aconic-ni/customsclass-r/internal/ai"
)

const predictSystem = `You are an assistant specialised in predicting the Harmonized System (HS) code of products from their brand and description.
Given the brand and product description, predict the most appropriate HS code classification and give a brief explanation that justifies the prediction.`

const explainSystem = `You are an assistant specialised in explaining HS code classifications in a retro style.
Given the product information and the predicted HS code, write a brief explanation that justifies the classification. It must be easy to understand and have a slightly retro, old-fashioned tone, as if printed in an old mail-order catalogue.`

var (
	predictTemplate = template.Must(template.New("predict").Parse(
		`Brand: {{.Brand}}
Description: {{.Description}}`))

	explainTemplate = template.Must(template.New("explain").Parse(
		`Brand: {{if .Brand}}{{.Brand}}{{else}}not specified{{end}}
Product description: {{.Description}}
HS code: {{.HSCode}}`))
)

var predictSchema = ai.Schema{Fields: []ai.Field{
	{Name: "hsCode", Description: "The predicted HS code classification for the product."},
	{Name: "explanation", Description: "A brief explanation justifying the predicted classification."},
}}

var explainSchema = ai.Schema{Fields: []ai.Field{
	{Name: "explanation", Description: "A brief, retro-styled explanation justifying the HS code classification."},
}}

type promptInput struct {
	Brand       string
	Description string
	HSCode      string
}

func render(tmpl *template.Template, input promptInput) (string, error) {
	builder := &strings.Builder{}
	if err := tmpl.Execute(builder, input); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return builder.String(), nil
}
