package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRoundTrip(t *testing.T) {
	items := []Item{
		{
			ID:          "7b0f6a5e-2f7c-4d0a-9d8e-1f2a3b4c5d6e",
			Brand:       "QuantumLeap",
			Description: "A retro-futuristic chronometer with a brass casing and Nixie tube display.",
			Result:      sampleResult("9102.12"),
			UserID:      "u1",
			Timestamp:   time.Date(2024, 5, 1, 12, 30, 15, 123456789, time.UTC),
		},
		{
			ID:          "second",
			Description: "Unbranded cotton t-shirt, knitted",
			Result:      sampleResult("6109.10"),
			UserID:      "u1",
			Timestamp:   time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC),
		},
	}

	payload, err := Export(items)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"hsCode": "9102.12"`)

	parsed, err := ParseExport(payload)
	require.NoError(t, err)
	assert.Equal(t, items, parsed)
}

func TestExportEmpty(t *testing.T) {
	payload, err := Export(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(payload))

	parsed, err := ParseExport(payload)
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

func TestParseExportRejectsForeignDocuments(t *testing.T) {
	_, err := ParseExport([]byte(`{"not":"an array"}`))
	assert.Error(t, err)
	_, err = ParseExport([]byte(`[{"id":"x","surprise":true}]`))
	assert.Error(t, err)
}

func TestExportFilename(t *testing.T) {
	name := ExportFilename(time.Date(2024, 5, 1, 12, 30, 15, 0, time.UTC))
	assert.Equal(t, "customsclass-r_history_2024-05-01T12-30-15Z.json", name)
}
