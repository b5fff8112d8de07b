package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Export serializes items as an indented JSON array. A nil slice exports as [].
func Export(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export history: %w", err)
	}
	return payload, nil
}

// ParseExport reads a document produced by Export.
func ParseExport(data []byte) ([]Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var items []Item
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("parse history export: %w", err)
	}
	return items, nil
}

// ExportFilename names the download for an export taken at now.
func ExportFilename(now time.Time) string {
	stamp := strings.ReplaceAll(now.UTC().Format(time.RFC3339), ":", "-")
	return fmt.Sprintf("customsclass-r_history_%s.json", stamp)
}
