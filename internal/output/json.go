// Package output renders reports and comparisons as JSON, ANSI text or
// Markdown.
package output

import (
	"encoding/json"
	"io"
)

// RenderJSON writes v as indented JSON.
func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
