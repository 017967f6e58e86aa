package indexdup

import (
	"encoding/json"
	"fmt"
	"io"
)

// Export writes the result as indented JSON.
func (r *Result) Export(w io.Writer) error {
	var enc = json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("Result error encoding json, err: %w", err)
	}
	return nil
}
