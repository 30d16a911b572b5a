package models

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// CanonicalJSON encodes v with object keys sorted at every depth. Ledger values are
// stored in this form so every reader sees the same bytes for the same document.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal")
	}

	// Round-tripping through map[string]any sorts keys; UseNumber keeps numbers exact.
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, errors.Wrap(err, "normalize")
	}

	out, err := json.Marshal(generic)
	if err != nil {
		return nil, errors.Wrap(err, "marshal normalized")
	}
	return out, nil
}
