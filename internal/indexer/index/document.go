package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is one caller-supplied record: field name to field text. The
// document's reference lives in the field named by Config.Ref.
type Document map[string]string

// UnmarshalJSON accepts a flat JSON object whose values are strings, numbers,
// booleans or null. Numbers keep their literal spelling so numeric refs
// survive unchanged; null becomes an empty field.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("document must be a JSON object: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("document must be a JSON object, got null")
	}
	out := make(Document, len(raw))
	for field, value := range raw {
		text, err := scalarText(value)
		if err != nil {
			return fmt.Errorf("field %q: %w", field, err)
		}
		out[field] = text
	}
	*d = out
	return nil
}

func scalarText(value json.RawMessage) (string, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return "", nil
	}
	switch value[0] {
	case '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case 'n':
		return "", nil
	case '{', '[':
		return "", fmt.Errorf("nested values are not supported")
	default:
		var n json.Number
		if err := json.Unmarshal(value, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

// Ref returns the document's reference under cfg.
func (d Document) Ref(cfg Config) string {
	return d[cfg.Ref]
}
