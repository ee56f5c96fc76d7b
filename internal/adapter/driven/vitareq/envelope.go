package vitareq

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// envelopeKeys are the wrapper fields that may hold the record array, in
// priority order.
var envelopeKeys = []string{"requirements", "items", "data"}

// NormalizeEnvelope flattens every response shape the requirements API is
// known to return into a list of raw records. Shapes are tried in order:
//
//  1. a bare JSON array
//  2. an object whose "requirements" field is an array
//  3. an object whose "items" field is an array
//  4. an object whose "data" field is an array
//  5. any other non-empty object, taken as a single record
//
// null and {} yield an empty list. Scalars are an error.
func NormalizeEnvelope(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []json.RawMessage{}, nil
	}

	switch trimmed[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode record array: %w", err)
		}
		return compact(list), nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, fmt.Errorf("decode record object: %w", err)
		}
		for _, key := range envelopeKeys {
			raw, ok := fields[key]
			if !ok || !isArray(raw) {
				continue
			}
			var list []json.RawMessage
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, fmt.Errorf("decode %q array: %w", key, err)
			}
			return compact(list), nil
		}
		if len(fields) == 0 {
			return []json.RawMessage{}, nil
		}
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	default:
		return nil, fmt.Errorf("unsupported response shape starting with %q", trimmed[0])
	}
}

// FirstRecord returns the first record of a normalized envelope, or nil when
// there is none.
func FirstRecord(body []byte) (json.RawMessage, error) {
	records, err := NormalizeEnvelope(body)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// ExtractRequirementNumber finds the first requirementNumber in a response
// body. After the normalized shapes it falls back to a shallow search over the
// top-level values: the first element of each array, then each nested object.
func ExtractRequirementNumber(body []byte) (string, bool) {
	records, err := NormalizeEnvelope(body)
	if err == nil && len(records) > 0 {
		if n, ok := requirementNumberOf(records[0]); ok {
			return n, true
		}
	}

	values, err := objectValues(body)
	if err != nil {
		return "", false
	}
	for _, raw := range values {
		candidate := raw
		if isArray(raw) {
			var list []json.RawMessage
			if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
				continue
			}
			candidate = list[0]
		}
		if n, ok := requirementNumberOf(candidate); ok {
			return n, true
		}
	}
	return "", false
}

func requirementNumberOf(raw json.RawMessage) (string, bool) {
	var probe struct {
		RequirementNumber *flexString `json:"requirementNumber"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.RequirementNumber == nil {
		return "", false
	}
	return string(*probe.RequirementNumber), true
}

// objectValues returns the values of a JSON object in document order.
func objectValues(body []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("not an object")
	}

	var values []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		values = append(values, raw)
	}
	return values, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// compact drops null entries so callers never decode a record from "null".
func compact(list []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(list))
	for _, raw := range list {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		out = append(out, raw)
	}
	return out
}
