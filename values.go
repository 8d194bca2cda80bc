package mailmerge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record values are kept in the kinds a JSON round trip reproduces: string,
// bool, nil, int64 for integral numbers, float64 for the rest, and
// []any / map[string]any of those. Sources normalise into these kinds and
// stored records decode back into them, so templates see the same kinds
// at generate and rerender time.

// NormalizeRecord converts every value of raw into its canonical kind.
func NormalizeRecord(raw RawRecord) (RawRecord, error) {
	out := make(RawRecord, len(raw))
	for k, v := range raw {
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// NormalizeValue converts v into its canonical kind. Values of other types
// are converted through their JSON encoding.
func NormalizeValue(v any) (any, error) {
	switch v := v.(type) {
	case nil, string, bool, int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		return canonicalFloat(v), nil
	case json.Number:
		return CanonicalNumber(v), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported value %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}
	return CanonicalJSON(decoded), nil
}

// CanonicalJSON rewrites json.Number values, at any depth of a value decoded
// with UseNumber, into int64 or float64.
func CanonicalJSON(v any) any {
	switch v := v.(type) {
	case json.Number:
		return CanonicalNumber(v)
	case map[string]any:
		for k, item := range v {
			v[k] = CanonicalJSON(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = CanonicalJSON(item)
		}
		return v
	default:
		return v
	}
}

// CanonicalNumber returns n as int64 when it is an integer literal in range,
// and as float64 otherwise.
func CanonicalNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// canonicalFloat returns the kind f decodes to after encoding/json writes
// it: integral values in range become int64.
func canonicalFloat(f float64) any {
	n, err := json.Marshal(f)
	if err != nil {
		return f
	}
	return CanonicalNumber(json.Number(n))
}
