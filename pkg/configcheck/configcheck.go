// Package configcheck validates plugin-supplied configuration values before
// the host persists them. The strict backend only accepts a small set of
// shapes; anything outside it is flagged as unsafe rather than stored.
package configcheck

import (
	"fmt"
	"math"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Unsafe reports whether v cannot be stored on a strict config backend.
// Safe shapes are maps, slices, strings, integers and finite floats, checked
// recursively. Strings must be valid UTF-8. Booleans, nils and everything
// else are not part of the strict schema.
func Unsafe(v any) bool {
	switch val := v.(type) {
	case string:
		return !utf8.ValidString(val)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return false
	case uint64:
		// The backend stores integers as signed-magnitude 64-bit words and
		// cannot represent the full uint64 range.
		return val >= math.MaxUint64
	case float32:
		return unsafeFloat(float64(val))
	case float64:
		return unsafeFloat(val)
	case map[string]any:
		for k, item := range val {
			if Unsafe(k) || Unsafe(item) {
				return true
			}
		}
		return false
	case map[any]any:
		for k, item := range val {
			if Unsafe(k) || Unsafe(item) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range val {
			if Unsafe(item) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func unsafeFloat(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

// UnsafeYAML decodes a YAML document and runs Unsafe on the result. Documents
// that fail to decode are reported unsafe along with the decode error.
func UnsafeYAML(doc []byte) (bool, error) {
	var v any
	if err := yaml.Unmarshal(doc, &v); err != nil {
		return true, fmt.Errorf("failed to decode document: %w", err)
	}
	return Unsafe(v), nil
}
