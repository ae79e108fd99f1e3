package configcheck

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsafe(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"string", "hello", false},
		{"invalid utf8 string", "he\xffllo", true},
		{"int", 42, false},
		{"int64", int64(-1 << 62), false},
		{"uint64 in range", uint64(1 << 40), false},
		{"uint64 max", uint64(math.MaxUint64), true},
		{"float", 3.14, false},
		{"nan", math.NaN(), true},
		{"positive inf", math.Inf(1), true},
		{"negative inf", math.Inf(-1), true},
		{"bool", true, true},
		{"nil", nil, true},
		{"flat map", map[string]any{"a": 1, "b": "two"}, false},
		{"map with unsafe value", map[string]any{"a": math.NaN()}, true},
		{"map with unsafe key", map[any]any{math.Inf(1): "x"}, true},
		{"nested map", map[string]any{"a": map[string]any{"b": []any{1, "x", 2.5}}}, false},
		{"deeply nested unsafe", map[string]any{"a": []any{map[string]any{"b": math.NaN()}}}, true},
		{"slice", []any{1, "two", 3.0}, false},
		{"slice with bool", []any{1, true}, true},
		{"struct", struct{ X int }{1}, true},
		{"channel", make(chan int), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unsafe(tt.v))
		})
	}
}

func TestUnsafeYAML(t *testing.T) {
	unsafe, err := UnsafeYAML([]byte("prefix: '!'\nplugins:\n  - alias\n  - trivia\nweights:\n  alias: 1.5\n"))
	require.NoError(t, err)
	assert.False(t, unsafe)

	// Booleans are outside the strict schema.
	unsafe, err = UnsafeYAML([]byte("enabled: true\n"))
	require.NoError(t, err)
	assert.True(t, unsafe)

	// .nan decodes to a float NaN.
	unsafe, err = UnsafeYAML([]byte("weight: .nan\n"))
	require.NoError(t, err)
	assert.True(t, unsafe)
}

func TestUnsafeYAMLDecodeError(t *testing.T) {
	unsafe, err := UnsafeYAML([]byte("a: [unclosed"))
	assert.Error(t, err)
	assert.True(t, unsafe)
}
