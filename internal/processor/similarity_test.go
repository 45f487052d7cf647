package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "사이다", "사이다", 1},
		{"both empty", "", "", 1},
		{"single char differs", "a", "b", 0},
		{"one side too short", "a", "ab", 0},
		{"alias inside longer name", "사이다", "칠성사이다", 2.0 / 3.0},
		{"whitespace ignored", "coca cola", "cocacola", 1},
		{"no shared bigrams", "abc", "xyz", 0},
		{"repeated bigrams counted once per occurrence", "aaaa", "aa", 0.5},
		{"classic example", "healed", "sealed", 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilaritySymmetricAndBounded(t *testing.T) {
	pairs := [][2]string{
		{"펩시콜라", "콜라"},
		{"night", "nacht"},
		{"새우깡", "감자깡"},
		{"abcabc", "abc"},
	}
	for _, p := range pairs {
		s1 := Similarity(p[0], p[1])
		s2 := Similarity(p[1], p[0])
		assert.InDelta(t, s1, s2, 1e-9)
		assert.GreaterOrEqual(t, s1, 0.0)
		assert.LessOrEqual(t, s1, 1.0)
	}
}
