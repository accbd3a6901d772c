package emailcrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "User@Example.COM", "user@example.com"},
		{"trims whitespace", "  user@example.com  ", "user@example.com"},
		{"unwraps display name", "Jane Doe <Jane@Example.com>", "jane@example.com"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"no at sign", "not-an-email", ""},
		{"missing local part", "@example.com", ""},
		{"missing domain", "user@", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestHash(t *testing.T) {
	h := Hash("user@example.com")
	assert.Len(t, h, 64)
	assert.Equal(t, h, Hash("user@example.com"), "hash must be deterministic")
	assert.NotEqual(t, h, Hash("other@example.com"))
	assert.Empty(t, Hash(""))
}

func TestNormalizeAndHash(t *testing.T) {
	assert.Equal(t, Hash("user@example.com"), NormalizeAndHash("  USER@example.com "))
	assert.Empty(t, NormalizeAndHash("garbage"))
}
