package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"  Ana.Perez@Example.com ", "ana.perez@example.com", true},
		{"", "", false},
		{"not-an-email", "", false},
		{"Ana <ana@example.com>", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGreetingName(t *testing.T) {
	assert.Equal(t, "Ana", GreetingName("Ana María Pérez", "x@example.com"))
	assert.Equal(t, "Juan", GreetingName("  ", "juan.lopez@example.com"))
	assert.Equal(t, "participante", GreetingName("", "@example.com"))
}
