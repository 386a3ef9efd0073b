package runner

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDecodeOutput(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{
			name: "utf-8 untouched",
			in:   []byte("  Node.js v20 installed ✓\r\n"),
			want: "  Node.js v20 installed ✓\r\n",
		},
		{
			name: "empty",
			in:   nil,
			want: "",
		},
		{
			name: "utf-16le with bom",
			in:   []byte{0xFF, 0xFE, 'o', 0, 'k', 0, '\r', 0, '\n', 0},
			want: "ok\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeOutput(tt.in))
		})
	}
}

func TestDecodeOutputLegacyCodePage(t *testing.T) {
	// "Espace disque insuffisant: réessayez" in windows-1252.
	in := []byte("Espace disque insuffisant: r\xe9essayez plus tard, le disque est plein.")

	got := decodeOutput(in)
	assert.Contains(t, got, "Espace disque insuffisant")
	assert.Contains(t, got, "essayez plus tard")
	assert.True(t, utf8.ValidString(got))
}
