package transport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeEmbeddedNewlines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean input unchanged", `{"jsonrpc":"2.0","id":1}`, `{"jsonrpc":"2.0","id":1}`},
		{"lone LF", "a\nb", `a\nb`},
		{"lone CR", "a\rb", `a\nb`},
		{"CRLF collapses to one escape", "a\r\nb", `a\nb`},
		{"multiple newlines", "a\nb\r\nc\rd", `a\nb\nc\nd`},
		{"trailing newline", "a\n", `a\n`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := escapeEmbeddedNewlines([]byte(tt.in))
			assert.Equal(t, tt.want, string(got))
			assert.NotContains(t, string(got), "\n")
			assert.NotContains(t, string(got), "\r")
		})
	}
}

func TestEscapeEmbeddedNewlinesNoCopyWhenClean(t *testing.T) {
	in := []byte(`{"jsonrpc":"2.0"}`)
	out := escapeEmbeddedNewlines(in)
	assert.True(t, bytes.Equal(in, out))
	assert.Equal(t, &in[0], &out[0], "clean input should not be copied")
}
