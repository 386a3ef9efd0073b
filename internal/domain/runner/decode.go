package runner

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// decodeOutput returns child output as UTF-8. Windows PowerShell writes
// redirected output in the console code page or as UTF-16, so anything that
// is not already valid UTF-8 is detected and converted. Valid UTF-8 is
// returned byte for byte.
func decodeOutput(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	label, b := detectCharset(b)
	r, err := charset.NewReaderLabel(label, bytes.NewReader(b))
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	out, err := io.ReadAll(r)
	if err != nil || !utf8.Valid(out) {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// detectCharset returns the encoding label and the payload without any
// byte order mark.
func detectCharset(b []byte) (string, []byte) {
	switch {
	case bytes.HasPrefix(b, []byte{0xFF, 0xFE}):
		return "utf-16le", b[2:]
	case bytes.HasPrefix(b, []byte{0xFE, 0xFF}):
		return "utf-16be", b[2:]
	}
	result, err := chardet.NewTextDetector().DetectBest(b)
	if err != nil || result == nil {
		return "windows-1252", b
	}
	return strings.ToLower(result.Charset), b
}
