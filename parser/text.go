package parser

import (
	"fmt"
	"os"
	"unicode/utf8"
)

// parsePassthrough reads path's bytes and interprets them as UTF-8,
// replacing invalid sequences rather than failing.
func parsePassthrough(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("parser: reading %s: %w", path, err)
	}
	return toValidUTF8(data), nil
}

// toValidUTF8 returns s decoded as UTF-8 with invalid byte sequences
// replaced by the Unicode replacement character, mirroring
// strings.ToValidUTF8 but operating directly on the source bytes.
func toValidUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b []byte
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			b = append(b, []byte(string(utf8.RuneError))...)
			data = data[1:]
			continue
		}
		b = append(b, data[:size]...)
		data = data[size:]
	}
	return string(b)
}
