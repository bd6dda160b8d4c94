package textio

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrDecode is returned when data is valid in neither the primary (UTF-8)
// nor the fallback encoding.
var ErrDecode = errors.New("decode failed")

// DefaultFallback is the legacy single-byte encoding tried after UTF-8.
const DefaultFallback = "windows-1251"

// utf8BOM is stripped from the start of UTF-8 input.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// fallbacks lists the supported single-byte legacy encodings by name.
var fallbacks = map[string]*charmap.Charmap{
	"windows-1250": charmap.Windows1250,
	"windows-1251": charmap.Windows1251,
	"iso-8859-2":   charmap.ISO8859_2,
	"iso-8859-5":   charmap.ISO8859_5,
	"koi8-r":       charmap.KOI8R,
}

// Encoding identifies which encoding successfully decoded a file.
type Encoding string

const (
	EncodingUTF8 Encoding = "utf-8"
)

// Fallback resolves a fallback encoding by name (case-insensitive).
func Fallback(name string) (*charmap.Charmap, error) {
	cm, ok := fallbacks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown fallback encoding %q: must be one of %v", name, FallbackNames())
	}
	return cm, nil
}

// FallbackNames returns the supported fallback encoding names, sorted.
func FallbackNames() []string {
	names := make([]string, 0, len(fallbacks))
	for name := range fallbacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode converts raw file contents to a string.
//
// UTF-8 is attempted first. When the data is not valid UTF-8 it is decoded
// with the named fallback charmap; a byte the charmap does not define makes
// the whole decode fail with ErrDecode.
func Decode(data []byte, fallback string) (string, Encoding, error) {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM)), EncodingUTF8, nil
	}

	cm, err := Fallback(fallback)
	if err != nil {
		return "", "", err
	}
	decoded, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrDecode, fallback, err)
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", "", fmt.Errorf("%w: not valid utf-8 or %s", ErrDecode, fallback)
	}
	return string(decoded), Encoding(strings.ToLower(fallback)), nil
}

// SplitLines splits text at every line boundary: \n, \r\n, \r, \v, \f,
// \x1c, \x1d, \x1e, U+0085, U+2028 and U+2029. A trailing boundary does not
// produce an empty final line, and empty text yields no lines.
func SplitLines(text string) []string {
	var lines []string
	start := 0
	for i, r := range text {
		if !isLineBoundary(r) {
			continue
		}
		if r == '\n' && i > 0 && text[i-1] == '\r' {
			// Second half of \r\n, already split at the \r.
			start = i + 1
			continue
		}
		lines = append(lines, text[start:i])
		start = i + utf8.RuneLen(r)
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

func isLineBoundary(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
