package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"chargestation-converter/models"
)

// MarshalStations encodes stations as an indented JSON array. Items are
// separated by "," and keys by ":" with no trailing space, each nesting
// level indented by indent spaces. With escapeNonASCII every non-ASCII rune
// inside strings is written as a \uXXXX escape.
func MarshalStations(stations []*models.Station, indent int, escapeNonASCII bool) ([]byte, error) {
	if stations == nil {
		stations = []*models.Station{}
	}

	var compact bytes.Buffer
	enc := json.NewEncoder(&compact)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(stations); err != nil {
		return nil, fmt.Errorf("json: encode stations: %w", err)
	}

	var out bytes.Buffer
	out.Grow(compact.Len() * 2)
	reindent(&out, bytes.TrimRight(compact.Bytes(), "\n"), strings.Repeat(" ", indent), escapeNonASCII)
	return out.Bytes(), nil
}

// reindent lays out compact JSON from src into dst. Empty objects and
// arrays stay on one line.
func reindent(dst *bytes.Buffer, src []byte, indent string, escapeNonASCII bool) {
	depth := 0
	pendingOpen := false
	inString := false
	escaped := false

	newline := func() {
		dst.WriteByte('\n')
		for i := 0; i < depth; i++ {
			dst.WriteString(indent)
		}
	}

	for i := 0; i < len(src); {
		c := src[i]

		if inString {
			if escapeNonASCII && c >= utf8.RuneSelf {
				r, size := utf8.DecodeRune(src[i:])
				writeUnicodeEscape(dst, r)
				i += size
				continue
			}
			dst.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			i++
			continue
		}

		if pendingOpen && c != '}' && c != ']' {
			pendingOpen = false
			depth++
			newline()
		}

		switch c {
		case '"':
			inString = true
			dst.WriteByte(c)
		case '{', '[':
			pendingOpen = true
			dst.WriteByte(c)
		case ',':
			dst.WriteByte(c)
			newline()
		case '}', ']':
			if pendingOpen {
				pendingOpen = false
			} else {
				depth--
				newline()
			}
			dst.WriteByte(c)
		default:
			dst.WriteByte(c)
		}
		i++
	}
}

func writeUnicodeEscape(dst *bytes.Buffer, r rune) {
	if r > 0xFFFF {
		hi, lo := utf16.EncodeRune(r)
		fmt.Fprintf(dst, `\u%04x\u%04x`, hi, lo)
		return
	}
	fmt.Fprintf(dst, `\u%04x`, r)
}
