package storage

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LookupEncoding resolves an IANA charset name such as "utf-8" or
// "windows-1252".
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("encoding: %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding: %q is not supported", name)
	}
	return enc, nil
}

// decodingReader converts r from enc to UTF-8. A leading UTF-8 BOM is
// dropped regardless of enc.
func decodingReader(r io.Reader, enc encoding.Encoding) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder()))
}

// encodingWriter converts UTF-8 written to it into enc. Runes enc cannot
// represent fail the write. Close flushes but does not close w.
func encodingWriter(w io.Writer, enc encoding.Encoding) io.WriteCloser {
	if enc == unicode.UTF8 {
		return nopCloser{w}
	}
	return transform.NewWriter(w, enc.NewEncoder())
}

// crlfNormalizer rewrites a lone "\r" to "\n" so that old Mac line endings
// split lines like "\n" and "\r\n" do.
type crlfNormalizer struct {
	transform.NopResetter
}

func (crlfNormalizer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]
		if c == '\r' {
			if nSrc+1 == len(src) && !atEOF {
				return nDst, nSrc, transform.ErrShortSrc
			}
			if nSrc+1 == len(src) || src[nSrc+1] != '\n' {
				c = '\n'
			}
		}
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = c
		nDst++
		nSrc++
	}
	return nDst, nSrc, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
