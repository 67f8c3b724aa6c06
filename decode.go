package main

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeReader wraps an input stream so the rest of the pipeline only
// ever sees UTF-8. DB2 installations commonly dump in the instance
// codepage rather than UTF-8.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch normalizeEncoding(encoding) {
	case "", "utf8":
		return r, nil
	case "latin1", "iso88591":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "iso885915":
		return transform.NewReader(r, charmap.ISO8859_15.NewDecoder()), nil
	case "windows1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "utf16", "utf16le":
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(r, dec), nil
	case "utf16be":
		dec := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(r, dec), nil
	default:
		return nil, fmt.Errorf("unsupported input encoding %q", encoding)
	}
}

// normalizeEncoding reduces an encoding label to a comparable key:
// "ISO-8859-1", "iso_8859_1" and "iso88591" are all the same thing.
func normalizeEncoding(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(name)
}
