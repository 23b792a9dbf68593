// Package encoding provides text utilities for object names coming out of
// scene files: legacy 8-bit decoding and the lower-cased tags used in file names.
package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
)

// lower is not safe for concurrent use; build a caser per call. Final sigma
// handling is off so each letter maps on its own, independent of position.
func lower() cases.Caser {
	return cases.Lower(language.Und, cases.HandleFinalSigma(false))
}

// Latin1ToUTF8 converts ISO-8859-1 encoded bytes to a UTF-8 string.
// Returns the original bytes as a string if conversion fails.
func Latin1ToUTF8(data []byte) string {
	result, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// DecodeName returns data as UTF-8, treating it as Latin-1 when it is not
// already valid UTF-8. Older editors wrote object names in 8-bit code pages.
func DecodeName(data []byte) string {
	data = TrimNullBytes(data)
	if utf8.Valid(data) {
		return string(data)
	}
	return Latin1ToUTF8(data)
}

// LowerName lower-cases an object name for use in generated file names.
func LowerName(name string) string {
	return lower().String(name)
}

// FileTag joins a base name and the lower-cased object name: "<base>-<name>".
func FileTag(base, name string) string {
	return base + "-" + LowerName(name)
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}
