// Package format serialises decoded text into the supported target
// representations.
package format

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/verte-zerg/txtconv/internal/codec"
)

// TargetFormat identifies an output representation.
type TargetFormat string

const (
	UTF8      TargetFormat = "UTF8"
	UTF8WBOM  TargetFormat = "UTF8WBOM" // alias of UTF8, no BOM
	UTF8BOM   TargetFormat = "UTF8BOM"
	ANSI      TargetFormat = "ANSI"
	ISO8859_2 TargetFormat = "ISO8859_2"
	UTF16LE   TargetFormat = "UTF16LE"
	UTF16BE   TargetFormat = "UTF16BE"
)

// Recipe is the byte-level meaning of a target format.
type Recipe struct {
	Charset string
	BOM     []byte
	Order   binary.ByteOrder // nil for byte-oriented charsets
}

var recipes = map[TargetFormat]Recipe{
	UTF8:      {Charset: codec.UTF8},
	UTF8WBOM:  {Charset: codec.UTF8},
	UTF8BOM:   {Charset: codec.UTF8, BOM: codec.BOMUTF8},
	ANSI:      {Charset: codec.Windows1250},
	ISO8859_2: {Charset: codec.ISO8859_2},
	UTF16LE:   {Charset: "utf-16", BOM: codec.BOMUTF16LE, Order: binary.LittleEndian},
	UTF16BE:   {Charset: "utf-16", BOM: codec.BOMUTF16BE, Order: binary.BigEndian},
}

var order = []TargetFormat{UTF8, UTF8WBOM, UTF8BOM, ANSI, ISO8859_2, UTF16LE, UTF16BE}

// UnsupportedFormatError is returned for identifiers outside the fixed set.
type UnsupportedFormatError struct {
	Name string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("invalid format %q (supported: %s)", e.Name, strings.Join(Names(), ", "))
}

// IsUnsupportedFormat reports whether err is an UnsupportedFormatError.
func IsUnsupportedFormat(err error) bool {
	var e *UnsupportedFormatError
	return errors.As(err, &e)
}

// UnsupportedCharacterError is returned when a legacy target cannot represent
// a character of the text.
type UnsupportedCharacterError struct {
	Format   TargetFormat
	Char     rune
	Position int // rune index in the text
}

func (e *UnsupportedCharacterError) Error() string {
	return fmt.Sprintf("character %q (U+%04X) at position %d cannot be encoded as %s", e.Char, e.Char, e.Position, e.Format)
}

// IsUnsupportedCharacter reports whether err is an UnsupportedCharacterError.
func IsUnsupportedCharacter(err error) bool {
	var e *UnsupportedCharacterError
	return errors.As(err, &e)
}

// Parse resolves a case-insensitive format identifier.
func Parse(name string) (TargetFormat, error) {
	f := TargetFormat(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := recipes[f]; !ok {
		return "", &UnsupportedFormatError{Name: name}
	}
	return f, nil
}

// All returns every format in canonical order.
func All() []TargetFormat {
	return append([]TargetFormat(nil), order...)
}

// Names returns every identifier in canonical order.
func Names() []string {
	out := make([]string, len(order))
	for i, f := range order {
		out[i] = string(f)
	}
	return out
}

// Valid reports whether f is in the fixed set.
func (f TargetFormat) Valid() bool {
	_, ok := recipes[f]
	return ok
}

// Recipe returns the serialisation recipe for f.
func (f TargetFormat) Recipe() Recipe {
	return recipes[f]
}

// Serialize encodes text for the target format.
func Serialize(text string, f TargetFormat) ([]byte, error) {
	r, ok := recipes[f]
	if !ok {
		return nil, &UnsupportedFormatError{Name: string(f)}
	}
	switch r.Charset {
	case codec.UTF8:
		out := make([]byte, 0, len(r.BOM)+len(text))
		out = append(out, r.BOM...)
		return append(out, text...), nil
	case codec.Windows1250:
		return encodeCharmap(text, f, charmap.Windows1250)
	case codec.ISO8859_2:
		return encodeCharmap(text, f, charmap.ISO8859_2)
	}
	endian := unicode.LittleEndian
	if r.Order == binary.BigEndian {
		endian = unicode.BigEndian
	}
	out, err := unicode.UTF16(endian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", f, err)
	}
	return append(append([]byte(nil), r.BOM...), out...), nil
}

func encodeCharmap(text string, f TargetFormat, cm *charmap.Charmap) ([]byte, error) {
	out := make([]byte, 0, len(text))
	pos := 0
	for _, r := range text {
		b, ok := cm.EncodeRune(r)
		if !ok || r == utf8.RuneError {
			return nil, &UnsupportedCharacterError{Format: f, Char: r, Position: pos}
		}
		out = append(out, b)
		pos++
	}
	return out, nil
}

// Decode is the strict inverse of Serialize: it strips the format's BOM and
// decodes with the matching codec.
func Decode(data []byte, f TargetFormat) (string, error) {
	r, ok := recipes[f]
	if !ok {
		return "", &UnsupportedFormatError{Name: string(f)}
	}
	if len(r.BOM) > 0 {
		if !bytes.HasPrefix(data, r.BOM) {
			return "", fmt.Errorf("%s data is missing its byte order mark", f)
		}
		data = data[len(r.BOM):]
	}
	name := r.Charset
	if r.Order != nil {
		name = codec.UTF16LE
		if r.Order == binary.BigEndian {
			name = codec.UTF16BE
		}
	}
	c, ok := codec.Lookup(name)
	if !ok {
		return "", fmt.Errorf("no codec for %s", name)
	}
	text, _, err := c.Strict(data)
	return text, err
}
