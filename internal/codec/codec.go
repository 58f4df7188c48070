// Package codec provides strict and lossy decoders for the encodings the
// resolver tries.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Canonical encoding names.
const (
	UTF8        = "utf-8"
	UTF16LE     = "utf-16-le"
	UTF16BE     = "utf-16-be"
	Windows1250 = "windows-1250"
	ISO8859_2   = "iso-8859-2"
	ASCII       = "ascii"
	ISO8859_1   = "iso-8859-1"
	Windows1252 = "windows-1252"
	Windows1254 = "windows-1254"
	ISO8859_15  = "iso-8859-15"
)

// Byte order marks.
var (
	BOMUTF8    = []byte{0xEF, 0xBB, 0xBF}
	BOMUTF16LE = []byte{0xFF, 0xFE}
	BOMUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeError is a strict decoding failure.
type DecodeError struct {
	Encoding string
	Offset   int
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s at byte %d", e.Encoding, e.Reason, e.Offset)
}

// Codec decodes bytes under one encoding.
type Codec struct {
	Name   string
	strict func([]byte) (string, bool, error)
	lossy  func([]byte) (string, bool)
}

// Strict decodes data and fails on the first invalid byte sequence. The bool
// result reports whether a BOM was stripped.
func (c Codec) Strict(data []byte) (string, bool, error) {
	return c.strict(data)
}

// Lossy decodes data, substituting U+FFFD for invalid input.
func (c Codec) Lossy(data []byte) (string, bool) {
	return c.lossy(data)
}

// Canonical normalises an encoding label. Unknown labels are resolved through
// the WHATWG index; labels it does not know are returned lowercased.
func Canonical(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "_", "-")
	switch n {
	case "":
		return ""
	case "utf-8", "utf8", "utf-8-sig":
		return UTF8
	case "utf-16le", "utf-16-le", "utf16le":
		return UTF16LE
	case "utf-16be", "utf-16-be", "utf16be":
		return UTF16BE
	case "windows-1250", "cp1250", "x-cp1250":
		return Windows1250
	case "iso-8859-2", "iso8859-2", "latin2", "l2":
		return ISO8859_2
	case "ascii", "us-ascii":
		return ASCII
	case "iso-8859-1", "iso8859-1", "latin1", "l1":
		return ISO8859_1
	case "windows-1252", "cp1252":
		return Windows1252
	}
	enc, err := htmlindex.Get(n)
	if err != nil {
		return n
	}
	if canon, err := htmlindex.Name(enc); err == nil {
		return canon
	}
	return n
}

// Lookup returns the codec for an encoding label.
func Lookup(name string) (Codec, bool) {
	canon := Canonical(name)
	switch canon {
	case "":
		return Codec{}, false
	case UTF8:
		return Codec{Name: UTF8, strict: strictUTF8, lossy: lossyUTF8}, true
	case UTF16LE:
		return utf16Codec(UTF16LE, binary.LittleEndian, unicode.LittleEndian, BOMUTF16LE), true
	case UTF16BE:
		return utf16Codec(UTF16BE, binary.BigEndian, unicode.BigEndian, BOMUTF16BE), true
	case ASCII:
		return Codec{Name: ASCII, strict: strictASCII, lossy: lossyASCII}, true
	case Windows1250:
		return charmapCodec(Windows1250, charmap.Windows1250, true), true
	case Windows1252:
		return charmapCodec(Windows1252, charmap.Windows1252, true), true
	case ISO8859_2:
		return charmapCodec(ISO8859_2, charmap.ISO8859_2, false), true
	case ISO8859_1:
		return charmapCodec(ISO8859_1, charmap.ISO8859_1, false), true
	}
	enc, err := htmlindex.Get(canon)
	if err != nil {
		return Codec{}, false
	}
	if cm, ok := enc.(*charmap.Charmap); ok {
		return charmapCodec(canon, cm, strings.HasPrefix(canon, "windows-")), true
	}
	return genericCodec(canon, enc), true
}

// Charmap returns the single-byte table behind a legacy encoding label.
func Charmap(name string) (*charmap.Charmap, bool) {
	canon := Canonical(name)
	switch canon {
	case Windows1250:
		return charmap.Windows1250, true
	case ISO8859_2:
		return charmap.ISO8859_2, true
	case Windows1252:
		return charmap.Windows1252, true
	case ISO8859_1:
		return charmap.ISO8859_1, true
	case "", ASCII, UTF8, UTF16LE, UTF16BE:
		return nil, false
	}
	enc, err := htmlindex.Get(canon)
	if err != nil {
		return nil, false
	}
	cm, ok := enc.(*charmap.Charmap)
	return cm, ok
}

// HasBOM reports whether data starts with the given byte order mark.
func HasBOM(data, bom []byte) bool {
	return bytes.HasPrefix(data, bom)
}

func strictUTF8(data []byte) (string, bool, error) {
	body, bom := trimBOM(data, BOMUTF8)
	if !utf8.Valid(body) {
		return "", bom, &DecodeError{Encoding: UTF8, Offset: firstInvalidUTF8(body), Reason: "invalid byte sequence"}
	}
	return string(body), bom, nil
}

func lossyUTF8(data []byte) (string, bool) {
	body, bom := trimBOM(data, BOMUTF8)
	return strings.ToValidUTF8(string(body), string(utf8.RuneError)), bom
}

func firstInvalidUTF8(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(data)
}

func strictASCII(data []byte) (string, bool, error) {
	for i, b := range data {
		if b >= utf8.RuneSelf {
			return "", false, &DecodeError{Encoding: ASCII, Offset: i, Reason: fmt.Sprintf("byte 0x%02X out of range", b)}
		}
	}
	return string(data), false, nil
}

func lossyASCII(data []byte) (string, bool) {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= utf8.RuneSelf {
			b.WriteRune(utf8.RuneError)
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), false
}

// charmapCodec decodes a single-byte table. In the windows-125x tables the
// unassigned positions decode to C1 controls, so those count as invalid.
func charmapCodec(name string, cm *charmap.Charmap, c1Unassigned bool) Codec {
	undefined := func(r rune) bool {
		return r == utf8.RuneError || (c1Unassigned && r >= 0x80 && r <= 0x9F)
	}
	return Codec{
		Name: name,
		strict: func(data []byte) (string, bool, error) {
			var b strings.Builder
			b.Grow(len(data))
			for i, c := range data {
				r := cm.DecodeByte(c)
				if undefined(r) {
					return "", false, &DecodeError{Encoding: name, Offset: i, Reason: fmt.Sprintf("byte 0x%02X is unassigned", c)}
				}
				b.WriteRune(r)
			}
			return b.String(), false, nil
		},
		lossy: func(data []byte) (string, bool) {
			var b strings.Builder
			b.Grow(len(data))
			for _, c := range data {
				r := cm.DecodeByte(c)
				if undefined(r) {
					r = utf8.RuneError
				}
				b.WriteRune(r)
			}
			return b.String(), false
		},
	}
}

func utf16Codec(name string, order binary.ByteOrder, endian unicode.Endianness, bom []byte) Codec {
	dec := unicode.UTF16(endian, unicode.IgnoreBOM)
	return Codec{
		Name: name,
		strict: func(data []byte) (string, bool, error) {
			body, hasBOM := trimBOM(data, bom)
			if err := checkUTF16(name, body, order); err != nil {
				return "", hasBOM, err
			}
			out, err := dec.NewDecoder().Bytes(body)
			if err != nil {
				return "", hasBOM, &DecodeError{Encoding: name, Reason: err.Error()}
			}
			return string(out), hasBOM, nil
		},
		lossy: func(data []byte) (string, bool) {
			body, hasBOM := trimBOM(data, bom)
			tail := ""
			if len(body)%2 != 0 {
				body = body[:len(body)-1]
				tail = string(utf8.RuneError)
			}
			out, err := dec.NewDecoder().Bytes(body)
			if err != nil {
				return strings.Repeat(string(utf8.RuneError), len(body)/2) + tail, hasBOM
			}
			return string(out) + tail, hasBOM
		},
	}
}

func checkUTF16(name string, data []byte, order binary.ByteOrder) error {
	if len(data)%2 != 0 {
		return &DecodeError{Encoding: name, Offset: len(data) - 1, Reason: "truncated code unit"}
	}
	for i := 0; i < len(data); i += 2 {
		u := order.Uint16(data[i:])
		switch {
		case u >= 0xD800 && u <= 0xDBFF:
			if i+4 > len(data) {
				return &DecodeError{Encoding: name, Offset: i, Reason: "unpaired high surrogate"}
			}
			next := order.Uint16(data[i+2:])
			if next < 0xDC00 || next > 0xDFFF {
				return &DecodeError{Encoding: name, Offset: i, Reason: "unpaired high surrogate"}
			}
			i += 2
		case u >= 0xDC00 && u <= 0xDFFF:
			return &DecodeError{Encoding: name, Offset: i, Reason: "unpaired low surrogate"}
		}
	}
	return nil
}

// genericCodec wraps any other x/text encoding. Its decoders substitute
// U+FFFD for invalid input, so a replacement character in the output is
// treated as a strict failure.
func genericCodec(name string, enc encoding.Encoding) Codec {
	return Codec{
		Name: name,
		strict: func(data []byte) (string, bool, error) {
			out, err := enc.NewDecoder().Bytes(data)
			if err != nil {
				return "", false, &DecodeError{Encoding: name, Reason: err.Error()}
			}
			if i := bytes.IndexRune(out, utf8.RuneError); i >= 0 {
				return "", false, &DecodeError{Encoding: name, Offset: i, Reason: "invalid byte sequence"}
			}
			return string(out), false, nil
		},
		lossy: func(data []byte) (string, bool) {
			out, err := enc.NewDecoder().Bytes(data)
			if err != nil {
				return strings.ToValidUTF8(string(data), string(utf8.RuneError)), false
			}
			return string(out), false
		},
	}
}

func trimBOM(data, bom []byte) ([]byte, bool) {
	if bytes.HasPrefix(data, bom) {
		return data[len(bom):], true
	}
	return data, false
}
