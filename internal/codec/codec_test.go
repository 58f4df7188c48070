package codec

import (
	"errors"
	"testing"
)

func TestCanonical(t *testing.T) {
	cases := map[string]string{
		"UTF-8":        UTF8,
		"utf-8-sig":    UTF8,
		"UTF-16LE":     UTF16LE,
		"cp1250":       Windows1250,
		"Windows-1250": Windows1250,
		"ISO8859_2":    ISO8859_2,
		"ISO-8859-2":   ISO8859_2,
		"US-ASCII":     ASCII,
		"ISO-8859-1":   ISO8859_1,
		"":             "",
	}
	for in, want := range cases {
		if got := Canonical(in); got != want {
			t.Fatalf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWindows1250RejectsUnassignedBytes(t *testing.T) {
	c, ok := Lookup(Windows1250)
	if !ok {
		t.Fatalf("expected windows-1250 codec")
	}
	if _, _, err := c.Strict([]byte{0x61, 0x81}); err == nil {
		t.Fatalf("expected strict failure on 0x81")
	} else {
		var de *DecodeError
		if !errors.As(err, &de) || de.Offset != 1 {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	text, _, err := c.Strict([]byte{0xB9, 0x9C})
	if err != nil {
		t.Fatalf("strict decode: %v", err)
	}
	if text != "ąś" {
		t.Fatalf("unexpected text %q", text)
	}
	lossy, _ := c.Lossy([]byte{0x61, 0x81})
	if lossy != "a�" {
		t.Fatalf("unexpected lossy text %q", lossy)
	}
}

func TestISO8859_2DecodesEveryByte(t *testing.T) {
	c, _ := Lookup(ISO8859_2)
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	if _, _, err := c.Strict(all); err != nil {
		t.Fatalf("iso-8859-2 should accept every byte: %v", err)
	}
	text, _, _ := c.Strict([]byte{0xB1, 0xB6})
	if text != "ąś" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestUTF8StripsBOM(t *testing.T) {
	c, _ := Lookup(UTF8)
	text, bom, err := c.Strict([]byte{0xEF, 0xBB, 0xBF, 'h', 'i'})
	if err != nil {
		t.Fatalf("strict decode: %v", err)
	}
	if !bom || text != "hi" {
		t.Fatalf("unexpected result %q bom=%v", text, bom)
	}
	if _, _, err := c.Strict([]byte{0xC4}); err == nil {
		t.Fatalf("expected truncated sequence to fail")
	}
}

func TestUTF16Strict(t *testing.T) {
	c, _ := Lookup(UTF16LE)
	text, bom, err := c.Strict([]byte{0xFF, 0xFE, 0x05, 0x01, 0x63, 0x00})
	if err != nil {
		t.Fatalf("strict decode: %v", err)
	}
	if !bom || text != "ąc" {
		t.Fatalf("unexpected result %q bom=%v", text, bom)
	}
	if _, _, err := c.Strict([]byte{0xFF, 0xFE, 0x00, 0xD8}); err == nil {
		t.Fatalf("expected unpaired surrogate to fail")
	}
	if _, _, err := c.Strict([]byte{0xFF, 0xFE, 0x61}); err == nil {
		t.Fatalf("expected odd length to fail")
	}

	be, _ := Lookup(UTF16BE)
	text, _, err = be.Strict([]byte{0xFE, 0xFF, 0x01, 0x05})
	if err != nil || text != "ą" {
		t.Fatalf("unexpected big endian result %q: %v", text, err)
	}
}

func TestASCII(t *testing.T) {
	c, _ := Lookup("us-ascii")
	if _, _, err := c.Strict([]byte("plain")); err != nil {
		t.Fatalf("strict decode: %v", err)
	}
	if _, _, err := c.Strict([]byte{0x61, 0xB9}); err == nil {
		t.Fatalf("expected high byte to fail")
	}
}

func TestLookupWHATWGFallback(t *testing.T) {
	c, ok := Lookup("koi8-r")
	if !ok {
		t.Fatalf("expected koi8-r codec")
	}
	if _, _, err := c.Strict([]byte{0xC1}); err != nil {
		t.Fatalf("strict decode: %v", err)
	}
	if _, ok := Lookup("no-such-charset"); ok {
		t.Fatalf("expected unknown label to fail")
	}
}

func TestCharmap(t *testing.T) {
	for _, name := range []string{Windows1250, ISO8859_2, Windows1252, ISO8859_1, ISO8859_15, Windows1254} {
		cm, ok := Charmap(name)
		if !ok || cm == nil {
			t.Fatalf("expected a table for %s", name)
		}
	}
	if cm, _ := Charmap(ISO8859_1); cm.DecodeByte(0x80) != '\u0080' {
		t.Fatalf("iso-8859-1 must not resolve to windows-1252")
	}
	for _, name := range []string{"", ASCII, UTF8, UTF16LE, UTF16BE} {
		if _, ok := Charmap(name); ok {
			t.Fatalf("unexpected table for %q", name)
		}
	}
}

func TestHasBOM(t *testing.T) {
	if !HasBOM([]byte{0xFF, 0xFE, 'a', 0}, BOMUTF16LE) {
		t.Fatalf("expected utf-16-le BOM")
	}
	if HasBOM([]byte{0xFE}, BOMUTF16BE) {
		t.Fatalf("truncated BOM must not match")
	}
}
