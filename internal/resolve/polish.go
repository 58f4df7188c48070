package resolve

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/verte-zerg/txtconv/internal/codec"
)

// The Polish letters whose byte values differ between windows-1250 and
// iso-8859-2. ć ę ł ń ó ż and their capitals share positions in both tables.
const polishDivergent = "ąĄśŚźŹ"

const polishLetters = "ąćęłńóśźżĄĆĘŁŃÓŚŹŻ"

var (
	win1250 = mustCharmap(codec.Windows1250)
	iso8859 = mustCharmap(codec.ISO8859_2)

	win1250Check = polishCheck(win1250, iso8859)
	iso8859Check = polishCheck(iso8859, win1250)
)

func mustCharmap(name string) *charmap.Charmap {
	cm, ok := codec.Charmap(name)
	if !ok {
		panic("resolve: no single-byte table for " + name)
	}
	return cm
}

// consistencyCheck returns the glyph-range test for a single-byte candidate,
// or nil when the candidate needs none.
func consistencyCheck(name string) func(string) bool {
	switch name {
	case codec.Windows1250:
		return win1250Check
	case codec.ISO8859_2:
		return iso8859Check
	}
	if !westernPages[name] {
		return nil
	}
	cm, ok := codec.Charmap(name)
	if !ok {
		return nil
	}
	return westernCheck(cm)
}

// polishCheck builds the glyph-range test for decoding under own. Text is
// inconsistent when it holds more glyphs produced by the rival table's bytes
// for the divergent letters than it holds divergent letters proper.
func polishCheck(own, rival *charmap.Charmap) func(string) bool {
	rivalGlyphs := make(map[rune]bool, len(polishDivergent))
	for _, r := range polishDivergent {
		b, ok := rival.EncodeRune(r)
		if !ok {
			continue
		}
		rivalGlyphs[own.DecodeByte(b)] = true
	}
	return func(text string) bool {
		var hits, conflicts int
		for _, r := range text {
			switch {
			case strings.ContainsRune(polishDivergent, r):
				hits++
			case rivalGlyphs[r]:
				conflicts++
			}
		}
		return conflicts == 0 || hits > conflicts
	}
}

// westernCheck builds the test for a Western single-byte page. Glyphs the page
// decodes from bytes where windows-1250 or iso-8859-2 keep a Polish letter
// (¿ ³ æ ê ñ ¹ ± ¶ ¼ and so on) count as conflicts; other non-ASCII letters count
// as hits. Text is inconsistent when conflicts outnumber hits.
func westernCheck(own *charmap.Charmap) func(string) bool {
	conflictGlyphs := make(map[rune]bool, 2*len(polishLetters))
	for _, page := range []*charmap.Charmap{win1250, iso8859} {
		for _, r := range polishLetters {
			b, ok := page.EncodeRune(r)
			if !ok {
				continue
			}
			if g := own.DecodeByte(b); g != r && g >= utf8.RuneSelf {
				conflictGlyphs[g] = true
			}
		}
	}
	return func(text string) bool {
		var hits, conflicts int
		for _, r := range text {
			switch {
			case r < utf8.RuneSelf:
			case conflictGlyphs[r]:
				conflicts++
			case unicode.IsLetter(r) && !strings.ContainsRune(polishLetters, r):
				hits++
			}
		}
		return conflicts == 0 || hits > conflicts
	}
}
