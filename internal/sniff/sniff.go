// Package sniff guesses the encoding of a byte buffer.
package sniff

import (
	"unicode/utf8"

	"github.com/saintfish/chardet"

	"github.com/verte-zerg/txtconv/internal/codec"
	"github.com/verte-zerg/txtconv/internal/model"
)

// Sniffer returns a best-guess encoding for data.
type Sniffer interface {
	Guess(data []byte) model.EncodingGuess
}

// Func adapts a plain function to a Sniffer.
type Func func(data []byte) model.EncodingGuess

// Guess implements Sniffer.
func (f Func) Guess(data []byte) model.EncodingGuess {
	return f(data)
}

// Static always returns the same guess.
func Static(name string, confidence float64) Sniffer {
	return Func(func([]byte) model.EncodingGuess {
		return model.EncodingGuess{Name: name, Confidence: confidence}
	})
}

// Structural recognises byte order marks, pure ASCII and well-formed
// multi-byte UTF-8, and returns an empty guess for anything else.
func Structural() Sniffer {
	return Func(func(data []byte) model.EncodingGuess {
		g, _ := structural(data)
		return g
	})
}

// Chardet is a statistical sniffer backed by the ICU-derived chardet port.
// Byte order marks, pure ASCII and well-formed multi-byte UTF-8 are recognised
// structurally before the statistical model runs.
type Chardet struct {
	detector *chardet.Detector
}

// NewChardet constructs a chardet-backed sniffer.
func NewChardet() *Chardet {
	return &Chardet{detector: chardet.NewTextDetector()}
}

// Guess implements Sniffer.
func (c *Chardet) Guess(data []byte) model.EncodingGuess {
	if g, ok := structural(data); ok {
		return g
	}
	res, err := c.detector.DetectBest(data)
	if err != nil || res == nil {
		return model.EncodingGuess{}
	}
	return model.EncodingGuess{
		Name:       codec.Canonical(res.Charset),
		Confidence: clamp(float64(res.Confidence) / 100),
	}
}

func structural(data []byte) (model.EncodingGuess, bool) {
	switch {
	case len(data) == 0:
		return model.EncodingGuess{Name: codec.ASCII, Confidence: 1}, true
	case codec.HasBOM(data, codec.BOMUTF8):
		return model.EncodingGuess{Name: codec.UTF8, Confidence: 1}, true
	case codec.HasBOM(data, codec.BOMUTF16LE):
		return model.EncodingGuess{Name: codec.UTF16LE, Confidence: 1}, true
	case codec.HasBOM(data, codec.BOMUTF16BE):
		return model.EncodingGuess{Name: codec.UTF16BE, Confidence: 1}, true
	case isASCII(data):
		return model.EncodingGuess{Name: codec.ASCII, Confidence: 1}, true
	case utf8.Valid(data):
		return model.EncodingGuess{Name: codec.UTF8, Confidence: 0.99}, true
	}
	return model.EncodingGuess{}, false
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
