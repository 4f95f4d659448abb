package text

import (
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// Codes 0x10 to 0x1F of the DAAD character set hold the Spanish letters
// and punctuation; everything else below 0x80 is ASCII.
var extended = [16]rune{
	'ª', '¡', '¿', '«', '»', 'á', 'é', 'í',
	'ó', 'ú', 'ñ', 'Ñ', 'ç', 'Ç', 'ü', 'Ü',
}

const (
	extFirst    = 0x10
	extLast     = 0x1F
	replacement = '?'
)

// ToRune converts one DAAD character.
func ToRune(b byte) rune {
	switch {
	case b >= extFirst && b <= extLast:
		return extended[b-extFirst]
	case b < utf8.RuneSelf:
		return rune(b)
	}
	return replacement
}

// FromRune converts a rune to its DAAD character. ok is false when the
// rune has no DAAD form.
func FromRune(r rune) (b byte, ok bool) {
	if r < utf8.RuneSelf && (r < extFirst || r > extLast) {
		return byte(r), true
	}
	for i, e := range extended {
		if e == r {
			return byte(extFirst + i), true
		}
	}
	return replacement, false
}

// FromDAAD returns a transformer from DAAD bytes to UTF-8.
func FromDAAD() transform.Transformer { return fromDAAD{} }

// ToDAAD returns a transformer from UTF-8 to DAAD bytes. Runes without a
// DAAD form become '?'.
func ToDAAD() transform.Transformer { return toDAAD{} }

type fromDAAD struct{ transform.NopResetter }

func (fromDAAD) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r := ToRune(src[nSrc])
		if nDst+utf8.RuneLen(r) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc++
	}
	return nDst, nSrc, nil
}

type toDAAD struct{ transform.NopResetter }

func (toDAAD) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if !atEOF && !utf8.FullRune(src[nSrc:]) {
			return nDst, nSrc, transform.ErrShortSrc
		}
		r, size := utf8.DecodeRune(src[nSrc:])
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst], _ = FromRune(r)
		nDst++
		nSrc += size
	}
	return nDst, nSrc, nil
}
