package ddb

import (
	"fmt"
	"strings"
)

// Text encoding constants.
const (
	// EndOfText is the stored form of the line feed that ends every message.
	EndOfText = 255 - '\n'
	// TokenBase is added to a token ordinal before inversion.
	TokenBase = 128
	// MaxTokens is the number of ordinals a compressed byte can address.
	MaxTokens = 128
)

// EncodeString compresses s the way the DAAD compiler does: at each
// position the longest matching token is replaced by its ordinal, other
// characters are stored literally, every byte is inverted and the result
// ends with EndOfText.
func EncodeString(s string, tokens []string) ([]byte, error) {
	if len(tokens) > MaxTokens {
		return nil, fmt.Errorf("ddb: %d tokens, at most %d allowed", len(tokens), MaxTokens)
	}
	out := make([]byte, 0, len(s)+1)
	for i := 0; i < len(s); {
		c := s[i]
		if c == '\n' {
			return nil, fmt.Errorf("ddb: line feed at %d ends the message early", i)
		}
		if c >= 128 {
			return nil, fmt.Errorf("ddb: character 0x%02x at %d is not encodable", c, i)
		}
		best, bestLen := -1, 0
		for k, t := range tokens {
			if len(t) > bestLen && strings.HasPrefix(s[i:], t) {
				best, bestLen = k, len(t)
			}
		}
		if best >= 0 {
			out = append(out, 255-byte(TokenBase+best))
			i += bestLen
			continue
		}
		out = append(out, 255-c)
		i++
	}
	return append(out, EndOfText), nil
}

// EncodeTokens builds a token table: one unused lead byte followed by the
// tokens, the last character of each with bit 7 set.
func EncodeTokens(tokens []string) ([]byte, error) {
	out := []byte{0}
	for k, t := range tokens {
		if t == "" {
			return nil, fmt.Errorf("ddb: token %d is empty", k)
		}
		for i := 0; i < len(t); i++ {
			c := t[i] & 0x7F
			if i == len(t)-1 {
				c |= 0x80
			}
			out = append(out, c)
		}
	}
	return out, nil
}
