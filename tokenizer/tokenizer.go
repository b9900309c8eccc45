// Package tokenizer implements the byte-level codec.
//
// Every UTF-8 byte is a token ID in [0, 255]; three reserved IDs sit above
// the byte range. No vocabulary needs to be trained or shipped, which keeps
// the demo fully offline and deterministic.
package tokenizer

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

const (
	ByteVocabSize = 256
	BOS           = 256
	EOS           = 257
	PAD           = 258 // reserved, unused during generation
	VocabSize     = 259
)

// Encode maps text to one token ID per UTF-8 byte.
func Encode(text string) ([]int, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("tokenizer: text is not valid UTF-8")
	}
	ids := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		ids[i] = int(text[i])
	}
	return ids, nil
}

// Decode reassembles the byte stream, dropping specials and out-of-range IDs.
// Invalid UTF-8 runs become the replacement character, so a generation that
// stops mid-rune never fails to render.
func Decode(ids []int) string {
	buf := make([]byte, 0, len(ids))
	for _, id := range ids {
		if id >= 0 && id <= 255 {
			buf = append(buf, byte(id))
		}
	}
	return string(bytes.ToValidUTF8(buf, []byte("�")))
}

// IDToPiece renders a single token for display. Purely presentational;
// Decode does not use it.
func IDToPiece(id int) string {
	switch id {
	case BOS:
		return "<BOS>"
	case EOS:
		return "<EOS>"
	case PAD:
		return "<PAD>"
	}
	if id < 0 || id > 255 {
		return fmt.Sprintf("<UNK:%d>", id)
	}
	// Whitespace escapes read better in the HUD than the raw characters.
	switch id {
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	case '\r':
		return `\r`
	case ' ':
		return " "
	}
	if id >= 33 && id <= 126 {
		return string(rune(id))
	}
	return fmt.Sprintf(`\x%02x`, id)
}
