package tokenizer

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hi",
		"hello, world!",
		"tabs\tand\nnewlines\r",
		"héllo 世界 🙂",
	}
	for _, text := range cases {
		ids, err := Encode(text)
		if err != nil {
			t.Fatalf("Encode(%q) failed: %v", text, err)
		}
		for _, id := range ids {
			if id < 0 || id > 255 {
				t.Fatalf("Encode(%q) produced out-of-byte-range id %d", text, id)
			}
		}
		if got := Decode(ids); got != text {
			t.Fatalf("round trip mismatch: %q -> %q", text, got)
		}
	}
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	if _, err := Encode("bad\xffbyte"); err == nil {
		t.Fatal("Encode accepted invalid UTF-8")
	}
}

func TestDecodeDropsSpecialsAndOutOfRange(t *testing.T) {
	ids := []int{BOS, 'h', 'i', EOS, PAD, 999, -3}
	if got := Decode(ids); got != "hi" {
		t.Fatalf("Decode = %q, want %q", got, "hi")
	}
}

func TestDecodeTruncatedMultibyteNeverFails(t *testing.T) {
	// First byte of a 3-byte UTF-8 sequence, alone.
	got := Decode([]int{'a', 0xE4})
	if got != "a�" {
		t.Fatalf("Decode truncated rune = %q, want %q", got, "a�")
	}
	// Arbitrary garbage byte stream must still render.
	_ = Decode([]int{0xFF, 0xFE, 0xC0, 0x80})
}

func TestIDToPiece(t *testing.T) {
	cases := []struct {
		id   int
		want string
	}{
		{BOS, "<BOS>"},
		{EOS, "<EOS>"},
		{PAD, "<PAD>"},
		{300, "<UNK:300>"},
		{-1, "<UNK:-1>"},
		{'\n', `\n`},
		{'\t', `\t`},
		{'\r', `\r`},
		{' ', " "},
		{'A', "A"},
		{'~', "~"},
		{0, `\x00`},
		{200, `\xc8`},
		{127, `\x7f`},
	}
	for _, c := range cases {
		if got := IDToPiece(c.id); got != c.want {
			t.Errorf("IDToPiece(%d) = %q, want %q", c.id, got, c.want)
		}
	}
}
