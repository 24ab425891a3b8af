package codec

import (
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"plain ascii row",
		`{"CreationTime":"2024-03-01T10:00:00","Operation":"MailItemsAccessed"}`,
		strings.Repeat("2024-03-01T10:00:00Z,alice@contoso.com,203.0.113.5,Success\n", 500),
		"unicode: загрузка 日誌 ✓",
	}
	for _, text := range cases {
		got, err := Decompress(Compress(text))
		if err != nil {
			t.Fatalf("Decompress(Compress(%.20q)): %v", text, err)
		}
		if got != text {
			t.Fatalf("round trip mangled %.20q", text)
		}
	}
}

func TestDecompress_LegacyPlainValue(t *testing.T) {
	legacy := "never compressed, stored by an older schema"
	got, err := Decompress([]byte(legacy))
	if err != nil {
		t.Fatalf("Decompress legacy: %v", err)
	}
	if got != legacy {
		t.Fatalf("legacy value changed: %q", got)
	}
}

func TestLooksCompressed(t *testing.T) {
	if LooksCompressed([]byte("plain text")) {
		t.Error("plain text sniffed as compressed")
	}
	if LooksCompressed(nil) {
		t.Error("nil sniffed as compressed")
	}
	if !LooksCompressed(Compress("x")) {
		t.Error("compressed value not sniffed")
	}
}

func TestCompress_ActuallyShrinksRepetitiveText(t *testing.T) {
	text := strings.Repeat("MailItemsAccessed,Succeeded,EWS,", 1000)
	if c := Compress(text); len(c) >= len(text) {
		t.Fatalf("compressed %d >= original %d", len(c), len(text))
	}
}
