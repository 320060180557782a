package payload

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		{0x00},
		[]byte("hello"),
		{0xFF, 0x00, 0xAB, 0x10, 0x7F},
	}

	// And a chunk of arbitrary binary.
	rng := rand.New(rand.NewSource(42))
	big := make([]byte, 4096)
	rng.Read(big)
	cases = append(cases, big)

	for _, in := range cases {
		out, err := Decode(Encode(in))
		if err != nil {
			t.Fatalf("Decode(Encode(%d bytes)) error = %v", len(in), err)
		}
		if !bytes.Equal(out, in) {
			t.Fatalf("round trip changed %d-byte input", len(in))
		}
	}
}

func TestEncodeEmptyIsStable(t *testing.T) {
	if got := Encode(nil); got != "" {
		t.Fatalf("Encode(nil) = %q, want empty string", got)
	}
	out, err := Decode("")
	if err != nil {
		t.Fatalf("Decode(\"\") error = %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("Decode(\"\") = %d bytes, want 0", len(out))
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode("not base64!!!"); err == nil {
		t.Fatalf("Decode accepted invalid input")
	}
}

func TestWAVDataURI(t *testing.T) {
	uri := WAVDataURI([]byte("RIFFxxxx"))
	if !strings.HasPrefix(uri, "data:audio/wav;base64,") {
		t.Fatalf("WAVDataURI = %q", uri)
	}
	raw, err := Decode(strings.TrimPrefix(uri, "data:audio/wav;base64,"))
	if err != nil || string(raw) != "RIFFxxxx" {
		t.Fatalf("data URI payload = %q, %v", raw, err)
	}
}

func TestAudioDataURIDropsCodecParams(t *testing.T) {
	uri := AudioDataURI("audio/webm;codecs=opus", []byte{1})
	if !strings.HasPrefix(uri, "data:audio/webm;base64,") {
		t.Fatalf("AudioDataURI = %q, want codec params dropped", uri)
	}
	if got := AudioDataURI("", []byte{1}); !strings.HasPrefix(got, "data:application/octet-stream;base64,") {
		t.Fatalf("AudioDataURI with empty mime = %q", got)
	}
}

func TestDecodeText(t *testing.T) {
	if got := DecodeText([]byte("ahoj")); got != "ahoj" {
		t.Fatalf("DecodeText = %q", got)
	}
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("dobrý den")...)
	if got := DecodeText(withBOM); got != "dobrý den" {
		t.Fatalf("DecodeText with BOM = %q", got)
	}
}
