package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseAddress tests that parsing never panics on arbitrary input and that
// accepted addresses round-trip unchanged.
func FuzzParseAddress(f *testing.F) {
	f.Add("")
	f.Add("0x52908400098527886e0f7030069857d2e4169ee7")
	f.Add("0x52908400098527886E0F7030069857D2E4169EE7")
	f.Add("not-an-address")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		addr, err := ParseAddress(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseAddress(addr.String())
		if err != nil {
			t.Errorf("valid address failed round-trip: %v", err)
		}
		if roundTrip != addr {
			t.Error("round-trip changed address value")
		}
		if !utf8.ValidString(input) {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseHash ensures hashes parse deterministically.
func FuzzParseHash(f *testing.F) {
	f.Add("0x0000000000000000000000000000000000000000000000000000000000000000")
	f.Add("")
	f.Add("0x")

	f.Fuzz(func(t *testing.T, input string) {
		h, err := ParseHash(input)
		if err != nil {
			return
		}
		again, err := ParseHash(h.String())
		if err != nil || again != h {
			t.Error("hash did not round-trip")
		}
	})
}
