// Copyright (c) 2026 the juno authors
// released under the MIT license

package ts6

import (
	"testing"
)

func TestCounterKnownValues(t *testing.T) {
	cases := []struct {
		n uint64
		s string
	}{
		{1, "AAAAAA"},
		{2, "AAAAAB"},
		{26, "AAAAAZ"},
		{27, "AAAAA0"},
		{36, "AAAAA9"},
		{37, "AAAABA"},
		{MaxCounter, "999999"},
	}
	for _, c := range cases {
		s, err := EncodeCounter(c.n)
		if err != nil {
			t.Errorf("EncodeCounter(%d): unexpected error %v", c.n, err)
			continue
		}
		if s != c.s {
			t.Errorf("EncodeCounter(%d) = %s, want %s", c.n, s, c.s)
		}
		n, err := DecodeCounter(c.s)
		if err != nil {
			t.Errorf("DecodeCounter(%s): unexpected error %v", c.s, err)
			continue
		}
		if n != c.n {
			t.Errorf("DecodeCounter(%s) = %d, want %d", c.s, n, c.n)
		}
	}
}

func TestCounterRoundTrip(t *testing.T) {
	// exhaustive round-trips are too slow; sample the space with a stride
	// that is coprime to 36 so every position's alphabet gets exercised
	for n := uint64(1); n <= MaxCounter; n += 104729 {
		s, err := EncodeCounter(n)
		if err != nil {
			t.Fatalf("EncodeCounter(%d): %v", n, err)
		}
		back, err := DecodeCounter(s)
		if err != nil {
			t.Fatalf("DecodeCounter(%s): %v", s, err)
		}
		if back != n {
			t.Fatalf("round trip failed: %d -> %s -> %d", n, s, back)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	alphabet := "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokens := []string{"AAAAAA", "AAAAAB", "ZZZZZZ", "000000", "999999", "A9Z0B3"}
	for i := 0; i < 36; i++ {
		tokens = append(tokens, string([]byte{
			alphabet[i], alphabet[(i+7)%36], alphabet[(i+13)%36],
			alphabet[(i+19)%36], alphabet[(i+25)%36], alphabet[(i+31)%36],
		}))
	}
	for _, tok := range tokens {
		n, err := DecodeCounter(tok)
		if err != nil {
			t.Fatalf("DecodeCounter(%s): %v", tok, err)
		}
		back, err := EncodeCounter(n)
		if err != nil {
			t.Fatalf("EncodeCounter(%d): %v", n, err)
		}
		if back != tok {
			t.Errorf("token round trip failed: %s -> %d -> %s", tok, n, back)
		}
	}
}

func TestCounterBounds(t *testing.T) {
	if _, err := EncodeCounter(0); err != ErrUIDRange {
		t.Errorf("expected ErrUIDRange for counter 0, got %v", err)
	}
	if _, err := EncodeCounter(MaxCounter + 1); err != ErrUIDRange {
		t.Errorf("expected ErrUIDRange past MaxCounter, got %v", err)
	}
	if _, err := DecodeCounter("AAAAA"); err != ErrInvalidUID {
		t.Errorf("expected ErrInvalidUID for short token, got %v", err)
	}
	if _, err := DecodeCounter("AAAAAa"); err != ErrInvalidUID {
		t.Errorf("expected ErrInvalidUID for lowercase token, got %v", err)
	}
}

func TestSIDNumericSubset(t *testing.T) {
	for _, id := range []uint32{0, 1, 5, 42, 100, 999} {
		s, err := EncodeSID(id)
		if err != nil {
			t.Fatalf("EncodeSID(%d): %v", id, err)
		}
		if len(s) != 3 {
			t.Fatalf("EncodeSID(%d) = %q, want 3 chars", id, s)
		}
		back, err := DecodeSID(s)
		if err != nil {
			t.Fatalf("DecodeSID(%s): %v", s, err)
		}
		if back != id {
			t.Errorf("SID round trip failed: %d -> %s -> %d", id, s, back)
		}
	}
	if s, _ := EncodeSID(5); s != "005" {
		t.Errorf("EncodeSID(5) = %s, want 005", s)
	}
	if id, err := DecodeSID("950"); err != nil || id != 950 {
		t.Errorf("DecodeSID(950) = %d, %v; want 950", id, err)
	}
}

func TestSIDExtension(t *testing.T) {
	// charybdis-style SIDs with letters decode via base 36 in positions 1-2
	cases := []struct {
		s  string
		id uint32
	}{
		{"0AA", 10*36 + 10},
		{"8ZZ", 8*1296 + 35*36 + 35},
		{"9ZZ", 9*1296 + 35*36 + 35},
		{"1A0", 1296 + 10*36},
	}
	for _, c := range cases {
		id, err := DecodeSID(c.s)
		if err != nil {
			t.Fatalf("DecodeSID(%s): %v", c.s, err)
		}
		if id != c.id {
			t.Errorf("DecodeSID(%s) = %d, want %d", c.s, id, c.id)
		}
	}
	// round trip through the extension encoder
	for _, id := range []uint32{1000, 5000, 9*1296 + 35*36 + 35} {
		s, err := EncodeSID(id)
		if err != nil {
			t.Fatalf("EncodeSID(%d): %v", id, err)
		}
		back, err := DecodeSID(s)
		if err != nil || back != id {
			t.Errorf("extension round trip failed: %d -> %s -> %d (%v)", id, s, back, err)
		}
	}
	// 1296 renders as "100" in base 36, which reads back as decimal 100
	if _, err := EncodeSID(1296); err != ErrSIDRange {
		t.Errorf("expected ErrSIDRange for ambiguous SID, got %v", err)
	}
	if _, err := EncodeSID(maxSID + 1); err != ErrSIDRange {
		t.Errorf("expected ErrSIDRange past 9ZZ, got %v", err)
	}
}

func TestUID(t *testing.T) {
	uid, err := EncodeUID(1, 2)
	if err != nil {
		t.Fatalf("EncodeUID: %v", err)
	}
	if uid != "001AAAAAB" {
		t.Errorf("EncodeUID(1, 2) = %s, want 001AAAAAB", uid)
	}
	sid, n, err := DecodeUID("001AAAAAB")
	if err != nil || sid != 1 || n != 2 {
		t.Errorf("DecodeUID(001AAAAAB) = %d, %d, %v; want 1, 2", sid, n, err)
	}
	if _, _, err := DecodeUID("001AAAA"); err == nil {
		t.Errorf("expected error for short UID")
	}
}

func TestValidators(t *testing.T) {
	valid := []string{"000", "999", "0AA", "9ZZ", "1R5"}
	for _, s := range valid {
		if !ValidSID(s) {
			t.Errorf("ValidSID(%s) = false, want true", s)
		}
	}
	invalid := []string{"", "00", "0000", "A00", "0a0", "0 0"}
	for _, s := range invalid {
		if ValidSID(s) {
			t.Errorf("ValidSID(%s) = true, want false", s)
		}
	}
	if !ValidUID("000AAAAAB") || !ValidUID("8ZZ123ABC") {
		t.Errorf("ValidUID rejected a well-formed UID")
	}
	if ValidUID("000AAAAA") || ValidUID("A00AAAAAB") || ValidUID("000aaaaab") {
		t.Errorf("ValidUID accepted a malformed UID")
	}
}
