// Copyright (c) 2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package caps

import "testing"
import "reflect"

func TestSets(t *testing.T) {
	s1 := NewSet()

	s1.Enable(QS, EUID, TB)

	if !s1.Has(QS, EUID, TB) {
		t.Error("Did not have the capabs we expected")
	}

	if s1.Has(QS, EUID, BAN, TB) {
		t.Error("Has() returned true when we don't have all the given capabilities")
	}

	if !s1.HasAny(BAN, KLN, TB) {
		t.Error("HasAny() returned false despite an enabled capability")
	}
	if s1.HasAny(BAN, KLN) {
		t.Error("HasAny() returned true with no enabled capability given")
	}

	s1.Disable(QS)

	if s1.Has(QS) {
		t.Error("Disable() did not correctly disable the given capability")
	}

	enabledCaps := make(map[Capability]bool)
	for _, capab := range s1.List() {
		enabledCaps[capab] = true
	}
	expectedCaps := map[Capability]bool{
		EUID: true,
		TB:   true,
	}
	if !reflect.DeepEqual(enabledCaps, expectedCaps) {
		t.Errorf("Enabled and expected capability lists do not match: %v, %v", enabledCaps, expectedCaps)
	}

	// make sure re-enabling doesn't add to the count or something weird like that
	s1.Enable(EUID)

	if s1.Count() != 2 {
		t.Error("Count() did not match expected capability count")
	}

	// make sure add and remove work fine
	s1.Add(ENCAP)
	s1.Remove(EUID)

	if s1.Count() != 2 {
		t.Error("Count() did not match expected capability count")
	}

	// test String()
	actualString := s1.String()
	expectedString := "ENCAP TB"
	if actualString != expectedString {
		t.Errorf("Generated capab string [%s] did not match expected string [%s]", actualString, expectedString)
	}
}

func TestFromString(t *testing.T) {
	s := FromString("QS EX CHW IE EUID ENCAP TB SAVE UNDOCUMENTED")

	if !s.Has(QS, EX, CHW, IE, EUID, ENCAP, TB, SAVE) {
		t.Error("parsed set is missing advertised capabilities")
	}
	if s.Has(BAN) {
		t.Error("parsed set has a capability that was not advertised")
	}
	// unknown tokens survive for re-advertisement
	if !s.Has(Capability("UNDOCUMENTED")) {
		t.Error("parsed set dropped an unknown capability token")
	}
	if FromString("").Count() != 0 {
		t.Error("empty capab line should parse to an empty set")
	}
}

func BenchmarkSetReads(b *testing.B) {
	set := NewSet(QS, EUID)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		set.Has(QS)
		set.Has(BAN)
		set.Has(EUID)
		set.Has(KLN)
	}
}

func BenchmarkSetWrites(b *testing.B) {
	for i := 0; i < b.N; i++ {
		set := NewSet(QS, EUID)
		set.Add(KLN)
		set.Add(UNKLN)
		set.Remove(QS)
		set.Remove(BAN)
	}
}
