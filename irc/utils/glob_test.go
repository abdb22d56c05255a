// Copyright (c) 2020 Shivaram Lingamneni <slingamn@cs.stanford.edu>
// released under the MIT license

package utils

import (
	"regexp"
	"testing"
)

func globMustCompile(glob string) *regexp.Regexp {
	re, err := CompileGlob(glob)
	if err != nil {
		panic(err)
	}
	return re
}

func assertMatches(glob, str string, match bool, t *testing.T) {
	re := globMustCompile(glob)
	if re.MatchString(str) != match {
		t.Errorf("should %s match %s? %t, but got %t instead", glob, str, match, !match)
	}
}

func TestGlob(t *testing.T) {
	assertMatches("*!*@tor-network.onion", "evan!user@tor-network.onion", true, t)
	assertMatches("*!*@*.example.com", "evan!user@login.example.com", true, t)
	assertMatches("*!*@*.example.com", "evan!user@example.com", false, t)
	assertMatches("*!*@*.example.com", "evan!user@example.com.evil.org", false, t)

	assertMatches("", "", true, t)
	assertMatches("", "x", false, t)
	assertMatches("*", "", true, t)
	assertMatches("*", "x", true, t)

	assertMatches("c?b", "cab", true, t)
	assertMatches("c?b", "cub", true, t)
	assertMatches("c?b", "cb", false, t)
	assertMatches("c?b", "cube", false, t)
	assertMatches("?*", "cube", true, t)
	assertMatches("?*", "", false, t)

	assertMatches("S*e", "Skåne", true, t)
	assertMatches("Sk?ne", "Skåne", true, t)
}

func TestGlobMatchCasefolds(t *testing.T) {
	if !GlobMatch("Evan!*@*", "evan!user@host") {
		t.Errorf("mask matching should be case-insensitive")
	}
	if !GlobMatch("nick[one]!*@*", "NICK{ONE}!u@h") {
		t.Errorf("rfc1459 bracket folding should apply to mask matching")
	}
	if GlobMatch("evan!*@*", "bob!user@host") {
		t.Errorf("unexpected match")
	}
}

func BenchmarkGlob(b *testing.B) {
	g := globMustCompile("*!*@*.google.com")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.MatchString("user!user@www.google.com")
	}
}
