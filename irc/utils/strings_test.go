// Copyright (c) 2026 the juno authors
// released under the MIT license

package utils

import "testing"

func TestCasefold(t *testing.T) {
	testCases := []struct {
		raw, folded string
	}{
		{"", ""},
		{"Alice", "alice"},
		{"ALICE", "alice"},
		{"#ergonomic", "#ergonomic"},
		{"#Chat", "#chat"},
		{"Tilde~", "tilde^"},
		{"[Nick]", "{nick}"},
		{"Back\\Slash", "back|slash"},
		{"{already}|folded^", "{already}|folded^"},
	}
	for _, tc := range testCases {
		assertEqual(Casefold(tc.raw), tc.folded, t)
	}
}

func TestCasefoldEquivalence(t *testing.T) {
	// the bracket pairs must collide, since peers treat them as the
	// same nick/channel:
	assertEqual(Casefold("[a]\\~"), Casefold("{A}|^"), t)
}

func TestValidChannelName(t *testing.T) {
	for _, name := range []string{"#chat", "#Chat", "##double", "#with'quote", "#semi;colon"} {
		if !ValidChannelName(name) {
			t.Errorf("expected to pass, but could not validate channel name %s", name)
		}
	}
	for _, name := range []string{"", "#", "chat", "&local", "#with space", "#with,comma", "#wild*card", "#ques?tion", "#bell\x07", "#cr\r", "#lf\n", "#nul\x00"} {
		if ValidChannelName(name) {
			t.Errorf("expected to fail, but successfully validated channel name %s", name)
		}
	}
}

func TestValidNick(t *testing.T) {
	for _, nick := range []string{"alice", "Alice", "alice17", "al-ice", "al_ice", "[waiter]", "{waiter}", "back\\slash", "pipe|nick", "car^et", "g`rave", "a"} {
		if !ValidNick(30, nick) {
			t.Errorf("expected to pass, but could not validate nick %s", nick)
		}
	}
	for _, nick := range []string{"", "7alice", "-alice", "al ice", "al!ice", "al@ice", "nick.name", "al#ice", "ali:ce"} {
		if ValidNick(30, nick) {
			t.Errorf("expected to fail, but successfully validated nick %s", nick)
		}
	}
	// length cap comes from config, not a constant
	if !ValidNick(8, "abcdefgh") {
		t.Errorf("8-char nick should pass with maxLen 8")
	}
	if ValidNick(8, "abcdefghi") {
		t.Errorf("9-char nick should fail with maxLen 8")
	}
}
