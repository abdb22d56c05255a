// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"reflect"
	"testing"

	"github.com/junoircd/juno/irc/modes"
)

func appliedNames(applied modes.ModeChanges) []string {
	var result []string
	for _, change := range applied {
		result = append(result, string(change.Op)+change.Name)
	}
	return result
}

func TestApplyModeChangesSimple(t *testing.T) {
	server := newTestServer(t)
	channel := NewChannel("#test", 1000)
	server.pool.AddChannel(channel)
	source := Actor{Peer: server.me}

	changes, _ := server.cmodes.ParseCmodes("+nt")
	applied := server.ApplyModeChanges(source, channel, changes, true, true)
	expected := []string{"+no_ext", "+protect_topic"}
	if !reflect.DeepEqual(appliedNames(applied), expected) {
		t.Errorf("expected %v applied, got %v", expected, appliedNames(applied))
	}

	// restating modes the channel already has applies nothing
	applied = server.ApplyModeChanges(source, channel, changes, true, true)
	if len(applied) != 0 {
		t.Errorf("expected no changes on restatement, got %v", appliedNames(applied))
	}

	changes, _ = server.cmodes.ParseCmodes("-t")
	applied = server.ApplyModeChanges(source, channel, changes, true, true)
	if !reflect.DeepEqual(appliedNames(applied), []string{"-protect_topic"}) {
		t.Errorf("expected -protect_topic, got %v", appliedNames(applied))
	}
}

func TestApplyModeChangesParameters(t *testing.T) {
	server := newTestServer(t)
	channel := NewChannel("#test", 1000)
	server.pool.AddChannel(channel)
	source := Actor{Peer: server.me}

	changes, _ := server.cmodes.ParseCmodes("+l", "50")
	applied := server.ApplyModeChanges(source, channel, changes, true, true)
	if len(applied) != 1 || applied[0].Param != "50" {
		t.Errorf("expected +limit 50, got %v", applied)
	}

	// a non-numeric limit is refused outright
	changes, _ = server.cmodes.ParseCmodes("+l", "lots")
	if applied = server.ApplyModeChanges(source, channel, changes, true, true); len(applied) != 0 {
		t.Errorf("expected bogus limit to be dropped, got %v", applied)
	}
	if channel.ModeParam("limit") != "50" {
		t.Errorf("stored limit should be untouched, got %q", channel.ModeParam("limit"))
	}

	// replacing the param is a change; restating it is not
	changes, _ = server.cmodes.ParseCmodes("+l", "60")
	if applied = server.ApplyModeChanges(source, channel, changes, true, true); len(applied) != 1 {
		t.Errorf("expected param replacement to apply, got %v", applied)
	}
	if applied = server.ApplyModeChanges(source, channel, changes, true, true); len(applied) != 0 {
		t.Errorf("expected param restatement to apply nothing, got %v", applied)
	}

	// key removal normalizes its parameter to *
	changes, _ = server.cmodes.ParseCmodes("+k", "hunter2")
	server.ApplyModeChanges(source, channel, changes, true, true)
	changes, _ = server.cmodes.ParseCmodes("-k")
	applied = server.ApplyModeChanges(source, channel, changes, true, true)
	if len(applied) != 1 || applied[0].Param != "*" {
		t.Errorf("expected -key with param *, got %v", applied)
	}
}

func TestApplyModeChangesStatus(t *testing.T) {
	server := newTestServer(t)
	channel := NewChannel("#test", 1000)
	server.pool.AddChannel(channel)
	source := Actor{Peer: server.me}

	alice := NewUser(UserID{SID: 200, Counter: 1})
	alice.Nick = "alice"
	server.pool.AddUser(alice)
	channel.Add(alice)

	bob := NewUser(UserID{SID: 200, Counter: 2})
	bob.Nick = "bob"
	server.pool.AddUser(bob)

	// wire form: the parameter is a UID
	changes, _ := server.cmodes.ParseCmodes("+o", alice.UID)
	applied := server.ApplyModeChanges(source, channel, changes, true, true)
	if len(applied) != 1 || applied[0].Param != alice.UID {
		t.Errorf("expected +op on %s, got %v", alice.UID, applied)
	}
	if !channel.HasStatus("op", alice.ID) {
		t.Errorf("status not committed")
	}

	// bob is known but not on the channel
	changes, _ = server.cmodes.ParseCmodes("+v", bob.UID)
	if applied = server.ApplyModeChanges(source, channel, changes, true, true); len(applied) != 0 {
		t.Errorf("expected status grant to a non-member to be dropped, got %v", applied)
	}

	// unknown target
	changes, _ = server.cmodes.ParseCmodes("+v", "200AAAZZZ")
	if applied = server.ApplyModeChanges(source, channel, changes, true, true); len(applied) != 0 {
		t.Errorf("expected status grant to an unknown uid to be dropped, got %v", applied)
	}
}

func TestApplyModeChangesPrivileges(t *testing.T) {
	server := newTestServer(t)
	link := establishTestLink(t, server, "remote.test.net", "1AB", testCapabs)
	alice := introduceTestUser(t, server, link, "alice", "1ABAAAAAA", 1000)

	channel := NewChannel("#test", 1000)
	server.pool.AddChannel(channel)
	channel.Add(alice)

	// no status on the channel: refused, with the numeric routed back
	changes, _ := server.cmodes.ParseCmodes("+m")
	applied := server.ApplyModeChanges(Actor{User: alice}, channel, changes, false, true)
	if len(applied) != 0 {
		t.Errorf("expected unprivileged change to be refused, got %v", applied)
	}
	lines := drainLines(link)
	if len(lines) != 1 {
		t.Fatalf("expected exactly one numeric, got %v", lines)
	}
	assertFrame(t, lines[0], "100", ERR_CHANOPRIVSNEEDED, alice.UID, "#test", "You're not a channel operator")

	// halfop clears the threshold
	channel.AddStatus("halfop", alice.ID)
	applied = server.ApplyModeChanges(Actor{User: alice}, channel, changes, false, true)
	if len(applied) != 1 {
		t.Errorf("expected privileged change to apply, got %v", applied)
	}
	if extra := drainLines(link); len(extra) != 0 {
		t.Errorf("expected no numerics on success, got %v", extra)
	}

	// a halfop cannot demote an op
	bob := introduceTestUser(t, server, link, "bob", "1ABAAAAAB", 1000)
	channel.Add(bob)
	channel.AddStatus("op", bob.ID)
	changes, _ = server.cmodes.ParseCmodes("-o", bob.UID)
	applied = server.ApplyModeChanges(Actor{User: alice}, channel, changes, false, true)
	if len(applied) != 0 {
		t.Errorf("expected demotion of a superior to be refused, got %v", applied)
	}
	if !channel.HasStatus("op", bob.ID) {
		t.Errorf("op should still be held")
	}
}

func TestApplyModeChangesListLimit(t *testing.T) {
	server := newTestServer(t)
	channel := NewChannel("#test", 1000)
	server.pool.AddChannel(channel)
	source := Actor{Peer: server.me}

	// chan-list-modes is 3 in the test config
	for _, mask := range []string{"*!*@a.example", "*!*@b.example", "*!*@c.example"} {
		changes, _ := server.cmodes.ParseCmodes("+b", mask)
		if applied := server.ApplyModeChanges(source, channel, changes, false, true); len(applied) != 1 {
			t.Errorf("expected ban %s to apply", mask)
		}
	}
	changes, _ := server.cmodes.ParseCmodes("+b", "*!*@d.example")
	if applied := server.ApplyModeChanges(source, channel, changes, false, true); len(applied) != 0 {
		t.Errorf("expected the list limit to refuse a fourth entry, got %v", applied)
	}

	// removal still works at the limit
	changes, _ = server.cmodes.ParseCmodes("-b", "*!*@a.example")
	if applied := server.ApplyModeChanges(source, channel, changes, false, true); len(applied) != 1 {
		t.Errorf("expected removal to apply, got %v", applied)
	}
}

func TestApplyModeChangesAccess(t *testing.T) {
	server := newTestServer(t)
	channel := NewChannel("#test", 1000)
	server.pool.AddChannel(channel)
	source := Actor{Peer: server.me}

	changes, _ := server.cmodes.ParseCmodes("+A", "op:*!*@trusted.example")
	if applied := server.ApplyModeChanges(source, channel, changes, true, true); len(applied) != 1 {
		t.Errorf("expected a valid access entry to apply, got %v", applied)
	}

	for _, entry := range []string{"no-colon-here", "emperor:*!*@x.example", "op:"} {
		changes, _ := server.cmodes.ParseCmodes("+A", entry)
		if applied := server.ApplyModeChanges(source, channel, changes, true, true); len(applied) != 0 {
			t.Errorf("expected access entry %q to be refused, got %v", entry, applied)
		}
	}
}
