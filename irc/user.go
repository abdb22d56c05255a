// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"sort"

	"github.com/junoircd/juno/irc/bans"
	"github.com/junoircd/juno/irc/modes"
	"github.com/junoircd/juno/irc/utils"
)

// User is a user somewhere on the mesh. The core never owns client
// sockets, so every user here was introduced over a link (EUID/UID), with
// one exception: the synthetic ban agents we allocate ourselves.
type User struct {
	ID  UserID
	UID string // verbatim wire form, always ID.TS6()

	Nick     string
	NickTS   int64
	HopCount int
	Ident    string
	Host     string // real host
	Cloak    string // displayed host
	IP       string // "0" when the origin didn't share it
	Realname string
	Account  string // empty when not logged in

	// Modes holds user mode names (our perspective's names, not letters).
	Modes utils.HashSet[string]

	// server is the origin server; location is the directly-linked
	// neighbor we learned the user through, nil for users of our own
	// (ban agents).
	server   ServerID
	location *Link

	// channels mirrors channel membership by casefolded name. The
	// channel side holds the authoritative ordered list; both edges are
	// always broken together.
	channels utils.HashSet[string]

	banAgent bool
}

// NewUser returns a user with its identity fields set and empty state.
func NewUser(id UserID) *User {
	return &User{
		ID:       id,
		UID:      id.TS6(),
		Modes:    make(utils.HashSet[string]),
		channels: make(utils.HashSet[string]),
	}
}

// NickMaskString returns nick!ident@cloak, the displayed hostmask.
func (user *User) NickMaskString() string {
	return user.Nick + "!" + user.Ident + "@" + user.Cloak
}

// Server returns the origin server's id.
func (user *User) Server() ServerID {
	return user.server
}

// Location returns the direct link the user is reached through, nil for
// users of our own.
func (user *User) Location() *Link {
	return user.location
}

// IsBanAgent reports whether this is a synthetic ban-burst source rather
// than a real user.
func (user *User) IsBanAgent() bool {
	return user.banAgent
}

// Channels returns the casefolded names of every channel the user is on,
// sorted for deterministic iteration.
func (user *User) Channels() []string {
	result := make([]string, 0, len(user.channels))
	for name := range user.channels {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// OnChannel reports membership by casefolded channel name.
func (user *User) OnChannel(cfname string) bool {
	return user.channels.Has(cfname)
}

// HasMode reports whether the named user mode is set.
func (user *User) HasMode(name string) bool {
	return user.Modes.Has(name)
}

// ApplyUmodeChanges commits a parsed user mode string and returns what
// actually changed. User modes carry no parameters on the server wire.
func (user *User) ApplyUmodeChanges(changes modes.ModeChanges) (applied modes.ModeChanges) {
	for _, change := range changes {
		switch change.Op {
		case modes.Add:
			if user.Modes.Has(change.Name) {
				continue
			}
			user.Modes.Add(change.Name)
		case modes.Remove:
			if !user.Modes.Has(change.Name) {
				continue
			}
			user.Modes.Remove(change.Name)
		default:
			continue
		}
		applied = append(applied, change)
	}
	return
}

// BanSubject returns the identity tuple bans are evaluated against.
func (user *User) BanSubject() bans.Subject {
	return bans.Subject{
		Nick:  user.Nick,
		Ident: user.Ident,
		Host:  user.Host,
		IP:    user.IP,
	}
}
