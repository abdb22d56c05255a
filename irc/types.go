// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"github.com/junoircd/juno/irc/ts6"
)

// ServerID is the internal numeric identity of a server in the mesh. The
// wire renders it as a 3-character TS6 SID; see the ts6 package for the
// codec.
type ServerID uint32

// TS6 returns the wire form of the id. Encoding can only fail for ids
// outside the SID range, which the config loader and the SID/SERVER
// handlers refuse to admit, so failures here collapse to the empty string.
func (sid ServerID) TS6() string {
	s, err := ts6.EncodeSID(uint32(sid))
	if err != nil {
		return ""
	}
	return s
}

// UserID is the internal identity of a user: the server that introduced
// them plus that server's 1-based user counter.
type UserID struct {
	SID     ServerID
	Counter uint64
}

// TS6 returns the 9-character wire UID.
func (uid UserID) TS6() string {
	s, err := ts6.EncodeUID(uint32(uid.SID), uid.Counter)
	if err != nil {
		return ""
	}
	return s
}

// An Actor is the source of a state change: exactly one of User or Peer is
// set. Wire frames carry a UID or SID prefix; handlers resolve the prefix
// into an Actor once and the rest of the code branches on which arm is set.
type Actor struct {
	User *User
	Peer *Peer
}

// IsUser reports whether the actor is a user.
func (actor Actor) IsUser() bool {
	return actor.User != nil
}

// IsServer reports whether the actor is a server.
func (actor Actor) IsServer() bool {
	return actor.User == nil && actor.Peer != nil
}

// Valid reports whether the actor resolved at all.
func (actor Actor) Valid() bool {
	return actor.User != nil || actor.Peer != nil
}

// ID returns the actor's wire identifier: a UID for users, a SID for
// servers, empty for the zero Actor.
func (actor Actor) ID() string {
	if actor.User != nil {
		return actor.User.UID
	}
	if actor.Peer != nil {
		return actor.Peer.TS6SID
	}
	return ""
}

// Name returns the actor's human-readable name: a nick or a server name.
func (actor Actor) Name() string {
	if actor.User != nil {
		return actor.User.Nick
	}
	if actor.Peer != nil {
		return actor.Peer.Name
	}
	return ""
}
