// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"sort"

	"github.com/junoircd/juno/irc/ts6"
	"github.com/junoircd/juno/irc/utils"
)

// Pool indexes every server, user, and channel we know about. It is plain
// bookkeeping: the event loop is the only mutator, so there are no locks,
// and teardown logic (what happens to a peer's users when it splits) lives
// in the server, not here.
type Pool struct {
	peers       map[ServerID]*Peer
	peersByName map[string]*Peer
	users       map[UserID]*User
	usersByNick map[string]*User
	channels    map[string]*Channel
}

func NewPool() *Pool {
	return &Pool{
		peers:       make(map[ServerID]*Peer),
		peersByName: make(map[string]*Peer),
		users:       make(map[UserID]*User),
		usersByNick: make(map[string]*User),
		channels:    make(map[string]*Channel),
	}
}

//
// peers
//

// AddPeer indexes a server. SIDs and names are both unique.
func (pool *Pool) AddPeer(peer *Peer) error {
	if _, present := pool.peers[peer.ID]; present {
		return errSIDInUse
	}
	folded := utils.Casefold(peer.Name)
	if _, present := pool.peersByName[folded]; present {
		return errServerNameInUse
	}
	pool.peers[peer.ID] = peer
	pool.peersByName[folded] = peer
	return nil
}

// RemovePeer drops a server from the indexes. Its users are the caller's
// problem.
func (pool *Pool) RemovePeer(peer *Peer) {
	delete(pool.peers, peer.ID)
	delete(pool.peersByName, utils.Casefold(peer.Name))
}

// Peer returns the server with the given id, or nil.
func (pool *Pool) Peer(sid ServerID) *Peer {
	return pool.peers[sid]
}

// PeerByTS6 resolves a wire SID, or nil.
func (pool *Pool) PeerByTS6(sid string) *Peer {
	id, err := ts6.DecodeSID(sid)
	if err != nil {
		return nil
	}
	return pool.peers[ServerID(id)]
}

// PeerByName resolves a server name, or nil.
func (pool *Pool) PeerByName(name string) *Peer {
	return pool.peersByName[utils.Casefold(name)]
}

// Peers returns every known server in sid order.
func (pool *Pool) Peers() []*Peer {
	result := make([]*Peer, 0, len(pool.peers))
	for _, peer := range pool.peers {
		result = append(result, peer)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

//
// users
//

// AddUser indexes a user. A duplicate uid is the collision case the EUID
// handler turns into a link disconnect; a duplicate nick is a kill case.
func (pool *Pool) AddUser(user *User) error {
	if _, present := pool.users[user.ID]; present {
		return errUIDInUse
	}
	folded := utils.Casefold(user.Nick)
	if _, present := pool.usersByNick[folded]; present {
		return errNicknameInUse
	}
	pool.users[user.ID] = user
	pool.usersByNick[folded] = user
	return nil
}

// RemoveUser drops a user from the indexes. Channel membership must
// already have been torn down.
func (pool *Pool) RemoveUser(user *User) {
	delete(pool.users, user.ID)
	folded := utils.Casefold(user.Nick)
	if pool.usersByNick[folded] == user {
		delete(pool.usersByNick, folded)
	}
}

// User returns the user with the given internal id, or nil.
func (pool *Pool) User(id UserID) *User {
	return pool.users[id]
}

// UserByUID resolves a wire UID, or nil.
func (pool *Pool) UserByUID(uid string) *User {
	sid, counter, err := ts6.DecodeUID(uid)
	if err != nil {
		return nil
	}
	return pool.users[UserID{SID: ServerID(sid), Counter: counter}]
}

// UserByNick resolves a nickname under casefolding, or nil.
func (pool *Pool) UserByNick(nick string) *User {
	return pool.usersByNick[utils.Casefold(nick)]
}

// SetNick renames a user, keeping the nick index coherent.
func (pool *Pool) SetNick(user *User, nick string) error {
	folded := utils.Casefold(nick)
	if holder, present := pool.usersByNick[folded]; present && holder != user {
		return errNicknameInUse
	}
	oldFolded := utils.Casefold(user.Nick)
	if pool.usersByNick[oldFolded] == user {
		delete(pool.usersByNick, oldFolded)
	}
	user.Nick = nick
	pool.usersByNick[folded] = user
	return nil
}

// Users returns every known user ordered by uid.
func (pool *Pool) Users() []*User {
	result := make([]*User, 0, len(pool.users))
	for _, user := range pool.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ID.SID != result[j].ID.SID {
			return result[i].ID.SID < result[j].ID.SID
		}
		return result[i].ID.Counter < result[j].ID.Counter
	})
	return result
}

// UsersOn returns every user whose origin is the given server, uid order.
func (pool *Pool) UsersOn(sid ServerID) []*User {
	var result []*User
	for _, user := range pool.Users() {
		if user.server == sid {
			result = append(result, user)
		}
	}
	return result
}

//
// channels
//

// AddChannel indexes a channel by casefolded name.
func (pool *Pool) AddChannel(channel *Channel) error {
	if _, present := pool.channels[channel.NameCasefolded]; present {
		return errChannelNameInUse
	}
	pool.channels[channel.NameCasefolded] = channel
	return nil
}

// RemoveChannel drops a channel from the index.
func (pool *Pool) RemoveChannel(channel *Channel) {
	delete(pool.channels, channel.NameCasefolded)
}

// Channel resolves a channel name under casefolding, or nil.
func (pool *Pool) Channel(name string) *Channel {
	return pool.channels[utils.Casefold(name)]
}

// Channels returns every channel in casefolded-name order.
func (pool *Pool) Channels() []*Channel {
	result := make([]*Channel, 0, len(pool.channels))
	for _, channel := range pool.channels {
		result = append(result, channel)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NameCasefolded < result[j].NameCasefolded
	})
	return result
}
