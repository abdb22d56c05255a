// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/junoircd/juno/irc/bans"
	"github.com/junoircd/juno/irc/caps"
	"github.com/junoircd/juno/irc/modes"
	"github.com/junoircd/juno/irc/utils"
)

// propagate relays a frame verbatim to every established link except the
// one it arrived on. The mesh is a tree, so there is no loop to guard
// against: except is only ever the arrival link.
func (server *Server) propagate(except *Link, msg ircmsg.Message) {
	for link := range server.links {
		if link == except || !link.established {
			continue
		}
		link.SendMessage(msg)
	}
}

// channelLinks returns the links that need a channel's traffic: one entry
// per distinct location of its members.
func (server *Server) channelLinks(channel *Channel, except *Link) (result []*Link) {
	seen := make(utils.HashSet[*Link])
	for _, id := range channel.Members() {
		user := server.pool.User(id)
		if user == nil {
			continue
		}
		loc := user.Location()
		if loc == nil || loc == except || seen.Has(loc) {
			continue
		}
		seen.Add(loc)
		result = append(result, loc)
	}
	return
}

// umodeString renders a user's mode set as +letters against a
// perspective's table, in stable order.
func umodeString(table *modes.Table, user *User) string {
	var letters []rune
	for name := range user.Modes {
		if binding, ok := table.ByName(name); ok {
			letters = append(letters, binding.Letter)
		}
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return "+" + string(letters)
}

// propagateUserIntro re-introduces a user to every other link, as EUID
// where the peer speaks it and as the older UID form where it doesn't.
func (server *Server) propagateUserIntro(except *Link, origin *Peer, user *User) {
	for link := range server.links {
		if link == except || !link.established {
			continue
		}
		server.sendUserIntro(link, origin, user)
	}
}

func (server *Server) sendUserIntro(link *Link, origin *Peer, user *User) bool {
	hop := strconv.Itoa(user.HopCount + 1)
	nickTS := strconv.FormatInt(user.NickTS, 10)
	umodes := umodeString(origin.Umodes, user)
	if link.Caps().Has(caps.EUID) {
		account := user.Account
		if account == "" {
			account = "*"
		}
		return link.Send(origin.TS6SID, "EUID", user.Nick, hop, nickTS, umodes,
			user.Ident, user.Cloak, user.IP, user.UID, user.Host, account, user.Realname)
	}
	return link.Send(origin.TS6SID, "UID", user.Nick, hop, nickTS, umodes,
		user.Ident, user.Cloak, user.IP, user.UID, user.Realname)
}

// sjoinForwardMember is one nicklist entry of an outgoing SJOIN: the user
// plus the status names being granted, empty when the sender's statuses
// were not accepted.
type sjoinForwardMember struct {
	user     *User
	statuses []string
}

// propagateSJOIN re-encodes a merged channel burst for each remaining
// link, against that peer's own mode letters and prefix characters. Mode
// removals are never carried: the lowered TS makes every recipient shed
// them on its own.
func (server *Server) propagateSJOIN(except *Link, origin *Peer, channel *Channel, simpleAdds modes.ModeChanges, members []sjoinForwardMember) {
	ts := strconv.FormatInt(channel.Time, 10)
	for link := range server.links {
		if link == except || !link.established || link.peer == nil {
			continue
		}
		table := link.peer.Cmodes
		params := []string{ts, channel.Name}
		if lines := simpleAdds.Strings(table, 0, false); len(lines) != 0 {
			params = append(params, lines[0]...)
		} else {
			params = append(params, "+")
		}
		nicks := make([]string, 0, len(members))
		for _, member := range members {
			nicks = append(nicks, table.Prefixes(member.statuses, true)+member.user.UID)
		}
		params = append(params, strings.Join(nicks, " "))
		link.Send(origin.TS6SID, "SJOIN", params...)
	}
}

// propagateTMODE re-encodes an applied mode change per link, so each peer
// sees its own letters. The TS sent is the channel's, which the applier
// has already reconciled.
func (server *Server) propagateTMODE(except *Link, source Actor, channel *Channel, applied modes.ModeChanges) {
	ts := strconv.FormatInt(channel.Time, 10)
	for link := range server.links {
		if link == except || !link.established || link.peer == nil {
			continue
		}
		for _, line := range applied.Strings(link.peer.Cmodes, 0, true) {
			params := append([]string{ts, channel.Name}, line...)
			link.Send(source.ID(), "TMODE", params...)
		}
	}
}

// propagateSave relays a forced nick change: SAVE where the peer speaks
// it, a plain TS'd NICK to the user's UID where it doesn't.
func (server *Server) propagateSave(except *Link, user *User, oldTS int64) {
	for link := range server.links {
		if link == except || !link.established {
			continue
		}
		if link.Caps().Has(caps.SAVE) {
			link.Send(server.ts6sid, "SAVE", user.UID, strconv.FormatInt(oldTS, 10))
		} else {
			link.Send(user.UID, "NICK", user.UID, strconv.FormatInt(user.NickTS, 10))
		}
	}
}

// propagateWallops delivers an operator broadcast to every link.
func (server *Server) propagateWallops(message string) {
	for link := range server.links {
		if !link.established {
			continue
		}
		link.Send(server.ts6sid, "WALLOPS", message)
	}
}

// propagateBan fans a ban record to every other link, in whatever
// encoding each peer understands.
func (server *Server) propagateBan(except *Link, ban *bans.Ban) {
	for link := range server.links {
		if link == except || !link.established {
			continue
		}
		server.sendBan(link, ban)
	}
}

// banWireSource is the best source prefix for a ban frame: the setter if
// still online, our own sid otherwise.
func (server *Server) banWireSource(ban *bans.Ban) string {
	if ban.RecentSource != "" {
		if user := server.pool.UserByUID(ban.RecentSource); user != nil {
			return user.UID
		}
	}
	return server.ts6sid
}

// banWireUser finds a user the ban can be voiced through, for links that
// only accept the operator-sourced legacy forms. During a burst the
// link's ban agent stands in for setters that are gone.
func (server *Server) banWireUser(link *Link, ban *bans.Ban) *User {
	if ban.RecentSource != "" {
		if user := server.pool.UserByUID(ban.RecentSource); user != nil {
			return user
		}
	}
	return link.banAgent
}

// sendBan re-encodes one ban record for one link, picking the richest
// form the peer's capability set allows. Reports whether anything was
// queued.
func (server *Server) sendBan(link *Link, ban *bans.Ban) bool {
	// the unified BAN form carries absolute times, so it alone can
	// express tombstones and lifetimes faithfully
	if link.Caps().Has(caps.BAN) && (ban.Type == bans.KLine || ban.Type == bans.Resv) {
		letter, user, host := "K", ban.MatchUser, ban.MatchHost
		if ban.Type == bans.Resv {
			letter, user, host = "R", "*", ban.Match
		}
		return link.Send(server.banWireSource(ban), "BAN", letter, user, host,
			strconv.FormatInt(ban.Modified, 10),
			strconv.FormatInt(ban.Duration, 10),
			strconv.FormatInt(ban.Lifetime, 10),
			ban.AUser, ban.Reason)
	}

	if ban.Disabled {
		return server.sendBanRemoval(link, ban)
	}
	remaining := ban.ExpiresAt() - time.Now().Unix()
	if remaining <= 0 {
		// the relative forms cannot express an expired record
		return false
	}
	duration := strconv.FormatInt(remaining, 10)

	switch ban.Type {
	case bans.KLine:
		user := server.banWireUser(link, ban)
		if user == nil {
			server.logger.Warning("bans", "cannot propagate K-Line, no usable source", ban.Match, link.Name())
			return false
		}
		if link.Caps().Has(caps.KLN) {
			return link.Send(user.UID, "KLINE", "*", duration, ban.MatchUser, ban.MatchHost, ban.Reason)
		}
		return link.Send(user.UID, "ENCAP", "*", "KLINE", duration, ban.MatchUser, ban.MatchHost, ban.Reason)
	case bans.DLine:
		return link.Send(server.banWireSource(ban), "ENCAP", "*", "DLINE", duration, ban.Match, ban.Reason)
	case bans.Resv:
		if link.Caps().Has(caps.CLUSTER) {
			return link.Send(server.banWireSource(ban), "RESV", "*", duration, ban.Match, ban.Reason)
		}
		return link.Send(server.banWireSource(ban), "ENCAP", "*", "RESV", duration, ban.Match, "0", ban.Reason)
	case bans.NickDelay:
		return link.Send(server.ts6sid, "ENCAP", "*", "NICKDELAY", duration, ban.Match)
	}
	return false
}

// sendBanRemoval voices a tombstone in the legacy deletion forms.
func (server *Server) sendBanRemoval(link *Link, ban *bans.Ban) bool {
	switch ban.Type {
	case bans.KLine:
		user := server.banWireUser(link, ban)
		if user == nil {
			return false
		}
		if link.Caps().Has(caps.UNKLN) {
			return link.Send(user.UID, "UNKLINE", "*", ban.MatchUser, ban.MatchHost)
		}
		return link.Send(user.UID, "ENCAP", "*", "UNKLINE", ban.MatchUser, ban.MatchHost)
	case bans.DLine:
		return link.Send(server.banWireSource(ban), "ENCAP", "*", "UNDLINE", ban.Match)
	case bans.Resv:
		if link.Caps().Has(caps.CLUSTER) {
			return link.Send(server.banWireSource(ban), "UNRESV", "*", ban.Match)
		}
		return link.Send(server.banWireSource(ban), "ENCAP", "*", "UNRESV", ban.Match)
	case bans.NickDelay:
		return link.Send(server.ts6sid, "ENCAP", "*", "NICKDELAY", "0", ban.Match)
	}
	return false
}
