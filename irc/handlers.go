// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2018 Daniel Oaks <daniel@danieloaks.net>
// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/junoircd/juno/irc/bans"
	"github.com/junoircd/juno/irc/caps"
	"github.com/junoircd/juno/irc/modes"
	"github.com/junoircd/juno/irc/sno"
	"github.com/junoircd/juno/irc/ts6"
	"github.com/junoircd/juno/irc/utils"
)

// event payloads

// JoinEvent is fired as channel_join and user_joined for every membership
// gained, burst or live.
type JoinEvent struct {
	Channel *Channel
	User    *User
	Burst   bool
}

// PartEvent is fired as channel_part when a membership is given up.
type PartEvent struct {
	Channel *Channel
	User    *User
	Reason  string
}

// KickEvent is fired as channel_kick when a membership is taken away.
type KickEvent struct {
	Channel *Channel
	Source  Actor
	Target  *User
	Reason  string
}

// QuitEvent is fired as user.quit after a user has left the network, for
// any reason (QUIT, KILL, netsplit).
type QuitEvent struct {
	User   *User
	Reason string
}

// MessageEvent is fired as user.can_message before a PRIVMSG or NOTICE is
// routed; a veto drops the message. Exactly one of Target and Channel is
// set.
type MessageEvent struct {
	Source  *User
	Target  *User
	Channel *Channel
	Command string
	Text    string
}

// ChannelBurstEvent is fired as channel_burst after an SJOIN has been
// merged into the channel.
type ChannelBurstEvent struct {
	Channel *Channel
	Peer    *Peer
	TheirTS int64
}

// KnockEvent is fired as channel.knock when a remote user knocks on a
// channel we carry.
type KnockEvent struct {
	Channel *Channel
	User    *User
}

// helpers

// sourceActor resolves a frame's source prefix. An empty prefix means the
// link's own peer. Unknown identifiers yield the zero Actor.
func (server *Server) sourceActor(link *Link, prefix string) Actor {
	if prefix == "" {
		return Actor{Peer: link.peer}
	}
	switch len(prefix) {
	case 3:
		return Actor{Peer: server.pool.PeerByTS6(prefix)}
	case 9:
		return Actor{User: server.pool.UserByUID(prefix)}
	}
	if peer := server.pool.PeerByName(prefix); peer != nil {
		return Actor{Peer: peer}
	}
	return Actor{User: server.pool.UserByNick(prefix)}
}

// protocolViolation reports a malformed frame, once per (link, kind).
// The frame is dropped; the link survives.
func (server *Server) protocolViolation(link *Link, kind string, format string, args ...any) {
	server.snomasks.SendOncePerLink(sno.Protocol, link, kind, fmt.Sprintf(format, args...))
}

// perspectiveFor returns the mode tables a source's letters are read
// against: the origin server's for remote sources, ours otherwise.
func (server *Server) perspectiveFor(source Actor) (cmodes, umodes *modes.Table) {
	var origin *Peer
	if source.IsUser() {
		origin = server.pool.Peer(source.User.Server())
	} else if source.IsServer() {
		origin = source.Peer
	}
	if origin != nil {
		return origin.Cmodes, origin.Umodes
	}
	return server.cmodes, server.umodes
}

func parseTS(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil && v >= 0
}

// banSourceSID is the server component of a ban's computed identity.
func banSourceSID(source Actor) uint32 {
	if source.IsUser() {
		return uint32(source.User.Server())
	}
	if source.IsServer() {
		return uint32(source.Peer.ID)
	}
	return 0
}

func banOperName(source Actor) string {
	if source.IsUser() {
		return source.User.NickMaskString()
	}
	return "*"
}

func (server *Server) banServerName(source Actor) string {
	if source.IsUser() {
		if origin := server.pool.Peer(source.User.Server()); origin != nil {
			return origin.Name
		}
	}
	if source.IsServer() {
		return source.Peer.Name
	}
	return server.name
}

// banFromWire assembles a ban record for a freshly received set, with the
// identity derived from the source's server and the normalized mask.
func (server *Server) banFromWire(source Actor, banType bans.Type, mask, matchUser, matchHost, reason string, duration int64) bans.Ban {
	now := time.Now().Unix()
	minLifetime := int64(server.Config().Bans.MinLifetime / time.Second)
	ban := bans.Ban{
		ID:        bans.ComputeID(banSourceSID(source), mask),
		Type:      banType,
		Match:     mask,
		MatchUser: matchUser,
		MatchHost: matchHost,
		Reason:    reason,
		Added:     now,
		Modified:  now,
		Duration:  duration,
		Lifetime:  max(duration, minLifetime),
		AServer:   server.banServerName(source),
		AUser:     banOperName(source),
	}
	if source.IsUser() {
		ban.RecentSource = source.User.UID
	}
	return ban
}

// disableBan tombstones an existing record so the deletion propagates and
// outlives netsplits.
func (server *Server) disableBan(source Actor, except *Link, existing *bans.Ban) {
	minLifetime := int64(server.Config().Bans.MinLifetime / time.Second)
	tomb := *existing
	tomb.Modified = time.Now().Unix()
	// a removal in the same second as the last touch still has to win
	// the merge
	if tomb.Modified <= existing.Modified {
		tomb.Modified = existing.Modified + 1
	}
	tomb.Duration = 0
	tomb.Disabled = true
	tomb.Lifetime = max(existing.Lifetime, minLifetime)
	tomb.RecentSource = ""
	if source.IsUser() {
		tomb.RecentSource = source.User.UID
	}
	server.applyBanUpdate(tomb, source, except)
}

//
// handlers, by command
//

// banHandler decodes the modern BAN form: an absolute creation TS plus
// duration and lifetime, so both sides converge on the same record no
// matter how long the frame took to arrive. Duration zero is a deletion.
func banHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.Valid() {
		server.protocolViolation(link, "ban-source", "BAN with unknown source [%s] from %s", msg.Source, link.Name())
		return false
	}

	var banType bans.Type
	var mask, matchUser, matchHost string
	user, host := msg.Params[1], msg.Params[2]
	switch msg.Params[0] {
	case "K":
		banType = bans.KLine
		matchUser, matchHost = user, host
		mask = user + "@" + host
	case "R":
		banType = bans.Resv
		mask = host
	default:
		server.protocolViolation(link, "ban-type:"+msg.Params[0],
			"dropped BAN with unsupported type [%s] from %s", msg.Params[0], link.Name())
		return false
	}

	created, ok1 := parseTS(msg.Params[3])
	duration, ok2 := parseTS(msg.Params[4])
	lifetime, ok3 := parseTS(msg.Params[5])
	if !ok1 || !ok2 || !ok3 {
		server.protocolViolation(link, "ban-times", "dropped BAN with unparseable times from %s", link.Name())
		return false
	}
	oper, reason := msg.Params[6], msg.Params[7]

	minLifetime := int64(server.Config().Bans.MinLifetime / time.Second)
	incoming := bans.Ban{
		ID:        bans.ComputeID(banSourceSID(source), mask),
		Type:      banType,
		Match:     mask,
		MatchUser: matchUser,
		MatchHost: matchHost,
		Reason:    reason,
		Added:     created,
		Modified:  created,
		Duration:  duration,
		Lifetime:  max(lifetime, duration, minLifetime),
		AServer:   server.banServerName(source),
		AUser:     oper,
		Disabled:  duration == 0,
	}
	if source.IsUser() {
		incoming.RecentSource = source.User.UID
	}

	result, action := server.applyBanUpdate(incoming, source, link)
	if action != bans.Unchanged {
		verb := "added"
		if result.Disabled {
			verb = "removed"
		}
		server.snomasks.Send(sno.LocalXline, fmt.Sprintf("%s %s a network %s for [%s] [%s]",
			source.Name(), verb, banType, mask, result.Reason))
	}
	return false
}

func capabHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	if link.established {
		server.protocolViolation(link, "capab-late", "CAPAB after registration from %s", link.Name())
		return false
	}
	link.caps.Add(caps.FromString(msg.Params[0]).List()...)
	return false
}

// encapHandler unwraps ENCAP. The target mask is ignored: every ban we
// receive is global. Subcommands we don't understand are passed through
// untouched so extensions can ride the mesh.
func encapHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.Valid() {
		server.protocolViolation(link, "encap-source", "ENCAP with unknown source [%s] from %s", msg.Source, link.Name())
		return false
	}
	subcmd := strings.ToUpper(msg.Params[1])
	args := msg.Params[2:]

	switch subcmd {
	case "KLINE":
		if !source.IsUser() || len(args) < 4 {
			server.protocolViolation(link, "encap-kline", "dropped malformed ENCAP KLINE from %s", link.Name())
			return false
		}
		duration, ok := parseTS(args[0])
		if !ok || duration == 0 {
			server.protocolViolation(link, "encap-kline", "dropped ENCAP KLINE with bad duration from %s", link.Name())
			return false
		}
		mask := args[1] + "@" + args[2]
		incoming := server.banFromWire(source, bans.KLine, mask, args[1], args[2], args[3], duration)
		_, action := server.applyBanUpdate(incoming, source, link)
		if action != bans.Unchanged {
			server.snomasks.Send(sno.LocalXline, fmt.Sprintf("%s added a network K-Line for [%s] [%s]",
				source.Name(), mask, args[3]))
		}

	case "UNKLINE":
		if !source.IsUser() || len(args) < 2 {
			server.protocolViolation(link, "encap-unkline", "dropped malformed ENCAP UNKLINE from %s", link.Name())
			return false
		}
		server.removeBanByMask(source, link, bans.KLine, args[0]+"@"+args[1])

	case "DLINE":
		if len(args) < 3 {
			server.protocolViolation(link, "encap-dline", "dropped malformed ENCAP DLINE from %s", link.Name())
			return false
		}
		duration, ok := parseTS(args[0])
		if !ok || duration == 0 {
			server.protocolViolation(link, "encap-dline", "dropped ENCAP DLINE with bad duration from %s", link.Name())
			return false
		}
		incoming := server.banFromWire(source, bans.DLine, args[1], "", "", args[2], duration)
		_, action := server.applyBanUpdate(incoming, source, link)
		if action != bans.Unchanged {
			server.snomasks.Send(sno.LocalXline, fmt.Sprintf("%s added a network D-Line for [%s] [%s]",
				source.Name(), args[1], args[2]))
		}

	case "UNDLINE":
		if len(args) < 1 {
			server.protocolViolation(link, "encap-undline", "dropped malformed ENCAP UNDLINE from %s", link.Name())
			return false
		}
		server.removeBanByMask(source, link, bans.DLine, args[0])

	case "RESV":
		if len(args) < 4 {
			server.protocolViolation(link, "encap-resv", "dropped malformed ENCAP RESV from %s", link.Name())
			return false
		}
		duration, ok := parseTS(args[0])
		if !ok || duration == 0 {
			server.protocolViolation(link, "encap-resv", "dropped ENCAP RESV with bad duration from %s", link.Name())
			return false
		}
		incoming := server.banFromWire(source, bans.Resv, args[1], "", "", args[3], duration)
		_, action := server.applyBanUpdate(incoming, source, link)
		if action != bans.Unchanged {
			server.snomasks.Send(sno.LocalXline, fmt.Sprintf("%s added a network RESV for [%s] [%s]",
				source.Name(), args[1], args[3]))
		}

	case "UNRESV":
		if len(args) < 1 {
			server.protocolViolation(link, "encap-unresv", "dropped malformed ENCAP UNRESV from %s", link.Name())
			return false
		}
		server.removeBanByMask(source, link, bans.Resv, args[0])

	case "NICKDELAY":
		if !source.IsServer() || len(args) < 2 {
			server.protocolViolation(link, "encap-nickdelay", "dropped malformed ENCAP NICKDELAY from %s", link.Name())
			return false
		}
		duration, ok := parseTS(args[0])
		if !ok {
			server.protocolViolation(link, "encap-nickdelay", "dropped ENCAP NICKDELAY with bad duration from %s", link.Name())
			return false
		}
		if duration == 0 {
			server.removeBanByMask(source, link, bans.NickDelay, args[1])
			return false
		}
		incoming := server.banFromWire(source, bans.NickDelay, args[1], "", "", "Nick delayed", duration)
		server.applyBanUpdate(incoming, source, link)

	default:
		server.propagate(link, msg)
	}
	return false
}

// removeBanByMask serves the mask-keyed deletion forms (UNKLINE and
// friends): look the record up semantically, then tombstone it.
func (server *Server) removeBanByMask(source Actor, except *Link, banType bans.Type, mask string) {
	existing := server.bans.FindByUserInput(banType, mask)
	if existing == nil {
		server.logger.Debug("bans", "no existing ban to remove", string(banType), mask)
		return
	}
	server.disableBan(source, except, existing)
	server.snomasks.Send(sno.LocalXline, fmt.Sprintf("%s removed the network %s for [%s]",
		source.Name(), banType, mask))
}

func errorHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	reason := "<no reason>"
	if len(msg.Params) > 0 {
		reason = msg.Params[0]
	}
	server.logger.Error("server", "ERROR from link", link.Name(), reason)
	link.markDead()
	server.disconnectLink(link, "ERROR: "+reason)
	return true
}

// euidHandler decodes the extended user introduction.
func euidHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsServer() {
		server.protocolViolation(link, "euid-source", "EUID with non-server source [%s] from %s", msg.Source, link.Name())
		return false
	}
	account := msg.Params[9]
	if account == "*" {
		account = ""
	}
	return server.introduceUser(link, source.Peer, userIntro{
		nick:     msg.Params[0],
		hopCount: msg.Params[1],
		nickTS:   msg.Params[2],
		umodes:   msg.Params[3],
		ident:    msg.Params[4],
		cloak:    msg.Params[5],
		ip:       msg.Params[6],
		uid:      msg.Params[7],
		host:     msg.Params[8],
		account:  account,
		realname: msg.Params[10],
	})
}

// userIntro carries the fields of an EUID or UID frame.
type userIntro struct {
	nick, hopCount, nickTS, umodes, ident, cloak, ip, uid, host, account, realname string
}

// introduceUser registers a user advertised by a peer and relays it on. A
// duplicate UID is fatal to the link; a nick collision is settled by TS.
func (server *Server) introduceUser(link *Link, origin *Peer, intro userIntro) bool {
	if !ts6.ValidUID(intro.uid) || !strings.HasPrefix(intro.uid, origin.TS6SID) {
		server.protocolViolation(link, "euid-uid", "dropped introduction of invalid UID [%s] from %s", intro.uid, link.Name())
		return false
	}
	if server.pool.UserByUID(intro.uid) != nil {
		server.logger.Error("server", "duplicate UID", intro.uid, link.Name())
		server.disconnectLink(link, "UID collision")
		return true
	}
	if !utils.ValidNick(server.Config().Limits.NickLen, intro.nick) {
		server.protocolViolation(link, "euid-nick", "dropped introduction of invalid nick [%s] from %s", intro.nick, link.Name())
		return false
	}
	nickTS, ok := parseTS(intro.nickTS)
	if !ok {
		server.protocolViolation(link, "euid-ts", "dropped introduction with bad nick TS from %s", link.Name())
		return false
	}
	hopCount, _ := strconv.Atoi(intro.hopCount)

	if existing := server.pool.UserByNick(intro.nick); existing != nil {
		if !server.resolveNickCollision(existing, nickTS, intro.uid, link) {
			return false
		}
	}

	sidRaw, counter, err := ts6.DecodeUID(intro.uid)
	if err != nil {
		server.protocolViolation(link, "euid-uid", "dropped introduction of undecodable UID [%s] from %s", intro.uid, link.Name())
		return false
	}
	user := NewUser(UserID{SID: ServerID(sidRaw), Counter: counter})
	user.Nick = intro.nick
	user.NickTS = nickTS
	user.HopCount = hopCount
	user.Ident = intro.ident
	user.Host = intro.host
	user.Cloak = intro.cloak
	user.IP = intro.ip
	user.Realname = intro.realname
	user.Account = intro.account
	user.server = origin.ID
	user.location = link

	umodeChanges, _ := origin.Umodes.ParseUmodes(intro.umodes)
	user.ApplyUmodeChanges(umodeChanges)

	if err := server.pool.AddUser(user); err != nil {
		server.logger.Error("server", "cannot register user", intro.uid, err.Error())
		server.disconnectLink(link, "UID collision")
		return true
	}

	server.logger.Debug("server", "new user", user.Nick, user.UID)
	server.events.Fire("user.new", user)
	server.propagateUserIntro(link, origin, user)
	return false
}

// resolveNickCollision settles a nick collision by nick TS: the newer
// introduction loses; a tie kills both. Returns whether the incoming user
// may register.
func (server *Server) resolveNickCollision(existing *User, incomingTS int64, incomingUID string, link *Link) bool {
	server.snomasks.Send(sno.Protocol, fmt.Sprintf("Nick collision on %s (%d vs %d)",
		existing.Nick, existing.NickTS, incomingTS))

	if incomingTS == existing.NickTS {
		server.killUser(existing, "Nick collision", nil)
		link.Send(server.ts6sid, "KILL", incomingUID, server.name+" (Nick collision)")
		return false
	}
	if incomingTS > existing.NickTS {
		link.Send(server.ts6sid, "KILL", incomingUID, server.name+" (Nick collision)")
		return false
	}
	server.killUser(existing, "Nick collision", nil)
	return true
}

// joinHandler decodes the lightweight post-burst JOIN: either "0" (leave
// everything) or a timestamped join to a single channel.
func joinHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsUser() {
		server.protocolViolation(link, "join-source", "JOIN with non-user source [%s] from %s", msg.Source, link.Name())
		return false
	}
	user := source.User

	if msg.Params[0] == "0" {
		for _, cfname := range user.Channels() {
			channel := server.pool.Channel(cfname)
			if channel == nil {
				continue
			}
			if channel.Remove(user) {
				server.events.Fire("channel_part", &PartEvent{Channel: channel, User: user, Reason: "Left all channels"})
				server.destroyChannelMaybe(channel)
			}
		}
		server.propagate(link, msg)
		return false
	}

	if len(msg.Params) < 2 {
		server.protocolViolation(link, "join-params", "dropped truncated JOIN from %s", link.Name())
		return false
	}
	theirTS, ok := parseTS(msg.Params[0])
	if !ok {
		server.protocolViolation(link, "join-ts", "dropped JOIN with bad TS from %s", link.Name())
		return false
	}
	chname := msg.Params[1]
	if !utils.ValidChannelName(chname) {
		server.protocolViolation(link, "join-channel", "dropped JOIN to invalid channel [%s] from %s", chname, link.Name())
		return false
	}
	if user.Location() != link {
		server.protocolViolation(link, "join-route", "dropped JOIN for user not behind %s", link.Name())
		return false
	}

	channel := server.pool.Channel(utils.Casefold(chname))
	if channel == nil {
		channel = NewChannel(chname, theirTS)
		server.pool.AddChannel(channel)
		server.ApplyModeChanges(Actor{Peer: server.me}, channel, server.Config().DefaultChannelModes(), true, false)
	} else {
		// a lower TS on a plain JOIN resets the channel: modes are wiped
		channel.TakeLowerTime(theirTS, false)
	}

	if channel.Add(user) {
		event := &JoinEvent{Channel: channel, User: user}
		server.events.Fire("channel_join", event)
		server.events.Fire("user_joined", event)
	}

	server.propagate(link, ircmsg.MakeMessage(nil, user.UID, "JOIN",
		strconv.FormatInt(channel.Time, 10), channel.Name, "+"))
	return false
}

func kickHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.Valid() {
		server.protocolViolation(link, "kick-source", "KICK with unknown source [%s] from %s", msg.Source, link.Name())
		return false
	}
	channel := server.pool.Channel(utils.Casefold(msg.Params[0]))
	target := server.pool.UserByUID(msg.Params[1])
	if channel == nil || target == nil {
		server.logger.Debug("server", "dropped KICK for unknown channel or user", msg.Params[0], msg.Params[1])
		return false
	}
	reason := source.Name()
	if len(msg.Params) > 2 && msg.Params[2] != "" {
		reason = msg.Params[2]
	}
	if kickLen := server.Config().Limits.KickLen; len(reason) > kickLen {
		reason = reason[:kickLen]
	}

	if !channel.Remove(target) {
		return false
	}
	server.events.Fire("channel_kick", &KickEvent{Channel: channel, Source: source, Target: target, Reason: reason})
	server.destroyChannelMaybe(channel)
	server.propagate(link, ircmsg.MakeMessage(nil, msg.Source, "KICK", channel.Name, target.UID, reason))
	return false
}

func killHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	target := server.pool.UserByUID(msg.Params[0])
	if target == nil {
		target = server.pool.UserByNick(msg.Params[0])
	}
	if target == nil {
		server.logger.Debug("server", "dropped KILL for unknown user", msg.Params[0])
		return false
	}
	server.logger.Info("kill", "user killed", target.Nick, msg.Params[1])
	server.quitUser(target, "Killed ("+msg.Params[1]+")")
	server.propagate(link, msg)
	return false
}

// klineHandler decodes the legacy direct K-Line (KLN capability). The
// duration is relative; the target mask is ignored, bans are global.
func klineHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsUser() {
		server.protocolViolation(link, "kline-source", "KLINE with non-user source [%s] from %s", msg.Source, link.Name())
		return false
	}
	duration, ok := parseTS(msg.Params[1])
	if !ok || duration == 0 {
		server.protocolViolation(link, "kline-duration", "dropped KLINE with bad duration from %s", link.Name())
		return false
	}
	user, host, reason := msg.Params[2], msg.Params[3], msg.Params[4]
	mask := user + "@" + host

	incoming := server.banFromWire(source, bans.KLine, mask, user, host, reason, duration)
	_, action := server.applyBanUpdate(incoming, source, link)
	if action != bans.Unchanged {
		server.snomasks.Send(sno.LocalXline, fmt.Sprintf("%s added a network K-Line for [%s] [%s]",
			source.Name(), mask, reason))
	}
	return false
}

// knockHandler relays a knock on an invite-only channel. Delivery to the
// channel's operators happens at the client edge; the core only routes.
func knockHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsUser() {
		server.protocolViolation(link, "knock-source", "KNOCK with non-user source [%s] from %s", msg.Source, link.Name())
		return false
	}
	channel := server.pool.Channel(utils.Casefold(msg.Params[0]))
	if channel == nil {
		server.logger.Debug("server", "KNOCK for unknown channel", msg.Params[0], link.Name())
		return false
	}
	server.events.Fire("channel.knock", &KnockEvent{Channel: channel, User: source.User})
	server.propagate(link, msg)
	return false
}

// messageHandler routes PRIVMSG and NOTICE. The core carries no client
// sockets, so routing means picking which links need the frame; the
// user.can_message event gets a veto first.
func messageHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsUser() {
		// server notices pass through untouched
		server.propagate(link, msg)
		return false
	}
	target, text := msg.Params[0], msg.Params[1]

	if utils.ValidChannelName(target) {
		channel := server.pool.Channel(utils.Casefold(target))
		if channel == nil {
			return false
		}
		event := &MessageEvent{Source: source.User, Channel: channel, Command: msg.Command, Text: text}
		if server.events.Fire("user.can_message", event).Vetoed() {
			return false
		}
		for _, other := range server.channelLinks(channel, link) {
			other.SendMessage(msg)
		}
		return false
	}

	targetUser := server.pool.UserByUID(target)
	if targetUser == nil {
		targetUser = server.pool.UserByNick(target)
	}
	if targetUser == nil {
		server.sendNumeric(source.User, ERR_NOSUCHNICK, utils.SafeErrorParam(target), "No such nick")
		return false
	}
	event := &MessageEvent{Source: source.User, Target: targetUser, Command: msg.Command, Text: text}
	if server.events.Fire("user.can_message", event).Vetoed() {
		return false
	}
	if loc := targetUser.Location(); loc != nil && loc != link {
		loc.SendMessage(msg)
	}
	return false
}

// modeHandler decodes MODE: user mode changes, plus the legacy untimed
// channel MODE some implementations still emit instead of TMODE.
func modeHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.Valid() {
		server.protocolViolation(link, "mode-source", "MODE with unknown source [%s] from %s", msg.Source, link.Name())
		return false
	}
	cmodeTable, umodeTable := server.perspectiveFor(source)

	if utils.ValidChannelName(msg.Params[0]) {
		channel := server.pool.Channel(utils.Casefold(msg.Params[0]))
		if channel == nil {
			return false
		}
		changes, _ := cmodeTable.ParseCmodes(msg.Params[1:]...)
		applied := server.ApplyModeChanges(source, channel, changes, true, true)
		if len(applied) > 0 {
			server.propagateTMODE(link, source, channel, applied)
		}
		return false
	}

	target := server.pool.UserByUID(msg.Params[0])
	if target == nil {
		target = server.pool.UserByNick(msg.Params[0])
	}
	if target == nil {
		server.logger.Debug("server", "dropped MODE for unknown user", msg.Params[0])
		return false
	}
	changes, _ := umodeTable.ParseUmodes(msg.Params[1])
	if applied := target.ApplyUmodeChanges(changes); len(applied) > 0 {
		server.propagate(link, msg)
	}
	return false
}

func nickHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsUser() {
		server.protocolViolation(link, "nick-source", "NICK with non-user source [%s] from %s", msg.Source, link.Name())
		return false
	}
	user := source.User
	newNick := msg.Params[0]
	nickTS, ok := parseTS(msg.Params[1])
	if !ok {
		server.protocolViolation(link, "nick-ts", "dropped NICK with bad TS from %s", link.Name())
		return false
	}
	if !utils.ValidNick(server.Config().Limits.NickLen, newNick) {
		server.protocolViolation(link, "nick-invalid", "dropped invalid nick change [%s] from %s", newNick, link.Name())
		return false
	}

	if existing := server.pool.UserByNick(newNick); existing != nil && existing != user {
		if !server.resolveNickCollision(existing, nickTS, user.UID, link) {
			server.killUser(user, "Nick collision", link)
			return false
		}
	}

	if err := server.pool.SetNick(user, newNick); err != nil {
		server.logger.Debug("server", "nick change refused", user.Nick, newNick, err.Error())
		return false
	}
	user.NickTS = nickTS
	server.propagate(link, msg)
	return false
}

func partHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsUser() {
		server.protocolViolation(link, "part-source", "PART with non-user source [%s] from %s", msg.Source, link.Name())
		return false
	}
	user := source.User
	reason := ""
	if len(msg.Params) > 1 {
		reason = msg.Params[1]
	}

	for _, chname := range strings.Split(msg.Params[0], ",") {
		channel := server.pool.Channel(utils.Casefold(chname))
		if channel == nil {
			continue
		}
		if channel.Remove(user) {
			server.events.Fire("channel_part", &PartEvent{Channel: channel, User: user, Reason: reason})
			server.destroyChannelMaybe(channel)
		}
	}
	server.propagate(link, msg)
	return false
}

func passHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	if link.established {
		server.disconnectLink(link, "PASS after registration")
		return true
	}
	if msg.Params[1] != "TS" || msg.Params[2] != strconv.Itoa(tsCurrent) {
		server.disconnectLink(link, "Incompatible TS version")
		return true
	}
	if !ts6.ValidSID(msg.Params[3]) {
		server.disconnectLink(link, "Invalid SID")
		return true
	}
	link.theirPass = msg.Params[0]
	link.theirSID = msg.Params[3]
	return false
}

// pingHandler answers keepalives. The first PING from a bursting peer
// doubles as its end-of-burst marker.
func pingHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	if len(msg.Params) > 1 && msg.Params[1] != server.name && msg.Params[1] != server.ts6sid {
		if dest := server.findPeer(msg.Params[1]); dest != nil && dest.Via() != nil {
			dest.Via().SendMessage(msg)
		}
		return false
	}
	link.Send(server.ts6sid, "PONG", server.name, msg.Params[0])

	if peer := link.peer; peer != nil && peer.Bursting {
		server.endBurst(link)
	}
	return false
}

func pongHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	if len(msg.Params) > 1 && msg.Params[1] != server.name && msg.Params[1] != server.ts6sid {
		if dest := server.findPeer(msg.Params[1]); dest != nil && dest.Via() != nil {
			dest.Via().SendMessage(msg)
		}
		return false
	}
	link.awaitingPong = false
	if !link.synced {
		link.synced = true
		server.snomasks.Send(sno.Servers, fmt.Sprintf("Link with %s synced", link.Name()))
	}
	return false
}

func quitHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsUser() {
		server.protocolViolation(link, "quit-source", "QUIT with non-user source [%s] from %s", msg.Source, link.Name())
		return false
	}
	reason := "Client Quit"
	if len(msg.Params) > 0 && msg.Params[0] != "" {
		reason = msg.Params[0]
	}
	server.quitUser(source.User, reason)
	server.propagate(link, msg)
	return false
}

// resvHandler decodes the clustered RESV form.
func resvHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.Valid() {
		server.protocolViolation(link, "resv-source", "RESV with unknown source [%s] from %s", msg.Source, link.Name())
		return false
	}
	duration, ok := parseTS(msg.Params[1])
	if !ok || duration == 0 {
		server.protocolViolation(link, "resv-duration", "dropped RESV with bad duration from %s", link.Name())
		return false
	}
	mask, reason := msg.Params[2], msg.Params[3]

	incoming := server.banFromWire(source, bans.Resv, mask, "", "", reason, duration)
	_, action := server.applyBanUpdate(incoming, source, link)
	if action != bans.Unchanged {
		server.snomasks.Send(sno.LocalXline, fmt.Sprintf("%s added a network RESV for [%s] [%s]",
			source.Name(), mask, reason))
	}
	return false
}

// saveHandler settles a nick collision without a kill: the named user is
// forced onto their UID as a nick. A stale TS means the user has since
// renamed and the SAVE no longer applies.
func saveHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsServer() {
		server.protocolViolation(link, "save-source", "SAVE with non-server source [%s] from %s", msg.Source, link.Name())
		return false
	}
	user := server.pool.UserByUID(msg.Params[0])
	if user == nil {
		server.logger.Debug("server", "SAVE for unknown user", msg.Params[0], link.Name())
		return false
	}
	ts, ok := parseTS(msg.Params[1])
	if !ok {
		server.protocolViolation(link, "save-ts", "dropped SAVE with bad TS from %s", link.Name())
		return false
	}
	if user.Nick == user.UID || ts != user.NickTS {
		return false
	}

	server.snomasks.Send(sno.Protocol, fmt.Sprintf("Saving %s from a nick collision", user.Nick))
	if err := server.pool.SetNick(user, user.UID); err != nil {
		server.logger.Error("server", "cannot save user", user.UID, err.Error())
		return false
	}
	user.NickTS = saveNickTS
	server.propagateSave(link, user, ts)
	return false
}

func serverHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	if link.established {
		server.disconnectLink(link, "SERVER after registration")
		return true
	}
	if link.gotServer {
		server.disconnectLink(link, "Duplicate SERVER")
		return true
	}
	if link.theirPass == "" || link.theirSID == "" {
		server.disconnectLink(link, "No password")
		return true
	}
	name, desc := msg.Params[0], msg.Params[2]

	conf := server.Config().Links[strings.ToLower(name)]
	if conf == nil {
		server.snomasks.Send(sno.Servers, fmt.Sprintf("Refusing link from unconfigured server %s", name))
		server.disconnectLink(link, "Server not configured")
		return true
	}
	if !conf.CheckPassword(link.theirPass) {
		server.snomasks.Send(sno.Servers, fmt.Sprintf("Refusing link from %s: bad password", name))
		server.disconnectLink(link, "Invalid password")
		return true
	}
	if link.theirSID == server.ts6sid || server.pool.PeerByTS6(link.theirSID) != nil {
		server.disconnectLink(link, "SID already in use")
		return true
	}
	if strings.ToLower(name) == server.nameCasefolded || server.pool.PeerByName(name) != nil {
		server.disconnectLink(link, "Server name already in use")
		return true
	}

	link.gotServer = true
	link.serverName = name
	link.serverDesc = desc
	link.name = conf.Name()

	if !link.sentServer {
		server.sendHandshake(link, conf)
	}
	link.Send("", "SVINFO", strconv.Itoa(tsCurrent), strconv.Itoa(tsMin), "0",
		strconv.FormatInt(time.Now().Unix(), 10))
	return false
}

// sidHandler decodes the introduction of a server behind a peer.
func sidHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsServer() {
		server.protocolViolation(link, "sid-source", "SID with non-server source [%s] from %s", msg.Source, link.Name())
		return false
	}
	name, sidStr, desc := msg.Params[0], msg.Params[2], msg.Params[3]
	if !ts6.ValidSID(sidStr) {
		server.protocolViolation(link, "sid-invalid", "dropped SID with invalid id [%s] from %s", sidStr, link.Name())
		return false
	}
	sidRaw, err := ts6.DecodeSID(sidStr)
	if err != nil {
		server.protocolViolation(link, "sid-invalid", "dropped SID with undecodable id [%s] from %s", sidStr, link.Name())
		return false
	}
	if sidStr == server.ts6sid || server.pool.PeerByTS6(sidStr) != nil {
		server.logger.Error("server", "SID collision", sidStr, link.Name())
		server.disconnectLink(link, "SID collision")
		return true
	}
	if server.pool.PeerByName(name) != nil {
		server.disconnectLink(link, "Server name collision")
		return true
	}
	hopCount, _ := strconv.Atoi(msg.Params[1])

	peer := NewPeer(ServerID(sidRaw), name)
	peer.Description = desc
	peer.HopCount = hopCount
	peer.via = link
	peer.uplink = source.Peer.ID
	peer.Bursting = source.Peer.Bursting
	if err := server.pool.AddPeer(peer); err != nil {
		server.disconnectLink(link, "SID collision")
		return true
	}

	server.snomasks.Send(sno.Servers, fmt.Sprintf("Server %s[%s] introduced by %s", name, sidStr, source.Peer.Name))
	server.propagate(link, msg)
	return false
}

// sjoinHandler merges a channel burst: TS collision resolution, then
// membership, then the mode diff, all in one frame.
func sjoinHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsServer() {
		server.protocolViolation(link, "sjoin-source", "SJOIN with non-server source [%s] from %s", msg.Source, link.Name())
		return false
	}
	origin := source.Peer

	theirTS, ok := parseTS(msg.Params[0])
	if !ok {
		server.protocolViolation(link, "sjoin-ts", "dropped SJOIN with bad TS from %s", link.Name())
		return false
	}
	chname := msg.Params[1]
	if !utils.ValidChannelName(chname) {
		server.protocolViolation(link, "sjoin-channel", "dropped SJOIN to invalid channel [%s] from %s", chname, link.Name())
		return false
	}

	channel := server.pool.Channel(utils.Casefold(chname))
	if channel == nil {
		channel = NewChannel(chname, theirTS)
		server.pool.AddChannel(channel)
	}

	// the accept decision compares their advertised TS against the
	// channel TS as it stood before any lowering
	oldTime := channel.Time
	theirsWin := theirTS < oldTime
	tie := theirTS == oldTime
	acceptModes := theirsWin || tie

	oldStatus := channel.statusSnapshot()
	channel.TakeLowerTime(theirTS, true)

	// advertised simple modes, read against the origin's letter table;
	// anything that isn't a simple or parameter mode has no business in
	// an SJOIN mode string
	rawAdvertised, _ := origin.Cmodes.ParseCmodes(msg.Params[2 : len(msg.Params)-1]...)
	var advertised modes.ModeChanges
	for _, change := range rawAdvertised {
		binding, known := server.cmodes.ByName(change.Name)
		if !known || change.Op != modes.Add {
			continue
		}
		switch binding.Type {
		case modes.Normal, modes.Parameter, modes.ParameterSet, modes.Key:
			advertised = append(advertised, change)
		}
	}

	// membership: only users that came to us over this link may be
	// joined by it
	type sjoinMember struct {
		user     *User
		statuses []string
	}
	var members []sjoinMember
	var statusAdds modes.ModeChanges
	for _, token := range strings.Fields(msg.Params[len(msg.Params)-1]) {
		statusNames, uid := origin.Cmodes.SplitMembershipPrefixes(token)
		user := server.pool.UserByUID(uid)
		if user == nil {
			server.protocolViolation(link, "sjoin-member", "dropped SJOIN member with unknown UID [%s] from %s", uid, link.Name())
			continue
		}
		if user.Location() != link {
			continue
		}
		if channel.Add(user) {
			event := &JoinEvent{Channel: channel, User: user, Burst: true}
			server.events.Fire("channel_join", event)
			server.events.Fire("user_joined", event)
		}
		member := sjoinMember{user: user}
		if acceptModes {
			member.statuses = statusNames
			for _, statusName := range statusNames {
				statusAdds = append(statusAdds, modes.ModeChange{Op: modes.Add, Name: statusName, Param: user.UID})
			}
		}
		members = append(members, member)
	}

	// when their TS wins, everything of ours that they did not
	// re-advertise is revoked
	var changes modes.ModeChanges
	if theirsWin {
		advertisedNames := make(utils.HashSet[string])
		for _, change := range advertised {
			advertisedNames.Add(change.Name)
		}
		for _, name := range channel.SimpleModes() {
			if advertisedNames.Has(name) {
				continue
			}
			changes = append(changes, modes.ModeChange{Op: modes.Remove, Name: name, Param: channel.ModeParam(name)})
		}
		kept := make(utils.HashSet[string])
		for _, change := range statusAdds {
			kept.Add(change.Name + " " + change.Param)
		}
		for _, holding := range oldStatus {
			uid := holding.UID.TS6()
			if kept.Has(holding.Name + " " + uid) {
				continue
			}
			changes = append(changes, modes.ModeChange{Op: modes.Remove, Name: holding.Name, Param: uid})
		}
	}
	if acceptModes {
		changes = append(changes, advertised...)
		changes = append(changes, statusAdds...)
	}
	server.ApplyModeChanges(source, channel, changes, true, true)

	server.events.Fire("channel_burst", &ChannelBurstEvent{Channel: channel, Peer: origin, TheirTS: theirTS})

	var forward []sjoinForwardMember
	for _, member := range members {
		forward = append(forward, sjoinForwardMember{user: member.user, statuses: member.statuses})
	}
	var forwardModes modes.ModeChanges
	if acceptModes {
		forwardModes = advertised
	}
	server.propagateSJOIN(link, origin, channel, forwardModes, forward)
	return false
}

func squitHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	reason := ""
	if len(msg.Params) > 1 {
		reason = msg.Params[1]
	}

	target := server.findPeer(msg.Params[0])
	if msg.Params[0] == server.name || msg.Params[0] == server.ts6sid {
		server.disconnectLink(link, "SQUIT")
		return true
	}
	if target == nil {
		server.logger.Debug("server", "dropped SQUIT for unknown server", msg.Params[0])
		return false
	}

	if target.Via() == link {
		// a server behind this link has split
		sourceName := link.Name()
		if source.Valid() {
			sourceName = source.Name()
		}
		server.snomasks.Broadcast(sno.Servers, fmt.Sprintf("Remote SQUIT %s from %s (%s)",
			target.Name, sourceName, reason))
		server.removePeer(target, reason)
		server.propagate(link, msg)
		return false
	}
	if direct := target.Link(); direct != nil {
		// an operator somewhere wants our own link cut
		server.disconnectLink(direct, reason)
		return false
	}
	// route toward the target
	if via := target.Via(); via != nil {
		via.SendMessage(msg)
	}
	return false
}

func svinfoHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	if link.established {
		server.protocolViolation(link, "svinfo-late", "SVINFO after registration from %s", link.Name())
		return false
	}
	if !link.gotServer {
		server.disconnectLink(link, "SVINFO before SERVER")
		return true
	}
	theirCurrent, err1 := strconv.Atoi(msg.Params[0])
	theirMin, err2 := strconv.Atoi(msg.Params[1])
	if err1 != nil || err2 != nil || theirCurrent < tsMin || theirMin > tsCurrent {
		server.disconnectLink(link, "Incompatible TS version")
		return true
	}
	link.theirTSInfo = true
	return server.establishLink(link)
}

// establishLink promotes a registered link to a live peer: from here on
// the peer is part of the mesh and everyone else hears about it.
func (server *Server) establishLink(link *Link) bool {
	sidRaw, err := ts6.DecodeSID(link.theirSID)
	if err != nil {
		server.disconnectLink(link, "Invalid SID")
		return true
	}
	peer := NewPeer(ServerID(sidRaw), link.serverName)
	peer.Description = link.serverDesc
	peer.HopCount = 1
	peer.Caps = link.caps
	peer.link = link
	peer.via = link
	peer.Bursting = true
	if err := server.pool.AddPeer(peer); err != nil {
		server.disconnectLink(link, "SID already in use")
		return true
	}
	link.peer = peer
	link.established = true
	link.registeredAt = time.Now().Unix()
	link.lastPing = link.registeredAt

	server.snomasks.Send(sno.Servers, fmt.Sprintf("Link with %s[%s] established", peer.Name, peer.TS6SID))
	server.logger.Info("server", "link established", peer.Name, peer.TS6SID)

	server.propagate(link, ircmsg.MakeMessage(nil, server.ts6sid, "SID",
		peer.Name, "2", peer.TS6SID, peer.Description))
	server.events.Fire("server.send_burst", link)
	return false
}

// tbHandler decodes a topic burst: accepted iff we have no topic or
// theirs is older.
func tbHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsServer() {
		server.protocolViolation(link, "tb-source", "TB with non-server source [%s] from %s", msg.Source, link.Name())
		return false
	}
	channel := server.pool.Channel(utils.Casefold(msg.Params[0]))
	if channel == nil {
		return false
	}
	topicTS, ok := parseTS(msg.Params[1])
	if !ok {
		server.protocolViolation(link, "tb-ts", "dropped TB with bad TS from %s", link.Name())
		return false
	}
	setBy := source.Peer.Name
	text := msg.Params[2]
	if len(msg.Params) > 3 {
		setBy = msg.Params[2]
		text = msg.Params[3]
	}
	if text == "" {
		return false
	}

	if topic := channel.Topic(); topic != nil && topicTS >= topic.Time {
		return false
	}
	if channel.DoTopic(text, setBy, topicTS, source.Peer.ID) {
		server.propagate(link, msg)
	}
	return false
}

// tmodeHandler decodes the timestamped channel mode change. A TS newer
// than the channel's means the sender lost a collision it has not heard
// about yet; the change is stale and dropped.
func tmodeHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.Valid() {
		server.protocolViolation(link, "tmode-source", "TMODE with unknown source [%s] from %s", msg.Source, link.Name())
		return false
	}
	theirTS, ok := parseTS(msg.Params[0])
	if !ok {
		server.protocolViolation(link, "tmode-ts", "dropped TMODE with bad TS from %s", link.Name())
		return false
	}
	channel := server.pool.Channel(utils.Casefold(msg.Params[1]))
	if channel == nil {
		server.logger.Debug("server", "dropped TMODE for unknown channel", msg.Params[1])
		return false
	}
	if theirTS > channel.Time {
		server.logger.Debug("server", "dropped stale TMODE", channel.Name, msg.Params[0])
		return false
	}

	cmodeTable, _ := server.perspectiveFor(source)
	changes, _ := cmodeTable.ParseCmodes(msg.Params[2:]...)
	applied := server.ApplyModeChanges(source, channel, changes, true, true)
	if len(applied) > 0 {
		server.propagateTMODE(link, source, channel, applied)
	}
	return false
}

// topicHandler decodes a live topic change from a user; unlike TB it is
// not TS-gated.
func topicHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsUser() {
		server.protocolViolation(link, "topic-source", "TOPIC with non-user source [%s] from %s", msg.Source, link.Name())
		return false
	}
	channel := server.pool.Channel(utils.Casefold(msg.Params[0]))
	if channel == nil {
		return false
	}
	text := msg.Params[1]
	if topicLen := server.Config().Limits.TopicLen; len(text) > topicLen {
		text = text[:topicLen]
	}
	channel.DoTopic(text, source.User.NickMaskString(), time.Now().Unix(), source.User.Server())
	server.propagate(link, ircmsg.MakeMessage(nil, msg.Source, "TOPIC", channel.Name, text))
	return false
}

// uidHandler decodes the pre-EUID user introduction; the visible host
// doubles as the real one and there is no account field.
func uidHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsServer() {
		server.protocolViolation(link, "uid-source", "UID with non-server source [%s] from %s", msg.Source, link.Name())
		return false
	}
	return server.introduceUser(link, source.Peer, userIntro{
		nick:     msg.Params[0],
		hopCount: msg.Params[1],
		nickTS:   msg.Params[2],
		umodes:   msg.Params[3],
		ident:    msg.Params[4],
		cloak:    msg.Params[5],
		ip:       msg.Params[6],
		uid:      msg.Params[7],
		host:     msg.Params[5],
		realname: msg.Params[8],
	})
}

func unklineHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.IsUser() {
		server.protocolViolation(link, "unkline-source", "UNKLINE with non-user source [%s] from %s", msg.Source, link.Name())
		return false
	}
	server.removeBanByMask(source, link, bans.KLine, msg.Params[1]+"@"+msg.Params[2])
	return false
}

func unresvHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	source := server.sourceActor(link, msg.Source)
	if !source.Valid() {
		server.protocolViolation(link, "unresv-source", "UNRESV with unknown source [%s] from %s", msg.Source, link.Name())
		return false
	}
	server.removeBanByMask(source, link, bans.Resv, msg.Params[1])
	return false
}

func wallopsHandler(server *Server, link *Link, msg ircmsg.Message) bool {
	server.propagate(link, msg)
	return false
}
