// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/junoircd/juno/irc/bans"
	"github.com/junoircd/juno/irc/caps"
	"github.com/junoircd/juno/irc/events"
	"github.com/junoircd/juno/irc/modes"
	"github.com/junoircd/juno/irc/sno"
	"github.com/junoircd/juno/irc/utils"
)

// onSendBurst relays the generic burst trigger to the TS6 layer. Other
// protocol modules would hook their own names here.
func (server *Server) onSendBurst(event *events.Event) {
	link, ok := event.Payload.(*Link)
	if !ok || link.peer == nil {
		return
	}
	server.events.Fire("server.send_ts6_burst", link)
}

func (server *Server) onSendTS6Burst(event *events.Event) {
	link, ok := event.Payload.(*Link)
	if !ok || link.peer == nil {
		return
	}
	server.sendBurst(link)
}

// sendBurst describes the whole network to a freshly established link:
// servers, users, channels, bans, then a PING whose PONG tells us the
// peer has caught up.
func (server *Server) sendBurst(link *Link) {
	server.burstServers(link)
	server.burstUsers(link)
	server.burstChannels(link)
	server.burstBans(link)
	link.Send(server.ts6sid, "PING", server.name, link.peer.TS6SID)
}

// burstServers introduces every server we know about, parents before
// children so the receiver can hang each one off its uplink.
func (server *Server) burstServers(link *Link) {
	peers := server.pool.Peers()
	sort.Slice(peers, func(i, j int) bool { return peers[i].HopCount < peers[j].HopCount })
	for _, peer := range peers {
		if peer == server.me || peer.Via() == link {
			continue
		}
		introducer := server.ts6sid
		if uplink := server.pool.Peer(peer.Uplink()); uplink != nil {
			introducer = uplink.TS6SID
		}
		link.Send(introducer, "SID", peer.Name,
			strconv.Itoa(peer.HopCount+1), peer.TS6SID, peer.Description)
	}
}

func (server *Server) burstUsers(link *Link) {
	users := server.pool.Users()
	sort.Slice(users, func(i, j int) bool { return users[i].UID < users[j].UID })
	for _, user := range users {
		if user.IsBanAgent() || user.Location() == link {
			continue
		}
		origin := server.pool.Peer(user.Server())
		if origin == nil {
			continue
		}
		server.sendUserIntro(link, origin, user)
	}
}

func (server *Server) burstChannels(link *Link) {
	channels := server.pool.Channels()
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].NameCasefolded < channels[j].NameCasefolded
	})
	for _, channel := range channels {
		server.burstChannel(link, channel)
	}
}

// burstChannel emits one channel as SJOIN lines against the peer's own
// letter table, splitting the nicklist when it cannot fit one frame, plus
// a TB for the topic where the peer takes topic bursts.
func (server *Server) burstChannel(link *Link, channel *Channel) {
	table := link.peer.Cmodes
	ts := strconv.FormatInt(channel.Time, 10)

	var changes modes.ModeChanges
	for _, name := range channel.SimpleModes() {
		changes = append(changes, modes.ModeChange{Op: modes.Add, Name: name, Param: channel.ModeParam(name)})
	}
	modeParams := []string{"+"}
	if lines := changes.Strings(table, 0, false); len(lines) != 0 {
		modeParams = lines[0]
	}

	overhead := 1 + len(server.ts6sid) + len(" SJOIN ") + len(ts) + 1 + len(channel.Name) + 3 + 2
	for _, param := range modeParams {
		overhead += len(param) + 1
	}
	var tlb utils.TokenLineBuilder
	tlb.Initialize(maxLineLen-overhead, " ")
	for _, id := range channel.Members() {
		user := server.pool.User(id)
		if user == nil {
			continue
		}
		tlb.Add(table.Prefixes(channel.StatusNames(id), true) + user.UID)
	}
	for _, nicks := range tlb.Lines() {
		params := append([]string{ts, channel.Name}, modeParams...)
		params = append(params, nicks)
		link.Send(server.ts6sid, "SJOIN", params...)
	}

	if topic := channel.Topic(); topic != nil && link.Caps().Has(caps.TB) {
		link.Send(server.ts6sid, "TB", channel.Name,
			strconv.FormatInt(topic.Time, 10), topic.SetBy, topic.Text)
	}
}

// burstBans shares the ban table, once per link lifetime. Tombstones only
// go to peers whose BAN form can represent them; expired records are
// skipped outright for everyone else.
func (server *Server) burstBans(link *Link) {
	if link.bansNegotiated {
		return
	}
	link.bansNegotiated = true

	now := time.Now().Unix()
	hasBanCap := link.Caps().Has(caps.BAN)
	records := server.bans.All()
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	for _, ban := range records {
		if now >= ban.PruneAt() {
			continue
		}
		if !hasBanCap {
			if ban.Disabled || now >= ban.ExpiresAt() {
				continue
			}
			// the legacy K-Line forms demand an operator source; stand
			// up the link's ban agent when no setter is online
			if ban.Type == bans.KLine && server.banWireUser(link, ban) == nil {
				server.ensureBanAgent(link)
			}
		}
		server.sendBan(link, ban)
	}
	server.retireBanAgent(link)
}

// endBurst marks the end of a peer's burst: the direct peer and every
// server behind the same link are caught up.
func (server *Server) endBurst(link *Link) {
	peer := link.peer
	if peer == nil || !peer.Bursting {
		return
	}
	peer.Bursting = false
	for _, other := range server.pool.Peers() {
		if other.Via() == link {
			other.Bursting = false
		}
	}
	users := len(server.pool.UsersOn(peer.ID))
	server.snomasks.Send(sno.Servers, fmt.Sprintf("End of burst from %s (%d users)", peer.Name, users))
}
