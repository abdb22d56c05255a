// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"github.com/junoircd/juno/irc/utils"
)

// namesLineBudget caps each NAMES line's prefix-decorated nick payload.
const namesLineBudget = 500

// NamesEntry is the payload of the show_in_names and names_character
// events: show_in_names listeners veto to hide a member entirely,
// names_character listeners may rewrite the prefix string (an extension
// hook for bot markers and the like).
type NamesEntry struct {
	Channel  *Channel
	User     *User
	Prefixes string
}

// Names renders the channel's member list as NAMES payload lines of at
// most namesLineBudget characters each, members in join order. With
// multiPrefix every held status prefix appears in descending level order;
// otherwise only the highest.
func (server *Server) Names(channel *Channel, multiPrefix bool) []string {
	var tl utils.TokenLineBuilder
	tl.Initialize(namesLineBudget, " ")

	for _, uid := range channel.Members() {
		user := server.pool.User(uid)
		if user == nil {
			continue
		}
		entry := &NamesEntry{
			Channel:  channel,
			User:     user,
			Prefixes: server.cmodes.Prefixes(channel.StatusNames(uid), multiPrefix),
		}
		if server.events.Fire("show_in_names", entry).Vetoed() {
			continue
		}
		server.events.Fire("names_character", entry)
		tl.AddParts(entry.Prefixes, user.Nick)
	}
	return tl.Lines()
}

// SendNames delivers a full NAMES reply for the channel to a user,
// routed over their link.
func (server *Server) SendNames(user *User, channel *Channel, multiPrefix bool) {
	for _, line := range server.Names(channel, multiPrefix) {
		server.sendNumeric(user, RPL_NAMREPLY, "=", channel.Name, line)
	}
	server.sendNumeric(user, RPL_ENDOFNAMES, channel.Name, "End of /NAMES list")
}
