// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"time"
)

// A ban agent is a synthetic operator introduced to exactly one link, so
// that K-Lines whose setter has gone offline can still be voiced in the
// legacy operator-sourced forms during a burst. The agent exists from the
// first line that needs it until the end of the ban burst, and no other
// link ever hears of it.

func (server *Server) ensureBanAgent(link *Link) *User {
	if link.banAgent != nil {
		return link.banAgent
	}
	user := NewUser(server.nextUID())
	user.Nick = "Agent" + user.UID[3:]
	user.NickTS = time.Now().Unix()
	user.Ident = "bans"
	user.Host = server.name
	user.Cloak = server.name
	user.IP = "0"
	user.Realname = "ban propagation agent"
	user.server = server.sid
	user.banAgent = true
	user.Modes.Add("invisible")
	user.Modes.Add("ircop")
	user.Modes.Add("service")
	if err := server.pool.AddUser(user); err != nil {
		server.logger.Error("server", "cannot allocate ban agent", err.Error())
		return nil
	}
	link.banAgent = user
	server.sendUserIntro(link, server.me, user)
	server.logger.Debug("bans", "introduced ban agent", user.Nick, link.Name())
	return user
}

// retireBanAgent withdraws the link's ban agent once its lines are
// queued; the QUIT trails them in the send queue, so the far side
// processes everything in order.
func (server *Server) retireBanAgent(link *Link) {
	agent := link.banAgent
	if agent == nil {
		return
	}
	link.banAgent = nil
	link.Send(agent.UID, "QUIT", "Ban propagation complete")
	server.pool.RemoveUser(agent)
}
