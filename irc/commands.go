// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"fmt"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/junoircd/juno/irc/sno"
)

// Command represents a command accepted on a server link.
type Command struct {
	handler      func(server *Server, link *Link, msg ircmsg.Message) bool
	usablePreReg bool
	minParams    int
}

// Run runs this command for the given link/message. It returns true if the
// link should be torn down.
func (cmd *Command) Run(server *Server, link *Link, msg ircmsg.Message) (exiting bool) {
	if !link.established && !cmd.usablePreReg {
		// nothing but the handshake is valid before registration
		server.logger.Warning("server", "link sent command before registration", link.Name(), msg.Command)
		server.disconnectLink(link, "Register first")
		return true
	}
	if len(msg.Params) < cmd.minParams {
		server.snomasks.SendOncePerLink(sno.Protocol, link, "truncated:"+msg.Command,
			fmt.Sprintf("dropped truncated %s from %s (%d params, want %d)", msg.Command, link.Name(), len(msg.Params), cmd.minParams))
		return false
	}

	return cmd.handler(server, link, msg)
}

// Commands holds all commands executable over a server link.
var Commands map[string]Command

func init() {
	Commands = map[string]Command{
		"BAN": {
			handler:   banHandler,
			minParams: 8,
		},
		"CAPAB": {
			handler:      capabHandler,
			usablePreReg: true,
			minParams:    1,
		},
		"ENCAP": {
			handler:   encapHandler,
			minParams: 2,
		},
		"ERROR": {
			handler:      errorHandler,
			usablePreReg: true,
			minParams:    0,
		},
		"EUID": {
			handler:   euidHandler,
			minParams: 11,
		},
		"JOIN": {
			handler:   joinHandler,
			minParams: 1,
		},
		"KICK": {
			handler:   kickHandler,
			minParams: 2,
		},
		"KILL": {
			handler:   killHandler,
			minParams: 2,
		},
		"KLINE": {
			handler:   klineHandler,
			minParams: 5,
		},
		"KNOCK": {
			handler:   knockHandler,
			minParams: 1,
		},
		"MODE": {
			handler:   modeHandler,
			minParams: 2,
		},
		"NICK": {
			handler:   nickHandler,
			minParams: 2,
		},
		"NOTICE": {
			handler:   messageHandler,
			minParams: 2,
		},
		"OPERWALL": {
			handler:   wallopsHandler,
			minParams: 1,
		},
		"PART": {
			handler:   partHandler,
			minParams: 1,
		},
		"PASS": {
			handler:      passHandler,
			usablePreReg: true,
			minParams:    4,
		},
		"PING": {
			handler:   pingHandler,
			minParams: 1,
		},
		"PONG": {
			handler:   pongHandler,
			minParams: 1,
		},
		"PRIVMSG": {
			handler:   messageHandler,
			minParams: 2,
		},
		"QUIT": {
			handler:   quitHandler,
			minParams: 0,
		},
		"RESV": {
			handler:   resvHandler,
			minParams: 4,
		},
		"SAVE": {
			handler:   saveHandler,
			minParams: 2,
		},
		"SERVER": {
			handler:      serverHandler,
			usablePreReg: true,
			minParams:    3,
		},
		"SID": {
			handler:   sidHandler,
			minParams: 4,
		},
		"SJOIN": {
			handler:   sjoinHandler,
			minParams: 4,
		},
		"SQUIT": {
			handler:   squitHandler,
			minParams: 1,
		},
		"SVINFO": {
			handler:      svinfoHandler,
			usablePreReg: true,
			minParams:    4,
		},
		"TB": {
			handler:   tbHandler,
			minParams: 3,
		},
		"TMODE": {
			handler:   tmodeHandler,
			minParams: 3,
		},
		"TOPIC": {
			handler:   topicHandler,
			minParams: 2,
		},
		"UID": {
			handler:   uidHandler,
			minParams: 9,
		},
		"UNKLINE": {
			handler:   unklineHandler,
			minParams: 3,
		},
		"UNRESV": {
			handler:   unresvHandler,
			minParams: 2,
		},
		"WALLOPS": {
			handler:   wallopsHandler,
			minParams: 1,
		},
	}
}
