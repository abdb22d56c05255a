// Copyright (c) 2017 Shivaram Lingamneni <slingamn@cs.stanford.edu>
// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"github.com/junoircd/juno/irc/bans"
	"github.com/junoircd/juno/irc/events"
	"github.com/junoircd/juno/irc/logger"
)

func (server *Server) Config() (config *Config) {
	return server.config.Get()
}

func (server *Server) SetConfig(config *Config) {
	server.config.Set(config)
}

// Name returns the server's configured name.
func (server *Server) Name() string {
	return server.name
}

// ID returns the server's own sid.
func (server *Server) ID() ServerID {
	return server.sid
}

// Me returns the pool entry standing for this server itself.
func (server *Server) Me() *Peer {
	return server.me
}

// Pool returns the tracked network state.
func (server *Server) Pool() *Pool {
	return server.pool
}

// Events returns the bus the core's lifecycle hooks hang on.
func (server *Server) Events() *events.Bus {
	return server.events
}

// Bans returns the network ban table.
func (server *Server) Bans() *bans.Manager {
	return server.bans
}

// Logger returns the logging manager.
func (server *Server) Logger() *logger.Manager {
	return server.logger
}

// MaxSendQLines converts the configured sendq byte budget into the line
// capacity of a link's send queue.
func (server *Server) MaxSendQLines() int {
	config := server.Config()
	if config == nil {
		return 128
	}
	lines := int(config.Server.MaxSendQBytes / maxLineLen)
	if lines < 128 {
		lines = 128
	}
	return lines
}
