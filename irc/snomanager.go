// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"fmt"
	"strings"

	"github.com/ergochat/irc-go/ircfmt"

	"github.com/junoircd/juno/irc/sno"
)

// SnoManager routes server notices. Every notice lands in the log under
// its mask's type; the ones remote operators need to see go out to the
// network as WALLOPS from us as well.
type SnoManager struct {
	server *Server
}

func (m *SnoManager) Initialize(server *Server) {
	m.server = server
}

func logTypeForMask(mask sno.Mask) string {
	name := sno.NoticeMaskNames[mask]
	if name == "" {
		name = string(mask)
	}
	return strings.ToLower(name)
}

// Send records a server notice in the log.
func (m *SnoManager) Send(mask sno.Mask, content string) {
	m.server.logger.Info(logTypeForMask(mask), content)
}

// SendOncePerLink records a notice about a misbehaving link, at most once
// per violation kind for the lifetime of the link. Protocol errors tend to
// repeat on every frame; one report is enough.
func (m *SnoManager) SendOncePerLink(mask sno.Mask, link *Link, kind, content string) {
	if link == nil {
		m.Send(mask, content)
		return
	}
	if link.violations.Has(kind) {
		return
	}
	link.violations.Add(kind)
	m.Send(mask, content)
}

// Broadcast logs the notice and repeats it to the network as a WALLOPS
// from this server.
func (m *SnoManager) Broadcast(mask sno.Mask, content string) {
	m.Send(mask, content)

	name := sno.NoticeMaskNames[mask]
	if name == "" {
		name = string(mask)
	}
	message := fmt.Sprintf(ircfmt.Unescape("$c[grey]-$r%s$c[grey]-$c %s"), name, content)
	m.server.propagateWallops(message)
}
