// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/ergochat/irc-go/ircreader"

	"github.com/junoircd/juno/irc/caps"
	"github.com/junoircd/juno/irc/modes"
	"github.com/junoircd/juno/irc/utils"
)

const (
	// initialBufferSize is the initial link read buffer; it grows on
	// demand up to maxReadQBytes.
	initialBufferSize = 1024
	maxReadQBytes     = maxLineLen * 4

	linkWriteTimeout      = 30 * time.Second
	linkFinalWriteTimeout = 5 * time.Second
)

// ourCapabs is what we advertise in CAPAB at link time.
var ourCapabs = []caps.Capability{
	caps.QS, caps.EX, caps.CHW, caps.IE, caps.KLN, caps.UNKLN,
	caps.KNOCK, caps.TB, caps.ENCAP, caps.SAVE, caps.EUID,
	caps.BAN, caps.CLUSTER,
}

// Peer is a server node in the mesh: ourselves, a directly-linked
// neighbor, or a server introduced behind one. Wire frames from or about
// it are translated against its own perspective tables, because a peer may
// bind mode letters differently than we do.
type Peer struct {
	ID          ServerID
	TS6SID      string // verbatim wire form, always ID.TS6()
	Name        string
	Description string
	HopCount    int

	Caps   *caps.Set
	Cmodes *modes.Table
	Umodes *modes.Table

	// link is non-nil iff the peer is directly connected; via is the
	// direct link the peer is reached through (link itself when direct,
	// nil for us).
	link *Link
	via  *Link

	// uplink is the server that introduced this peer; zero-valued for
	// direct peers and for us.
	uplink ServerID

	// Bursting is set from link establishment until the peer's
	// end-of-burst PING arrives.
	Bursting bool
}

// NewPeer returns a peer with default perspective tables and an empty
// capability set.
func NewPeer(id ServerID, name string) *Peer {
	return &Peer{
		ID:     id,
		TS6SID: id.TS6(),
		Name:   name,
		Caps:   caps.NewSet(),
		Cmodes: modes.DefaultCmodeTable(),
		Umodes: modes.DefaultUmodeTable(),
	}
}

// Link returns the direct connection, nil if the peer is remote.
func (peer *Peer) Link() *Link {
	return peer.link
}

// Via returns the direct link the peer is reached through.
func (peer *Peer) Via() *Link {
	return peer.via
}

// Uplink returns the sid of the server that introduced this peer.
func (peer *Peer) Uplink() ServerID {
	return peer.uplink
}

// Link is one direct server-to-server connection. Reads happen on a
// dedicated goroutine that feeds the server's event loop; writes go
// through a buffered send queue drained by a writer goroutine, so the
// event loop never blocks on a slow peer. Everything else — handshake
// state, negotiated capabilities — is touched only from the event loop.
type Link struct {
	server *Server
	conn   net.Conn
	reader ircreader.Reader

	inbound bool
	// name is the config block this link matched (or was dialed from).
	name string

	// handshake state
	caps         *caps.Set
	theirPass    string
	theirSID     string
	theirTSInfo  bool
	gotServer    bool
	sentServer   bool
	serverName   string
	serverDesc   string
	registeredAt int64

	// peer is set once SERVER is accepted; established once SVINFO
	// clears the TS version check. synced is set when the peer PONGs
	// our end-of-burst PING.
	peer        *Peer
	established bool
	synced      bool

	// one-shot ban burst negotiation state
	bansNegotiated bool
	banAgent       *User

	// violations dedupes protocol-violation notices per kind.
	violations utils.HashSet[string]

	sendQ chan []byte
	// finalData is a parting line the writer flushes after draining the
	// queue; set at most once, before markDead.
	finalData []byte
	closed    chan struct{}
	dead      atomic.Bool

	createdAt    int64
	lastPing     int64
	awaitingPong bool
}

func newLink(server *Server, conn net.Conn, inbound bool) *Link {
	link := &Link{
		server:     server,
		conn:       conn,
		inbound:    inbound,
		caps:       caps.NewSet(),
		violations: make(utils.HashSet[string]),
		sendQ:      make(chan []byte, server.MaxSendQLines()),
		closed:     make(chan struct{}),
		createdAt:  time.Now().Unix(),
	}
	if conn != nil {
		link.reader.Initialize(conn, initialBufferSize, maxReadQBytes)
	}
	return link
}

// Name identifies the link in logs and notices: the peer's name once
// known, the config block name while dialing, else the remote address.
func (link *Link) Name() string {
	if link.peer != nil {
		return link.peer.Name
	}
	if link.serverName != "" {
		return link.serverName
	}
	if link.name != "" {
		return link.name
	}
	if link.conn != nil {
		return link.conn.RemoteAddr().String()
	}
	return "?"
}

// Peer returns the server node on the far end, nil before registration.
func (link *Link) Peer() *Peer {
	return link.peer
}

// Established reports whether the handshake completed.
func (link *Link) Established() bool {
	return link.established
}

// Caps returns the peer's advertised capability set.
func (link *Link) Caps() *caps.Set {
	return link.caps
}

// Send builds and enqueues one frame. It never blocks: a full send queue
// means the peer stopped draining, and the link is severed rather than
// stalling the event loop.
func (link *Link) Send(source, command string, params ...string) bool {
	msg := ircmsg.MakeMessage(nil, source, command, params...)
	return link.SendMessage(msg)
}

// SendMessage serializes and enqueues one frame.
func (link *Link) SendMessage(msg ircmsg.Message) bool {
	line, err := msg.LineBytesStrict(false, maxLineLen)
	if err != nil {
		link.server.logger.Debug("link", "refusing to send malformed message", link.Name(), err.Error())
		return false
	}
	return link.queueBytes(line)
}

func (link *Link) queueBytes(line []byte) bool {
	if link.dead.Load() {
		return false
	}
	if link.server.logger.IsLoggingRawIO() {
		link.server.logger.Debug("linkoutput", link.Name(), string(line))
	}
	select {
	case link.sendQ <- line:
		return true
	default:
		// peer stopped draining us; the reader goroutine will surface
		// the teardown once the conn closes
		link.server.logger.Error("link", "SendQ exceeded, severing link", link.Name())
		link.markDead()
		return false
	}
}

// markDead wakes the writer, which flushes and closes the transport; the
// reader goroutine turns the closed conn into a teardown event on the
// main loop. For links that never got a writer (no conn) the mark alone
// suffices.
func (link *Link) markDead() {
	if link.dead.Swap(true) {
		return
	}
	close(link.closed)
}

// run reads frames until the connection dies, then reports the link dead.
// Runs on its own goroutine.
func (link *Link) run() {
	for {
		line, err := link.reader.ReadLine()
		if err != nil {
			link.server.queueEvent(serverEvent{kind: eventLinkDead, link: link, err: err})
			return
		}
		if len(line) == 0 {
			continue
		}
		lineCopy := make([]byte, len(line))
		copy(lineCopy, line)
		link.server.queueEvent(serverEvent{kind: eventLinkLine, link: link, line: lineCopy})
	}
}

// writerLoop drains the send queue onto the socket and owns closing it.
// Runs on its own goroutine.
func (link *Link) writerLoop() {
	defer link.conn.Close()
	for {
		select {
		case <-link.closed:
			link.flushFinal()
			return
		case line := <-link.sendQ:
			link.conn.SetWriteDeadline(time.Now().Add(linkWriteTimeout))
			if _, err := link.conn.Write(line); err != nil {
				link.markDead()
				return
			}
		}
	}
}

// flushFinal writes whatever was queued before the close plus the parting
// line, bailing at the first error so a stalled peer cannot hold the
// goroutine.
func (link *Link) flushFinal() {
	for {
		select {
		case line := <-link.sendQ:
			link.conn.SetWriteDeadline(time.Now().Add(linkFinalWriteTimeout))
			if _, err := link.conn.Write(line); err != nil {
				return
			}
		default:
			if link.finalData != nil {
				link.conn.SetWriteDeadline(time.Now().Add(linkFinalWriteTimeout))
				link.conn.Write(link.finalData)
			}
			return
		}
	}
}
