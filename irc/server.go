// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/okzk/sdnotify"
	"github.com/tidwall/buntdb"

	"github.com/junoircd/juno/irc/bans"
	"github.com/junoircd/juno/irc/caps"
	"github.com/junoircd/juno/irc/events"
	"github.com/junoircd/juno/irc/flock"
	"github.com/junoircd/juno/irc/logger"
	"github.com/junoircd/juno/irc/modes"
	"github.com/junoircd/juno/irc/mysql"
	"github.com/junoircd/juno/irc/sno"
	"github.com/junoircd/juno/irc/utils"
)

const (
	// serverTickInterval drives periodic work: ban pruning, pings,
	// autoconnect attempts.
	serverTickInterval = 10 * time.Second

	// linkRegistrationTimeout is how long an inbound connection may sit
	// in the handshake before it is cut.
	linkRegistrationTimeout = time.Minute

	linkDialTimeout = 30 * time.Second

	eventQueueLen = 1024
)

var (
	// ServerExitSignals are the signals the server will exit on.
	ServerExitSignals = []os.Signal{
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	}
)

type eventKind int

const (
	eventLinkLine eventKind = iota
	eventLinkDead
	eventNewConn
	eventNewDial
)

// serverEvent is one item of work for the main loop. Every goroutine that
// wants to touch core state funnels through these; the loop itself is the
// only place core state is read or written.
type serverEvent struct {
	kind     eventKind
	link     *Link
	line     []byte
	err      error
	conn     net.Conn
	linkName string
}

// ListenerWrapper wraps a listener so it can be safely reconfigured or stopped
type ListenerWrapper struct {
	listener   net.Listener
	tlsConfig  *tls.Config
	shouldStop bool
	// protects atomic update of tlsConfig and shouldStop:
	configMutex sync.Mutex // tier 1
}

// Server is one juno node: the TS6 core state plus the links that keep it
// synchronized with the rest of the mesh.
type Server struct {
	name           string
	nameCasefolded string
	sid            ServerID
	ts6sid         string
	description    string

	config         utils.ConfigStore[Config]
	configFilename string

	pool   *Pool
	events *events.Bus
	bans   *bans.Manager

	// me is the pool entry standing for this server itself.
	me *Peer

	// cmodes and umodes are our own perspective tables; modeBlocks hang
	// behavior off individual mode names.
	cmodes     *modes.Table
	umodes     *modes.Table
	modeBlocks map[string][]ModeBlock

	links     utils.HashSet[*Link]
	listeners map[string]*ListenerWrapper
	lastDial  map[string]time.Time

	uidCounter uint64

	loopEvents chan serverEvent

	store     *buntdb.DB
	dataFlock flock.Flocker
	journal   mysql.Journal

	logger   *logger.Manager
	snomasks SnoManager

	rehashSignal chan os.Signal
	signals      chan os.Signal

	ctime time.Time
}

// NewServer returns a new juno server.
func NewServer(config *Config, logger *logger.Manager) (*Server, error) {
	server := &Server{
		pool:         NewPool(),
		events:       events.NewBus(),
		bans:         bans.NewManager(),
		cmodes:       modes.DefaultCmodeTable(),
		umodes:       modes.DefaultUmodeTable(),
		modeBlocks:   make(map[string][]ModeBlock),
		links:        make(utils.HashSet[*Link]),
		listeners:    make(map[string]*ListenerWrapper),
		lastDial:     make(map[string]time.Time),
		loopEvents:   make(chan serverEvent, eventQueueLen),
		logger:       logger,
		rehashSignal: make(chan os.Signal, 1),
		signals:      make(chan os.Signal, len(ServerExitSignals)),
	}
	server.snomasks.Initialize(server)
	server.registerCoreModeBlocks()
	server.events.Subscribe("server.send_burst", server.onSendBurst)
	server.events.Subscribe("server.send_ts6_burst", server.onSendTS6Burst)

	if err := server.applyConfig(config, true); err != nil {
		return nil, err
	}

	// Attempt to clean up when receiving these signals.
	signal.Notify(server.signals, ServerExitSignals...)
	signal.Notify(server.rehashSignal, syscall.SIGHUP)

	return server, nil
}

func (server *Server) queueEvent(event serverEvent) {
	server.loopEvents <- event
}

// Run is the server's main loop; it owns all core state and never returns
// until a shutdown signal arrives.
func (server *Server) Run() {
	if server.store != nil {
		defer server.store.Close()
	}

	ticker := time.NewTicker(serverTickInterval)
	defer ticker.Stop()

	sdnotify.Ready()

	done := false
	for !done {
		select {
		case <-server.signals:
			server.Shutdown()
			done = true

		case <-server.rehashSignal:
			server.logger.Info("server", "Rehashing due to SIGHUP")
			if err := server.rehash(); err != nil {
				server.logger.Error("server", fmt.Sprintln("Failed to rehash:", err.Error()))
			}

		case event := <-server.loopEvents:
			server.handleEvent(event)

		case now := <-ticker.C:
			server.tick(now)
		}
	}
}

func (server *Server) handleEvent(event serverEvent) {
	switch event.kind {
	case eventNewConn:
		link := newLink(server, event.conn, true)
		server.links.Add(link)
		go link.run()
		go link.writerLoop()
		server.logger.Debug("server", "incoming connection", link.Name())

	case eventNewDial:
		conf := server.Config().Links[strings.ToLower(event.linkName)]
		if conf == nil {
			// config changed while the dial was in flight
			event.conn.Close()
			return
		}
		link := newLink(server, event.conn, false)
		link.name = conf.Name()
		server.links.Add(link)
		go link.run()
		go link.writerLoop()
		server.sendHandshake(link, conf)

	case eventLinkLine:
		server.handleLine(event.link, event.line)

	case eventLinkDead:
		reason := "Read error"
		if event.err != nil {
			reason = event.err.Error()
		}
		server.disconnectLink(event.link, reason)
	}
}

// handleLine parses and dispatches one frame from a link.
func (server *Server) handleLine(link *Link, line []byte) {
	if link.dead.Load() || !server.links.Has(link) {
		return
	}
	if server.logger.IsLoggingRawIO() {
		server.logger.Debug("linkinput", link.Name(), string(line))
	}
	msg, err := ircmsg.ParseLineStrict(string(line), false, maxLineLen)
	if err == ircmsg.ErrorLineIsEmpty {
		return
	}
	if err != nil {
		server.protocolViolation(link, "parse", "dropped unparseable line from %s: %v", link.Name(), err)
		return
	}
	command, exists := Commands[strings.ToUpper(msg.Command)]
	if !exists {
		server.protocolViolation(link, "unknown:"+msg.Command, "unknown command %s from %s", msg.Command, link.Name())
		return
	}
	command.Run(server, link, msg)
}

func (server *Server) tick(now time.Time) {
	server.pruneBans(now)
	server.checkLinkHealth(now)
	server.checkAutoConnects(now)
}

func (server *Server) checkLinkHealth(now time.Time) {
	nowUnix := now.Unix()
	pingFrequency := int64(server.Config().Server.PingFrequency / time.Second)
	regTimeout := int64(linkRegistrationTimeout / time.Second)

	for _, link := range server.allLinks() {
		if !link.established {
			if nowUnix-link.createdAt > regTimeout {
				server.disconnectLink(link, "Registration timeout")
			}
			continue
		}
		if link.awaitingPong && nowUnix-link.lastPing > pingFrequency {
			server.disconnectLink(link, "Ping timeout")
			continue
		}
		if !link.awaitingPong && nowUnix-link.lastPing >= pingFrequency {
			link.Send(server.ts6sid, "PING", server.name, link.peer.TS6SID)
			link.lastPing = nowUnix
			link.awaitingPong = true
		}
	}
}

func (server *Server) checkAutoConnects(now time.Time) {
	config := server.Config()
	for name, conf := range config.Links {
		if conf.AutoConnect == 0 || server.linkTo(name) != nil {
			continue
		}
		if last, ok := server.lastDial[name]; ok && now.Sub(last) < conf.AutoConnect {
			continue
		}
		server.lastDial[name] = now
		server.connectToServer(conf)
	}
}

// linkTo finds the current link (established or in handshake) matching a
// lowercased config block name.
func (server *Server) linkTo(name string) *Link {
	for link := range server.links {
		if strings.ToLower(link.name) == name || strings.ToLower(link.serverName) == name {
			return link
		}
	}
	return nil
}

// allLinks snapshots the link set so callers can sever links while
// iterating.
func (server *Server) allLinks() (result []*Link) {
	result = make([]*Link, 0, len(server.links))
	for link := range server.links {
		result = append(result, link)
	}
	return
}

// connectToServer dials a configured peer. The dial happens off the event
// loop; the finished connection comes back as an event.
func (server *Server) connectToServer(conf *LinkConfig) {
	server.logger.Info("server", "connecting to server", conf.Name(), conf.Address)
	name := conf.Name()
	address := conf.Address
	useTLS := conf.TLS
	skipVerify := conf.InsecureSkipVerify
	go func() {
		var conn net.Conn
		var err error
		dialer := net.Dialer{Timeout: linkDialTimeout}
		if useTLS {
			conn, err = tls.DialWithDialer(&dialer, "tcp", address, &tls.Config{
				InsecureSkipVerify: skipVerify,
			})
		} else {
			conn, err = dialer.Dial("tcp", address)
		}
		if err != nil {
			server.logger.Error("server", "connection to server failed", name, err.Error())
			return
		}
		server.queueEvent(serverEvent{kind: eventNewDial, conn: conn, linkName: name})
	}()
}

// sendHandshake opens our side of the TS6 exchange.
func (server *Server) sendHandshake(link *Link, conf *LinkConfig) {
	link.Send("", "PASS", conf.SendPassword, "TS", strconv.Itoa(tsCurrent), server.ts6sid)
	link.Send("", "CAPAB", caps.NewSet(ourCapabs...).String())
	link.Send("", "SERVER", server.name, "1", server.description)
	link.sentServer = true
}

// disconnectLink severs a direct connection and erases everything that
// was reached through it. Calling it twice is a no-op.
func (server *Server) disconnectLink(link *Link, reason string) {
	if !server.links.Has(link) {
		return
	}
	server.links.Remove(link)

	if link.conn != nil && !link.dead.Load() {
		msg := ircmsg.MakeMessage(nil, "", "ERROR",
			fmt.Sprintf("Closing Link: %s (%s)", link.Name(), reason))
		if line, err := msg.LineBytesStrict(false, maxLineLen); err == nil {
			link.finalData = line
		}
	}
	link.markDead()

	if agent := link.banAgent; agent != nil {
		link.banAgent = nil
		server.pool.RemoveUser(agent)
	}

	peer := link.peer
	if peer == nil {
		server.logger.Info("server", "link closed", link.Name(), reason)
		return
	}
	splitReason := server.name + " " + peer.Name
	users, servers := server.removePeer(peer, splitReason)
	server.snomasks.Broadcast(sno.Servers, fmt.Sprintf("Netsplit: lost %s (%d servers, %d users): %s",
		peer.Name, servers, users, reason))
	server.propagate(link, ircmsg.MakeMessage(nil, server.ts6sid, "SQUIT", peer.TS6SID, reason))
}

// removePeer erases a peer and everything behind it: servers introduced
// through it and the users on all of them. reason is the netsplit quit
// string applied to the users.
func (server *Server) removePeer(peer *Peer, reason string) (users, servers int) {
	for _, other := range server.pool.Peers() {
		if other.Uplink() == peer.ID && other != peer {
			u, s := server.removePeer(other, reason)
			users += u
			servers += s
		}
	}
	for _, user := range server.pool.UsersOn(peer.ID) {
		server.quitUser(user, reason)
		users++
	}
	server.pool.RemovePeer(peer)
	servers++
	return
}

// quitUser removes a user from every channel and the pool. The caller
// owns wire propagation.
func (server *Server) quitUser(user *User, reason string) {
	for _, cfname := range user.Channels() {
		channel := server.pool.Channel(cfname)
		if channel == nil {
			continue
		}
		if channel.Remove(user) {
			server.events.Fire("channel_part", &PartEvent{Channel: channel, User: user, Reason: reason})
			server.destroyChannelMaybe(channel)
		}
	}
	server.pool.RemoveUser(user)
	server.events.Fire("user.quit", &QuitEvent{User: user, Reason: reason})
}

// killUser force-quits a user and tells every link except the one the
// kill came from (nil when it is ours).
func (server *Server) killUser(user *User, reason string, except *Link) {
	server.propagate(except, ircmsg.MakeMessage(nil, server.ts6sid, "KILL",
		user.UID, server.name+" ("+reason+")"))
	server.quitUser(user, "Killed ("+reason+")")
}

// destroyChannelMaybe reaps a channel that lost its last member, unless a
// listener keeps it alive.
func (server *Server) destroyChannelMaybe(channel *Channel) {
	if channel.Len() != 0 {
		return
	}
	if server.events.Fire("can_destroy", channel).Vetoed() {
		return
	}
	server.pool.RemoveChannel(channel)
	server.events.Fire("channel.destroyed", channel)
}

// sendNumeric delivers a numeric reply toward a remote user, routed over
// the link it lives behind.
func (server *Server) sendNumeric(user *User, numeric string, params ...string) {
	loc := user.Location()
	if loc == nil {
		return
	}
	loc.Send(server.ts6sid, numeric, append([]string{user.UID}, params...)...)
}

// findPeer resolves a server reference that may be a sid or a name.
func (server *Server) findPeer(ref string) *Peer {
	if len(ref) == 3 {
		if peer := server.pool.PeerByTS6(ref); peer != nil {
			return peer
		}
	}
	return server.pool.PeerByName(ref)
}

// nextUID allocates an id under our own sid.
func (server *Server) nextUID() UserID {
	server.uidCounter++
	return UserID{SID: server.sid, Counter: server.uidCounter}
}

func (server *Server) rehash() error {
	server.logger.Debug("server", "Starting rehash")

	config, err := LoadConfig(server.configFilename)
	if err != nil {
		return fmt.Errorf("Error loading config file config: %s", err.Error())
	}

	err = server.applyConfig(config, false)
	if err != nil {
		return fmt.Errorf("Error applying config changes: %s", err.Error())
	}

	server.snomasks.Send(sno.Servers, "Rehash completed successfully")
	return nil
}

func (server *Server) applyConfig(config *Config, initial bool) error {
	if initial {
		server.ctime = time.Now()
		server.configFilename = config.Filename
		server.name = config.Server.Name
		server.nameCasefolded = config.Server.nameCasefolded
		server.sid = config.ServerID()
		server.ts6sid = server.sid.TS6()
	} else {
		// enforce configs that can't be changed after launch:
		if server.name != config.Server.Name {
			return fmt.Errorf("Server name cannot be changed after launching the server, rehash aborted")
		}
		if server.sid != config.ServerID() {
			return fmt.Errorf("Server sid cannot be changed after launching the server, rehash aborted")
		}
	}
	server.description = config.Server.Description

	if err := server.logger.ApplyConfig(config.Logging); err != nil {
		return err
	}

	if initial {
		if err := server.loadDatastore(config); err != nil {
			return err
		}
		server.journal.Initialize(server.logger, config.Bans.Audit)
		if config.Bans.Audit.Enabled {
			if err := server.journal.Open(); err != nil {
				return err
			}
		}
	} else {
		server.journal.SetConfig(config.Bans.Audit)
	}

	if initial {
		me := NewPeer(server.sid, server.name)
		me.Description = server.description
		me.Cmodes = server.cmodes
		me.Umodes = server.umodes
		if err := server.pool.AddPeer(me); err != nil {
			return err
		}
		server.me = me
	} else {
		server.me.Description = server.description
	}

	server.SetConfig(config)

	// listeners last, so accepted connections see the finished config
	server.setupListeners(config)

	if initial {
		server.loadBans()
		server.logger.Info("server", "Server running")
	}
	return nil
}

func (server *Server) loadDatastore(config *Config) error {
	// open the datastore; acquire a flock first so a second instance
	// pointed at the same path fails loudly instead of corrupting it
	server.logger.Debug("server", "Opening datastore")
	flocker, err := flock.TryAcquireFlock(config.Datastore.Path + ".lock")
	if err != nil {
		return fmt.Errorf("failed to acquire datastore lock: %w", err)
	}
	server.dataFlock = flocker

	db, err := OpenDatabase(config)
	if err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	server.store = db
	return nil
}

//
// protocol listeners
//

func (server *Server) setupListeners(config *Config) {
	tlsListeners := config.TLSListeners()

	configured := make(utils.HashSet[string])
	for _, addr := range config.Server.Listen {
		configured.Add(addr)
	}

	// stop removed listeners
	for addr, wrapper := range server.listeners {
		if configured.Has(addr) {
			continue
		}
		wrapper.configMutex.Lock()
		wrapper.shouldStop = true
		wrapper.configMutex.Unlock()
		wrapper.listener.Close()
		delete(server.listeners, addr)
		server.logger.Info("server", "stopped listening on", addr)
	}

	// start new listeners, refresh TLS on survivors
	for addr := range configured {
		if wrapper, ok := server.listeners[addr]; ok {
			wrapper.configMutex.Lock()
			wrapper.tlsConfig = tlsListeners[addr]
			wrapper.configMutex.Unlock()
			continue
		}
		server.listeners[addr] = server.createListener(addr, tlsListeners[addr])
	}
}

// createListener starts the given listener.
func (server *Server) createListener(addr string, tlsConfig *tls.Config) *ListenerWrapper {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(server.name, " listen error: ", err)
	}

	wrapper := ListenerWrapper{
		listener:   listener,
		tlsConfig:  tlsConfig,
		shouldStop: false,
	}

	// setup accept goroutine
	go func() {
		for {
			conn, err := listener.Accept()

			// synchronously access config data:
			// whether TLS is enabled and whether we should stop listening
			wrapper.configMutex.Lock()
			shouldStop := wrapper.shouldStop
			tlsConfig := wrapper.tlsConfig
			wrapper.configMutex.Unlock()

			if shouldStop {
				if err == nil {
					conn.Close()
				}
				listener.Close()
				return
			}
			if err != nil {
				continue
			}
			if tlsConfig != nil {
				conn = tls.Server(conn, tlsConfig)
			}
			// hand off the connection
			server.queueEvent(serverEvent{kind: eventNewConn, conn: conn})
		}
	}()

	server.logger.Info("server", "listening on", addr)
	return &wrapper
}

// Shutdown severs every link and closes the stores.
func (server *Server) Shutdown() {
	sdnotify.Stopping()
	server.logger.Info("server", "Server shutting down")

	for _, link := range server.allLinks() {
		server.disconnectLink(link, "Server shutting down")
	}
	for _, wrapper := range server.listeners {
		wrapper.configMutex.Lock()
		wrapper.shouldStop = true
		wrapper.configMutex.Unlock()
		wrapper.listener.Close()
	}

	server.journal.Close()
	if server.dataFlock != nil {
		server.dataFlock.Unlock()
	}
}
