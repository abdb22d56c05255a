// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/junoircd/juno/irc/logger"
)

const testCapabs = "QS EX CHW IE KLN UNKLN KNOCK TB ENCAP SAVE EUID BAN CLUSTER"

// newTestServer stands up a server around a throwaway datastore, with no
// listeners and no log output.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "juno.db")
	if err := initializeDB(path); err != nil {
		t.Fatalf("could not initialize datastore: %v", err)
	}
	yaml := fmt.Sprintf(`
network:
    name: TestNet
server:
    name: hub.test.net
    description: test hub
    sid: "100"
    max-sendq: 1M
links:
    remote.test.net:
        receive-password: "sesame"
        send-password: "opensesame"
    far.test.net:
        receive-password: "sesame"
        send-password: "opensesame"
channels:
    default-modes: +nt
limits:
    nicklen: 32
    channellen: 64
    kicklen: 390
    topiclen: 390
    banlen: 190
    paramlen: 100
    chan-list-modes: 3
bans:
    min-lifetime: 10m
datastore:
    path: %s
`, path)
	config, err := loadConfigData([]byte(yaml))
	if err != nil {
		t.Fatalf("could not load test config: %v", err)
	}
	logman, err := logger.NewManager(config.Logging)
	if err != nil {
		t.Fatalf("could not create logger: %v", err)
	}
	server, err := NewServer(config, logman)
	if err != nil {
		t.Fatalf("could not create server: %v", err)
	}
	t.Cleanup(func() {
		server.store.Close()
		server.dataFlock.Unlock()
	})
	return server
}

// newTestLink attaches a connection-less link; without a transport there
// are no reader or writer goroutines, and outgoing frames pile up in the
// send queue where drainLines can collect them.
func newTestLink(server *Server) *Link {
	link := newLink(server, nil, true)
	server.links.Add(link)
	return link
}

func feedLine(t *testing.T, server *Server, link *Link, line string) {
	t.Helper()
	server.handleLine(link, []byte(line))
}

// establishTestLink drives a link through the handshake from the remote
// side and returns it established, with the outgoing burst drained.
func establishTestLink(t *testing.T, server *Server, name, sid, capabs string) *Link {
	t.Helper()
	link := newTestLink(server)
	feedLine(t, server, link, "PASS sesame TS 6 :"+sid)
	if capabs != "" {
		feedLine(t, server, link, "CAPAB :"+capabs)
	}
	feedLine(t, server, link, fmt.Sprintf("SERVER %s 1 :Test server", name))
	feedLine(t, server, link, fmt.Sprintf("SVINFO 6 6 0 :%d", time.Now().Unix()))
	if !link.established || link.peer == nil {
		t.Fatalf("handshake with %s did not establish", name)
	}
	drainLines(link)
	return link
}

// introduceTestUser feeds an EUID for a user behind the given link. The
// uid must begin with the link peer's sid.
func introduceTestUser(t *testing.T, server *Server, link *Link, nick, uid string, nickTS int64) *User {
	t.Helper()
	ident := strings.ToLower(nick)
	feedLine(t, server, link, fmt.Sprintf(":%s EUID %s 1 %d +i %s %s.cloak 192.168.1.1 %s %s.host * :%s",
		link.peer.TS6SID, nick, nickTS, ident, ident, uid, ident, nick))
	user := server.pool.UserByUID(uid)
	if user == nil {
		t.Fatalf("user %s (%s) was not registered", nick, uid)
	}
	return user
}

func drainLines(link *Link) (lines []string) {
	for {
		select {
		case raw := <-link.sendQ:
			lines = append(lines, strings.TrimRight(string(raw), "\r\n"))
		default:
			return
		}
	}
}

// parseFrame re-parses an outgoing line so tests can compare structured
// fields instead of guessing at colon placement.
func parseFrame(t *testing.T, line string) ircmsg.Message {
	t.Helper()
	msg, err := ircmsg.ParseLineStrict(line, false, maxLineLen)
	if err != nil {
		t.Fatalf("could not parse outgoing line %q: %v", line, err)
	}
	return msg
}

func assertFrame(t *testing.T, line, source, command string, params ...string) {
	t.Helper()
	msg := parseFrame(t, line)
	if msg.Source != source || strings.ToUpper(msg.Command) != command || !reflect.DeepEqual(msg.Params, params) {
		t.Errorf("expected :%s %s %v, got %q", source, command, params, line)
	}
}

func findFrames(t *testing.T, lines []string, command string) (result []ircmsg.Message) {
	t.Helper()
	for _, line := range lines {
		msg := parseFrame(t, line)
		if strings.ToUpper(msg.Command) == command {
			result = append(result, msg)
		}
	}
	return
}
