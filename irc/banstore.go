// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/junoircd/juno/irc/bans"
	"github.com/junoircd/juno/irc/mysql"
	"github.com/junoircd/juno/irc/sno"
)

const keyBanRecord = "bans.v1 %s"

// applyBanUpdate merges an incoming ban record into the table and, when
// it changed anything, persists the result, journals it, and passes it on
// to every other link.
func (server *Server) applyBanUpdate(incoming bans.Ban, source Actor, except *Link) (*bans.Ban, bans.UpsertAction) {
	result, action, typeChanged := server.bans.AddOrUpdate(incoming)
	if typeChanged {
		server.snomasks.Send(sno.LocalXline, fmt.Sprintf(
			"ban on %s changed type to %s, enforcement follows the newer copy", result.Match, result.Type))
	}
	if action == bans.Unchanged {
		return result, action
	}

	server.persistBan(result)

	event := mysql.EventUpdated
	if action == bans.Created {
		event = mysql.EventCreated
	}
	if result.Disabled {
		event = mysql.EventDisabled
	}
	server.journal.AddBanEvent(event, result, source.Name())

	server.propagateBan(except, result)
	return result, action
}

func (server *Server) persistBan(ban *bans.Ban) {
	if server.store == nil {
		return
	}
	b, err := json.Marshal(ban)
	if err != nil {
		server.logger.Error("internal", "couldn't serialize ban", ban.ID, err.Error())
		return
	}
	err = server.store.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(fmt.Sprintf(keyBanRecord, ban.ID), string(b), nil)
		return err
	})
	if err != nil {
		server.logger.Error("internal", "couldn't persist ban", ban.ID, err.Error())
	}
}

// loadBans replays the persisted ban table into memory at boot.
func (server *Server) loadBans() {
	if server.store == nil {
		return
	}
	prefix := fmt.Sprintf(keyBanRecord, "")
	var loaded int
	server.store.View(func(tx *buntdb.Tx) error {
		return tx.AscendGreaterOrEqual("", prefix, func(key, value string) bool {
			if !strings.HasPrefix(key, prefix) {
				return false
			}
			var ban bans.Ban
			if err := json.Unmarshal([]byte(value), &ban); err != nil {
				server.logger.Error("internal", "corrupt ban record", key, err.Error())
				return true
			}
			server.bans.AddOrUpdate(ban)
			loaded++
			return true
		})
	})
	if loaded != 0 {
		server.logger.Info("server", fmt.Sprintf("loaded %d ban records", loaded))
	}
}

// pruneBans drops records whose lifetime has run out.
func (server *Server) pruneBans(now time.Time) {
	pruned := server.bans.Prune(now.Unix())
	if len(pruned) == 0 {
		return
	}
	if server.store != nil {
		server.store.Update(func(tx *buntdb.Tx) error {
			for _, ban := range pruned {
				tx.Delete(fmt.Sprintf(keyBanRecord, ban.ID))
			}
			return nil
		})
	}
	for _, ban := range pruned {
		server.journal.AddBanEvent(mysql.EventPruned, ban, server.name)
		server.logger.Debug("bans", "pruned expired ban", string(ban.Type), ban.Match)
	}
}
