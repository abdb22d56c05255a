// Copyright (c) 2020 Shivaram Lingamneni
// released under the MIT license

// Package mysql implements an optional audit journal for the ban engine:
// every transition a ban record goes through (created, updated, disabled,
// pruned) is appended as a row, so network staff can answer "who banned
// this mask, when, and from where" long after the ban itself is gone.
// The journal is strictly write-behind; the server never reads it back.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/junoircd/juno/irc/bans"
	"github.com/junoircd/juno/irc/logger"
	"github.com/junoircd/juno/irc/utils"
)

const (
	// latest schema of the db
	latestDbSchema   = "1"
	keySchemaVersion = "db.version"

	cleanupRowLimit  = 50
	cleanupPauseTime = 10 * time.Minute
)

// ban transitions recorded in the journal
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventDisabled = "disabled"
	EventPruned   = "pruned"
)

type Journal struct {
	timeout int64
	db      *sql.DB
	logger  *logger.Manager

	insertEvent *sql.Stmt

	stateMutex sync.Mutex
	config     Config
}

func (journal *Journal) Initialize(logger *logger.Manager, config Config) {
	journal.logger = logger
	journal.SetConfig(config)
}

func (journal *Journal) SetConfig(config Config) {
	atomic.StoreInt64(&journal.timeout, int64(config.Timeout))
	journal.stateMutex.Lock()
	journal.config = config
	journal.stateMutex.Unlock()
}

func (journal *Journal) getRetentionTime() (retention time.Duration) {
	journal.stateMutex.Lock()
	retention = journal.config.RetentionTime
	journal.stateMutex.Unlock()
	return
}

func (j *Journal) Open() (err error) {
	var address string
	if j.config.SocketPath != "" {
		address = fmt.Sprintf("unix(%s)", j.config.SocketPath)
	} else if j.config.Port != 0 {
		address = fmt.Sprintf("tcp(%s:%d)", j.config.Host, j.config.Port)
	}

	j.db, err = sql.Open("mysql", fmt.Sprintf("%s:%s@%s/%s", j.config.User, j.config.Password, address, j.config.AuditDatabase))
	if err != nil {
		return err
	}

	err = j.fixSchemas()
	if err != nil {
		return err
	}

	err = j.prepareStatements()
	if err != nil {
		return err
	}

	go j.cleanupLoop()

	return nil
}

func (journal *Journal) fixSchemas() (err error) {
	_, err = journal.db.Exec(`CREATE TABLE IF NOT EXISTS metadata (
		key_name VARCHAR(32) primary key,
		value VARCHAR(32) NOT NULL
	) CHARSET=ascii COLLATE=ascii_bin;`)
	if err != nil {
		return err
	}

	var schema string
	err = journal.db.QueryRow(`select value from metadata where key_name = ?;`, keySchemaVersion).Scan(&schema)
	if err == sql.ErrNoRows {
		err = journal.createTables()
		if err != nil {
			return
		}
		_, err = journal.db.Exec(`insert into metadata (key_name, value) values (?, ?);`, keySchemaVersion, latestDbSchema)
		return
	} else if err == nil && schema != latestDbSchema {
		return &utils.IncompatibleSchemaError{CurrentVersion: schema, RequiredVersion: latestDbSchema}
	}
	return err
}

func (journal *Journal) createTables() (err error) {
	_, err = journal.db.Exec(`CREATE TABLE ban_events (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		ban_id VARBINARY(64) NOT NULL,
		ban_type VARBINARY(16) NOT NULL,
		event VARBINARY(16) NOT NULL,
		source VARBINARY(128) NOT NULL,
		nanotime BIGINT UNSIGNED NOT NULL,
		data BLOB NOT NULL,
		KEY (ban_id, nanotime),
		KEY (nanotime)
	) CHARSET=ascii COLLATE=ascii_bin;`)
	return
}

func (journal *Journal) prepareStatements() (err error) {
	journal.insertEvent, err = journal.db.Prepare(`INSERT INTO ban_events
		(ban_id, ban_type, event, source, nanotime, data) VALUES (?, ?, ?, ?, ?, ?);`)
	return
}

func (journal *Journal) getTimeout() time.Duration {
	return time.Duration(atomic.LoadInt64(&journal.timeout))
}

func (journal *Journal) logError(context string, err error) (quit bool) {
	if err != nil {
		journal.logger.Error("mysql", context, err.Error())
		return true
	}
	return false
}

// AddBanEvent appends one transition to the journal. source names where the
// change came from: a peer server's name, or our own for local changes.
func (journal *Journal) AddBanEvent(event string, ban *bans.Ban, source string) {
	if journal.db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), journal.getTimeout())
	defer cancel()

	data, err := marshalBan(ban)
	if journal.logError("could not serialize ban record", err) {
		return
	}

	_, err = journal.insertEvent.ExecContext(ctx,
		ban.ID, string(ban.Type), event, source, time.Now().UnixNano(), data)
	journal.logError("could not insert ban event", err)
}

func (journal *Journal) cleanupLoop() {
	defer func() {
		if r := recover(); r != nil {
			journal.logger.Error("mysql",
				fmt.Sprintf("Panic in cleanup routine: %v\n%s", r, debug.Stack()))
			time.Sleep(cleanupPauseTime)
			go journal.cleanupLoop()
		}
	}()

	for {
		retention := journal.getRetentionTime()
		if retention != 0 {
			for {
				startTime := time.Now()
				rowsDeleted, err := journal.doCleanup(retention)
				elapsed := time.Now().Sub(startTime)
				journal.logError("error during row cleanup", err)
				// keep going as long as we're accomplishing significant work
				// (don't busy-wait on small numbers of rows expiring):
				if rowsDeleted < (cleanupRowLimit / 10) {
					break
				}
				// crude backpressure mechanism: if the database is slow,
				// give it time to process other queries
				time.Sleep(elapsed)
			}
		}
		time.Sleep(cleanupPauseTime)
	}
}

func (journal *Journal) doCleanup(age time.Duration) (count int, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupPauseTime)
	defer cancel()

	threshold := time.Now().Add(-age).UnixNano()
	result, err := journal.db.ExecContext(ctx,
		`DELETE FROM ban_events WHERE nanotime < ? LIMIT ?;`, threshold, cleanupRowLimit)
	if err != nil {
		return
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return
	}
	if rows != 0 {
		journal.logger.Debug("mysql", fmt.Sprintf("deleted %d ban audit rows", rows))
	}
	return int(rows), nil
}

func (journal *Journal) Close() {
	// closing the database will close our prepared statements as well
	if journal.db != nil {
		journal.db.Close()
	}
	journal.db = nil
}
