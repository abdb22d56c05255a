// Copyright (c) 2026 the juno authors
// released under the MIT license

// Package bans implements the network-wide ban engine: ban records with a
// fleet-unique identity, upsert-by-id merging, match evaluation against
// users, and the expire/prune lifecycle. Everything here is pure state; the
// translator decides how a ban travels and the server decides what a match
// means.
package bans

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/junoircd/juno/irc/flatip"
	"github.com/junoircd/juno/irc/utils"
)

// Type discriminates the ban families we track.
type Type string

const (
	KLine     Type = "kline"
	DLine     Type = "dline"
	Resv      Type = "resv"
	NickDelay Type = "nick_delay"
)

// Valid reports whether t is a ban type we know.
func (t Type) Valid() bool {
	switch t {
	case KLine, DLine, Resv, NickDelay:
		return true
	}
	return false
}

// A Ban is one network-wide ban record. Two bans with the same ID are the
// same ban no matter how their textual fields differ; ID is derived from the
// originating server and the normalized mask, so independently-added
// identical bans converge.
type Ban struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Match     string `json:"match"`
	MatchUser string `json:"match_user,omitempty"`
	MatchHost string `json:"match_host,omitempty"`
	Reason    string `json:"reason"`
	Added     int64  `json:"added"`
	Modified  int64  `json:"modified"`
	Duration  int64  `json:"duration"`
	Lifetime  int64  `json:"lifetime"`
	AServer   string `json:"aserver"`
	AUser     string `json:"auser"`
	Disabled  bool   `json:"disabled,omitempty"`

	// RecentSource is the UID of the entity that most recently touched the
	// ban, if that entity is still online. Used to attribute outbound
	// propagation; never persisted.
	RecentSource string `json:"-"`
}

// ComputeID derives a ban's fleet-unique identity from the originating
// server and the lowercased mask.
func ComputeID(sid uint32, mask string) string {
	hasher := fnv.New32a()
	hasher.Write([]byte(strings.ToLower(mask)))
	return fmt.Sprintf("%d.%d", sid, hasher.Sum32())
}

// ExpiresAt is the time the ban stops being enforced.
func (ban *Ban) ExpiresAt() int64 {
	return ban.Modified + ban.Duration
}

// PruneAt is the time the record itself is discarded. Between ExpiresAt and
// PruneAt the ban is kept as a tombstone so that it still wins merges
// against stale copies on the far side of a netsplit.
func (ban *Ban) PruneAt() int64 {
	return ban.Modified + ban.Lifetime
}

// Active reports whether the ban should be enforced at the given time.
func (ban *Ban) Active(now int64) bool {
	return !ban.Disabled && now < ban.ExpiresAt()
}

// A Subject is the identity tuple bans are evaluated against.
type Subject struct {
	Nick  string
	Ident string
	Host  string
	IP    string
}

// Matches reports whether the ban applies to the subject: K-lines match
// ident@host and ident@ip, D-lines match the IP (CIDR or glob), resvs glob
// the nick or channel name, nick delays hold one exact nick.
func (ban *Ban) Matches(sub Subject) bool {
	switch ban.Type {
	case KLine:
		mask := ban.MatchUser + "@" + ban.MatchHost
		return utils.GlobMatch(mask, sub.Ident+"@"+sub.Host) ||
			utils.GlobMatch(mask, sub.Ident+"@"+sub.IP)
	case DLine:
		if network, err := flatip.ParseToNormalizedNet(ban.Match); err == nil {
			if ip, err := flatip.ParseIP(sub.IP); err == nil {
				return network.Contains(ip)
			}
			return false
		}
		return utils.GlobMatch(ban.Match, sub.IP)
	case Resv:
		return utils.GlobMatch(ban.Match, sub.Nick)
	case NickDelay:
		return utils.Casefold(ban.Match) == utils.Casefold(sub.Nick)
	}
	return false
}

// UpsertAction describes what AddOrUpdate did with an incoming record.
type UpsertAction int

const (
	// Created means the ban was new to us.
	Created UpsertAction = iota
	// Updated means the incoming copy was newer and replaced our fields.
	Updated
	// Unchanged means our copy was at least as new; at most its lifetime
	// was extended.
	Unchanged
)

// Manager owns every ban record we know about.
type Manager struct {
	entries map[string]*Ban
}

// NewManager returns an empty ban manager.
func NewManager() *Manager {
	var bm Manager
	bm.entries = make(map[string]*Ban)
	return &bm
}

// AddOrUpdate merges an incoming ban record by ID. A record we have not
// seen is inserted as-is. For a known ID, the copy with the newer Modified
// wins field-by-field, and Lifetime only ever grows, so deletions (disabled
// records) survive collisions with stale live copies. typeChanged reports
// an update whose type differs from the stored one; the caller should warn,
// the newer type still wins.
func (bm *Manager) AddOrUpdate(incoming Ban) (result *Ban, action UpsertAction, typeChanged bool) {
	if incoming.ID == "" {
		incoming.ID = ComputeID(0, incoming.Match)
	}

	existing, found := bm.entries[incoming.ID]
	if !found {
		added := incoming
		bm.entries[incoming.ID] = &added
		return &added, Created, false
	}

	typeChanged = existing.Type != incoming.Type

	if incoming.Lifetime > existing.Lifetime {
		existing.Lifetime = incoming.Lifetime
	}
	if incoming.Modified <= existing.Modified {
		return existing, Unchanged, typeChanged
	}

	existing.Type = incoming.Type
	existing.Match = incoming.Match
	existing.MatchUser = incoming.MatchUser
	existing.MatchHost = incoming.MatchHost
	existing.Reason = incoming.Reason
	existing.Modified = incoming.Modified
	existing.Duration = incoming.Duration
	existing.Disabled = incoming.Disabled
	existing.AServer = incoming.AServer
	existing.AUser = incoming.AUser
	existing.RecentSource = incoming.RecentSource
	return existing, Updated, typeChanged
}

// Get returns the ban with the given id, or nil.
func (bm *Manager) Get(id string) *Ban {
	return bm.entries[id]
}

// Delete removes a record outright. Most deletions should go through
// AddOrUpdate with a disabled record instead, so the tombstone propagates.
func (bm *Manager) Delete(id string) {
	delete(bm.entries, id)
}

// FindByUserInput performs the semantic lookup used when a peer deletes by
// mask rather than by id: K-lines split on '@', everything else compares
// the stored match.
func (bm *Manager) FindByUserInput(banType Type, text string) *Ban {
	var wantUser, wantHost string
	if banType == KLine {
		wantUser, wantHost = SplitUserHost(text)
	}
	folded := strings.ToLower(text)

	for _, ban := range bm.sortedEntries() {
		if ban.Type != banType {
			continue
		}
		switch banType {
		case KLine:
			if strings.ToLower(ban.MatchUser) == wantUser && strings.ToLower(ban.MatchHost) == wantHost {
				return ban
			}
		default:
			if strings.ToLower(ban.Match) == folded {
				return ban
			}
		}
	}
	return nil
}

// FindMatch returns the first active ban of the given type matching the
// subject, or nil.
func (bm *Manager) FindMatch(banType Type, sub Subject, now int64) *Ban {
	for _, ban := range bm.sortedEntries() {
		if ban.Type == banType && ban.Active(now) && ban.Matches(sub) {
			return ban
		}
	}
	return nil
}

// All returns every retained record in deterministic (id) order; burst
// iterates this.
func (bm *Manager) All() []*Ban {
	return bm.sortedEntries()
}

// Count returns how many records are retained, tombstones included.
func (bm *Manager) Count() int {
	return len(bm.entries)
}

// Prune discards every record past the end of its lifetime and returns
// what it discarded.
func (bm *Manager) Prune(now int64) (pruned []*Ban) {
	for id, ban := range bm.entries {
		if now >= ban.PruneAt() {
			pruned = append(pruned, ban)
			delete(bm.entries, id)
		}
	}
	sort.Slice(pruned, func(i, j int) bool {
		return pruned[i].ID < pruned[j].ID
	})
	return
}

func (bm *Manager) sortedEntries() []*Ban {
	result := make([]*Ban, 0, len(bm.entries))
	for _, ban := range bm.entries {
		result = append(result, ban)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// SplitUserHost splits a "user@host" mask; a mask with no '@' is all host.
func SplitUserHost(mask string) (user, host string) {
	mask = strings.ToLower(mask)
	if i := strings.IndexByte(mask, '@'); i != -1 {
		return mask[:i], mask[i+1:]
	}
	return "*", mask
}
