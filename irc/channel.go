// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"sort"

	"github.com/junoircd/juno/irc/modes"
	"github.com/junoircd/juno/irc/utils"
)

// ModeKind discriminates the shapes a channel mode's stored value can take.
type ModeKind int

const (
	// ModeKindSimple is a bare flag (moderated, secret, ...).
	ModeKindSimple ModeKind = iota
	// ModeKindParam carries one parameter (limit, key, forward, ...).
	ModeKindParam
	// ModeKindList holds mask entries (ban, except, invite_except, access).
	ModeKindList
	// ModeKindStatus holds member uids (owner, op, voice, ...).
	ModeKindStatus
)

// ListEntry is one entry of a list mode.
type ListEntry struct {
	Param string
	SetBy string
	Time  int64
}

// ModeValue is the tagged value stored per set mode name. Exactly the
// fields for its Kind are meaningful.
type ModeValue struct {
	Kind  ModeKind
	Param string
	Time  int64
	// Entries is ordered by insertion and unique by casefolded Param.
	Entries []ListEntry
	// Users is ordered by insertion; every uid is a channel member.
	Users []UserID
}

// Topic is a channel's topic record. A channel with an empty topic has no
// record at all.
type Topic struct {
	Text   string
	SetBy  string
	Time   int64
	Source ServerID
}

// Channel is the state of one channel as seen by this server. All methods
// are plain state transitions; nothing here touches the wire or the pool.
// Membership is kept bidirectionally: a uid is in members iff the channel's
// casefolded name is in that user's channel set, and Add/Remove are the
// only two functions that touch either side.
type Channel struct {
	Name           string
	NameCasefolded string

	// Time is the channel TS in unix seconds. It only ever moves down
	// after creation; TakeLowerTime is the sole mutator.
	Time int64

	members  []UserID
	modeData map[string]*ModeValue
	topic    *Topic
}

// NewChannel returns an empty channel with the given creation TS.
func NewChannel(name string, ts int64) *Channel {
	return &Channel{
		Name:           name,
		NameCasefolded: utils.Casefold(name),
		Time:           ts,
		modeData:       make(map[string]*ModeValue),
	}
}

//
// membership
//

// Len returns the member count.
func (channel *Channel) Len() int {
	return len(channel.members)
}

// Members returns the ordered member list (a copy).
func (channel *Channel) Members() []UserID {
	result := make([]UserID, len(channel.members))
	copy(result, channel.members)
	return result
}

// HasMember reports whether the uid is on the channel.
func (channel *Channel) HasMember(uid UserID) bool {
	for _, member := range channel.members {
		if member == uid {
			return true
		}
	}
	return false
}

// Add joins a user, maintaining both sides of the membership edge.
// Returns false if they were already a member.
func (channel *Channel) Add(user *User) bool {
	if channel.HasMember(user.ID) {
		return false
	}
	channel.members = append(channel.members, user.ID)
	user.channels.Add(channel.NameCasefolded)
	return true
}

// Remove parts a user: both membership edges are broken and the uid is
// purged from every status list in the same step, so no observer can see
// a status held by a non-member.
func (channel *Channel) Remove(user *User) bool {
	found := false
	for i, member := range channel.members {
		if member == user.ID {
			channel.members = append(channel.members[:i], channel.members[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}
	user.channels.Remove(channel.NameCasefolded)
	for name, value := range channel.modeData {
		if value.Kind != ModeKindStatus {
			continue
		}
		channel.removeStatusUID(name, value, user.ID)
	}
	return true
}

//
// simple and parameter modes
//

// SetMode sets a simple mode (param empty) or a parameter mode.
func (channel *Channel) SetMode(name, param string, ts int64) {
	kind := ModeKindSimple
	if param != "" {
		kind = ModeKindParam
	}
	channel.modeData[name] = &ModeValue{
		Kind:  kind,
		Param: param,
		Time:  ts,
	}
}

// UnsetMode clears a simple or parameter mode. List and status modes are
// cleared entry-by-entry instead.
func (channel *Channel) UnsetMode(name string) bool {
	value, ok := channel.modeData[name]
	if !ok || value.Kind == ModeKindList || value.Kind == ModeKindStatus {
		return false
	}
	delete(channel.modeData, name)
	return true
}

// Mode returns the stored value for a mode name.
func (channel *Channel) Mode(name string) (value *ModeValue, ok bool) {
	value, ok = channel.modeData[name]
	return
}

// HasMode reports whether the named mode is set at all.
func (channel *Channel) HasMode(name string) bool {
	_, ok := channel.modeData[name]
	return ok
}

// ModeParam returns the parameter of a parameter mode, or empty.
func (channel *Channel) ModeParam(name string) string {
	if value, ok := channel.modeData[name]; ok {
		return value.Param
	}
	return ""
}

// SimpleModes returns the set simple and parameter mode names, sorted.
// Burst serialization iterates this.
func (channel *Channel) SimpleModes() []string {
	var result []string
	for name, value := range channel.modeData {
		if value.Kind == ModeKindSimple || value.Kind == ModeKindParam {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

//
// list modes
//

// AddToList appends a list entry. Entries are unique by casefolded param;
// a duplicate leaves the list untouched and returns false.
func (channel *Channel) AddToList(name string, entry ListEntry) bool {
	value, ok := channel.modeData[name]
	if !ok {
		value = &ModeValue{Kind: ModeKindList}
		channel.modeData[name] = value
	}
	if value.Kind != ModeKindList {
		return false
	}
	folded := utils.Casefold(entry.Param)
	for _, existing := range value.Entries {
		if utils.Casefold(existing.Param) == folded {
			return false
		}
	}
	value.Entries = append(value.Entries, entry)
	return true
}

// RemoveFromList removes the entry matching param (casefolded exact).
// An empty list mode disappears from the mode map.
func (channel *Channel) RemoveFromList(name, param string) bool {
	value, ok := channel.modeData[name]
	if !ok || value.Kind != ModeKindList {
		return false
	}
	folded := utils.Casefold(param)
	for i, existing := range value.Entries {
		if utils.Casefold(existing.Param) == folded {
			value.Entries = append(value.Entries[:i], value.Entries[i+1:]...)
			if len(value.Entries) == 0 {
				delete(channel.modeData, name)
			}
			return true
		}
	}
	return false
}

// ListHas reports whether the list holds an entry exactly equal to param
// under casefolding.
func (channel *Channel) ListHas(name, param string) bool {
	value, ok := channel.modeData[name]
	if !ok || value.Kind != ModeKindList {
		return false
	}
	folded := utils.Casefold(param)
	for _, existing := range value.Entries {
		if utils.Casefold(existing.Param) == folded {
			return true
		}
	}
	return false
}

// ListMatches reports whether any entry of the list globs the target.
func (channel *Channel) ListMatches(name, target string) bool {
	value, ok := channel.modeData[name]
	if !ok || value.Kind != ModeKindList {
		return false
	}
	for _, existing := range value.Entries {
		if utils.GlobMatch(existing.Param, target) {
			return true
		}
	}
	return false
}

// ListEntries returns a copy of the list's entries in insertion order.
func (channel *Channel) ListEntries(name string) []ListEntry {
	value, ok := channel.modeData[name]
	if !ok || value.Kind != ModeKindList {
		return nil
	}
	result := make([]ListEntry, len(value.Entries))
	copy(result, value.Entries)
	return result
}

// ListCount returns how many entries the list holds.
func (channel *Channel) ListCount(name string) int {
	value, ok := channel.modeData[name]
	if !ok || value.Kind != ModeKindList {
		return 0
	}
	return len(value.Entries)
}

//
// status modes
//

// AddStatus grants a status mode to a member. Non-members are refused;
// the invariant that status lists only hold members is enforced here and
// in Remove.
func (channel *Channel) AddStatus(name string, uid UserID) bool {
	if !channel.HasMember(uid) {
		return false
	}
	value, ok := channel.modeData[name]
	if !ok {
		value = &ModeValue{Kind: ModeKindStatus}
		channel.modeData[name] = value
	}
	if value.Kind != ModeKindStatus {
		return false
	}
	for _, existing := range value.Users {
		if existing == uid {
			return false
		}
	}
	value.Users = append(value.Users, uid)
	return true
}

// RemoveStatus revokes a status mode from a member.
func (channel *Channel) RemoveStatus(name string, uid UserID) bool {
	value, ok := channel.modeData[name]
	if !ok || value.Kind != ModeKindStatus {
		return false
	}
	return channel.removeStatusUID(name, value, uid)
}

func (channel *Channel) removeStatusUID(name string, value *ModeValue, uid UserID) bool {
	for i, existing := range value.Users {
		if existing == uid {
			value.Users = append(value.Users[:i], value.Users[i+1:]...)
			if len(value.Users) == 0 {
				delete(channel.modeData, name)
			}
			return true
		}
	}
	return false
}

// HasStatus reports whether the member holds the named status.
func (channel *Channel) HasStatus(name string, uid UserID) bool {
	value, ok := channel.modeData[name]
	if !ok || value.Kind != ModeKindStatus {
		return false
	}
	for _, existing := range value.Users {
		if existing == uid {
			return true
		}
	}
	return false
}

// StatusNames returns the status mode names a member holds, sorted by
// name; callers wanting level order should consult the mode table.
func (channel *Channel) StatusNames(uid UserID) []string {
	var result []string
	for name, value := range channel.modeData {
		if value.Kind != ModeKindStatus {
			continue
		}
		for _, existing := range value.Users {
			if existing == uid {
				result = append(result, name)
				break
			}
		}
	}
	sort.Strings(result)
	return result
}

// HighestLevel returns the member's highest status level under the given
// perspective. held is false when they hold no status at all.
func (channel *Channel) HighestLevel(uid UserID, table *modes.Table) (level int, held bool) {
	for _, name := range channel.StatusNames(uid) {
		binding, ok := table.ByName(name)
		if !ok {
			continue
		}
		if !held || binding.Level > level {
			level = binding.Level
		}
		held = true
	}
	return
}

// statusHolding is one (status mode, holder) pair.
type statusHolding struct {
	Name string
	UID  UserID
}

// statusSnapshot returns every held status as (name, uid) pairs in a
// deterministic order. SJOIN resolution snapshots this before deciding
// whose TS wins.
func (channel *Channel) statusSnapshot() (result []statusHolding) {
	var names []string
	for name, value := range channel.modeData {
		if value.Kind == ModeKindStatus {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		for _, uid := range channel.modeData[name].Users {
			result = append(result, statusHolding{Name: name, UID: uid})
		}
	}
	return
}

//
// timestamps
//

// TakeLowerTime lowers the channel TS to min(current, t); it never raises
// it. When the TS actually drops and ignoreModes is false, every mode of
// every kind is wiped, which is the losing side's penalty in a TS
// collision. Returns the resulting TS.
func (channel *Channel) TakeLowerTime(t int64, ignoreModes bool) int64 {
	if t >= channel.Time {
		return channel.Time
	}
	channel.Time = t
	if !ignoreModes {
		channel.ClearModes(false)
	}
	return channel.Time
}

// ClearModes wipes channel modes. keepLists spares list modes (bans and
// friends survive some merge flavors); status and simple modes always go.
func (channel *Channel) ClearModes(keepLists bool) {
	for name, value := range channel.modeData {
		if keepLists && value.Kind == ModeKindList {
			continue
		}
		delete(channel.modeData, name)
	}
}

// ClearStatusModes wipes only status lists, the SJOIN their-TS-wins case.
func (channel *Channel) ClearStatusModes() {
	for name, value := range channel.modeData {
		if value.Kind == ModeKindStatus {
			delete(channel.modeData, name)
		}
	}
}

// ClearSimpleModes wipes simple and parameter modes, leaving lists and
// statuses alone.
func (channel *Channel) ClearSimpleModes() {
	for name, value := range channel.modeData {
		if value.Kind == ModeKindSimple || value.Kind == ModeKindParam {
			delete(channel.modeData, name)
		}
	}
}

//
// topic
//

// Topic returns the topic record, nil when none is held.
func (channel *Channel) Topic() *Topic {
	return channel.topic
}

// DoTopic installs a topic record. Empty text clears the record entirely;
// a channel never holds an empty topic. Returns whether anything changed.
func (channel *Channel) DoTopic(text, setBy string, ts int64, source ServerID) bool {
	if text == "" {
		if channel.topic == nil {
			return false
		}
		channel.topic = nil
		return true
	}
	if channel.topic != nil && channel.topic.Text == text && channel.topic.SetBy == setBy {
		return false
	}
	channel.topic = &Topic{
		Text:   text,
		SetBy:  setBy,
		Time:   ts,
		Source: source,
	}
	return true
}
