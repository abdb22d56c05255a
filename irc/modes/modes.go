// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

// Package modes implements the channel and user mode registry. Mode changes
// are tracked by name ("no_ext", "op"), not letter: letters are a
// per-perspective detail, and two linked servers are free to bind the same
// name to different letters. A Table is one perspective's letter<->name
// binding; parsing and serialization always go through one.
package modes

import (
	"sort"
	"strings"
)

// ModeType classifies how a mode consumes parameters and where its value
// lives.
type ModeType int

const (
	// Normal modes are value-less flags.
	Normal ModeType = iota
	// Parameter modes take a parameter when set and when unset.
	Parameter
	// ParameterSet modes take a parameter only when set.
	ParameterSet
	// List modes accumulate entries (bans and friends).
	List
	// Status modes grant a membership rank; the parameter is a user.
	Status
	// Key is the channel key: parameter to set, optional parameter to unset.
	Key
)

// ModeOp is an operation performed with modes
type ModeOp rune

const (
	// Add is used when adding the given mode.
	Add ModeOp = '+'
	// View is used when listing modes (for instance, listing the current bans on a channel).
	View ModeOp = '='
	// Remove is used when taking away the given mode.
	Remove ModeOp = '-'
)

// ModeChange is a single mode changing
type ModeChange struct {
	Name  string
	Op    ModeOp
	Param string
}

// ModeChanges are a collection of 'ModeChange's
type ModeChanges []ModeChange

// Binding ties a mode name to one perspective's letter for it.
type Binding struct {
	Letter rune
	Name   string
	Type   ModeType

	// status modes only:
	Prefix rune
	Level  int
}

// Table is a single perspective's view of the mode universe: letter to name,
// name to (letter, type), and status prefix chars. Our own table comes from
// the config; a peer's table starts as a copy of ours and diverges as the
// peer advertises its own bindings.
type Table struct {
	byLetter map[rune]Binding
	byName   map[string]Binding
	byPrefix map[rune]Binding
}

func NewTable() *Table {
	return &Table{
		byLetter: make(map[rune]Binding),
		byName:   make(map[string]Binding),
		byPrefix: make(map[rune]Binding),
	}
}

// Register binds a letter to a name. Rebinding either side replaces the
// old binding, so a config rehash or a peer's own tables always win.
func (t *Table) Register(b Binding) {
	if old, ok := t.byName[b.Name]; ok {
		delete(t.byLetter, old.Letter)
		if old.Prefix != 0 {
			delete(t.byPrefix, old.Prefix)
		}
	}
	if old, ok := t.byLetter[b.Letter]; ok {
		delete(t.byName, old.Name)
		if old.Prefix != 0 {
			delete(t.byPrefix, old.Prefix)
		}
	}
	t.byLetter[b.Letter] = b
	t.byName[b.Name] = b
	if b.Prefix != 0 {
		t.byPrefix[b.Prefix] = b
	}
}

// ByLetter resolves a mode letter in this perspective.
func (t *Table) ByLetter(letter rune) (b Binding, ok bool) {
	b, ok = t.byLetter[letter]
	return
}

// ByName resolves a mode name in this perspective.
func (t *Table) ByName(name string) (b Binding, ok bool) {
	b, ok = t.byName[name]
	return
}

// ByPrefix resolves a status prefix char ('@' and friends) in this
// perspective.
func (t *Table) ByPrefix(prefix rune) (b Binding, ok bool) {
	b, ok = t.byPrefix[prefix]
	return
}

// Clone returns an independent copy, the starting point for a peer's
// perspective.
func (t *Table) Clone() *Table {
	clone := NewTable()
	for _, b := range t.byName {
		clone.Register(b)
	}
	return clone
}

// StatusModes returns the status bindings in descending level order.
func (t *Table) StatusModes() (result []Binding) {
	for _, b := range t.byName {
		if b.Type == Status {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Level > result[j].Level
	})
	return
}

// Prefixes renders the membership prefixes for a member holding the given
// status mode names, in descending level order. When multiPrefix is false,
// only the highest prefix survives.
func (t *Table) Prefixes(statusNames []string, multiPrefix bool) (prefixes string) {
	held := make(map[string]bool, len(statusNames))
	for _, name := range statusNames {
		held[name] = true
	}
	for _, b := range t.StatusModes() {
		if held[b.Name] {
			prefixes += string(b.Prefix)
		}
	}
	if !multiPrefix && len(prefixes) > 1 {
		prefixes = prefixes[:1]
	}
	return
}

// SplitMembershipPrefixes takes a prefix-decorated token (an SJOIN nicklist
// entry, a NAMES target) and splits the leading status prefixes from the
// identifier, translating each prefix to its mode name.
func (t *Table) SplitMembershipPrefixes(token string) (statusNames []string, rest string) {
	rest = token
	for len(rest) > 0 {
		b, ok := t.byPrefix[rune(rest[0])]
		if !ok {
			return
		}
		statusNames = append(statusNames, b.Name)
		rest = rest[1:]
	}
	return
}

//
// parsing
//

// ParseCmodes turns a mode string plus its parameters ("+ntk-l", "sekrit")
// into named changes against this perspective's table. Unknown letters are
// returned for the caller to complain about exactly once.
func (t *Table) ParseCmodes(params ...string) (changes ModeChanges, unknown []rune) {
	op := View

	if 0 < len(params) {
		modeArg := params[0]
		skipArgs := 1

		for _, letter := range modeArg {
			if letter == '-' || letter == '+' {
				op = ModeOp(letter)
				continue
			}
			binding, ok := t.byLetter[letter]
			if !ok {
				unknown = append(unknown, letter)
				continue
			}
			change := ModeChange{
				Name: binding.Name,
				Op:   op,
			}

			// consume a parameter if this type wants one for this op
			switch binding.Type {
			case List:
				if len(params) > skipArgs {
					change.Param = params[skipArgs]
					skipArgs++
				} else {
					// a bare list mode is a view request
					change.Op = View
				}
			case Status, Parameter:
				if len(params) > skipArgs {
					change.Param = params[skipArgs]
					skipArgs++
				} else {
					continue
				}
			case ParameterSet:
				// don't require a value when removing
				if change.Op == Add {
					if len(params) > skipArgs {
						change.Param = params[skipArgs]
						skipArgs++
					} else {
						continue
					}
				}
			case Key:
				// +k requires a parameter both for add and remove; attempt
				// to consume one, but allow remove (not add) even if no
				// parameter is available. the remove parameter displays as
				// "*" regardless of what was consumed.
				if len(params) > skipArgs {
					if change.Op == Add {
						change.Param = params[skipArgs]
					}
					skipArgs++
				} else if change.Op == Add {
					continue
				}
				if change.Op == Remove {
					change.Param = "*"
				}
			}

			changes = append(changes, change)
		}
	}

	return changes, unknown
}

// ParseUmodes turns a user mode string ("+iwo") into named changes. User
// modes never take parameters on the server-to-server wire.
func (t *Table) ParseUmodes(modeArg string) (changes ModeChanges, unknown []rune) {
	op := Add

	for _, letter := range modeArg {
		if letter == '-' || letter == '+' {
			op = ModeOp(letter)
			continue
		}
		binding, ok := t.byLetter[letter]
		if !ok {
			unknown = append(unknown, letter)
			continue
		}
		changes = append(changes, ModeChange{
			Name: binding.Name,
			Op:   op,
		})
	}

	return changes, unknown
}

//
// serialization
//

// Strings renders changes back into wire-ready (modestring, params...)
// slices against this perspective's table. maxParams > 0 splits the output
// into several messages of at most that many parameters each; organize
// reorders the changes positive-then-negative (stable within each sign).
// View changes and names this perspective has no letter for are dropped.
func (changes ModeChanges) Strings(t *Table, maxParams int, organize bool) (result [][]string) {
	working := changes
	if organize {
		working = make(ModeChanges, 0, len(changes))
		for _, change := range changes {
			if change.Op == Add {
				working = append(working, change)
			}
		}
		for _, change := range changes {
			if change.Op == Remove {
				working = append(working, change)
			}
		}
	}

	var modestr strings.Builder
	var params []string
	var op ModeOp

	flush := func() {
		if modestr.Len() != 0 {
			line := append([]string{modestr.String()}, params...)
			result = append(result, line)
		}
		modestr.Reset()
		params = nil
		op = 0
	}

	for _, change := range working {
		if change.Op != Add && change.Op != Remove {
			continue
		}
		binding, ok := t.byName[change.Name]
		if !ok {
			continue
		}
		takesParam := change.Param != ""
		if takesParam && maxParams > 0 && len(params) == maxParams {
			flush()
		}
		if change.Op != op {
			op = change.Op
			modestr.WriteRune(rune(op))
		}
		modestr.WriteRune(binding.Letter)
		if takesParam {
			params = append(params, change.Param)
		}
	}
	flush()

	return
}

//
// defaults
//

// BasicStatusLevel is the rank at which a member may change the channel's
// simple modes (halfop and up).
const BasicStatusLevel = 1

// status levels, lowest to highest
const (
	VoiceLevel  = 0
	HalfopLevel = 1
	OpLevel     = 2
	AdminLevel  = 3
	OwnerLevel  = 4
)

// DefaultCmodeTable returns our native channel mode bindings. The config may
// rebind letters, and a peer's burst may override its own copy wholesale.
func DefaultCmodeTable() *Table {
	t := NewTable()
	for _, b := range []Binding{
		{Letter: 'b', Name: "ban", Type: List},
		{Letter: 'e', Name: "except", Type: List},
		{Letter: 'I', Name: "invite_except", Type: List},
		{Letter: 'A', Name: "access", Type: List},
		{Letter: 'l', Name: "limit", Type: ParameterSet},
		{Letter: 'f', Name: "forward", Type: ParameterSet},
		{Letter: 'j', Name: "join_throttle", Type: Parameter},
		{Letter: 'k', Name: "key", Type: Key},
		{Letter: 'i', Name: "invite_only", Type: Normal},
		{Letter: 'm', Name: "moderated", Type: Normal},
		{Letter: 'n', Name: "no_ext", Type: Normal},
		{Letter: 'p', Name: "private", Type: Normal},
		{Letter: 's', Name: "secret", Type: Normal},
		{Letter: 't', Name: "protect_topic", Type: Normal},
		{Letter: 'g', Name: "free_invite", Type: Normal},
		{Letter: 'z', Name: "op_moderated", Type: Normal},
		{Letter: 'q', Name: "owner", Type: Status, Prefix: '~', Level: OwnerLevel},
		{Letter: 'a', Name: "admin", Type: Status, Prefix: '&', Level: AdminLevel},
		{Letter: 'o', Name: "op", Type: Status, Prefix: '@', Level: OpLevel},
		{Letter: 'h', Name: "halfop", Type: Status, Prefix: '%', Level: HalfopLevel},
		{Letter: 'v', Name: "voice", Type: Status, Prefix: '+', Level: VoiceLevel},
	} {
		t.Register(b)
	}
	return t
}

// DefaultUmodeTable returns our native user mode bindings.
func DefaultUmodeTable() *Table {
	t := NewTable()
	for _, b := range []Binding{
		{Letter: 'i', Name: "invisible", Type: Normal},
		{Letter: 'o', Name: "ircop", Type: Normal},
		{Letter: 'w', Name: "wallops", Type: Normal},
		{Letter: 'D', Name: "deaf", Type: Normal},
		{Letter: 'S', Name: "service", Type: Normal},
		{Letter: 'a', Name: "admin", Type: Normal},
		{Letter: 'Z', Name: "ssl", Type: Normal},
	} {
		t.Register(b)
	}
	return t
}
