// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

import (
	"strconv"
	"strings"
	"time"

	"github.com/junoircd/juno/irc/modes"
	"github.com/junoircd/juno/irc/utils"
)

// ModeRequest is the record handed to mode blocks, one per change. Blocks
// may mutate it: replace Param, set TargetUser once resolved, set DoNotSet
// to discard the state change after winning, push extra output parameters,
// or steer the no-privs reply with SendNoPrivs / HideNoPrivs.
type ModeRequest struct {
	Channel *Channel
	Source  Actor
	Name    string
	State   bool
	Param   string
	Params  []string

	// Force bypasses permissions; Protocol means identifiers in Param
	// are UIDs rather than nicknames.
	Force    bool
	Protocol bool

	// HasBasicStatus is true iff Force, or the source is a server, or
	// the source's highest level on the channel clears the simple-modes
	// threshold.
	HasBasicStatus bool

	TargetUser  *User
	DoNotSet    bool
	SendNoPrivs string
	HideNoPrivs bool
}

// A ModeBlock votes on one mode change. Every registered block for the
// mode name must return true for the change to win.
type ModeBlock func(server *Server, req *ModeRequest) bool

// RegisterModeBlock appends a block to the named mode's chain. Blocks run
// in registration order.
func (server *Server) RegisterModeBlock(name string, block ModeBlock) {
	server.modeBlocks[name] = append(server.modeBlocks[name], block)
}

// modeTakesParam reports whether a change of this type and direction
// consumes a parameter.
func modeTakesParam(modeType modes.ModeType, state bool) bool {
	switch modeType {
	case modes.List, modes.Parameter, modes.Status, modes.Key:
		return true
	case modes.ParameterSet:
		return state
	}
	return false
}

// ApplyModeChanges commits the allowed subset of changes to the channel
// and returns the change log of what actually happened, parameters in
// wire-canonical form (status targets as UIDs). Nothing is emitted here;
// the caller decides whether the log propagates.
func (server *Server) ApplyModeChanges(source Actor, channel *Channel, changes modes.ModeChanges, force, protocol bool) (applied modes.ModeChanges) {
	limits := server.Config().Limits
	now := time.Now().Unix()

	for _, change := range changes {
		if change.Op != modes.Add && change.Op != modes.Remove {
			continue
		}
		binding, ok := server.cmodes.ByName(change.Name)
		if !ok {
			continue
		}
		state := change.Op == modes.Add
		param := change.Param

		if modeTakesParam(binding.Type, state) {
			if binding.Type == modes.Key && !state && param == "" {
				// removing a key displays as "*" regardless of input
				param = "*"
			}
			if param == "" || param[0] == ':' || strings.ContainsAny(param, " \t") {
				continue
			}
			maxLen := limits.ParamLen
			if binding.Type == modes.List {
				maxLen = limits.BanLen
			}
			if maxLen > 0 && len(param) > maxLen {
				param = param[:maxLen]
			}
		} else {
			param = ""
		}

		req := &ModeRequest{
			Channel:  channel,
			Source:   source,
			Name:     change.Name,
			State:    state,
			Param:    param,
			Force:    force,
			Protocol: protocol,
		}
		req.HasBasicStatus = force || source.IsServer() || server.sourceHasBasicStatus(channel, source)

		won := true
		for _, block := range server.modeBlocks[change.Name] {
			if !block(server, req) {
				won = false
				break
			}
		}
		if !won {
			server.sendModeNoPrivs(req)
			continue
		}
		if req.DoNotSet {
			continue
		}
		param = req.Param

		committed := false
		committedParam := param
		switch binding.Type {
		case modes.Normal:
			if state {
				if !channel.HasMode(change.Name) {
					channel.SetMode(change.Name, "", now)
					committed = true
				}
			} else {
				committed = channel.UnsetMode(change.Name)
			}
		case modes.Parameter, modes.ParameterSet, modes.Key:
			if state {
				if !channel.HasMode(change.Name) || channel.ModeParam(change.Name) != param {
					channel.SetMode(change.Name, param, now)
					committed = true
				}
			} else {
				committed = channel.UnsetMode(change.Name)
			}
		case modes.List:
			if state {
				committed = channel.AddToList(change.Name, ListEntry{
					Param: param,
					SetBy: source.Name(),
					Time:  now,
				})
			} else {
				committed = channel.RemoveFromList(change.Name, param)
			}
		case modes.Status:
			target := req.TargetUser
			if target == nil {
				target = server.resolveModeTarget(param, protocol)
			}
			if target == nil {
				continue
			}
			if state {
				committed = channel.AddStatus(change.Name, target.ID)
			} else {
				committed = channel.RemoveStatus(change.Name, target.ID)
			}
			committedParam = target.UID
		}

		if committed {
			op := modes.Add
			if !state {
				op = modes.Remove
			}
			applied = append(applied, modes.ModeChange{
				Name:  change.Name,
				Op:    op,
				Param: committedParam,
			})
		}
	}
	return
}

func (server *Server) resolveModeTarget(param string, protocol bool) *User {
	if protocol {
		return server.pool.UserByUID(param)
	}
	return server.pool.UserByNick(param)
}

func (server *Server) sourceHasBasicStatus(channel *Channel, source Actor) bool {
	if source.User == nil {
		return false
	}
	level, held := channel.HighestLevel(source.User.ID, server.cmodes)
	return held && level >= modes.BasicStatusLevel
}

// sendModeNoPrivs applies the no-privs reply policy: the standard numeric
// for a user source lacking basic status, a block-supplied custom reply
// when they have status but the block still refused, nothing for servers,
// forced changes, or blocks that asked to stay quiet.
func (server *Server) sendModeNoPrivs(req *ModeRequest) {
	if req.Force || !req.Source.IsUser() || req.HideNoPrivs {
		return
	}
	if !req.HasBasicStatus {
		server.sendNumeric(req.Source.User, ERR_CHANOPRIVSNEEDED, req.Channel.Name, "You're not a channel operator")
		return
	}
	if req.SendNoPrivs != "" {
		server.sendNumeric(req.Source.User, ERR_CHANOPRIVSNEEDED, req.Channel.Name, req.SendNoPrivs)
	}
}

//
// core mode blocks
//

// registerCoreModeBlocks wires the standard behavior for every mode in
// the default table. Everything here keys off mode names, so a config
// that rebinds letters changes the wire, not these rules.
func (server *Server) registerCoreModeBlocks() {
	for _, name := range []string{
		"invite_only", "moderated", "no_ext", "private", "secret",
		"protect_topic", "free_invite", "op_moderated", "key", "forward",
	} {
		server.RegisterModeBlock(name, basicStatusModeBlock)
	}
	server.RegisterModeBlock("limit", limitModeBlock)
	server.RegisterModeBlock("join_throttle", joinThrottleModeBlock)
	for _, name := range []string{"ban", "except", "invite_except"} {
		server.RegisterModeBlock(name, listModeBlock)
	}
	server.RegisterModeBlock("access", listModeBlock)
	server.RegisterModeBlock("access", accessModeBlock)
	for _, binding := range server.cmodes.StatusModes() {
		server.RegisterModeBlock(binding.Name, statusModeBlock)
	}
}

func basicStatusModeBlock(server *Server, req *ModeRequest) bool {
	return req.HasBasicStatus
}

func limitModeBlock(server *Server, req *ModeRequest) bool {
	if !req.HasBasicStatus {
		return false
	}
	if !req.State {
		return true
	}
	limit, err := strconv.Atoi(req.Param)
	if err != nil || limit <= 0 {
		req.HideNoPrivs = true
		return false
	}
	req.Param = strconv.Itoa(limit)
	return true
}

func joinThrottleModeBlock(server *Server, req *ModeRequest) bool {
	if !req.HasBasicStatus {
		return false
	}
	if !req.State {
		return true
	}
	count, period, found := strings.Cut(req.Param, ":")
	if !found {
		req.HideNoPrivs = true
		return false
	}
	if _, err := strconv.Atoi(count); err != nil {
		req.HideNoPrivs = true
		return false
	}
	if _, err := strconv.Atoi(period); err != nil {
		req.HideNoPrivs = true
		return false
	}
	return true
}

func listModeBlock(server *Server, req *ModeRequest) bool {
	if !req.HasBasicStatus {
		return false
	}
	limit := server.Config().Limits.ChanListModes
	if req.State && limit > 0 && req.Channel.ListCount(req.Name) >= limit {
		req.SendNoPrivs = "Channel list is full"
		return false
	}
	return true
}

// accessModeBlock validates access entries: "status:mask", where status
// names a status mode of our perspective. Entries are stored only;
// automatic application on join is a future feature.
func accessModeBlock(server *Server, req *ModeRequest) bool {
	if !req.State {
		return true
	}
	statusName, mask, found := strings.Cut(req.Param, ":")
	if !found || mask == "" {
		req.SendNoPrivs = "Invalid access entry, expected status:mask"
		return false
	}
	binding, ok := server.cmodes.ByName(statusName)
	if !ok || binding.Type != modes.Status {
		req.SendNoPrivs = "Invalid access entry, unknown status " + utils.SafeErrorParam(statusName)
		return false
	}
	return true
}

func statusModeBlock(server *Server, req *ModeRequest) bool {
	target := server.resolveModeTarget(req.Param, req.Protocol)
	if target == nil {
		if req.Source.IsUser() && !req.Force {
			server.sendNumeric(req.Source.User, ERR_NOSUCHNICK, utils.SafeErrorParam(req.Param), "No such nick")
		}
		req.HideNoPrivs = true
		return false
	}
	if !req.Channel.HasMember(target.ID) {
		if req.Source.IsUser() && !req.Force {
			server.sendNumeric(req.Source.User, ERR_USERNOTINCHANNEL, target.Nick, req.Channel.Name, "They aren't on that channel")
		}
		req.HideNoPrivs = true
		return false
	}
	req.TargetUser = target

	if req.Force || req.Source.IsServer() {
		return true
	}
	if !req.HasBasicStatus {
		return false
	}
	if !req.State {
		sourceLevel, _ := req.Channel.HighestLevel(req.Source.User.ID, server.cmodes)
		targetLevel, targetHeld := req.Channel.HighestLevel(target.ID, server.cmodes)
		if targetHeld && sourceLevel <= targetLevel {
			req.SendNoPrivs = "You can't demote someone at or above your own status"
			return false
		}
	}
	return true
}
