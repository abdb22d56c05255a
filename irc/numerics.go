// Copyright (c) 2026 the juno authors
// released under the MIT license

package irc

// The handful of numerics the core emits. Replies to users on remote
// servers are legal TS6: the numeric travels to the user's server with the
// UID as its first parameter. A full numeric table is a client-layer
// concern and lives outside the core.
const (
	RPL_NAMREPLY         = "353"
	RPL_ENDOFNAMES       = "366"
	ERR_NOSUCHNICK       = "401"
	ERR_NOSUCHSERVER     = "402"
	ERR_NOSUCHCHANNEL    = "403"
	ERR_UNKNOWNCOMMAND   = "421"
	ERR_USERNOTINCHANNEL = "441"
	ERR_NEEDMOREPARAMS   = "461"
	ERR_CHANOPRIVSNEEDED = "482"
)
