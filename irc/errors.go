// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package irc

import "errors"

// Runtime Errors
var (
	errChannelNameInUse   = errors.New("Channel name in use")
	errInvalidChannelName = errors.New("Invalid channel name")
	errInvalidNick        = errors.New("Invalid nickname")
	errInvalidSID         = errors.New("Invalid server id")
	errInvalidUID         = errors.New("Invalid user id")
	errNicknameInUse      = errors.New("Nickname in use")
	errNoExistingBan      = errors.New("Ban does not exist")
	errNoSuchChannel      = errors.New("No such channel")
	errNoSuchPeer         = errors.New("No such server")
	errNoSuchUser         = errors.New("No such user")
	errNotAMember         = errors.New("User is not on the channel")
	errSIDInUse           = errors.New("Server id in use")
	errServerNameInUse    = errors.New("Server name in use")
	errUIDInUse           = errors.New("User id in use")
)

// Link Errors
var (
	errLinkClosed        = errors.New("Link is closed")
	errLinkNotConfigured = errors.New("No link block matches this server")
	errLinkPassword      = errors.New("Link password mismatch")
	errLinkTSVersion     = errors.New("Incompatible TS protocol version")
	errSendQExceeded     = errors.New("SendQ exceeded")
)

// Config Errors
var (
	ErrDatastorePathMissing  = errors.New("Datastore path missing")
	ErrInvalidCertKeyPair    = errors.New("tls cert+key: invalid pair")
	ErrInvalidSIDConfigured  = errors.New("Server sid must be a valid TS6 SID (a digit followed by two of [0-9A-Z])")
	ErrLimitsAreInsane       = errors.New("Limits aren't setup properly, check them and make them sane")
	ErrLoggerExcludeEmpty    = errors.New("Encountered logging type '-' with no type to exclude")
	ErrLoggerFilenameMissing = errors.New("Logging configuration specifies 'file' method but 'filename' is empty")
	ErrLoggerHasNoTypes      = errors.New("Logger has no types to log")
	ErrNetworkNameMissing    = errors.New("Network name missing")
	ErrServerNameMissing     = errors.New("Server name missing")
	ErrServerNameNotHostname = errors.New("Server name must match the format of a hostname")
)
