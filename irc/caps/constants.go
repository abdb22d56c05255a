// Copyright (c) 2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package caps

// Capability represents an optional TS6 feature negotiated with a peer
// server in its CAPAB line at link time. All of these are advisory: they
// change which wire form we pick when encoding, never whether a command
// family exists.
type Capability string

const (
	// QS means the peer handles quit storms: one SQUIT tears down a whole
	// subtree without per-user QUITs.
	QS Capability = "QS"
	// EX means the peer supports ban exceptions (cmode +e).
	EX Capability = "EX"
	// IE means the peer supports invite exceptions (cmode +I).
	IE Capability = "IE"
	// CHW means the peer allows messages to @#channel and the like.
	CHW Capability = "CHW"
	// KLN means the peer accepts the direct KLINE command.
	KLN Capability = "KLN"
	// UNKLN means the peer accepts the direct UNKLINE command.
	UNKLN Capability = "UNKLN"
	// KNOCK means the peer propagates KNOCK.
	KNOCK Capability = "KNOCK"
	// TB means the peer accepts topic bursts (TB) carrying setter and TS.
	TB Capability = "TB"
	// ENCAP means the peer routes encapsulated subcommands.
	ENCAP Capability = "ENCAP"
	// SAVE means the peer resolves nick collisions by forcing the nick to
	// the UID instead of killing.
	SAVE Capability = "SAVE"
	// SERVICES means the peer understands services-reserved umodes/cmodes.
	SERVICES Capability = "SERVICES"
	// RSFNC means the peer accepts forced nick changes from services.
	RSFNC Capability = "RSFNC"
	// EUID means the peer accepts EUID (user introduction with real host
	// and account in one command).
	EUID Capability = "EUID"
	// EOPMOD means the peer supports ops-only topics and messages (=#chan).
	EOPMOD Capability = "EOPMOD"
	// BAN means the peer accepts the unified BAN command with absolute
	// creation TS, duration and lifetime.
	BAN Capability = "BAN"
	// MLOCK means the peer accepts mode locks from services.
	MLOCK Capability = "MLOCK"
	// CLUSTER means the peer participates in cluster-shared ban state.
	CLUSTER Capability = "CLUSTER"
)

// Name returns the name of the given capability.
func (capability Capability) Name() string {
	return string(capability)
}
