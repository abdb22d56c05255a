// Copyright (c) 2020 Shivaram Lingamneni
// Released under the MIT license

package irc

import "fmt"

const (
	// SemVer is the semantic version of juno.
	SemVer = "0.4.0"

	// maxLineLen is the TS6 line budget: 510 octets plus CRLF. Outbound
	// frames are truncated to fit; the nicklist and ban-list builders stay
	// well inside it.
	maxLineLen = 512

	// tsCurrent and tsMin are the TS protocol versions we speak and the
	// oldest we will link with. TS6 only.
	tsCurrent = 6
	tsMin     = 6

	// saveNickTS is the nick TS a saved user ends up with. Anything that
	// collides with a freshly saved nick loses to it.
	saveNickTS = 100

	// defaultChannelModes is applied to locally created channels when the
	// config file doesn't specify otherwise.
	defaultChannelModes = "+nt"
)

var (
	// Ver is the full version of juno, used in link handshakes and notices.
	Ver = fmt.Sprintf("juno-%s", SemVer)
	// Commit is the full git hash, if available
	Commit string
)

// initialize version strings (these are set in package main via linker flags)
func SetVersionString(version, commit string) {
	Commit = commit
	if version != "" {
		Ver = fmt.Sprintf("juno-%s", version)
	} else if len(Commit) == 40 {
		Ver = fmt.Sprintf("juno-%s-%s", SemVer, Commit[:16])
	}
}
