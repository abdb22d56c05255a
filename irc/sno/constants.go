// Copyright (c) 2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

// Package sno holds Server Notice masks for easy reference.
package sno

// Mask is a type of server notice mask.
type Mask rune

// Notice mask types
const (
	LocalAnnouncements Mask = 'a'
	LocalConnects      Mask = 'c'
	Protocol           Mask = 'd'
	LocalChannels      Mask = 'j'
	LocalKills         Mask = 'k'
	LocalNicks         Mask = 'n'
	LocalOpers         Mask = 'o'
	LocalQuits         Mask = 'q'
	Servers            Mask = 's'
	Stats              Mask = 't'
	LocalXline         Mask = 'x'
)

var (
	// NoticeMaskNames has readable names for our snomask types.
	NoticeMaskNames = map[Mask]string{
		LocalAnnouncements: "ANNOUNCEMENT",
		LocalConnects:      "CONNECT",
		Protocol:           "PROTOCOL",
		LocalChannels:      "CHANNEL",
		LocalKills:         "KILL",
		LocalNicks:         "NICK",
		LocalOpers:         "OPER",
		LocalQuits:         "QUIT",
		Servers:            "SERVER",
		Stats:              "STATS",
		LocalXline:         "XLINE",
	}

	// ValidMasks contains the snomasks that we support.
	ValidMasks = map[Mask]bool{
		LocalAnnouncements: true,
		LocalConnects:      true,
		Protocol:           true,
		LocalChannels:      true,
		LocalKills:         true,
		LocalNicks:         true,
		LocalOpers:         true,
		LocalQuits:         true,
		Servers:            true,
		Stats:              true,
		LocalXline:         true,
	}
)
