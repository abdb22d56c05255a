// Copyright (c) 2026 the juno authors
// released under the MIT license

package utils

import (
	"strings"
)

// Casefold lowercases a string under the rfc1459 casemapping, which is what
// TS6 peers agree on: in addition to ASCII, the pairs {} [] | \ ^ ~ fold
// together because they share code points in Scandinavian charsets.
func Casefold(str string) string {
	var builder strings.Builder
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch {
		case 'A' <= c && c <= 'Z':
			c += 'a' - 'A'
		case c == '[':
			c = '{'
		case c == ']':
			c = '}'
		case c == '\\':
			c = '|'
		case c == '~':
			c = '^'
		}
		builder.WriteByte(c)
	}
	return builder.String()
}

// ValidChannelName enforces the channel name shape the mesh agrees on:
// a leading '#', no spaces, commas or wildcard characters, no control chars.
func ValidChannelName(name string) bool {
	if len(name) < 2 || name[0] != '#' {
		return false
	}
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case ' ', ',', '*', '?', '\x00', '\x07', '\r', '\n':
			return false
		}
	}
	return true
}

// ValidNick is the shape check applied to remotely-introduced nicknames.
// Charset matches what ratbox-family peers emit.
func ValidNick(maxLen int, nick string) bool {
	if len(nick) == 0 || len(nick) > maxLen {
		return false
	}
	if nick[0] == '-' || (nick[0] >= '0' && nick[0] <= '9') {
		return false
	}
	for i := 0; i < len(nick); i++ {
		c := nick[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			continue
		}
		switch c {
		case '-', '_', '[', ']', '{', '}', '\\', '|', '^', '`':
			continue
		}
		return false
	}
	return true
}
