// Copyright (c) 2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package utils

import (
	"errors"
	"strings"
)

var (
	ErrInvalidParams = errors.New("Invalid parameters")
)

// ChunkifyParams breaks a list of parameters into chunks whose joined length
// (separating spaces included) stays at or under maxChars. A single oversized
// parameter still gets a chunk of its own.
func ChunkifyParams(params []string, maxChars int) [][]string {
	var chunked [][]string

	var acc []string
	length := 0

	for _, p := range params {
		if len(acc) != 0 && length+len(p)+1 > maxChars {
			chunked = append(chunked, acc)
			acc = nil
			length = 0
		}
		if length != 0 {
			length++ // the separating space
		}
		length += len(p)
		acc = append(acc, p)
	}

	if len(acc) != 0 {
		chunked = append(chunked, acc)
	}

	return chunked
}

// SafeErrorParam checks that a parameter can be passed as a non-trailing,
// and returns "*" if it can't.
func SafeErrorParam(param string) string {
	if param == "" || param[0] == ':' || strings.IndexByte(param, ' ') != -1 {
		return "*"
	}
	return param
}

// TokenLineBuilder is a helper for building IRC lines composed of delimited
// tokens, with a maximum line length.
type TokenLineBuilder struct {
	lineLen int
	delim   string
	buf     strings.Builder
	result  []string
}

func (t *TokenLineBuilder) Initialize(lineLen int, delim string) {
	t.lineLen = lineLen
	t.delim = delim
}

// Add adds a token to the line, creating a new line if necessary.
func (t *TokenLineBuilder) Add(token string) {
	tokenLen := len(token)
	if t.buf.Len() != 0 {
		tokenLen += len(t.delim)
	}
	if t.lineLen < t.buf.Len()+tokenLen {
		t.result = append(t.result, t.buf.String())
		t.buf.Reset()
	}
	if t.buf.Len() != 0 {
		t.buf.WriteString(t.delim)
	}
	t.buf.WriteString(token)
}

// AddParts concatenates the pieces into a token, then adds it as with Add.
func (t *TokenLineBuilder) AddParts(parts ...string) {
	var tokenLen int
	for _, part := range parts {
		tokenLen += len(part)
	}
	if t.buf.Len() != 0 {
		tokenLen += len(t.delim)
	}
	if t.lineLen < t.buf.Len()+tokenLen {
		t.result = append(t.result, t.buf.String())
		t.buf.Reset()
	}
	if t.buf.Len() != 0 {
		t.buf.WriteString(t.delim)
	}
	for _, part := range parts {
		t.buf.WriteString(part)
	}
}

// Lines terminates the line-building and returns all the lines.
func (t *TokenLineBuilder) Lines() (result []string) {
	result = t.result
	t.result = nil
	if t.buf.Len() != 0 {
		result = append(result, t.buf.String())
		t.buf.Reset()
	}
	return
}

// BuildTokenLines is a convenience to apply TokenLineBuilder to a predetermined
// slice of tokens.
func BuildTokenLines(lineLen int, tokens []string, delim string) []string {
	var tl TokenLineBuilder
	tl.Initialize(lineLen, delim)
	for _, arg := range tokens {
		tl.Add(arg)
	}
	return tl.Lines()
}
