// Copyright (c) 2020 Shivaram Lingamneni <slingamn@cs.stanford.edu>
// released under the MIT license

package utils

import (
	"bytes"
	"regexp"
	"regexp/syntax"
)

// yet another glob implementation in Go

// CompileGlob compiles an IRC mask (`*` and `?` wildcards) into a regexp.
// Inputs are expected to be casefolded already; the compiled matcher is
// case-sensitive.
func CompileGlob(glob string) (result *regexp.Regexp, err error) {
	var buf bytes.Buffer
	buf.WriteByte('^')
	for _, r := range glob {
		switch r {
		case '*':
			buf.WriteString("(.*)")
		case '?':
			buf.WriteString("(.)")
		case 0xFFFD:
			return nil, &syntax.Error{Code: syntax.ErrInvalidUTF8, Expr: glob}
		default:
			buf.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	buf.WriteByte('$')
	return regexp.Compile(buf.String())
}

// GlobMatch reports whether the mask matches the candidate under rfc1459
// casefolding. On hot paths, CompileGlob a casefolded mask once and cache it.
func GlobMatch(mask, str string) bool {
	matcher, err := CompileGlob(Casefold(mask))
	if err != nil {
		return false
	}
	return matcher.MatchString(Casefold(str))
}
