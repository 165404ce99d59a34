// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jid

import "strings"

// EscapedChars is a string composed of all the characters that are escaped
// or unescaped by Escape and Unescape, as defined by XEP-0106: JID Escaping.
const EscapedChars = ` "&'/:<>@\`

var escapePairs = []string{
	` `, `\20`,
	`"`, `\22`,
	`&`, `\26`,
	`'`, `\27`,
	`/`, `\2f`,
	`:`, `\3a`,
	`<`, `\3c`,
	`>`, `\3e`,
	`@`, `\40`,
	`\`, `\5c`,
}

var escaper = strings.NewReplacer(escapePairs...)

// Escape maps escapable runes in a localpart to their escaped form as
// defined in XEP-0106: JID Escaping, so that the result is a valid
// localpart even if s contains characters forbidden there.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape maps escape sequences produced by Escape back to their original
// form. Sequences that do not match a known escape are passed through
// unmodified.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+2 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i : i+3] {
		case `\20`:
			b.WriteByte(' ')
		case `\22`:
			b.WriteByte('"')
		case `\26`:
			b.WriteByte('&')
		case `\27`:
			b.WriteByte('\'')
		case `\2f`:
			b.WriteByte('/')
		case `\3a`:
			b.WriteByte(':')
		case `\3c`:
			b.WriteByte('<')
		case `\3e`:
			b.WriteByte('>')
		case `\40`:
			b.WriteByte('@')
		case `\5c`:
			b.WriteByte('\\')
		default:
			b.WriteByte(s[i])
			continue
		}
		i += 2
	}
	return b.String()
}
