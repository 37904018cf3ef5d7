package connector

import "strings"

const upperhex = "0123456789ABCDEF"

// EncodeHeaderWord returns s unchanged when it is pure ASCII and otherwise
// as a single RFC 2047 "Q" encoded-word: =?UTF-8?Q?...?=.
//
// Inside the word, space becomes '_'; '=', '?', '_' and every byte outside
// printable ASCII become =XX with uppercase hex.
func EncodeHeaderWord(s string) string {
	if isASCII(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s)*3 + 12)
	b.WriteString("=?UTF-8?Q?")
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteByte('_')
		case c > ' ' && c < 0x7f && c != '=' && c != '?' && c != '_':
			b.WriteByte(c)
		default:
			b.WriteByte('=')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0x0f])
		}
	}
	b.WriteString("?=")
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
