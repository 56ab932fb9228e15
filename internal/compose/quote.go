package compose

import "strings"

const upperhex = "0123456789ABCDEF"

// quoteURL percent-encodes every byte of u except unreserved characters and
// the ':' and '/' delimiters. Existing escapes are encoded again, matching how
// the links have always been rendered in the alerts.
func quoteURL(u string) string {
	n := 0
	for i := 0; i < len(u); i++ {
		if !keep(u[i]) {
			n++
		}
	}
	if n == 0 {
		return u
	}
	var b strings.Builder
	b.Grow(len(u) + 2*n)
	for i := 0; i < len(u); i++ {
		c := u[i]
		if keep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func keep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '_', '.', '-', '~', ':', '/':
		return true
	}
	return false
}
