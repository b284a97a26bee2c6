// Package cardreader interprets the card input stream: RFID readers present
// as keyboards that type the card's digits followed by an end-of-entry
// marker.
package cardreader

import "strings"

// Reader accumulates digit characters until a terminator rune arrives.
// Non-digit, non-terminator characters are discarded.
type Reader struct {
	buf strings.Builder
}

// Feed consumes one input rune. When the rune completes an entry, Feed
// returns the buffered UID and true, and the buffer resets. An entry with
// no digits is discarded.
func (r *Reader) Feed(ch rune) (string, bool) {
	switch {
	case ch == '\n' || ch == '\r':
		uid := r.buf.String()
		r.buf.Reset()
		if uid == "" {
			return "", false
		}
		return uid, true
	case ch >= '0' && ch <= '9':
		r.buf.WriteRune(ch)
		return "", false
	default:
		return "", false
	}
}

// FeedLine consumes a whole line, as delivered by a buffered stdin scanner
func (r *Reader) FeedLine(line string) (string, bool) {
	for _, ch := range line {
		r.Feed(ch)
	}
	return r.Feed('\n')
}
