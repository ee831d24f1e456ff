package httpsrv

import "strings"

// Headers is an ordered set of response header lines. A map loses
// insertion order, which this server's two-header FULL response and
// the Connection: close line of a 503 both depend on, so Headers
// keeps an explicit slice instead.
type Headers struct {
	keys   []string
	values []string
}

// Set appends a header line; sws never needs to replace a header
// already set, so this does not deduplicate by key.
func (h *Headers) Set(key, value string) {
	h.keys = append(h.keys, key)
	h.values = append(h.values, value)
}

// Get returns the first value for key, or "" if absent.
func (h *Headers) Get(key string) string {
	for i, k := range h.keys {
		if k == key {
			return h.values[i]
		}
	}
	return ""
}

// String renders the header block terminated by a blank line, per
// the "Content-length: <n>\r\nContent-type: <t>\r\n\r\n" shape.
func (h *Headers) String() string {
	var b strings.Builder
	for i, k := range h.keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(h.values[i])
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.String()
}
