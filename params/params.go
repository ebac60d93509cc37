// Package params implements the textual configuration protocol of the boiler controller.
//
// Read responses are CRLF separated key=value lines. Write requests are '&' joined key=value
// pairs, each side percent-encoded the way a browser's encodeURIComponent does it.
package params

import (
	"net/url"
	"sort"
	"strings"
)

// LineSeparator separates records in configuration read responses.
const LineSeparator = "\r\n"

// PairSeparator separates records in configuration write requests.
const PairSeparator = "&"

// Parse splits text on sep and returns the key=value records it contains.
//
// Records split on their first '=', so values may contain '='. Keys and values are trimmed.
// Records with a blank key are ignored and a record without '=' maps its key to the empty
// string. When sep is empty, LineSeparator is used.
func Parse(text string, sep string) map[string]string {
	if sep == "" {
		sep = LineSeparator
	}

	out := make(map[string]string)
	for _, line := range strings.Split(text, sep) {
		key, value, _ := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}

	return out
}

// ParseRequest decodes a write request produced by Encode.
func ParseRequest(body string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(body, PairSeparator) {
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.PathUnescape(rawKey)
		if err != nil {
			return nil, err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value, err := url.PathUnescape(rawValue)
		if err != nil {
			return nil, err
		}
		out[key] = strings.TrimSpace(value)
	}

	return out, nil
}

// Encode builds a write request from values. Keys are emitted in sorted order.
func Encode(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(PairSeparator)
		}
		sb.WriteString(Escape(k))
		sb.WriteByte('=')
		sb.WriteString(Escape(values[k]))
	}

	return sb.String()
}

// Escape percent-encodes s like encodeURIComponent: everything except ASCII letters, digits
// and -_.!~*'() is escaped.
func Escape(s string) string {
	const hex = "0123456789ABCDEF"

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}

	return sb.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}

	return strings.IndexByte("-_.!~*'()", c) >= 0
}
