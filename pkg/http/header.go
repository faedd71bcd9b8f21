package http

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/assetnote/kitehttp/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/valyala/bytebufferpool"
)

var (
	crlf    = []byte("\r\n")
	crlfx2  = []byte("\r\n\r\n")
	bColSep = []byte(": ")
)

// Header is the head of a message: the first line (request-line or status-line) and a
// case-insensitive multi-valued set of fields.
//
// Keys are stored lowercased and trimmed, values trimmed. Keys serialize in the order they
// were first inserted, and a key with multiple values produces consecutive lines
type Header struct {
	Line string

	fields map[string][]string
	keys   []string
}

// NewHeader returns an empty header with no first line
func NewHeader() *Header {
	return &Header{fields: make(map[string][]string)}
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// SetRequestLine sets the first line to "<METHOD> <resource> HTTP/1.1"
func (h *Header) SetRequestLine(m Method, u URL) {
	h.Line = string(m) + " " + u.Resource() + " " + Proto
}

// SetStatusLine sets the first line to the serialized status
func (h *Header) SetStatusLine(s Status) {
	h.Line = s.String()
}

// Add appends value to the values of key
func (h *Header) Add(key, value string) {
	if h.fields == nil {
		h.fields = make(map[string][]string)
	}
	k := normalizeKey(key)
	v := strings.TrimSpace(value)
	if _, ok := h.fields[k]; !ok {
		h.keys = append(h.keys, k)
	}
	h.fields[k] = append(h.fields[k], v)
}

// Set replaces all the values for key with value
func (h *Header) Set(key, value string) {
	if h.fields == nil {
		h.fields = make(map[string][]string)
	}
	k := normalizeKey(key)
	if _, ok := h.fields[k]; !ok {
		h.keys = append(h.keys, k)
	}
	h.fields[k] = []string{strings.TrimSpace(value)}
}

// SetIfEmpty sets key to value only when key has no values yet
func (h *Header) SetIfEmpty(key, value string) {
	if h.Has(key) {
		return
	}
	h.Set(key, value)
}

// Del removes every value for key
func (h *Header) Del(key string) {
	k := normalizeKey(key)
	if _, ok := h.fields[k]; !ok {
		return
	}
	delete(h.fields, k)
	for i, v := range h.keys {
		if v == k {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
}

// Has reports whether key has at least one value
func (h *Header) Has(key string) bool {
	_, ok := h.fields[normalizeKey(key)]
	return ok
}

// Get returns the first value inserted for key
func (h *Header) Get(key string) (string, bool) {
	v, ok := h.fields[normalizeKey(key)]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Values returns every value for key in insertion order. The slice must not be modified
func (h *Header) Values(key string) []string {
	return h.fields[normalizeKey(key)]
}

// Keys returns the normalized keys in first insertion order
func (h *Header) Keys() []string {
	return append([]string{}, h.keys...)
}

// Len returns the number of distinct keys
func (h *Header) Len() int {
	return len(h.keys)
}

// Clone returns a deep copy of the header
func (h *Header) Clone() *Header {
	ret := &Header{
		Line:   h.Line,
		fields: make(map[string][]string, len(h.fields)),
		keys:   append([]string{}, h.keys...),
	}
	for k, v := range h.fields {
		ret.fields[k] = append([]string{}, v...)
	}
	return ret
}

// Equal reports whether both headers have the same first line and the same values per key.
// Key order is not compared
func (h *Header) Equal(o *Header) bool {
	if h.Line != o.Line || len(h.fields) != len(o.fields) {
		return false
	}
	for k, v := range h.fields {
		ov, ok := o.fields[k]
		if !ok || len(ov) != len(v) {
			return false
		}
		for i := range v {
			if v[i] != ov[i] {
				return false
			}
		}
	}
	return true
}

// ParseHeader decodes a header block as read off the wire. The first line is kept verbatim.
// Every following non-empty line must be a key: value pair. The block ends at the first empty line
// and nothing but empty lines may follow it
func ParseHeader(b []byte) (*Header, error) {
	if !utf8.Valid(b) {
		return nil, errors.New(errors.MalformedHeader, "parse_header", "header is not valid utf-8")
	}

	h := NewHeader()
	lines := strings.Split(string(b), "\r\n")
	h.Line = lines[0]

	terminated := false
	for _, line := range lines[1:] {
		if len(line) == 0 {
			terminated = true
			continue
		}
		if terminated {
			return nil, errors.New(errors.MalformedHeader, "parse_header", "malformed header, found data after termination marker")
		}

		i := strings.IndexByte(line, ':')
		if i < 0 {
			return nil, errors.New(errors.MalformedHeader, "parse_header", "malformed header line: \""+line+"\"")
		}
		h.Add(line[:i], line[i+1:])
	}
	return h, nil
}

// AppendBytes appends the wire form of the header, including the terminating blank line, to dst
func (h *Header) AppendBytes(dst []byte) []byte {
	dst = append(dst, h.Line...)
	dst = append(dst, crlf...)
	for _, k := range h.keys {
		for _, v := range h.fields[k] {
			dst = append(dst, k...)
			dst = append(dst, bColSep...)
			dst = append(dst, v...)
			dst = append(dst, crlf...)
		}
	}
	return append(dst, crlf...)
}

// Bytes returns the wire form of the header
func (h *Header) Bytes() []byte {
	return h.AppendBytes(nil)
}

func (h *Header) String() string {
	w := bytebufferpool.Get()
	w.B = h.AppendBytes(w.B)
	ret := string(bytes.TrimSuffix(w.B, crlfx2))
	bytebufferpool.Put(w)
	return ret
}

func (h *Header) MarshalZerologObject(e *zerolog.Event) {
	e.Str("line", h.Line)
	for _, k := range h.keys {
		e.Strs(k, h.fields[k])
	}
}
