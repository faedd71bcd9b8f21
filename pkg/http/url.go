package http

import (
	"strings"
)

// URL is a best-effort split of scheme://host[:port]/path[?query][#frag].
// Every missing component is the empty string. No validation is performed
type URL struct {
	Scheme   string
	Hostname string
	Port     string
	Path     string
	Query    string
	Fragment string
}

// ParseURL splits the fragment and query off the right, then the scheme, path and port off the
// remaining authority. Malformed input produces whatever split falls out; there is no error case
func ParseURL(in string) URL {
	var u URL
	base := in

	if i := strings.Index(base, "#"); i >= 0 {
		base, u.Fragment = base[:i], base[i+1:]
	}
	if i := strings.Index(base, "?"); i >= 0 {
		base, u.Query = base[:i], base[i+1:]
	}
	if i := strings.Index(base, "://"); i >= 0 {
		u.Scheme, base = base[:i], base[i+3:]
	}
	if i := strings.Index(base, "/"); i >= 0 {
		// the leading slash is kept with the path
		base, u.Path = base[:i], base[i:]
	}
	if i := strings.Index(base, ":"); i >= 0 {
		base, u.Port = base[:i], base[i+1:]
	}
	u.Hostname = base
	return u
}

// Host returns hostname[:port]. This is the key the pool indexes sessions by
func (u URL) Host() string {
	if u.Port == "" {
		return u.Hostname
	}
	return u.Hostname + ":" + u.Port
}

// Resource returns the origin-form request target path[?query]
func (u URL) Resource() string {
	return string(u.AppendResource(nil))
}

// AppendResource appends the origin-form request target to buf
func (u URL) AppendResource(buf []byte) []byte {
	if u.Path == "" {
		buf = append(buf, '/')
	} else {
		buf = append(buf, u.Path...)
	}
	if u.Query != "" {
		buf = append(buf, '?')
		buf = append(buf, u.Query...)
	}
	return buf
}

func (u URL) String() string {
	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteString("://")
	}
	b.WriteString(u.Host())
	b.WriteString(u.Path)
	if u.Query != "" {
		b.WriteByte('?')
		b.WriteString(u.Query)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}
	return b.String()
}
