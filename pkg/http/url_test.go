package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want URL
	}{
		{"full", "http://www.my-test.com:8080/whatever?a=1&b=2#test",
			URL{Scheme: "http", Hostname: "www.my-test.com", Port: "8080", Path: "/whatever", Query: "a=1&b=2", Fragment: "test"}},
		{"no port", "http://foo.com/bar", URL{Scheme: "http", Hostname: "foo.com", Path: "/bar"}},
		{"no path", "http://foo.com:90", URL{Scheme: "http", Hostname: "foo.com", Port: "90"}},
		{"no scheme", "foo.com/a/b", URL{Hostname: "foo.com", Path: "/a/b"}},
		{"query without path", "http://foo.com?x=1", URL{Scheme: "http", Hostname: "foo.com", Query: "x=1"}},
		{"slash in query", "http://foo.com/a?next=/b", URL{Scheme: "http", Hostname: "foo.com", Path: "/a", Query: "next=/b"}},
		{"empty", "", URL{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseURL(tt.in))
		})
	}
}

func TestURL_HostResource(t *testing.T) {
	tests := []struct {
		in       string
		host     string
		resource string
	}{
		{"http://localhost:10643/path/is/here?abc=1&def=2", "localhost:10643", "/path/is/here?abc=1&def=2"},
		{"http://foo.com", "foo.com", "/"},
		{"http://foo.com?a=b", "foo.com", "/?a=b"},
		{"http://foo.com:80/x#frag", "foo.com:80", "/x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u := ParseURL(tt.in)
			assert.Equal(t, tt.host, u.Host())
			assert.Equal(t, tt.resource, u.Resource())
		})
	}
}

func TestURL_StringRoundTrip(t *testing.T) {
	for _, in := range []string{
		"http://www.my-test.com:8080/whatever?a=1&b=2#test",
		"https://a.com/b/c?d=e#f",
		"http://a.com",
	} {
		u := ParseURL(in)
		assert.Equal(t, in, u.String())
		assert.Equal(t, u, ParseURL(u.String()))
	}
}
