package http

import (
	"testing"

	"github.com/assetnote/kitehttp/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_CaseInsensitive(t *testing.T) {
	h := NewHeader()
	h.Add("Content-Type", " text/plain ")
	h.Add("CONTENT-TYPE", "application/json")

	for _, k := range []string{"content-type", "Content-Type", "CONTENT-TYPE", "  content-type "} {
		v, ok := h.Get(k)
		assert.True(t, ok, k)
		assert.Equal(t, "text/plain", v, k)
	}
	assert.Equal(t, []string{"text/plain", "application/json"}, h.Values("content-type"))
	assert.Equal(t, 1, h.Len())
}

func TestHeader_SetSemantics(t *testing.T) {
	h := NewHeader()
	h.Add("x-a", "1")
	h.Add("x-a", "2")
	h.Set("X-A", "3")
	assert.Equal(t, []string{"3"}, h.Values("x-a"))

	h.SetIfEmpty("x-a", "4")
	assert.Equal(t, []string{"3"}, h.Values("x-a"))

	h.SetIfEmpty("x-b", "5")
	v, ok := h.Get("x-b")
	assert.True(t, ok)
	assert.Equal(t, "5", v)

	h.Del("x-a")
	_, ok = h.Get("x-a")
	assert.False(t, ok)
	assert.Equal(t, []string{"x-b"}, h.Keys())
}

func TestHeader_ZeroValue(t *testing.T) {
	var h Header
	_, ok := h.Get("host")
	assert.False(t, ok)
	h.Set("host", "a.com")
	v, _ := h.Get("host")
	assert.Equal(t, "a.com", v)
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		line    string
		want    map[string][]string
		wantErr bool
	}{
		{"status only", "HTTP/1.1 200 OK\r\n\r\n", "HTTP/1.1 200 OK", map[string][]string{}, false},
		{"fields", "HTTP/1.1 200 OK\r\nAuthorization:  Bearer token \r\nX-Multi: a\r\nx-multi: b\r\n\r\n", "HTTP/1.1 200 OK",
			map[string][]string{"authorization": {"Bearer token"}, "x-multi": {"a", "b"}}, false},
		{"colon in value", "GET / HTTP/1.1\r\nHost: a.com:8080\r\n\r\n", "GET / HTTP/1.1",
			map[string][]string{"host": {"a.com:8080"}}, false},
		{"empty value", "GET / HTTP/1.1\r\nx-empty:\r\n\r\n", "GET / HTTP/1.1",
			map[string][]string{"x-empty": {""}}, false},
		{"missing colon", "HTTP/1.1 200 OK\r\nbroken\r\n\r\n", "", nil, true},
		{"data after terminator", "HTTP/1.1 200 OK\r\n\r\nx-late: 1\r\n\r\n", "", nil, true},
		{"invalid utf8", "HTTP/1.1 200 OK\r\nx: \xff\xfe\r\n\r\n", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHeader([]byte(tt.in))
			if tt.wantErr {
				assert.NotNil(t, err)
				assert.True(t, errors.IsKind(err, errors.MalformedHeader))
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tt.line, h.Line)
			assert.Equal(t, len(tt.want), h.Len())
			for k, v := range tt.want {
				assert.Equal(t, v, h.Values(k))
			}
		})
	}
}

func TestHeader_Bytes(t *testing.T) {
	h := NewHeader()
	h.SetRequestLine(POST, ParseURL("http://localhost:10643/path/is/here?abc=1&def=2"))
	h.Set("Host", "localhost:10643")
	h.Add("x-multi", "a")
	h.Add("x-multi", "b")
	h.Set("content-length", "0")

	want := "POST /path/is/here?abc=1&def=2 HTTP/1.1\r\n" +
		"host: localhost:10643\r\n" +
		"x-multi: a\r\n" +
		"x-multi: b\r\n" +
		"content-length: 0\r\n" +
		"\r\n"
	assert.Equal(t, want, string(h.Bytes()))
	assert.Equal(t, want[:len(want)-4], h.String())
}

func TestHeader_EmptyBytes(t *testing.T) {
	h := NewHeader()
	h.SetStatusLine(NewStatus(204))
	assert.Equal(t, "HTTP/1.1 204 OK\r\n\r\n", string(h.Bytes()))
}

func TestHeader_RoundTrip(t *testing.T) {
	in := "HTTP/1.1 200 OK\r\nContent-Length: 12\r\nSet-Cookie: a=1\r\nSet-Cookie: b=2\r\nServer: kite\r\n\r\n"
	h, err := ParseHeader([]byte(in))
	require.Nil(t, err)

	again, err := ParseHeader(h.Bytes())
	require.Nil(t, err)
	assert.True(t, h.Equal(again))
	assert.Equal(t, "HTTP/1.1 200 OK", again.Line)
}

func TestHeader_Clone(t *testing.T) {
	h := NewHeader()
	h.Line = "GET / HTTP/1.1"
	h.Add("x-a", "1")

	c := h.Clone()
	c.Add("x-a", "2")
	c.Set("x-b", "3")

	assert.Equal(t, []string{"1"}, h.Values("x-a"))
	assert.False(t, h.Has("x-b"))
	assert.Equal(t, []string{"1", "2"}, c.Values("x-a"))
	assert.False(t, h.Equal(c))
}
