package http

import (
	"io"
	"io/ioutil"
	"math"
	"strings"
	"testing"

	"github.com/assetnote/kitehttp/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode serves payload on a loopback connection and decodes the response head off the client side
func decode(t *testing.T, payload string, noBody bool) (*Session, *Response, error) {
	ln := listen(t)
	writeAndClose(t, ln, []byte(payload))

	s := NewSession(ln.Addr().String(), nil)
	t.Cleanup(func() { s.Close() })

	raw, err := s.RecvUntil(crlfx2, DefaultMaxHeaderSize)
	require.NoError(t, err)
	h, err := ParseHeader(raw)
	require.NoError(t, err)

	r, err := newResponse(s, h, noBody)
	return s, r, err
}

func readAllBody(t *testing.T, r *Response, bufSize int) []byte {
	var (
		ret []byte
		buf = make([]byte, bufSize)
	)
	for {
		n, err := r.ReadBody(buf)
		require.NoError(t, err)
		if n == 0 {
			return ret
		}
		ret = append(ret, buf[:n]...)
	}
}

func TestResponse_FixedLength(t *testing.T) {
	_, r, err := decode(t, "HTTP/1.1 200 OK\r\ncontent-length: 11\r\n\r\nhello world", false)
	require.NoError(t, err)

	assert.Equal(t, 200, r.Status.Code)
	assert.True(t, r.HasBody())
	assert.False(t, r.Chunked())
	assert.Equal(t, 11, r.ContentLength())
	assert.Equal(t, "hello world", string(readAllBody(t, r, 3)))

	// exhausted reads stay at zero
	for i := 0; i < 3; i++ {
		n, err := r.ReadBody(make([]byte, 8))
		assert.NoError(t, err)
		assert.Equal(t, 0, n)
	}
	assert.True(t, r.KeepAlive())
}

func TestResponse_FixedLengthLeavesNextMessage(t *testing.T) {
	s, r, err := decode(t, "HTTP/1.1 200 OK\r\ncontent-length: 3\r\n\r\nabcHTTP/1.1 204 OK\r\n\r\n", false)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(readAllBody(t, r, 64)))

	raw, err := s.RecvUntil(crlfx2, DefaultMaxHeaderSize)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 204 OK\r\n\r\n", string(raw))
}

func TestResponse_NoBody(t *testing.T) {
	_, r, err := decode(t, "HTTP/1.1 200 OK\r\nauthorization: Bearer token\r\n\r\n", false)
	require.NoError(t, err)

	assert.False(t, r.HasBody())
	assert.Equal(t, 0, r.ContentLength())
	n, err := r.ReadBody(make([]byte, 16))
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	v, ok := r.Header.Get("Authorization")
	assert.True(t, ok)
	assert.Equal(t, "Bearer token", v)
}

func TestResponse_BodylessStatusesIgnoreFraming(t *testing.T) {
	for _, payload := range []string{
		"HTTP/1.1 204 OK\r\ncontent-length: 10\r\n\r\n",
		"HTTP/1.1 304 Redirect\r\ntransfer-encoding: chunked\r\n\r\n",
		"HTTP/1.1 101 Information\r\ncontent-length: 10\r\n\r\n",
	} {
		_, r, err := decode(t, payload, false)
		require.NoError(t, err, payload)
		assert.False(t, r.HasBody(), payload)
	}

	_, r, err := decode(t, "HTTP/1.1 200 OK\r\ncontent-length: 10\r\n\r\n", true)
	require.NoError(t, err)
	assert.False(t, r.HasBody(), "response to HEAD")
}

func TestResponse_Chunked(t *testing.T) {
	payload := "HTTP/1.1 200 OK\r\ntransfer-encoding: chunked\r\n\r\n" +
		"5;name=value\r\nhello\r\n" +
		"1a\r\nabcdefghijklmnopqrstuvwxyz\r\n" +
		"0\r\n" +
		"x-trailer: ignored\r\n" +
		"\r\n" +
		"NEXT"
	s, r, err := decode(t, payload, false)
	require.NoError(t, err)

	assert.True(t, r.HasBody())
	assert.True(t, r.Chunked())
	assert.Equal(t, -1, r.ContentLength())
	assert.Equal(t, "helloabcdefghijklmnopqrstuvwxyz", string(readAllBody(t, r, 4)))

	n, err := r.ReadBody(make([]byte, 8))
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	// the terminator and trailers were consumed, the next message starts cleanly
	rest, err := ioutil.ReadAll(readerFunc(s.Recv))
	require.NoError(t, err)
	assert.Equal(t, "NEXT", string(rest))
}

func TestResponse_ChunkedEmpty(t *testing.T) {
	_, r, err := decode(t, "HTTP/1.1 200 OK\r\ntransfer-encoding: chunked\r\n\r\n0\r\n\r\n", false)
	require.NoError(t, err)
	assert.True(t, r.HasBody())
	assert.Equal(t, "", string(readAllBody(t, r, 16)))
}

func TestResponse_ChunkedMissingCRLF(t *testing.T) {
	_, r, err := decode(t, "HTTP/1.1 200 OK\r\ntransfer-encoding: chunked\r\n\r\n5\r\nhelloXX\r\n0\r\n\r\n", false)
	require.NoError(t, err)

	buf := make([]byte, 5)
	var got []byte
	for len(got) < 5 {
		n, err := r.ReadBody(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, "hello", string(got))

	_, err = r.ReadBody(buf)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.FramingOverflow))

	// errors are sticky
	_, err2 := r.ReadBody(buf)
	assert.Equal(t, err, err2)
	assert.False(t, r.KeepAlive())
}

func TestResponse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    errors.Kind
		msg     string
	}{
		{
			name:    "unsupported encoding",
			payload: "HTTP/1.1 200 OK\r\ntransfer-encoding: gzip\r\n\r\n",
			kind:    errors.UnsupportedEncoding,
			msg:     `transfer encoding of "gzip" is not supported`,
		},
		{
			name:    "invalid content length",
			payload: "HTTP/1.1 200 OK\r\ncontent-length: lots\r\n\r\n",
			kind:    errors.MalformedHeader,
			msg:     "invalid content-length",
		},
		{
			name:    "negative content length",
			payload: "HTTP/1.1 200 OK\r\ncontent-length: -1\r\n\r\n",
			kind:    errors.MalformedHeader,
			msg:     "invalid content-length",
		},
		{
			name:    "bad status",
			payload: "HTTP/1.1 200 Very OK\r\n\r\n",
			kind:    errors.MalformedStatus,
			msg:     "unable to parse http status header",
		},
		{
			name:    "bad chunk size",
			payload: "HTTP/1.1 200 OK\r\ntransfer-encoding: chunked\r\n\r\nnope\r\n",
			kind:    errors.MalformedChunk,
			msg:     "invalid chunk size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decode(t, tt.payload, false)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, tt.kind), err.Error())
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestResponse_PrematureEOF(t *testing.T) {
	_, r, err := decode(t, "HTTP/1.1 200 OK\r\ncontent-length: 10\r\n\r\nabc", false)
	require.NoError(t, err)

	buf := make([]byte, 16)
	for {
		_, err = r.ReadBody(buf)
		if err != nil {
			break
		}
	}
	assert.True(t, errors.IsKind(err, errors.PrematureEOF), err.Error())
}

func TestResponse_ReadEntireBody(t *testing.T) {
	const fixed = "HTTP/1.1 200 OK\r\ncontent-length: 11\r\n\r\nhello world"
	const chunked = "HTTP/1.1 200 OK\r\ntransfer-encoding: chunked\r\n\r\n5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"

	tests := []struct {
		name      string
		payload   string
		max       int
		want      string
		wantErr   string
		keepAlive bool
	}{
		{name: "exact limit", payload: fixed, max: 11, want: "hello world", keepAlive: true},
		{name: "unbounded", payload: fixed, max: math.MaxInt64, want: "hello world", keepAlive: true},
		{name: "unbounded chunked", payload: chunked, max: math.MaxInt64, want: "hello world", keepAlive: true},
		{name: "over limit", payload: chunked, max: 10, wantErr: "body exceeds the maximum of 10 bytes"},
		{name: "negative limit", payload: fixed, max: -1, wantErr: "invalid maximum body size -1", keepAlive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, r, err := decode(t, tt.payload, false)
			require.NoError(t, err)

			body, err := r.ReadEntireBody(tt.max)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.IsKind(err, errors.BodyTooLarge), err.Error())
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, body)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, string(body))
			}
			assert.Equal(t, tt.keepAlive, r.KeepAlive())
		})
	}
}

func TestResponse_Reader(t *testing.T) {
	body := strings.Repeat("0123456789", 100)
	_, r, err := decode(t, "HTTP/1.1 200 OK\r\ncontent-length: 1000\r\n\r\n"+body, false)
	require.NoError(t, err)

	got, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestResponse_ConnectionClose(t *testing.T) {
	_, r, err := decode(t, "HTTP/1.1 200 OK\r\nconnection: Close\r\n\r\n", false)
	require.NoError(t, err)
	assert.False(t, r.KeepAlive())
}

// readerFunc adapts Session.Recv to io.Reader
type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) {
	n, err := f(p)
	if err == nil && n == 0 {
		return 0, io.EOF
	}
	return n, err
}
