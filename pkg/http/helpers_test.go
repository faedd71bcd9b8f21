package http

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// pattern returns n bytes where byte i is i mod 256
func pattern(n int) []byte {
	ret := make([]byte, n)
	for i := range ret {
		ret[i] = byte(i % 256)
	}
	return ret
}

func listen(t *testing.T) net.Listener {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln
}

// serveOnce accepts a single connection and runs fn on it as a server side session.
// The returned channel yields fn's result once it finishes
func serveOnce(t *testing.T, ln net.Listener, fn func(s *Session) error) <-chan error {
	errc := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			errc <- err
			return
		}
		defer conn.Close()
		errc <- fn(NewSessionFromConn(conn, nil))
	}()
	return errc
}

// writeAndClose accepts a single connection, writes payload and closes the connection
func writeAndClose(t *testing.T, ln net.Listener, payload []byte) {
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write(payload)
		conn.Close()
	}()
}

// readRequest reads one header block from the server side session
func readRequest(s *Session) (*Header, error) {
	raw, err := s.RecvUntil(crlfx2, DefaultMaxHeaderSize)
	if err != nil {
		return nil, err
	}
	return ParseHeader(raw)
}

// readFull reads exactly len(buf) bytes off a session
func readFull(s *Session, buf []byte) error {
	for got := 0; got < len(buf); {
		n, err := s.Recv(buf[got:])
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrUnexpectedEOF
		}
		got += n
	}
	return nil
}

func statusHeader(code int) *Header {
	h := NewHeader()
	h.SetStatusLine(NewStatus(code))
	return h
}

func wait(t *testing.T, errc <-chan error) {
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for server")
	}
}

// waitFor polls cond until it holds or timeout passes
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func testClient(t *testing.T, opts ...ConfigOption) *Client {
	c, err := NewClient(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}
