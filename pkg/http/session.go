package http

import (
	"bytes"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/assetnote/kitehttp/pkg/errors"
	"github.com/assetnote/kitehttp/pkg/log"
)

// Session owns one TCP connection to Host and the bytes already pulled off it past a message boundary.
//
// A session connects lazily on the first Send or Recv. It is fresh from the moment it connects until it is
// released into a pool; after release it is reused. A write error on a reused session is assumed to be a
// stale keep-alive connection and is retried exactly once on a new connection. Once a write succeeds the
// session is fresh again, so a failure in the middle of a message is never retried.
//
// A Session is not safe for concurrent use. It is owned by exactly one of a pool queue or the holder of a
// Response
type Session struct {
	Host string

	conn     net.Conn
	buf      []byte // pushback: bytes received past the last RecvUntil match
	scratch  []byte
	idleFrom time.Time
	fresh    bool

	config *Config
}

// NewSession returns an unconnected session for host. host is the opaque pool key, e.g. a.com:8080
func NewSession(host string, config *Config) *Session {
	if config == nil {
		config = NewDefaultConfig()
	}
	return &Session{
		Host:   host,
		fresh:  true,
		config: config,
	}
}

// NewSessionFromConn wraps an established connection, e.g. one returned by net.Listener.Accept.
// The host is taken from the remote address
func NewSessionFromConn(conn net.Conn, config *Config) *Session {
	s := NewSession(conn.RemoteAddr().String(), config)
	s.conn = conn
	return s
}

// dialAddr appends the default http port when host has none
func dialAddr(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	h := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return net.JoinHostPort(h, "80")
}

func (s *Session) connect() error {
	addr := dialAddr(s.Host)
	conn, err := s.config.dialer()(addr)
	if err != nil {
		return errors.Wrap(errors.IO, "connect", err).WithHost(s.Host)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			conn.Close()
			return errors.Wrap(errors.IO, "connect", err).WithHost(s.Host)
		}
	}

	log.Debug().Str("host", s.Host).Str("addr", addr).Msg("session connected")
	s.conn = conn
	s.fresh = true
	s.buf = s.buf[:0]
	s.idleFrom = time.Time{}
	return nil
}

// reconnect drops the current connection, keeping the host
func (s *Session) reconnect() error {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	return s.connect()
}

// Send performs one write of buf and returns the bytes written.
// On a reused session a failed write triggers one reconnect and retry; the retry's result is final
func (s *Session) Send(buf []byte) (int, error) {
	if s.conn == nil {
		if err := s.connect(); err != nil {
			return 0, err
		}
	}

	n, err := s.conn.Write(buf)
	if err == nil {
		s.fresh = true
		return n, nil
	}
	if s.fresh {
		return n, errors.Wrap(errors.IO, "send", err).WithHost(s.Host)
	}

	log.Debug().Err(err).Str("host", s.Host).Msg("write on reused session failed, reconnecting")
	if err := s.reconnect(); err != nil {
		return 0, err
	}
	n, err = s.conn.Write(buf)
	if err != nil {
		return n, errors.Wrap(errors.IO, "send", err).WithHost(s.Host)
	}
	return n, nil
}

// SendAll calls Send until buf is fully written
func (s *Session) SendAll(buf []byte) error {
	for total := 0; total < len(buf); {
		n, err := s.Send(buf[total:])
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}

// Recv reads into buf. Buffered pushback bytes are returned first without touching the socket.
// The end of the stream is reported as io.EOF
func (s *Session) Recv(buf []byte) (int, error) {
	if s.conn == nil {
		if err := s.connect(); err != nil {
			return 0, err
		}
	}

	if len(s.buf) > 0 {
		n := copy(buf, s.buf)
		s.buf = s.buf[:copy(s.buf, s.buf[n:])]
		return n, nil
	}

	n, err := s.conn.Read(buf)
	if err != nil && err != io.EOF {
		return n, errors.Wrap(errors.IO, "recv", err).WithHost(s.Host)
	}
	return n, err
}

// RecvUntil reads until seq has been received and returns everything up to and including the first
// occurrence of seq. Bytes received after the match are kept for the next Recv or RecvUntil.
// The match must end within the first max bytes
func (s *Session) RecvUntil(seq []byte, max int) ([]byte, error) {
	if s.conn == nil {
		if err := s.connect(); err != nil {
			return nil, err
		}
	}
	if s.scratch == nil {
		s.scratch = make([]byte, s.config.SendChunk)
	}

	acc := s.buf
	s.buf = nil
	start := 0
	eof := false
	for {
		if i := bytes.Index(acc[start:], seq); i >= 0 {
			end := start + i + len(seq)
			if end > max {
				return nil, s.overflow()
			}
			if len(acc) > end {
				s.buf = append(s.buf, acc[end:]...)
			}
			return acc[:end:end], nil
		}

		if len(acc) >= max {
			return nil, s.overflow()
		}
		if eof {
			return nil, errors.New(errors.PrematureEOF, "recv_until", "stream ended before sequence was found").WithHost(s.Host)
		}

		// a match may straddle the previous read
		if start = len(acc) - len(seq) + 1; start < 0 {
			start = 0
		}

		n, err := s.conn.Read(s.scratch)
		acc = append(acc, s.scratch[:n]...)
		switch {
		case err == io.EOF, err == nil && n == 0:
			eof = true
		case err != nil:
			return nil, errors.Wrap(errors.IO, "recv_until", err).WithHost(s.Host)
		}
	}
}

func (s *Session) overflow() error {
	return errors.New(errors.FramingOverflow, "recv_until", "unable to find sequence within the supplied maximum bytes").WithHost(s.Host)
}

// RecvChunkHeader reads a chunk-size line and returns the size of the chunk payload, not including the CRLF
// that follows the payload. The size is hexadecimal; chunk extensions after ';' are ignored
func (s *Session) RecvChunkHeader() (int, error) {
	line, err := s.RecvUntil(crlf, s.config.ChunkHeaderMax)
	if err != nil {
		return 0, err
	}
	if !utf8.Valid(line) {
		return 0, errors.New(errors.MalformedChunk, "recv_chunk_header", "chunk size is not valid utf-8").WithHost(s.Host)
	}

	sizeStr := string(line)
	if i := strings.IndexByte(sizeStr, ';'); i >= 0 {
		sizeStr = sizeStr[:i]
	}
	sizeStr = strings.TrimSpace(sizeStr)

	size, err := strconv.ParseUint(sizeStr, 16, 31)
	if err != nil {
		return 0, &errors.WireError{Kind: errors.MalformedChunk, Op: "recv_chunk_header", Host: s.Host,
			Context: "invalid chunk size \"" + sizeStr + "\"", Err: err}
	}
	return int(size), nil
}

// SetIdle stamps the session as idle from now and marks it reused
func (s *Session) SetIdle() {
	s.setIdleAt(time.Now())
}

func (s *Session) setIdleAt(t time.Time) {
	s.idleFrom = t
	s.fresh = false
}

// IsExpired reports whether the session has been idle for longer than the configured expiry at now
func (s *Session) IsExpired(now time.Time) bool {
	if s.idleFrom.IsZero() {
		return false
	}
	return now.Sub(s.idleFrom) > s.config.IdleExpiry
}

// IdleFrom returns when the session was last released, or the zero time
func (s *Session) IdleFrom() time.Time {
	return s.idleFrom
}

// IsFresh reports whether a write error would be returned instead of retried
func (s *Session) IsFresh() bool {
	return s.fresh
}

// Connected reports whether the session currently holds a connection
func (s *Session) Connected() bool {
	return s.conn != nil
}

// Buffered returns the number of pushback bytes waiting for the next read
func (s *Session) Buffered() int {
	return len(s.buf)
}

// Close closes the connection. The session may connect again on the next Send or Recv
func (s *Session) Close() error {
	s.buf = s.buf[:0]
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return errors.Wrap(errors.IO, "close", err).WithHost(s.Host)
	}
	return nil
}
