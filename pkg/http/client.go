package http

import (
	"fmt"
	"io"
	"strconv"

	"github.com/assetnote/kitehttp/pkg/errors"
	"github.com/assetnote/kitehttp/pkg/log"
	"github.com/valyala/bytebufferpool"
)

// Client performs one request/response exchange at a time per session, reusing idle sessions to the same
// host through its own Pool. Independent clients never share sessions.
//
// A Client is safe for concurrent use
type Client struct {
	config *Config
	pool   *Pool
}

// NewClient creates a client from the default config modified by opts.
// Callers must Close the client to stop its eviction worker and close idle sessions
func NewClient(opts ...ConfigOption) (*Client, error) {
	config := NewDefaultConfig()
	for _, o := range opts {
		o(config)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.BadConfig, "new_client", err)
	}
	return &Client{
		config: config,
		pool:   NewPool(config),
	}, nil
}

// Config returns a copy of the client's config
func (c *Client) Config() Config {
	return *c.config
}

// Pool returns the pool of idle sessions owned by the client
func (c *Client) Pool() *Pool {
	return c.pool
}

// Req sends a request without a body and returns the response once its header has been received.
// The caller must hand the response to Release
func (c *Client) Req(req *Request) (*Response, error) {
	return c.ReqWithBody(req, 0, nil)
}

// ReqWithBody sends a request followed by exactly size bytes read from body.
//
// The request-line is rebuilt from req.Method and req.URL, and the content-length and host fields of the
// sent header are always set by the client, overriding the caller's; content-type defaults to application/octet-stream when a body is sent. req is not modified.
// On error the session has been closed and there is nothing to release
func (c *Client) ReqWithBody(req *Request, size int, body io.Reader) (*Response, error) {
	if size < 0 {
		return nil, errors.New(errors.IO, "req", fmt.Sprintf("invalid body size %d", size))
	}
	if size > 0 && body == nil {
		return nil, errors.New(errors.IO, "req", "body size is set without a body")
	}

	host := req.URL.Host()
	var h *Header
	if req.Header != nil {
		h = req.Header.Clone()
	} else {
		h = NewHeader()
	}
	h.SetRequestLine(req.Method, req.URL)
	h.Set("content-length", strconv.Itoa(size))
	h.Set("host", host)
	if size > 0 {
		h.SetIfEmpty("content-type", "application/octet-stream")
	}

	s := c.pool.Acquire(host)
	resp, err := c.roundTrip(s, h, size, body, req.Method == HEAD)
	if err != nil {
		s.Close()
		return nil, err
	}

	log.Trace().Str("method", string(req.Method)).
		Str("host", host).
		Str("resource", req.URL.Resource()).
		Int("status", resp.Status.Code).
		Msg("request completed")
	return resp, nil
}

func (c *Client) roundTrip(s *Session, h *Header, size int, body io.Reader, head bool) (*Response, error) {
	w := bytebufferpool.Get()
	w.B = h.AppendBytes(w.B)
	err := s.SendAll(w.B)
	bytebufferpool.Put(w)
	if err != nil {
		return nil, err
	}

	if size > 0 {
		if err := c.sendBody(s, size, body); err != nil {
			return nil, err
		}
	}

	raw, err := s.RecvUntil(crlfx2, c.config.MaxHeaderSize)
	if err != nil {
		return nil, err
	}
	rh, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	return newResponse(s, rh, head)
}

// sendBody streams size bytes from body in SendChunk sized pieces
func (c *Client) sendBody(s *Session, size int, body io.Reader) error {
	buf := make([]byte, c.config.SendChunk)
	for sent := 0; sent < size; {
		want := size - sent
		if want > len(buf) {
			want = len(buf)
		}
		n, err := io.ReadFull(body, buf[:want])
		if n > 0 {
			if serr := s.SendAll(buf[:n]); serr != nil {
				return serr
			}
			sent += n
		}
		if err != nil {
			return &errors.WireError{Kind: errors.IO, Op: "send_body", Host: s.Host,
				Context: fmt.Sprintf("body ended after %d of %d bytes", sent, size), Err: err}
		}
	}
	return nil
}

// Release drains what is left of the response body and returns the session to the pool.
// The session is closed instead when draining fails or the server asked to close the connection.
// Releasing the same response twice is a no-op
func (c *Client) Release(r *Response) error {
	s := r.session
	if s == nil {
		return nil
	}

	err := r.drain()
	r.session = nil
	if err != nil {
		s.Close()
		return err
	}
	if !r.KeepAlive() {
		log.Trace().Str("host", s.Host).Msg("server closed connection, not pooling session")
		return s.Close()
	}
	c.pool.Release(s)
	return nil
}

// Close stops the pool's eviction worker and closes every idle session.
// Responses still held by the caller are unaffected and close their session on release
func (c *Client) Close() error {
	return c.pool.Close()
}
