package http

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/assetnote/kitehttp/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/valyala/bytebufferpool"
)

// Response is the decoded head of a response and a reader over its body. The body framing is decided
// from the header once: content-length, then transfer-encoding chunked, otherwise no body.
//
// A Response owns its session until it is handed to Client.Release. Once a read fails the error is sticky
// and the session will be closed on release
type Response struct {
	Status Status
	Header *Header

	session *Session

	chunked    bool
	chunkAvail int
	chunkRead  int
	// done is set once the zero sized chunk and its trailers have been consumed
	done bool

	bodyAvail int
	bodyRead  int

	closeConn bool
	err       error
}

// newResponse parses the status and picks the body framing. noBody forces an empty body for responses
// that never carry one regardless of their headers, e.g. the response to a HEAD request
func newResponse(s *Session, h *Header, noBody bool) (*Response, error) {
	status, err := ParseStatus(h.Line)
	if err != nil {
		return nil, err
	}

	r := &Response{
		Status:  status,
		Header:  h,
		session: s,
	}
	if v, ok := h.Get("connection"); ok && strings.EqualFold(v, "close") {
		r.closeConn = true
	}

	if noBody || !statusHasBody(status.Code) {
		return r, nil
	}

	if v, ok := h.Get("content-length"); ok {
		n, err := strconv.ParseUint(v, 10, 62)
		if err != nil {
			return nil, &errors.WireError{Kind: errors.MalformedHeader, Op: "parse_response", Host: s.Host,
				Context: fmt.Sprintf("invalid content-length %q", v), Err: err}
		}
		r.bodyAvail = int(n)
		return r, nil
	}

	if v, ok := h.Get("transfer-encoding"); ok {
		if !strings.EqualFold(v, "chunked") {
			return nil, errors.New(errors.UnsupportedEncoding, "parse_response",
				fmt.Sprintf("transfer encoding of %q is not supported", v)).WithHost(s.Host)
		}
		r.chunked = true
		if err := r.nextChunk(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// statusHasBody is false for the codes that are never followed by a body
func statusHasBody(code int) bool {
	return code >= 200 && code != 204 && code != 304
}

func (r *Response) nextChunk() error {
	n, err := r.session.RecvChunkHeader()
	if err != nil {
		return err
	}
	r.chunkAvail, r.chunkRead = n, 0
	if n == 0 {
		r.done = true
		return r.skipTrailers()
	}
	return nil
}

// skipTrailers consumes trailer lines up to and including the blank line closing a chunked body
func (r *Response) skipTrailers() error {
	for {
		line, err := r.session.RecvUntil(crlf, r.session.config.MaxHeaderSize)
		if err != nil {
			return err
		}
		if len(line) == len(crlf) {
			return nil
		}
	}
}

// HasBody reports whether the framing headers announced a body
func (r *Response) HasBody() bool {
	return r.bodyAvail > 0 || r.chunked
}

// Chunked reports whether the body uses chunked transfer encoding
func (r *Response) Chunked() bool {
	return r.chunked
}

// ContentLength returns the announced body length, or -1 for a chunked body
func (r *Response) ContentLength() int {
	if r.chunked {
		return -1
	}
	return r.bodyAvail
}

// ReadBody reads the next body bytes into buf. It returns 0 with a nil error once the body is exhausted,
// and keeps doing so on every later call
func (r *Response) ReadBody(buf []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(buf) == 0 || r.session == nil {
		return 0, nil
	}

	var (
		n   int
		err error
	)
	if r.chunked {
		n, err = r.readChunked(buf)
	} else {
		n, err = r.readFixed(buf)
	}
	if err != nil {
		r.err = err
	}
	return n, err
}

func (r *Response) readChunked(buf []byte) (int, error) {
	if r.done {
		return 0, nil
	}
	if r.chunkRead == r.chunkAvail {
		if _, err := r.session.RecvUntil(crlf, 2); err != nil {
			return 0, err
		}
		if err := r.nextChunk(); err != nil {
			return 0, err
		}
		if r.done {
			return 0, nil
		}
	}

	want := r.chunkAvail - r.chunkRead
	if want > len(buf) {
		want = len(buf)
	}
	n, err := r.recv(buf[:want])
	r.chunkRead += n
	return n, err
}

func (r *Response) readFixed(buf []byte) (int, error) {
	want := r.bodyAvail - r.bodyRead
	if want == 0 {
		return 0, nil
	}
	if want > len(buf) {
		want = len(buf)
	}
	n, err := r.recv(buf[:want])
	r.bodyRead += n
	return n, err
}

// recv reads body bytes, treating the end of the stream as an error since the framing promised more
func (r *Response) recv(buf []byte) (int, error) {
	n, err := r.session.Recv(buf)
	if err == io.EOF || (err == nil && n == 0) {
		return n, errors.New(errors.PrematureEOF, "read_body", "stream ended before the body was complete").WithHost(r.session.Host)
	}
	return n, err
}

// Read implements io.Reader over the body
func (r *Response) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := r.ReadBody(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadEntireBody reads the rest of the body. A body longer than max bytes is an error,
// leaving the response unusable. math.MaxInt64 reads without a bound, a negative max is rejected
func (r *Response) ReadEntireBody(max int) ([]byte, error) {
	if max < 0 {
		return nil, errors.New(errors.BodyTooLarge, "read_entire_body",
			fmt.Sprintf("invalid maximum body size %d", max)).WithHost(r.host())
	}

	w := bytebufferpool.Get()
	defer bytebufferpool.Put(w)

	limit := int64(max)
	if limit < math.MaxInt64 {
		limit++
	}
	if _, err := w.ReadFrom(io.LimitReader(r, limit)); err != nil {
		return nil, err
	}
	if int64(len(w.B)) > int64(max) {
		r.err = errors.New(errors.BodyTooLarge, "read_entire_body",
			fmt.Sprintf("body exceeds the maximum of %d bytes", max)).WithHost(r.host())
		return nil, r.err
	}
	return append([]byte{}, w.B...), nil
}

func (r *Response) host() string {
	if r.session == nil {
		return ""
	}
	return r.session.Host
}

// drain reads and discards the remainder of the body
func (r *Response) drain() error {
	var scratch [512]byte
	for {
		n, err := r.ReadBody(scratch[:])
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// KeepAlive reports whether the session may return to the pool once the body is drained
func (r *Response) KeepAlive() bool {
	return r.err == nil && !r.closeConn
}

func (r *Response) MarshalZerologObject(e *zerolog.Event) {
	e.Object("status", r.Status).
		Bool("chunked", r.chunked).
		Int("content-length", r.ContentLength())
	if r.Header != nil {
		e.Object("header", r.Header)
	}
}
