package http

import (
	"github.com/rs/zerolog"
)

// Request is a method, a target URL and the header sent for them. The client derives the request-line
// from Method and URL when sending, so both may be changed after NewRequest
type Request struct {
	Method Method
	URL    URL
	Header *Header
}

// NewRequest creates a request with its request-line set and no header fields
func NewRequest(m Method, u URL) *Request {
	h := NewHeader()
	h.SetRequestLine(m, u)
	return &Request{
		Method: m,
		URL:    u,
		Header: h,
	}
}

// NewRequestString parses rawurl and creates a request for it
func NewRequestString(m Method, rawurl string) *Request {
	return NewRequest(m, ParseURL(rawurl))
}

func (r *Request) String() string {
	return string(r.Method) + " " + r.URL.String()
}

func (r *Request) MarshalZerologObject(e *zerolog.Event) {
	e.Str("method", string(r.Method)).
		Str("host", r.URL.Host()).
		Str("resource", r.URL.Resource())
}
