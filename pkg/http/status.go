package http

import (
	"strconv"
	"strings"

	"github.com/assetnote/kitehttp/pkg/errors"
	"github.com/rs/zerolog"
)

// Proto is the only protocol version spoken by the client
const Proto = "HTTP/1.1"

// Status is a parsed status-line
type Status struct {
	Proto   string
	Code    int
	Message string
}

// NewStatus builds a status with a coarse reason bucketed by hundreds.
// The reasons are single words so the output parses with ParseStatus. This exists to let tests act as a server
func NewStatus(code int) Status {
	var msg string
	switch {
	case code < 200:
		msg = "Information"
	case code < 300:
		msg = "OK"
	case code < 400:
		msg = "Redirect"
	case code < 500:
		msg = "ClientError"
	default:
		msg = "ServerError"
	}
	return Status{Proto: Proto, Code: code, Message: msg}
}

// ParseStatus splits a status-line on single spaces into exactly proto, code and reason.
// The reason must therefore be a single word
func ParseStatus(line string) (Status, error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return Status{}, errors.New(errors.MalformedStatus, "parse_status", "unable to parse http status header")
	}

	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return Status{}, &errors.WireError{Kind: errors.MalformedStatus, Op: "parse_status", Context: "invalid status code", Err: err}
	}
	if code < 100 || code >= 600 {
		return Status{}, errors.New(errors.MalformedStatus, "parse_status", "invalid status code: "+parts[1])
	}

	return Status{Proto: parts[0], Code: code, Message: parts[2]}, nil
}

func (s Status) String() string {
	return s.Proto + " " + strconv.Itoa(s.Code) + " " + s.Message
}

func (s Status) MarshalZerologObject(e *zerolog.Event) {
	e.Str("proto", s.Proto).
		Int("code", s.Code).
		Str("msg", s.Message)
}
