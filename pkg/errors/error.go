package errors

import (
	"errors"
	"fmt"

	"github.com/assetnote/kitehttp/pkg/log"
	"github.com/hashicorp/go-multierror"
)

// Kind classifies a WireError by the stage of the exchange that produced it
type Kind int

const (
	Unknown Kind = iota
	MalformedHeader
	MalformedStatus
	UnsupportedEncoding
	MalformedChunk
	FramingOverflow
	PrematureEOF
	IO
	BodyTooLarge
	BadConfig
)

func (k Kind) String() string {
	switch k {
	case MalformedHeader:
		return "malformed header"
	case MalformedStatus:
		return "malformed status"
	case UnsupportedEncoding:
		return "unsupported transfer encoding"
	case MalformedChunk:
		return "malformed chunk"
	case FramingOverflow:
		return "framing overflow"
	case PrematureEOF:
		return "premature eof"
	case IO:
		return "io"
	case BodyTooLarge:
		return "body too large"
	case BadConfig:
		return "bad config"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// prefixfromDepth will create the indent prefix for a certain depth
// of string, e.g. 2 will yield "  " * 2 -> "    "
func prefixFromDepth(depth int) string {
	var p []byte
	for i := 0; i < depth; i++ {
		p = append(p, "  "...)
	}
	return string(p)
}

// PrintError will attempt to traverse the nested error and
// recursively print out any nested WireErrors found
// If a multierror.Error is found, we will recurisvely print out
// each error found
func PrintError(err error, depth int) {
	var (
		merr *multierror.Error
		werr *WireError
	)

	if errors.As(err, &merr) {
		for _, v := range merr.Errors {
			PrintError(v, depth+1)
		}
	} else if errors.As(err, &werr) {
		werr.LogError(depth)
	} else {
		log.Debug().Err(err).Msg(prefixFromDepth(depth) + "error")
	}
}

// WireError carries the context of a failure while framing or transporting a message.
// Context holds the human readable message, Err the underlying cause if there is one
type WireError struct {
	Kind    Kind   // Kind is the class of failure
	Op      string // Op is the operation that failed, e.g. recv_until, send, parse_header
	Host    string // Host is the opaque host string of the session, if known
	Context string // Context describes what went wrong
	Err     error  // Err is the wrapped cause, may be nil
}

func (w *WireError) Error() string {
	if w.Err == nil {
		return fmt.Sprintf("wireError [%s %s %s]: %s", w.Kind, w.Op, w.Host, w.Context)
	}
	if w.Context == "" {
		return fmt.Sprintf("wireError [%s %s %s]: %s", w.Kind, w.Op, w.Host, w.Err.Error())
	}
	return fmt.Sprintf("wireError [%s %s %s]: %s: %s", w.Kind, w.Op, w.Host, w.Context, w.Err.Error())
}

func (w *WireError) Unwrap() error {
	return w.Err
}

// LogError will log to Debug() the context surrounding the error.
// the depth argument modifies the indentation depth of the pretty printed error
func (w *WireError) LogError(depth int) {
	var merr *multierror.Error
	base := log.Debug().
		Str("kind", w.Kind.String()).
		Str("op", w.Op).
		Str("host", w.Host).
		Str("context", w.Context)

	if errors.As(w.Err, &merr) {
		base.Msg(prefixFromDepth(depth))
		PrintError(merr, depth+1)
	} else {
		base.Err(w.Err).Msg(prefixFromDepth(depth))
	}
}

// New creates a WireError without an underlying cause
func New(kind Kind, op string, context string) *WireError {
	return &WireError{Kind: kind, Op: op, Context: context}
}

// Wrap creates a WireError around err. A nil err yields a nil *WireError
func Wrap(kind Kind, op string, err error) *WireError {
	if err == nil {
		return nil
	}
	return &WireError{Kind: kind, Op: op, Err: err}
}

// WithHost sets the host on the error and returns it for chaining
func (w *WireError) WithHost(host string) *WireError {
	w.Host = host
	return w
}

// IsKind reports whether any WireError in err's chain has the provided kind
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var werr *WireError
		if !errors.As(err, &werr) {
			return false
		}
		if werr.Kind == kind {
			return true
		}
		err = werr.Err
	}
	return false
}
