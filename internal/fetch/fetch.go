package fetch

import (
	"bytes"
	"context"
	"io"
	"time"

	kcontext "github.com/assetnote/kitehttp/pkg/context"
	"github.com/assetnote/kitehttp/pkg/http"
	"github.com/assetnote/kitehttp/pkg/log"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// Result is a fully read response together with what was sent to obtain it
type Result struct {
	Method    http.Method
	URL       string
	RequestID string
	Status    http.Status
	Header    *http.Header
	Body      []byte
	Duration  time.Duration
}

func newRequestID(kind RequestID) string {
	switch kind {
	case RequestIDKSUID:
		return ksuid.New().String()
	case RequestIDUUID:
		return uuid.New().String()
	}
	return ""
}

// NewRequest builds the request for rawurl with the caller's headers applied.
// The returned id is empty unless a request id generator is configured
func NewRequest(o *Options, rawurl string) (req *http.Request, id string) {
	req = http.NewRequestString(o.Method, rawurl)
	for _, f := range o.Headers {
		req.Header.Add(f.Key, f.Value)
	}
	if o.UserAgent != "" {
		req.Header.SetIfEmpty("user-agent", o.UserAgent)
	}
	if o.ContentType != "" {
		req.Header.Set("content-type", o.ContentType)
	}
	if id = newRequestID(o.RequestID); id != "" {
		req.Header.Set("x-request-id", id)
	}
	return req, id
}

// Do sends one request on c and reads the whole response body. The session goes back to the pool of c
// once the body is read
func Do(ctx context.Context, c *http.Client, o *Options, rawurl string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req, id := NewRequest(o, rawurl)
	start := time.Now()

	var body io.Reader
	if len(o.Body) > 0 {
		body = bytes.NewReader(o.Body)
	}
	resp, err := c.ReqWithBody(req, len(o.Body), body)
	if err != nil {
		log.Debug().Err(err).Object("req", req).Msg("request failed")
		return nil, err
	}

	b, err := resp.ReadEntireBody(o.MaxBody)
	if relErr := c.Release(resp); err == nil {
		err = relErr
	}
	if err != nil {
		log.Debug().Err(err).Object("req", req).Msg("failed to read response")
		return nil, err
	}

	return &Result{
		Method:    req.Method,
		URL:       req.URL.String(),
		RequestID: id,
		Status:    resp.Status,
		Header:    resp.Header,
		Body:      b,
		Duration:  time.Since(start),
	}, nil
}

// Fetch performs a single request and writes it to w in the current log format
func Fetch(ctx context.Context, w io.Writer, rawurl string, opts ...FetchOption) (*Result, error) {
	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}
	c, err := http.NewClient(o.HTTPOptions...)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	ctx, cancel := kcontext.WithDeadline(ctx, o.Deadline)
	defer cancel()

	res, err := Do(ctx, c, o, rawurl)
	if err != nil {
		return nil, err
	}
	if err := WriteResult(w, log.GetLogFormat(), res, o.ShowBody); err != nil {
		return res, err
	}
	return res, nil
}
