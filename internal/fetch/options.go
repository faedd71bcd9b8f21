package fetch

import (
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"github.com/assetnote/kitehttp/pkg/convert"
	"github.com/assetnote/kitehttp/pkg/http"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

const (
	DefaultUserAgent   = "kitehttp/1.0"
	DefaultMaxBody     = 1 << 20
	DefaultCount       = 1
	DefaultConcurrency = 1
)

// RequestID selects how the x-request-id header is generated for every request
type RequestID string

const (
	RequestIDNone  RequestID = ""
	RequestIDKSUID RequestID = "ksuid"
	RequestIDUUID  RequestID = "uuid"
)

type Options struct {
	Method      http.Method
	Headers     []HeaderField
	Body        []byte
	ContentType string
	UserAgent   string
	RequestID   RequestID

	// MaxBody caps the bytes of a response body read into memory. Larger bodies fail the request
	MaxBody  int
	ShowBody bool

	Count        int
	Concurrency  int
	Deadline     time.Duration
	ExpectStatus map[int]struct{}
	ProgressBar  bool

	HTTPOptions []http.ConfigOption
}

// HeaderField is a single "key: value" header supplied by the caller
type HeaderField struct {
	Key   string
	Value string
}

type FetchOption func(o *Options) error

func NewDefaultOptions() *Options {
	return &Options{
		Method:      http.GET,
		UserAgent:   DefaultUserAgent,
		MaxBody:     DefaultMaxBody,
		Count:       DefaultCount,
		Concurrency: DefaultConcurrency,
	}
}

func (o *Options) Validate() error {
	var merr *multierror.Error
	if o.Count < 1 {
		merr = multierror.Append(merr, fmt.Errorf("count must be at least 1, got %d", o.Count))
	}
	if o.Concurrency < 1 {
		merr = multierror.Append(merr, fmt.Errorf("concurrency must be at least 1, got %d", o.Concurrency))
	}
	if o.MaxBody < 0 {
		merr = multierror.Append(merr, fmt.Errorf("max body cannot be negative, got %d", o.MaxBody))
	}
	switch o.RequestID {
	case RequestIDNone, RequestIDKSUID, RequestIDUUID:
	default:
		merr = multierror.Append(merr, fmt.Errorf("unknown request id generator %q", o.RequestID))
	}
	return merr.ErrorOrNil()
}

// Expected reports whether code is acceptable. Every code is acceptable when no set was given
func (o *Options) Expected(code int) bool {
	if len(o.ExpectStatus) == 0 {
		return true
	}
	_, ok := o.ExpectStatus[code]
	return ok
}

func Method(m string) FetchOption {
	return func(o *Options) error {
		v, err := http.MethodFromString(m)
		if err != nil {
			return fmt.Errorf("%w: %q", err, m)
		}
		o.Method = v
		return nil
	}
}

// Headers parses "key: value" lines. Duplicated lines are sent once
func Headers(lines []string) FetchOption {
	return func(o *Options) error {
		var merr *multierror.Error
		for _, line := range convert.UniqueStrings(lines) {
			f, err := ParseHeaderField(line)
			if err != nil {
				merr = multierror.Append(merr, err)
				continue
			}
			o.Headers = append(o.Headers, f)
		}
		return merr.ErrorOrNil()
	}
}

func ParseHeaderField(line string) (HeaderField, error) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return HeaderField{}, fmt.Errorf("invalid header %q, expected \"key: value\"", line)
	}
	key := strings.TrimSpace(line[:idx])
	if key == "" {
		return HeaderField{}, fmt.Errorf("invalid header %q, empty key", line)
	}
	return HeaderField{Key: key, Value: strings.TrimSpace(line[idx+1:])}, nil
}

// Body sets the request body. A value starting with @ names a file to read the body from
func Body(v string) FetchOption {
	return func(o *Options) error {
		if !strings.HasPrefix(v, "@") {
			o.Body = []byte(v)
			return nil
		}
		b, err := ioutil.ReadFile(v[1:])
		if err != nil {
			return errors.Wrap(err, "failed to read body file")
		}
		o.Body = b
		return nil
	}
}

func ContentType(v string) FetchOption {
	return func(o *Options) error {
		o.ContentType = v
		return nil
	}
}

func UserAgent(v string) FetchOption {
	return func(o *Options) error {
		o.UserAgent = v
		return nil
	}
}

func RequestIDs(v string) FetchOption {
	return func(o *Options) error {
		o.RequestID = RequestID(strings.ToLower(v))
		return nil
	}
}

func MaxBody(n int) FetchOption {
	return func(o *Options) error {
		o.MaxBody = n
		return nil
	}
}

func ShowBody(v bool) FetchOption {
	return func(o *Options) error {
		o.ShowBody = v
		return nil
	}
}

func Count(n int) FetchOption {
	return func(o *Options) error {
		o.Count = n
		return nil
	}
}

func Concurrency(n int) FetchOption {
	return func(o *Options) error {
		o.Concurrency = n
		return nil
	}
}

// Deadline bounds the total run time. Zero means no bound
func Deadline(d time.Duration) FetchOption {
	return func(o *Options) error {
		o.Deadline = d
		return nil
	}
}

// ExpectStatus accepts codes and ranges such as "200" or "200-299"
func ExpectStatus(v []string) FetchOption {
	return func(o *Options) error {
		set, err := convert.ParseIntRanges(v)
		if err != nil {
			return errors.Wrap(err, "failed to parse expected status codes")
		}
		o.ExpectStatus = set
		return nil
	}
}

func ProgressBar(v bool) FetchOption {
	return func(o *Options) error {
		o.ProgressBar = v
		return nil
	}
}

// HTTPConfig configures the client the run creates
func HTTPConfig(opts ...http.ConfigOption) FetchOption {
	return func(o *Options) error {
		o.HTTPOptions = append(o.HTTPOptions, opts...)
		return nil
	}
}

// NewOptions applies opts over the defaults, collecting every failing option, then validates
func NewOptions(opts ...FetchOption) (*Options, error) {
	o := NewDefaultOptions()
	var merr *multierror.Error
	for _, opt := range opts {
		if err := opt(o); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}
