package fetch

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	kcontext "github.com/assetnote/kitehttp/pkg/context"
	"github.com/assetnote/kitehttp/pkg/http"
	"github.com/assetnote/kitehttp/pkg/log"
	"github.com/francoispqt/gojay"
	"github.com/valyala/fasttemplate"
)

// IndexTag is replaced in repeated URLs by the zero based index of the request
const IndexTag = "i"

// Stats summarises a repeat run
type Stats struct {
	Requests   int
	Failures   int
	Unexpected int
	Bytes      uint64
	Statuses   map[int]int
	Duration   time.Duration
	Pool       http.PoolStats
	LastError  string
}

func newStats() *Stats {
	return &Stats{Statuses: make(map[int]int)}
}

// Rate returns the completed requests per second
func (s *Stats) Rate() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Requests) / s.Duration.Seconds()
}

// Codes returns the received status codes in ascending order
func (s *Stats) Codes() []int {
	ret := make([]int, 0, len(s.Statuses))
	for k := range s.Statuses {
		ret = append(ret, k)
	}
	sort.Ints(ret)
	return ret
}

func (s *Stats) add(res *Result, err error, o *Options) {
	s.Requests++
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
		return
	}
	s.Statuses[res.Status.Code]++
	s.Bytes += uint64(len(res.Body))
	if !o.Expected(res.Status.Code) {
		s.Unexpected++
	}
}

func (s *Stats) MarshalJSONObject(enc *gojay.Encoder) {
	enc.AddIntKey("requests", s.Requests)
	enc.AddIntKey("failures", s.Failures)
	enc.AddIntKey("unexpected", s.Unexpected)
	enc.AddUint64Key("bytes", s.Bytes)
	enc.AddInt64Key("duration_ms", s.Duration.Milliseconds())
	enc.AddFloat64Key("rate", s.Rate())
	enc.AddObjectKey("statuses", statusesJSON(s.Statuses))
	enc.AddUint64Key("pool_hits", s.Pool.Hits)
	enc.AddUint64Key("pool_misses", s.Pool.Misses)
	enc.AddUint64Key("pool_expired", s.Pool.Expired)
	enc.AddStringKeyOmitEmpty("last_error", s.LastError)
}

func (s *Stats) IsNil() bool {
	return s == nil
}

type statusesJSON map[int]int

func (m statusesJSON) MarshalJSONObject(enc *gojay.Encoder) {
	codes := make([]int, 0, len(m))
	for k := range m {
		codes = append(codes, k)
	}
	sort.Ints(codes)
	for _, k := range codes {
		enc.AddIntKey(strconv.Itoa(k), m[k])
	}
}

func (m statusesJSON) IsNil() bool {
	return len(m) == 0
}

// URLTemplate expands the {i} placeholder of a repeated URL. Other tags are kept as written
type URLTemplate struct {
	t *fasttemplate.Template
}

func NewURLTemplate(rawurl string) (*URLTemplate, error) {
	t, err := fasttemplate.NewTemplate(rawurl, "{", "}")
	if err != nil {
		return nil, fmt.Errorf("invalid url template %q: %w", rawurl, err)
	}
	return &URLTemplate{t: t}, nil
}

func (u *URLTemplate) Expand(i int) string {
	idx := strconv.Itoa(i)
	return u.t.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		if tag == IndexTag {
			return io.WriteString(w, idx)
		}
		return io.WriteString(w, "{"+tag+"}")
	})
}

// Run sends o.Count requests from o.Concurrency workers sharing c. Requests not yet started when ctx is
// cancelled are skipped
func Run(ctx context.Context, c *http.Client, o *Options, tmpl *URLTemplate, bar *Progress) *Stats {
	var (
		jobs    = make(chan int, o.Concurrency)
		results = make(chan outcome, o.Concurrency)
		wg      sync.WaitGroup
		st      = newStats()
		start   = time.Now()
	)

	for w := 0; w < o.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				res, err := Do(ctx, c, o, tmpl.Expand(i))
				if err != nil && ctx.Err() != nil {
					// cancelled before the request went out
					continue
				}
				results <- outcome{res: res, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < o.Count; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for out := range results {
		st.add(out.res, out.err, o)
		if out.err != nil {
			log.Debug().Err(out.err).Msg("repeated request failed")
		} else if !o.Expected(out.res.Status.Code) {
			log.Debug().Object("status", out.res.Status).Str("url", out.res.URL).Msg("unexpected status")
		}
		bar.Incr(1)
	}

	st.Duration = time.Since(start)
	st.Pool = c.Pool().Stats()
	return st
}

type outcome struct {
	res *Result
	err error
}

// Repeat runs the configured number of requests against rawurl and writes the summary to w.
// The summary is written even when ctx ends the run early, in which case the context error is returned
func Repeat(ctx context.Context, w io.Writer, rawurl string, opts ...FetchOption) (*Stats, error) {
	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}
	tmpl, err := NewURLTemplate(rawurl)
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

	var bar *Progress
	if o.ProgressBar {
		bar = NewProgress(int64(o.Count))
	}

	log.Info().Int("count", o.Count).Int("concurrency", o.Concurrency).Str("url", rawurl).Msg("starting repeat")
	st := Run(ctx, c, o, tmpl, bar)
	bar.Finish()

	if err := WriteStats(w, log.GetLogFormat(), st); err != nil {
		return st, err
	}
	if err := ctx.Err(); err != nil {
		return st, fmt.Errorf("run stopped after %d of %d requests: %w", st.Requests, o.Count, err)
	}
	return st, nil
}
