package benchmark

import (
	"context"
	"net"
	"testing"

	"github.com/assetnote/kitehttp/internal/fetch"
	"github.com/assetnote/kitehttp/internal/testserver"
	"github.com/assetnote/kitehttp/pkg/http"
	"github.com/assetnote/kitehttp/pkg/log"
	"github.com/stretchr/testify/assert"
)

// loopback serves the test routes on a local TCP port
func loopback(b *testing.B) (*testserver.Server, string) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		b.Fatal("failed to listen", err)
	}
	s := testserver.New()
	go s.Serve(ln)
	b.Cleanup(func() { ln.Close() })
	return s, ln.Addr().String()
}

func roundTrip(b *testing.B, c *http.Client, req *http.Request) {
	resp, err := c.Req(req)
	if err != nil {
		b.Fatal("bad request", err)
	}
	if _, err := resp.ReadEntireBody(1 << 20); err != nil {
		b.Fatal("bad read", err)
	}
	if err := c.Release(resp); err != nil {
		b.Fatal("bad release", err)
	}
}

func benchmarkLoopback(b *testing.B, path string, reuse bool) {
	log.SetLevelString("error")
	s, addr := loopback(b)
	b.ReportAllocs()

	b.ResetTimer()
	if reuse {
		c, err := http.NewClient()
		if err != nil {
			b.Fatal(err)
		}
		defer c.Close()
		req := http.NewRequestString(http.GET, "http://"+addr+path)
		for i := 0; i < b.N; i++ {
			roundTrip(b, c, req)
		}
		b.StopTimer()
		assert.True(b, s.Accepts() <= 1)
		return
	}

	for i := 0; i < b.N; i++ {
		c, err := http.NewClient()
		if err != nil {
			b.Fatal(err)
		}
		roundTrip(b, c, http.NewRequestString(http.GET, "http://"+addr+path))
		// closing the client drops the pooled session
		c.Close()
	}
	b.StopTimer()
	assert.Equal(b, uint32(b.N), s.Accepts())
}

func BenchmarkLoopbackPooled(b *testing.B) {
	benchmarkLoopback(b, "/fixed/1024", true)
}

func BenchmarkLoopbackFresh(b *testing.B) {
	benchmarkLoopback(b, "/fixed/1024", false)
}

func BenchmarkLoopbackChunkedPooled(b *testing.B) {
	benchmarkLoopback(b, "/chunked/16", true)
}

func benchmarkRun(b *testing.B, concurrency int) {
	log.SetLevelString("error")
	_, addr := loopback(b)
	b.ReportAllocs()

	o, err := fetch.NewOptions(fetch.Count(b.N), fetch.Concurrency(concurrency))
	if err != nil {
		b.Fatal(err)
	}
	c, err := http.NewClient()
	if err != nil {
		b.Fatal(err)
	}
	defer c.Close()
	tmpl, err := fetch.NewURLTemplate("http://" + addr + "/fixed/64?i={i}")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	st := fetch.Run(context.Background(), c, o, tmpl, nil)
	b.StopTimer()
	assert.Equal(b, 0, st.Failures, st.LastError)
	assert.True(b, st.Pool.Misses <= uint64(concurrency))
}

func BenchmarkRunConcurrency1(b *testing.B) {
	benchmarkRun(b, 1)
}

func BenchmarkRunConcurrency8(b *testing.B) {
	benchmarkRun(b, 8)
}

func BenchmarkRunConcurrency64(b *testing.B) {
	benchmarkRun(b, 64)
}
