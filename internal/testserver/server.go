package testserver

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/assetnote/kitehttp/pkg/log"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// ChunkSize is the payload size of each chunk written by the /chunked route
const ChunkSize = 1000

type count32 struct {
	val uint32
}

func (c *count32) increment() {
	atomic.AddUint32(&c.val, 1)
}

func (c *count32) get() uint32 {
	return atomic.LoadUint32(&c.val)
}

// Pattern returns n bytes where byte i is i mod 256. Bodies served and checked by the server use it
func Pattern(n int) []byte {
	ret := make([]byte, n)
	for i := range ret {
		ret[i] = byte(i % 256)
	}
	return ret
}

// Server is a fasthttp server with routes exercising every response framing.
//
// Every route answers 200: fasthttp sends multi word reason phrases for most other codes
// and a status line is only accepted with a single word reason
type Server struct {
	srv      *fasthttp.Server
	requests count32
	accepts  count32
}

type fasthttpLogger struct{}

func (fasthttpLogger) Printf(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}

func New() *Server {
	s := &Server{}
	s.srv = &fasthttp.Server{
		Handler: s.Router().Handler,
		Name:    "kitehttp-testserver",
		Logger:  fasthttpLogger{},
	}
	return s
}

// Router returns the routes served
//
//	GET  /                   Welcome!
//	GET  /fixed/{size}       size pattern bytes with a content-length, HEAD is served too
//	GET  /chunked/{chunks}   chunks chunks of ChunkSize pattern bytes, chunked encoded
//	GET  /inspect            the received host, content-length and x-request-id as x-* response headers
//	GET  /close              a short body followed by closing the connection
//	POST /echo               the request body, with the request's content-type
//	POST /upload/check       x-upload-ok: true when the body is a pattern body
func (s *Server) Router() *router.Router {
	r := router.New()
	r.GET("/", s.index)
	r.GET("/fixed/{size}", s.fixed)
	r.HEAD("/fixed/{size}", s.fixed)
	r.GET("/chunked/{chunks}", s.chunked)
	r.GET("/inspect", s.inspect)
	r.GET("/close", s.close)
	r.POST("/echo", s.echo)
	r.POST("/upload/check", s.uploadCheck)
	r.NotFound = s.notFound
	return r
}

func (s *Server) index(ctx *fasthttp.RequestCtx) {
	s.requests.increment()
	ctx.WriteString("Welcome!")
}

func intParam(ctx *fasthttp.RequestCtx, name string) (int, bool) {
	v, _ := ctx.UserValue(name).(string)
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		ctx.Response.Header.Set("x-error", fmt.Sprintf("invalid %s %q", name, v))
		return 0, false
	}
	return n, true
}

func (s *Server) fixed(ctx *fasthttp.RequestCtx) {
	s.requests.increment()
	size, ok := intParam(ctx, "size")
	if !ok {
		return
	}
	ctx.SetContentType("application/octet-stream")
	ctx.SetBody(Pattern(size))
}

func (s *Server) chunked(ctx *fasthttp.RequestCtx) {
	s.requests.increment()
	chunks, ok := intParam(ctx, "chunks")
	if !ok {
		return
	}
	body := Pattern(chunks * ChunkSize)
	ctx.SetContentType("application/octet-stream")
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		for i := 0; i < chunks; i++ {
			w.Write(body[i*ChunkSize : (i+1)*ChunkSize])
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
}

func (s *Server) inspect(ctx *fasthttp.RequestCtx) {
	s.requests.increment()
	ctx.Response.Header.SetBytesV("x-host", ctx.Host())
	ctx.Response.Header.Set("x-content-length", strconv.Itoa(ctx.Request.Header.ContentLength()))
	ctx.Response.Header.SetBytesV("x-request-id", ctx.Request.Header.Peek("x-request-id"))
	ctx.Response.Header.SetBytesV("x-method", ctx.Method())
	ctx.Response.Header.SetBytesV("x-uri", ctx.RequestURI())
}

func (s *Server) close(ctx *fasthttp.RequestCtx) {
	s.requests.increment()
	ctx.SetConnectionClose()
	ctx.WriteString("bye")
}

func (s *Server) echo(ctx *fasthttp.RequestCtx) {
	s.requests.increment()
	ctx.Response.Header.SetContentTypeBytes(ctx.Request.Header.ContentType())
	ctx.SetBody(ctx.PostBody())
}

func (s *Server) uploadCheck(ctx *fasthttp.RequestCtx) {
	s.requests.increment()
	body := ctx.PostBody()
	ok := true
	for i, v := range body {
		if v != byte(i%256) {
			ok = false
			break
		}
	}
	ctx.Response.Header.Set("x-upload-ok", strconv.FormatBool(ok))
	ctx.Response.Header.Set("x-upload-len", strconv.Itoa(len(body)))
	ctx.Response.Header.SetContentTypeBytes(ctx.Request.Header.ContentType())
}

func (s *Server) notFound(ctx *fasthttp.RequestCtx) {
	s.requests.increment()
	ctx.Response.Header.Set("x-route", "none")
	fmt.Fprintf(ctx, "no route for %s %s", ctx.Method(), ctx.RequestURI())
}

type countingListener struct {
	net.Listener
	accepts *count32
}

func (l countingListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err == nil {
		l.accepts.increment()
	}
	return c, err
}

// Serve accepts connections on ln until Shutdown is called
func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(countingListener{Listener: ln, accepts: &s.accepts})
}

func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// ServeInmemory starts serving on an in memory listener. Clients connect with the listener's Dial
func (s *Server) ServeInmemory() *fasthttputil.InmemoryListener {
	ln := fasthttputil.NewInmemoryListener()
	go func() {
		if err := s.Serve(ln); err != nil {
			log.Debug().Err(err).Msg("in memory test server exited")
		}
	}()
	return ln
}

func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

// Requests returns the number of requests handled
func (s *Server) Requests() uint32 {
	return s.requests.get()
}

// Accepts returns the number of connections accepted
func (s *Server) Accepts() uint32 {
	return s.accepts.get()
}
