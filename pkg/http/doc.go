/*
Package http is a synchronous plaintext HTTP/1.1 client built directly on TCP sessions.

A request is written, its response header is read with a single delimiter scan, and the body is
exposed as a stream over Content-Length, chunked or empty framing. Idle sessions are kept per host
in the client's Pool and reused by later requests to the same host string.

	c, err := http.NewClient(http.IdleExpiry(10 * time.Second))
	if err != nil {
		return err
	}
	defer c.Close()

	req := http.NewRequest(http.GET, http.ParseURL("http://example.com:8080/status?verbose=1"))
	req.Header.Set("accept", "text/plain")

	resp, err := c.Req(req)
	if err != nil {
		return err
	}
	body, err := resp.ReadEntireBody(1 << 20)
	if rerr := c.Release(resp); err == nil {
		err = rerr
	}

There are a few rules to keep in mind when driving sessions by hand

 - Every Response must be handed to Client.Release, otherwise its connection leaks
 - A Session is owned by exactly one goroutine at a time
 - Bytes read past a message boundary stay in the session and are returned by the next Recv,
   so never read from the underlying net.Conn directly
 - Pool keys are opaque: "a.com" and "a.com:80" never share sessions

Errors returned by this package are *errors.WireError values from
github.com/assetnote/kitehttp/pkg/errors and can be matched with errors.IsKind.
*/
package http
