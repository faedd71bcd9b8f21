package cmd

import (
	"time"

	"github.com/assetnote/kitehttp/internal/fetch"
	"github.com/assetnote/kitehttp/pkg/http"
	"github.com/spf13/cobra"
)

// request flags shared by req and repeat
var (
	method      = "GET"
	headers     = []string{}
	data        = ""
	contentType = ""
	userAgent   = fetch.DefaultUserAgent
	requestID   = ""
	maxBody     = fetch.DefaultMaxBody
	showBody    = false
	deadline    = 0 * time.Second

	idleExpiry  = http.DefaultIdleExpiry
	dialTimeout = http.DefaultDialTimeout
)

func addRequestFlags(c *cobra.Command) {
	c.Flags().StringVarP(&method, "method", "X", method, "request method. can be GET,POST,PUT,PATCH,HEAD,DELETE")
	c.Flags().StringSliceVarP(&headers, "header", "H", headers, "headers to add to requests, e.g. \"accept: text/plain\"")
	c.Flags().StringVarP(&data, "data", "d", data, "request body. prefix with @ to read the body from a file")
	c.Flags().StringVar(&contentType, "content-type", contentType, "content type of the request body")
	c.Flags().StringVar(&userAgent, "user-agent", userAgent, "user agent to use for requests")
	c.Flags().StringVar(&requestID, "request-id", requestID, "send an x-request-id with every request. can be ksuid,uuid")
	c.Flags().IntVar(&maxBody, "max-body", maxBody, "maximum response body size read into memory")
	c.Flags().BoolVar(&showBody, "show-body", showBody, "write response bodies to the output")
	c.Flags().DurationVar(&deadline, "deadline", deadline, "stop after this duration. 0 disables the deadline")

	c.Flags().DurationVar(&idleExpiry, "idle-expiry", idleExpiry, "how long an idle connection is kept for reuse")
	c.Flags().DurationVar(&dialTimeout, "dial-timeout", dialTimeout, "timeout for establishing a connection")
}

// requestOptions builds the options common to every command. Client flags only override the config file
// when they are set explicitly
func requestOptions(c *cobra.Command) ([]fetch.FetchOption, error) {
	cfg, err := httpConfig()
	if err != nil {
		return nil, err
	}
	httpOpts := []http.ConfigOption{http.WithConfig(cfg)}
	if c.Flags().Changed("idle-expiry") {
		httpOpts = append(httpOpts, http.IdleExpiry(idleExpiry))
	}
	if c.Flags().Changed("dial-timeout") {
		httpOpts = append(httpOpts, http.DialTimeout(dialTimeout))
	}

	return []fetch.FetchOption{
		fetch.Method(method),
		fetch.Headers(headers),
		fetch.Body(data),
		fetch.ContentType(contentType),
		fetch.UserAgent(userAgent),
		fetch.RequestIDs(requestID),
		fetch.MaxBody(maxBody),
		fetch.ShowBody(showBody),
		fetch.Deadline(deadline),
		fetch.HTTPConfig(httpOpts...),
	}, nil
}
