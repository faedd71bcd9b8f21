/*
The errors package provides the error type surfaced by the http client when a message cannot be
transported or framed, and utilities for printing nested errors.

A WireError carries a Kind so callers can tell a malformed header from a premature EOF without
matching on strings. The wrapped cause is reachable through errors.Unwrap and errors.As.

Usage

	import errors2 "github.com/assetnote/kitehttp/pkg/errors"

	...

	resp, err := client.Req(req)
	if errors2.IsKind(err, errors2.PrematureEOF) {
		// the server hung up mid message
	}

	if err := client.Close(); err != nil {
		errors2.PrintError(err, 0)
	}

*/
package errors
