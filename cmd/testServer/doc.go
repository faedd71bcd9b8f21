/*
Package testServer serves the kitehttp test routes on a range of ports.

Every route answers with a different framing: fixed length bodies, chunked bodies, echoed uploads and
connections closed by the server. Pointing kitehttp repeat at it shows how often pooled connections
are reused. The server is a testing aid and should not be used in a production environment.

Usage

	go run ./cmd/testServer -p 14000-14004
*/
package main
