/*
Package kitehttp provides a minimal HTTP/1.1 client that frames requests and responses itself and keeps
connections alive in a per host pool.

There are no exports in the root package. The client lives in pkg/http.

CLI tools part of `cmd/` include:
	- kitehttp - send single or repeated requests and summarise connection reuse
	- testServer - a fasthttp server exposing every response framing the client understands

*/
package kitehttp
