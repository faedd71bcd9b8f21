/*
Package cmd provides the commands for the kitehttp binary.

Each command lives in its own file. The global flags control logging and output format and are exposed
as package variables. Client limits can be set in the "http" section of the config file

	http:
	  max_header_size: 32768
	  idle_expiry: 15s
	  dial_timeout: 10s

Usage

	kitehttp req http://localhost:14000/fixed/100 -H "accept: text/plain"
	kitehttp repeat "http://localhost:14000/fixed/{i}" -n 1000 -c 8 --expect-status 200
*/
package cmd
