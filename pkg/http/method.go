package http

import (
	"fmt"
	"strings"
)

// Method is the uppercase wire name of a request method
type Method string

const (
	GET    Method = "GET"
	POST   Method = "POST"
	PUT    Method = "PUT"
	PATCH  Method = "PATCH"
	HEAD   Method = "HEAD"
	DELETE Method = "DELETE"
)

var (
	ErrUnsupportedMethod = fmt.Errorf("unsupported method")
)

func MethodFromString(m string) (Method, error) {
	switch strings.ToUpper(m) {
	case "GET":
		return GET, nil
	case "POST":
		return POST, nil
	case "PUT":
		return PUT, nil
	case "PATCH":
		return PATCH, nil
	case "HEAD":
		return HEAD, nil
	case "DELETE":
		return DELETE, nil
	}
	return GET, ErrUnsupportedMethod
}

func (m Method) String() string {
	return string(m)
}
