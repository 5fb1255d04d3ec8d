// Package httpmsg parses absolute-form HTTP/1.x request lines received
// from a proxy client and serializes the origin-form equivalent sent
// upstream. It mirrors the wire format exactly; it does not interpret
// bodies, chunked encoding, or any method other than GET.
package httpmsg

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

const (
	minRequestLen = 4
	maxRequestLen = 65535
)

// ErrMalformed is the single opaque parse failure kind. Callers decide
// the HTTP status to emit for it.
var ErrMalformed = errors.New("httpmsg: malformed request")

// Header is an ordered (name, value) pair.
type Header struct {
	Name  string
	Value string
}

// Request is a parsed absolute-form GET request line plus its headers.
type Request struct {
	Method  string
	Scheme  string
	Host    string
	Port    string // empty when the authority carried no port
	Path    string
	Version string
	Headers []Header
}

// Get returns the value of the last header entry named name, case
// sensitively, matching the source's literal-key comparison.
func (r *Request) Get(name string) (string, bool) {
	for i := len(r.Headers) - 1; i >= 0; i-- {
		if r.Headers[i].Name == name {
			return r.Headers[i].Value, true
		}
	}
	return "", false
}

// Set replaces all prior entries named name with a single entry
// carrying value, appended at the end.
func (r *Request) Set(name, value string) {
	kept := r.Headers[:0]
	for _, h := range r.Headers {
		if h.Name != name {
			kept = append(kept, h)
		}
	}
	r.Headers = append(kept, Header{Name: name, Value: value})
}

// Parse parses a raw client request buffer terminated by CRLFCRLF into
// a Request. It implements spec §4.1 step by step, ported from the
// reference ParsedRequest::parse.
func Parse(input []byte) (*Request, error) {
	if len(input) < minRequestLen || len(input) > maxRequestLen {
		return nil, ErrMalformed
	}

	headerEnd := bytes.Index(input, []byte("\r\n\r\n"))
	if headerEnd < 0 {
		return nil, ErrMalformed
	}

	firstLineEnd := bytes.Index(input, []byte("\r\n"))
	if firstLineEnd < 0 {
		return nil, ErrMalformed
	}

	fields := bytes.Split(input[:firstLineEnd], []byte(" "))
	if len(fields) != 3 {
		return nil, ErrMalformed
	}
	method := string(fields[0])
	target := string(fields[1])
	version := string(fields[2])

	if method != "GET" {
		return nil, ErrMalformed
	}
	if len(version) < 5 || version[:5] != "HTTP/" {
		return nil, ErrMalformed
	}

	sep := strings.Index(target, "://")
	if sep < 0 {
		return nil, ErrMalformed
	}
	scheme := target[:sep]
	rest := target[sep+3:]

	pathStart := strings.IndexByte(rest, '/')
	if pathStart < 0 {
		return nil, ErrMalformed
	}
	authority := rest[:pathStart]
	path := rest[pathStart:]

	var host, port string
	if colon := strings.IndexByte(authority, ':'); colon >= 0 {
		host = authority[:colon]
		port = authority[colon+1:]
		portNum, err := strconv.Atoi(port)
		if err != nil || portNum <= 0 || portNum > 65535 {
			return nil, ErrMalformed
		}
	} else {
		host = authority
	}
	if host == "" {
		return nil, ErrMalformed
	}

	switch {
	case path == "":
		path = "/"
	case len(path) >= 2 && path[0] == '/' && path[1] == '/':
		return nil, ErrMalformed
	case path[0] != '/':
		path = "/" + path
	}

	req := &Request{
		Method:  method,
		Scheme:  scheme,
		Host:    host,
		Port:    port,
		Path:    path,
		Version: version,
	}

	lineStart := firstLineEnd + 2
	for lineStart < headerEnd {
		lineEnd := bytes.Index(input[lineStart:], []byte("\r\n"))
		if lineEnd < 0 {
			break
		}
		lineEnd += lineStart
		if lineEnd > headerEnd {
			break
		}
		line := input[lineStart:lineEnd]
		if len(line) == 0 {
			break
		}

		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			return nil, ErrMalformed
		}
		name := string(line[:colon])
		valueStart := colon + 1
		if valueStart < len(line) && line[valueStart] == ' ' {
			valueStart++
		}
		value := string(line[valueStart:])

		req.Set(name, value)
		lineStart = lineEnd + 2
	}

	return req, nil
}
