package httpmsg

import "errors"

// ErrOverflow is returned by Serialize when the rendered request would
// not fit in the caller-supplied buffer.
var ErrOverflow = errors.New("httpmsg: serialized request exceeds buffer limit")

// Len returns the serialized length of a header line: name + ": " + value + CRLF.
func (h Header) Len() int {
	return len(h.Name) + 2 + len(h.Value) + 2
}

// originFormLen returns the byte length Serialize will produce.
func (r *Request) originFormLen() int {
	n := len(r.Method) + 1 + len(r.Path) + 1 + len(r.Version) + 2
	for _, h := range r.Headers {
		n += h.Len()
	}
	n += 2 // terminating CRLF
	return n
}

// Serialize renders the origin-form request line (method, path,
// version — no scheme or host) followed by headers and the
// terminating CRLF, into buf[:limit]. It returns the number of bytes
// written or ErrOverflow if the rendering would exceed limit.
func Serialize(r *Request, buf []byte, limit int) (int, error) {
	need := r.originFormLen()
	if need > limit || need > len(buf) {
		return 0, ErrOverflow
	}

	n := 0
	n += copy(buf[n:], r.Method)
	buf[n] = ' '
	n++
	n += copy(buf[n:], r.Path)
	buf[n] = ' '
	n++
	n += copy(buf[n:], r.Version)
	n += copy(buf[n:], "\r\n")

	for _, h := range r.Headers {
		n += copy(buf[n:], h.Name)
		n += copy(buf[n:], ": ")
		n += copy(buf[n:], h.Value)
		n += copy(buf[n:], "\r\n")
	}
	n += copy(buf[n:], "\r\n")

	return n, nil
}
