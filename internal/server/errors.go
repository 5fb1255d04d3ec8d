package server

import (
	"fmt"
	"net"
	"time"
)

// errorTemplate holds the byte-exact status line, Content-Length, and
// body for one error response, ported from the reference
// sendErrorMessage switch. sendErrorMessage derives Content-Length from
// the template's own body length, except for 505 (contentLength505).
type errorTemplate struct {
	statusLine string
	body       string
}

var errorTemplates = map[int]errorTemplate{
	400: {
		statusLine: "HTTP/1.1 400 Bad Request",
		body:       "<HTML><HEAD><TITLE>400 Bad Request</TITLE></HEAD>\n<BODY><H1>400 Bad Request</H1>\n</BODY></HTML>",
	},
	403: {
		statusLine: "HTTP/1.1 403 Forbidden",
		body:       "<HTML><HEAD><TITLE>403 Forbidden</TITLE></HEAD>\n<BODY><H1>403 Forbidden</H1><br>Permission Denied\n</BODY></HTML>",
	},
	404: {
		statusLine: "HTTP/1.1 404 Not Found",
		body:       "<HTML><HEAD><TITLE>404 Not Found</TITLE></HEAD>\n<BODY><H1>404 Not Found</H1>\n</BODY></HTML>",
	},
	500: {
		statusLine: "HTTP/1.1 500 Internal Server Error",
		body:       "<HTML><HEAD><TITLE>500 Internal Server Error</TITLE></HEAD>\n<BODY><H1>500 Internal Server Error</H1>\n</BODY></HTML>",
	},
	501: {
		statusLine: "HTTP/1.1 501 Not Implemented",
		body:       "<HTML><HEAD><TITLE>501 Not Implemented</TITLE></HEAD>\n<BODY><H1>501 Not Implemented</H1>\n</BODY></HTML>",
	},
	505: {
		statusLine: "HTTP/1.1 505 HTTP Version Not Supported",
		body:       "<HTML><HEAD><TITLE>HTTP Version Not Supported</TITLE></HEAD>\n<BODY><H1>505 HTTP Version Not Supported</H1>\n</BODY></HTML>",
	},
}

// contentLength505 is hardcoded to 125 in the reference implementation
// even though its actual 505 body is 121 bytes — a preserved quirk, like
// the keep-alive-on-close inconsistency below (see DESIGN.md).
const contentLength505 = 125

// sendErrorMessage writes the HTML error page for statusCode to conn.
// Connection: keep-alive is sent even though the handler always closes
// the socket afterward — preserved for byte-compatibility with the
// reference implementation (spec §9).
func sendErrorMessage(conn net.Conn, statusCode int) error {
	tmpl, ok := errorTemplates[statusCode]
	if !ok {
		return fmt.Errorf("server: no error template for status %d", statusCode)
	}

	contentLength := len(tmpl.body)
	if statusCode == 505 {
		contentLength = contentLength505
	}

	now := time.Now().UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
	resp := fmt.Sprintf(
		"%s\r\nContent-Length: %d\r\nConnection: keep-alive\r\nContent-Type: text/html\r\nDate: %s\r\nServer: cacheproxy\r\n\r\n%s",
		tmpl.statusLine, contentLength, now, tmpl.body,
	)
	_, err := conn.Write([]byte(resp))
	return err
}
