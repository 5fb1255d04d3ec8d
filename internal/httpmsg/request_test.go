package httpmsg

import "testing"

func TestParseAbsoluteGET(t *testing.T) {
	input := "GET http://example.com:8080/path/to/resource HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: TestAgent\r\n" +
		"\r\n"

	req, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if req.Method != "GET" || req.Scheme != "http" || req.Host != "example.com" ||
		req.Port != "8080" || req.Path != "/path/to/resource" || req.Version != "HTTP/1.1" {
		t.Fatalf("unexpected fields: %+v", req)
	}

	want := []Header{{"Host", "example.com"}, {"User-Agent", "TestAgent"}}
	if len(req.Headers) != len(want) {
		t.Fatalf("headers = %+v, want %+v", req.Headers, want)
	}
	for i, h := range want {
		if req.Headers[i] != h {
			t.Errorf("header[%d] = %+v, want %+v", i, req.Headers[i], h)
		}
	}
}

func TestParseRejectsNonGET(t *testing.T) {
	_, err := Parse([]byte("POST http://x/y HTTP/1.1\r\n\r\n"))
	if err != ErrMalformed {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestParseRejectsMissingTerminator(t *testing.T) {
	_, err := Parse([]byte("GET http://x/y HTTP/1.1\r\nHost: x\r\n"))
	if err != ErrMalformed {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestParseLengthBounds(t *testing.T) {
	if _, err := Parse([]byte("abc")); err != ErrMalformed {
		t.Errorf("3-byte input: err = %v, want ErrMalformed", err)
	}
	over := make([]byte, 65536)
	for i := range over {
		over[i] = 'a'
	}
	if _, err := Parse(over); err != ErrMalformed {
		t.Errorf("65536-byte input: err = %v, want ErrMalformed", err)
	}
}

func TestParseRejectsDoubleSlashPath(t *testing.T) {
	_, err := Parse([]byte("GET http://example.com//foo HTTP/1.1\r\n\r\n"))
	if err != ErrMalformed {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestParseRejectsZeroPort(t *testing.T) {
	_, err := Parse([]byte("GET http://example.com:0/foo HTTP/1.1\r\n\r\n"))
	if err != ErrMalformed {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestParseRejectsAuthorityWithoutPath(t *testing.T) {
	req, err := Parse([]byte("GET http://example.com HTTP/1.1\r\n\r\n"))
	if err != ErrMalformed {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
	if req != nil {
		t.Errorf("req = %+v, want nil", req)
	}
}

func TestParseDuplicateHeaderLastWins(t *testing.T) {
	input := "GET http://x/y HTTP/1.1\r\n" +
		"X-A: first\r\n" +
		"X-B: b\r\n" +
		"X-A: second\r\n" +
		"\r\n"
	req, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, ok := req.Get("X-A")
	if !ok || got != "second" {
		t.Fatalf("X-A = %q, %v, want second, true", got, ok)
	}
	// last-wins preserves the relative order of survivors: X-B then X-A.
	if len(req.Headers) != 2 || req.Headers[0].Name != "X-B" || req.Headers[1].Name != "X-A" {
		t.Fatalf("headers = %+v", req.Headers)
	}
}

func TestSerializeOriginForm(t *testing.T) {
	req := &Request{
		Method:  "GET",
		Scheme:  "http",
		Host:    "example.com",
		Port:    "8080",
		Path:    "/path/to/resource",
		Version: "HTTP/1.1",
		Headers: []Header{
			{"Host", "example.com"},
			{"User-Agent", "TestAgent"},
		},
	}
	req.Set("Connection", "close")

	buf := make([]byte, 4096)
	n, err := Serialize(req, buf, len(buf))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	want := "GET /path/to/resource HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: TestAgent\r\n" +
		"Connection: close\r\n" +
		"\r\n"
	if got := string(buf[:n]); got != want {
		t.Fatalf("Serialize =\n%q\nwant\n%q", got, want)
	}
}

func TestSerializeOverflow(t *testing.T) {
	req := &Request{Method: "GET", Path: "/", Version: "HTTP/1.1"}
	buf := make([]byte, 4)
	if _, err := Serialize(req, buf, len(buf)); err != ErrOverflow {
		t.Fatalf("err = %v, want ErrOverflow", err)
	}
}

// TestRoundTrip checks spec §8's round-trip property: re-parsing an
// absolute-form reconstruction of the origin-form Serialize output
// (scheme/host prepended back on, exactly as a test harness driving
// the upstream side would do) yields identical method/path/version and
// the same headers after Connection/Host normalization.
func TestRoundTrip(t *testing.T) {
	input := "GET http://example.com:8080/path/to/resource HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: TestAgent\r\n" +
		"\r\n"
	req, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	req.Set("Connection", "close")

	buf := make([]byte, 4096)
	n, err := Serialize(req, buf, len(buf))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	originLine := "GET " + req.Path + " " + req.Version + "\r\n"
	if got := string(buf[:len(originLine)]); got != originLine {
		t.Fatalf("origin-form request line = %q, want %q", got, originLine)
	}

	absolute := "GET http://" + req.Host + ":" + req.Port + req.Path + " " + req.Version + "\r\n" +
		string(buf[len(originLine):n])
	reparsed, err := Parse([]byte(absolute))
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	if reparsed.Method != req.Method || reparsed.Path != req.Path || reparsed.Version != req.Version {
		t.Fatalf("reparsed = %+v, want method/path/version of %+v", reparsed, req)
	}
}

func TestSetReplacesAllPriorEntries(t *testing.T) {
	req := &Request{Headers: []Header{{"Host", "a"}, {"X", "1"}, {"Host", "b"}}}
	req.Set("Host", "c")
	got, ok := req.Get("Host")
	if !ok || got != "c" {
		t.Fatalf("Get(Host) = %q, %v", got, ok)
	}
	count := 0
	for _, h := range req.Headers {
		if h.Name == "Host" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one Host header, got %d", count)
	}
}
