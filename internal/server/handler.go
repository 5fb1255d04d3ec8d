package server

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vshong/cacheproxy/internal/httpmsg"
)

const (
	// readBufLen is the fixed-size client read buffer (spec §4.6).
	readBufLen = 4096
	// writeChunkLen is the chunk size used streaming cached bodies back
	// to the client (spec §4.6 SERVE_CACHED).
	writeChunkLen = 4096
)

// handleConnection runs one client connection through
// AWAIT_ADMIT -> READ -> DECIDE -> (SERVE_CACHED | FORWARD) -> CLOSE.
// The admission token is released on every exit path.
func (s *Server) handleConnection(conn net.Conn) {
	connID := uuid.New().String()[:8]
	log := s.log.With().Str("conn_id", connID).Logger()

	start := time.Now()
	s.admission.Acquire()
	s.metrics.AdmissionWaitSeconds.Observe(time.Since(start).Seconds())
	s.metrics.AdmissionActive.Set(float64(s.admission.Active()))
	defer func() {
		s.admission.Release()
		s.metrics.AdmissionActive.Set(float64(s.admission.Active()))
		conn.Close()
	}()

	raw, err := readRequest(conn)
	if err != nil {
		log.Debug().Err(err).Msg("read failed, closing without reply")
		s.recordStatus("readerr")
		return
	}
	if raw == nil {
		// Terminator never observed before the buffer filled or EOF.
		log.Debug().Msg("request too large or unterminated")
		sendErrorMessage(conn, 400)
		s.recordStatus("400")
		return
	}

	key := string(raw)
	if body, ok := s.cache.Lookup(key); ok {
		s.metrics.CacheHits.Inc()
		log.Debug().Msg("cache hit")
		s.serveCached(conn, body)
		s.recordStatus("200-cache")
		return
	}
	s.metrics.CacheMisses.Inc()

	s.forward(conn, raw, key, log)
}

// readRequest reads from conn into a fixed-size buffer until CRLFCRLF
// appears, the peer closes, or an error occurs. It returns (nil, nil)
// when the terminator was never observed — the caller replies 400.
func readRequest(conn net.Conn) ([]byte, error) {
	buf := make([]byte, 0, readBufLen)
	chunk := make([]byte, readBufLen)

	for len(buf) < readBufLen {
		n, err := conn.Read(chunk[:readBufLen-len(buf)])
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if idx := indexTerminator(buf); idx >= 0 {
				return buf[:idx+4], nil
			}
		}
		if err != nil {
			return nil, nil
		}
	}
	return nil, nil
}

func indexTerminator(buf []byte) int {
	const term = "\r\n\r\n"
	for i := 0; i+4 <= len(buf); i++ {
		if buf[i] == '\r' && buf[i+1] == '\n' && buf[i+2] == '\r' && buf[i+3] == '\n' {
			return i
		}
	}
	return -1
}

// serveCached streams a cached body to the client in fixed-size
// chunks, retrying short writes. A write error ends serving without
// touching the cache.
func (s *Server) serveCached(conn net.Conn, body []byte) {
	for len(body) > 0 {
		n := writeChunkLen
		if n > len(body) {
			n = len(body)
		}
		if err := writeFull(conn, body[:n]); err != nil {
			return
		}
		body = body[n:]
	}
}

func writeFull(conn net.Conn, b []byte) error {
	for len(b) > 0 {
		n, err := conn.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// forward parses raw, validates method/version, rewrites to
// origin-form, fetches upstream, streams the response to the client,
// and inserts a complete response into the cache on clean EOF.
func (s *Server) forward(conn net.Conn, raw []byte, key string, log zerolog.Logger) {
	req, err := httpmsg.Parse(raw)
	if err != nil {
		log.Debug().Err(err).Msg("parse failed")
		sendErrorMessage(conn, 400)
		s.recordStatus("400")
		return
	}

	if req.Method != "GET" {
		// Unreachable while httpmsg.Parse rejects non-GET methods itself
		// (see DESIGN.md); kept so a future relaxation of the codec still
		// gets a correct 501 instead of a silently closed connection.
		log.Debug().Str("method", req.Method).Msg("unsupported method")
		sendErrorMessage(conn, 501)
		s.recordStatus("501")
		return
	}
	if req.Version != "HTTP/1.0" && req.Version != "HTTP/1.1" {
		log.Debug().Str("version", req.Version).Msg("unsupported version")
		sendErrorMessage(conn, 505)
		s.recordStatus("505")
		return
	}

	req.Set("Connection", "close")
	if _, ok := req.Get("Host"); !ok {
		req.Set("Host", req.Host)
	}

	sendBuf := make([]byte, readBufLen)
	n, err := httpmsg.Serialize(req, sendBuf, len(sendBuf))
	if err != nil {
		log.Warn().Err(err).Msg("serialize overflow")
		sendErrorMessage(conn, 500)
		s.recordStatus("500")
		return
	}

	fetchStart := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.upstreamTimeout)
	defer cancel()
	body, err := s.upstream.Fetch(ctx, req.Host, req.Port, sendBuf[:n])
	if err != nil {
		s.metrics.UpstreamFetchSeconds.WithLabelValues("error").Observe(time.Since(fetchStart).Seconds())
		log.Warn().Err(err).Str("host", req.Host).Msg("upstream fetch failed")
		sendErrorMessage(conn, 500)
		s.recordStatus("500")
		return
	}
	s.metrics.UpstreamFetchSeconds.WithLabelValues("ok").Observe(time.Since(fetchStart).Seconds())

	if writeFull(conn, body) != nil {
		// Client disconnected mid-reply; the fetch already completed so
		// the body is still eligible for caching (spec §5 Cancellation).
		log.Debug().Msg("client write failed during forward")
	} else {
		s.recordStatus("200")
	}

	if len(body) <= s.maxElementBytes {
		s.cache.Insert(key, body)
	}
}

// recordStatus increments the requests-total counter for status,
// labeled exactly as produced by the handler's call sites.
func (s *Server) recordStatus(status string) {
	s.metrics.RequestsTotal.WithLabelValues(status).Inc()
}
