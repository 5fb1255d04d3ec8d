// Package server implements the connection dispatcher and
// per-connection request handler that stitch the codec, cache, and
// upstream client together into the proxy's request lifecycle (spec
// §4.5-4.6).
package server

import (
	"net"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/vshong/cacheproxy/internal/admission"
	"github.com/vshong/cacheproxy/internal/cache"
	"github.com/vshong/cacheproxy/internal/metrics"
	"github.com/vshong/cacheproxy/internal/upstream"
)

// defaultUpstreamTimeout bounds an otherwise timeout-free fetch so a
// hung origin cannot pin an admission token forever. Spec §5 allows
// deadlines as a superset feature without changing correctness.
const defaultUpstreamTimeout = 30 * time.Second

// Options configures a Server.
type Options struct {
	MaxClients      int
	MaxCacheBytes   int
	MaxElementBytes int
	StatsCron       string // empty disables the periodic stats log
	UpstreamTimeout time.Duration
}

// Server owns the listening socket and every shared collaborator a
// connection handler needs: the cache, the admission gate, the
// upstream client, metrics, and a logger.
type Server struct {
	cache           *cache.Cache
	admission       *admission.Gate
	upstream        *upstream.Client
	metrics         *metrics.Metrics
	log             zerolog.Logger
	maxElementBytes int
	upstreamTimeout time.Duration

	cron *cron.Cron
}

// New builds a Server from opts, applying package defaults for any
// zero-valued field.
func New(opts Options, m *metrics.Metrics, log zerolog.Logger) *Server {
	timeout := opts.UpstreamTimeout
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}

	s := &Server{
		cache:           cache.New(opts.MaxCacheBytes, opts.MaxElementBytes),
		admission:       admission.New(opts.MaxClients),
		upstream:        upstream.New(),
		metrics:         m,
		log:             log,
		maxElementBytes: opts.MaxElementBytes,
		upstreamTimeout: timeout,
	}
	if s.maxElementBytes <= 0 {
		s.maxElementBytes = cache.DefaultMaxElementBytes
	}

	if opts.StatsCron != "" {
		s.cron = cron.New(cron.WithSeconds())
		s.cron.AddFunc(opts.StatsCron, s.logCacheStats)
	}
	return s
}

// Cache exposes the underlying cache so callers (e.g. the config
// hot-reload watcher) can adjust its limits live.
func (s *Server) Cache() *cache.Cache { return s.cache }

// logCacheStats emits a one-line structured summary of cache
// occupancy and hit ratio, adapted from the reference cache's printf
// step-log into a zerolog event (spec §6 Supplemented Features).
func (s *Server) logCacheStats() {
	st := s.cache.Stats()
	s.metrics.CacheEntries.Set(float64(st.Entries))
	s.metrics.CacheBytes.Set(float64(st.Bytes))

	total := st.Hits + st.Misses
	var ratio float64
	if total > 0 {
		ratio = float64(st.Hits) / float64(total)
	}
	s.log.Info().
		Int("entries", st.Entries).
		Int("bytes", st.Bytes).
		Uint64("hits", st.Hits).
		Uint64("misses", st.Misses).
		Uint64("evictions", st.Evictions).
		Float64("hitRatio", ratio).
		Msg("cache stats")
}

// ListenAndServe binds addr with address reuse (net.Listen on "tcp"
// already sets SO_REUSEADDR on the platforms this proxy targets) and
// runs the accept loop until the listener is closed. Go's net package
// does not expose a listen(2) backlog parameter, so the kernel default
// (generally well above MAX_CLIENTS) stands in for the reference
// implementation's explicit listen(fd, MAX_CLIENTS). Accept failures
// are logged and never terminate the loop (spec §4.5).
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	if s.cron != nil {
		s.cron.Start()
		defer s.cron.Stop()
	}

	s.log.Info().Str("addr", addr).Int("maxClients", s.admission.Capacity()).Msg("proxy listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.log.Warn().Err(err).Msg("accept failed, continuing")
			continue
		}
		go s.handleConnection(conn)
	}
}
