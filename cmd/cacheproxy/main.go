// Command cacheproxy starts the forwarding caching proxy: bind a port,
// accept client connections up to a bounded concurrency, parse
// absolute-form GET requests, forward origin-form requests upstream,
// and serve repeat requests from an in-memory LRU cache.
package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vshong/cacheproxy/internal/config"
	applog "github.com/vshong/cacheproxy/internal/log"
	"github.com/vshong/cacheproxy/internal/metrics"
	"github.com/vshong/cacheproxy/internal/server"
)

var (
	cfgFile         string
	verbose         bool
	maxClients      int
	maxCacheBytes   int
	maxElementBytes int
	metricsAddr     string
	statsCron       string
)

var rootCmd = &cobra.Command{
	Use:   "cacheproxy <port>",
	Short: "A forwarding HTTP/1.x proxy with an in-memory LRU response cache",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().IntVar(&maxClients, "max-clients", 0, "maximum concurrent client handlers (default 400)")
	rootCmd.Flags().IntVar(&maxCacheBytes, "max-cache-bytes", 0, "total cache byte budget (default 200 MiB)")
	rootCmd.Flags().IntVar(&maxElementBytes, "max-element-bytes", 0, "largest single cacheable response (default 10 MiB)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address for the Prometheus /metrics endpoint (default :9090)")
	rootCmd.Flags().StringVar(&statsCron, "stats-cron", "", "cron schedule for periodic cache-summary logging (default every 30s)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	port, err := strconv.Atoi(args[0])
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("usage: %s <port>: %q is not a valid port", cmd.Name(), args[0])
	}

	cfg := &config.Config{ListenPort: port}
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		cfg.ListenPort = port
	}
	config.ApplyDefaults(cfg)
	if maxClients > 0 {
		cfg.MaxClients = maxClients
	}
	if maxCacheBytes > 0 {
		cfg.MaxCacheBytes = maxCacheBytes
	}
	if maxElementBytes > 0 {
		cfg.MaxElementBytes = maxElementBytes
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if statsCron != "" {
		cfg.StatsCron = statsCron
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := applog.New(verbose)
	m := metrics.New()

	srv := server.New(server.Options{
		MaxClients:      cfg.MaxClients,
		MaxCacheBytes:   cfg.MaxCacheBytes,
		MaxElementBytes: cfg.MaxElementBytes,
		StatsCron:       cfg.StatsCron,
	}, m, logger)

	if cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile, srv.Cache(), logger)
		if err != nil {
			logger.Warn().Err(err).Msg("config hot-reload disabled: could not start watcher")
		} else {
			stop := make(chan struct{})
			defer close(stop)
			go watcher.Run(stop)
		}
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Warn().Err(err).Msg("metrics server stopped")
		}
	}()

	return srv.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", cfg.ListenPort))
}
