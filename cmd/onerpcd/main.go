// Command onerpcd serves a JSON-RPC 2.0 pipeline over HTTP and TCP.
//
// Listeners, codecs, auth, rate limiting, the call journal, metrics
// and etcd registration are all driven by a TOML config file; with no
// config the daemon serves plain JSON-RPC on :8080.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/mnehpets/onerpc/codec"
	"github.com/mnehpets/onerpc/discovery"
	"github.com/mnehpets/onerpc/httprpc"
	"github.com/mnehpets/onerpc/jsonrpc"
	"github.com/mnehpets/onerpc/metrics"
	"github.com/mnehpets/onerpc/middleware"
	"github.com/mnehpets/onerpc/rpclog"
	"github.com/mnehpets/onerpc/streamrpc"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		log.Printf("onerpcd: fatal error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var rpc jsonrpc.Server = jsonrpc.NewCore(demoHandler())
	if cfg.Codec.Buffer {
		rpc = jsonrpc.WithCodec(rpc, codec.Buffer{})
	}

	var recorders []jsonrpc.Recorder
	if cfg.Log.SQLitePath != "" {
		store, err := rpclog.Open(cfg.Log.SQLitePath)
		if err != nil {
			return fmt.Errorf("open call journal: %w", err)
		}
		defer store.Close()
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("init call journal: %w", err)
		}
		recorders = append(recorders, store)
	}
	var promReg *prometheus.Registry
	if cfg.Metrics.Enabled {
		promReg = prometheus.NewRegistry()
		rec := metrics.NewRecorder("onerpc")
		promReg.MustRegister(rec)
		recorders = append(recorders, rec)
	}

	procs, err := buildProcessors(ctx, cfg)
	if err != nil {
		return err
	}

	errc := make(chan error, 2)

	var tcpSrv *streamrpc.Server
	if cfg.Listen.TCP != "" {
		tcpSrv = streamrpc.NewServer(cfg.Listen.TCP, rpc, streamrpc.WithRecorders(recorders...))
		go func() {
			// Start blocks until ctx is cancelled; only a failure to
			// listen is worth surfacing.
			if err := tcpSrv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errc <- fmt.Errorf("tcp listener: %w", err)
			}
		}()
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := tcpSrv.Stop(stopCtx); err != nil {
				log.Printf("onerpcd: stop tcp listener: %v", err)
			}
		}()
		log.Printf("onerpcd: tcp listening on %s", cfg.Listen.TCP)
	}
	if cfg.Listen.HTTP != "" {
		mux := http.NewServeMux()
		mux.Handle("/rpc", &httprpc.Handler{
			Server:     rpc,
			Processors: procs,
			Recorders:  recorders,
		})
		if promReg != nil {
			mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		}
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		httpSrv := &http.Server{Addr: cfg.Listen.HTTP, Handler: mux}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("http listener: %w", err)
			}
		}()
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := httpSrv.Shutdown(stopCtx); err != nil {
				log.Printf("onerpcd: shutdown http listener: %v", err)
			}
		}()
		log.Printf("onerpcd: http listening on %s", cfg.Listen.HTTP)
	}

	if len(cfg.Discovery.Endpoints) > 0 {
		reg, err := discovery.NewEtcd(cfg.Discovery.Endpoints, cfg.Discovery.Prefix)
		if err != nil {
			return fmt.Errorf("connect discovery: %w", err)
		}
		defer reg.Close()
		var eps []discovery.Endpoint
		if cfg.Listen.HTTP != "" {
			eps = append(eps, discovery.Endpoint{Name: cfg.ServiceName, Addr: cfg.Listen.HTTP, Proto: "http"})
		}
		if tcpSrv != nil {
			eps = append(eps, discovery.Endpoint{Name: cfg.ServiceName, Addr: cfg.Listen.TCP, Proto: "tcp"})
		}
		for _, ep := range eps {
			if err := reg.Advertise(ctx, ep, cfg.Discovery.TTL); err != nil {
				return fmt.Errorf("advertise %s endpoint: %w", ep.Proto, err)
			}
			defer withdraw(reg, ep)
		}
	}

	log.Printf("onerpcd: ready")
	select {
	case <-ctx.Done():
		log.Printf("onerpcd: shutting down")
		return nil
	case err := <-errc:
		return err
	}
}

func buildProcessors(ctx context.Context, cfg *Config) ([]httprpc.Processor, error) {
	procs := []httprpc.Processor{
		middleware.NewRequestIDProcessor(),
		middleware.NewSecurityHeadersProcessor(),
		middleware.NewLoggingProcessor(),
	}
	if cfg.RateLimit.RPS > 0 {
		procs = append(procs, middleware.NewRateLimitProcessor(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst))
	}
	if cfg.Auth.Issuer != "" {
		verifier, err := middleware.NewOIDCVerifier(ctx, cfg.Auth.Issuer, cfg.Auth.ClientID)
		if err != nil {
			return nil, fmt.Errorf("configure auth: %w", err)
		}
		procs = append(procs, middleware.NewBearerAuthProcessor(verifier))
	}
	return procs, nil
}

func withdraw(reg *discovery.Etcd, ep discovery.Endpoint) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := reg.Withdraw(ctx, ep); err != nil {
		log.Printf("onerpcd: withdraw %s endpoint: %v", ep.Proto, err)
	}
}
