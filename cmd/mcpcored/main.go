// Command mcpcored runs the MCP server core: it loads a YAML config
// file, wires the dispatcher and its collaborators, registers the
// built-in tools, and serves whichever transports the config enables.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nxtreaming/mcpcore/internal/authn"
	"github.com/nxtreaming/mcpcore/internal/cache"
	"github.com/nxtreaming/mcpcore/internal/config"
	"github.com/nxtreaming/mcpcore/internal/dispatcher"
	"github.com/nxtreaming/mcpcore/internal/gateway"
	"github.com/nxtreaming/mcpcore/internal/handlers"
	"github.com/nxtreaming/mcpcore/internal/metrics"
	"github.com/nxtreaming/mcpcore/internal/persist"
	"github.com/nxtreaming/mcpcore/internal/pool"
	"github.com/nxtreaming/mcpcore/internal/protocol"
	"github.com/nxtreaming/mcpcore/internal/registry"
	"github.com/nxtreaming/mcpcore/internal/routing"
	"github.com/nxtreaming/mcpcore/internal/secrets"
	"github.com/nxtreaming/mcpcore/internal/transport"
	"github.com/nxtreaming/mcpcore/internal/workerpool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mcpcored: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := "mcpcore.yaml"
	stdioMode := false
	tcpAddr := ""
	httpAddr := ""
	for _, arg := range os.Args[1:] {
		switch {
		case arg == "--stdio":
			stdioMode = true
		case hasPrefix(arg, "--config="):
			configPath = arg[len("--config="):]
		case hasPrefix(arg, "--tcp-addr="):
			tcpAddr = arg[len("--tcp-addr="):]
		case hasPrefix(arg, "--http-addr="):
			httpAddr = arg[len("--http-addr="):]
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := loadServerConfig(configPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, connPools, closeDB, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	defer func() {
		for _, p := range connPools {
			p.Close()
		}
		if closeDB != nil {
			closeDB()
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	if stdioMode || (tcpAddr == "" && httpAddr == "") {
		logger.Info("starting stdio transport")
		stdio := transport.NewStdio(os.Stdin, os.Stdout, d.HandleMessage, logger)
		g.Go(func() error { return stdio.Serve(gctx) })
	}

	if tcpAddr != "" {
		logger.Info("starting tcp transport", "addr", tcpAddr)
		tcp := transport.NewTCP(tcpAddr, d.HandleMessage, logger)
		g.Go(func() error { return tcp.Serve(gctx) })
	}

	if httpAddr != "" {
		logger.Info("starting http transport", "addr", httpAddr)
		mux := http.NewServeMux()
		mux.Handle("/mcp", transport.NewHTTPStream(d.HandleMessage, logger, int64(cfg.MaxMessageSize)))
		mux.Handle("/mcp/ws", transport.NewWebSocket(d.HandleMessage, logger))
		srv := &http.Server{
			Addr:              httpAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		g.Go(func() error {
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			select {
			case <-gctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		d.Stop()
		if !d.WaitForDrain(10 * time.Second) {
			logger.Warn("shutdown: requests still in flight after drain timeout")
		}
		return nil
	})

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// loadServerConfig reads the YAML config file if present, falling back
// to built-in defaults (stdio-only, no gateway backends, no auth) so the
// binary still runs with zero configuration.
func loadServerConfig(path string, logger *slog.Logger) (*config.FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config file found, using defaults", "path", path)
			empty, parseErr := config.Parse([]byte("{}"))
			return empty, parseErr
		}
		return nil, err
	}
	return config.LoadFile(path)
}

// buildServer wires every collaborator the dispatcher needs. The
// returned connection pools and closeDB func (nil if persistence is
// disabled) are handed back so main can release them on shutdown.
func buildServer(ctx context.Context, cfg *config.FileConfig, logger *slog.Logger) (*dispatcher.Dispatcher, []*pool.ConnectionPool, func() error, error) {
	m := metrics.New()
	objects := pool.NewObjectPool(0)
	resources := cache.NewResourceCache(cfg.CacheCapacity, time.Duration(cfg.CacheDefaultTTLSec)*time.Second)
	schemas := cache.NewSchemaCache(cfg.SchemaCacheCap)
	reg := registry.New()
	wp := workerpool.New(cfg.WorkerCount, cfg.QueueCapacity, logger)
	registerBuiltinTools(reg, wp)

	var secretMgr *secrets.Manager
	var closeDB func() error
	if cfg.Persistence != nil {
		db, err := persist.Open(ctx, cfg.Persistence.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open persistence: %w", err)
		}
		closeDB = db.Close
		enc, err := secrets.NewAgeEncryptor(cfg.Persistence.SecretKey)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create age encryptor: %w", err)
		}
		secretMgr = secrets.NewManager(db, enc)
	}
	_ = secretMgr // reserved for administrative secret rotation, not yet exposed over the wire

	authMode := authn.ModeNone
	if cfg.APIKeyEnabled() {
		authMode = authn.ModeAPIKey
	}
	auth, err := authn.New(authn.Config{Mode: authMode, ConfiguredKey: cfg.APIKey})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create authenticator: %w", err)
	}

	var limiter *authn.RateLimiter
	if cfg.RateLimitMax > 0 {
		limiter = authn.NewRateLimiter(time.Duration(cfg.RateLimitWindowSec)*time.Second, cfg.RateLimitMax)
	} else {
		limiter = authn.NewRateLimiter(time.Second, 0)
	}

	var rules []routing.Rule
	connPools := make(map[string]*pool.ConnectionPool, len(cfg.Backends))
	var pools []*pool.ConnectionPool
	for _, b := range cfg.Backends {
		host, port, err := splitHostPort(b.Address)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("backend %s: %w", b.Name, err)
		}
		cp, err := pool.NewConnectionPool(pool.ConnConfig{
			Host:           host,
			Port:           port,
			Min:            int32(b.MinConns),
			Max:            int32(b.MaxConns),
			ConnectTimeout: time.Duration(b.ConnectTimeoutMs) * time.Millisecond,
			IdleTimeout:    time.Duration(b.IdleTimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("backend %s: create connection pool: %w", b.Name, err)
		}
		connPools[b.Name] = cp
		pools = append(pools, cp)

		backend := &protocol.BackendInfo{
			Name:           b.Name,
			Address:        b.Address,
			Timeout:        b.TimeoutMs,
			MethodPrefix:   b.MethodPrefix,
			URIPrefix:      b.URIPrefix,
			ConnectTimeout: b.ConnectTimeoutMs,
			MinConns:       b.MinConns,
			MaxConns:       b.MaxConns,
			IdleTimeout:    b.IdleTimeoutMs,
		}
		rules = append(rules, routing.Rule{MethodPrefix: b.MethodPrefix, URIPrefix: b.URIPrefix, Backend: backend})
	}
	router := routing.New(rules)
	forwarder := gateway.New(connPools)

	h := handlers.New(reg, resources, schemas, objects, m)

	dcfg := dispatcher.Config{
		MaxMessageSize: cfg.MaxMessageSize,
		ConnectTimeout: 5 * time.Second,
		SendTimeout:    10 * time.Second,
		RecvTimeout:    30 * time.Second,
	}
	if len(cfg.Backends) > 0 {
		dcfg.ConnectTimeout = time.Duration(cfg.Backends[0].ConnectTimeoutMs) * time.Millisecond
		dcfg.RecvTimeout = time.Duration(cfg.Backends[0].TimeoutMs) * time.Millisecond
	}

	go func() {
		<-ctx.Done()
		wp.Shutdown(true, 10*time.Second)
	}()

	d := dispatcher.New(dcfg, auth, limiter, router, forwarder, h, m, logger)
	return d, pools, closeDB, nil
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := splitLastColon(addr)
	if err != nil {
		return "", 0, err
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", 0, fmt.Errorf("invalid port in address %q: %w", addr, err)
	}
	return host, port, nil
}

func splitLastColon(addr string) (string, string, error) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("address %q missing port", addr)
}
