package serverrun

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/rzbill/strand/internal/config"
	"github.com/rzbill/strand/internal/runtime"
	grpcserver "github.com/rzbill/strand/internal/server/grpc"
	httpserver "github.com/rzbill/strand/internal/server/http"
	logpkg "github.com/rzbill/strand/pkg/log"
)

// Options are the command-line overrides layered on top of the config file
// and STRAND_* environment.
type Options struct {
	ConfigPath string
	DataDir    string
	GRPCAddr   string
	HTTPAddr   string
	BrokerID   string
	LogLevel   string
	LogFormat  string
}

// LoadConfig resolves the effective configuration: file, then environment,
// then flags.
func LoadConfig(opts Options) (cfgpkg.Config, error) {
	cfg, err := cfgpkg.Load(opts.ConfigPath)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.GRPCAddr != "" {
		cfg.GRPCAddr = opts.GRPCAddr
	}
	if opts.HTTPAddr != "" {
		cfg.HTTPAddr = opts.HTTPAddr
	}
	if opts.BrokerID != "" {
		cfg.Broker.ID = opts.BrokerID
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	return cfg, cfg.Validate()
}

// Run starts the broker and blocks until ctx is cancelled or a server fails.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	// Pebble and grpc-go log through the stdlib logger.
	logpkg.RedirectStdLog(logger)

	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("starting strand broker",
		logpkg.Str("broker", cfg.Broker.ID),
		logpkg.Str("grpc", cfg.GRPCAddr),
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("dataDir", cfg.DataDir),
		logpkg.Str("cluster", cfg.Cluster.Mode),
	)

	gsrv := grpcserver.New(rt)
	hsrv := httpserver.New(rt)

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error { return gsrv.ListenAndServe(gctx, cfg.GRPCAddr) })
	g.Go(func() error { return hsrv.ListenAndServe(gctx, cfg.HTTPAddr) })
	err = g.Wait()

	// Drain servers before the runtime so in-flight RPCs see a live engine.
	gsrv.Close()
	hsrv.Close()
	return err
}
