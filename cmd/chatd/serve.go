package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chatd/internal/common/fsutil"
	"chatd/internal/config"
	"chatd/internal/engine"
	"chatd/internal/httpapi"
	"chatd/internal/llm"
	"chatd/internal/store"
)

type serveOptions struct {
	configPath  string
	addr        string
	modelPath   string
	dbPath      string
	logLevel    string
	corsOrigins string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Config file (.yaml/.json/.toml)")
	f.StringVar(&opts.addr, "addr", "", "HTTP listen address, e.g. :8080")
	f.StringVar(&opts.modelPath, "model", "", "Path to the model file (overrides config)")
	f.StringVar(&opts.dbPath, "db", "", "Path to the sqlite chat database")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&opts.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins (empty disables CORS)")
	return cmd
}

func runServe(opts serveOptions) error {
	var cfg config.Config
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	applyOverrides(&cfg, opts)
	applyDefaults(&cfg)

	logger := newLogger(cfg.LogLevel)
	httpapi.SetLogger(logger)

	if origins := splitCSV(opts.corsOrigins); len(origins) > 0 {
		httpapi.SetCORSOptions(true, origins,
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Accept", "Content-Type"})
	}

	modelPath, err := fsutil.ExpandHome(cfg.Model.Path)
	if err != nil {
		return fmt.Errorf("resolve model path: %w", err)
	}
	if !fsutil.PathExists(modelPath) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	model, err := llm.Load(modelPath, llm.LoadOptions{
		CtxTokens: cfg.Model.CtxTokens,
		Float16:   cfg.Model.Float16,
		Progress:  func(line string) { logger.Info().Str("component", "llm").Msg(line) },
	})
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}

	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	httpapi.SetBaseContext(base)

	eng := engine.New(model, st, engineConfig(cfg), logger)
	eng.Start(base)

	mux := httpapi.NewMux(eng, st)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("model", modelPath).Msg("chatd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	// Stop accepting HTTP first, then drain admitted sessions.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	eng.Close()
	drained := make(chan struct{})
	go func() {
		eng.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("drain timed out, aborting active sessions")
		cancel()
		<-drained
	}
	return nil
}

func applyOverrides(cfg *config.Config, opts serveOptions) {
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if opts.modelPath != "" {
		cfg.Model.Path = opts.modelPath
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
}

func applyDefaults(cfg *config.Config) {
	if cfg.Addr == "" {
		if v := os.Getenv("CHATD_ADDR"); v != "" {
			cfg.Addr = v
		} else {
			cfg.Addr = ":8080"
		}
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "chatd.db"
	}
	if cfg.Model.CtxTokens <= 0 {
		cfg.Model.CtxTokens = 2048
	}
}

func engineConfig(cfg config.Config) engine.Config {
	return engine.Config{
		MaxSessions:      cfg.Engine.MaxSessions,
		TickInterval:     time.Duration(cfg.Engine.TickIntervalMS) * time.Millisecond,
		NumPredict:       cfg.Engine.NumPredict,
		CompletionBuffer: cfg.Engine.CompletionBuffer,
		MaxStallTicks:    cfg.Engine.MaxStallTicks,
		Params: llm.InferParams{
			Threads:       cfg.Model.Threads,
			Batch:         cfg.Sampling.BatchSize,
			TopK:          cfg.Sampling.TopK,
			TopP:          cfg.Sampling.TopP,
			RepeatPenalty: cfg.Sampling.RepeatPenalty,
			RepeatLastN:   cfg.Sampling.RepeatLastN,
			Temperature:   cfg.Sampling.Temperature,
		},
	}
}

func newLogger(level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && level != "" {
		lvl = parsed
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty items.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
