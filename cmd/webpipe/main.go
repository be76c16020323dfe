// Command webpipe serves the evidence-gathering pipeline as MCP tools
// on stdio. Logs go to stderr; stdout belongs to the protocol.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/arclabs561/webpipe/pkg/cache"
	"github.com/arclabs561/webpipe/pkg/config"
	"github.com/arclabs561/webpipe/pkg/fetch"
	"github.com/arclabs561/webpipe/pkg/mcpserver"
	"github.com/arclabs561/webpipe/pkg/pipeline"
	"github.com/arclabs561/webpipe/pkg/search"
)

// Filled at build time with the -X linker flag.
var (
	Version = "0.1.0"
	Commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (env fills the gaps)")
	logLevel := flag.String("log-level", "info", "zerolog level: trace, debug, info, warn, error")
	noIndex := flag.Bool("no-index", false, "disable the cache corpus index (cache_search will be unavailable)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("webpipe %s (%s)\n", Version, Commit)
		return
	}
	// "webpipe" and "webpipe mcp-stdio" both serve on stdio.
	if flag.NArg() > 0 && flag.Arg(0) != "mcp-stdio" {
		fmt.Fprintf(os.Stderr, "unknown command %q (supported: mcp-stdio)\n", flag.Arg(0))
		os.Exit(2)
	}

	if os.Getenv("WEBPIPE_DOTENV") != "0" {
		_ = godotenv.Load()
	}

	log := newLogger(*logLevel)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	var index *cache.Index
	if !*noIndex {
		index, err = cache.OpenIndex(cfg.CacheDir)
		if err != nil {
			// The pipeline works without it; only cache_search degrades.
			log.Warn().Err(err).Msg("corpus index unavailable")
		} else {
			defer index.Close()
		}
	}
	store, err := cache.NewStore(cfg.CacheDir, index)
	if err != nil {
		log.Fatal().Err(err).Msg("opening cache")
	}

	pipe := pipeline.New(cfg, log, search.NewRouter(cfg), fetch.NewRouter(cfg), store)
	server := mcpserver.New(log, pipe, Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("privacy_mode", string(cfg.PrivacyMode)).
		Str("cache_dir", cfg.CacheDir).
		Msg("starting")
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().
		Timestamp().
		Str("run_id", xid.New().String()).
		Logger()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.ConfigFromEnv(), nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return config.ApplyEnvDefaults(cfg), nil
}
