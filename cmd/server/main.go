package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jeenvibes-dev/scribbleguess/internal/config"
	"github.com/jeenvibes-dev/scribbleguess/internal/game"
	"github.com/jeenvibes-dev/scribbleguess/internal/logger"
	"github.com/jeenvibes-dev/scribbleguess/internal/server"
	"github.com/jeenvibes-dev/scribbleguess/internal/storage"
	"github.com/jeenvibes-dev/scribbleguess/internal/utils"
	"github.com/jeenvibes-dev/scribbleguess/internal/websocket"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "scribbleguess",
		Short:         "Realtime session server for a multiplayer drawing and guessing game.",
		Args:          cobra.NoArgs,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(v, flags)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return serve(cmd.Context(), cfg, log)
		},
	}

	pf := cmd.PersistentFlags()
	pf.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	pf.StringVarP(&flags.configFile, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "path to a .env file, ignored if missing")
	pf.String("host", "0.0.0.0", "address to bind to (env: SCRIBBLE_SERVER_HOST)")
	pf.IntP("port", "p", 8080, "port to listen on (env: SCRIBBLE_SERVER_PORT)")
	pf.String("public-url", "", "external base URL used in room join links (env: SCRIBBLE_SERVER_PUBLIC_URL)")
	pf.StringSlice("allowed-origins", nil, "allowed CORS and websocket origins (env: SCRIBBLE_SERVER_ALLOWED_ORIGINS)")
	pf.String("log-level", "info", "debug, info, warn or error (env: SCRIBBLE_LOGGING_LEVEL)")
	pf.String("log-format", "json", "json or console (env: SCRIBBLE_LOGGING_FORMAT)")
	pf.String("words-source", "builtin", "builtin, csv or postgres (env: SCRIBBLE_WORDS_SOURCE)")
	pf.String("words-csv", "", "CSV word list for --words-source=csv (env: SCRIBBLE_WORDS_CSV_PATH)")
	pf.String("database-dsn", "", "PostgreSQL DSN for the word store (env: SCRIBBLE_DATABASE_DSN)")

	bindFlags(v, pf, map[string]string{
		"host":            "server.host",
		"port":            "server.port",
		"public-url":      "server.public_url",
		"allowed-origins": "server.allowed_origins",
		"log-level":       "logging.level",
		"log-format":      "logging.format",
		"words-source":    "words.source",
		"words-csv":       "words.csv_path",
		"database-dsn":    "database.dsn",
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("scribbleguess v{{.Version}}\n")
	cmd.AddCommand(newWordsCmd(v, flags))
	return cmd
}

// bindFlags maps flags onto config keys. A flag only overrides the file
// and environment when it was set on the command line.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		_ = v.BindPFlag(key, fs.Lookup(flag))
	}
}

func setup(v *viper.Viper, flags *rootFlags) (config.Config, *zap.Logger, error) {
	if err := config.LoadEnvFile(flags.envFile); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(v, flags.configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	words := game.NewWordBank()
	if err := loadWords(ctx, cfg, words, log); err != nil {
		return err
	}

	registry := game.NewRegistry(log.Named("registry"))
	scheduler := game.NewScheduler(log.Named("scheduler"))
	engine := game.NewEngine(registry, scheduler, words, nil, game.Options{
		TotalRounds:        cfg.Game.TotalRounds,
		RoundDuration:      cfg.Game.RoundDuration,
		BlitzRoundDuration: cfg.Game.BlitzRoundDuration,
		RoundEndDelay:      cfg.Game.RoundEndDelay,
		TickInterval:       cfg.Game.TickInterval,
		ModifierInterval:   cfg.Game.ModifierInterval,
	}, log.Named("engine"))

	hub := websocket.NewHub(engine, websocket.Options{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		WriteWait:       cfg.WebSocket.WriteWait,
		PongWait:        cfg.WebSocket.PongWait,
		MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
		SendQueueSize:   cfg.WebSocket.SendQueueSize,
		RateLimit:       cfg.WebSocket.RateLimit,
		RateBurst:       cfg.WebSocket.RateBurst,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
	}, log.Named("hub"))
	engine.SetBroadcaster(hub)

	log.Info("starting server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("words_source", cfg.Words.Source),
		zap.Int("words", words.Len()))

	return server.NewServer(cfg.Server, engine, hub, log.Named("http")).Run(ctx)
}

func loadWords(ctx context.Context, cfg config.Config, words *game.WordBank, log *zap.Logger) error {
	switch cfg.Words.Source {
	case "csv":
		src := utils.NewCSVWordSource(cfg.Words.CSVPath, log)
		if err := words.LoadFrom(ctx, src); err != nil {
			return fmt.Errorf("loading words from %s: %w", cfg.Words.CSVPath, err)
		}
	case "postgres":
		store, err := storage.NewPostgresWordStore(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := words.LoadFrom(ctx, store); err != nil {
			return fmt.Errorf("loading words from postgres: %w", err)
		}
	}
	return nil
}

func newWordsCmd(v *viper.Viper, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "words",
		Short: "Manage the PostgreSQL word list.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.csv>",
		Short: "Upsert words from a CSV file (word[,weight]) into PostgreSQL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(v, flags)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if cfg.Database.DSN == "" {
				return fmt.Errorf("database.dsn is required (--database-dsn or SCRIBBLE_DATABASE_DSN)")
			}

			ctx := cmd.Context()
			entries, err := utils.NewCSVWordSource(args[0], log).LoadWords(ctx)
			if err != nil {
				return err
			}

			store, err := storage.NewPostgresWordStore(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			n, err := store.AddWords(ctx, entries)
			if err != nil {
				return err
			}
			total, err := store.Count(ctx)
			if err != nil {
				return err
			}

			log.Info("words imported", zap.String("file", args[0]), zap.Int("written", n), zap.Int("total", total))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d words (%d in store)\n", n, total)
			return nil
		},
	})
	return cmd
}
