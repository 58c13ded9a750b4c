// Package arena parses arena service flags and launches the service.
package arena

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/seolki/rankarena/internal/platform/cmd"
)

// Config holds arena command configuration.
type Config struct {
	HTTPAddr      string        `env:"RANKARENA_ARENA_HTTP_ADDR"      envDefault:":8090"`
	StoragePath   string        `env:"RANKARENA_ARENA_STORAGE_PATH"   envDefault:"arena.db"`
	GameID        string        `env:"RANKARENA_ARENA_GAME_ID"`
	OwnerFilter   string        `env:"RANKARENA_ARENA_OWNER_FILTER"`
	RosterPath    string        `env:"RANKARENA_ARENA_ROSTER_PATH"`
	AdoptInterval time.Duration `env:"RANKARENA_ARENA_ADOPT_INTERVAL" envDefault:"5s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "arena HTTP listen address")
	fs.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "SQLite storage path")
	fs.StringVar(&cfg.GameID, "game-id", cfg.GameID, "game to watch for adoptable sessions")
	fs.StringVar(&cfg.OwnerFilter, "owner-filter", cfg.OwnerFilter, "restrict adoption to sessions started by this owner")
	fs.StringVar(&cfg.RosterPath, "roster-path", cfg.RosterPath, "JSON roster file used during adoption preflight")
	fs.DurationVar(&cfg.AdoptInterval, "adopt-interval", cfg.AdoptInterval, "adoption poll interval")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the arena server and serves until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceArena, func(context.Context) error {
		server, err := NewServer(cfg)
		if err != nil {
			return fmt.Errorf("init arena server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve arena: %w", err)
		}
		return nil
	})
}
