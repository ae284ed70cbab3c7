// Package seed parses seed command flags and drives synthetic shipment
// traffic through the engine operation set.
package seed

import (
	"context"
	"flag"
	"log"

	entrypoint "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/cmd"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/engine"
)

// Config holds seed command configuration.
type Config struct {
	DataDir     string `env:"TOWER_DATA_DIR" envDefault:"data"`
	Store       string `env:"TOWER_STORE" envDefault:"jsonl"`
	StrictReads bool   `env:"TOWER_STRICT_READS"`

	Shipments int
	Workers   int
	Seed      int64
	Verbose   bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the event log")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "store backend (jsonl or sqlite)")
	fs.IntVar(&cfg.Shipments, "shipments", 25, "number of shipments to generate")
	fs.IntVar(&cfg.Workers, "workers", 4, "concurrent seeding workers")
	fs.Int64Var(&cfg.Seed, "seed", 0, "random seed for reproducibility (0 = time-based)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose output")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seeds the configured store with synthetic shipment lifecycles.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		store, err := openStore(cfg.Store, cfg.DataDir, cfg.StrictReads)
		if err != nil {
			return err
		}
		defer store.Close()

		gen := NewGenerator(engine.New(store), GeneratorConfig{
			Shipments: cfg.Shipments,
			Workers:   cfg.Workers,
			Seed:      cfg.Seed,
			Verbose:   cfg.Verbose,
		})
		stats, err := gen.Run(ctx)
		if err != nil {
			return err
		}
		for _, line := range stats.Lines() {
			log.Print(line)
		}
		return nil
	})
}
