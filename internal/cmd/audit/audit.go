// Package audit parses audit command flags and runs a full event log
// verification pass.
package audit

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	entrypoint "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/cmd"
	shipmentaudit "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/audit"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/engine"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage/jsonl"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage/sqlite"
)

// Config holds audit command configuration.
type Config struct {
	DataDir     string `env:"TOWER_DATA_DIR" envDefault:"data"`
	Store       string `env:"TOWER_STORE" envDefault:"jsonl"`
	StrictReads bool   `env:"TOWER_STRICT_READS"`

	Shipment string
	Verbose  bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the event log")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "store backend (jsonl or sqlite)")
	fs.StringVar(&cfg.Shipment, "shipment", "", "audit a single shipment (default: whole log)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "print every finding")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run verifies the configured event log and reports the outcome. A log that
// fails verification is reported as an error so the process exits non-zero.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAudit, func(ctx context.Context) error {
		store, err := openStore(cfg.Store, cfg.DataDir, cfg.StrictReads)
		if err != nil {
			return err
		}
		defer store.Close()

		eng := engine.New(store)

		if cfg.Shipment != "" {
			report, err := shipmentaudit.NewVerifier(store).VerifyShipment(ctx, cfg.Shipment)
			if err != nil {
				return err
			}
			log.Print(report.String())
			for _, finding := range report.Findings {
				log.Printf("finding %s seq=%d: %s", finding.Check, finding.Seq, finding.Detail)
			}
			if !report.OK() {
				return fmt.Errorf("shipment %s failed verification with %d findings", cfg.Shipment, len(report.Findings))
			}
			return nil
		}

		report, err := eng.VerifyIntegrity(ctx)
		if err != nil {
			return err
		}
		summary, err := eng.AuditReport(ctx)
		if err != nil {
			return err
		}

		log.Print(report.String())
		for state, count := range summary.ByState {
			log.Printf("  %s: %d", state, count)
		}
		log.Printf("  closed: %d", summary.Closed)

		if cfg.Verbose || !report.OK() {
			for _, finding := range report.Findings {
				log.Printf("finding %s shipment=%s seq=%d: %s",
					finding.Check, finding.ShipmentID, finding.Seq, finding.Detail)
			}
		}
		if !report.OK() {
			return fmt.Errorf("event log failed verification with %d findings", len(report.Findings))
		}
		return nil
	})
}

func openStore(backend, dataDir string, strictReads bool) (storage.Store, error) {
	switch backend {
	case "jsonl":
		return jsonl.Open(dataDir, jsonl.WithStrictReads(strictReads))
	case "sqlite":
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		return sqlite.Open(filepath.Join(dataDir, "tower.db"))
	default:
		return nil, fmt.Errorf("unknown store backend %q (want jsonl or sqlite)", backend)
	}
}
