package seed

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage/jsonl"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage/sqlite"
)

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
