// Command seed_demo loads an export file (JSON or CSV) into the local
// device catalog.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xelth-com/pantrysync/internal/catalog"
	"github.com/xelth-com/pantrysync/internal/config"
	"github.com/xelth-com/pantrysync/internal/interchange"
	"github.com/xelth-com/pantrysync/internal/storage"
)

func main() {
	fmt.Println("🌱 pantrysync catalog seeder")

	if len(os.Args) < 2 {
		log.Fatalf("usage: seed_demo <export.json|list.csv>")
	}
	path := os.Args[1]
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("❌ Failed to read %s: %v", path, err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("❌ Failed to create %s: %v", cfg.DataDir, err)
	}
	kv, err := storage.OpenBolt(cfg.BoltPath())
	if err != nil {
		log.Fatalf("❌ Failed to open local storage (is the server running?): %v", err)
	}
	defer kv.Close()

	adapter := storage.NewAdapter(kv, nil)
	store := catalog.NewStore(nil, nil)
	if err := adapter.Attach(store); err != nil {
		log.Fatalf("❌ Failed to load catalog: %v", err)
	}
	defer adapter.Detach()
	fmt.Printf("✅ Opened %s (%d products)\n", cfg.BoltPath(), store.Len())

	svc := interchange.NewService(store, adapter, cfg.DeviceID, "", nil)
	var res interchange.ImportResult
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		res, err = svc.ImportCSV(bytes.NewReader(raw))
	} else {
		res, err = svc.Import(raw)
	}
	if err != nil {
		log.Fatalf("❌ Import failed: %v", err)
	}

	fmt.Printf("✅ Imported %d, updated %d, skipped %d, warnings %d\n",
		res.Imported, res.Updated, res.Skipped, res.Warnings)
	fmt.Printf("   Catalog now holds %d products\n", store.Len())
}
