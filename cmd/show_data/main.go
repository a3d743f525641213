// Command show_data prints the local device catalog, the trip state and
// any open baseline.
package main

import (
	"fmt"
	"os"

	"github.com/xelth-com/pantrysync/internal/catalog"
	"github.com/xelth-com/pantrysync/internal/config"
	"github.com/xelth-com/pantrysync/internal/models"
	"github.com/xelth-com/pantrysync/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	kv, err := storage.OpenBolt(cfg.BoltPath())
	if err != nil {
		fmt.Printf("❌ Failed to open %s: %v\n", cfg.BoltPath(), err)
		fmt.Println("\n💡 Stop the server first, the store is opened exclusively.")
		os.Exit(1)
	}
	defer kv.Close()

	adapter := storage.NewAdapter(kv, nil)
	store := catalog.NewStore(nil, nil)
	store.Replace(adapter.Load())
	views := catalog.NewViews(store)

	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║               📊 pantrysync device report                 ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	stats := views.ShoppingStats()
	fmt.Println("📈 CATALOG")
	fmt.Println("──────────────────────────────────────────────────────────")
	fmt.Printf("  Products:      %3d\n", store.Len())
	fmt.Printf("  Pantry:        %3d\n", len(views.PantryItems()))
	fmt.Printf("  Shopping:      %3d (%d done, %d left)\n", stats.Total, stats.Completed, stats.Remaining)
	fmt.Println()

	if stats.Total > 0 {
		fmt.Println("🛒 SHOPPING LIST")
		fmt.Println("──────────────────────────────────────────────────────────")
		for _, g := range catalog.GroupByCategory(views.ShoppingItems()) {
			fmt.Printf("  %s\n", g.Category)
			for _, p := range g.Items {
				fmt.Printf("    %s %s\n", mark(p), p.Name)
			}
		}
		fmt.Println()
	}

	fmt.Println("🔄 TRIP")
	fmt.Println("──────────────────────────────────────────────────────────")
	st, err := adapter.LoadTripState()
	if err != nil {
		fmt.Printf("  ⚠️  unreadable trip state: %v\n", err)
	} else {
		fmt.Printf("  State:   %s\n", orDash(st.State))
		fmt.Printf("  Trip:    %s\n", orDash(st.TripID))
		if st.LastError != "" {
			fmt.Printf("  Error:   %s\n", st.LastError)
		}
	}
	snap, err := adapter.LoadBaseline()
	switch {
	case err != nil:
		fmt.Printf("  ⚠️  unreadable baseline: %v\n", err)
	case snap == nil:
		fmt.Println("  Baseline: none")
	default:
		fmt.Printf("  Baseline: %d products captured at %s for trip %s\n", len(snap.Entries), snap.CapturedAt.Format("2006-01-02 15:04"), snap.TripID)
	}
}

func mark(p models.Product) string {
	if p.Completed {
		return "[x]"
	}
	return "[ ]"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
