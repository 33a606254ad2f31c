package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/grandline/opcg-server-go/internal/game/catalog"
	"github.com/grandline/opcg-server-go/internal/game/scripts"
	"go.uber.org/zap"
)

var (
	outPath = flag.String("out", "data/cards.yaml", "catalog file to merge into")
	dryRun  = flag.Bool("dry-run", false, "validate and report without writing")
)

func main() {
	flag.Parse()

	// Get CSV file path from args or use default
	csvPath := "data/cards_export.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}

	absPath, err := filepath.Abs(csvPath)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}

	fmt.Println("=== OPCG Card Data Import ===")
	fmt.Printf("CSV file: %s\n", absPath)
	fmt.Printf("Catalog:  %s\n", *outPath)

	file, err := os.Open(absPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	startTime := time.Now()
	entries, skipped, err := catalog.ReadCSV(file)
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}
	for _, s := range skipped {
		log.Printf("Warning: Skipping %s", s)
	}
	fmt.Printf("Parsed %d valid cards\n", len(entries))

	existing, err := catalog.ReadFile(*outPath)
	if err != nil {
		log.Fatalf("Failed to read catalog: %v", err)
	}
	result := catalog.Merge(existing, entries)

	data, err := existing.Marshal()
	if err != nil {
		log.Fatalf("Failed to encode catalog: %v", err)
	}

	// The merged file must load exactly as the simulator would load it.
	check := catalog.New(scripts.NewRegistry(), nil, zap.NewNop())
	if err := check.Load(data); err != nil {
		log.Fatalf("Merged catalog does not load: %v", err)
	}

	if *dryRun {
		fmt.Println("Dry run, catalog not written")
	} else if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Fatalf("Failed to write catalog: %v", err)
	}

	fmt.Println("\n=== Import Complete ===")
	fmt.Printf("✓ Added: %d cards\n", result.Added)
	fmt.Printf("✓ Updated: %d cards\n", result.Updated)
	if len(skipped) > 0 {
		fmt.Printf("✗ Skipped: %d rows\n", len(skipped))
	}
	fmt.Printf("Total cards in catalog: %d\n", len(check.Codes()))
	fmt.Printf("Time taken: %s\n", time.Since(startTime))
}
