package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/adierro/courtscan/internal/adapters/mapbox"
	"github.com/adierro/courtscan/internal/adapters/postgres"
	"github.com/adierro/courtscan/internal/adapters/roboflow"
	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/core/usecases"
	"github.com/adierro/courtscan/internal/pkg/config"
	"github.com/adierro/courtscan/internal/pkg/logging"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

type Manifest struct {
	Source string      `json:"source"`
	Areas  []AreaEntry `json:"areas"`
}

type AreaEntry struct {
	Name   string  `json:"name"`
	Slug   string  `json:"slug"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius int     `json:"radius"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load("courtscan-scanner")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup("info", "text")

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	store := postgres.NewStore(db)

	// Load manifest
	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	log.Printf("CourtScan batch scanner — %d areas from %s", len(manifest.Areas), manifest.Source)

	// Filter areas (optional CLI arg: slug list)
	slugFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			slugFilter[strings.TrimSpace(s)] = true
		}
	}

	tileClient := mapbox.NewTileClient(cfg.Mapbox.Token)
	geocoder := mapbox.NewGeocoder(cfg.Mapbox.Token)
	inference := roboflow.New(cfg.Roboflow.APIKey, cfg.Roboflow.Model, cfg.Roboflow.ModelVersion)
	dedup := usecases.NewDedupService(store)
	scanSvc := usecases.NewScanService(store, tileClient, inference, geocoder, dedup, slog.Default()).
		WithConcurrency(cfg.Scan.Concurrency)

	var wg sync.WaitGroup
	sem := make(chan struct{}, 2) // max 2 concurrent areas; tiles parallelize within each

	for _, area := range manifest.Areas {
		if len(slugFilter) > 0 && !slugFilter[area.Slug] {
			continue
		}

		wg.Add(1)
		go func(a AreaEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := scanSvc.Run(ctx, "batch-scanner",
				domain.GeoPoint{Lat: a.Lat, Lon: a.Lon}, a.Radius)
			if err != nil {
				log.Printf("ERROR [%s]: %v", a.Slug, err)
				return
			}
			log.Printf("[%s] scan %s: %d tiles (%d failed), %d detections, %d courts created, %d linked",
				a.Slug, result.ScanID, result.TileCount, result.FailedTiles,
				result.Detections, result.CourtsCreated, result.CourtsLinked)
		}(area)
	}

	wg.Wait()
	log.Println("batch scan complete")
}
