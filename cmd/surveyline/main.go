// Package main is the entry point for the survey line server and its
// maintenance commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/mcgarnagle38/geophys-utils/internal/api"
	"github.com/mcgarnagle38/geophys-utils/internal/config"
	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
	"github.com/mcgarnagle38/geophys-utils/internal/geometry"
	"github.com/mcgarnagle38/geophys-utils/internal/linecache"
	"github.com/mcgarnagle38/geophys-utils/internal/render"
	"github.com/mcgarnagle38/geophys-utils/internal/service"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	surveyID := flag.String("survey", "", "Survey ID for repair/hull/quicklook commands (default: first survey)")
	outPath := flag.String("out", "", "Output file for hull/quicklook commands (default: stdout)")
	hullPNG := flag.Bool("png", false, "For the hull command, render a PNG preview instead of GeoJSON")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "serve"
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize cache manager (shared across all surveys)
	cacheManager, err := linecache.NewManager(linecache.Config{
		SharedCacheSizeMB: cfg.Cache.SharedSizeMB,
		SharedTTL:         time.Duration(cfg.Cache.SharedTTLMin) * time.Minute,
		ProductCacheSize:  cfg.Cache.ProductEntries,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	// Initialize quicklook renderer (shared across all surveys)
	renderer := render.NewQuicklookRenderer(render.Config{
		ImageSize: cfg.Render.ImageSize,
	})

	hullOpts := geometry.HullOptions{
		BufferDistance: cfg.Hull.BufferDistance,
		Offset:         cfg.Hull.Offset,
		Tolerance:      cfg.Hull.Tolerance,
		CapStyle:       geometry.CapRound,
		JoinStyle:      geometry.JoinRound,
		MaxPolygons:    cfg.Hull.MaxPolygons,
		MaxVertices:    cfg.Hull.MaxVertices,
		MaxIterations:  cfg.Hull.MaxIterations,
	}

	// Discover surveys under the store path
	surveyDirs, err := discoverSurveys(cfg.Data.StorePath)
	if err != nil {
		log.Fatalf("Failed to discover surveys under %s: %v", cfg.Data.StorePath, err)
	}
	if len(surveyDirs) == 0 {
		log.Fatalf("No surveys found under %s", cfg.Data.StorePath)
	}

	surveyIDs := make([]string, 0, len(surveyDirs))
	for id := range surveyDirs {
		surveyIDs = append(surveyIDs, id)
	}
	sort.Strings(surveyIDs)

	log.Printf("Initializing %d survey(s), default: %s", len(surveyIDs), surveyIDs[0])

	registry := api.NewSurveyRegistry(surveyIDs[0], surveyIDs)
	for _, id := range surveyIDs {
		svc, err := openSurveyService(cfg, cacheManager, renderer, hullOpts, surveyDirs[id])
		if err != nil {
			log.Fatalf("Failed to open survey %q: %v", id, err)
		}
		registry.Register(id, svc)
		log.Printf("  [%s] %d points, %d variables", id,
			svc.Dataset().PointCount(), len(svc.Dataset().PointVariables()))
	}

	switch command {
	case "serve":
		serve(cfg, registry)
	case "repair":
		runRepair(registry, *surveyID)
	case "hull":
		runHull(registry, *surveyID, *outPath, *hullPNG)
	case "quicklook":
		runQuicklook(registry, *surveyID, *outPath)
	default:
		log.Fatalf("Unknown command %q (expected serve, repair, hull or quicklook)", command)
	}
}

// discoverSurveys finds store directories (those holding a metadata.json)
// directly under root.
func discoverSurveys(root string) (map[string]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	surveys := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "metadata.json")); err != nil {
			continue
		}
		surveys[entry.Name()] = dir
	}
	return surveys, nil
}

func openSurveyService(cfg *config.Config, cacheManager *linecache.Manager, renderer *render.QuicklookRenderer, hullOpts geometry.HullOptions, dir string) (*service.LineService, error) {
	var ds survey.Dataset
	switch cfg.Data.Backend {
	case "", "store":
		store, err := survey.OpenStore(dir)
		if err != nil {
			return nil, err
		}
		ds = store
	case "tiledb":
		tdb, err := survey.NewTileDBDataset(dir)
		if err != nil {
			return nil, err
		}
		if !tdb.Supported() {
			return nil, fmt.Errorf("tiledb backend requires a binary built with -tags tiledb")
		}
		ds = tdb
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Data.Backend)
	}

	tiers := []linecache.Tier{cacheManager.SharedTier()}
	if len(cfg.Cache.MemcachedServers) > 0 {
		tiers = append(tiers, linecache.NewMemcachedTier(cfg.Cache.MemcachedServers...))
	}
	if cfg.Cache.SideFileDir != "" {
		disk, err := linecache.NewDiskTier(cfg.Cache.SideFileDir, ds.Identity())
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, disk)
	}
	resolver := linecache.NewResolver(tiers...)

	return service.NewLineService(ds, resolver, cacheManager, renderer, hullOpts), nil
}

func serve(cfg *config.Config, registry *api.SurveyRegistry) {
	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func pickService(registry *api.SurveyRegistry, surveyID string) *service.LineService {
	if surveyID == "" {
		surveyID = registry.DefaultSurveyID()
	}
	svc := registry.Get(surveyID)
	if svc == nil {
		log.Fatalf("Unknown survey %q", surveyID)
	}
	return svc
}

func runRepair(registry *api.SurveyRegistry, surveyID string) {
	svc := pickService(registry, surveyID)
	report, err := svc.Repair()
	if err != nil {
		log.Fatalf("Repair failed: %v", err)
	}
	log.Printf("Repair complete: %d interpolated, %d extrapolated, %d runs skipped",
		report.Interpolated, report.Extrapolated, report.SkippedRuns)
}

func runHull(registry *api.SurveyRegistry, surveyID, outPath string, png bool) {
	svc := pickService(registry, surveyID)
	var data []byte
	var err error
	if png {
		data, err = svc.HullQuicklook(service.HullOverrides{})
	} else {
		data, err = svc.ConcaveHullGeoJSON(service.HullOverrides{})
	}
	if err != nil {
		log.Fatalf("Hull derivation failed: %v", err)
	}
	writeOutput(outPath, data)
}

func runQuicklook(registry *api.SurveyRegistry, surveyID, outPath string) {
	svc := pickService(registry, surveyID)
	png, err := svc.Quicklook()
	if err != nil {
		log.Fatalf("Quicklook rendering failed: %v", err)
	}
	writeOutput(outPath, png)
}

func writeOutput(outPath string, data []byte) {
	if outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", outPath, err)
	}
	log.Printf("Wrote %d bytes to %s", len(data), outPath)
}
