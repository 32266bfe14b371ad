package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Gokul0616/scrapi/config"
	"github.com/Gokul0616/scrapi/models"
	"github.com/Gokul0616/scrapi/scraper"
	"github.com/Gokul0616/scrapi/services"
	"github.com/Gokul0616/scrapi/storage"
	"github.com/Gokul0616/scrapi/utils"
)

func main() {
	termsFlag := flag.String("terms", "",
		"Comma-separated search terms (required)")
	location := flag.String("location", "",
		"Location appended to every search term")
	maxResults := flag.Int("max", 20,
		"Maximum listings per search term")
	withReviews := flag.Bool("reviews", false,
		"Extract up to 10 reviews per listing")
	withImages := flag.Bool("images", false,
		"Extract up to 10 image URLs per listing")
	headless := flag.Bool("headless", true,
		"Run Chrome headless (false = visible window)")
	proxyURL := flag.String("proxy", "",
		"Proxy server URL for the browser")
	outFile := flag.String("out", "",
		"Output JSON filename (default from config)")
	configPath := flag.String("config", "",
		"Optional YAML config file")
	saveDB := flag.Bool("save-db", false,
		"Persist the run and its listings to PostgreSQL")
	debug := flag.Bool("debug", false,
		"Verbose logging")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("✗ Failed to load config: %v", err)
	}
	cfg.Headless = *headless
	if *proxyURL != "" {
		cfg.ProxyURL = *proxyURL
	}
	if *outFile != "" {
		cfg.OutFile = *outFile
	}

	terms := splitTrim(*termsFlag, ",")
	if len(terms) == 0 {
		log.Fatalf("✗ -terms is required (e.g. -terms \"coffee shops,bakeries\")")
	}

	logger, err := newLogger(*debug)
	if err != nil {
		log.Fatalf("✗ Failed to build logger: %v", err)
	}
	defer logger.Sync()

	req := models.SearchRequest{
		SearchTerms:    terms,
		Location:       *location,
		MaxResults:     *maxResults,
		ExtractReviews: *withReviews,
		ExtractImages:  *withImages,
	}

	log.Printf("╔═══════════════════════════════════════════════════╗")
	log.Printf("║        Business Listing Harvester & Enricher      ║")
	log.Printf("╚═══════════════════════════════════════════════════╝")
	log.Printf("Terms    : %s", strings.Join(terms, ", "))
	log.Printf("Location : %s", orDash(*location))
	log.Printf("Max      : %d per term", *maxResults)
	log.Printf("Reviews  : %v  Images: %v", *withReviews, *withImages)
	log.Printf("Output   : %s", cfg.OutFile)
	if *saveDB {
		log.Printf("Postgres : %s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	}

	rootCtx, cancelRoot := context.WithTimeout(context.Background(), 90*time.Minute)
	defer cancelRoot()

	engine := scraper.NewChromeEngine(rootCtx, cfg)
	enricher := scraper.NewContactEnricher(cfg.FetchTimeout, logger)
	extractor := scraper.NewDetailExtractor(enricher, cfg, logger)
	harvester := scraper.NewSearchHarvester(cfg, logger)
	bus := services.NewProgressBus(services.DefaultProgressCapacity)
	pipeline := services.NewScraper(engine, harvester, extractor, bus, cfg, logger)

	var store *storage.PostgresStore
	var runID uuid.UUID
	if *saveDB {
		store, err = storage.NewPostgresStore(cfg)
		if err != nil {
			log.Fatalf("✗ Failed to connect to PostgreSQL: %v", err)
		}
		defer store.Close()

		runID, err = store.CreateRun(rootCtx, req)
		if err != nil {
			log.Fatalf("✗ Failed to create scrape run: %v", err)
		}
	}

	// Drain progress asynchronously so a slow consumer never stalls the pipeline.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range bus.Events() {
			log.Printf("  %s", ev.Message)
			if store != nil {
				dbCtx, dbCancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := store.AppendProgress(dbCtx, runID, ev.Message); err != nil {
					logger.Warn("progress not persisted", zap.Error(err))
				}
				dbCancel()
			}
		}
	}()

	results, scrapeErr := pipeline.Run(rootCtx, req)
	bus.Close()
	<-drained

	if scrapeErr != nil {
		if store != nil {
			finishRun(store, runID, models.RunStatusFailed, results)
		}
		log.Fatalf("✗ Scrape failed: %v", scrapeErr)
	}

	total, err := utils.WriteJSON(cfg.OutFile, results)
	if err != nil {
		log.Fatalf("✗ Failed to write JSON: %v", err)
	}

	if store != nil {
		all := flatten(results)
		dbCtx, dbCancel := context.WithTimeout(context.Background(), 30*time.Second)
		saved, err := store.SaveListings(dbCtx, runID, all)
		dbCancel()
		if err != nil {
			log.Fatalf("✗ Failed to store listings in PostgreSQL: %v", err)
		}
		finishRun(store, runID, models.RunStatusCompleted, results)
		log.Printf("  DB   — %d listings upserted → listings table", saved)
	}

	stats := utils.BuildSummaryStats(results)
	log.Printf("═══════════════════════════════════════════════════")
	log.Printf("  DONE — %d total listings → %s", total, cfg.OutFile)
	for _, r := range results {
		status := len(r.Listings)
		if r.Err != nil {
			log.Printf("    %-20s ERROR: %v", r.Term+":", r.Err)
			continue
		}
		log.Printf("    %-20s %d listings", r.Term+":", status)
	}
	log.Printf("  STATS")
	log.Printf("    With Phone   : %d/%d", stats.WithPhone, stats.TotalListings)
	log.Printf("    With Email   : %d/%d", stats.WithEmail, stats.TotalListings)
	log.Printf("    With Website : %d/%d", stats.WithWebsite, stats.TotalListings)
	log.Printf("    With Social  : %d/%d", stats.WithSocialMedia, stats.TotalListings)
	log.Printf("    Avg Rating   : %.2f", stats.AverageRating)
	log.Printf("    Top %d by score", len(stats.TopScored))
	for i, listing := range stats.TopScored {
		log.Printf("      %d) %.2f | %s", i+1, *listing.TotalScore, truncate(listing.Title, 45))
	}
	log.Printf("═══════════════════════════════════════════════════")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func finishRun(store *storage.PostgresStore, runID uuid.UUID, status string, results []models.TermResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.FinishRun(ctx, runID, status, len(flatten(results))); err != nil {
		log.Printf("⚠ Failed to finish run: %v", err)
	}
}

func flatten(results []models.TermResult) []models.Listing {
	all := make([]models.Listing, 0)
	for _, r := range results {
		all = append(all, r.Listings...)
	}
	return all
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
