package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Gokul0616/scrapi/config"
	"github.com/Gokul0616/scrapi/models"
	"github.com/Gokul0616/scrapi/scraper"
)

// Harvester discovers candidate URLs for one search query.
type Harvester interface {
	Harvest(bc scraper.BrowserContext, query string, maxResults int, notify func(string)) []models.CandidateURL
}

// Extractor turns one candidate URL into a Listing.
type Extractor interface {
	Extract(bc scraper.BrowserContext, cand models.CandidateURL, opts scraper.ExtractOptions) (*models.Listing, error)
}

// Scraper drives search terms through the harvester and batches the resulting
// URLs through the extractor with bounded parallelism.
type Scraper struct {
	engine    scraper.Engine
	harvester Harvester
	extractor Extractor
	progress  *ProgressBus
	log       *zap.Logger
	batchSize int
	limiter   *rate.Limiter
	useProxy  bool
}

// NewScraper wires the pipeline together. The limiter paces batches so the
// target site is never hammered back-to-back.
func NewScraper(engine scraper.Engine, harvester Harvester, extractor Extractor, progress *ProgressBus, cfg config.Config, log *zap.Logger) *Scraper {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Scraper{
		engine:    engine,
		harvester: harvester,
		extractor: extractor,
		progress:  progress,
		log:       log,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(cfg.BatchPause), 1),
		useProxy:  cfg.ProxyURL != "",
	}
}

// Scrape processes every search term in order and returns the aggregated
// listings. One browsing context serves the whole invocation and is released
// on every path. A failing term is reported and skipped; only a context that
// cannot be created is fatal.
func (s *Scraper) Scrape(ctx context.Context, req models.SearchRequest) ([]models.Listing, error) {
	results, err := s.Run(ctx, req)
	var all []models.Listing
	for _, r := range results {
		all = append(all, r.Listings...)
	}
	return all, err
}

// Run is Scrape with per-term grouping preserved, for callers that export or
// report per term.
func (s *Scraper) Run(ctx context.Context, req models.SearchRequest) ([]models.TermResult, error) {
	if len(req.SearchTerms) == 0 {
		return nil, errors.New("at least one search term is required")
	}
	if req.MaxResults <= 0 {
		return nil, errors.New("max results must be positive")
	}

	bc, err := s.engine.CreateContext(s.useProxy)
	if err != nil {
		return nil, fmt.Errorf("create browsing context: %w", err)
	}
	defer bc.Close()

	seen := make(map[string]struct{})
	results := make([]models.TermResult, 0, len(req.SearchTerms))
	total := 0

	for i, term := range req.SearchTerms {
		listings, termErr := s.processTerm(ctx, bc, term, req, seen)
		results = append(results, models.TermResult{Term: term, Index: i, Listings: listings, Err: termErr})
		total += len(listings)

		if termErr != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			s.log.Error("term processing failed", zap.String("term", term), zap.Error(termErr))
			s.progress.Publish(fmt.Sprintf("Term %q failed: %v", term, termErr))
		}
	}

	s.progress.Publish(fmt.Sprintf("Complete! Extracted %d places with verified contacts", total))
	return results, nil
}

// processTerm harvests one term and extracts its candidates in fixed-size
// concurrent batches. Candidates already extracted for an earlier term are
// skipped so no two listings in one invocation share a URL.
func (s *Scraper) processTerm(ctx context.Context, bc scraper.BrowserContext, term string, req models.SearchRequest, seen map[string]struct{}) ([]models.Listing, error) {
	query := term
	if req.Location != "" {
		query = term + " " + req.Location
	}
	s.progress.Publish(fmt.Sprintf("Searching: %s", query))

	candidates := s.harvester.Harvest(bc, query, req.MaxResults, s.progress.Publish)
	s.progress.Publish(fmt.Sprintf("Found %d places for %q", len(candidates), term))

	fresh := make([]models.CandidateURL, 0, len(candidates))
	for _, cand := range candidates {
		if _, dup := seen[string(cand)]; dup {
			continue
		}
		fresh = append(fresh, cand)
	}
	if len(fresh) > req.MaxResults {
		fresh = fresh[:req.MaxResults]
	}
	for _, cand := range fresh {
		seen[string(cand)] = struct{}{}
	}

	opts := scraper.ExtractOptions{Reviews: req.ExtractReviews, Images: req.ExtractImages}

	var listings []models.Listing
	for start := 0; start < len(fresh); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return listings, err
		}
		if start > 0 {
			if err := s.limiter.Wait(ctx); err != nil {
				return listings, err
			}
		}

		end := min(start+s.batchSize, len(fresh))
		listings = append(listings, s.extractBatch(bc, fresh[start:end], opts)...)
		s.progress.Publish(fmt.Sprintf("Extracting details: %d/%d", end, len(fresh)))
	}
	return listings, nil
}

// extractBatch fans the batch out concurrently and keeps whichever extractions
// succeeded. One bad URL never aborts its batch.
func (s *Scraper) extractBatch(bc scraper.BrowserContext, batch []models.CandidateURL, opts scraper.ExtractOptions) []models.Listing {
	results := make(chan *models.Listing, len(batch))
	var wg sync.WaitGroup

	for _, cand := range batch {
		wg.Add(1)
		go func(c models.CandidateURL) {
			defer wg.Done()
			listing, err := s.extractor.Extract(bc, c, opts)
			if err != nil {
				s.log.Warn("candidate dropped", zap.String("url", string(c)), zap.Error(err))
				return
			}
			results <- listing
		}(cand)
	}

	wg.Wait()
	close(results)

	out := make([]models.Listing, 0, len(batch))
	for listing := range results {
		out = append(out, *listing)
	}
	return out
}
