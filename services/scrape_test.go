package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gokul0616/scrapi/config"
	"github.com/Gokul0616/scrapi/models"
	"github.com/Gokul0616/scrapi/scraper"
	"github.com/Gokul0616/scrapi/services"
)

type fakeContext struct {
	closed bool
}

func (b *fakeContext) NewPage() (scraper.Page, error) { return nil, errors.New("no pages in tests") }
func (b *fakeContext) Close()                         { b.closed = true }

type fakeEngine struct {
	bc    *fakeContext
	err   error
	calls int
}

func (e *fakeEngine) CreateContext(bool) (scraper.BrowserContext, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.bc, nil
}

type fakeHarvester struct {
	byQuery map[string][]models.CandidateURL
	queries []string
}

func (h *fakeHarvester) Harvest(_ scraper.BrowserContext, query string, _ int, _ func(string)) []models.CandidateURL {
	h.queries = append(h.queries, query)
	return h.byQuery[query]
}

type fakeExtractor struct {
	mu   sync.Mutex
	fail map[models.CandidateURL]bool
	seen []models.CandidateURL
}

func (e *fakeExtractor) Extract(_ scraper.BrowserContext, cand models.CandidateURL, _ scraper.ExtractOptions) (*models.Listing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, cand)
	if e.fail[cand] {
		return nil, errors.New("render timeout")
	}
	return &models.Listing{Title: "Place " + string(cand), URL: string(cand)}, nil
}

func candidates(term string, n int) []models.CandidateURL {
	out := make([]models.CandidateURL, n)
	for i := range out {
		out[i] = models.CandidateURL(fmt.Sprintf("https://g/maps/place/%s-%d", term, i))
	}
	return out
}

func pipelineConfig() config.Config {
	cfg := config.Default()
	cfg.BatchPause = time.Millisecond
	return cfg
}

func newPipeline(engine *fakeEngine, h *fakeHarvester, x *fakeExtractor) (*services.Scraper, *services.ProgressBus) {
	bus := services.NewProgressBus(256)
	return services.NewScraper(engine, h, x, bus, pipelineConfig(), zap.NewNop()), bus
}

func drain(bus *services.ProgressBus) []string {
	bus.Close()
	var msgs []string
	for ev := range bus.Events() {
		msgs = append(msgs, ev.Message)
	}
	return msgs
}

func TestScrapeAllCandidatesSucceed(t *testing.T) {
	engine := &fakeEngine{bc: &fakeContext{}}
	harvester := &fakeHarvester{byQuery: map[string][]models.CandidateURL{
		"coffee shops austin": candidates("coffee", 10),
	}}
	extractor := &fakeExtractor{}
	pipeline, bus := newPipeline(engine, harvester, extractor)

	listings, err := pipeline.Scrape(context.Background(), models.SearchRequest{
		SearchTerms: []string{"coffee shops"},
		Location:    "austin",
		MaxResults:  10,
	})

	require.NoError(t, err)
	assert.Len(t, listings, 10)
	assert.Equal(t, []string{"coffee shops austin"}, harvester.queries)
	assert.True(t, engine.bc.closed)

	msgs := drain(bus)
	assert.Contains(t, msgs, "Searching: coffee shops austin")
	assert.Contains(t, msgs, `Found 10 places for "coffee shops"`)
	assert.Contains(t, msgs, "Complete! Extracted 10 places with verified contacts")
}

func TestScrapeDropsFailedCandidatesOnly(t *testing.T) {
	cands := candidates("coffee", 10)
	engine := &fakeEngine{bc: &fakeContext{}}
	harvester := &fakeHarvester{byQuery: map[string][]models.CandidateURL{"coffee shops": cands}}
	extractor := &fakeExtractor{fail: map[models.CandidateURL]bool{
		cands[2]: true,
		cands[7]: true,
	}}
	pipeline, bus := newPipeline(engine, harvester, extractor)

	listings, err := pipeline.Scrape(context.Background(), models.SearchRequest{
		SearchTerms: []string{"coffee shops"},
		MaxResults:  10,
	})

	require.NoError(t, err)
	assert.Len(t, listings, 8)
	for _, listing := range listings {
		assert.NotEqual(t, string(cands[2]), listing.URL)
		assert.NotEqual(t, string(cands[7]), listing.URL)
	}
	assert.Contains(t, drain(bus), "Complete! Extracted 8 places with verified contacts")
}

func TestScrapeProceedsOnHarvestShortfall(t *testing.T) {
	engine := &fakeEngine{bc: &fakeContext{}}
	harvester := &fakeHarvester{byQuery: map[string][]models.CandidateURL{
		"bakeries": candidates("bakery", 6),
	}}
	extractor := &fakeExtractor{}
	pipeline, bus := newPipeline(engine, harvester, extractor)

	listings, err := pipeline.Scrape(context.Background(), models.SearchRequest{
		SearchTerms: []string{"bakeries"},
		MaxResults:  10,
	})

	require.NoError(t, err)
	assert.Len(t, listings, 6)
	assert.Contains(t, drain(bus), `Found 6 places for "bakeries"`)
}

func TestScrapeTruncatesToMaxResultsPerTerm(t *testing.T) {
	engine := &fakeEngine{bc: &fakeContext{}}
	harvester := &fakeHarvester{byQuery: map[string][]models.CandidateURL{
		"coffee shops": candidates("coffee", 8),
	}}
	extractor := &fakeExtractor{}
	pipeline, _ := newPipeline(engine, harvester, extractor)

	listings, err := pipeline.Scrape(context.Background(), models.SearchRequest{
		SearchTerms: []string{"coffee shops"},
		MaxResults:  3,
	})

	require.NoError(t, err)
	assert.Len(t, listings, 3)
	assert.Len(t, extractor.seen, 3)
}

func TestScrapeNeverExtractsSameURLTwiceAcrossTerms(t *testing.T) {
	shared := candidates("shared", 4)
	engine := &fakeEngine{bc: &fakeContext{}}
	harvester := &fakeHarvester{byQuery: map[string][]models.CandidateURL{
		"coffee shops": shared,
		"cafes":        shared,
	}}
	extractor := &fakeExtractor{}
	pipeline, _ := newPipeline(engine, harvester, extractor)

	results, err := pipeline.Run(context.Background(), models.SearchRequest{
		SearchTerms: []string{"coffee shops", "cafes"},
		MaxResults:  10,
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0].Listings, 4)
	assert.Empty(t, results[1].Listings)

	urls := make(map[string]struct{})
	for _, r := range results {
		for _, listing := range r.Listings {
			_, dup := urls[listing.URL]
			assert.False(t, dup, listing.URL)
			urls[listing.URL] = struct{}{}
		}
	}
}

func TestRunKeepsPerTermGrouping(t *testing.T) {
	engine := &fakeEngine{bc: &fakeContext{}}
	harvester := &fakeHarvester{byQuery: map[string][]models.CandidateURL{
		"coffee shops": candidates("coffee", 2),
		"bakeries":     candidates("bakery", 3),
	}}
	extractor := &fakeExtractor{}
	pipeline, _ := newPipeline(engine, harvester, extractor)

	results, err := pipeline.Run(context.Background(), models.SearchRequest{
		SearchTerms: []string{"coffee shops", "bakeries"},
		MaxResults:  5,
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "coffee shops", results[0].Term)
	assert.Equal(t, 0, results[0].Index)
	assert.Len(t, results[0].Listings, 2)
	assert.Equal(t, "bakeries", results[1].Term)
	assert.Equal(t, 1, results[1].Index)
	assert.Len(t, results[1].Listings, 3)
}

func TestScrapeEngineFailureIsFatal(t *testing.T) {
	engine := &fakeEngine{err: errors.New("chrome not found")}
	pipeline, _ := newPipeline(engine, &fakeHarvester{}, &fakeExtractor{})

	listings, err := pipeline.Scrape(context.Background(), models.SearchRequest{
		SearchTerms: []string{"coffee shops"},
		MaxResults:  5,
	})

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "create browsing context"))
	assert.Empty(t, listings)
}

func TestScrapeValidatesRequest(t *testing.T) {
	engine := &fakeEngine{bc: &fakeContext{}}
	pipeline, _ := newPipeline(engine, &fakeHarvester{}, &fakeExtractor{})

	_, err := pipeline.Scrape(context.Background(), models.SearchRequest{MaxResults: 5})
	require.Error(t, err)

	_, err = pipeline.Scrape(context.Background(), models.SearchRequest{
		SearchTerms: []string{"coffee shops"},
	})
	require.Error(t, err)

	assert.Zero(t, engine.calls)
}

func TestScrapeStopsOnCancelledContext(t *testing.T) {
	engine := &fakeEngine{bc: &fakeContext{}}
	harvester := &fakeHarvester{byQuery: map[string][]models.CandidateURL{
		"coffee shops": candidates("coffee", 5),
	}}
	extractor := &fakeExtractor{}
	pipeline, _ := newPipeline(engine, harvester, extractor)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Scrape(ctx, models.SearchRequest{
		SearchTerms: []string{"coffee shops", "bakeries"},
		MaxResults:  5,
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, extractor.seen)
	assert.True(t, engine.bc.closed)
}
