package scraper

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Gokul0616/scrapi/config"
	"github.com/Gokul0616/scrapi/models"
)

// SearchHarvester turns a search query into a deduplicated, quota-bounded set
// of candidate detail-page URLs via scroll-and-retry.
type SearchHarvester struct {
	log         *zap.Logger
	baseURL     string
	navTimeout  time.Duration
	renderWait  time.Duration
	scrollPause time.Duration
	retryPause  time.Duration
	maxScrolls  int
	maxAttempts int
}

// NewSearchHarvester builds a harvester with limits and timing from cfg.
func NewSearchHarvester(cfg config.Config, log *zap.Logger) *SearchHarvester {
	return &SearchHarvester{
		log:         log,
		baseURL:     cfg.BaseURL,
		navTimeout:  cfg.NavTimeout,
		renderWait:  cfg.RenderWait,
		scrollPause: cfg.ScrollPause,
		retryPause:  cfg.RetryPause,
		maxScrolls:  cfg.MaxScrolls,
		maxAttempts: cfg.HarvestAttempts,
	}
}

// Harvest collects up to maxResults unique candidate URLs for the query,
// retrying from a fresh page when an attempt falls short of quota. Retries only
// ever add URLs, so the result grows monotonically across attempts. A shortfall
// after all attempts is reported through notify, not as an error.
func (h *SearchHarvester) Harvest(bc BrowserContext, query string, maxResults int, notify func(string)) []models.CandidateURL {
	seen := make(map[string]struct{})
	var found []models.CandidateURL

	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		if attempt > 1 {
			if notify != nil {
				notify(fmt.Sprintf("Retry %d/%d - found %d/%d", attempt-1, h.maxAttempts-1, len(found), maxResults))
			}
			time.Sleep(h.retryPause)
		}

		found = h.collect(bc, query, maxResults, seen, found)
		if len(found) >= maxResults {
			break
		}
	}

	h.log.Info("harvest finished",
		zap.String("query", query),
		zap.Int("found", len(found)),
		zap.Int("quota", maxResults),
	)
	return found
}

// collect runs one search-page session: navigate, then scroll the results
// panel until quota, height convergence, or the iteration cap.
func (h *SearchHarvester) collect(bc BrowserContext, query string, maxResults int, seen map[string]struct{}, found []models.CandidateURL) []models.CandidateURL {
	page, err := bc.NewPage()
	if err != nil {
		h.log.Warn("open search page failed", zap.String("query", query), zap.Error(err))
		return found
	}
	defer page.Close()

	searchURL := h.baseURL + "/search/" + strings.ReplaceAll(query, " ", "+")
	if err := page.Navigate(searchURL, h.navTimeout); err != nil {
		h.log.Warn("search navigation failed", zap.String("url", searchURL), zap.Error(err))
		return found
	}
	time.Sleep(h.renderWait)

	for i := 0; i < h.maxScrolls; i++ {
		var links []string
		if err := page.Evaluate(collectPlaceLinksJS, &links); err != nil {
			h.log.Debug("read place links failed", zap.Error(err))
			break
		}

		for _, link := range links {
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			found = append(found, models.CandidateURL(link))
			if len(found) >= maxResults {
				return found
			}
		}

		var prevHeight int
		if err := page.Evaluate(feedHeightJS, &prevHeight); err != nil {
			break
		}
		var scrolled bool
		if err := page.Evaluate(scrollFeedJS, &scrolled); err != nil {
			break
		}
		time.Sleep(h.scrollPause)

		var newHeight int
		if err := page.Evaluate(feedHeightJS, &newHeight); err != nil {
			break
		}
		if newHeight == prevHeight {
			// Feed stopped growing: every result is rendered.
			h.log.Debug("feed exhausted", zap.String("query", query), zap.Int("found", len(found)))
			break
		}
	}
	return found
}
