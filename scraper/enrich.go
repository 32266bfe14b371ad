package scraper

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// maxFetchBytes limits website responses read by the enricher.
const maxFetchBytes = 10 * 1024 * 1024 // 10 MB

// emailDenylist marks addresses that are placeholders or auto-reply boxes
// rather than real business contacts.
var emailDenylist = []string{
	"example.com",
	"test.com",
	"domain.com",
	"email.com",
	"noreply",
	"no-reply",
	"donotreply",
	"privacy@",
	"legal@",
}

// ContactEnricher mines a business website for a verified contact email and
// fills social-profile links from listing-page content and the website.
// Website fetches carry their own short timeout so a slow third-party site
// never stalls a detail extraction.
type ContactEnricher struct {
	client *http.Client
	log    *zap.Logger
}

// NewContactEnricher builds an enricher whose fetches time out after timeout.
func NewContactEnricher(timeout time.Duration, log *zap.Logger) *ContactEnricher {
	return &ContactEnricher{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// FindBusinessEmail fetches the website and returns a likely business contact
// address, lower-cased. mailto: links win over page-text matches. The bool is
// false when nothing acceptable was found; fetch failures are swallowed.
func (e *ContactEnricher) FindBusinessEmail(websiteURL string) (string, bool) {
	body, err := e.fetch(websiteURL)
	if err != nil {
		e.log.Debug("email fetch failed", zap.String("website", websiteURL), zap.Error(err))
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		e.log.Debug("email page parse failed", zap.String("website", websiteURL), zap.Error(err))
		return "", false
	}

	var found string
	doc.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.Index(addr, "?"); i >= 0 {
			addr = addr[:i]
		}
		if EmailPattern.MatchString(addr) && IsBusinessEmail(addr) {
			found = addr
			return false
		}
		return true
	})
	if found != "" {
		return strings.ToLower(found), true
	}

	for _, addr := range FindEmails(doc.Text()) {
		if IsBusinessEmail(addr) {
			return strings.ToLower(addr), true
		}
	}
	return "", false
}

// IsBusinessEmail reports whether the address looks like a real contact rather
// than a placeholder or auto-reply box.
func IsBusinessEmail(email string) bool {
	lower := strings.ToLower(email)
	for _, banned := range emailDenylist {
		if strings.Contains(lower, banned) {
			return false
		}
	}
	return true
}

// FindSocialLinks scans the listing-page content with every platform matcher,
// then, when fewer than 3 platforms were found and a website exists, fills only
// the still-missing platforms from the website. Listing-page matches are never
// overwritten and website fetch failures never abort the extraction.
func (e *ContactEnricher) FindSocialLinks(pageContent, websiteURL string) map[string]string {
	links := make(map[string]string)

	for platform, pattern := range SocialPatterns {
		if m := pattern.FindString(pageContent); m != "" {
			links[platform] = NormalizeSocialURL(m)
		}
	}

	if len(links) >= 3 || websiteURL == "" {
		return links
	}

	body, err := e.fetch(websiteURL)
	if err != nil {
		e.log.Debug("social fetch failed", zap.String("website", websiteURL), zap.Error(err))
		return links
	}

	html := string(body)
	for platform, pattern := range SocialPatterns {
		if _, exists := links[platform]; exists {
			continue
		}
		if m := pattern.FindString(html); m != "" {
			links[platform] = NormalizeSocialURL(m)
		}
	}
	return links
}

func (e *ContactEnricher) fetch(url string) ([]byte, error) {
	resp, err := e.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
