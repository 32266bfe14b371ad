package scraper

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Gokul0616/scrapi/config"
	"github.com/Gokul0616/scrapi/models"
)

// ExtractOptions toggles the optional, slower sub-extractions.
type ExtractOptions struct {
	Reviews bool
	Images  bool
}

// DetailExtractor turns one candidate URL into a Listing. Navigation failure is
// the only unrecoverable outcome; every field read is independently optional.
type DetailExtractor struct {
	enricher   *ContactEnricher
	log        *zap.Logger
	navTimeout time.Duration
	settleWait time.Duration
	maxImages  int
	maxReviews int
}

// NewDetailExtractor builds an extractor with timing and caps from cfg.
func NewDetailExtractor(enricher *ContactEnricher, cfg config.Config, log *zap.Logger) *DetailExtractor {
	return &DetailExtractor{
		enricher:   enricher,
		log:        log,
		navTimeout: cfg.NavTimeout,
		settleWait: 2 * time.Second,
		maxImages:  cfg.MaxImages,
		maxReviews: cfg.MaxReviews,
	}
}

// Extract opens the candidate's detail page in a fresh tab, reads every field,
// and closes the tab on all paths. A navigation failure returns an error so the
// caller can drop the item without aborting its batch.
func (d *DetailExtractor) Extract(bc BrowserContext, cand models.CandidateURL, opts ExtractOptions) (*models.Listing, error) {
	page, err := bc.NewPage()
	if err != nil {
		return nil, fmt.Errorf("open detail page: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(string(cand), d.navTimeout); err != nil {
		d.log.Warn("detail navigation failed", zap.String("url", string(cand)), zap.Error(err))
		return nil, err
	}
	time.Sleep(d.settleWait)

	listing := d.ExtractFields(NewPageReader(page), cand, opts)
	d.log.Info("extracted listing",
		zap.String("title", listing.Title),
		zap.Bool("phone", listing.Phone != nil),
		zap.Bool("email", listing.Email != nil),
	)
	return listing, nil
}

// ExtractFields runs the field rules against an already-open page reader.
// Split out from Extract so the rules are testable with a fake reader.
func (d *DetailExtractor) ExtractFields(r PageReader, cand models.CandidateURL, opts ExtractOptions) *models.Listing {
	listing := &models.Listing{
		URL:     string(cand),
		PlaceID: ExtractPlaceID(string(cand)),
	}

	if title, ok := r.ReadText(FieldTitle); ok {
		listing.Title = title
	}
	if category, ok := r.ReadText(FieldCategory); ok {
		listing.Category = &category
	}
	if label, ok := r.ReadLabel(FieldRating); ok {
		listing.Rating = parseRating(label)
	}
	if label, ok := r.ReadLabel(FieldReviews); ok {
		listing.ReviewsCount = parseReviewsCount(label)
	}

	if address, ok := r.ReadText(FieldAddress); ok {
		listing.Address = &address
		listing.City, listing.State = splitAddress(address)
	}

	if label, ok := r.ReadLabel(FieldPhone); ok {
		if phone := cleanPhoneLabel(label); phone != "" {
			// Platform-sourced phone numbers are treated as pre-verified.
			listing.Phone = &phone
			listing.PhoneVerified = true
		}
	}

	var website string
	if href, ok := r.ReadHref(FieldWebsite); ok {
		website = href
		listing.Website = &website
		if email, found := d.enricher.FindBusinessEmail(website); found {
			// The address comes from the business's own site.
			listing.Email = &email
			listing.EmailVerified = true
		}
	}

	if content, err := r.Content(); err == nil {
		if links := d.enricher.FindSocialLinks(content, website); len(links) > 0 {
			listing.SocialMedia = links
		}
	} else {
		d.log.Debug("page content unavailable", zap.String("url", string(cand)), zap.Error(err))
	}

	if hours, ok := r.ReadLabel(FieldHours); ok {
		listing.OpeningHours = &hours
	}
	if price, ok := r.ReadText(FieldPrice); ok {
		listing.PriceLevel = &price
	}

	if opts.Images {
		images, err := r.CollectImages(d.maxImages)
		if err != nil {
			d.log.Debug("image collection failed", zap.String("url", string(cand)), zap.Error(err))
		} else if len(images) > 0 {
			listing.Images = images
		}
	}

	if opts.Reviews {
		snapshots, err := r.CollectReviews(d.maxReviews)
		if err != nil {
			d.log.Debug("review collection failed", zap.String("url", string(cand)), zap.Error(err))
		} else if reviews := parseReviews(snapshots); len(reviews) > 0 {
			listing.Reviews = reviews
		}
	}

	listing.TotalScore = totalScore(listing.Rating, listing.ReviewsCount)
	return listing
}

var (
	decimalPattern    = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
	integerPattern    = regexp.MustCompile(`[0-9][0-9,]*`)
	reviewStarPattern = regexp.MustCompile(`[0-9]`)
)

// parseRating pulls the first decimal number out of an accessible label like
// "4.5 stars".
func parseRating(label string) *float64 {
	m := decimalPattern.FindString(label)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseReviewsCount pulls the first integer out of a label like
// "1,234 reviews", dropping thousand separators.
func parseReviewsCount(label string) *int {
	m := integerPattern.FindString(label)
	if m == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return nil
	}
	return &v
}

// splitAddress derives city and state from a comma-separated address. Fewer
// than 3 segments means no guess at all.
func splitAddress(address string) (city *string, state *string) {
	parts := strings.Split(address, ",")
	if len(parts) < 3 {
		return nil, nil
	}

	city = models.StrPtr(strings.TrimSpace(parts[len(parts)-2]))
	if fields := strings.Fields(strings.TrimSpace(parts[len(parts)-1])); len(fields) > 0 {
		state = &fields[0]
	}
	return city, state
}

// cleanPhoneLabel strips the platform's prefix phrases from a phone label.
func cleanPhoneLabel(label string) string {
	phone := strings.ReplaceAll(label, "Phone: ", "")
	phone = strings.ReplaceAll(phone, "Call phone number", "")
	return strings.TrimSpace(phone)
}

// totalScore is rating * log10(reviews+1), rounded to 2 decimals, and only
// defined when both inputs are present.
func totalScore(rating *float64, reviews *int) *float64 {
	if rating == nil || reviews == nil {
		return nil
	}
	score := math.Round(*rating*math.Log10(float64(*reviews)+1)*100) / 100
	return &score
}

// parseReviews converts raw entries into Reviews, keeping partially parsed
// entries with whatever subfields were recovered and dropping empty ones.
func parseReviews(snapshots []ReviewSnapshot) []models.Review {
	reviews := make([]models.Review, 0, len(snapshots))
	for _, s := range snapshots {
		review := models.Review{
			ReviewerName: models.StrPtr(strings.TrimSpace(s.Name)),
			Text:         models.StrPtr(strings.TrimSpace(s.Text)),
			Date:         models.StrPtr(strings.TrimSpace(s.Date)),
		}
		if m := reviewStarPattern.FindString(s.RatingLabel); m != "" {
			if v, err := strconv.Atoi(m); err == nil {
				review.Rating = &v
			}
		}
		if review.ReviewerName != nil || review.Rating != nil || review.Text != nil || review.Date != nil {
			reviews = append(reviews, review)
		}
	}
	return reviews
}
