package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing holds all extracted data for a single business.
// Pointer fields distinguish "not present on the page" from a zero value;
// only Title and URL are always populated.
type Listing struct {
	Title         string            `json:"title"`
	Category      *string           `json:"category,omitempty"`
	Rating        *float64          `json:"rating,omitempty"`
	ReviewsCount  *int              `json:"reviewsCount,omitempty"`
	Address       *string           `json:"address,omitempty"`
	City          *string           `json:"city,omitempty"`
	State         *string           `json:"state,omitempty"`
	Phone         *string           `json:"phone,omitempty"`
	PhoneVerified bool              `json:"phoneVerified"`
	Email         *string           `json:"email,omitempty"`
	EmailVerified bool              `json:"emailVerified"`
	Website       *string           `json:"website,omitempty"`
	SocialMedia   map[string]string `json:"socialMedia,omitempty"`
	OpeningHours  *string           `json:"openingHours,omitempty"`
	PriceLevel    *string           `json:"priceLevel,omitempty"`
	Images        []string          `json:"images,omitempty"`
	Reviews       []Review          `json:"reviews,omitempty"`
	TotalScore    *float64          `json:"totalScore,omitempty"`
	URL           string            `json:"url"`
	PlaceID       *string           `json:"placeId,omitempty"`
}

// Review is a single customer review read off a listing page. Entries that
// only partially parse keep whatever subfields were recovered.
type Review struct {
	ReviewerName *string `json:"reviewerName,omitempty"`
	Rating       *int    `json:"rating,omitempty"`
	Text         *string `json:"text,omitempty"`
	Date         *string `json:"date,omitempty"`
}

// CandidateURL is a detail-page locator discovered during harvesting.
// The raw string is the deduplication key.
type CandidateURL string

// SearchRequest is the immutable input for one scrape invocation.
type SearchRequest struct {
	SearchTerms    []string `json:"search_terms"`
	Location       string   `json:"location"`
	MaxResults     int      `json:"max_results"`
	ExtractReviews bool     `json:"extract_reviews"`
	ExtractImages  bool     `json:"extract_images"`
}

// TermResult is the outcome of processing one search term.
type TermResult struct {
	Term     string
	Index    int // original position in the search-terms slice, preserves output order
	Listings []Listing
	Err      error
}

// ProgressEvent is one human-readable progress notification.
type ProgressEvent struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// ScrapeRun identifies one persisted scrape invocation.
type ScrapeRun struct {
	ID           uuid.UUID     `json:"id"`
	Request      SearchRequest `json:"request"`
	Status       string        `json:"status"`
	TotalResults int           `json:"total_results"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// Run statuses stored by the run store.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// StrPtr returns a pointer to s, or nil when s is empty. Handy for building
// optional Listing fields from raw page reads.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
