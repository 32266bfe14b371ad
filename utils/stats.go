package utils

import (
	"sort"
	"strings"

	"github.com/Gokul0616/scrapi/models"
)

type TermCount struct {
	Term  string
	Count int
}

// SummaryStats aggregates one scrape invocation for the end-of-run banner.
type SummaryStats struct {
	TotalListings   int
	WithPhone       int
	WithEmail       int
	WithWebsite     int
	WithSocialMedia int
	AverageRating   float64
	TopScored       []models.Listing
	ListingsPerTerm []TermCount
}

// BuildSummaryStats computes contact coverage and ranking stats over all
// successful term results.
func BuildSummaryStats(results []models.TermResult) SummaryStats {
	all := make([]models.Listing, 0)
	termCounts := make(map[string]int)

	for _, result := range results {
		if result.Err != nil {
			continue
		}
		term := strings.TrimSpace(result.Term)
		if term == "" {
			term = "Unknown"
		}
		for _, listing := range result.Listings {
			all = append(all, listing)
			termCounts[term]++
		}
	}

	stats := SummaryStats{TotalListings: len(all)}
	if len(all) == 0 {
		return stats
	}

	var ratingSum float64
	var rated int
	for _, listing := range all {
		if listing.Phone != nil {
			stats.WithPhone++
		}
		if listing.Email != nil {
			stats.WithEmail++
		}
		if listing.Website != nil {
			stats.WithWebsite++
		}
		if len(listing.SocialMedia) > 0 {
			stats.WithSocialMedia++
		}
		if listing.Rating != nil {
			ratingSum += *listing.Rating
			rated++
		}
	}
	if rated > 0 {
		stats.AverageRating = ratingSum / float64(rated)
	}

	perTerm := make([]TermCount, 0, len(termCounts))
	for term, count := range termCounts {
		perTerm = append(perTerm, TermCount{Term: term, Count: count})
	}
	sort.Slice(perTerm, func(i, j int) bool {
		if perTerm[i].Count == perTerm[j].Count {
			return perTerm[i].Term < perTerm[j].Term
		}
		return perTerm[i].Count > perTerm[j].Count
	})
	stats.ListingsPerTerm = perTerm

	scored := make([]models.Listing, 0, len(all))
	for _, listing := range all {
		if listing.TotalScore != nil {
			scored = append(scored, listing)
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if *scored[i].TotalScore == *scored[j].TotalScore {
			return scored[i].Title < scored[j].Title
		}
		return *scored[i].TotalScore > *scored[j].TotalScore
	})
	if len(scored) > 5 {
		scored = scored[:5]
	}
	stats.TopScored = scored

	return stats
}
