package scraper

import (
	"regexp"
	"strings"
)

// Compiled matchers, fixed at process start. All are safe for concurrent use.
var (
	// EmailPattern matches a standard local@domain.tld shape.
	EmailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// PhonePattern is a loose international-leaning shape used only for
	// scanning website content; the platform's own phone field never goes
	// through it.
	PhonePattern = regexp.MustCompile(`[\+\(]?[1-9][0-9 .\-\(\)]{8,}[0-9]`)

	// placeIDPattern pulls the place token out of a detail-page URL.
	placeIDPattern = regexp.MustCompile(`!1s([^!]+)`)
)

// SocialPatterns maps each known platform to its URL matcher. Matchers accept
// bare-domain and full-URL forms, case-insensitively.
var SocialPatterns = map[string]*regexp.Regexp{
	"facebook":  regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:facebook|fb)\.com/[\w\-.]+`),
	"instagram": regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?instagram\.com/[\w\-.]+`),
	"twitter":   regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:twitter|x)\.com/[\w\-]+`),
	"linkedin":  regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/(?:company|in)/[\w\-]+`),
	"youtube":   regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtube\.com/(?:channel|c|user)/[\w\-]+`),
	"tiktok":    regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?tiktok\.com/@[\w\-.]+`),
}

// FindEmails returns every email-shaped match in text, in order.
func FindEmails(text string) []string {
	return EmailPattern.FindAllString(text, -1)
}

// FindPhones returns every phone-shaped match in text, in order.
func FindPhones(text string) []string {
	return PhonePattern.FindAllString(text, -1)
}

// MatchSocial returns the first match for the given platform in text,
// or "" when the platform is unknown or nothing matches.
func MatchSocial(platform, text string) string {
	pattern, ok := SocialPatterns[platform]
	if !ok {
		return ""
	}
	return pattern.FindString(text)
}

// NormalizeSocialURL makes a matched social link absolute by prefixing
// https:// when the scheme is missing.
func NormalizeSocialURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

// ExtractPlaceID derives the place identifier embedded in a detail-page URL.
// Returns nil when the URL carries no place token.
func ExtractPlaceID(url string) *string {
	m := placeIDPattern.FindStringSubmatch(url)
	if m == nil {
		return nil
	}
	return &m[1]
}
