package scraper_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gokul0616/scrapi/config"
	"github.com/Gokul0616/scrapi/models"
	"github.com/Gokul0616/scrapi/scraper"
)

// fakeReader feeds the extraction rules without a browser.
type fakeReader struct {
	texts   map[scraper.Field]string
	labels  map[scraper.Field]string
	hrefs   map[scraper.Field]string
	content string
	images  []string
	reviews []scraper.ReviewSnapshot
}

func (r *fakeReader) ReadText(f scraper.Field) (string, bool) {
	v, ok := r.texts[f]
	return v, ok && v != ""
}

func (r *fakeReader) ReadLabel(f scraper.Field) (string, bool) {
	v, ok := r.labels[f]
	return v, ok && v != ""
}

func (r *fakeReader) ReadHref(f scraper.Field) (string, bool) {
	v, ok := r.hrefs[f]
	return v, ok && v != ""
}

func (r *fakeReader) Content() (string, error) { return r.content, nil }

func (r *fakeReader) CollectImages(max int) ([]string, error) {
	if len(r.images) > max {
		return r.images[:max], nil
	}
	return r.images, nil
}

func (r *fakeReader) CollectReviews(max int) ([]scraper.ReviewSnapshot, error) {
	if len(r.reviews) > max {
		return r.reviews[:max], nil
	}
	return r.reviews, nil
}

func newExtractor(t *testing.T) *scraper.DetailExtractor {
	t.Helper()
	cfg := config.Default()
	enricher := scraper.NewContactEnricher(2*time.Second, zap.NewNop())
	return scraper.NewDetailExtractor(enricher, cfg, zap.NewNop())
}

const candidate = models.CandidateURL("https://www.google.com/maps/place/Acme+Cafe/data=!1s0xabc:0xdef!8m2")

func TestExtractFieldsTotalScore(t *testing.T) {
	r := &fakeReader{
		texts: map[scraper.Field]string{scraper.FieldTitle: "Acme Cafe"},
		labels: map[scraper.Field]string{
			scraper.FieldRating:  "4.5 stars",
			scraper.FieldReviews: "99 reviews",
		},
	}

	listing := newExtractor(t).ExtractFields(r, candidate, scraper.ExtractOptions{})

	require.NotNil(t, listing.Rating)
	require.NotNil(t, listing.ReviewsCount)
	assert.Equal(t, 4.5, *listing.Rating)
	assert.Equal(t, 99, *listing.ReviewsCount)
	require.NotNil(t, listing.TotalScore)
	assert.InDelta(t, 9.0, *listing.TotalScore, 1e-9)
}

func TestExtractFieldsTotalScoreAbsentWithoutBothInputs(t *testing.T) {
	r := &fakeReader{
		texts:  map[scraper.Field]string{scraper.FieldTitle: "Acme Cafe"},
		labels: map[scraper.Field]string{scraper.FieldRating: "4.5 stars"},
	}

	listing := newExtractor(t).ExtractFields(r, candidate, scraper.ExtractOptions{})

	assert.NotNil(t, listing.Rating)
	assert.Nil(t, listing.ReviewsCount)
	assert.Nil(t, listing.TotalScore)
}

func TestExtractFieldsReviewsCountThousandSeparator(t *testing.T) {
	r := &fakeReader{
		labels: map[scraper.Field]string{scraper.FieldReviews: "1,234 reviews"},
	}

	listing := newExtractor(t).ExtractFields(r, candidate, scraper.ExtractOptions{})

	require.NotNil(t, listing.ReviewsCount)
	assert.Equal(t, 1234, *listing.ReviewsCount)
}

func TestExtractFieldsAddressSplit(t *testing.T) {
	r := &fakeReader{
		texts: map[scraper.Field]string{
			scraper.FieldAddress: "123 Main St, Springfield, IL 62704",
		},
	}

	listing := newExtractor(t).ExtractFields(r, candidate, scraper.ExtractOptions{})

	require.NotNil(t, listing.Address)
	require.NotNil(t, listing.City)
	require.NotNil(t, listing.State)
	assert.Equal(t, "Springfield", *listing.City)
	assert.Equal(t, "IL", *listing.State)
}

func TestExtractFieldsShortAddressNoGuess(t *testing.T) {
	r := &fakeReader{
		texts: map[scraper.Field]string{scraper.FieldAddress: "123 Main St"},
	}

	listing := newExtractor(t).ExtractFields(r, candidate, scraper.ExtractOptions{})

	require.NotNil(t, listing.Address)
	assert.Nil(t, listing.City)
	assert.Nil(t, listing.State)
}

func TestExtractFieldsPhoneVerified(t *testing.T) {
	r := &fakeReader{
		labels: map[scraper.Field]string{scraper.FieldPhone: "Phone: (512) 555-0147"},
	}

	listing := newExtractor(t).ExtractFields(r, candidate, scraper.ExtractOptions{})

	require.NotNil(t, listing.Phone)
	assert.Equal(t, "(512) 555-0147", *listing.Phone)
	assert.True(t, listing.PhoneVerified)
}

func TestExtractFieldsNoWebsiteMeansNoEmailAttempt(t *testing.T) {
	r := &fakeReader{
		texts: map[scraper.Field]string{scraper.FieldTitle: "Acme Cafe"},
	}

	listing := newExtractor(t).ExtractFields(r, candidate, scraper.ExtractOptions{})

	assert.Nil(t, listing.Website)
	assert.Nil(t, listing.Email)
	assert.False(t, listing.EmailVerified)
}

func TestExtractFieldsEmailFromWebsiteIsVerified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="mailto:Hello@Acme.com">write</a></body></html>`))
	}))
	defer srv.Close()

	r := &fakeReader{
		hrefs: map[scraper.Field]string{scraper.FieldWebsite: srv.URL},
	}

	listing := newExtractor(t).ExtractFields(r, candidate, scraper.ExtractOptions{})

	require.NotNil(t, listing.Website)
	require.NotNil(t, listing.Email)
	assert.Equal(t, "hello@acme.com", *listing.Email)
	assert.True(t, listing.EmailVerified)
}

func TestExtractFieldsSocialFromPageContent(t *testing.T) {
	r := &fakeReader{
		content: `<html><body><a href="https://instagram.com/acme">ig</a></body></html>`,
	}

	listing := newExtractor(t).ExtractFields(r, candidate, scraper.ExtractOptions{})

	require.NotNil(t, listing.SocialMedia)
	assert.Equal(t, "https://instagram.com/acme", listing.SocialMedia["instagram"])
}

func TestExtractFieldsPlaceID(t *testing.T) {
	listing := newExtractor(t).ExtractFields(&fakeReader{}, candidate, scraper.ExtractOptions{})

	assert.Equal(t, string(candidate), listing.URL)
	require.NotNil(t, listing.PlaceID)
	assert.Equal(t, "0xabc:0xdef", *listing.PlaceID)
}

func TestExtractFieldsOptionalCollections(t *testing.T) {
	r := &fakeReader{
		images: []string{"https://lh5.googleusercontent.com/a", "https://lh5.googleusercontent.com/b"},
		reviews: []scraper.ReviewSnapshot{
			{Name: "Jane", RatingLabel: "5 stars", Text: "great", Date: "a week ago"},
			{Name: "", RatingLabel: "", Text: "ok only", Date: ""},
		},
	}

	listing := newExtractor(t).ExtractFields(r, candidate, scraper.ExtractOptions{Reviews: true, Images: true})

	assert.Len(t, listing.Images, 2)
	require.Len(t, listing.Reviews, 2)

	first := listing.Reviews[0]
	require.NotNil(t, first.ReviewerName)
	require.NotNil(t, first.Rating)
	assert.Equal(t, "Jane", *first.ReviewerName)
	assert.Equal(t, 5, *first.Rating)

	// Partially parsed entries keep whatever was recovered.
	second := listing.Reviews[1]
	assert.Nil(t, second.ReviewerName)
	assert.Nil(t, second.Rating)
	require.NotNil(t, second.Text)
	assert.Equal(t, "ok only", *second.Text)
}

func TestExtractFieldsSkipsCollectionsWhenNotRequested(t *testing.T) {
	r := &fakeReader{
		images:  []string{"https://lh5.googleusercontent.com/a"},
		reviews: []scraper.ReviewSnapshot{{Name: "Jane"}},
	}

	listing := newExtractor(t).ExtractFields(r, candidate, scraper.ExtractOptions{})

	assert.Nil(t, listing.Images)
	assert.Nil(t, listing.Reviews)
}
