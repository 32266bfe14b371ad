package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp/kb"
)

// Field names a readable detail-page field. The extraction algorithm only
// speaks in fields; selector strings stay behind the PageReader.
type Field string

// Detail-page fields.
const (
	FieldTitle    Field = "title"
	FieldCategory Field = "category"
	FieldRating   Field = "rating"
	FieldReviews  Field = "reviews"
	FieldAddress  Field = "address"
	FieldPhone    Field = "phone"
	FieldWebsite  Field = "website"
	FieldHours    Field = "hours"
	FieldPrice    Field = "price"
)

var fieldSelectors = map[Field]string{
	FieldTitle:    TitleSelector,
	FieldCategory: CategorySelector,
	FieldRating:   RatingSelector,
	FieldReviews:  ReviewsCountSelector,
	FieldAddress:  AddressSelector,
	FieldPhone:    PhoneSelector,
	FieldWebsite:  WebsiteSelector,
	FieldHours:    HoursSelector,
	FieldPrice:    PriceSelector,
}

// ReviewSnapshot is one raw review entry as rendered; parsing happens in the
// extractor so a fake reader can feed the same path.
type ReviewSnapshot struct {
	Name        string `json:"name"`
	RatingLabel string `json:"ratingLabel"`
	Text        string `json:"text"`
	Date        string `json:"date"`
}

// PageReader exposes typed reads over one detail page. Every accessor reports
// absence via its bool; no accessor returns an error for a missing field.
type PageReader interface {
	ReadText(field Field) (string, bool)
	ReadLabel(field Field) (string, bool)
	ReadHref(field Field) (string, bool)
	Content() (string, error)
	CollectImages(max int) ([]string, error)
	CollectReviews(max int) ([]ReviewSnapshot, error)
}

// Affordance wait times for the photo viewer and review panel.
const (
	viewerWait        = 2 * time.Second
	reviewScrollPause = 1 * time.Second
	reviewScrolls     = 3
)

// selectorReader implements PageReader over a live Page with JS round-trips.
type selectorReader struct {
	page Page
}

// NewPageReader wraps a page in the selector-driven reader.
func NewPageReader(page Page) PageReader {
	return &selectorReader{page: page}
}

// evalResult is the {ok, value} shape every read snippet returns.
type evalResult struct {
	OK    bool   `json:"ok"`
	Value string `json:"value"`
}

func (r *selectorReader) read(field Field, expr string) (string, bool) {
	sel, ok := fieldSelectors[field]
	if !ok {
		return "", false
	}

	script := fmt.Sprintf(`
		(() => {
			const el = document.querySelector(%q);
			if (!el) return { ok: false, value: '' };
			return { ok: true, value: (%s) || '' };
		})()
	`, sel, expr)

	var res evalResult
	if err := r.page.Evaluate(script, &res); err != nil {
		return "", false
	}
	value := strings.TrimSpace(res.Value)
	if !res.OK || value == "" {
		return "", false
	}
	return value, true
}

func (r *selectorReader) ReadText(field Field) (string, bool) {
	return r.read(field, `(el.textContent || '')`)
}

func (r *selectorReader) ReadLabel(field Field) (string, bool) {
	return r.read(field, `(el.getAttribute('aria-label') || '')`)
}

func (r *selectorReader) ReadHref(field Field) (string, bool) {
	return r.read(field, `(el.href || el.getAttribute('href') || '')`)
}

func (r *selectorReader) Content() (string, error) {
	return r.page.Content()
}

// click presses an affordance; false means the element is not on the page.
func (r *selectorReader) click(selector string) bool {
	script := fmt.Sprintf(`
		(() => {
			const el = document.querySelector(%q);
			if (!el) return false;
			el.click();
			return true;
		})()
	`, selector)

	var clicked bool
	if err := r.page.Evaluate(script, &clicked); err != nil {
		return false
	}
	return clicked
}

// CollectImages opens the photo viewer, gathers up to max distinct media-host
// image URLs, and dismisses the viewer again.
func (r *selectorReader) CollectImages(max int) ([]string, error) {
	if !r.click(PhotoButtonSelector) {
		return nil, nil
	}
	time.Sleep(viewerWait)

	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(i => i.src || '')`, PhotoImageSelector)
	var srcs []string
	err := r.page.Evaluate(script, &srcs)

	// The viewer must be dismissed even when collection failed.
	_ = r.page.Press(kb.Escape)

	if err != nil {
		return nil, fmt.Errorf("collect image urls: %w", err)
	}

	seen := make(map[string]struct{}, len(srcs))
	images := make([]string, 0, max)
	for _, src := range srcs {
		if src == "" {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		images = append(images, src)
		if len(images) >= max {
			break
		}
	}
	return images, nil
}

// CollectReviews opens the reviews panel, scrolls it a fixed number of times to
// force more entries to render, then reads up to max raw entries.
func (r *selectorReader) CollectReviews(max int) ([]ReviewSnapshot, error) {
	if !r.click(ReviewsButtonSelector) {
		return nil, nil
	}
	time.Sleep(viewerWait)

	for i := 0; i < reviewScrolls; i++ {
		var scrolled bool
		if err := r.page.Evaluate(scrollReviewPanelJS, &scrolled); err != nil {
			break
		}
		time.Sleep(reviewScrollPause)
	}

	script := fmt.Sprintf(`
		Array.from(document.querySelectorAll(%q)).slice(0, %d).map(el => {
			const txt = (s) => {
				const n = el.querySelector(s);
				return n ? (n.textContent || '').trim() : '';
			};
			const ratingEl = el.querySelector(%q);
			return {
				name: txt(%q),
				ratingLabel: ratingEl ? (ratingEl.getAttribute('aria-label') || '') : '',
				text: txt(%q),
				date: txt(%q)
			};
		})
	`, ReviewEntrySelector, max, ReviewRatingSelector, ReviewNameSelector, ReviewTextSelector, ReviewDateSelector)

	var snapshots []ReviewSnapshot
	if err := r.page.Evaluate(script, &snapshots); err != nil {
		return nil, fmt.Errorf("collect review entries: %w", err)
	}
	return snapshots, nil
}
