package scraper

// CSS selectors used across the scraper.
// Centralising them makes future updates trivial.
const (
	// Search results feed
	PlaceLinkSelector = `a[href*="/maps/place/"]`
	FeedPanelSelector = `div[role="feed"]`

	// Detail page
	TitleSelector        = `h1.DUwDvf, h1`
	CategorySelector     = `button[jsaction*="category"]`
	RatingSelector       = `div.F7nice span[aria-label*="stars"]`
	ReviewsCountSelector = `div.F7nice span[aria-label*="reviews"]`
	AddressSelector      = `button[data-item-id="address"]`
	PhoneSelector        = `button[data-item-id*="phone"]`
	WebsiteSelector      = `a[data-item-id="authority"]`
	HoursSelector        = `button[data-item-id="oh"]`
	PriceSelector        = `span[aria-label*="Price"]`

	// Photo viewer
	PhotoButtonSelector = `button[aria-label*="Photo"]`
	PhotoImageSelector  = `img[src*="googleusercontent"]`

	// Reviews panel
	ReviewsButtonSelector = `button[aria-label*="Reviews"]`
	ReviewPanelSelector   = `div[role="main"]`
	ReviewEntrySelector   = `div[data-review-id]`
	ReviewNameSelector    = `div.d4r55`
	ReviewRatingSelector  = `span[role="img"]`
	ReviewTextSelector    = `span.wiI7pd`
	ReviewDateSelector    = `span.rsqaWe`
)

// JS snippets evaluated against live pages. Each returns a JSON-serialisable
// value so results decode straight into Go structs.
const (
	// collectPlaceLinksJS lists every listing link currently rendered in the feed.
	collectPlaceLinksJS = `
		Array.from(document.querySelectorAll('a[href*="/maps/place/"]'))
			.map(a => a.href)
			.filter(h => h && h.includes('/maps/place/'))
	`

	// feedHeightJS reads the scrollable panel's content height; 0 when absent.
	feedHeightJS = `
		(() => {
			const panel = document.querySelector('div[role="feed"]');
			return panel ? panel.scrollHeight : 0;
		})()
	`

	// scrollFeedJS commands the results panel to its current bottom.
	scrollFeedJS = `
		(() => {
			const panel = document.querySelector('div[role="feed"]');
			if (panel) {
				panel.scrollTop = panel.scrollHeight;
			}
			return true;
		})()
	`

	// scrollReviewPanelJS forces more review entries to render.
	scrollReviewPanelJS = `
		(() => {
			const panel = document.querySelector('div[role="main"]');
			if (panel) {
				panel.scrollTop = panel.scrollHeight;
			}
			return true;
		})()
	`
)
