package scraper

// CSS selectors and page scripts used across the scraper.
// Centralising them makes future updates trivial.
const (
	// Result cards (the portal renders these behind nested shadow roots)
	ResultCardSelector = `apc-opportunity-search-result, .result-item, li.result, div.search-result`

	// Within a card
	DetailLinkSelector  = `a[href^='/posting/']`
	DescriptionSelector = `span.search-result__description, .result-description, .summary, .teaser`

	// Pagination
	PagerSelector     = `apc-paginator, .pagination, nav[aria-label='pagination'], .paginator, .mat-paginator`
	PageInputSelector = `apc-paginator input[aria-label='Page Number'], input[aria-label='Page number'], input[type='number']`
)

// Page scripts. Each is a function literal run through the browser session;
// element arguments arrive as live DOM references.
const (
	// cardLinkJS picks a card's primary link: a posting link when present,
	// otherwise any anchor.
	cardLinkJS = `function(card) {
		return card.querySelector("` + DetailLinkSelector + `") || card.querySelector("a");
	}`

	// cardDescJS picks a card's description element, if it has one.
	cardDescJS = `function(card) {
		return card.querySelector("` + DescriptionSelector + `");
	}`

	// syntheticInputJS mimics typing a page number when native keystrokes
	// are rejected: set the value, then raise the events the widget listens
	// for.
	syntheticInputJS = `function(el, val) {
		el.focus();
		el.value = val;
		el.dispatchEvent(new Event('input', {bubbles:true}));
		el.dispatchEvent(new KeyboardEvent('keydown', {key:'Enter'}));
		el.dispatchEvent(new KeyboardEvent('keyup', {key:'Enter'}));
	}`

	// syntheticClickJS is the fallback for widgets that swallow native
	// clicks.
	syntheticClickJS = `function(el) { el.click(); }`

	// descendantClickableJS finds a clickable child of a text match.
	descendantClickableJS = `function(el) { return el.querySelector("a,button"); }`

	// scrollPagerJS centers the pagination control; reports whether one was
	// found.
	scrollPagerJS = `function() {
		const cand = document.querySelector("` + PagerSelector + `");
		if (cand) cand.scrollIntoView({block:'center'});
		return !!cand;
	}`

	// scrollBottomJS forces lazy content to render.
	scrollBottomJS = `function() { window.scrollTo(0, document.body.scrollHeight); }`
)
