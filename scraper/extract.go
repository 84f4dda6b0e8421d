package scraper

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/paurush33/alberta-procurement-scraper/browser"
	"github.com/paurush33/alberta-procurement-scraper/models"
)

// Seen tracks the absolute URLs already emitted during this run. A URL, once
// added, is never emitted again in the same run.
type Seen interface {
	Has(url string) bool
	Add(url string)
}

// Extractor converts the currently rendered result cards into records.
type Extractor struct {
	sess browser.Session
	q    *DeepQuery
	base *url.URL
	max  int
}

// NewExtractor builds an extractor resolving relative links against seedURL.
// perPageMax caps records per page; 0 means no cap.
func NewExtractor(sess browser.Session, seedURL string, perPageMax int) (*Extractor, error) {
	base, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("parse seed url: %w", err)
	}
	return &Extractor{
		sess: sess,
		q:    NewDeepQuery(sess),
		base: base,
		max:  perPageMax,
	}, nil
}

// ExtractPage reads every rendered card, up to the configured cap, skipping
// cards without links, cards already seen, and cards that fail to read. One
// malformed card never aborts the page.
func (e *Extractor) ExtractPage(ctx context.Context, seen Seen) ([]models.Record, error) {
	cards, err := e.q.QueryAll(ctx, ResultCardSelector)
	if err != nil {
		return nil, fmt.Errorf("enumerate cards: %w", err)
	}

	var out []models.Record
	for idx, card := range cards {
		if e.max > 0 && idx >= e.max {
			break
		}
		rec, ok := e.extractCard(ctx, idx, card, seen)
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (e *Extractor) extractCard(ctx context.Context, idx int, card browser.Element, seen Seen) (models.Record, bool) {
	links, err := e.sess.EvalElements(ctx, cardLinkJS, card)
	if err != nil {
		log.Printf("[extract] ⚠ card %d: %v", idx, err)
		return models.Record{}, false
	}
	if len(links) == 0 {
		return models.Record{}, false
	}
	link := links[0]

	title, err := link.Text(ctx)
	if err != nil {
		log.Printf("[extract] ⚠ card %d: %v", idx, err)
		return models.Record{}, false
	}
	href, err := link.Attr(ctx, "href")
	if err != nil {
		log.Printf("[extract] ⚠ card %d: %v", idx, err)
		return models.Record{}, false
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return models.Record{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		log.Printf("[extract] ⚠ card %d: bad link %q: %v", idx, href, err)
		return models.Record{}, false
	}
	abs := e.base.ResolveReference(ref).String()
	if seen.Has(abs) {
		return models.Record{}, false
	}

	var desc *string
	descEls, err := e.sess.EvalElements(ctx, cardDescJS, card)
	if err != nil {
		log.Printf("[extract] ⚠ card %d: %v", idx, err)
		return models.Record{}, false
	}
	if len(descEls) > 0 {
		text, err := descEls[0].Text(ctx)
		if err != nil {
			log.Printf("[extract] ⚠ card %d: %v", idx, err)
			return models.Record{}, false
		}
		desc = &text
	}

	seen.Add(abs)
	return models.Record{
		Title:       strings.TrimSpace(title),
		URL:         abs,
		Description: desc,
	}, true
}
