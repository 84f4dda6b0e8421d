package scraper

import (
	"context"
	"strings"

	"github.com/paurush33/alberta-procurement-scraper/browser"
	"github.com/paurush33/alberta-procurement-scraper/models"
)

// Fingerprinter derives the identity signature of whatever is currently the
// first result card. The signature is only ever compared for change
// detection; record extraction never reads it.
type Fingerprinter struct {
	sess browser.Session
	q    *DeepQuery
}

func NewFingerprinter(sess browser.Session, q *DeepQuery) *Fingerprinter {
	return &Fingerprinter{sess: sess, q: q}
}

// Current returns the fingerprint of the first result card, or the sentinel
// zero Fingerprint when no card, no link, or no responsive page is there to
// observe. Lookup failures count as "no content observed".
func (f *Fingerprinter) Current(ctx context.Context) models.Fingerprint {
	cards, err := f.q.QueryAll(ctx, ResultCardSelector)
	if err != nil || len(cards) == 0 {
		return models.Fingerprint{}
	}

	links, err := f.sess.EvalElements(ctx, cardLinkJS, cards[0])
	if err != nil || len(links) == 0 {
		return models.Fingerprint{}
	}

	title, err := links[0].Text(ctx)
	if err != nil {
		return models.Fingerprint{}
	}
	href, err := links[0].Attr(ctx, "href")
	if err != nil {
		return models.Fingerprint{}
	}

	return models.Fingerprint{
		Title: strings.TrimSpace(title),
		URL:   strings.TrimSpace(href),
	}
}
