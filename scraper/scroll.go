package scraper

import (
	"context"
	"time"

	"github.com/paurush33/alberta-procurement-scraper/browser"
)

// LazyScroll nudges lazily rendered cards into the DOM by scrolling to the
// bottom a few times, pausing between passes. Errors end the scrolling early
// and are otherwise ignored; a short page is not a failure.
func LazyScroll(ctx context.Context, sess browser.Session, passes int, pause time.Duration) {
	for i := 0; i < passes; i++ {
		if err := sess.Eval(ctx, scrollBottomJS, nil); err != nil {
			return
		}
		time.Sleep(pause)
	}
}
