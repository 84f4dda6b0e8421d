package scraper

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/paurush33/alberta-procurement-scraper/browser"
	"github.com/paurush33/alberta-procurement-scraper/models"
	"github.com/paurush33/alberta-procurement-scraper/utils"
)

// Controller drives page transitions against an unreliable pagination
// widget. Each transition is attempted up to the policy's ceiling, first by
// typing into a page-number input, then by clicking a numeric link, and is
// only trusted once the first-card fingerprint visibly changes.
type Controller struct {
	sess   browser.Session
	q      *DeepQuery
	fp     *Fingerprinter
	policy RetryPolicy

	limiter    *rate.Limiter
	sleep      func(time.Duration)
	waitChange func(ctx context.Context, prev models.Fingerprint, timeout time.Duration) error
}

// ControllerOption customises a Controller. Tests use these to strip real
// delays and waits.
type ControllerOption func(*Controller)

// WithLimiter sets the pacing floor applied before every interaction
// attempt.
func WithLimiter(l *rate.Limiter) ControllerOption {
	return func(c *Controller) { c.limiter = l }
}

// WithSleep replaces the controller's sleeps.
func WithSleep(sleep func(time.Duration)) ControllerOption {
	return func(c *Controller) { c.sleep = sleep }
}

// WithChangeWaiter replaces the fingerprint-change confirmation wait.
func WithChangeWaiter(wait func(ctx context.Context, prev models.Fingerprint, timeout time.Duration) error) ControllerOption {
	return func(c *Controller) { c.waitChange = wait }
}

func NewController(sess browser.Session, policy RetryPolicy, opts ...ControllerOption) *Controller {
	q := NewDeepQuery(sess)
	c := &Controller{
		sess:   sess,
		q:      q,
		fp:     NewFingerprinter(sess, q),
		policy: policy,
		sleep:  time.Sleep,
	}
	c.waitChange = func(ctx context.Context, prev models.Fingerprint, timeout time.Duration) error {
		return WaitForPageChange(ctx, c.fp, prev, timeout)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GotoPage navigates to page, confirming the transition against prev, the
// fingerprint captured before navigating. It retries with escalating waits
// and backoff; once the ceiling is exhausted it returns a
// *NavigationExhaustedError.
func (c *Controller) GotoPage(ctx context.Context, page int, prev models.Fingerprint) error {
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		ok := c.typePageNumber(ctx, page)
		if !ok {
			ok = c.clickNumericLink(ctx, page)
		}
		if ok {
			err := c.waitChange(ctx, prev, c.policy.WaitTimeout(attempt))
			if err == nil {
				return nil
			}
			if !errors.Is(err, ErrWaitTimeout) {
				return err
			}
		}

		delay := c.policy.Backoff(attempt) + c.policy.Jitter()
		log.Printf("[nav] ⚠ retry %d/%d to reach page %d (sleep %.1fs)",
			attempt, c.policy.MaxAttempts, page, delay.Seconds())
		c.sleep(delay)
		c.scrollPagerIntoView(ctx)
	}
	return &NavigationExhaustedError{Page: page, Attempts: c.policy.MaxAttempts}
}

// typePageNumber is the direct strategy: type the page number into the
// pager's numeric input and submit. Reports whether an interaction was
// performed; false means the strategy is unavailable or both the native and
// synthetic paths were rejected.
func (c *Controller) typePageNumber(ctx context.Context, page int) bool {
	c.scrollPagerIntoView(ctx)

	inputs, err := c.q.QueryAll(ctx, PageInputSelector)
	if err != nil || len(inputs) == 0 {
		return false
	}

	in := inputs[0]
	digits := strconv.Itoa(page)
	err = c.typeNative(ctx, in, digits)
	if err == nil {
		return true
	}
	log.Printf("[nav] ⚠ native input rejected: %v (dispatching synthetic events)", err)
	return c.sess.Eval(ctx, syntheticInputJS, nil, in, digits) == nil
}

func (c *Controller) typeNative(ctx context.Context, in browser.Element, digits string) error {
	if err := in.Focus(ctx); err != nil {
		return err
	}
	if err := in.Clear(ctx); err != nil {
		return err
	}
	if err := in.Type(ctx, digits); err != nil {
		return err
	}
	return in.Type(ctx, "\r")
}

// clickNumericLink is the fallback strategy: click something whose exact
// visible text is the page number. Candidates that are not links or buttons
// are resolved to their first clickable descendant when one exists.
func (c *Controller) clickNumericLink(ctx context.Context, page int) bool {
	c.scrollPagerIntoView(ctx)

	hits, err := c.q.FindByExactText(ctx, strconv.Itoa(page))
	if err != nil {
		return false
	}

	for _, hit := range hits {
		target := c.resolveClickable(ctx, hit)
		if err := target.ScrollIntoView(ctx); err != nil {
			continue
		}
		c.sleep(100 * time.Millisecond)

		if err := target.Click(ctx); err == nil {
			return true
		}
		if err := c.sess.Eval(ctx, syntheticClickJS, nil, target); err == nil {
			return true
		}
	}
	return false
}

// resolveClickable keeps el when it is already a link, button or
// role=button; otherwise prefers its first descendant link or button.
func (c *Controller) resolveClickable(ctx context.Context, el browser.Element) browser.Element {
	tag, err := el.Tag(ctx)
	if err != nil {
		return el
	}
	role, _ := el.Attr(ctx, "role")
	if tag == "a" || tag == "button" || strings.EqualFold(role, "button") {
		return el
	}
	if children, err := c.sess.EvalElements(ctx, descendantClickableJS, el); err == nil && len(children) > 0 {
		return children[0]
	}
	return el
}

// scrollPagerIntoView centers the pagination control. Best-effort: a page
// without a visible pager is not an error here.
func (c *Controller) scrollPagerIntoView(ctx context.Context) {
	utils.BestEffort("nav", func() error {
		return c.sess.Eval(ctx, scrollPagerJS, nil)
	})
}
