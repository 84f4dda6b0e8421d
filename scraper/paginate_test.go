package scraper_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/paurush33/alberta-procurement-scraper/browser"
	"github.com/paurush33/alberta-procurement-scraper/mock"
	"github.com/paurush33/alberta-procurement-scraper/models"
	"github.com/paurush33/alberta-procurement-scraper/scraper"
)

// testPolicy keeps retry arithmetic predictable: backoff of attempt seconds,
// fixed 50ms jitter, confirmation windows of attempt minutes.
func testPolicy() scraper.RetryPolicy {
	return scraper.RetryPolicy{
		MaxAttempts: 3,
		Backoff:     func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
		Jitter:      func() time.Duration { return 50 * time.Millisecond },
		WaitTimeout: func(attempt int) time.Duration { return time.Duration(attempt) * time.Minute },
	}
}

// pagerFixture is a mock session shaped like a results page with a pager.
// Scenario knobs are the exported fields; counters record what the
// controller did.
type pagerFixture struct {
	sess        *mock.Session
	inputs      []browser.Element
	hits        []browser.Element
	descendants map[browser.Element][]browser.Element

	scrolls         int
	syntheticTyped  []string
	syntheticClicks int
}

func newPagerFixture() *pagerFixture {
	f := &pagerFixture{descendants: map[browser.Element][]browser.Element{}}
	f.sess = &mock.Session{
		RootFn: func(ctx context.Context) (browser.Node, error) {
			return &mock.Node{Name: "doc"}, nil
		},
		SelectFn: func(ctx context.Context, root browser.Node, selector string) ([]browser.Element, error) {
			if selector == scraper.PageInputSelector {
				return f.inputs, nil
			}
			return nil, nil
		},
		SelectTextFn: func(ctx context.Context, root browser.Node, text string) ([]browser.Element, error) {
			return f.hits, nil
		},
		// The controller's scripts are distinguishable by arity: pager
		// centering takes no element, a synthetic click takes one, synthetic
		// input events take the element and the digits.
		EvalFn: func(ctx context.Context, fn string, out any, args ...any) error {
			switch len(args) {
			case 0:
				f.scrolls++
			case 1:
				f.syntheticClicks++
			case 2:
				f.syntheticTyped = append(f.syntheticTyped, args[1].(string))
			}
			return nil
		},
		EvalElementsFn: func(ctx context.Context, fn string, args ...any) ([]browser.Element, error) {
			return f.descendants[args[0].(browser.Element)], nil
		},
	}
	return f
}

// typable returns an input element recording everything typed into it.
func typable(rec *[]string) *mock.Element {
	return &mock.Element{
		FocusFn: func(ctx context.Context) error { return nil },
		ClearFn: func(ctx context.Context) error { return nil },
		TypeFn: func(ctx context.Context, text string) error {
			*rec = append(*rec, text)
			return nil
		},
	}
}

// anchor returns an <a> element counting clicks.
func anchor(clicks *int) *mock.Element {
	return &mock.Element{
		TagFn:            func(ctx context.Context) (string, error) { return "a", nil },
		AttrFn:           func(ctx context.Context, name string) (string, error) { return "", nil },
		ScrollIntoViewFn: func(ctx context.Context) error { return nil },
		ClickFn: func(ctx context.Context) error {
			*clicks++
			return nil
		},
	}
}

func TestControllerGotoPage(t *testing.T) {
	t.Parallel()

	t.Run("reaches the page through the numeric input", func(t *testing.T) {
		t.Parallel()

		f := newPagerFixture()
		var typed []string
		f.inputs = []browser.Element{typable(&typed)}

		prev := models.Fingerprint{Title: "Roof replacement", URL: "/posting/AB-1"}
		var sleeps []time.Duration
		var waits []time.Duration
		var seenPrev models.Fingerprint

		c := scraper.NewController(f.sess, testPolicy(),
			scraper.WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }),
			scraper.WithChangeWaiter(func(ctx context.Context, p models.Fingerprint, timeout time.Duration) error {
				seenPrev = p
				waits = append(waits, timeout)
				return nil
			}),
		)

		err := c.GotoPage(context.Background(), 4, prev)
		require.NoError(t, err)
		assert.Equal(t, []string{"4", "\r"}, typed)
		assert.Equal(t, prev, seenPrev)
		assert.Equal(t, []time.Duration{time.Minute}, waits)
		assert.Empty(t, sleeps)
		assert.Empty(t, f.syntheticTyped)
	})

	t.Run("falls back to synthetic input events when typing is rejected", func(t *testing.T) {
		t.Parallel()

		f := newPagerFixture()
		f.inputs = []browser.Element{&mock.Element{
			FocusFn: func(ctx context.Context) error {
				return fmt.Errorf("%w: focus", browser.ErrInteractionRejected)
			},
		}}

		c := scraper.NewController(f.sess, testPolicy(),
			scraper.WithSleep(func(time.Duration) {}),
			scraper.WithChangeWaiter(func(ctx context.Context, p models.Fingerprint, timeout time.Duration) error {
				return nil
			}),
		)

		err := c.GotoPage(context.Background(), 6, models.Fingerprint{})
		require.NoError(t, err)
		assert.Equal(t, []string{"6"}, f.syntheticTyped)
	})

	t.Run("clicks the exact-text page link when there is no input", func(t *testing.T) {
		t.Parallel()

		f := newPagerFixture()
		var clicks int
		f.hits = []browser.Element{anchor(&clicks)}

		var sleeps []time.Duration
		c := scraper.NewController(f.sess, testPolicy(),
			scraper.WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }),
			scraper.WithChangeWaiter(func(ctx context.Context, p models.Fingerprint, timeout time.Duration) error {
				return nil
			}),
		)

		err := c.GotoPage(context.Background(), 3, models.Fingerprint{})
		require.NoError(t, err)
		assert.Equal(t, 1, clicks)
		assert.Equal(t, []time.Duration{100 * time.Millisecond}, sleeps)
	})

	t.Run("click falls back to a synthetic click", func(t *testing.T) {
		t.Parallel()

		f := newPagerFixture()
		f.hits = []browser.Element{&mock.Element{
			TagFn:            func(ctx context.Context) (string, error) { return "a", nil },
			AttrFn:           func(ctx context.Context, name string) (string, error) { return "", nil },
			ScrollIntoViewFn: func(ctx context.Context) error { return nil },
			ClickFn: func(ctx context.Context) error {
				return fmt.Errorf("%w: click", browser.ErrInteractionRejected)
			},
		}}

		c := scraper.NewController(f.sess, testPolicy(),
			scraper.WithSleep(func(time.Duration) {}),
			scraper.WithChangeWaiter(func(ctx context.Context, p models.Fingerprint, timeout time.Duration) error {
				return nil
			}),
		)

		err := c.GotoPage(context.Background(), 3, models.Fingerprint{})
		require.NoError(t, err)
		assert.Equal(t, 1, f.syntheticClicks)
	})

	t.Run("a text hit wrapping its link is resolved to the link", func(t *testing.T) {
		t.Parallel()

		f := newPagerFixture()
		var clicks int
		span := &mock.Element{
			TagFn:  func(ctx context.Context) (string, error) { return "span", nil },
			AttrFn: func(ctx context.Context, name string) (string, error) { return "", nil },
		}
		f.hits = []browser.Element{span}
		f.descendants[span] = []browser.Element{anchor(&clicks)}

		c := scraper.NewController(f.sess, testPolicy(),
			scraper.WithSleep(func(time.Duration) {}),
			scraper.WithChangeWaiter(func(ctx context.Context, p models.Fingerprint, timeout time.Duration) error {
				return nil
			}),
		)

		err := c.GotoPage(context.Background(), 12, models.Fingerprint{})
		require.NoError(t, err)
		assert.Equal(t, 1, clicks)
	})

	t.Run("retries to the ceiling and reports exhaustion", func(t *testing.T) {
		t.Parallel()

		// No input, no text hits: no attempt can even interact.
		f := newPagerFixture()

		var sleeps []time.Duration
		waited := 0
		c := scraper.NewController(f.sess, testPolicy(),
			scraper.WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }),
			scraper.WithChangeWaiter(func(ctx context.Context, p models.Fingerprint, timeout time.Duration) error {
				waited++
				return nil
			}),
		)

		err := c.GotoPage(context.Background(), 9, models.Fingerprint{})
		require.Error(t, err)

		var exhausted *scraper.NavigationExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 9, exhausted.Page)
		assert.Equal(t, 3, exhausted.Attempts)
		assert.Equal(t, "failed to navigate to page 9 after 3 attempts", err.Error())

		assert.Equal(t, 0, waited, "no interaction happened, nothing to confirm")
		assert.Equal(t, []time.Duration{
			time.Second + 50*time.Millisecond,
			2*time.Second + 50*time.Millisecond,
			3*time.Second + 50*time.Millisecond,
		}, sleeps, "every attempt, the last included, is followed by its backoff")
	})

	t.Run("an unconfirmed transition is retried with widening windows", func(t *testing.T) {
		t.Parallel()

		f := newPagerFixture()
		var typed []string
		f.inputs = []browser.Element{typable(&typed)}

		var sleeps []time.Duration
		var waits []time.Duration
		c := scraper.NewController(f.sess, testPolicy(),
			scraper.WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }),
			scraper.WithChangeWaiter(func(ctx context.Context, p models.Fingerprint, timeout time.Duration) error {
				waits = append(waits, timeout)
				if len(waits) < 3 {
					return fmt.Errorf("page did not change: %w", scraper.ErrWaitTimeout)
				}
				return nil
			}),
		)

		err := c.GotoPage(context.Background(), 2, models.Fingerprint{Title: "x", URL: "y"})
		require.NoError(t, err)

		assert.Equal(t, []string{"2", "\r", "2", "\r", "2", "\r"}, typed)
		assert.Equal(t, []time.Duration{time.Minute, 2 * time.Minute, 3 * time.Minute}, waits)
		assert.Equal(t, []time.Duration{
			time.Second + 50*time.Millisecond,
			2*time.Second + 50*time.Millisecond,
		}, sleeps)
		assert.Equal(t, 5, f.scrolls, "pager is re-centered before each try and after each backoff")
	})

	t.Run("a confirmation failure that is not a timeout aborts", func(t *testing.T) {
		t.Parallel()

		f := newPagerFixture()
		var typed []string
		f.inputs = []browser.Element{typable(&typed)}

		var sleeps []time.Duration
		c := scraper.NewController(f.sess, testPolicy(),
			scraper.WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }),
			scraper.WithChangeWaiter(func(ctx context.Context, p models.Fingerprint, timeout time.Duration) error {
				return context.DeadlineExceeded
			}),
		)

		err := c.GotoPage(context.Background(), 2, models.Fingerprint{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, []string{"2", "\r"}, typed, "aborts after the first attempt")
		assert.Empty(t, sleeps)
	})

	t.Run("exhausts when both native and synthetic input are rejected", func(t *testing.T) {
		t.Parallel()

		f := newPagerFixture()
		f.inputs = []browser.Element{&mock.Element{
			FocusFn: func(ctx context.Context) error {
				return fmt.Errorf("%w: focus", browser.ErrInteractionRejected)
			},
		}}
		baseEval := f.sess.EvalFn
		f.sess.EvalFn = func(ctx context.Context, fn string, out any, args ...any) error {
			if len(args) == 2 {
				f.syntheticTyped = append(f.syntheticTyped, args[1].(string))
				return errors.New("widget swallowed the events")
			}
			return baseEval(ctx, fn, out, args...)
		}

		c := scraper.NewController(f.sess, testPolicy(),
			scraper.WithSleep(func(time.Duration) {}),
			scraper.WithChangeWaiter(func(ctx context.Context, p models.Fingerprint, timeout time.Duration) error {
				t.Fatal("nothing was interacted with, nothing should be confirmed")
				return nil
			}),
		)

		err := c.GotoPage(context.Background(), 7, models.Fingerprint{})
		var exhausted *scraper.NavigationExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, []string{"7", "7", "7"}, f.syntheticTyped, "synthetic events are dispatched once per attempt")
	})

	t.Run("an already cancelled context stops before interacting", func(t *testing.T) {
		t.Parallel()

		f := newPagerFixture()
		var typed []string
		f.inputs = []browser.Element{typable(&typed)}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := scraper.NewController(f.sess, testPolicy(),
			scraper.WithLimiter(rate.NewLimiter(rate.Inf, 0)),
			scraper.WithSleep(func(time.Duration) {}),
			scraper.WithChangeWaiter(func(ctx context.Context, p models.Fingerprint, timeout time.Duration) error {
				return nil
			}),
		)

		err := c.GotoPage(ctx, 2, models.Fingerprint{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, typed)
	})
}
