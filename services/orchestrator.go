package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/paurush33/alberta-procurement-scraper/browser"
	"github.com/paurush33/alberta-procurement-scraper/config"
	"github.com/paurush33/alberta-procurement-scraper/models"
	"github.com/paurush33/alberta-procurement-scraper/scraper"
)

// Navigator moves the portal to a given results page.
type Navigator interface {
	GotoPage(ctx context.Context, page int, prev models.Fingerprint) error
}

// PageExtractor harvests the records off the currently shown page.
type PageExtractor interface {
	ExtractPage(ctx context.Context, seen scraper.Seen) ([]models.Record, error)
}

// Sink persists harvested records and remembers which URLs were written.
type Sink interface {
	scraper.Seen
	Append(records []models.Record) error
}

// RunState is the crawl position carried between pages and returned when the
// run ends, however it ends.
type RunState struct {
	Page      int                 // page currently shown
	PagesDone int                 // pages fully harvested
	Records   int                 // records appended so far
	Prev      models.Fingerprint  // fingerprint taken before the last navigation
	Pages     []models.PageResult // per-page counts, for the summary
}

// Orchestrator walks the result pages in order: settle, harvest, persist,
// navigate, repeat. Failures before the first page is readable are fatal;
// once harvesting has begun, running out of navigation retries just ends the
// run with whatever was collected.
type Orchestrator struct {
	cfg  config.Config
	nav  Navigator
	ext  PageExtractor
	sink Sink

	waitFirst   func(ctx context.Context) error
	fingerprint func(ctx context.Context) models.Fingerprint
	lazyScroll  func(ctx context.Context)
	mirror      func(ctx context.Context, page int, records []models.Record)
	sleep       func(time.Duration)
}

type OrchestratorOption func(*Orchestrator)

// WithNavigator replaces the pagination controller.
func WithNavigator(nav Navigator) OrchestratorOption {
	return func(o *Orchestrator) { o.nav = nav }
}

// WithExtractor replaces the record extractor.
func WithExtractor(ext PageExtractor) OrchestratorOption {
	return func(o *Orchestrator) { o.ext = ext }
}

// WithWaitFirst replaces the initial readiness wait.
func WithWaitFirst(fn func(ctx context.Context) error) OrchestratorOption {
	return func(o *Orchestrator) { o.waitFirst = fn }
}

// WithFingerprint replaces the page fingerprint source.
func WithFingerprint(fn func(ctx context.Context) models.Fingerprint) OrchestratorOption {
	return func(o *Orchestrator) { o.fingerprint = fn }
}

// WithLazyScroll replaces the pre-harvest scroll pass.
func WithLazyScroll(fn func(ctx context.Context)) OrchestratorOption {
	return func(o *Orchestrator) { o.lazyScroll = fn }
}

// WithMirror adds a secondary destination for each harvested page. The hook
// is responsible for its own error handling; the run never stops on it.
func WithMirror(fn func(ctx context.Context, page int, records []models.Record)) OrchestratorOption {
	return func(o *Orchestrator) { o.mirror = fn }
}

// WithSleep replaces the pacing clock.
func WithSleep(sleep func(time.Duration)) OrchestratorOption {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// NewOrchestrator wires the scraper pieces around one browser session.
// Options swap any piece out, which is how the tests run without a browser.
func NewOrchestrator(sess browser.Session, cfg config.Config, sink Sink, opts ...OrchestratorOption) (*Orchestrator, error) {
	q := scraper.NewDeepQuery(sess)
	fp := scraper.NewFingerprinter(sess, q)

	ext, err := scraper.NewExtractor(sess, cfg.SeedURL, cfg.PerPageMax)
	if err != nil {
		return nil, err
	}

	nav := scraper.NewController(sess, scraper.PolicyFromConfig(cfg),
		scraper.WithLimiter(rate.NewLimiter(rate.Every(cfg.BaseRateLimit), 1)),
	)

	o := &Orchestrator{
		cfg:  cfg,
		nav:  nav,
		ext:  ext,
		sink: sink,
		waitFirst: func(ctx context.Context) error {
			return scraper.WaitForAnyResult(ctx, q, cfg.WaitTimeout)
		},
		fingerprint: fp.Current,
		lazyScroll: func(ctx context.Context) {
			scraper.LazyScroll(ctx, sess, cfg.ScrollPasses, cfg.ScrollPause)
		},
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run drives the crawl from cfg.StartPage until the end page, the navigation
// retry ceiling, or ctx says stop. The returned state is valid either way.
func (o *Orchestrator) Run(ctx context.Context) (RunState, error) {
	state := RunState{Page: o.cfg.StartPage}
	if state.Page < 1 {
		state.Page = 1
	}

	if err := o.waitFirst(ctx); err != nil {
		return state, fmt.Errorf("results never appeared: %w", err)
	}
	log.Printf("[run] ✓ results visible, starting at page %d", state.Page)

	if state.Page > 1 {
		if err := o.nav.GotoPage(ctx, state.Page, o.fingerprint(ctx)); err != nil {
			return state, fmt.Errorf("jump to start page %d: %w", state.Page, err)
		}
	}

	for {
		o.sleep(o.cfg.SettleDelay + config.Jitter(o.cfg.SettleJitterMin, o.cfg.SettleJitterMax))
		o.lazyScroll(ctx)

		records, err := o.ext.ExtractPage(ctx, o.sink)
		if err != nil {
			return state, fmt.Errorf("page %d: %w", state.Page, err)
		}
		if err := o.sink.Append(records); err != nil {
			return state, fmt.Errorf("page %d: %w", state.Page, err)
		}
		if o.mirror != nil {
			o.mirror(ctx, state.Page, records)
		}

		state.PagesDone++
		state.Records += len(records)
		state.Pages = append(state.Pages, models.PageResult{Page: state.Page, Count: len(records)})
		log.Printf("[run] page %d → %d records (running total: %d)",
			state.Page, len(records), state.Records)

		if o.cfg.EndPage != 0 && state.Page >= o.cfg.EndPage {
			log.Printf("[run] ✓ reached end page %d", o.cfg.EndPage)
			return state, nil
		}

		state.Prev = o.fingerprint(ctx)
		next := state.Page + 1
		if err := o.nav.GotoPage(ctx, next, state.Prev); err != nil {
			var exhausted *scraper.NavigationExhaustedError
			if errors.As(err, &exhausted) {
				log.Printf("[run] ✗ %v; stopping with %d records", err, state.Records)
				return state, nil
			}
			return state, fmt.Errorf("advance to page %d: %w", next, err)
		}
		state.Page = next

		if o.cfg.CooldownEvery > 0 && state.PagesDone%o.cfg.CooldownEvery == 0 {
			log.Printf("[run] cooling down %s after %d pages", o.cfg.CooldownFor, state.PagesDone)
			o.sleep(o.cfg.CooldownFor)
		}
	}
}
