package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/paurush33/alberta-procurement-scraper/browser"
	"github.com/paurush33/alberta-procurement-scraper/config"
	"github.com/paurush33/alberta-procurement-scraper/models"
	"github.com/paurush33/alberta-procurement-scraper/storage"
	"github.com/paurush33/alberta-procurement-scraper/utils"
)

// Run owns one crawl end to end: output file, optional database mirror,
// browser session, seed navigation, then the page loop. The portal throttles
// aggressively, so everything runs in a single tab at a deliberate pace.
func Run(ctx context.Context, cfg config.Config) (RunState, error) {
	runID := uuid.NewString()
	log.Printf("[run] ▶ run %s → %s", runID, cfg.SeedURL)

	rec, err := storage.OpenRecorder(cfg.OutFile)
	if err != nil {
		return RunState{}, err
	}
	defer utils.BestEffort("run", rec.Close)

	var opts []OrchestratorOption
	if cfg.DBEnabled {
		store, err := storage.NewPostgresStore(cfg)
		if err != nil {
			return RunState{}, err
		}
		defer utils.BestEffort("run", store.Close)

		opts = append(opts, WithMirror(func(ctx context.Context, page int, records []models.Record) {
			utils.BestEffort("db", func() error {
				_, err := store.SaveRecords(ctx, runID, page, records)
				return err
			})
		}))
	}

	sess, err := browser.NewChrome(ctx, cfg)
	if err != nil {
		return RunState{}, err
	}
	defer utils.BestEffort("run", sess.Close)

	if err := sess.Navigate(ctx, cfg.SeedURL); err != nil {
		return RunState{}, fmt.Errorf("open seed: %w", err)
	}

	orch, err := NewOrchestrator(sess, cfg, rec, opts...)
	if err != nil {
		return RunState{}, err
	}
	return orch.Run(ctx)
}
