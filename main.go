package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/paurush33/alberta-procurement-scraper/config"
	"github.com/paurush33/alberta-procurement-scraper/services"
	"github.com/paurush33/alberta-procurement-scraper/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Default()

	endLabel := "until navigation fails"
	if cfg.EndPage > 0 {
		endLabel = strconv.Itoa(cfg.EndPage)
	}

	log.Printf("╔═══════════════════════════════════════════════════╗")
	log.Printf("║       Alberta Purchasing Connection Scraper       ║")
	log.Printf("╚═══════════════════════════════════════════════════╝")
	log.Printf("Seed     : %s", cfg.SeedURL)
	log.Printf("Pages    : %d → %s", cfg.StartPage, endLabel)
	log.Printf("Retries  : %d per page", cfg.MaxRetries)
	log.Printf("Output   : %s", cfg.OutFile)
	if cfg.DBEnabled {
		log.Printf("Postgres : %s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		rootCtx, cancel = context.WithTimeout(rootCtx, cfg.GlobalTimeout)
		defer cancel()
	}

	state, err := services.Run(rootCtx, cfg)
	if err != nil {
		log.Printf("✗ run ended early: %v", err)
	}

	stats := utils.BuildSummaryStats(state.Pages)
	log.Printf("═══════════════════════════════════════════════════")
	log.Printf("  DONE — %d records over %d pages → %s", state.Records, state.PagesDone, cfg.OutFile)
	log.Printf("  STATS")
	log.Printf("    Pages Harvested  : %d (%d → %d)", stats.PagesDone, stats.FirstPage, stats.LastPage)
	log.Printf("    Total Records    : %d", stats.TotalRecords)
	log.Printf("    Average per Page : %.1f", stats.AveragePerPage)
	log.Printf("    Empty Pages      : %d", stats.EmptyPages)
	log.Printf("    Busiest Pages")
	for _, p := range stats.BusiestPages {
		log.Printf("      - page %d: %d records", p.Page, p.Count)
	}
	log.Printf("═══════════════════════════════════════════════════")

	if err != nil {
		os.Exit(1)
	}
}
