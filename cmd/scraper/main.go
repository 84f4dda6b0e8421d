// Package main implements the apc-scraper command line tool.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/paurush33/alberta-procurement-scraper/config"
	"github.com/paurush33/alberta-procurement-scraper/services"
	"github.com/paurush33/alberta-procurement-scraper/utils"
)

var rootCmd = &cobra.Command{
	Use:   "apc-scraper",
	Short: "Alberta Purchasing Connection opportunity scraper",
	Long: "Walks the purchasing.alberta.ca search results page by page, " +
		"piercing the portal's shadow DOM, and appends every opportunity " +
		"to a JSONL file.",
}

var (
	crawlSeed     string
	crawlOut      string
	crawlStart    int
	crawlEnd      int
	crawlPerPage  int
	crawlRetries  int
	crawlHeadless bool
	crawlDB       bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl result pages and append records to the output file",
	RunE:  runCrawl,
}

func init() {
	crawlCmd.Flags().StringVarP(&crawlSeed, "seed", "u", "", "Search page URL (overrides SEED_URL)")
	crawlCmd.Flags().StringVarP(&crawlOut, "out", "o", "", "Output JSONL path (overrides OUT_PATH)")
	crawlCmd.Flags().IntVar(&crawlStart, "start", 0, "First page to harvest (overrides START_PAGE)")
	crawlCmd.Flags().IntVar(&crawlEnd, "end", 0, "Last page to harvest, 0 = until navigation fails (overrides END_PAGE)")
	crawlCmd.Flags().IntVar(&crawlPerPage, "max-per-page", 0, "Cap on records per page, 0 = no cap (overrides PER_PAGE_MAX)")
	crawlCmd.Flags().IntVar(&crawlRetries, "retries", 0, "Navigation attempts per page (overrides MAX_RETRIES_PER_PAGE)")
	crawlCmd.Flags().BoolVar(&crawlHeadless, "headless", false, "Run Chrome headless (overrides HEADLESS)")
	crawlCmd.Flags().BoolVar(&crawlDB, "db", false, "Mirror records into Postgres (overrides DB_ENABLE)")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.SeedURL = crawlSeed
	}
	if flags.Changed("out") {
		cfg.OutFile = crawlOut
	}
	if flags.Changed("start") {
		cfg.StartPage = crawlStart
	}
	if flags.Changed("end") {
		cfg.EndPage = crawlEnd
	}
	if flags.Changed("max-per-page") {
		cfg.PerPageMax = crawlPerPage
	}
	if flags.Changed("retries") {
		cfg.MaxRetries = crawlRetries
	}
	if flags.Changed("headless") {
		cfg.Headless = crawlHeadless
	}
	if flags.Changed("db") {
		cfg.DBEnabled = crawlDB
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.GlobalTimeout)
		defer cancel()
	}

	state, runErr := services.Run(ctx, cfg)

	stats := utils.BuildSummaryStats(state.Pages)
	log.Printf("═══════════════════════════════════════════════════")
	log.Printf("  DONE — %d records over %d pages → %s", state.Records, state.PagesDone, cfg.OutFile)
	if stats.PagesDone > 0 {
		log.Printf("  Pages %d → %d, %.1f records/page, %d empty",
			stats.FirstPage, stats.LastPage, stats.AveragePerPage, stats.EmptyPages)
	}
	log.Printf("═══════════════════════════════════════════════════")

	if runErr != nil {
		return fmt.Errorf("crawl: %w", runErr)
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
