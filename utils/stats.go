package utils

import (
	"sort"

	"github.com/paurush33/alberta-procurement-scraper/models"
)

type SummaryStats struct {
	TotalRecords   int
	PagesDone      int
	FirstPage      int
	LastPage       int
	AveragePerPage float64
	EmptyPages     int
	BusiestPages   []models.PageResult
}

// BuildSummaryStats aggregates per-page results into the end-of-run report.
func BuildSummaryStats(pages []models.PageResult) SummaryStats {
	stats := SummaryStats{PagesDone: len(pages)}
	if len(pages) == 0 {
		return stats
	}

	stats.FirstPage = pages[0].Page
	stats.LastPage = pages[0].Page

	for _, page := range pages {
		stats.TotalRecords += page.Count
		if page.Count == 0 {
			stats.EmptyPages++
		}
		if page.Page < stats.FirstPage {
			stats.FirstPage = page.Page
		}
		if page.Page > stats.LastPage {
			stats.LastPage = page.Page
		}
	}
	stats.AveragePerPage = float64(stats.TotalRecords) / float64(len(pages))

	busiest := make([]models.PageResult, len(pages))
	copy(busiest, pages)
	sort.Slice(busiest, func(i, j int) bool {
		if busiest[i].Count == busiest[j].Count {
			return busiest[i].Page < busiest[j].Page
		}
		return busiest[i].Count > busiest[j].Count
	})
	if len(busiest) > 5 {
		busiest = busiest[:5]
	}
	stats.BusiestPages = busiest

	return stats
}
