package scraper

import (
	"errors"
	"fmt"
)

// ErrWaitTimeout reports that a bounded wait ran out before its condition
// became true. Pagination recovers from it by retrying; the initial
// wait-for-results at run start treats it as fatal.
var ErrWaitTimeout = errors.New("wait timed out")

// NavigationExhaustedError reports that every attempt to reach a target page
// failed. It ends the navigation call; the caller decides whether it ends
// the run.
type NavigationExhaustedError struct {
	Page     int
	Attempts int
}

func (e *NavigationExhaustedError) Error() string {
	return fmt.Sprintf("failed to navigate to page %d after %d attempts", e.Page, e.Attempts)
}
