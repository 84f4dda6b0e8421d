package utils

import "log"

// BestEffort runs fn for operations that must never abort the step that
// triggered them (scrolling, teardown, mirroring). Failures are logged and
// swallowed; that is the whole policy.
func BestEffort(scope string, fn func() error) {
	if err := fn(); err != nil {
		log.Printf("[%s] ⚠ %v", scope, err)
	}
}
