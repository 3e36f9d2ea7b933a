package session

import "time"

// NextCutoff computes the next daily logout cutoff. When now is strictly
// before today's cutoff hour the cutoff is today; otherwise tomorrow.
func NextCutoff(now time.Time, cutoffHour int) time.Time {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), cutoffHour, 0, 0, 0, now.Location())
	if !now.Before(cutoff) {
		cutoff = cutoff.AddDate(0, 0, 1)
	}
	return cutoff
}
