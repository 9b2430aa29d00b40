package shared

import (
	"errors"
	"time"
)

// Annual reports reach the register with a lag; before this cutoff the
// previous-but-one year is the latest one reliably filed.
const annualReportCutoffMonth = time.June

// ErrYearOutOfRange indicates a reference year outside the supported window.
var ErrYearOutOfRange = errors.New("reference year out of range")

const earliestReferenceYear = 1995

// ReferenceYear resolves the default reporting year for declarations and
// financial KPIs relative to now.
func ReferenceYear(now time.Time) int {
	if now.Month() < annualReportCutoffMonth {
		return now.Year() - 2
	}
	return now.Year() - 1
}

// ValidateYear checks that a caller-supplied year can have filed accounts.
func ValidateYear(year int, now time.Time) error {
	if year < earliestReferenceYear || year >= now.Year() {
		return ErrYearOutOfRange
	}
	return nil
}

// YearBounds returns the UTC start (inclusive) and end (exclusive) of a year.
func YearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}
