package models

import "time"

// TemporalRange is an absolute date interval extracted from a query.
// Either bound may be absent. When both are present, Start <= End.
type TemporalRange struct {
	Start *time.Time `json:"startDate,omitempty"`
	End   *time.Time `json:"endDate,omitempty"`

	// IsRelative marks ranges derived from relative phrases ("last week")
	// as opposed to explicit ones ("March 2024"). RelativeText holds the
	// matched phrase for audit and query cleanup.
	IsRelative   bool   `json:"isRelative"`
	RelativeText string `json:"relativeText,omitempty"`
}
