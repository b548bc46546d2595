// Package temporal extracts date ranges from natural-language queries.
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fieldnotes-ai/recall/internal/models"
)

// Parser extracts an explicit or relative date range from a query string.
// The reference clock is injectable so relative phrases are testable.
type Parser struct {
	now func() time.Time
}

// New creates a parser using the wall clock.
func New() *Parser {
	return &Parser{now: time.Now}
}

// NewWithClock creates a parser with a fixed reference clock.
func NewWithClock(now func() time.Time) *Parser {
	return &Parser{now: now}
}

type handler struct {
	re *regexp.Regexp
	fn func(m []string, now time.Time) *models.TemporalRange
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// Handlers are tried in order; more specific patterns must come before
// the bare 4-digit-year fallback.
var handlers = []handler{
	{
		re: regexp.MustCompile(`last\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)`),
		fn: func(m []string, now time.Time) *models.TemporalRange {
			target := weekdays[m[1]]
			daysAgo := int(now.Weekday()) - int(target)
			if daysAgo <= 0 {
				daysAgo += 7
			}
			day := now.AddDate(0, 0, -daysAgo)
			return relRange(startOfDay(day), endOfDay(day))
		},
	},
	{
		re: regexp.MustCompile(`last\s+month`),
		fn: func(m []string, now time.Time) *models.TemporalRange {
			start := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
			end := time.Date(now.Year(), now.Month(), 0, 23, 59, 59, 999000000, now.Location())
			return relRange(start, end)
		},
	},
	{
		re: regexp.MustCompile(`this\s+month`),
		fn: func(m []string, now time.Time) *models.TemporalRange {
			start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
			end := time.Date(now.Year(), now.Month()+1, 0, 23, 59, 59, 999000000, now.Location())
			return relRange(start, end)
		},
	},
	{
		re: regexp.MustCompile(`last\s+week`),
		fn: func(m []string, now time.Time) *models.TemporalRange {
			// Weeks start on Sunday.
			start := startOfDay(now.AddDate(0, 0, -7-int(now.Weekday())))
			end := endOfDay(start.AddDate(0, 0, 6))
			return relRange(start, end)
		},
	},
	{
		re: regexp.MustCompile(`this\s+week`),
		fn: func(m []string, now time.Time) *models.TemporalRange {
			start := startOfDay(now.AddDate(0, 0, -int(now.Weekday())))
			return relRange(start, endOfDay(now))
		},
	},
	{
		re: regexp.MustCompile(`last\s+(\d+)\s+days?`),
		fn: func(m []string, now time.Time) *models.TemporalRange {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil
			}
			return relRange(startOfDay(now.AddDate(0, 0, -n)), endOfDay(now))
		},
	},
	{
		re: regexp.MustCompile(`q([1-4])\s+(\d{4})`),
		fn: func(m []string, now time.Time) *models.TemporalRange {
			q, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[2])
			startMonth := time.Month((q-1)*3 + 1)
			start := time.Date(year, startMonth, 1, 0, 0, 0, 0, now.Location())
			end := time.Date(year, startMonth+3, 0, 23, 59, 59, 999000000, now.Location())
			return absRange(start, end)
		},
	},
	{
		re: regexp.MustCompile(`(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})`),
		fn: func(m []string, now time.Time) *models.TemporalRange {
			month := months[m[1]]
			year, _ := strconv.Atoi(m[2])
			start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
			end := time.Date(year, month+1, 0, 23, 59, 59, 999000000, now.Location())
			return absRange(start, end)
		},
	},
	{
		re: regexp.MustCompile(`(\d{4})`),
		fn: func(m []string, now time.Time) *models.TemporalRange {
			year, _ := strconv.Atoi(m[1])
			if year < 2000 || year > now.Year()+1 {
				return nil
			}
			start := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
			end := time.Date(year, time.December, 31, 23, 59, 59, 999000000, now.Location())
			return absRange(start, end)
		},
	},
}

// Parse extracts a date range from the query. On a match, the matched
// phrase is removed (first case-insensitive occurrence) from the returned
// query; otherwise the query is returned unchanged and the range is nil.
func (p *Parser) Parse(query string) (string, *models.TemporalRange) {
	lower := strings.ToLower(query)
	now := p.now()

	for _, h := range handlers {
		m := h.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		r := h.fn(m, now)
		if r == nil {
			continue
		}
		r.RelativeText = m[0]
		return removePhrase(query, m[0]), r
	}

	return query, nil
}

// removePhrase strips the first case-insensitive occurrence of phrase
// from query.
func removePhrase(query, phrase string) string {
	idx := strings.Index(strings.ToLower(query), phrase)
	if idx < 0 {
		return query
	}
	return strings.TrimSpace(query[:idx] + query[idx+len(phrase):])
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999000000, t.Location())
}

func relRange(start, end time.Time) *models.TemporalRange {
	return &models.TemporalRange{Start: &start, End: &end, IsRelative: true}
}

func absRange(start, end time.Time) *models.TemporalRange {
	return &models.TemporalRange{Start: &start, End: &end, IsRelative: false}
}
