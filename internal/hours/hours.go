// Package hours buckets logged volunteer hours by week, month or year for the
// dashboard chart.
package hours

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"volunteerhub/pkg/types"
)

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

var Periods = []Period{PeriodWeek, PeriodMonth, PeriodYear}

// ParsePeriod maps a query value to a Period, falling back to month.
func ParsePeriod(value string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(value))) {
	case PeriodWeek:
		return PeriodWeek
	case PeriodYear:
		return PeriodYear
	default:
		return PeriodMonth
	}
}

// Entry is one logged amount of hours on an event date.
type Entry struct {
	Date  time.Time
	Hours float64
}

// Bucket is the summed hours of one period.
type Bucket struct {
	Label string  `json:"label"`
	Hours float64 `json:"hours"`
}

type bucketKey struct {
	year int
	sub  int
}

// FromRecords converts signed-up events into entries. Events without logged
// hours count as zero.
func FromRecords(records []*types.HoursRecord) []Entry {
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		var h float64
		if r.Hours != nil {
			h = *r.Hours
		}
		entries = append(entries, Entry{Date: r.EventDate, Hours: h})
	}
	return entries
}

// Aggregate sums entries per period bucket, one bucket per distinct key,
// ascending by key.
func Aggregate(entries []Entry, period Period) []Bucket {
	sums := make(map[bucketKey]float64)
	for _, e := range entries {
		sums[keyFor(e.Date, period)] += e.Hours
	}

	keys := make([]bucketKey, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].sub < keys[j].sub
	})

	buckets := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, Bucket{Label: label(k, period), Hours: sums[k]})
	}

	return buckets
}

// Total is the sum of every entry regardless of bucket.
func Total(entries []Entry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Hours
	}
	return total
}

// WeekOfYear numbers weeks starting on Sunday, week 1 containing Jan 1.
func WeekOfYear(t time.Time) int {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	offset := int(jan1.Weekday())
	return int(math.Ceil(float64(t.YearDay()+offset) / 7))
}

func keyFor(t time.Time, period Period) bucketKey {
	switch period {
	case PeriodYear:
		return bucketKey{year: t.Year()}
	case PeriodWeek:
		return bucketKey{year: t.Year(), sub: WeekOfYear(t)}
	default:
		return bucketKey{year: t.Year(), sub: int(t.Month())}
	}
}

func label(k bucketKey, period Period) string {
	switch period {
	case PeriodYear:
		return fmt.Sprintf("%04d", k.year)
	case PeriodWeek:
		return fmt.Sprintf("%04d-W%d", k.year, k.sub)
	default:
		return fmt.Sprintf("%04d-%02d", k.year, k.sub)
	}
}
