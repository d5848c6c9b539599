// Package stats derives dashboard figures from cards and review history.
package stats

import (
	"time"

	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/models"
)

// Interval thresholds, in days, for the maturity buckets.
const (
	NewMaxInterval      = 1
	LearningMaxInterval = 21
)

// Widths of the due forecast and the known-words history.
const (
	DefaultForecastDays = 7
	DefaultProgressDays = 30
)

// Buckets sorts cards by interval into new, learning and known.
func Buckets(cards []models.Card) models.MaturityBuckets {
	var b models.MaturityBuckets
	for _, c := range cards {
		switch {
		case c.Interval <= NewMaxInterval:
			b.New++
		case c.Interval <= LearningMaxInterval:
			b.Learning++
		default:
			b.Known++
		}
	}
	return b
}

// Forecast counts reviews falling due on each of the next days, starting
// with today. Overdue cards count towards today; unseen cards are skipped.
func Forecast(cards []models.Card, today time.Time, days int) []models.ForecastDay {
	if days <= 0 {
		days = DefaultForecastDays
	}
	today = flashcard.DateOf(today)

	out := make([]models.ForecastDay, days)
	for i := range out {
		d := flashcard.AddDays(today, i)
		out[i] = models.ForecastDay{Date: d, Day: d.Format(time.DateOnly)}
	}

	for _, c := range cards {
		if c.State == models.StateNew {
			continue
		}
		offset := 0
		if c.Due != nil {
			offset = daysBetween(today, *c.Due)
		}
		if offset < 0 {
			offset = 0
		}
		if offset < days {
			out[offset].Count++
		}
	}
	return out
}

// Progress reports, for each of the days ending today, how many known cards
// (interval beyond LearningMaxInterval) were due strictly after that day.
// Undated cards never count.
func Progress(cards []models.Card, today time.Time, days int) []models.ProgressDay {
	if days <= 0 {
		days = DefaultProgressDays
	}
	today = flashcard.DateOf(today)

	out := make([]models.ProgressDay, days)
	for i := range out {
		d := flashcard.AddDays(today, i-days+1)
		out[i] = models.ProgressDay{Date: d, Day: d.Format(time.DateOnly)}
	}

	for _, c := range cards {
		if c.Interval <= LearningMaxInterval || c.Due == nil {
			continue
		}
		for i := range out {
			if daysBetween(out[i].Date, *c.Due) > 0 {
				out[i].Known++
			}
		}
	}
	return out
}

// Streak counts consecutive review days ending today, or ending yesterday
// when nothing has been reviewed yet today. reviewDays may be unsorted and
// contain duplicates.
func Streak(reviewDays []time.Time, today time.Time) int {
	seen := make(map[string]bool, len(reviewDays))
	for _, d := range reviewDays {
		seen[d.Format(time.DateOnly)] = true
	}

	day := flashcard.DateOf(today)
	if !seen[day.Format(time.DateOnly)] {
		day = flashcard.AddDays(day, -1)
	}

	streak := 0
	for seen[day.Format(time.DateOnly)] {
		streak++
		day = flashcard.AddDays(day, -1)
	}
	return streak
}

// Summarize assembles the dashboard for one deck.
func Summarize(deck string, cards []models.Card, reviewDays []time.Time, today time.Time, forecastDays int) models.DeckStats {
	s := models.DeckStats{
		Deck:       deck,
		TotalCards: len(cards),
		ByState:    make(map[models.State]int, len(models.States)),
		Buckets:    Buckets(cards),
		Forecast:   Forecast(cards, today, forecastDays),
		Progress:   Progress(cards, today, DefaultProgressDays),
		Streak:     Streak(reviewDays, today),
	}
	for _, st := range models.States {
		s.ByState[st] = 0
	}

	var factorSum float64
	var ivlSum, seen int
	for _, c := range cards {
		s.ByState[c.State]++
		s.TotalLapses += c.Lapses
		if flashcard.IsDue(c, today) {
			s.DueToday++
		}
		if c.State != models.StateNew {
			factorSum += c.Factor
			ivlSum += c.Interval
			seen++
		}
	}
	if seen > 0 {
		s.AvgFactor = factorSum / float64(seen)
		s.AvgIntervalDays = float64(ivlSum) / float64(seen)
	}
	return s
}

// daysBetween counts calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
