package flashcard

import (
	"math"
	"time"

	"github.com/vytor/wordflash/internal/models"
)

// Normalize turns a partially populated record into a schedulable card.
// Missing or falsy fields fall back to defaults; it never fails.
//
// Records written by the SM-2-only version of the app carry repetition,
// efactor, interval and dueDate instead of reps, factor, ivl and due. Those
// are migrated here, and a stateless record that had already been repeated
// successfully is treated as a review card rather than new material.
func Normalize(raw models.RawCard) models.Card {
	c := models.Card{
		ID:             string(raw.ID),
		Deck:           raw.Deck,
		Front:          raw.Front,
		Back:           raw.Back,
		Tags:           []string(raw.Tags),
		State:          models.State(raw.State),
		Factor:         float64(raw.Factor),
		Interval:       raw.Interval.Int(),
		Reps:           raw.Reps.Int(),
		Lapses:         raw.Lapses.Int(),
		StepIndex:      raw.StepIndex.Int(),
		LapseStepIndex: raw.LapseStepIndex.Int(),
	}

	if c.Front == "" {
		c.Front = firstNonEmpty(raw.English, raw.Phrase)
	}
	if c.Back == "" {
		c.Back = raw.Russian
	}
	if c.Factor == 0 {
		c.Factor = float64(raw.EFactor)
	}
	if c.Interval == 0 {
		c.Interval = raw.LegacyInterval.Int()
	}
	if c.Reps == 0 {
		c.Reps = raw.Repetition.Int()
	}
	if c.StepIndex == 0 {
		c.StepIndex = raw.StepIndexSnake.Int()
	}
	if c.LapseStepIndex == 0 {
		c.LapseStepIndex = raw.LapseStepIndexSnake.Int()
	}
	if c.State == "" && raw.Repetition.Int() > 0 {
		c.State = models.StateReview
	}

	due := raw.Due
	if due == "" {
		due = raw.DueDate
	}
	if d, ok := ParseDate(due, time.Local); ok {
		c.Due = &d
	}

	return NormalizeCard(c)
}

// NormalizeCard applies the scheduling defaults to an already typed card.
// NormalizeCard(NormalizeCard(c)) == NormalizeCard(c).
func NormalizeCard(card models.Card) models.Card {
	c := card.Clone()
	if !c.State.Valid() {
		c.State = models.StateNew
	}
	switch {
	case c.Factor == 0 || math.IsNaN(c.Factor) || math.IsInf(c.Factor, 0):
		c.Factor = DefaultFactor
	case c.Factor < MinFactor:
		c.Factor = MinFactor
	}
	c.Interval = max(c.Interval, 0)
	c.Reps = max(c.Reps, 0)
	c.Lapses = max(c.Lapses, 0)
	c.StepIndex = max(c.StepIndex, 0)
	c.LapseStepIndex = max(c.LapseStepIndex, 0)
	if c.Due != nil {
		d := DateOf(*c.Due)
		c.Due = &d
	}
	if len(c.Tags) == 0 {
		c.Tags = nil
	}
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
