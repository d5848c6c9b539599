package flashcard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/models"
)

var legacyToday = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

func TestApplyReview_PerfectScoreSequence(t *testing.T) {
	card := models.Card{ID: "w1", Factor: 2.5}

	card = flashcard.ApplyReview(card, models.QualityEasy, legacyToday)
	assert.Equal(t, 1, card.Reps)
	assert.Equal(t, 1, card.Interval, "first repetition is one day")
	assert.InDelta(t, 2.6, card.Factor, 1e-9)

	card = flashcard.ApplyReview(card, models.QualityEasy, legacyToday)
	assert.Equal(t, 2, card.Reps)
	assert.Equal(t, 6, card.Interval, "second repetition is six days")

	card = flashcard.ApplyReview(card, models.QualityEasy, legacyToday)
	assert.Equal(t, 3, card.Reps)
	assert.Equal(t, 16, card.Interval, "6 * 2.7 rounds to 16")
	assert.InDelta(t, 2.8, card.Factor, 1e-9)

	require.NotNil(t, card.Due)
	assert.Equal(t, "2024-03-26", card.DueString())
	assert.Equal(t, models.StateReview, card.State)
}

func TestApplyReview_Again(t *testing.T) {
	card := models.Card{
		State:    models.StateReview,
		Factor:   2.5,
		Interval: 10,
		Reps:     4,
	}

	updated := flashcard.ApplyReview(card, models.QualityAgain, legacyToday)

	assert.Equal(t, 1, updated.Interval, "interval should reset to 1 for 'again'")
	assert.Equal(t, 0, updated.Reps, "repetitions restart after a failure")
	assert.Equal(t, 1, updated.Lapses)
	assert.InDelta(t, 1.96, updated.Factor, 1e-9)
	assert.Equal(t, "2024-03-11", updated.DueString())
}

func TestApplyReview_MinEaseFactor(t *testing.T) {
	card := models.Card{State: models.StateReview, Factor: 1.3, Interval: 10}

	// Repeated failures should not drop below the floor.
	for i := 0; i < 10; i++ {
		card = flashcard.ApplyReview(card, models.QualityAgain, legacyToday)
		assert.GreaterOrEqual(t, card.Factor, flashcard.MinFactor, "ease factor should not drop below 1.3")
	}
}

func TestApplyReview_DoesNotMutateInput(t *testing.T) {
	due := legacyToday
	card := models.Card{Factor: 2.5, Interval: 6, Reps: 2, Due: &due}

	_ = flashcard.ApplyReview(card, models.QualityGood, legacyToday)

	assert.Equal(t, 6, card.Interval)
	assert.Equal(t, 2, card.Reps)
	assert.Equal(t, legacyToday, *card.Due)
}

func TestLegacyScheduler_FailuresAreImmediate(t *testing.T) {
	s := flashcard.NewLegacyScheduler(flashcard.FixedClock(legacyToday.Add(15 * time.Hour)))

	res := s.Schedule(models.Card{Factor: 2.5}, models.QualityAgain)
	assert.True(t, res.Immediate)

	res = s.Schedule(models.Card{Factor: 2.5}, models.QualityEasy)
	assert.False(t, res.Immediate)
	assert.Equal(t, "2024-03-11", res.Card.DueString())
}
