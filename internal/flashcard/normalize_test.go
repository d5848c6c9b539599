package flashcard_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/models"
)

func decodeRaw(t *testing.T, s string) models.RawCard {
	t.Helper()
	var raw models.RawCard
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestNormalize_Defaults(t *testing.T) {
	c := flashcard.Normalize(models.RawCard{ID: "a"})

	assert.Equal(t, "a", c.ID)
	assert.Equal(t, models.StateNew, c.State)
	assert.Equal(t, flashcard.DefaultFactor, c.Factor)
	assert.Zero(t, c.Interval)
	assert.Zero(t, c.Reps)
	assert.Zero(t, c.Lapses)
	assert.Zero(t, c.StepIndex)
	assert.Zero(t, c.LapseStepIndex)
	assert.Nil(t, c.Due)
}

func TestNormalize_KeepsModernFields(t *testing.T) {
	raw := decodeRaw(t, `{
		"id": "w-9", "front": "apple", "back": "яблоко", "tags": ["food", " fruit "],
		"state": "review", "factor": 2.1, "ivl": 12, "reps": 7, "lapses": 1,
		"stepIndex": 0, "lapseStepIndex": 0, "due": "2024-06-20"
	}`)

	c := flashcard.Normalize(raw)

	assert.Equal(t, "apple", c.Front)
	assert.Equal(t, "яблоко", c.Back)
	assert.Equal(t, []string{"food", "fruit"}, c.Tags)
	assert.Equal(t, models.StateReview, c.State)
	assert.Equal(t, 2.1, c.Factor)
	assert.Equal(t, 12, c.Interval)
	assert.Equal(t, 7, c.Reps)
	assert.Equal(t, 1, c.Lapses)
	assert.Equal(t, "2024-06-20", c.DueString())
}

func TestNormalize_ReadsExportedCard(t *testing.T) {
	due := time.Date(2024, time.June, 20, 0, 0, 0, 0, time.Local)
	cards := []models.Card{
		{ID: "w-1", Front: "house", Back: "дом", State: models.StateLearning, Factor: 2.5, StepIndex: 1, Due: &due},
		{ID: "w-2", Front: "cat", Back: "кот", State: models.StateRelearning, Factor: 2.3, Interval: 1, Lapses: 2, LapseStepIndex: 1, Due: &due},
	}

	for _, want := range cards {
		t.Run(want.ID, func(t *testing.T) {
			data, err := json.Marshal(want)
			require.NoError(t, err)

			got := flashcard.Normalize(decodeRaw(t, string(data)))

			assert.Equal(t, want.State, got.State)
			assert.Equal(t, want.StepIndex, got.StepIndex)
			assert.Equal(t, want.LapseStepIndex, got.LapseStepIndex)
			assert.Equal(t, want.Lapses, got.Lapses)
			assert.Equal(t, "2024-06-20", got.DueString())
		})
	}
}

func TestNormalize_PrefersCamelCaseStepIndex(t *testing.T) {
	raw := decodeRaw(t, `{"state": "learning", "stepIndex": 1, "step_index": 0}`)

	assert.Equal(t, 1, flashcard.Normalize(raw).StepIndex)
}

func TestNormalize_MigratesLegacyRecord(t *testing.T) {
	raw := decodeRaw(t, `{
		"id": 17, "english": "borrow", "russian": "занимать",
		"repetition": "3", "interval": 15, "efactor": 2.36,
		"dueDate": "2024-05-01T00:00:00.000Z", "tags": "verbs, money"
	}`)

	c := flashcard.Normalize(raw)

	assert.Equal(t, "17", c.ID)
	assert.Equal(t, "borrow", c.Front)
	assert.Equal(t, "занимать", c.Back)
	assert.Equal(t, models.StateReview, c.State)
	assert.Equal(t, 3, c.Reps)
	assert.Equal(t, 15, c.Interval)
	assert.Equal(t, 2.36, c.Factor)
	assert.Equal(t, "2024-05-01", c.DueString())
	assert.Equal(t, []string{"verbs", "money"}, c.Tags)
}

func TestNormalize_DegradesMalformedInput(t *testing.T) {
	raw := decodeRaw(t, `{
		"state": "archived", "factor": "", "ivl": "n/a", "reps": -4,
		"lapses": null, "due": "sometime", "tags": 12
	}`)

	c := flashcard.Normalize(raw)

	assert.Equal(t, models.StateNew, c.State)
	assert.Equal(t, flashcard.DefaultFactor, c.Factor)
	assert.Zero(t, c.Interval)
	assert.Zero(t, c.Reps)
	assert.Zero(t, c.Lapses)
	assert.Nil(t, c.Due)
	assert.Nil(t, c.Tags)
}

func TestNormalize_RaisesFactorToFloor(t *testing.T) {
	c := flashcard.NormalizeCard(models.Card{Factor: 0.9})
	assert.Equal(t, flashcard.MinFactor, c.Factor)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"id": "x", "state": "learning", "stepIndex": 1, "due": "2024-06-01"}`,
		`{"english": "cat", "repetition": 1, "efactor": 1.1, "dueDate": "2024-01-02"}`,
		`{"state": "relearning", "factor": 1.8, "ivl": 1, "lapses": 3, "lapseStepIndex": 0}`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := flashcard.Normalize(decodeRaw(t, in))
			twice := flashcard.NormalizeCard(once)
			assert.Equal(t, once, twice)
		})
	}
}

func TestNormalizeCard_TruncatesDueToDay(t *testing.T) {
	due := time.Date(2024, time.June, 3, 18, 45, 0, 0, time.Local)
	c := flashcard.NormalizeCard(models.Card{State: models.StateReview, Due: &due})

	require.NotNil(t, c.Due)
	assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.Local), *c.Due)
	assert.Equal(t, 18, due.Hour(), "input is left untouched")
}
