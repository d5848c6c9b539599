package flashcard

import (
	"slices"
	"time"

	"github.com/vytor/wordflash/internal/models"
)

// BuildQueue orders a study session: reviews that are due (oldest first),
// then up to newCardLimit new cards in input order, then cards that are not
// due yet as filler.
//
// A review card without a due date counts as due today. Ties keep their
// input order.
func BuildQueue(cards []models.Card, newCardLimit int, today time.Time) []models.Card {
	today = DateOf(today)
	newCardLimit = max(newCardLimit, 0)

	var due, fresh, future []models.Card
	for _, card := range cards {
		c := NormalizeCard(card)
		switch {
		case c.State == models.StateNew:
			if len(fresh) < newCardLimit {
				fresh = append(fresh, c)
			}
		case IsDue(c, today):
			due = append(due, c)
		default:
			future = append(future, c)
		}
	}

	byDue := func(a, b models.Card) int {
		return CompareDays(effectiveDue(a, today), effectiveDue(b, today))
	}
	slices.SortStableFunc(due, byDue)
	slices.SortStableFunc(future, byDue)

	queue := make([]models.Card, 0, len(due)+len(fresh)+len(future))
	queue = append(queue, due...)
	queue = append(queue, fresh...)
	return append(queue, future...)
}

// IsDue reports whether a non-new card is eligible for review on today.
func IsDue(c models.Card, today time.Time) bool {
	if c.State == models.StateNew {
		return false
	}
	return c.Due == nil || CompareDays(*c.Due, today) <= 0
}

func effectiveDue(c models.Card, today time.Time) time.Time {
	if c.Due == nil {
		return today
	}
	return *c.Due
}
