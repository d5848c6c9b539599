package repository

import (
	"context"
	"time"

	"github.com/vytor/wordflash/internal/models"
)

// CardRepository handles card and review history data access.
// Get, Update and Delete return sql.ErrNoRows when the card does not exist.
type CardRepository interface {
	Get(ctx context.Context, id string) (*models.Card, error)
	List(ctx context.Context, filter models.CardFilter) ([]models.Card, error)
	Decks(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, card models.Card) error
	UpsertBatch(ctx context.Context, cards []models.Card) error
	Update(ctx context.Context, card models.Card) error
	Delete(ctx context.Context, deck, id string) error
	CountByState(ctx context.Context, deck string) (map[models.State]int, error)
	InsertReviewHistory(ctx context.Context, event models.ReviewEvent) error
	// ReviewDays lists distinct days with at least one review in deck, newest
	// first, stopping at since.
	ReviewDays(ctx context.Context, deck string, since time.Time) ([]time.Time, error)
}
