package services

import (
	"context"

	"github.com/vytor/wordflash/internal/errors"
	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/logger"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/repository"
	"github.com/vytor/wordflash/internal/stats"
)

// streakLookbackDays bounds how much review history a streak reads.
const streakLookbackDays = 366

// StatsService handles statistics-related business logic
type StatsService interface {
	DeckStats(ctx context.Context, deck string, forecastDays int) (*models.DeckStats, error)
}

type statsService struct {
	repo  repository.CardRepository
	clock flashcard.Clock
}

// NewStatsService creates a new StatsService
func NewStatsService(repo repository.CardRepository, clock flashcard.Clock) StatsService {
	if clock == nil {
		clock = flashcard.SystemClock
	}
	return &statsService{repo: repo, clock: clock}
}

func (s *statsService) DeckStats(ctx context.Context, deck string, forecastDays int) (*models.DeckStats, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting deck stats: deck=%s, forecast_days=%d", deck, forecastDays)

	if forecastDays < 0 || forecastDays > 366 {
		return nil, errors.NewValidationError("days", "must be between 0 and 366")
	}

	cards, err := s.repo.List(ctx, models.CardFilter{Deck: deck})
	if err != nil {
		log.Error("failed to load cards: %v", err)
		return nil, errors.NewInternalError(err)
	}

	today := flashcard.Today(s.clock)
	days, err := s.repo.ReviewDays(ctx, deck, flashcard.AddDays(today, -streakLookbackDays))
	if err != nil {
		log.Error("failed to load review days: %v", err)
		return nil, errors.NewInternalError(err)
	}

	normalized := make([]models.Card, len(cards))
	for i, c := range cards {
		normalized[i] = flashcard.NormalizeCard(c)
	}
	st := stats.Summarize(deck, normalized, days, today, forecastDays)
	return &st, nil
}
