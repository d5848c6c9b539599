package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	"github.com/vytor/wordflash/internal/errors"
	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/logger"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/repository"
)

// ImportResult reports what an import did.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	IDs      []string `json:"ids"`
}

// CardService handles card-related business logic
type CardService interface {
	Import(ctx context.Context, deck string, raws []models.RawCard) (*ImportResult, error)
	List(ctx context.Context, filter models.CardFilter) ([]models.Card, error)
	Queue(ctx context.Context, deck string, newLimit int) ([]models.Card, error)
	Delete(ctx context.Context, deck, id string) error
	Decks(ctx context.Context) ([]string, error)
}

type cardService struct {
	repo         repository.CardRepository
	clock        flashcard.Clock
	newCardLimit int
	newID        func() string
}

// NewCardService creates a new CardService. newCardLimit applies when a
// caller asks for a queue without a limit of its own.
func NewCardService(repo repository.CardRepository, clock flashcard.Clock, newCardLimit int) CardService {
	if clock == nil {
		clock = flashcard.SystemClock
	}
	return &cardService{
		repo:         repo,
		clock:        clock,
		newCardLimit: newCardLimit,
		newID:        uuid.NewString,
	}
}

func (s *cardService) Import(ctx context.Context, deck string, raws []models.RawCard) (*ImportResult, error) {
	log := logger.FromContext(ctx).WithField("deck", deck)
	log.Info("importing %d cards", len(raws))

	deck = strings.TrimSpace(deck)
	if deck == "" {
		return nil, errors.NewValidationError("deck", "cannot be empty")
	}
	if len(raws) == 0 {
		return nil, errors.NewValidationError("cards", "at least one card is required")
	}

	res := &ImportResult{}
	cards := make([]models.Card, 0, len(raws))
	for _, raw := range raws {
		c := flashcard.Normalize(raw)
		if strings.TrimSpace(c.Front) == "" && strings.TrimSpace(c.Back) == "" {
			res.Skipped++
			continue
		}
		c.Deck = deck
		if c.ID == "" {
			c.ID = s.newID()
		}
		cards = append(cards, c)
		res.IDs = append(res.IDs, c.ID)
	}

	if err := s.repo.UpsertBatch(ctx, cards); err != nil {
		log.Error("failed to store imported cards: %v", err)
		return nil, errors.NewInternalError(err)
	}
	res.Imported = len(cards)
	log.Info("import finished: imported=%d, skipped=%d", res.Imported, res.Skipped)
	return res, nil
}

func (s *cardService) List(ctx context.Context, filter models.CardFilter) ([]models.Card, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing cards: deck=%s", filter.Deck)

	for _, st := range filter.States {
		if !st.Valid() {
			return nil, errors.NewValidationError("state", "unknown state "+string(st))
		}
	}

	cards, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error("failed to list cards: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return cards, nil
}

func (s *cardService) Queue(ctx context.Context, deck string, newLimit int) ([]models.Card, error) {
	log := logger.FromContext(ctx)
	if newLimit < 0 {
		newLimit = s.newCardLimit
	}
	log.Debug("building queue: deck=%s, new_limit=%d", deck, newLimit)

	cards, err := s.repo.List(ctx, models.CardFilter{Deck: deck})
	if err != nil {
		log.Error("failed to load cards: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return flashcard.BuildQueue(cards, newLimit, flashcard.Today(s.clock)), nil
}

func (s *cardService) Delete(ctx context.Context, deck, id string) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting card: deck=%s, id=%s", deck, id)

	if err := s.repo.Delete(ctx, deck, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("card", id)
		}
		log.Error("failed to delete card: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *cardService) Decks(ctx context.Context) ([]string, error) {
	decks, err := s.repo.Decks(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list decks: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return decks, nil
}
