package worker

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vytor/wordflash/internal/logger"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/repository"
)

// PersistCardJob writes a card's scheduling state back to storage.
type PersistCardJob struct {
	Repo repository.CardRepository
	Card models.Card
}

func (j *PersistCardJob) Name() string { return "persist_card" }

func (j *PersistCardJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("card_id", j.Card.ID)

	err := j.Repo.Update(ctx, j.Card)
	if errors.Is(err, sql.ErrNoRows) {
		// Deleted while a session still held it.
		log.Warn("card no longer exists, dropping update")
		return nil
	}
	return err
}

// RecordReviewJob appends one answer to the review history.
type RecordReviewJob struct {
	Repo  repository.CardRepository
	Event models.ReviewEvent
}

func (j *RecordReviewJob) Name() string { return "record_review" }

func (j *RecordReviewJob) Run(ctx context.Context) error {
	return j.Repo.InsertReviewHistory(ctx, j.Event)
}
