package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/vytor/wordflash/internal/db"
	"github.com/vytor/wordflash/internal/models"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// Each connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(context.Background(), sqlDB))
	return sqlDB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// Day returns midnight of the given date in the local zone.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// ReviewCard builds a review-state card due on due.
func ReviewCard(id, deck string, ivl int, due time.Time) models.Card {
	return models.Card{
		ID:       id,
		Deck:     deck,
		Front:    id + "-front",
		Back:     id + "-back",
		State:    models.StateReview,
		Factor:   2.5,
		Interval: ivl,
		Reps:     1,
		Due:      &due,
	}
}

// NewCard builds an unseen card.
func NewCard(id, deck string) models.Card {
	return models.Card{
		ID:     id,
		Deck:   deck,
		Front:  id + "-front",
		Back:   id + "-back",
		State:  models.StateNew,
		Factor: 2.5,
	}
}
