package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/wordflash/internal/logger"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

var cardColumns = []string{
	"id", "deck", "front", "back", "tags", "state", "factor", "ivl", "reps",
	"lapses", "step_index", "lapse_step_index", "due", "created_at", "updated_at",
}

const upsertSuffix = `ON CONFLICT(id) DO UPDATE SET
    deck = excluded.deck, front = excluded.front, back = excluded.back, tags = excluded.tags,
    state = excluded.state, factor = excluded.factor, ivl = excluded.ivl, reps = excluded.reps,
    lapses = excluded.lapses, step_index = excluded.step_index,
    lapse_step_index = excluded.lapse_step_index, due = excluded.due, updated_at = excluded.updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

type cardRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCardRepository creates a new CardRepository implementation
func NewCardRepository(db *sql.DB) repository.CardRepository {
	return &cardRepository{db: db, now: time.Now}
}

func (r *cardRepository) Get(ctx context.Context, id string) (*models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("getting card: id=%s", id)

	query, args, err := sqlBuilder.Select(cardColumns...).From("cards").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	c, err := scanCard(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found: id=%s", id)
		} else {
			log.Error("failed to get card: %v", err)
		}
		return nil, err
	}
	return &c, nil
}

func (r *cardRepository) List(ctx context.Context, filter models.CardFilter) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("listing cards with filter: deck=%s, states=%v, tag=%s, limit=%d, offset=%d",
		filter.Deck, filter.States, filter.Tag, filter.Limit, filter.Offset)

	query := sqlBuilder.Select(cardColumns...).From("cards")
	if filter.Deck != "" {
		query = query.Where(squirrel.Eq{"deck": filter.Deck})
	}
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, s := range filter.States {
			states[i] = string(s)
		}
		query = query.Where(squirrel.Eq{"state": states})
	}
	if filter.Tag != "" {
		query = query.Where(squirrel.Expr("(',' || tags || ',') LIKE ?", "%,"+filter.Tag+",%"))
	}

	// Insertion order, which is the order new cards are introduced in.
	query = query.OrderBy("created_at ASC", "rowid ASC")

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
		if filter.Offset > 0 {
			query = query.Offset(uint64(filter.Offset))
		}
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list cards: %v", err)
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			log.Error("failed to scan card row: %v", err)
			return nil, err
		}
		cards = append(cards, c)
	}
	log.Debug("found %d cards", len(cards))
	return cards, rows.Err()
}

func (r *cardRepository) Decks(ctx context.Context) ([]string, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT deck FROM cards ORDER BY deck`)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return nil, err
	}
	defer rows.Close()

	var decks []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

func (r *cardRepository) Upsert(ctx context.Context, c models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("upserting card: id=%s, deck=%s", c.ID, c.Deck)

	if err := r.upsert(ctx, r.db, c); err != nil {
		log.Error("failed to upsert card: %v", err)
		return err
	}
	return nil
}

func (r *cardRepository) UpsertBatch(ctx context.Context, cards []models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("upserting %d cards in batch", len(cards))

	if len(cards) == 0 {
		return nil
	}

	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		for _, c := range cards {
			if err := r.upsert(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to upsert cards: %v", err)
		return err
	}
	log.Debug("batch upserted %d cards", len(cards))
	return nil
}

func (r *cardRepository) upsert(ctx context.Context, db execer, c models.Card) error {
	now := r.now()
	created := c.CreatedAt
	if created.IsZero() {
		created = now
	}

	query, args, err := sqlBuilder.Insert("cards").
		Columns(cardColumns...).
		Values(c.ID, c.Deck, c.Front, c.Back, joinTags(c.Tags), string(c.State), c.Factor, c.Interval,
			c.Reps, c.Lapses, c.StepIndex, c.LapseStepIndex, dateValue(c.Due), created, now).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

func (r *cardRepository) Update(ctx context.Context, c models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("updating card: id=%s, state=%s, ivl=%d, factor=%.2f, due=%s",
		c.ID, c.State, c.Interval, c.Factor, c.DueString())

	query, args, err := sqlBuilder.Update("cards").
		SetMap(map[string]any{
			"front":            c.Front,
			"back":             c.Back,
			"tags":             joinTags(c.Tags),
			"state":            string(c.State),
			"factor":           c.Factor,
			"ivl":              c.Interval,
			"reps":             c.Reps,
			"lapses":           c.Lapses,
			"step_index":       c.StepIndex,
			"lapse_step_index": c.LapseStepIndex,
			"due":              dateValue(c.Due),
			"updated_at":       r.now(),
		}).
		Where(squirrel.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update card: %v", err)
		return err
	}
	return affectedOrNoRows(res)
}

func (r *cardRepository) Delete(ctx context.Context, deck, id string) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("deleting card: deck=%s, id=%s", deck, id)

	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ? AND deck = ?`, id, deck)
	if err != nil {
		log.Error("failed to delete card: %v", err)
		return err
	}
	return affectedOrNoRows(res)
}

func (r *cardRepository) CountByState(ctx context.Context, deck string) (map[models.State]int, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("counting cards by state: deck=%s", deck)

	query := sqlBuilder.Select("state", "COUNT(*)").From("cards").GroupBy("state")
	if deck != "" {
		query = query.Where(squirrel.Eq{"deck": deck})
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to count cards: %v", err)
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.State]int, len(models.States))
	for _, s := range models.States {
		counts[s] = 0
	}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[models.State(state)] = n
	}
	return counts, rows.Err()
}

func (r *cardRepository) InsertReviewHistory(ctx context.Context, ev models.ReviewEvent) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("inserting review history: card_id=%s, quality=%d, time=%.2fs", ev.CardID, ev.Quality, ev.TimeSeconds)

	reviewedAt := ev.ReviewedAt
	if reviewedAt.IsZero() {
		reviewedAt = r.now()
	}
	reviewedOn := ev.ReviewedOn
	if reviewedOn.IsZero() {
		reviewedOn = reviewedAt
	}

	query, args, err := sqlBuilder.Insert("review_history").
		Columns("card_id", "quality", "time_seconds", "reviewed_on", "reviewed_at").
		Values(ev.CardID, int(ev.Quality), ev.TimeSeconds, reviewedOn.Format(time.DateOnly), reviewedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to insert review history: %v", err)
		return err
	}
	return nil
}

func (r *cardRepository) ReviewDays(ctx context.Context, deck string, since time.Time) ([]time.Time, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("listing review days: deck=%s, since=%s", deck, since.Format(time.DateOnly))

	query := sqlBuilder.Select("h.reviewed_on").Distinct().
		From("review_history h").
		Join("cards c ON c.id = h.card_id").
		Where(squirrel.GtOrEq{"h.reviewed_on": since.Format(time.DateOnly)}).
		OrderBy("h.reviewed_on DESC")
	if deck != "" {
		query = query.Where(squirrel.Eq{"c.deck": deck})
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list review days: %v", err)
		return nil, err
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if d := parseDate(s); d != nil {
			days = append(days, *d)
		}
	}
	return days, rows.Err()
}

func scanCard(row rowScanner) (models.Card, error) {
	var (
		c     models.Card
		tags  string
		state string
		due   sql.NullString
	)
	err := row.Scan(&c.ID, &c.Deck, &c.Front, &c.Back, &tags, &state, &c.Factor, &c.Interval, &c.Reps,
		&c.Lapses, &c.StepIndex, &c.LapseStepIndex, &due, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return models.Card{}, err
	}
	c.Tags = splitTags(tags)
	c.State = models.State(state)
	c.Due = parseDate(due)
	return c, nil
}
