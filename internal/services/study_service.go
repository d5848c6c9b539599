package services

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/vytor/wordflash/internal/errors"
	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/jobs"
	"github.com/vytor/wordflash/internal/logger"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/repository"
	"github.com/vytor/wordflash/internal/session"
)

// SessionInfo describes a study session to clients.
type SessionInfo struct {
	ID        string `json:"id"`
	Deck      string `json:"deck"`
	State     string `json:"state"`
	Remaining int    `json:"remaining"`
	Answered  int    `json:"answered"`
}

// AnswerResult is the outcome of answering the current card.
type AnswerResult struct {
	Card      models.Card `json:"card"`
	Immediate bool        `json:"immediate"`
	Session   SessionInfo `json:"session"`
}

// StudyService runs study sessions. Sessions live in memory and expire
// after a period of inactivity.
type StudyService interface {
	Start(ctx context.Context, deck string, newLimit int) (*SessionInfo, error)
	// Next returns the card to show, or nil once the session is complete.
	// Calling it again before answering returns the same card.
	Next(ctx context.Context, id string) (*models.Card, *SessionInfo, error)
	Answer(ctx context.Context, id, cardID string, q models.Quality, timeSeconds float64) (*AnswerResult, error)
	Undo(ctx context.Context, id string) (*models.Card, *SessionInfo, error)
	End(ctx context.Context, id string) error
	// Close ends every open session. Answers awaiting their undo window are
	// recorded first.
	Close(ctx context.Context)
	// Sweep drops sessions idle since before now minus the TTL and reports
	// how many it removed.
	Sweep(now time.Time) int
}

// StudyOptions configures a StudyService.
type StudyOptions struct {
	Scheduler    session.Scheduler
	LapsePolicy  session.LapsePolicy
	NewCardLimit int
	TTL          time.Duration
	Clock        flashcard.Clock
}

type studySession struct {
	mu       sync.Mutex
	id       string
	deck     string
	runner   *session.Runner
	current  *models.Card
	pending  *models.ReviewEvent
	lastUsed time.Time
}

func (s *studySession) info() SessionInfo {
	return SessionInfo{
		ID:        s.id,
		Deck:      s.deck,
		State:     s.runner.State().String(),
		Remaining: s.runner.Remaining(),
		Answered:  s.runner.Answered(),
	}
}

type studyService struct {
	repo  repository.CardRepository
	queue jobs.JobQueue
	opts  StudyOptions
	newID func() (string, error)

	mu       sync.Mutex
	sessions map[string]*studySession
}

// NewStudyService creates a new StudyService
func NewStudyService(repo repository.CardRepository, queue jobs.JobQueue, opts StudyOptions) StudyService {
	if opts.Clock == nil {
		opts.Clock = flashcard.SystemClock
	}
	if opts.Scheduler == nil {
		opts.Scheduler = flashcard.NewScheduler(flashcard.WithClock(opts.Clock))
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	return &studyService{
		repo:     repo,
		queue:    queue,
		opts:     opts,
		newID:    func() (string, error) { return gonanoid.New() },
		sessions: make(map[string]*studySession),
	}
}

func (s *studyService) Start(ctx context.Context, deck string, newLimit int) (*SessionInfo, error) {
	log := logger.FromContext(ctx).WithField("deck", deck)

	if deck == "" {
		return nil, errors.NewValidationError("deck", "cannot be empty")
	}
	if newLimit < 0 {
		newLimit = s.opts.NewCardLimit
	}

	cards, err := s.repo.List(ctx, models.CardFilter{Deck: deck})
	if err != nil {
		log.Error("failed to load cards: %v", err)
		return nil, errors.NewInternalError(err)
	}

	id, err := s.newID()
	if err != nil {
		log.Error("failed to generate session id: %v", err)
		return nil, errors.NewInternalError(err)
	}

	queue := flashcard.BuildQueue(cards, newLimit, s.opts.Scheduler.Today())
	runner := session.NewRunner(s.opts.Scheduler, queue, jobs.Sink{Queue: s.queue}, session.WithLapsePolicy(s.opts.LapsePolicy))
	sess := &studySession{id: id, deck: deck, runner: runner, lastUsed: s.opts.Clock.Now()}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	log.Info("study session started: id=%s, cards=%d", id, len(queue))
	info := sess.info()
	return &info, nil
}

func (s *studyService) lookup(id string) (*studySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError("session", id)
	}
	return sess, nil
}

func (s *studyService) Next(ctx context.Context, id string) (*models.Card, *SessionInfo, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = s.opts.Clock.Now()

	if sess.current == nil {
		card, ok := sess.runner.Next()
		if ok {
			sess.current = &card
		}
	}

	info := sess.info()
	if sess.current == nil {
		s.flush(ctx, sess)
		logger.FromContext(ctx).Debug("session complete: id=%s", id)
		return nil, &info, nil
	}
	card := sess.current.Clone()
	return &card, &info, nil
}

func (s *studyService) Answer(ctx context.Context, id, cardID string, q models.Quality, timeSeconds float64) (*AnswerResult, error) {
	if !q.Valid() {
		return nil, errors.NewValidationError("quality", "must be between 1 and 5")
	}
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = s.opts.Clock.Now()

	if sess.current == nil {
		return nil, errors.NewConflictError("no card has been drawn; call next first", nil)
	}
	if sess.current.ID != cardID {
		return nil, errors.NewConflictError("card "+cardID+" is not the current card", nil)
	}

	res, err := sess.runner.Answer(ctx, *sess.current, q)
	if err != nil {
		switch {
		case stderrors.Is(err, session.ErrSessionComplete):
			return nil, errors.NewConflictError("session is complete", err)
		case stderrors.Is(err, session.ErrInvalidQuality):
			return nil, errors.NewValidationError("quality", err.Error())
		}
		return nil, errors.NewInternalError(err)
	}
	sess.current = nil

	event := models.ReviewEvent{
		CardID:      cardID,
		Quality:     q,
		TimeSeconds: timeSeconds,
		ReviewedOn:  s.opts.Scheduler.Today(),
		ReviewedAt:  s.opts.Clock.Now(),
	}
	// Only the latest answer can be undone, so the one before it is final.
	s.flush(ctx, sess)
	sess.pending = &event

	return &AnswerResult{Card: res.Card, Immediate: res.Immediate, Session: sess.info()}, nil
}

func (s *studyService) Undo(ctx context.Context, id string) (*models.Card, *SessionInfo, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = s.opts.Clock.Now()

	card, ok := sess.runner.Undo(ctx)
	if !ok {
		return nil, nil, errors.NewConflictError("nothing to undo", nil)
	}
	sess.pending = nil
	// The runner put any drawn card back behind the restored one.
	sess.current = nil
	info := sess.info()
	return &card, &info, nil
}

func (s *studyService) End(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return errors.NewNotFoundError("session", id)
	}

	sess.mu.Lock()
	s.flush(ctx, sess)
	sess.mu.Unlock()
	logger.FromContext(ctx).Info("study session ended: id=%s", id)
	return nil
}

func (s *studyService) Close(ctx context.Context) {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*studySession)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		s.flush(ctx, sess)
		sess.mu.Unlock()
	}
	if len(sessions) > 0 {
		logger.FromContext(ctx).WithPrefix("study").Info("closed %d open sessions", len(sessions))
	}
}

// flush records the history of the last answer once it can no longer be
// undone. The caller holds sess.mu.
func (s *studyService) flush(ctx context.Context, sess *studySession) {
	if sess.pending == nil {
		return
	}
	event := *sess.pending
	sess.pending = nil
	if err := s.queue.EnqueueReview(ctx, event); err != nil {
		// History is best effort; the answer itself already counted.
		logger.FromContext(ctx).WithField("session", sess.id).Warn("failed to enqueue review history: %v", err)
	}
}

func (s *studyService) Sweep(now time.Time) int {
	cutoff := now.Add(-s.opts.TTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastUsed.Before(cutoff)
		if idle {
			s.flush(context.Background(), sess)
		}
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Default().WithPrefix("study").Info("expired %d idle sessions", removed)
	}
	return removed
}
