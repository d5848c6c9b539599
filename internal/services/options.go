package services

import (
	"fmt"
	"time"

	"github.com/vytor/wordflash/internal/config"
	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/session"
)

// StudyOptionsFromConfig picks the scheduler and lapse policy named by cfg.
func StudyOptionsFromConfig(cfg config.Config, clock flashcard.Clock) (StudyOptions, error) {
	if clock == nil {
		clock = flashcard.SystemClock
	}
	policy, err := session.ParseLapsePolicy(cfg.LapsePolicy)
	if err != nil {
		return StudyOptions{}, err
	}

	var scheduler session.Scheduler
	switch cfg.SchedulerMode {
	case "", "full":
		scheduler = flashcard.NewScheduler(
			flashcard.WithClock(clock),
			flashcard.WithLearningSteps(cfg.LearningSteps),
			flashcard.WithRelearningSteps(cfg.RelearningSteps),
		)
	case "legacy":
		scheduler = flashcard.NewLegacyScheduler(clock)
	default:
		return StudyOptions{}, fmt.Errorf("unknown scheduler mode %q", cfg.SchedulerMode)
	}

	return StudyOptions{
		Scheduler:    scheduler,
		LapsePolicy:  policy,
		NewCardLimit: cfg.NewCardLimit,
		TTL:          time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		Clock:        clock,
	}, nil
}
