package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/vytor/wordflash/internal/config"
	apperrors "github.com/vytor/wordflash/internal/errors"
	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/grading"
	"github.com/vytor/wordflash/internal/jobs"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/repository"
	"github.com/vytor/wordflash/internal/services"
	"github.com/vytor/wordflash/internal/worker"
)

const (
	cmdQuit = ":q"
	cmdUndo = ":u"
)

func newStudyCommand(ctx *commandContext) *cobra.Command {
	var deck string
	var newLimit int
	var typed bool

	cmd := &cobra.Command{
		Use:   "study",
		Short: "Study a deck interactively",
		Long: "Study a deck interactively. Type " + cmdUndo + " to undo the last answer and " +
			cmdQuit + " to stop. With --typed the answer is typed and graded automatically.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lock := flock.New(lockPath(cfg.DBPath))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another study session is already using %s", cfg.DBPath)
			}
			defer func() { _ = lock.Unlock() }()

			return ctx.withRepo(func(cfg config.Config, repo repository.CardRepository) error {
				opts, err := services.StudyOptionsFromConfig(cfg, ctx.clock)
				if err != nil {
					return err
				}

				pool := worker.NewPool(cfg.PersistWorkerCount, cfg.PersistQueueSize)
				pool.Start(cmd.Context())
				defer pool.Stop()

				loop := &studyLoop{
					study:    services.NewStudyService(repo, jobs.NewWorkerQueue(pool, repo), opts),
					clock:    ctx.clock,
					in:       bufio.NewScanner(cmd.InOrStdin()),
					out:      cmd.OutOrStdout(),
					typed:    typed,
					colorize: shouldColorize(cmd.OutOrStdout()),
				}
				return loop.run(cmd.Context(), deck, newLimit)
			})
		},
	}

	cmd.Flags().StringVarP(&deck, "deck", "d", "", "Deck to study")
	cmd.Flags().IntVar(&newLimit, "new-limit", -1, "Maximum new cards (default from config)")
	cmd.Flags().BoolVar(&typed, "typed", false, "Type answers and grade them automatically")
	_ = cmd.MarkFlagRequired("deck")
	return cmd
}

// lockPath derives the lock file from a database path or DSN.
func lockPath(dbPath string) string {
	p := strings.TrimPrefix(dbPath, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || p == ":memory:" {
		p = "wordflash"
	}
	return filepath.Clean(p) + ".lock"
}

type studyLoop struct {
	study    services.StudyService
	clock    flashcard.Clock
	in       *bufio.Scanner
	out      io.Writer
	typed    bool
	colorize bool
}

type action int

const (
	actionAnswer action = iota
	actionUndo
	actionQuit
)

func (l *studyLoop) run(ctx context.Context, deck string, newLimit int) error {
	info, err := l.study.Start(ctx, deck, newLimit)
	if err != nil {
		return err
	}
	defer func() { _ = l.study.End(ctx, info.ID) }()

	fmt.Fprintf(l.out, "Studying %q: %d cards\n", deck, info.Remaining)
	for {
		card, current, err := l.study.Next(ctx, info.ID)
		if err != nil {
			return err
		}
		if card == nil {
			fmt.Fprintf(l.out, "Session complete: %d answers\n", current.Answered)
			return nil
		}

		fmt.Fprintf(l.out, "\n[%d more] %s\n", current.Remaining, paint(l.colorize, card.Front, text.Bold))
		start := l.clock.Now()

		act, q := l.ask(*card)
		switch act {
		case actionQuit:
			fmt.Fprintf(l.out, "Stopped: %d answers\n", current.Answered)
			return nil
		case actionUndo:
			l.undo(ctx, info.ID)
			continue
		}

		elapsed := l.clock.Now().Sub(start).Seconds()
		res, err := l.study.Answer(ctx, info.ID, card.ID, q, elapsed)
		if err != nil {
			return err
		}
		if res.Immediate {
			fmt.Fprintln(l.out, paint(l.colorize, "again later in this session", text.FgYellow))
		} else {
			fmt.Fprintf(l.out, "next review %s\n", res.Card.DueString())
		}
	}
}

func (l *studyLoop) undo(ctx context.Context, id string) {
	card, _, err := l.study.Undo(ctx, id)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok && appErr.Code == apperrors.ErrCodeConflict {
			fmt.Fprintln(l.out, "Nothing to undo")
			return
		}
		fmt.Fprintf(l.out, "Undo failed: %v\n", err)
		return
	}
	fmt.Fprintf(l.out, "Undid answer for %q\n", card.Front)
}

// readLine returns the next input line; ok is false at end of input.
func (l *studyLoop) readLine(prompt string) (string, bool) {
	fmt.Fprint(l.out, prompt)
	if !l.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(l.in.Text()), true
}

func command(line string) (action, bool) {
	switch line {
	case cmdQuit:
		return actionQuit, true
	case cmdUndo:
		return actionUndo, true
	}
	return actionAnswer, false
}

func (l *studyLoop) ask(card models.Card) (action, models.Quality) {
	if l.typed {
		return l.askTyped(card)
	}

	line, ok := l.readLine("(enter to reveal) ")
	if !ok {
		return actionQuit, 0
	}
	if act, isCmd := command(line); isCmd {
		return act, 0
	}
	fmt.Fprintf(l.out, "  %s\n", paint(l.colorize, card.Back, text.FgCyan))

	for {
		line, ok := l.readLine("again/hard/good/easy [1/3/4/5]: ")
		if !ok {
			return actionQuit, 0
		}
		if act, isCmd := command(line); isCmd {
			return act, 0
		}
		q, err := models.ParseQuality(line)
		if err == nil {
			return actionAnswer, q
		}
		fmt.Fprintf(l.out, "%v\n", err)
	}
}

func (l *studyLoop) askTyped(card models.Card) (action, models.Quality) {
	line, ok := l.readLine("> ")
	if !ok {
		return actionQuit, 0
	}
	if act, isCmd := command(line); isCmd {
		return act, 0
	}

	v := grading.Grade(line, card.Back)
	if v.Correct {
		fmt.Fprintln(l.out, paint(l.colorize, "correct", text.FgGreen))
	} else {
		fmt.Fprintf(l.out, "%s: %s\n", paint(l.colorize, "expected", text.FgRed), v.Expected)
	}
	return actionAnswer, v.Quality
}
