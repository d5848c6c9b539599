package main

import (
	"strings"
	"sync"

	"github.com/vytor/wordflash/internal/config"
	"github.com/vytor/wordflash/internal/db"
	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/repository"
	"github.com/vytor/wordflash/internal/repository/sqlite"
)

type commandContext struct {
	configFlag *string
	dbFlag     *string
	clock      flashcard.Clock

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag, dbFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		dbFlag:     dbFlag,
		clock:      flashcard.SystemClock,
	}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var cfg config.Config
		var err error
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			cfg, err = config.LoadFrom(path)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			c.configErr = err
			return
		}
		if path := strings.TrimSpace(*c.dbFlag); path != "" {
			cfg.DBPath = path
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withRepo opens the database for the duration of fn.
func (c *commandContext) withRepo(fn func(cfg config.Config, repo repository.CardRepository) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(cfg, sqlite.NewCardRepository(database.DB))
}
