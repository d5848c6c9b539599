package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/vytor/wordflash/internal/config"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/repository"
	"github.com/vytor/wordflash/internal/services"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var deck string
	var newLimit int

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the cards a study session would start with",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepo(func(cfg config.Config, repo repository.CardRepository) error {
				svc := services.NewCardService(repo, ctx.clock, cfg.NewCardLimit)
				cards, err := svc.Queue(cmd.Context(), deck, newLimit)
				if err != nil {
					return err
				}
				if len(cards) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to study")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"#", "ID", "Front", "State", "Due", "Interval"},
					queueRows(cards),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&deck, "deck", "d", "", "Deck to preview")
	cmd.Flags().IntVar(&newLimit, "new-limit", -1, "Maximum new cards (default from config)")
	_ = cmd.MarkFlagRequired("deck")
	return cmd
}

func queueRows(cards []models.Card) [][]string {
	rows := make([][]string, 0, len(cards))
	for i, c := range cards {
		due := c.DueString()
		if due == "" {
			due = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			c.ID,
			c.Front,
			string(c.State),
			due,
			strconv.Itoa(c.Interval),
		})
	}
	return rows
}
