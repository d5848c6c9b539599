package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vytor/wordflash/internal/config"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/repository"
	"github.com/vytor/wordflash/internal/services"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var deck string

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import cards from a JSON array (current or legacy export format)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			var raws []models.RawCard
			if err := json.Unmarshal(data, &raws); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			return ctx.withRepo(func(cfg config.Config, repo repository.CardRepository) error {
				svc := services.NewCardService(repo, ctx.clock, cfg.NewCardLimit)
				res, err := svc.Import(cmd.Context(), deck, raws)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d cards into %q (%d skipped)\n", res.Imported, deck, res.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&deck, "deck", "d", "", "Deck to import into")
	_ = cmd.MarkFlagRequired("deck")
	return cmd
}
