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

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var deck string
	var days int
	var progress bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show deck statistics and the due forecast",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepo(func(cfg config.Config, repo repository.CardRepository) error {
				svc := services.NewStatsService(repo, ctx.clock)
				st, err := svc.DeckStats(cmd.Context(), deck, days)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderTable([]string{"Metric", "Value"}, summaryRows(st), []columnAlignment{alignLeft, alignRight}))
				fmt.Fprint(out, renderTable([]string{"Date", "Due"}, forecastRows(st.Forecast), []columnAlignment{alignLeft, alignRight}))
				if progress {
					fmt.Fprint(out, renderTable([]string{"Date", "Known"}, progressRows(st.Progress), []columnAlignment{alignLeft, alignRight}))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&deck, "deck", "d", "", "Deck to summarise (all decks when empty)")
	cmd.Flags().IntVar(&days, "days", 0, "Forecast width in days (default 7)")
	cmd.Flags().BoolVar(&progress, "progress", false, "Also show known words over the last 30 days")
	return cmd
}

func summaryRows(st *models.DeckStats) [][]string {
	rows := [][]string{
		{"Cards", strconv.Itoa(st.TotalCards)},
	}
	for _, s := range models.States {
		rows = append(rows, []string{"  " + string(s), strconv.Itoa(st.ByState[s])})
	}
	rows = append(rows,
		[]string{"New (ivl <= 1)", strconv.Itoa(st.Buckets.New)},
		[]string{"Learning (ivl <= 21)", strconv.Itoa(st.Buckets.Learning)},
		[]string{"Known", strconv.Itoa(st.Buckets.Known)},
		[]string{"Due today", strconv.Itoa(st.DueToday)},
		[]string{"Streak (days)", strconv.Itoa(st.Streak)},
		[]string{"Average factor", strconv.FormatFloat(st.AvgFactor, 'f', 2, 64)},
		[]string{"Average interval", strconv.FormatFloat(st.AvgIntervalDays, 'f', 1, 64)},
		[]string{"Lapses", strconv.Itoa(st.TotalLapses)},
	)
	return rows
}

func forecastRows(days []models.ForecastDay) [][]string {
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{d.Day, strconv.Itoa(d.Count)})
	}
	return rows
}

func progressRows(days []models.ProgressDay) [][]string {
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{d.Day, strconv.Itoa(d.Known)})
	}
	return rows
}
