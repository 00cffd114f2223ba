package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/simnote/core/internal/models"
)

var flagMoodDate string

var moodCmd = &cobra.Command{
	Use:   "mood",
	Short: "Track one mood per calendar day",
}

var moodSetCmd = &cobra.Command{
	Use:   "set <mood>",
	Short: "Record the mood for a day (default today)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(); err != nil {
			return err
		}
		date := flagMoodDate
		if date == "" {
			date = time.Now().Format(models.DateLayout)
		}
		m, err := svc.SetDailyMood(cmd.Context(), date, args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(m)
		}
		fmt.Printf("%s: %s\n", m.Date, m.Mood)
		return nil
	},
}

var moodGetCmd = &cobra.Command{
	Use:   "get [date]",
	Short: "Show the mood recorded for a day (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date := time.Now().Format(models.DateLayout)
		if len(args) == 1 {
			date = args[0]
		}
		m, err := svc.GetDailyMood(cmd.Context(), date)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(m)
		}
		fmt.Printf("%s: %s\n", m.Date, m.Mood)
		return nil
	},
}

var moodHistoryCmd = &cobra.Command{
	Use:   "history [limit]",
	Short: "List recorded moods, newest day first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := 0
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("limit must be a number: %w", err)
			}
			limit = n
		}
		moods, err := svc.MoodHistory(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(moods)
		}
		for _, m := range moods {
			fmt.Printf("%s  %s\n", m.Date, m.Mood)
		}
		return nil
	},
}

func init() {
	moodSetCmd.Flags().StringVar(&flagMoodDate, "date", "", "day in YYYY-MM-DD form (default today)")
	moodCmd.AddCommand(moodSetCmd)
	moodCmd.AddCommand(moodGetCmd)
	moodCmd.AddCommand(moodHistoryCmd)
}
