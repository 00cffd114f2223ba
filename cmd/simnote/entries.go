package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/simnote/core/internal/models"
)

var (
	flagName     string
	flagContent  string
	flagMood     string
	flagTags     []string
	flagFont     string
	flagFontSize string
	flagStdin    bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new journal entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(); err != nil {
			return err
		}
		content := flagContent
		if flagStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			content = string(data)
		}

		e, err := svc.SaveEntry(cmd.Context(), &models.Entry{
			Name:       flagName,
			Content:    content,
			Mood:       flagMood,
			Tags:       flagTags,
			FontFamily: flagFont,
			FontSize:   flagFontSize,
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(e)
		}
		fmt.Printf("created %s (%s)\n", e.ID, e.Name)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := svc.ListEntries(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(entries)
		}
		for _, e := range entries {
			fav := " "
			if e.Favorite {
				fav = "*"
			}
			fmt.Printf("%s %s  %-30s  %d words  %s\n",
				fav, e.ID, e.Name, e.WordCount, e.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one entry with its content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(); err != nil {
			return err
		}
		e, err := svc.GetEntry(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(e)
		}
		fmt.Printf("%s\n\n%s\n", e.Name, e.Content)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Update fields of an existing entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(); err != nil {
			return err
		}
		patch := &models.EntryPatch{ID: args[0]}
		if cmd.Flags().Changed("name") {
			patch.Name = &flagName
		}
		if cmd.Flags().Changed("content") {
			patch.Content = &flagContent
		}
		if flagStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			content := string(data)
			patch.Content = &content
		}
		if cmd.Flags().Changed("mood") {
			patch.Mood = &flagMood
		}
		if cmd.Flags().Changed("tag") {
			patch.Tags = &flagTags
		}
		if cmd.Flags().Changed("font") {
			patch.FontFamily = &flagFont
		}
		if cmd.Flags().Changed("font-size") {
			patch.FontSize = &flagFontSize
		}

		e, err := svc.UpdateEntry(cmd.Context(), patch)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(e)
		}
		fmt.Printf("updated %s\n", e.ID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry and its mirror files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(); err != nil {
			return err
		}
		removed, err := svc.DeleteEntry(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			fmt.Println("no such entry")
			return nil
		}
		fmt.Println("deleted")
		return nil
	},
}

var favoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Toggle an entry's favorite flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(); err != nil {
			return err
		}
		fav, err := svc.ToggleFavorite(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if fav {
			fmt.Println("favorited")
		} else {
			fmt.Println("unfavorited")
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVar(&flagName, "name", "", "entry name")
		c.Flags().StringVar(&flagContent, "content", "", "entry content (markdown or HTML)")
		c.Flags().StringVar(&flagMood, "mood", "", "mood label")
		c.Flags().StringArrayVar(&flagTags, "tag", nil, "tag (repeatable)")
		c.Flags().StringVar(&flagFont, "font", "", "font family")
		c.Flags().StringVar(&flagFontSize, "font-size", "", "font size (e.g. 16px)")
		c.Flags().BoolVar(&flagStdin, "stdin", false, "read content from stdin")
	}
}
