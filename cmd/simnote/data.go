package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simnote/core/internal/models"
)

var (
	flagOut   string
	flagForce bool
)

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Read and write application metadata values",
}

var metaGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a metadata value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := svc.GetMetadata(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	},
}

var metaSetCmd = &cobra.Command{
	Use:   "set <key> <json-value>",
	Short: "Store a metadata value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(); err != nil {
			return err
		}
		return svc.SetMetadata(cmd.Context(), args[0], json.RawMessage(args[1]))
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a full snapshot of entries and moods",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(); err != nil {
			return err
		}
		snap, err := svc.Export(cmd.Context())
		if err != nil {
			return err
		}
		out := os.Stdout
		if flagOut != "" {
			f, err := os.Create(flagOut)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge a snapshot into the journal (last writer wins)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		var snap models.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("parse snapshot: %w", err)
		}
		written, err := svc.Import(cmd.Context(), &snap)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d entries\n", written)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all entries and moods",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagForce {
			return fmt.Errorf("refusing to clear without --force")
		}
		if err := ensureUnlocked(); err != nil {
			return err
		}
		if err := svc.ClearAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("cleared")
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := svc.GetStorageInfo(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(info)
		}
		fmt.Printf("entries: %d\ndatabase: %d bytes\ninline audio: %d segments, %d bytes\n",
			info.EntryCount, info.DatabaseBytes, info.InlineAudioCount, info.InlineAudioBytes)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&flagOut, "out", "", "write the snapshot to a file instead of stdout")
	clearCmd.Flags().BoolVar(&flagForce, "force", false, "confirm deleting all data")
	metaCmd.AddCommand(metaGetCmd)
	metaCmd.AddCommand(metaSetCmd)
}
