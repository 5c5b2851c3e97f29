package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/brainquest/brainquest/internal/daemon"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

const recentSaveRows = 5

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(resetCmd)

	exportCmd.Flags().StringP("output", "o", "", "write the export to a file instead of stdout")
	resetCmd.Flags().Bool("yes", false, "confirm deleting the save")
}

// openStore opens storage for the offline commands. The game is not loaded.
func openStore(cmd *cobra.Command) (*daemon.Daemon, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return daemon.OpenStore(contextOf(cmd), cfg, logger.Nop())
}

// ─── status ─────────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the stored save",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	d, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	out := cmd.OutOrStdout()
	info := d.Store.PeekInfo()
	if info == nil {
		fmt.Fprintf(out, "No save in %s\n", d.Config.Storage.Dir)
		return nil
	}

	name := info.CharacterName
	if name == "" {
		name = "(no character)"
	} else if info.CharacterType != "" {
		name = fmt.Sprintf("%s the %s", name, info.CharacterType)
	}
	fmt.Fprintf(out, "Player:       %s\n", name)
	fmt.Fprintf(out, "Level:        %d\n", info.Level)
	fmt.Fprintf(out, "Coins:        %d\n", info.CoinBalance)
	fmt.Fprintf(out, "Achievements: %d\n", info.Achievements)
	fmt.Fprintf(out, "Weeks:        %d\n", info.WeeksCompleted)
	fmt.Fprintf(out, "Saved:        %s (%s, format %s)\n",
		time.UnixMilli(info.SavedAt).UTC().Format(time.RFC3339), info.Source, info.FormatVersion)

	recent, err := d.DB.RecentSaves(contextOf(cmd), d.Config.Storage.Key, recentSaveRows)
	if err != nil {
		return fmt.Errorf("read save history: %w", err)
	}
	if len(recent) == 0 {
		return nil
	}
	fmt.Fprintln(out, "\nRecent saves:")
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  SAVED AT\tSIZE")
	for _, r := range recent {
		fmt.Fprintf(w, "  %s\t%d B\n", r.SavedAt.UTC().Format(time.RFC3339), r.SizeBytes)
	}
	return w.Flush()
}

// ─── export ─────────────────────────────────────────────────────────────────

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the save as portable JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, _ []string) error {
	d, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	text := d.Store.Export()
	if text == "" {
		return errors.New("no save to export")
	}

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported save to %s\n", path)
	return nil
}

// ─── import ─────────────────────────────────────────────────────────────────

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the save with an exported one",
	Long: `Replace the stored save with the JSON produced by "export".
Use "-" to read from stdin. The file is validated before anything is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}

	d, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	if !d.Store.Import(strings.TrimSpace(string(data))) {
		return fmt.Errorf("import %s: not a valid save", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Save imported")
	return nil
}

// ─── reset ──────────────────────────────────────────────────────────────────

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the save from every backend",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, _ []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return errors.New("refusing to delete the save without --yes")
	}
	d, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	if !d.Store.Clear() {
		return errors.New("save could not be removed from every backend")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Save deleted")
	return nil
}
