package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scancore/internal/core"
	"scancore/pkg/domain"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "scancore",
	Short: "Frame-indexed experiment dataset manager",
	Long: `scancore stores and transforms multi-track, frame-indexed experiment
datasets: imaging and signal tracks, stimulation protocols, spatial
landmarks and the analysis units that tie them together.

Examples:
  scancore list                                  # List stored datasets
  scancore inspect scan-12                       # Summarise one dataset
  scancore remove-frame scan-12 3                # Drop frame 3 everywhere
  scancore concat scan-12 scan-13 --name merged  # Append scan-13 to scan-12
  scancore extract scan-12 sp1 --average         # Build a per-unit dataset
  scancore units scan-12 --filter 'kind == "spine" && frames > 2'`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "info", Title: "Information Commands:"},
		&cobra.Group{ID: "edit", Title: "Editing Commands:"},
	)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(unitsCmd)
	rootCmd.AddCommand(removeFrameCmd)
	rootCmd.AddCommand(concatCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(adoptCmd)
	rootCmd.AddCommand(deleteCmd)
}

// openService wires the storage backend selected by the environment to a
// service with the default rules. The returned closer releases the store.
func openService() (*core.Service, func(), error) {
	store, err := core.OpenPersistentStore()
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	svc := core.NewService(store, core.NewDefaultRulesEngine())
	return svc, func() { _ = store.Close() }, nil
}

// printWarnings reports non-blocking rule violations on stderr.
func printWarnings(res core.Result) {
	for _, v := range res.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", v.Rule, v.Message)
	}
}

func printSummary(d *domain.Dataset) {
	fmt.Printf("%s: %s/%s, %d frames", d.Name, d.Mode, d.ScanType, d.FrameCount())
	if n := d.SecondaryFrameCount(); n != d.FrameCount() {
		fmt.Printf(" (%d secondary)", n)
	}
	fmt.Printf(", %d protocols, %d landmarks, %d units\n",
		len(d.Protocols), len(d.Landmarks), len(d.Units))
}
