package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"scancore/pkg/domain"
)

func sortedLandmarkKeys(d *domain.Dataset) []string {
	keys := make([]string, 0, len(d.Landmarks))
	for key := range d.Landmarks {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored datasets",
	GroupID: "info",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		names, err := svc.ListDatasets(context.Background())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:     "inspect <dataset>",
	Short:   "Summarise one dataset",
	Long:    `Print a dataset's tracks, protocols, landmarks and analysis units.`,
	GroupID: "info",
	Args:    cobra.ExactArgs(1),
	RunE:    runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	svc, closer, err := openService()
	if err != nil {
		return err
	}
	defer closer()

	d, err := svc.GetDataset(context.Background(), args[0])
	if err != nil {
		return err
	}
	printSummary(d)

	for _, t := range d.Primary {
		fmt.Printf("  primary   %-16s %s ch=%d frames=%d\n", t.Name, t.Family, t.Channels, t.FrameCount())
	}
	for _, t := range d.Secondary {
		fmt.Printf("  secondary %-16s %s ch=%d frames=%d\n", t.Name, t.Family, t.Channels, t.FrameCount())
	}
	for _, dt := range d.Derived {
		fmt.Printf("  derived   %-16s frames=%d\n", dt.Name, len(dt.Frames))
	}
	for _, p := range d.Protocols {
		fmt.Printf("  protocol  %-16s frames=%v events=%d domain=%s\n", p.Name, p.Segments, len(p.Events), p.Domain)
	}
	total := d.FrameCount()
	for _, key := range sortedLandmarkKeys(d) {
		lm := d.Landmarks[key]
		fmt.Printf("  landmark  %-16s kind=%s frames=%v\n", key, lm.Kind, lm.Frames(total))
	}
	fmt.Printf("  unit      %-16s kind=%s frames=%v (whole)\n", d.Whole.Name, d.Whole.Kind, d.UnitFrames(d.Whole))
	for _, u := range d.Units {
		fmt.Printf("  unit      %-16s kind=%s frames=%v\n", u.Name, u.Kind, d.UnitFrames(u))
	}
	return nil
}

var deleteCmd = &cobra.Command{
	Use:     "delete <dataset>",
	Short:   "Delete a stored dataset",
	GroupID: "edit",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()
		return svc.DeleteDataset(context.Background(), args[0])
	},
}
