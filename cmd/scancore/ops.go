package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scancore/internal/core"
	"scancore/pkg/domain"
)

var removeFrameCmd = &cobra.Command{
	Use:     "remove-frame <dataset> <index>",
	Short:   "Remove one frame from every collection of a dataset",
	Long:    `Drop a frame from all tracks, shift protocol segments and landmark states past it, and discard anything left empty.`,
	GroupID: "edit",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("frame index %q: %w", args[1], err)
		}
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		d, res, err := svc.RemoveFrame(context.Background(), args[0], index)
		if err != nil {
			return err
		}
		printWarnings(res)
		printSummary(d)
		return nil
	},
}

var (
	concatName string
	concatPad  string
	concatFill float64
)

var concatCmd = &cobra.Command{
	Use:   "concat <first> <second>",
	Short: "Append one dataset's frames to another",
	Long: `Concatenate two compatible datasets frame-wise: tracks are appended
(conformed to the first dataset's geometry when needed), protocol segments
are shifted, and same-name protocols, landmarks and units are merged.`,
	Example: `  scancore concat scan-12 scan-13 --name merged
  scancore concat scan-12 scan-13 --pad nan`,
	GroupID: "edit",
	Args:    cobra.ExactArgs(2),
	RunE:    runConcat,
}

func runConcat(cmd *cobra.Command, args []string) error {
	opts := core.ConcatOptions{Pad: domain.PadPolicy(concatPad), Fill: concatFill}
	switch opts.Pad {
	case "", domain.PadCrop, domain.PadNaN, domain.PadConstant, domain.PadEdge:
	default:
		return fmt.Errorf("unknown pad policy %q (crop, nan, constant, edge)", concatPad)
	}

	svc, closer, err := openService()
	if err != nil {
		return err
	}
	defer closer()

	d, res, err := svc.Concatenate(context.Background(), args[0], args[1], concatName, opts)
	if err != nil {
		return err
	}
	printWarnings(res)
	printSummary(d)
	return nil
}

var (
	extractAverage  bool
	extractExclude  bool
	extractMode     string
	extractCompsRaw []int
)

var extractCmd = &cobra.Command{
	Use:   "extract <dataset> <unit>",
	Short: "Build a dataset from one analysis unit",
	Long: `Extract an analysis unit into a standalone dataset holding only the
unit's frames, renumbered densely, with per-protocol averaging and
outcome-based frame exclusion as options.`,
	Example: `  scancore extract scan-12 sp1
  scancore extract scan-12 sp1 --average
  scancore extract scan-12 sp1 --exclude-failures --test all
  scancore extract scan-12 sp1 --exclude-failures --test components --components 0,2`,
	GroupID: "edit",
	Args:    cobra.ExactArgs(2),
	RunE:    runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	opts := core.ExtractOptions{
		Average:         extractAverage,
		ExcludeFailures: extractExclude,
		Test: domain.OutcomeTest{
			Mode:       domain.OutcomeMode(extractMode),
			Components: extractCompsRaw,
		},
	}

	svc, closer, err := openService()
	if err != nil {
		return err
	}
	defer closer()

	d, res, err := svc.ExtractUnit(context.Background(), args[0], args[1], opts)
	if err != nil {
		return err
	}
	printWarnings(res)
	printSummary(d)
	return nil
}

var adoptLandmarks bool

var adoptCmd = &cobra.Command{
	Use:   "adopt <target> <source>",
	Short: "Copy protocols or landmarks between datasets",
	Long: `Adopt the source dataset's protocols into the target: same-name
protocols union their frame sets, others are copied under fresh IDs.
With --landmarks, landmarks are adopted instead.`,
	GroupID: "edit",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closer, err := openService()
		if err != nil {
			return err
		}
		defer closer()

		ctx := context.Background()
		var (
			d   *core.Dataset
			res core.Result
		)
		if adoptLandmarks {
			d, res, err = svc.AdoptLandmarks(ctx, args[0], args[1])
		} else {
			d, res, err = svc.AdoptProtocols(ctx, args[0], args[1])
		}
		if err != nil {
			return err
		}
		printWarnings(res)
		printSummary(d)
		return nil
	},
}

func init() {
	concatCmd.Flags().StringVar(&concatName, "name", "",
		"Name for the concatenated dataset (default: first dataset's name)")
	concatCmd.Flags().StringVar(&concatPad, "pad", "crop",
		"Geometry mismatch policy: crop, nan, constant, edge")
	concatCmd.Flags().Float64Var(&concatFill, "fill", 0,
		"Fill value for --pad constant")

	extractCmd.Flags().BoolVar(&extractAverage, "average", false,
		"Collapse each protocol bucket into one averaged frame")
	extractCmd.Flags().BoolVar(&extractExclude, "exclude-failures", false,
		"Keep only frames whose recorded outcomes pass the test")
	extractCmd.Flags().StringVar(&extractMode, "test", "any",
		"Outcome test mode: any, all, components")
	extractCmd.Flags().IntSliceVar(&extractCompsRaw, "components", nil,
		"Event component indices for --test components")

	adoptCmd.Flags().BoolVar(&adoptLandmarks, "landmarks", false,
		"Adopt landmarks instead of protocols")
}
