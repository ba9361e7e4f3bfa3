package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var unitsFilter string

var unitsCmd = &cobra.Command{
	Use:   "units <dataset>",
	Short: "List a dataset's analysis units",
	Long: `List analysis units, optionally restricted by a filter expression
over unit fields (name, kind, cell, field, frames, protocols, landmark,
location, descriptors, has_analysis, in_secondary).`,
	Example: `  scancore units scan-12
  scancore units scan-12 --filter 'kind == "spine"'
  scancore units scan-12 --filter 'frames > 2 && "p1" in protocols'
  scancore units scan-12 --filter 'descriptors["depth"] == "40um"'`,
	GroupID: "info",
	Args:    cobra.ExactArgs(1),
	RunE:    runUnits,
}

func runUnits(cmd *cobra.Command, args []string) error {
	svc, closer, err := openService()
	if err != nil {
		return err
	}
	defer closer()

	filter := unitsFilter
	if filter == "" {
		filter = "true"
	}
	units, err := svc.QueryUnits(context.Background(), args[0], filter)
	if err != nil {
		return err
	}
	d, err := svc.GetDataset(context.Background(), args[0])
	if err != nil {
		return err
	}
	for _, u := range units {
		fmt.Printf("%-16s kind=%-10s frames=%v protocols=%d\n",
			u.Name, u.Kind, d.UnitFrames(u), len(u.Protocols))
	}
	return nil
}

func init() {
	unitsCmd.Flags().StringVarP(&unitsFilter, "filter", "f", "",
		"Filter expression, e.g. 'kind == \"spine\" && frames > 2'")
}
