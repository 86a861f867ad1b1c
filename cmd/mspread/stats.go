package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/network"
	"github.com/dd0wney/mspread/pkg/snapshot"
)

func newStatsCmd() *cobra.Command {
	var (
		path   string
		full   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print statistics of a topology snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.DefaultLogger().With(logging.Component("cli"))
			topo, err := snapshot.OpenTopology(cmd.Context(), path, nil, network.WithLogger(logger))
			if err != nil {
				return err
			}
			stats, err := topo.Statistics(!full)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			return renderTopology(out, path, topo.Kind(), stats)
		},
	}

	f := cmd.Flags()
	f.StringVar(&path, "snapshot", "", "snapshot file (.json or .sz) or s3://bucket/key")
	f.BoolVar(&full, "full", false, "also compute components, clustering, assortativity and diameter")
	f.BoolVar(&asJSON, "json", false, "print statistics as JSON")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}
