package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/metrics"
	"github.com/dd0wney/mspread/pkg/scenario"
	"github.com/dd0wney/mspread/pkg/server"
)

type runOptions struct {
	scenarioPath string
	metricsAddr  string
	export       string
	asJSON       bool
}

func newRunCmd() *cobra.Command {
	o := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario file",
		Long: `Run loads a YAML scenario, builds its topology, runs the selected engine
and prints a report. With --metrics-addr the Prometheus endpoint is served
during the run and afterwards until interrupted.`,
		Example: `  mspread run --scenario lab.yaml
  mspread run --scenario lab.yaml --metrics-addr :9090
  mspread run --scenario lab.yaml --export s3://bucket/runs/lab.json.sz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScenario(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.scenarioPath, "scenario", "s", "", "scenario YAML file")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address")
	f.StringVar(&o.export, "export", "", "override the scenario export destination (path or s3://bucket/key)")
	f.BoolVar(&o.asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func runScenario(cmd *cobra.Command, o runOptions) error {
	logger := logging.DefaultLogger().With(logging.Component("cli"))

	sc, err := scenario.Load(o.scenarioPath)
	if err != nil {
		return err
	}
	if o.export != "" {
		sc.Export = o.export
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var reg *metrics.Registry
	var serveErr chan error
	if o.metricsAddr != "" {
		started := time.Now()
		reg = metrics.NewRegistry()
		srv := server.NewGracefulServer(o.metricsAddr, server.NewHandler(reg, started), logger)
		if err := srv.Listen(); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", o.metricsAddr, err)
		}
		serveErr = make(chan error, 1)
		go func() { serveErr <- srv.Serve(ctx) }()
		logger.Info("metrics endpoint ready", logging.String("addr", srv.Addr()))
	}

	res, err := sc.Run(ctx, scenario.Options{Logger: logger, Metrics: reg})
	if err != nil {
		cancel()
		if serveErr != nil {
			<-serveErr
		}
		return err
	}

	out := cmd.OutOrStdout()
	if o.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(res)
	} else {
		err = renderResult(out, "Scenario "+sc.Name, sc, res)
	}
	if err != nil || serveErr == nil {
		cancel()
		if serveErr != nil {
			<-serveErr
		}
		return err
	}

	logger.Info("serving metrics until interrupted")
	return <-serveErr
}
