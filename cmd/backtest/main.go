package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moznion/go-optional"
	"github.com/skewlab/overlay-backtest/internal/analytics"
	"github.com/skewlab/overlay-backtest/internal/backtest"
	"github.com/skewlab/overlay-backtest/internal/chain"
	"github.com/skewlab/overlay-backtest/internal/datasource"
	"github.com/skewlab/overlay-backtest/internal/logger"
	"github.com/skewlab/overlay-backtest/internal/pricing"
	"github.com/skewlab/overlay-backtest/internal/regime"
	"github.com/skewlab/overlay-backtest/internal/strategy"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// runAction loads the market series, builds the strategy batch from config,
// runs the backtest, and writes the result tables.
func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	config := backtest.DefaultConfig()
	if configPath := cmd.String("config"); configPath != "" {
		config, err = backtest.LoadConfig(configPath)
		if err != nil {
			return err
		}
	}

	if output := cmd.String("output"); output != "" {
		config.ResultsFolder = output
	}

	if chainPath := cmd.String("chain"); chainPath != "" {
		config.ChainPath = optional.Some(chainPath)
	}

	source, err := datasource.NewSource(log)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	rows, err := source.LoadSeries(cmd.String("data"))
	if err != nil {
		return err
	}

	if err := regime.NewDetector().AnnotateSeries(rows); err != nil {
		return err
	}

	chainLookup := optional.None[pricing.ChainLookup]()

	if config.ChainPath.IsSome() {
		table, err := chain.NewTable(log)
		if err != nil {
			return err
		}
		defer func() { _ = table.Close() }()

		if err := table.Initialize(config.ChainPath.Unwrap()); err != nil {
			return err
		}

		chainLookup = optional.Some[pricing.ChainLookup](table)
	}

	pricer := pricing.NewHybridEngine(chainLookup, log)

	state, err := backtest.NewBacktestState(log)
	if err != nil {
		return err
	}
	defer func() { _ = state.Close() }()

	if err := state.Initialize(); err != nil {
		return err
	}

	strategies := buildStrategies(config, pricer)

	runner := backtest.NewRunner(log, state, config.InitialCapital).WithProgress(true)

	results, err := runner.Run(rows, strategies)
	if err != nil {
		return err
	}

	consolidated := backtest.Consolidate(results, config.InitialCapital)
	if err := consolidated.WriteCSV(filepath.Join(config.ResultsFolder, "consolidated_equity.csv")); err != nil {
		return err
	}

	var summaries []analytics.Summary

	for _, result := range results {
		if result.Err != nil {
			continue
		}

		summaries = append(summaries, analytics.ComputeHistorySummary(result.StrategyName, result.History))
	}

	if err := analytics.WriteSummaries(summaries, filepath.Join(config.ResultsFolder, "summary.yaml")); err != nil {
		return err
	}

	if err := state.Write(config.ResultsFolder); err != nil {
		return err
	}

	log.Info("backtest complete",
		zap.Int("strategies", len(strategies)),
		zap.Int("succeeded", len(summaries)),
		zap.String("results", config.ResultsFolder),
	)

	return nil
}

// buildStrategies assembles the full strategy batch from the run config.
func buildStrategies(config backtest.Config, pricer *pricing.HybridEngine) []strategy.Strategy {
	strategies := []strategy.Strategy{
		strategy.NewBuyAndHold(),
		strategy.NewCoveredCall(pricer, config.TenorDays, config.CallOTM),
		strategy.NewCashSecuredPut(pricer, config.TenorDays, config.PutOTM),
		strategy.NewCollar(pricer, config.TenorDays, config.PutOTM, config.CallOTM),
		strategy.NewWheel(pricer, config.TenorDays, config.PutOTM, config.CallOTM),
		strategy.NewChameleon(pricer, config.TenorDays),
	}

	for _, window := range config.SmartWheelWindows {
		strategies = append(strategies, strategy.NewDeltaWheel(pricer, config.TenorDays, window))
	}

	return strategies
}

// schemaAction prints the JSON schema for the run config file.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	config := backtest.DefaultConfig()

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run options overlay strategy backtests",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the strategy batch over a market data CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the market data CSV (date, spot, rate, sigma columns)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the YAML run config; defaults apply when omitted",
					},
					&cli.StringFlag{
						Name:  "chain",
						Usage: "Path to an option chain CSV for empirical pricing",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Results folder, overrides the config value",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the run config file",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
