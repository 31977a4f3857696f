package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stackplan/wealthsim/internal/calculation"
	"github.com/stackplan/wealthsim/internal/config"
	"github.com/stackplan/wealthsim/internal/domain"
	"github.com/stackplan/wealthsim/internal/output"
)

var (
	inputFile    string
	formatName   string
	outputFile   string
	verbose      bool
	simulations  int
	workers      int
	seed         uint64
	scenarioFile string
)

// zerologAdapter bridges the engine's Logger interface onto zerolog.
type zerologAdapter struct {
	log zerolog.Logger
}

func (z zerologAdapter) Debugf(format string, args ...any) { z.log.Debug().Msgf(format, args...) }
func (z zerologAdapter) Infof(format string, args ...any)  { z.log.Info().Msgf(format, args...) }
func (z zerologAdapter) Warnf(format string, args ...any)  { z.log.Warn().Msgf(format, args...) }
func (z zerologAdapter) Errorf(format string, args ...any) { z.log.Error().Msgf(format, args...) }

func newEngine() *calculation.ProjectionEngine {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	return calculation.NewProjectionEngineWithLogger(zerologAdapter{log: log})
}

func loadPlan() (*domain.ProjectionInput, error) {
	if inputFile == "" {
		return nil, fmt.Errorf("an input plan file is required (--input)")
	}
	return config.NewInputParser().LoadFromFile(inputFile)
}

func emit(data []byte) error {
	if outputFile != "" {
		return os.WriteFile(outputFile, data, 0o644)
	}
	_, err := os.Stdout.Write(data)
	return err
}

func main() {
	root := &cobra.Command{
		Use:   "wealthsim",
		Short: "Multi-decade household wealth projection for BTC-heavy portfolios",
		Long: `wealthsim projects household net worth year by year: tax-lot aware
BTC sales, collateralized loan management, progressive federal and state
taxes, RMDs, and a tax-aware withdrawal sequence. Deterministic runs,
seeded Monte Carlo batches, and a safe-spending search share one engine.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&inputFile, "input", "i", "", "plan file (YAML)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write output to file instead of stdout")

	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Run a deterministic projection",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := loadPlan()
			if err != nil {
				return err
			}
			res, err := newEngine().RunUnifiedProjection(input)
			if err != nil {
				return err
			}
			f := output.GetFormatterByName(formatName)
			if f == nil {
				return fmt.Errorf("unknown format %q (console, json, csv)", formatName)
			}
			data, err := f.Format(res)
			if err != nil {
				return err
			}
			return emit(data)
		},
	}
	projectCmd.Flags().StringVarP(&formatName, "format", "f", "console", "output format: console, json, csv")

	montecarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "Run a seeded Monte Carlo batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := loadPlan()
			if err != nil {
				return err
			}
			cfg := calculation.MonteCarloConfig{Simulations: simulations, Workers: workers, Seed: seed}
			res, err := newEngine().RunMonteCarlo(cmd.Context(), input, cfg)
			if err != nil {
				return err
			}
			return emit(output.FormatMonteCarlo(res))
		},
	}
	montecarloCmd.Flags().IntVarP(&simulations, "simulations", "n", 1000, "number of simulations")
	montecarloCmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = GOMAXPROCS)")
	montecarloCmd.Flags().Uint64Var(&seed, "seed", 0, "explicit seed (0 = derive from plan)")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a what-if scenario against the baseline over shared shocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := loadPlan()
			if err != nil {
				return err
			}
			if scenarioFile == "" {
				return fmt.Errorf("a scenario file is required (--scenario)")
			}
			data, err := os.ReadFile(scenarioFile)
			if err != nil {
				return err
			}
			var sc domain.Scenario
			if err := yaml.Unmarshal(data, &sc); err != nil {
				return fmt.Errorf("failed to parse scenario: %w", err)
			}
			cfg := calculation.MonteCarloConfig{Simulations: simulations, Workers: workers, Seed: seed}
			cmp, err := newEngine().CompareScenario(cmd.Context(), input, &sc, cfg)
			if err != nil {
				return err
			}
			return emit(output.FormatComparison(cmp))
		},
	}
	compareCmd.Flags().StringVar(&scenarioFile, "scenario", "", "scenario overrides file (YAML)")
	compareCmd.Flags().IntVarP(&simulations, "simulations", "n", 1000, "number of simulations")
	compareCmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = GOMAXPROCS)")
	compareCmd.Flags().Uint64Var(&seed, "seed", 0, "explicit seed (0 = derive from plan)")

	safespendCmd := &cobra.Command{
		Use:   "safespend",
		Short: "Search for the highest annual spending with >=90% success",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := loadPlan()
			if err != nil {
				return err
			}
			cfg := calculation.MonteCarloConfig{Simulations: simulations, Workers: workers, Seed: seed}
			res, err := newEngine().CalculateSafeSpending(cmd.Context(), input, cfg)
			if err != nil {
				return err
			}
			return emit(output.FormatSafeSpending(res))
		},
	}
	safespendCmd.Flags().IntVarP(&simulations, "simulations", "n", 500, "simulations per search step")
	safespendCmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = GOMAXPROCS)")
	safespendCmd.Flags().Uint64Var(&seed, "seed", 0, "explicit seed (0 = derive from plan)")

	exampleCmd := &cobra.Command{
		Use:   "example",
		Short: "Write an example plan file",
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := config.NewInputParser()
			plan := parser.CreateExamplePlan()
			target := outputFile
			if target == "" {
				target = "wealthsim_example.yaml"
			}
			if err := parser.SaveToFile(plan, target); err != nil {
				return err
			}
			fmt.Printf("example plan written to %s\n", target)
			return nil
		},
	}

	root.AddCommand(projectCmd, montecarloCmd, compareCmd, safespendCmd, exampleCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
