// cmd/chaos/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mmss/internal/app"
	"mmss/internal/chaos"
	"mmss/internal/config"
)

var (
	configFile string
	duration   time.Duration
	sample     time.Duration
	pause      time.Duration
)

var errHypothesisViolated = errors.New("chaos game day: at least one hypothesis did not hold")

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "chaos",
	Short:        "Run the exchange chaos game day",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		rt, err := app.Start(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Shutdown(context.Background())

		stores, closeStores, err := app.OpenStores(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer closeStores()

		target, err := chaos.NewTarget(ctx, stores, cfg.Policy.ShiftCapacity, rt.Logger)
		if err != nil {
			return err
		}

		engine := chaos.NewEngine(chaos.WithLogger(rt.Logger), chaos.WithSampleInterval(sample))
		engine.RegisterExperiments(target, duration)

		held, err := engine.ExecuteGameDay(ctx, chaos.GameDay{
			Name:      "Exchange Chaos Game Day",
			Date:      time.Now(),
			Scenarios: engine.Experiments(),
			Pause:     pause,
		})
		if err != nil {
			return err
		}
		if !held {
			return errHypothesisViolated
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file (YAML)")
	rootCmd.Flags().DurationVar(&duration, "duration", 2*time.Second, "how long each experiment is observed")
	rootCmd.Flags().DurationVar(&sample, "sample", 250*time.Millisecond, "metric sampling interval")
	rootCmd.Flags().DurationVar(&pause, "pause", 0, "pause between experiments")
}
