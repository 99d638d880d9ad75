package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Amansingh-afk/htmcore"
	"github.com/Amansingh-afk/htmcore/config"
	"github.com/Amansingh-afk/htmcore/homeostasis"
	"github.com/Amansingh-afk/htmcore/sdr"
)

type runFlags struct {
	configPath  string
	steps       int
	patterns    int
	sparsity    float64
	seed        int64
	mt          bool
	workers     int
	homeostasis bool
}

func newRunCmd(newLogger func(*cobra.Command) (*slog.Logger, error)) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Learn a repeating sequence of random inputs and report prediction accuracy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.LoadOrDefault(f.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = f.seed
			}
			return runSequence(cmd, cfg, f, logger)
		},
	}

	cmd.Flags().StringVar(&f.configPath, "config", "", "YAML configuration file (defaults when empty or missing)")
	cmd.Flags().IntVar(&f.steps, "steps", 1000, "number of compute steps")
	cmd.Flags().IntVar(&f.patterns, "patterns", 10, "length of the repeating input sequence")
	cmd.Flags().Float64Var(&f.sparsity, "sparsity", 0.1, "fraction of input bits on per pattern")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "override the configured seed")
	cmd.Flags().BoolVar(&f.mt, "mt", false, "run the spatial pooler on one worker per CPU")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "spatial pooler workers (implies --mt)")
	cmd.Flags().BoolVar(&f.homeostasis, "homeostasis", false, "disable boosting once the pooler settles")
	return cmd
}

func runSequence(cmd *cobra.Command, cfg *config.Config, f runFlags, logger *slog.Logger) error {
	if f.steps <= 0 || f.patterns <= 0 {
		return fmt.Errorf("--steps and --patterns must be positive")
	}
	if f.sparsity <= 0 || f.sparsity > 1 {
		return fmt.Errorf("--sparsity must be in (0, 1]")
	}

	opts := []htmcore.Option{htmcore.WithConfig(cfg), htmcore.WithLogger(logger)}
	switch {
	case f.workers > 0:
		opts = append(opts, htmcore.WithWorkers(f.workers))
	case f.mt:
		opts = append(opts, htmcore.WithWorkers(0))
	}
	if f.homeostasis {
		ho := homeostasis.DefaultOptions()
		ho.OnStabilityChange = func(stable bool, patterns int, delta float64, cycle int) {
			logger.Info("pooler stability changed",
				slog.Bool("stable", stable),
				slog.Int("patterns", patterns),
				slog.Float64("avg_delta", delta),
				slog.Int("cycle", cycle),
			)
		}
		opts = append(opts, htmcore.WithHomeostasis(ho))
	}

	m, err := htmcore.New(opts...)
	if err != nil {
		return err
	}

	numInputs := m.Connections().NumInputs()
	active := max(1, int(float64(numInputs)*f.sparsity))
	inputs := make([][]int, f.patterns)
	for i := range inputs {
		inputs[i] = sdr.Random(numInputs, active, uint64(cfg.Seed)+uint64(i)).Dense()
	}

	var windowAnomaly float64
	for step := range f.steps {
		c, err := m.Compute(inputs[step%f.patterns], true)
		if err != nil {
			return err
		}
		windowAnomaly += c.Anomaly

		if (step+1)%f.patterns == 0 {
			accuracy := 1 - windowAnomaly/float64(f.patterns)
			logger.Info("sequence pass",
				slog.Int("step", step+1),
				slog.Float64("accuracy", accuracy),
				slog.Bool("stable", c.Stable),
			)
			windowAnomaly = 0
		}
	}

	s := m.Stats()
	logger.Info("run complete",
		slog.Int("iterations", s.Iterations),
		slog.Int("segments", s.Segments),
		slog.Int("synapses", s.Synapses),
		slog.Float64("avg_anomaly", s.AvgAnomaly),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "model %s: %d steps, %d segments, %d synapses, accuracy %.3f\n",
		s.ID, s.Iterations, s.Segments, s.Synapses, 1-s.AvgAnomaly)
	return nil
}
