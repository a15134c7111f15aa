package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/vpp/app"
	"github.com/kilianp07/vpp/core/report"
	"github.com/kilianp07/vpp/infra/logger"
	"github.com/kilianp07/vpp/pkg/export"
)

var optimizeOpts struct {
	seed        int64
	generations int
	population  int
	noLPSeed    bool
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run one optimisation and write the schedule",
	RunE:  runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.Int64Var(&optimizeOpts.seed, "seed", 0, "random seed of the search (default: search.ga.seed)")
	f.IntVar(&optimizeOpts.generations, "generations", 0, "generation budget override")
	f.IntVar(&optimizeOpts.population, "population", 0, "population size override")
	f.BoolVar(&optimizeOpts.noLPSeed, "no-lp-seed", false, "do not seed the population with the relaxed solution")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	req := app.RunRequest{
		PopulationSize: optimizeOpts.population,
		Generations:    optimizeOpts.generations,
	}
	if cmd.Flags().Changed("seed") {
		req.Seed = &optimizeOpts.seed
	}
	if optimizeOpts.noLPSeed {
		off := false
		req.LPSeed = &off
	}
	sched, err := svc.Optimize(ctx, req)
	if err != nil {
		return err
	}
	if cfg.Run.Output == "" {
		return export.WriteJSON(cmd.OutOrStdout(), sched)
	}
	return writeSchedule(cfg.Run.Output, sched)
}

// writeSchedule writes <id>.json and <id>.csv into dir.
func writeSchedule(dir string, sched *report.Schedule) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := filepath.Join(dir, sched.Run.ID)
	for _, out := range []struct {
		ext   string
		write func(f *os.File) error
	}{
		{".json", func(f *os.File) error { return export.WriteJSON(f, sched) }},
		{".csv", func(f *os.File) error { return export.WriteCSV(f, sched) }},
	} {
		f, err := os.Create(base + out.ext)
		if err != nil {
			return err
		}
		if err := out.write(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s: %w", f.Name(), err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	logger.New("main").Infof("schedule written to %s.{json,csv}", base)
	return nil
}
