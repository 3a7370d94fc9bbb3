package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zurustar/jxscript/pkg/app"
	"github.com/zurustar/jxscript/pkg/cli"
)

var (
	flagHeadless bool
	flagTimeout  time.Duration
	flagTraceDB  string
	flagMaxOps   int
	flagParallel []string
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a script",
	Long: `Run a script from the script root until every script has finished,
the timeout expires, or the window is closed.

Controls (window mode):
  Enter/Space  - Close the current dialog
  Click        - Close the current dialog and send CLICK
  Esc          - Quit

Parallel scripts start after an in-game delay given as milliseconds or a
duration:
  --parallel weather.txt@500
  --parallel npc/guard.txt@2s

Examples:
  jxscript run main.txt
  jxscript run main.txt --headless --timeout 10s
  jxscript run main.txt --parallel clock.txt@0 --trace-db trace.db`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&flagHeadless, "headless", false, "Run without a window")
	runCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Stop after this wall-clock duration (0 = no limit)")
	runCmd.Flags().StringVar(&flagTraceDB, "trace-db", "", "Record executed lines to this SQLite file")
	runCmd.Flags().IntVar(&flagMaxOps, "max-ops", 0, "Instructions one script may run per tick")
	runCmd.Flags().StringArrayVar(&flagParallel, "parallel", nil, "Parallel script as path[@delay] (repeatable)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, func(f *cli.Flags) {
		f.TraceDB = flagTraceDB
		f.MaxOpsPerTick = flagMaxOps
		if cmd.Flags().Changed("headless") {
			f.Headless = &flagHeadless
		}
		if cmd.Flags().Changed("timeout") {
			f.Timeout = &flagTimeout
		}
	})
	if err != nil {
		return err
	}

	var parallels []cli.ParallelSpec
	for _, p := range flagParallel {
		spec, err := cli.ParseParallel(p)
		if err != nil {
			return err
		}
		parallels = append(parallels, spec)
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx, args[0], parallels); err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	return nil
}
