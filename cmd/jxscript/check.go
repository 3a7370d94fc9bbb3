package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zurustar/jxscript/pkg/app"
)

var checkCmd = &cobra.Command{
	Use:   "check <script>...",
	Short: "Parse scripts and report unrecognized lines",
	Long: `Parse each script without running it. Unrecognized lines are listed
with their line numbers; they are skipped at run time.

The command fails if a script cannot be read, or, with --strict, if any
script has unrecognized lines.

Examples:
  jxscript check main.txt
  jxscript check npc/*.txt --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	cfg.Headless = true

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	results := application.Check(args)
	color := term.IsTerminal(int(os.Stdout.Fd()))
	failed := printCheck(os.Stdout, results, color)
	if cfg.Strict {
		failed += countWarnings(results)
	}
	if failed > 0 {
		return fmt.Errorf("check failed: %d problem(s)", failed)
	}
	return nil
}
