package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zurustar/jxscript/pkg/app"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <script>",
	Short: "Print the parsed instruction table of a script",
	Long: `Print every instruction of a parsed script with its source line,
followed by the label table.

Examples:
  jxscript dump main.txt
  jxscript dump map/town.txt --encoding shift-jis`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
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

	prog, err := application.Parse(args[0])
	if err != nil {
		return err
	}
	printProgram(os.Stdout, prog, term.IsTerminal(int(os.Stdout.Fd())))
	return nil
}
