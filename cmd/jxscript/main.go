// jxscript runs game-event scripts on a tick-driven runtime.
//
// Usage:
//
//	jxscript run <script>          - Run a script until it finishes
//	jxscript check <script>...     - Parse scripts and report unrecognized lines
//	jxscript dump <script>         - Print the parsed instruction table
//
// Global flags:
//
//	--config <path>      - Configuration file (default: ~/.jxscript/jxscript.yaml)
//	--root <dir>         - Script root directory
//	--encoding <name>    - Script encoding: gbk, gb18030, shift-jis, utf-8
//	--log-level <level>  - debug, info, warn, error
//	--log-format <fmt>   - text, pretty
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zurustar/jxscript/pkg/cli"
	"github.com/zurustar/jxscript/pkg/config"
	"github.com/zurustar/jxscript/pkg/logger"
)

var (
	// Global flags
	flagConfig    string
	flagRoot      string
	flagEncoding  string
	flagLogLevel  string
	flagLogFormat string
	flagStrict    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jxscript",
	Short: "Tick-driven runtime for game-event scripts",
	Long: `jxscript parses line-oriented game-event scripts (labels, If/Goto jumps
and command calls) and runs them cooperatively, one tick at a time.

Available commands:
  run    - Run a script until it finishes
  check  - Parse scripts and report unrecognized lines
  dump   - Print the parsed instruction table of a script

Configuration is read from --config, ~/.jxscript/jxscript.yaml or ./jxscript.yaml,
then overridden by HEADLESS, TIMEOUT, LOG_LEVEL and JXSCRIPT_ROOT, then by flags.

Examples:
  jxscript run main.txt --root ./scripts
  jxscript run main.txt --headless --timeout 30s --trace-db trace.db
  jxscript check npc/*.txt --strict
  jxscript dump main.txt --encoding utf-8`,
	SilenceUsage: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration YAML")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "Script root directory")
	rootCmd.PersistentFlags().StringVar(&flagEncoding, "encoding", "", "Script encoding (gbk, gb18030, shift-jis, utf-8)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, pretty)")
	rootCmd.PersistentFlags().BoolVar(&flagStrict, "strict", false, "Report unrecognized script lines as warnings")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dumpCmd)
}

// loadConfig resolves the configuration from file, environment and the flags the
// user actually set, then initializes the global logger.
func loadConfig(cmd *cobra.Command, extra func(*cli.Flags)) (config.Config, error) {
	flags := cli.Flags{
		ConfigPath: flagConfig,
		ScriptRoot: flagRoot,
		Encoding:   flagEncoding,
		LogLevel:   flagLogLevel,
		LogFormat:  flagLogFormat,
	}
	if cmd.Flags().Changed("strict") {
		flags.Strict = &flagStrict
	}
	if extra != nil {
		extra(&flags)
	}

	cfg, err := cli.Resolve(flags, os.Getenv)
	if err != nil {
		return cfg, err
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
		return cfg, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
