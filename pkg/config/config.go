// Package config provides YAML-based runtime configuration for the script host.
package config

import (
	"fmt"
	"time"
)

// Config contains all configuration for a jxscript session.
type Config struct {
	ScriptRoot    string        `yaml:"script_root"`
	Encoding      string        `yaml:"encoding"`
	TPS           int           `yaml:"tps"`
	MaxOpsPerTick int           `yaml:"max_ops_per_tick"`
	Strict        bool          `yaml:"strict"`
	Headless      bool          `yaml:"headless"`
	Timeout       time.Duration `yaml:"timeout"`
	ExitWhenIdle  bool          `yaml:"exit_when_idle"`
	TraceDB       string        `yaml:"trace_db"`
	Log           LogConfig     `yaml:"log"`
	Window        WindowConfig  `yaml:"window"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WindowConfig defines the debug window.
type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// TickInterval returns the in-game time advanced by one tick.
func (c Config) TickInterval() time.Duration {
	if c.TPS <= 0 {
		return time.Second / time.Duration(DefaultConfig().TPS)
	}
	return time.Second / time.Duration(c.TPS)
}

// Validate checks value ranges. Encoding and log settings are checked by the
// packages that consume them.
func (c Config) Validate() error {
	if c.TPS <= 0 || c.TPS > 1000 {
		return fmt.Errorf("tps must be between 1 and 1000, got %d", c.TPS)
	}
	if c.MaxOpsPerTick <= 0 {
		return fmt.Errorf("max_ops_per_tick must be positive, got %d", c.MaxOpsPerTick)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %s", c.Timeout)
	}
	if !c.Headless && (c.Window.Width <= 0 || c.Window.Height <= 0) {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}
