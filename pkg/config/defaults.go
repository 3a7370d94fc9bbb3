package config

import (
	_ "embed"
)

//go:embed defaults/jxscript.yaml
var defaultYAML []byte

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		ScriptRoot:    ".",
		Encoding:      "gbk",
		TPS:           60,
		MaxOpsPerTick: 1000,
		ExitWhenIdle:  true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Window: WindowConfig{
			Width:  800,
			Height: 600,
			Title:  "jxscript",
		},
	}
}
