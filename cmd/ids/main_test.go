package main

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"ids-go/internal/ids"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "divergent", err: errDivergent, want: exitDivergent},
		{name: "wrapped divergent", err: fmt.Errorf("check: %w", errDivergent), want: exitDivergent},
		{name: "missing baseline", err: fmt.Errorf("loading baseline: %w", ids.ErrBaselineMissing), want: exitError},
		{name: "other", err: errors.New("boom"), want: exitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestHintFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "baseline missing", err: ids.ErrBaselineMissing, want: `No baseline yet: run "ids build" first.`},
		{name: "no config file", err: fmt.Errorf("reading config: %w", fs.ErrNotExist), want: `Missing configuration: run "ids config init" or set IDS_CONFIG_PATH.`},
		{name: "nothing monitored", err: ids.ErrConfigurationMissing, want: `Nothing to monitor: add files_to_monitor or directories to the configuration.`},
		{name: "unknown", err: errors.New("boom"), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hintFor(tt.err); got != tt.want {
				t.Errorf("hintFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("IDS_CONFIG_PATH", "/env/config.toml")

	configFlag = ""
	if got := configPath(); got != "/env/config.toml" {
		t.Errorf("configPath() = %q, want env value", got)
	}

	configFlag = "/flag/config.yaml"
	defer func() { configFlag = "" }()
	if got := configPath(); got != "/flag/config.yaml" {
		t.Errorf("configPath() = %q, want flag value", got)
	}
}
