// Package config loads and validates the barrage execution configuration.
// The result is a single immutable Config value constructed once at
// startup; no other package reads environment state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Limits on the configurable runner bounds. Values outside these ranges
// abort startup.
const (
	MinTimeout = 1 * time.Second
	MaxTimeout = 2 * time.Hour

	MinOutputMB = 1
	MaxOutputMB = 100
)

// Defaults applied when neither the environment nor the override file
// sets a value.
const (
	DefaultTimeout  = 5 * time.Minute
	DefaultOutputMB = 10
)

// Config holds the validated execution configuration. All fields are
// fixed after Load returns; components share it read-only.
type Config struct {
	BinaryPath string        // resolved artillery binary
	WorkDir    string        // sandbox root for all user-supplied paths
	Timeout    time.Duration // per-run wall-clock bound
	MaxOutput  int           // per-stream capture cap in bytes
	AllowQuick bool          // gate on the quick-test tool
}

// MaxOutputMBValue returns the capture cap in whole megabytes, for
// diagnostics.
func (c *Config) MaxOutputMBValue() int {
	return c.MaxOutput >> 20
}

// overrides is the optional <workDir>/.barrage YAML file. All fields
// are optional; the environment takes precedence over the file.
type overrides struct {
	Timeout     string `yaml:"timeout"`       // e.g. "5m", "30s"
	MaxOutputMB int    `yaml:"max_output_mb"` // whole megabytes
	AllowQuick  *bool  `yaml:"allow_quick"`
}

// Getenv is the environment lookup used by Load. Tests substitute a map.
type Getenv func(key string) string

// Load builds a validated Config from the environment and the optional
// .barrage file under the work directory. binaryPath is the already
// detected artillery binary. Any validation failure is startup-fatal
// for the caller.
func Load(getenv Getenv, binaryPath string) (*Config, error) {
	workDir := getenv("BARRAGE_WORK_DIR")
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining work dir: %w", err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolving work dir: %w", err)
	}
	info, err := os.Stat(workDir)
	if err != nil {
		return nil, fmt.Errorf("work dir %s: %w", workDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("work dir %s is not a directory", workDir)
	}

	ov, err := loadOverrides(workDir)
	if err != nil {
		return nil, err
	}

	timeout := DefaultTimeout
	if ov.Timeout != "" {
		d, err := time.ParseDuration(ov.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parsing .barrage timeout: %w", err)
		}
		timeout = d
	}
	if raw := getenv("BARRAGE_TIMEOUT_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing BARRAGE_TIMEOUT_MS: %w", err)
		}
		timeout = time.Duration(ms) * time.Millisecond
	}
	if timeout < MinTimeout || timeout > MaxTimeout {
		return nil, fmt.Errorf("timeout %s out of range [%s, %s]", timeout, MinTimeout, MaxTimeout)
	}

	outputMB := DefaultOutputMB
	if ov.MaxOutputMB > 0 {
		outputMB = ov.MaxOutputMB
	}
	if raw := getenv("BARRAGE_MAX_OUTPUT_MB"); raw != "" {
		mb, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing BARRAGE_MAX_OUTPUT_MB: %w", err)
		}
		outputMB = mb
	}
	if outputMB < MinOutputMB || outputMB > MaxOutputMB {
		return nil, fmt.Errorf("max output %dMB out of range [%dMB, %dMB]", outputMB, MinOutputMB, MaxOutputMB)
	}

	allowQuick := false
	if ov.AllowQuick != nil {
		allowQuick = *ov.AllowQuick
	}
	if raw := getenv("BARRAGE_ALLOW_QUICK"); raw != "" {
		allowQuick = raw == "true" || raw == "1"
	}

	return &Config{
		BinaryPath: binaryPath,
		WorkDir:    workDir,
		Timeout:    timeout,
		MaxOutput:  outputMB << 20,
		AllowQuick: allowQuick,
	}, nil
}

// loadOverrides reads the optional .barrage file. A missing file yields
// zero-valued overrides; a malformed one is an error.
func loadOverrides(workDir string) (*overrides, error) {
	path := filepath.Join(workDir, ".barrage")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &overrides{}, nil
		}
		return nil, fmt.Errorf("reading .barrage: %w", err)
	}

	ov := &overrides{}
	if err := yaml.Unmarshal(data, ov); err != nil {
		return nil, fmt.Errorf("parsing .barrage: %w", err)
	}
	return ov, nil
}
