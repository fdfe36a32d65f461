// Package config collects the settings of a simulation run from .env files
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// The environment variables that configure a run.
const (
	EnvTraceDB     = "PTSIM_TRACE_DB"
	EnvTraceLog    = "PTSIM_TRACE_LOG"
	EnvTLBSize     = "PTSIM_TLB_SIZE"
	EnvMonitor     = "PTSIM_MONITOR"
	EnvMonitorPort = "PTSIM_MONITOR_PORT"
)

// DefaultTLBSize is the number of translations cached when no size is set.
const DefaultTLBSize = 16

// Config holds the settings of a run.
type Config struct {
	// TraceDB is the name of the SQLite file that records the trace. Tracing
	// into a database is off when it is empty.
	TraceDB string

	// TraceLog turns on the text tracer.
	TraceLog bool

	// TLBSize is the number of cached translations. 0 disables the cache.
	TLBSize int

	Monitor     bool
	MonitorPort int
	OpenBrowser bool
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{TLBSize: DefaultTLBSize}
}

// Load reads the given .env files, or .env if none is given, into the
// environment and returns the configuration that the environment describes.
// Missing files are skipped. Variables already set are not overridden.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, f := range envFiles {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	return FromEnv()
}

// FromEnv returns the configuration described by the environment.
func FromEnv() (Config, error) {
	c := Default()
	c.TraceDB = os.Getenv(EnvTraceDB)

	var err error

	if c.TraceLog, err = boolVar(EnvTraceLog, c.TraceLog); err != nil {
		return Config{}, err
	}

	if c.TLBSize, err = intVar(EnvTLBSize, c.TLBSize); err != nil {
		return Config{}, err
	}

	if c.TLBSize < 0 {
		return Config{}, fmt.Errorf("%s: negative size %d", EnvTLBSize, c.TLBSize)
	}

	if c.Monitor, err = boolVar(EnvMonitor, c.Monitor); err != nil {
		return Config{}, err
	}

	if c.MonitorPort, err = intVar(EnvMonitorPort, c.MonitorPort); err != nil {
		return Config{}, err
	}

	return c, nil
}

func boolVar(key string, def bool) (bool, error) {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}

	return v, nil
}

func intVar(key string, def int) (int, error) {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return v, nil
}
