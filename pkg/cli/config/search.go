package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/shifanka/recall/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Search holds the optional search tuning configuration, loaded from a
// TOML file. Absent fields keep the engine defaults.
type Search struct {
	path string

	Limit           int     `toml:"limit"`
	MinScore        float64 `toml:"min_score"`
	CacheTTLSeconds int     `toml:"cache_ttl_seconds"`
}

// Flags returns CLI flags for search configuration
func (s *Search) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "search-config",
			Usage:       "Path to search tuning configuration (TOML)",
			Sources:     cli.EnvVars("RECALL_SEARCH_CONFIG"),
			Destination: &s.path,
		},
	}
}

// Validate checks if the Search configuration is valid
func (s *Search) Validate() error {
	if s.Limit < 0 {
		return goerr.New("search limit must not be negative", goerr.V("limit", s.Limit))
	}
	if s.MinScore < 0 || s.MinScore > 1 {
		return goerr.New("min_score must be within [0,1]", goerr.V("min_score", s.MinScore))
	}
	if s.CacheTTLSeconds < 0 {
		return goerr.New("cache_ttl_seconds must not be negative", goerr.V("cache_ttl_seconds", s.CacheTTLSeconds))
	}
	return nil
}

// Configure loads the TOML file when one is given and returns the
// resulting use case options.
func (s *Search) Configure() ([]usecase.Option, error) {
	if s.path != "" {
		// #nosec G304 - path is expected to be provided by CLI argument
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read search config file", goerr.V("path", s.path))
		}
		if err := toml.Unmarshal(data, s); err != nil {
			return nil, goerr.Wrap(err, "failed to parse TOML search config", goerr.V("path", s.path))
		}
	}

	if err := s.Validate(); err != nil {
		return nil, goerr.Wrap(err, "search config validation failed", goerr.V("path", s.path))
	}

	var opts []usecase.Option
	if s.Limit > 0 {
		opts = append(opts, usecase.WithSearchLimit(s.Limit))
	}
	if s.MinScore > 0 {
		opts = append(opts, usecase.WithMinScore(s.MinScore))
	}
	if s.CacheTTLSeconds > 0 {
		opts = append(opts, usecase.WithCacheTTL(time.Duration(s.CacheTTLSeconds)*time.Second))
	}
	return opts, nil
}
