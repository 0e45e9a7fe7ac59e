package main

import (
	"io/ioutil"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/playmix/playmix/pkg/store"
)

type Config struct {
	// Server is the web server configuration
	Server Server `toml:"server"`
	// Log is the optional logging configuration
	Log Log `toml:"log"`
	// Database configuration
	Database store.Config `toml:"database"`
	// Tokens is the list of YouTube API keys, rotated per request when
	// more than one is given.
	Tokens []string `toml:"tokens"`
	// Refresh controls the periodic cache refresh of all collections.
	Refresh Refresh `toml:"refresh"`
}

type Server struct {
	Port        int    `toml:"port"`
	BindAddress string `toml:"bind_address"`
}

type Log struct {
	// Filename to write the log to (instead of stdout)
	Filename string `toml:"filename"`
}

type Refresh struct {
	// Schedule is a cron expression, e.g. "@every 6h"
	Schedule string `toml:"schedule"`
}

// LoadConfig loads TOML configuration from a file path
func LoadConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}

	config := Config{}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal toml")
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	var result *multierror.Error

	if c.Database.Dir == "" {
		result = multierror.Append(result, errors.New("database directory is required"))
	}

	if len(c.Tokens) == 0 {
		result = multierror.Append(result, errors.New("at least one API token must be specified"))
	}

	for _, token := range c.Tokens {
		if token == "" {
			result = multierror.Append(result, errors.New("tokens can't be empty"))
		}
	}

	return result.ErrorOrNil()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Refresh.Schedule == "" {
		c.Refresh.Schedule = "@every 6h"
	}
}
