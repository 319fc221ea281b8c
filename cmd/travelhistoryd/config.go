// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/diffeo/go-travelhistory/directory"
	"github.com/mitchellh/mapstructure"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v2"
)

// config holds the daemon settings.  Values come from, in increasing
// priority, the defaults, the YAML configuration file, and
// command-line flags.
type config struct {
	HTTP             string        `mapstructure:"http"`
	Backend          string        `mapstructure:"backend"`
	DirectoryURL     string        `mapstructure:"directory_url"`
	DirectoryTimeout time.Duration `mapstructure:"directory_timeout"`
	CacheSize        int           `mapstructure:"directory_cache_size"`
	CacheTTL         time.Duration `mapstructure:"directory_cache_ttl"`
	LogLevel         string        `mapstructure:"log_level"`
	LogRequests      bool          `mapstructure:"log_requests"`
	SummaryInterval  time.Duration `mapstructure:"summary_interval"`
	VisitedFormat    string        `mapstructure:"visited_format"`
}

func defaultConfig() config {
	return config{
		HTTP:             ":5980",
		Backend:          "memory",
		DirectoryURL:     directory.DefaultURL,
		DirectoryTimeout: directory.DefaultTimeout,
		CacheSize:        256,
		LogLevel:         "info",
		SummaryInterval:  time.Minute,
		VisitedFormat:    "png",
	}
}

// loadConfig builds the effective configuration for a command line.
func loadConfig(c *cli.Context) (config, error) {
	cfg := defaultConfig()
	if path := c.String("config"); path != "" {
		raw, err := loadConfigYaml(path)
		if err == nil {
			err = cfg.merge(raw)
		}
		if err != nil {
			return cfg, fmt.Errorf("load configuration %v: %w", path, err)
		}
	}
	cfg.applyFlags(c)
	return cfg, nil
}

func loadConfigYaml(filename string) (map[string]interface{}, error) {
	var result map[string]interface{}
	var err error
	var bytes []byte
	bytes, err = ioutil.ReadFile(filename)
	if err == nil {
		err = yaml.Unmarshal(bytes, &result)
	}
	return result, err
}

// merge overlays settings from a decoded configuration file.  Unknown
// keys are an error.
func (c *config) merge(raw map[string]interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      c,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// applyFlags overlays settings from command-line flags that were
// explicitly given.
func (c *config) applyFlags(ctx *cli.Context) {
	if ctx.IsSet("http") {
		c.HTTP = ctx.String("http")
	}
	if ctx.IsSet("backend") {
		c.Backend = ctx.String("backend")
	}
	if ctx.IsSet("directory-url") {
		c.DirectoryURL = ctx.String("directory-url")
	}
	if ctx.IsSet("directory-timeout") {
		c.DirectoryTimeout = ctx.Duration("directory-timeout")
	}
	if ctx.IsSet("directory-cache-size") {
		c.CacheSize = ctx.Int("directory-cache-size")
	}
	if ctx.IsSet("directory-cache-ttl") {
		c.CacheTTL = ctx.Duration("directory-cache-ttl")
	}
	if ctx.IsSet("log-level") {
		c.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("log-requests") {
		c.LogRequests = ctx.Bool("log-requests")
	}
	if ctx.IsSet("summary-interval") {
		c.SummaryInterval = ctx.Duration("summary-interval")
	}
	if ctx.IsSet("visited-format") {
		c.VisitedFormat = ctx.String("visited-format")
	}
}
