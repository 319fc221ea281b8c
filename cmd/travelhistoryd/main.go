// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Command travelhistoryd serves the travel history REST API.  It
// records visited countries in a configurable storage backend,
// enriching each with reference data from an external directory
// service, and publishes Prometheus metrics at /metrics.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diffeo/go-travelhistory/backend"
	"github.com/diffeo/go-travelhistory/cache"
	"github.com/diffeo/go-travelhistory/chart"
	"github.com/diffeo/go-travelhistory/directory"
	"github.com/diffeo/go-travelhistory/restserver"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newApp() *cli.App {
	defaults := defaultConfig()
	app := cli.NewApp()
	app.Name = "travelhistoryd"
	app.Usage = "serve the travel history REST API"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "http",
			Value: defaults.HTTP,
			Usage: "[ip]:port for HTTP REST interface",
		},
		cli.StringFlag{
			Name:  "backend",
			Value: defaults.Backend,
			Usage: fmt.Sprintf("impl[:address] of the storage backend, one of %v", backend.Implementations()),
		},
		cli.StringFlag{
			Name:  "directory-url",
			Value: defaults.DirectoryURL,
			Usage: "GraphQL endpoint of the country directory",
		},
		cli.DurationFlag{
			Name:  "directory-timeout",
			Value: defaults.DirectoryTimeout,
			Usage: "maximum time to wait for the country directory",
		},
		cli.IntFlag{
			Name:  "directory-cache-size",
			Value: defaults.CacheSize,
			Usage: "number of directory lookups to remember",
		},
		cli.DurationFlag{
			Name:  "directory-cache-ttl",
			Value: defaults.CacheTTL,
			Usage: "how long to remember directory lookups, 0 to always refetch",
		},
		cli.StringFlag{
			Name:  "config",
			Usage: "global configuration YAML file",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: defaults.LogLevel,
			Usage: "minimum level of log messages",
		},
		cli.BoolFlag{
			Name:  "log-requests",
			Usage: "log all requests",
		},
		cli.DurationFlag{
			Name:  "summary-interval",
			Value: defaults.SummaryInterval,
			Usage: "how often to refresh the visited-countries metric, 0 to disable",
		},
		cli.StringFlag{
			Name:  "visited-format",
			Value: defaults.VisitedFormat,
			Usage: "representation of the visited summary, png, svg or json",
		},
	}
	app.Action = run
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("travelhistoryd failed")
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logger := logrus.StandardLogger()

	var be backend.Backend
	if err := be.Set(cfg.Backend); err != nil {
		return err
	}

	opts := restserver.Options{Logger: logger}
	switch cfg.VisitedFormat {
	case "png":
		opts.Renderer = chart.PNG{}
	case "svg":
		opts.Renderer = chart.Bar{}
	case "json":
	default:
		return fmt.Errorf("unknown visited format %q", cfg.VisitedFormat)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := be.Store(ctx)
	if err != nil {
		return fmt.Errorf("create %v backend: %w", be.Implementation, err)
	}
	if closer, isCloser := store.(io.Closer); isCloser {
		defer closer.Close()
	}

	client := directory.New(cfg.DirectoryURL, cfg.DirectoryTimeout)
	client.Logger = logger
	var fetcher directory.Fetcher = client
	if cfg.CacheTTL > 0 {
		fetcher = cache.New(client, cfg.CacheSize, cfg.CacheTTL)
	}

	server := &http.Server{
		Addr:    cfg.HTTP,
		Handler: newHandler(store, fetcher, opts, cfg.LogRequests),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(logrus.Fields{
			"address": cfg.HTTP,
			"backend": be.String(),
		}).Info("serving HTTP")
		err := server.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.SummaryInterval > 0 {
		g.Go(func() error {
			observe(gctx, store, cfg.SummaryInterval, logger)
			return nil
		})
	}
	return g.Wait()
}
