// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"errors"
	"time"

	"github.com/diffeo/go-travelhistory/travel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var visitedCountries = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "diffeo",
		Subsystem: "travel",
		Name:      "visited_countries",
		Help:      "Number of visited countries per continent",
	},
	[]string{
		"continent",
	},
)

var requestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "diffeo",
		Subsystem: "travel",
		Name:      "http_request_duration_seconds",
		Help:      "Time to serve HTTP requests",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{
		"method",
		"code",
	},
)

func init() {
	prometheus.MustRegister(visitedCountries, requestDuration)
}

// observeOnce refreshes the visited-countries gauge from the store.
func observeOnce(ctx context.Context, store travel.Store) error {
	counts, err := store.VisitedSummary(ctx)
	if err != nil && !errors.Is(err, travel.ErrNoData) {
		return err
	}
	visitedCountries.Reset()
	for _, count := range counts {
		visitedCountries.WithLabelValues(count.Continent).Set(float64(count.Count))
	}
	return nil
}

// observe refreshes the visited-countries gauge every interval until
// ctx is canceled.
func observe(ctx context.Context, store travel.Store, interval time.Duration, logger logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := observeOnce(ctx, store); err != nil && ctx.Err() == nil {
			logger.WithError(err).Warn("could not refresh visited summary")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
