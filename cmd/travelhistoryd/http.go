// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/diffeo/go-travelhistory/directory"
	"github.com/diffeo/go-travelhistory/restserver"
	"github.com/diffeo/go-travelhistory/travel"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

// requestIDHeader carries a per-request identifier, generated if the
// client did not send one.
const requestIDHeader = "X-Request-Id"

// newHandler builds the complete HTTP handler: the REST API, metrics,
// and the middleware around them.
func newHandler(store travel.Store, fetcher directory.Fetcher, opts restserver.Options, logRequests bool) http.Handler {
	r := mux.NewRouter()
	restserver.PopulateRouter(r, store, fetcher, opts)
	r.Handle("/metrics", promhttp.Handler())

	n := negroni.New(negroni.NewRecovery())
	n.UseFunc(requestID)
	n.UseFunc(instrument)
	if logRequests {
		n.Use(requestLogger{Logger: opts.Logger})
	}
	n.UseHandler(r)
	return n
}

func requestID(rw http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
	id := req.Header.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewV4().String()
		req.Header.Set(requestIDHeader, id)
	}
	rw.Header().Set(requestIDHeader, id)
	next(rw, req)
}

func status(rw http.ResponseWriter) int {
	if nrw, ok := rw.(negroni.ResponseWriter); ok && nrw.Status() != 0 {
		return nrw.Status()
	}
	return http.StatusOK
}

func instrument(rw http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
	start := time.Now()
	next(rw, req)
	requestDuration.WithLabelValues(req.Method, strconv.Itoa(status(rw))).Observe(time.Since(start).Seconds())
}

// requestLogger logs every request at info level.
type requestLogger struct {
	Logger logrus.FieldLogger
}

func (l requestLogger) ServeHTTP(rw http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
	start := time.Now()
	next(rw, req)
	logger := l.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"method":     req.Method,
		"path":       req.URL.RequestURI(),
		"status":     status(rw),
		"duration":   time.Since(start),
		"request_id": req.Header.Get(requestIDHeader),
	}).Info("request")
}
