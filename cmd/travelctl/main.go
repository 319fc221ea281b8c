// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Travelctl is a command-line client for the travel history REST
// service.  Usage:
//
//     travelctl --url http://localhost:5980/ put FR 2011 2012
//     travelctl list --continent EU --sort=-last_updated
//     travelctl visited --output visited.svg
//
// Responses are printed as JSON.
package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"strconv"

	"github.com/diffeo/go-travelhistory/restclient"
	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/diffeo/go-travelhistory/travel"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("travelctl failed")
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "travelctl"
	app.Usage = "manage a travel history"
	app.HideVersion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "url",
			Value: "http://localhost:5980/",
			Usage: "base URL of the travel history service",
		},
		cli.BoolFlag{
			Name:  "cbor",
			Usage: "talk to the service in CBOR instead of JSON",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "maximum time for each request, 0 for none",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "get",
			Usage:     "show a visited country",
			ArgsUsage: "CODE",
			Action:    get,
		},
		{
			Name:      "put",
			Usage:     "record a visited country, refreshing its reference data",
			ArgsUsage: "CODE [YEAR...]",
			Action:    put,
		},
		{
			Name:      "patch",
			Usage:     "add visit years to a recorded country",
			ArgsUsage: "CODE YEAR...",
			Action:    patch,
		},
		{
			Name:      "delete",
			Usage:     "forget a visited country",
			ArgsUsage: "CODE",
			Action:    del,
		},
		{
			Name:  "list",
			Usage: "list visited countries",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "continent", Usage: "only countries on this continent code"},
				cli.StringFlag{Name: "currency", Usage: "only countries using this currency"},
				cli.StringFlag{Name: "language", Usage: "only countries speaking this language code"},
				cli.IntFlag{Name: "year", Usage: "only countries visited in this year"},
				cli.StringFlag{Name: "sort", Usage: "comma-separated sort keys, - prefix for descending"},
				cli.IntFlag{Name: "page", Usage: "1-based page number"},
				cli.IntFlag{Name: "size", Usage: "countries per page"},
			},
			Action: list,
		},
		{
			Name:  "visited",
			Usage: "show the number of visited countries per continent",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "output", Usage: "write the summary to this file"},
			},
			Action: visited,
		},
	}
	return app
}

func connect(c *cli.Context) (context.Context, *restclient.Client, error) {
	ctx := context.Background()
	httpClient := &http.Client{Timeout: c.GlobalDuration("timeout")}
	mediaType := ""
	if c.GlobalBool("cbor") {
		mediaType = restdata.CBORMediaType
	}
	client, err := restclient.NewWithClient(ctx, c.GlobalString("url"), httpClient, mediaType)
	return ctx, client, err
}

func show(c *cli.Context, out interface{}) error {
	if err := restdata.Encode(restdata.V1JSONMediaType, c.App.Writer, out); err != nil {
		return err
	}
	_, err := fmt.Fprintln(c.App.Writer)
	return err
}

// codeAndYears splits positional arguments into a country code and
// visit years.
func codeAndYears(c *cli.Context, needYears bool) (string, []int, error) {
	args := c.Args()
	if len(args) < 1 || (needYears && len(args) < 2) {
		return "", nil, fmt.Errorf("usage: %v %v", c.Command.Name, c.Command.ArgsUsage)
	}
	years := make([]int, 0, len(args)-1)
	for _, arg := range args[1:] {
		year, err := strconv.Atoi(arg)
		if err != nil {
			return "", nil, fmt.Errorf("invalid year %q", arg)
		}
		years = append(years, year)
	}
	return args[0], years, nil
}

func get(c *cli.Context) error {
	code, _, err := codeAndYears(c, false)
	if err != nil {
		return err
	}
	ctx, client, err := connect(c)
	if err != nil {
		return err
	}
	country, err := client.Country(ctx, code)
	if err != nil {
		return err
	}
	return show(c, country)
}

func put(c *cli.Context) error {
	code, years, err := codeAndYears(c, false)
	if err != nil {
		return err
	}
	ctx, client, err := connect(c)
	if err != nil {
		return err
	}
	country, created, err := client.PutCountry(ctx, code, years)
	if err != nil {
		return err
	}
	if created {
		logrus.WithField("code", country.Code).Info("created")
	}
	return show(c, country)
}

func patch(c *cli.Context) error {
	code, years, err := codeAndYears(c, true)
	if err != nil {
		return err
	}
	ctx, client, err := connect(c)
	if err != nil {
		return err
	}
	country, err := client.AddYears(ctx, code, years)
	if err != nil {
		return err
	}
	return show(c, country)
}

func del(c *cli.Context) error {
	code, _, err := codeAndYears(c, false)
	if err != nil {
		return err
	}
	ctx, client, err := connect(c)
	if err != nil {
		return err
	}
	resp, err := client.DeleteCountry(ctx, code)
	if err != nil {
		return err
	}
	return show(c, resp)
}

func list(c *cli.Context) error {
	ctx, client, err := connect(c)
	if err != nil {
		return err
	}
	query := travel.CountryQuery{
		Continent: c.String("continent"),
		Currency:  c.String("currency"),
		Language:  c.String("language"),
		Year:      c.Int("year"),
		Page:      c.Int("page"),
		Size:      c.Int("size"),
	}
	if c.IsSet("sort") {
		query.Sort = travel.ParseSort(c.String("sort"))
	}
	countries, err := client.Countries(ctx, query)
	if err != nil {
		return err
	}
	return show(c, countries)
}

func visited(c *cli.Context) error {
	ctx, client, err := connect(c)
	if err != nil {
		return err
	}
	contentType, body, err := client.VisitedImage(ctx)
	if err == travel.ErrNoData {
		logrus.Info("no countries visited")
		return nil
	}
	if err != nil {
		return err
	}
	if output := c.String("output"); output != "" {
		logrus.WithFields(logrus.Fields{
			"file":         output,
			"content_type": contentType,
		}).Info("writing visited summary")
		return ioutil.WriteFile(output, body, 0644)
	}
	_, err = c.App.Writer.Write(body)
	return err
}
