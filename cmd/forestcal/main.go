// Command forestcal trains a Random Forest calorie model on a CSV dataset
// and prints an evaluation report, or serves the session API over HTTP.
//
// Usage:
//
//	forestcal -data exercise_dataset.csv [-target "Calories Burn"] [-features "Duration,Gender"]
//	forestcal -serve [-config forestcal.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/ezoic/forestcal/config"
	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/pkg/log"
	"github.com/ezoic/forestcal/server"
	"github.com/ezoic/forestcal/session"
)

type options struct {
	configFile string
	dataFile   string
	target     string
	features   string
	serve      bool
	addr       string
	logLevel   string
	outFile    string
	chartsDir  string
	asJSON     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", "", "Path to a YAML settings file (defaults apply when empty)")
	flag.StringVar(&opts.dataFile, "data", "", "CSV dataset; empty loads the default dataset from the data dir")
	flag.StringVar(&opts.target, "target", "", "Target column (suggested when empty)")
	flag.StringVar(&opts.features, "features", "", "Comma-separated feature columns (suggested when empty)")
	flag.BoolVar(&opts.serve, "serve", false, "Serve the HTTP API instead of training once")
	flag.StringVar(&opts.addr, "addr", "", "Listen address, overrides the settings file")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug|info|warn|error), overrides the settings file")
	flag.StringVar(&opts.outFile, "out", "", "Write the test-set predictions CSV to this path")
	flag.StringVar(&opts.chartsDir, "charts", "", "Write PNG charts into this directory")
	flag.BoolVar(&opts.asJSON, "json", false, "Print the report as JSON")
	flag.Parse()

	if err := run(opts); err != nil {
		log.LogError(err, "forestcal failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	settings, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		settings.Log.Level = opts.logLevel
	}
	if opts.addr != "" {
		settings.Server.Addr = opts.addr
	}
	log.SetupLogger(settings.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.serve {
		return server.New(settings).ListenAndServe(ctx)
	}
	return trainOnce(ctx, opts, settings)
}

func trainOnce(ctx context.Context, opts options, settings config.Settings) error {
	tbl, err := loadData(opts.dataFile, settings.Data)
	if err != nil {
		return err
	}
	s, err := session.New(tbl, settings)
	if err != nil {
		return err
	}

	roles := s.Roles
	if opts.target != "" {
		roles.Target = opts.target
	}
	if opts.features != "" {
		roles.Features = splitList(opts.features)
	}
	if opts.features == "" {
		roles.Features = slices.DeleteFunc(slices.Clone(roles.Features), func(f string) bool { return f == roles.Target })
	}
	if err := s.SetRoles(roles); err != nil {
		return err
	}

	res, err := s.Train(ctx)
	if err != nil {
		return err
	}

	if opts.asJSON {
		err = writeJSONReport(os.Stdout, s, res)
	} else {
		err = writeReport(os.Stdout, s, res)
	}
	if err != nil {
		return err
	}

	if opts.outFile != "" {
		if err := writePredictions(opts.outFile, res); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Predictions written to %s\n", opts.outFile)
	}
	if opts.chartsDir != "" {
		paths, err := writeCharts(opts.chartsDir, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Charts written: %s\n", strings.Join(paths, ", "))
	}
	return nil
}

func loadData(path string, d config.Data) (*dataset.Table, error) {
	if path != "" {
		return dataset.LoadFileLimit(path, d.MaxFileBytes())
	}
	tbl, found, err := dataset.LoadDefault(d.Dir, d.DefaultDataset, d.MaxFileBytes())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fcErrors.NewDataError("forestcal", fmt.Sprintf("no -data given and %s not found in %q",
			d.DefaultDataset, filepath.Clean(d.Dir)), fcErrors.ErrEmptyData)
	}
	return tbl, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
