package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/windprofile/internal/config"
	"github.com/banshee-data/windprofile/internal/db"
	"github.com/banshee-data/windprofile/internal/fsutil"
	"github.com/banshee-data/windprofile/internal/ingest"
	"github.com/banshee-data/windprofile/internal/monitor"
	"github.com/banshee-data/windprofile/internal/monitoring"
	"github.com/banshee-data/windprofile/internal/plotting"
	"github.com/banshee-data/windprofile/internal/regrid"
	"github.com/banshee-data/windprofile/internal/vad"
)

type options struct {
	configPath  string
	input       string
	output      string
	format      string
	plotPath    string
	dbPath      string
	listen      string
	debug       bool
	showVersion bool

	// overrides holds the config fields given explicitly on the command line.
	overrides *config.VADConfig

	fs fsutil.FileSystem
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fset := flag.NewFlagSet("vad", flag.ContinueOnError)
	fset.SetOutput(stderr)

	opts := &options{fs: fsutil.OSFileSystem{}}
	fset.StringVar(&opts.configPath, "config", "", "Path to VAD config JSON or YAML (defaults to "+config.DefaultConfigPath+" when present)")
	fset.StringVar(&opts.input, "input", "-", "Observation CSV (radial_wind, azimuth, range, elevation); - for stdin")
	fset.StringVar(&opts.output, "output", "", "Output file (defaults to stdout)")
	fset.StringVar(&opts.format, "format", "", "Output format: csv or json (defaults from -output extension, else csv)")
	fset.StringVar(&opts.plotPath, "plot", "", "Write a profile plot (png, svg or pdf by extension)")
	fset.StringVar(&opts.dbPath, "db", "", "Record the run in this SQLite database")
	fset.StringVar(&opts.listen, "listen", "", "Serve the profile over HTTP on this address until interrupted")
	fset.BoolVar(&opts.debug, "debug", false, "Enable per-ring debug logging")
	fset.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	maxNA := fset.Float64("max-na", 0, "Override max_na: largest missing fraction per ring")
	maxGap := fset.Float64("max-gap", 0, "Override max_consecutive_na: largest azimuth gap in degrees")
	r2Min := fset.Float64("r2-min", 0, "Override r2_min: minimum fit R²")
	outlier := fset.Float64("outlier", 0, "Override outlier_threshold in residual SDs")
	azOrigin := fset.Float64("az-origin", 0, "Override azimuth_origin in degrees")
	azDir := fset.String("az-direction", "", "Override azimuth_direction: cw or ccw")
	workers := fset.Int("workers", 0, "Override workers (0 = GOMAXPROCS)")
	timeout := fset.String("timeout", "", "Override processing_timeout, e.g. 30s")
	unitsFlag := fset.String("units", "", "Override output units: mps, mph, kmph, kph, kt")
	step := fset.Float64("step", 0, "Override regrid_step in meters (0 disables)")
	regridMin := fset.Float64("regrid-min", 0, "Override regrid_min in meters")
	regridMax := fset.Float64("regrid-max", 0, "Override regrid_max in meters")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	if fset.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %s", strings.Join(fset.Args(), " "))
		fmt.Fprintln(stderr, err)
		return nil, err
	}

	ov := config.EmptyVADConfig()
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-na":
			ov.MaxNA = maxNA
		case "max-gap":
			ov.MaxConsecutiveNA = maxGap
		case "r2-min":
			ov.R2Min = r2Min
		case "outlier":
			ov.OutlierThreshold = outlier
		case "az-origin":
			ov.AzimuthOrigin = azOrigin
		case "az-direction":
			ov.AzimuthDirection = azDir
		case "workers":
			ov.Workers = workers
		case "timeout":
			ov.ProcessingTimeout = timeout
		case "units":
			ov.Units = unitsFlag
		case "step":
			ov.RegridStep = step
		case "regrid-min":
			ov.RegridMin = regridMin
		case "regrid-max":
			ov.RegridMax = regridMax
		}
	})
	opts.overrides = ov
	return opts, nil
}

// loadConfig reads the config file (if any) and applies flag overrides.
func loadConfig(opts *options) (*config.VADConfig, error) {
	cfg := config.DefaultVADConfig()
	path := opts.configPath
	if path == "" && opts.fs.Exists(config.DefaultConfigPath) {
		path = config.DefaultConfigPath
	}
	if path != "" {
		loaded, err := config.LoadVADConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.Merge(opts.overrides)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type result struct {
	rows   []vad.Row
	levels []regrid.Level
}

// process fits the observations and regrids when a step is configured.
func process(ctx context.Context, cfg *config.VADConfig, obs []vad.Observation) (*result, error) {
	vcfg, err := cfg.ToVADConfig()
	if err != nil {
		return nil, err
	}
	if timeout := cfg.GetProcessingTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rows, err := vad.Fit(ctx, obs, vcfg)
	if err != nil {
		return nil, err
	}
	res := &result{rows: rows}

	step := cfg.GetRegridStep()
	if step <= 0 {
		return res, nil
	}
	lo, hi, ok := regrid.Span(rows)
	if !ok {
		log.Printf("no accepted rings; skipping regrid")
		return res, nil
	}
	minH, minOK, maxH, maxOK := cfg.GetRegridBounds()
	if minOK {
		lo = minH
	} else {
		// Start the grid on a whole multiple of the step.
		lo = step * math.Floor(lo/step)
	}
	if maxOK {
		hi = maxH
	}
	heights, err := regrid.Heights(lo, hi, step)
	if err != nil {
		return nil, err
	}
	res.levels = regrid.Regrid(rows, heights)
	return res, nil
}

func readInput(opts *options, stdin io.Reader) ([]vad.Observation, error) {
	if opts.input == "-" {
		return ingest.ReadObservations(stdin)
	}
	return ingest.ReadFile(opts.fs, opts.input)
}

func outputFormat(opts *options) (string, error) {
	format := strings.ToLower(opts.format)
	if format == "" {
		format = "csv"
		if strings.EqualFold(filepath.Ext(opts.output), ".json") {
			format = "json"
		}
	}
	if format != "csv" && format != "json" {
		return "", fmt.Errorf("unknown output format %q (want csv or json)", opts.format)
	}
	return format, nil
}

func writeOutput(opts *options, format, unit string, res *result, stdout io.Writer) (err error) {
	w := stdout
	if opts.output != "" {
		if dir := filepath.Dir(opts.output); !opts.fs.Exists(dir) {
			if err := opts.fs.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, cerr := opts.fs.Create(opts.output)
		if cerr != nil {
			return fmt.Errorf("failed to create output: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if format == "json" {
		return ingest.WriteJSON(w, res.rows, unit)
	}
	return ingest.WriteRows(w, res.rows, unit)
}

func run(ctx context.Context, opts *options, stdout io.Writer) error {
	monitoring.SetDebug(opts.debug)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	format, err := outputFormat(opts)
	if err != nil {
		return err
	}

	obs, err := readInput(opts, os.Stdin)
	if err != nil {
		return err
	}
	log.Printf("read %d observations from %s", len(obs), opts.input)

	res, err := process(ctx, cfg, obs)
	if err != nil {
		return err
	}

	unit := cfg.GetUnits()
	if err := writeOutput(opts, format, unit, res, stdout); err != nil {
		return err
	}

	if opts.plotPath != "" {
		if err := plotting.SaveProfile(res.rows, res.levels, opts.plotPath, unit); err != nil {
			if !errors.Is(err, plotting.ErrNoData) {
				return err
			}
			log.Printf("plot skipped: %v", err)
		} else {
			log.Printf("wrote profile plot to %s", opts.plotPath)
		}
	}

	var database *db.DB
	var runID string
	if opts.dbPath != "" {
		database, err = db.NewDB(opts.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		runID, err = database.RecordRun(opts.input, cfg, res.rows)
		if err != nil {
			return err
		}
		log.Printf("recorded run %s in %s", runID, opts.dbPath)
	}

	if opts.listen == "" {
		return nil
	}
	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address: opts.listen,
		Units:   unit,
		DB:      database,
	})
	ws.Publish(monitor.Snapshot{RunID: runID, Source: opts.input, Rows: res.rows, Levels: res.levels})
	return ws.Start(ctx)
}
