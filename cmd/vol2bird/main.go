// Command vol2bird computes the vertical profile of birds for one polar
// volume and prints it as a fixed-width table on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/bmvandoren/vol2bird/internal/config"
	"github.com/bmvandoren/vol2bird/internal/engine"
	"github.com/bmvandoren/vol2bird/internal/engine/replay"
	"github.com/bmvandoren/vol2bird/internal/fsutil"
	"github.com/bmvandoren/vol2bird/internal/monitoring"
	"github.com/bmvandoren/vol2bird/internal/profile"
	"github.com/bmvandoren/vol2bird/internal/report"
	"github.com/bmvandoren/vol2bird/internal/version"
	"github.com/bmvandoren/vol2bird/internal/volume"
)

const program = "vol2bird"

// Exit statuses.
const (
	exitOK      = 0
	exitFailure = -1
)

// ErrUsage is returned for a wrong number of positional arguments.
var ErrUsage = errors.New("usage error")

// newBackend is replaced in tests.
var newBackend = func() engine.Backend { return replay.New() }

type options struct {
	input        string
	configPath   string
	dbPath       string
	plotPath     string
	htmlPath     string
	xlsxPath     string
	kafkaBrokers []string
	kafkaTopic   string
	verbose      bool
	showVersion  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		report.WriteUsage(stderr, program)
		fmt.Fprintf(stderr, "\n   Flags:\n")
		fs.PrintDefaults()
	}

	var brokers string
	fs.StringVar(&o.configPath, "config", os.Getenv(config.EnvConfigPath), "engine options file (.json, .yaml or .yml)")
	fs.StringVar(&o.dbPath, "db", "", "archive the profile in this sqlite database")
	fs.StringVar(&o.plotPath, "plot", "", "write a PNG plot of the profile")
	fs.StringVar(&o.htmlPath, "html", "", "write an interactive HTML chart of the profile")
	fs.StringVar(&o.xlsxPath, "xlsx", "", "write the profile as an Excel workbook")
	fs.StringVar(&brokers, "kafka-brokers", "", "comma-separated Kafka brokers to publish the profile to")
	fs.StringVar(&o.kafkaTopic, "kafka-topic", "vol2bird.profiles", "Kafka topic for published profiles")
	fs.BoolVar(&o.verbose, "v", false, "log diagnostics to stderr")
	fs.BoolVar(&o.showVersion, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				o.kafkaBrokers = append(o.kafkaBrokers, b)
			}
		}
	}
	if o.showVersion {
		return o, nil
	}

	switch fs.NArg() {
	case 0:
		fs.Usage()
		return nil, ErrUsage
	case 1:
		o.input = fs.Arg(0)
	default:
		fmt.Fprintln(stderr, "Only one argument is allowed")
		return nil, ErrUsage
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseArgs(args, stderr)
	if err != nil {
		return exitFailure
	}
	if o.showVersion {
		fmt.Fprintf(stdout, "%s %s\n", program, version.String())
		return exitOK
	}

	prev := monitoring.Logf
	defer monitoring.SetLogger(prev)
	if o.verbose {
		monitoring.SetLogger(log.New(stderr, "", log.LstdFlags).Printf)
	} else {
		monitoring.SetLogger(nil)
	}

	if err := process(context.Background(), o, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)
		return exitFailure
	}
	return exitOK
}

// process runs one volume through the engine and writes the table and any
// requested sinks. Inputs that are not polar volumes are skipped.
func process(ctx context.Context, o *options, stdout, stderr io.Writer) error {
	fsys := fsutil.OSFileSystem{}

	f, err := volume.Open(fsys, o.input)
	if err != nil {
		return err
	}
	defer f.Release()

	vol, ok := f.PolarVolume()
	if !ok {
		monitoring.Logf("[vol2bird] skipping %s: object type %s is not %s", f.Path(), f.ObjectType(), volume.TypePVOL)
		return nil
	}

	var cfg *config.Config
	if o.configPath != "" {
		cfg, err = config.LoadFS(fsys, o.configPath)
		if err != nil {
			return fmt.Errorf("%w: %w", engine.ErrConfigLoad, err)
		}
	}

	h := engine.NewHandle(newBackend())
	defer h.Release()

	if err := h.LoadConfig(cfg); err != nil {
		return err
	}
	if err := h.SetUp(vol); err != nil {
		return err
	}
	if err := h.Compute(); err != nil {
		return err
	}
	monitoring.Logf("[vol2bird] computed %d x %d profile for %s", h.RowCount(), h.ColCount(), vol.Source())

	bio, err := h.Profile(profile.Bio)
	if err != nil {
		return err
	}
	all, err := h.Profile(profile.All)
	if err != nil {
		return err
	}

	report.WriteBanner(stderr, vol.Source(), o.input)
	if err := report.WriteTable(stdout, vol.Date(), vol.Time(), bio, all); err != nil {
		return err
	}

	vp, err := profile.NewVerticalProfile(
		profile.Metadata{Source: vol.Source(), Date: vol.Date(), Time: vol.Time()},
		h.Constants().Settings(), bio, all,
	)
	if err != nil {
		return err
	}
	return writeSinks(ctx, o, fsys, vp)
}
