package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ironsheep/image-sweep/internal/coco"
	"github.com/ironsheep/image-sweep/internal/config"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/ironsheep/image-sweep/internal/monitoring"
	"github.com/ironsheep/image-sweep/internal/perturb"
	"github.com/ironsheep/image-sweep/internal/perturbers"
	"github.com/ironsheep/image-sweep/internal/pipeline"
	"github.com/ironsheep/image-sweep/internal/runstore"
	"github.com/ironsheep/image-sweep/internal/server"
	"github.com/pkg/errors"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks command line mistakes; it maps to exitUsage.
var errUsage = errors.New("usage error")

func main() {
	// Configure logging to stderr (stdout is for MCP protocol and results)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	monitoring.ConfigureFromEnv()
	server.Version = Version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	var err error
	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "image-sweep %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return exitOK
	case "--help", "-h", "help":
		printUsage(stdout)
		return exitOK
	case "run":
		err = cmdRun(ctx, args[1:], stdout, stderr)
	case "labels":
		err = cmdLabels(args[1:], stdout, stderr)
	case "default-config":
		err = cmdDefaultConfig(args[1:], stdout, stderr)
	case "serve":
		err = cmdServe(ctx, args[1:], stderr)
	case "mcp":
		err = cmdMCP(args[1:], stderr)
	case "migrate":
		err = cmdMigrate(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if monitoring.DebugEnabled() {
			log.Printf("%+v", err)
		}
		return exitError
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `image-sweep - parameter sweeps of image perturbers over detection datasets

Usage: image-sweep <command> [options]

Commands:
  run <dataset_dir> <output_dir> <config_file>
                 Perturb every image for every parameter combination and write
                 one dataset per combination under output_dir
  labels <config_file>
                 Print the output directory label of every combination
  default-config [path]
                 Write the default sensor sweep config (stdout when no path)
  serve          Serve the HTTP API
  mcp            Serve MCP tools over stdin/stdout
  migrate up|down|version
                 Manage the run history database schema
  version        Print version information
  help           Print this help message

Run options:
  --label-file <path>   COCO annotation file (default: <dataset_dir>/annotations.json if present)
  --metadata <path>     JSON file with per-image metadata (array, or one object for all images)
  --workers <n>         Steps computed concurrently (default: $IMAGE_SWEEP_WORKERS or 1)
  --db <path>           Record the run in this sqlite database
  --metrics <names>     Score every perturbed image against its source (psnr,std_ratio)
  -v                    Print progress messages

Environment variables:
  IMAGE_SWEEP_ADDR=:8080         Listen address for serve
  IMAGE_SWEEP_DB=path            Run history database for serve, mcp and migrate
  IMAGE_SWEEP_WORKERS=n          Steps computed concurrently by serve and mcp
  IMAGE_SWEEP_LOG_LEVEL=debug    Enable debug logging

Exit status is 0 on success, 1 when the sweep fails and 2 on usage errors.
`)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments and returns the positional arguments.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, errors.Wrap(errUsage, err.Error())
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func settings() (config.Settings, error) {
	s, err := config.FromEnv()
	if err != nil {
		return s, errors.Wrap(errUsage, err.Error())
	}
	return s, nil
}

func parseMetrics(list string) ([]perturb.Metric, error) {
	if list == "" {
		return nil, nil
	}
	ms, err := perturbers.Metrics(strings.Split(list, ",")...)
	if err != nil {
		return nil, errors.Wrap(errUsage, err.Error())
	}
	return ms, nil
}

func openStore(path string) (*runstore.Store, error) {
	if path == "" {
		return nil, nil
	}
	return runstore.Open(path)
}

func cmdRun(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("run", stderr)
	labelFile := fs.String("label-file", "", "COCO annotation file")
	metadataFile := fs.String("metadata", "", "JSON file with per-image metadata")
	workers := fs.Int("workers", 1, "steps computed concurrently")
	dbPath := fs.String("db", "", "record the run in this sqlite database")
	metricNames := fs.String("metrics", "", "comma separated metrics scoring perturbed images against their source")
	verbose := fs.Bool("v", false, "print progress messages")
	if v := os.Getenv(config.EnvWorkers); v != "" {
		if err := fs.Set("workers", v); err != nil {
			return errors.Wrapf(errUsage, "%s: %v", config.EnvWorkers, err)
		}
	}

	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 3 {
		return errors.Wrapf(errUsage, "run needs <dataset_dir> <output_dir> <config_file>, got %d arguments", len(pos))
	}
	if *workers < 1 {
		return errors.Wrapf(errUsage, "--workers must be at least 1, got %d", *workers)
	}
	if *verbose {
		monitoring.SetDebug(true)
	}
	metrics, err := parseMetrics(*metricNames)
	if err != nil {
		return err
	}

	req := pipeline.Request{
		Name:       filepath.Base(pos[0]),
		DatasetDir: pos[0],
		OutputDir:  pos[1],
		ConfigFile: pos[2],
		LabelFile:  *labelFile,
	}
	if fi, err := os.Stat(req.DatasetDir); err != nil || !fi.IsDir() {
		return errors.Wrapf(errUsage, "dataset directory %s does not exist", req.DatasetDir)
	}
	if req.LabelFile == "" {
		candidate := filepath.Join(req.DatasetDir, coco.LabelFileName)
		if _, err := os.Stat(candidate); err == nil {
			req.LabelFile = candidate
		}
	}
	if *metadataFile != "" {
		v, err := readMetadata(*metadataFile)
		if err != nil {
			return err
		}
		req.ImageMetadata = v
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	runner := &pipeline.Runner{Store: store, Workers: *workers, Metrics: metrics}
	res, err := runner.Run(ctx, req)
	if err != nil {
		return err
	}
	for _, out := range res.Datasets {
		fmt.Fprintln(stdout, out.RootDir)
	}
	return nil
}

func readMetadata(path string) (metadata.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return metadata.Null(), errors.Wrapf(err, "reading metadata file %s", path)
	}
	var v metadata.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return metadata.Null(), errors.Wrapf(err, "parsing metadata file %s", path)
	}
	return v, nil
}

func cmdLabels(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("labels", stderr)
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.Wrap(errUsage, "labels needs <config_file>")
	}
	labels, err := pipeline.Labels(pos[0])
	if err != nil {
		return err
	}
	for _, l := range labels {
		fmt.Fprintln(stdout, l)
	}
	return nil
}

func cmdDefaultConfig(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("default-config", stderr)
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	switch len(pos) {
	case 0:
		data, err := config.Encode(config.Default(), "stdout.json")
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return errors.WithStack(err)
	case 1:
		if err := config.WriteDefault(pos[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", pos[0])
		return nil
	default:
		return errors.Wrap(errUsage, "default-config takes at most one path")
	}
}

func cmdServe(ctx context.Context, args []string, stderr io.Writer) error {
	s, err := settings()
	if err != nil {
		return err
	}
	fs := newFlagSet("serve", stderr)
	addr := fs.String("addr", s.Addr, "listen address")
	dbPath := fs.String("db", s.DBPath, "run history database")
	workers := fs.Int("workers", s.Workers, "steps computed concurrently per request")
	metricNames := fs.String("metrics", "", "comma separated metrics scoring perturbed images against their source")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}
	metrics, err := parseMetrics(*metricNames)
	if err != nil {
		return err
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	runner := &pipeline.Runner{Store: store, Workers: *workers, Metrics: metrics}
	monitoring.Debugf("image-sweep %s (built %s, commit %s)", Version, BuildTime, GitCommit)
	return server.New(runner).ListenAndServe(ctx, *addr)
}

func cmdMCP(args []string, stderr io.Writer) error {
	s, err := settings()
	if err != nil {
		return err
	}
	fs := newFlagSet("mcp", stderr)
	dbPath := fs.String("db", s.DBPath, "run history database")
	workers := fs.Int("workers", s.Workers, "steps computed concurrently per request")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	monitoring.Debugf("image-sweep MCP server %s (built %s, commit %s)", Version, BuildTime, GitCommit)
	return server.New(&pipeline.Runner{Store: store, Workers: *workers}).Run()
}

func cmdMigrate(args []string, stdout, stderr io.Writer) error {
	s, err := settings()
	if err != nil {
		return err
	}
	fs := newFlagSet("migrate", stderr)
	dbPath := fs.String("db", s.DBPath, "run history database")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.Wrap(errUsage, "migrate needs one of up, down, version")
	}
	if *dbPath == "" {
		return errors.Wrapf(errUsage, "migrate needs --db or %s", config.EnvDB)
	}

	store, err := runstore.OpenNoMigrate(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch pos[0] {
	case "up":
		if err := store.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := store.MigrateDown(); err != nil {
			return err
		}
	case "version":
	default:
		return errors.Wrapf(errUsage, "unknown migrate action %q", pos[0])
	}

	version, dirty, err := store.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
