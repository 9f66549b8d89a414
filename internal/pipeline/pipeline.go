// Package pipeline connects the pieces of a sweep run: it opens the source
// dataset, builds the perturber factory from a config file, runs the sweep
// engine, writes every step to disk and records the run in the ledger.
//
// The HTTP server, the MCP tool server and the CLI all go through Runner.Run
// so that a request behaves the same way whichever door it came through.
package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ironsheep/image-sweep/internal/coco"
	"github.com/ironsheep/image-sweep/internal/config"
	"github.com/ironsheep/image-sweep/internal/factory"
	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/ironsheep/image-sweep/internal/monitoring"
	"github.com/ironsheep/image-sweep/internal/perturb"
	"github.com/ironsheep/image-sweep/internal/runstore"
	"github.com/pkg/errors"
)

// ErrInvalidRequest marks a request that is malformed before any work starts.
var ErrInvalidRequest = errors.New("invalid request")

// Request describes one sweep run.
type Request struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// DatasetDir holds the source images, directly or in an images/
	// subdirectory.
	DatasetDir string `json:"dataset_dir"`
	// LabelFile is a COCO annotation file. When empty the images are swept
	// without detections.
	LabelFile string `json:"label_file"`
	OutputDir string `json:"output_dir"`
	// ImageMetadata is null, an array with one object per image, or a single
	// object applied to every image.
	ImageMetadata metadata.Value `json:"image_metadata"`
	ConfigFile    string         `json:"config_file"`
}

// Validate checks that the request names every path it needs.
func (r Request) Validate() error {
	switch {
	case r.DatasetDir == "":
		return errors.Wrap(ErrInvalidRequest, "dataset_dir is required")
	case r.OutputDir == "":
		return errors.Wrap(ErrInvalidRequest, "output_dir is required")
	case r.ConfigFile == "":
		return errors.Wrap(ErrInvalidRequest, "config_file is required")
	}
	switch r.ImageMetadata.Kind() {
	case metadata.KindNull, metadata.KindObject, metadata.KindArray:
		return nil
	default:
		return errors.Wrapf(ErrInvalidRequest, "image_metadata must be an object or an array of objects, got %s",
			r.ImageMetadata.Kind())
	}
}

// Result is what a completed run produced.
type Result struct {
	RunID    string        `json:"run_id"`
	Labels   []string      `json:"labels"`
	Datasets []coco.Output `json:"datasets"`
}

// Runner executes requests. The zero value works: it runs steps one at a
// time and records nothing.
type Runner struct {
	// Store records runs when non-nil.
	Store *runstore.Store
	// Workers computes up to this many steps concurrently. Values below 2
	// stream steps one at a time, holding a single augmented dataset in
	// memory.
	Workers int
	// Metrics score every perturbed image against its source.
	Metrics []perturb.Metric
}

// Run executes req. Steps written before a failure stay on disk; the error
// names the step that failed.
func (r *Runner) Run(ctx context.Context, req Request) (res *Result, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	f, err := config.LoadFactory(req.ConfigFile)
	if err != nil {
		return nil, err
	}
	// Decoded images live for this run only, so a rewritten dataset is
	// read afresh by the next one.
	cache := imaging.NewImageCache()
	defer cache.Clear()
	src, err := openSource(req, cache)
	if err != nil {
		return nil, err
	}

	runID, err := r.startRun(ctx, req, f)
	if err != nil {
		return nil, err
	}
	defer func() {
		r.finishRun(runID, err)
	}()

	monitoring.Debugf("run %s: sweeping %d images through %d combinations (%s)",
		runID, src.ds.Len(), f.Len(), factory.Describe(f))

	var opts []perturb.Option
	if len(r.Metrics) > 0 {
		opts = append(opts, perturb.WithMetrics(r.Metrics...))
	}
	eng := perturb.NewEngine(src.ds, f, opts...)

	res = &Result{RunID: runID, Labels: []string{}, Datasets: []coco.Output{}}
	write := func(st perturb.Step) error {
		out, err := coco.Write(st.Dataset, filepath.Join(req.OutputDir, st.Label), src.filenames, src.categories)
		if err != nil {
			return err
		}
		monitoring.Debugf("run %s: wrote %s", runID, out.RootDir)
		res.Labels = append(res.Labels, st.Label)
		res.Datasets = append(res.Datasets, *out)
		return r.recordStep(ctx, runID, st, out)
	}

	if r.Workers > 1 {
		steps, err := eng.Collect(ctx, r.Workers)
		if err != nil {
			return nil, err
		}
		for _, st := range steps {
			if err := write(st); err != nil {
				return nil, &perturb.StepError{Index: st.Index, Label: st.Label, Err: err}
			}
		}
	} else if err := eng.Run(ctx, write); err != nil {
		return nil, err
	}

	if err := writeSourceMetadata(eng, req.OutputDir); err != nil {
		return nil, err
	}
	return res, nil
}

// Labels returns the step labels the config file at path would produce.
func Labels(path string) ([]string, error) {
	f, err := config.LoadFactory(path)
	if err != nil {
		return nil, err
	}
	return perturb.NewEngine(nil, f).Labels()
}

func (r *Runner) startRun(ctx context.Context, req Request, f factory.Factory) (string, error) {
	if r.Store == nil {
		return req.ID, nil
	}
	cfg, err := json.Marshal(f.Config())
	if err != nil {
		return "", errors.Wrap(err, "encoding factory config")
	}
	run, err := r.Store.CreateRun(ctx, runstore.Run{
		ID:         req.ID,
		Name:       req.Name,
		DatasetDir: req.DatasetDir,
		OutputDir:  req.OutputDir,
		Config:     string(cfg),
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (r *Runner) recordStep(ctx context.Context, runID string, st perturb.Step, out *coco.Output) error {
	if r.Store == nil {
		return nil
	}
	return r.Store.AddStep(ctx, runID, runstore.StepRecord{
		Index:        st.Index,
		Label:        st.Label,
		RootDir:      out.RootDir,
		LabelFile:    out.LabelFile,
		MetadataFile: out.MetadataFile,
		NumImages:    st.Dataset.Len(),
	})
}

func (r *Runner) finishRun(runID string, runErr error) {
	if r.Store == nil {
		return
	}
	// The request context may already be cancelled; the outcome is recorded
	// regardless.
	if err := r.Store.FinishRun(context.Background(), runID, runErr); err != nil {
		monitoring.Logf("run %s: failed to record outcome: %v", runID, err)
	}
}

// writeSourceMetadata writes the unperturbed metadata next to the step
// directories.
func writeSourceMetadata(eng *perturb.Engine, outDir string) error {
	mds, err := eng.SourceMetadata()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return &coco.FileWriteError{Path: outDir, Err: err}
	}
	path := filepath.Join(outDir, coco.MetadataFileName)
	data, err := json.MarshalIndent(mds, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &coco.FileWriteError{Path: path, Err: err}
	}
	return nil
}
