package perturb

import (
	"context"
	"fmt"
	"sync"

	"github.com/ironsheep/image-sweep/internal/dataset"
	"github.com/ironsheep/image-sweep/internal/detection"
	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/ironsheep/image-sweep/internal/monitoring"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Factory yields the perturbers of a sweep in a fixed order.
type Factory interface {
	// ThetaKeys names the swept parameters in label order.
	ThetaKeys() []string
	// Len returns the number of combinations.
	Len() int
	// At builds a fresh perturber for combination i.
	At(i int) (Perturber, Combination, error)
}

// Step is one completed sweep step.
type Step struct {
	Index       int
	Label       string
	Combination Combination
	Dataset     *dataset.Memory
}

// StepError attributes a failure to the sweep step that caused it.
type StepError struct {
	Index int
	Label string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("sweep step %d (%s): %v", e.Index, e.Label, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ErrDuplicateLabel reports two sweep steps that would share a label and so
// an output location.
var ErrDuplicateLabel = errors.New("duplicate sweep label")

// Engine runs a perturber factory over a dataset.
type Engine struct {
	ds      dataset.Dataset
	factory Factory
	keys    []string
	metrics []Metric

	loadOnce sync.Once
	loadErr  error
	images   []*imaging.Array
	targets  []detection.Target
	mds      []metadata.Map
}

// Option configures an Engine.
type Option func(*Engine)

// WithKeyOrder overrides the factory's theta keys as the label key order.
func WithKeyOrder(keys []string) Option {
	return func(e *Engine) { e.keys = append([]string(nil), keys...) }
}

// WithMetrics scores every perturbed image against its source.
func WithMetrics(metrics ...Metric) Option {
	return func(e *Engine) { e.metrics = append(e.metrics, metrics...) }
}

// NewEngine prepares a sweep. Nothing is read until the first step runs.
func NewEngine(ds dataset.Dataset, f Factory, opts ...Option) *Engine {
	e := &Engine{ds: ds, factory: f, keys: f.ThetaKeys()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Len returns the number of steps.
func (e *Engine) Len() int { return e.factory.Len() }

// Labels returns the label of every step without perturbing anything. Two
// steps with the same label yield ErrDuplicateLabel.
func (e *Engine) Labels() ([]string, error) {
	labels := make([]string, e.factory.Len())
	for i := range labels {
		_, combo, err := e.factory.At(i)
		if err != nil {
			return nil, &StepError{Index: i, Err: err}
		}
		labels[i] = combo.Label(e.keys)
	}
	return labels, distinct(labels)
}

// checkLabels is Labels for combinations that build; the others fail in
// their own step.
func (e *Engine) checkLabels() error {
	var labels []string
	for i := 0; i < e.factory.Len(); i++ {
		if _, combo, err := e.factory.At(i); err == nil {
			labels = append(labels, combo.Label(e.keys))
		}
	}
	return distinct(labels)
}

func distinct(labels []string) error {
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			return errors.Wrapf(ErrDuplicateLabel, "%q", l)
		}
		seen[l] = struct{}{}
	}
	return nil
}

// load checks the labels and reads the dataset into memory, once.
func (e *Engine) load() error {
	e.loadOnce.Do(func() {
		if e.loadErr = e.checkLabels(); e.loadErr != nil {
			return
		}
		e.images, e.targets, e.mds, e.loadErr = dataset.ReadAll(e.ds)
		if e.loadErr == nil {
			monitoring.Debugf("sweep: loaded %d images", len(e.images))
		}
	})
	return e.loadErr
}

// SourceMetadata returns a copy of the input dataset's metadata, loading the
// dataset if no step has run yet.
func (e *Engine) SourceMetadata() ([]metadata.Map, error) {
	if err := e.load(); err != nil {
		return nil, err
	}
	out := make([]metadata.Map, len(e.mds))
	for i, md := range e.mds {
		out[i] = md.Clone()
	}
	return out, nil
}

// step computes step i. It only reads the loaded dataset, so distinct steps
// may run concurrently.
func (e *Engine) step(i int) (Step, error) {
	p, combo, err := e.factory.At(i)
	if err != nil {
		return Step{}, &StepError{Index: i, Err: err}
	}
	label := combo.Label(e.keys)

	aug, err := NewAugmentation(p)
	if err != nil {
		return Step{}, &StepError{Index: i, Label: label, Err: err}
	}
	if len(e.metrics) > 0 {
		aug = aug.WithMetrics(e.metrics...)
	}

	images, targets, mds, err := aug.ApplyBatch(e.images, e.targets, e.mds)
	if err != nil {
		return Step{}, &StepError{Index: i, Label: label, Err: err}
	}
	ds, err := dataset.NewMemory(images, targets, mds)
	if err != nil {
		return Step{}, &StepError{Index: i, Label: label, Err: err}
	}
	monitoring.Debugf("sweep: step %d %s done", i, label)
	return Step{Index: i, Label: label, Combination: combo, Dataset: ds}, nil
}

// Steps returns a fresh iterator positioned before the first step.
func (e *Engine) Steps() *Steps {
	return &Steps{e: e}
}

// Steps iterates a sweep lazily, one step per Next call.
type Steps struct {
	e    *Engine
	next int
	cur  Step
	err  error
}

// Next computes the following step. It returns false at the end of the sweep
// or after the first error, which Err then reports.
func (s *Steps) Next() bool {
	if s.err != nil || s.next >= s.e.factory.Len() {
		return false
	}
	if err := s.e.load(); err != nil {
		s.err = err
		return false
	}
	st, err := s.e.step(s.next)
	if err != nil {
		s.err = err
		s.cur = Step{}
		return false
	}
	s.cur = st
	s.next++
	return true
}

// Step returns the step computed by the last successful Next.
func (s *Steps) Step() Step { return s.cur }

// Label returns the current step's label.
func (s *Steps) Label() string { return s.cur.Label }

// Combination returns the current step's parameters.
func (s *Steps) Combination() Combination { return s.cur.Combination }

// Dataset returns the current step's augmented dataset.
func (s *Steps) Dataset() *dataset.Memory { return s.cur.Dataset }

// Err returns the error that ended iteration, if any.
func (s *Steps) Err() error { return s.err }

// Run walks the sweep in order and hands every step to fn. It stops at the
// first error from a step, from fn, or from ctx.
func (e *Engine) Run(ctx context.Context, fn func(Step) error) error {
	it := e.Steps()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !it.Next() {
			return it.Err()
		}
		st := it.Step()
		if err := fn(st); err != nil {
			return &StepError{Index: st.Index, Label: st.Label, Err: err}
		}
	}
}

// Collect computes every step, up to workers at a time, and returns them in
// factory order. The first failure cancels the remaining work.
func (e *Engine) Collect(ctx context.Context, workers int) ([]Step, error) {
	if err := e.load(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	steps := make([]Step, e.factory.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range steps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			st, err := e.step(i)
			if err != nil {
				return err
			}
			steps[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return steps, nil
}
