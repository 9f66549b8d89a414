// Package perturb applies image perturbers to detection data and drives
// parameter sweeps over perturber factories.
//
// # Augmentation
//
// An Augmentation runs one perturber, or an ordered chain, over a single
// (image, target, metadata) triple or over aligned batches of them. Boxes
// are rescaled by the change in image size: x-coordinates by new/old width,
// y-coordinates by new/old height. Labels and scores are carried through in
// order. Inputs are never modified.
//
// Each applied perturber records its configuration in the output metadata
// under "sweep::perturber" (single perturber) or "sweep::perturber_<i>"
// (position i in a chain).
//
// # Sweeps
//
// An Engine reads a dataset into memory once and, for every combination a
// Factory yields, produces a labelled in-memory dataset. Steps are lazy and
// forward-only; calling Steps again restarts from the first combination. The
// first failure stops the sweep.
//
//	eng := perturb.NewEngine(ds, f)
//	it := eng.Steps()
//	for it.Next() {
//	    step := it.Step()
//	    // write step.Dataset under step.Label
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
package perturb
