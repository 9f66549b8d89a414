package server

import (
	"net/http"

	"github.com/ironsheep/image-sweep/internal/dataset"
	"github.com/ironsheep/image-sweep/internal/factory"
	"github.com/ironsheep/image-sweep/internal/perturb"
	"github.com/ironsheep/image-sweep/internal/pipeline"
	"github.com/ironsheep/image-sweep/internal/runstore"
	"github.com/pkg/errors"
)

// errRunsDisabled is returned by the run history endpoints when no store is
// configured.
var errRunsDisabled = errors.New("run history is not enabled")

// classify maps an error to an HTTP status and the detail shown to clients.
// Configuration and integrity errors carry their own user-facing detail.
func classify(err error) (int, string) {
	var cfgErr *factory.ConfigurationError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest, cfgErr.Detail
	}
	var integrity *dataset.IntegrityError
	if errors.As(err, &integrity) {
		return http.StatusBadRequest, integrity.Detail
	}

	switch {
	case errors.Is(err, dataset.ErrDatasetIntegrity),
		errors.Is(err, perturb.ErrMissingRequiredMetadata),
		errors.Is(err, perturb.ErrDuplicateLabel),
		errors.Is(err, pipeline.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, runstore.ErrRunNotFound), errors.Is(err, errRunsDisabled):
		return http.StatusNotFound, err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}
