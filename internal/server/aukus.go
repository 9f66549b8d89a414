package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/ironsheep/image-sweep/internal/pipeline"
)

// AukusFormatCOCO is the only dataFormat the AUKUS endpoint accepts.
const AukusFormatCOCO = "COCO"

// User-facing details of rejected AUKUS records.
const (
	aukusBadFormatDetail = "Labels provided in incorrect format."
	aukusBadConfigDetail = "Provided sweep config is not a valid file."
	aukusNoLabelsDetail  = "At least one label entry is required."
)

// AukusLabel points at one label file of an AUKUS dataset record. IRI is
// relative to the record's URI.
type AukusLabel struct {
	Name        string `json:"name"`
	IRI         string `json:"iri"`
	ObjectCount int    `json:"objectCount"`
}

// AukusDataset is an AUKUS dataset metadata record. Descriptive fields are
// passed through to every returned record untouched.
type AukusDataset struct {
	DocType         string          `json:"docType,omitempty"`
	DocVersion      string          `json:"docVersion,omitempty"`
	ISM             json.RawMessage `json:"ism,omitempty"`
	LastUpdateTime  string          `json:"lastUpdateTime,omitempty"`
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	URI             string          `json:"uri"`
	Size            string          `json:"size,omitempty"`
	Description     string          `json:"description,omitempty"`
	DataCollections json.RawMessage `json:"dataCollections,omitempty"`
	DataFormat      string          `json:"dataFormat"`
	SweepConfig     string          `json:"nrtkConfig"`
	ImageMetadata   metadata.Value  `json:"image_metadata"`
	OutputDir       string          `json:"outputDir"`
	Labels          []AukusLabel    `json:"labels"`
	Tags            []string        `json:"tags,omitempty"`
}

// toRequest validates rec and converts it to a sweep request. The returned
// string is the client-facing detail of a rejected record.
func (rec *AukusDataset) toRequest() (pipeline.Request, string) {
	if rec.DataFormat != AukusFormatCOCO {
		return pipeline.Request{}, aukusBadFormatDetail
	}
	if fi, err := os.Stat(rec.SweepConfig); rec.SweepConfig == "" || err != nil || fi.IsDir() {
		return pipeline.Request{}, aukusBadConfigDetail
	}
	if len(rec.Labels) == 0 {
		return pipeline.Request{}, aukusNoLabelsDetail
	}
	return pipeline.Request{
		ID:            rec.ID,
		Name:          rec.Name,
		DatasetDir:    rec.URI,
		LabelFile:     filepath.Join(rec.URI, rec.Labels[0].IRI),
		OutputDir:     rec.OutputDir,
		ImageMetadata: rec.ImageMetadata,
		ConfigFile:    rec.SweepConfig,
	}, ""
}

// aukus runs the sweep described by rec and returns one record per produced
// dataset, pointing at its root directory and annotation file.
func (s *Server) aukus(ctx context.Context, rec AukusDataset) ([]AukusDataset, string, error) {
	req, detail := rec.toRequest()
	if detail != "" {
		return nil, detail, nil
	}
	resp, err := s.perturb(ctx, req)
	if err != nil {
		return nil, "", err
	}

	out := make([]AukusDataset, len(resp.Datasets))
	for i, ds := range resp.Datasets {
		r := rec
		r.URI = ds.RootDir
		first := rec.Labels[0]
		r.Labels = []AukusLabel{{
			Name:        first.Name + resp.Labels[i],
			IRI:         ds.LabelFile,
			ObjectCount: first.ObjectCount,
		}}
		out[i] = r
	}
	return out, "", nil
}

func (s *Server) handleAukus(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "No data provided")
		return
	}

	var rec AukusDataset
	if err := json.Unmarshal(body, &rec); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	out, detail, err := s.aukus(r.Context(), rec)
	switch {
	case detail != "":
		s.writeJSONError(w, http.StatusBadRequest, detail)
	case err != nil:
		s.writeError(w, err)
	default:
		s.writeJSON(w, http.StatusOK, out)
	}
}
