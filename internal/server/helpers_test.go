package server

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/image-sweep/internal/coco"
)

const resizeConfig = `{
  "PerturberFactory": {
    "type": "grid",
    "grid": {
      "perturber": "resize",
      "theta_keys": ["w", "h"],
      "thetas": [[4, 16], [12]]
    }
  }
}`

const sensorConfig = `{
  "PerturberFactory": {
    "type": "grid",
    "grid": {
      "perturber": "sensor",
      "theta_keys": ["f"],
      "thetas": [[0.015]]
    }
  }
}`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// createTestImageFile writes a width x height PNG filled with c.
func createTestImageFile(t *testing.T, path string, width, height int, c color.Color) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
}

// testDataset creates n images with one annotation each and returns a
// request sweeping them with cfg.
func testDataset(t *testing.T, n int, cfg string) map[string]interface{} {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	f := coco.File{Categories: []coco.Category{{ID: 1, Name: "car"}}}
	for k := 0; k < n; k++ {
		name := fmt.Sprintf("%03d.png", k)
		createTestImageFile(t, filepath.Join(dir, name), 8, 6, color.RGBA{uint8(20 * k), 100, 50, 255})
		id := int64(k + 1)
		f.Images = append(f.Images, coco.Image{ID: id, FileName: name, Width: 8, Height: 6})
		f.Annotations = append(f.Annotations, coco.Annotation{ID: id, ImageID: id, CategoryID: 1, BBox: [4]float64{1, 1, 4, 2}})
	}
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}

	return map[string]interface{}{
		"id":          "0",
		"name":        "Example",
		"dataset_dir": root,
		"label_file":  writeFile(t, filepath.Join(root, "annotations.json"), string(data)),
		"output_dir":  filepath.Join(t.TempDir(), "out"),
		"config_file": writeFile(t, filepath.Join(root, "config.json"), cfg),
	}
}
