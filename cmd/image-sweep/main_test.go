package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/image-sweep/internal/coco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func invoke(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeDataset creates a COCO dataset of n 8x6 images under root.
func writeDataset(t *testing.T, root string, n int) {
	t.Helper()
	dir := filepath.Join(root, "images")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	f := coco.File{Categories: []coco.Category{{ID: 1, Name: "car"}}}
	for k := 0; k < n; k++ {
		name := fmt.Sprintf("img_%02d.png", k)
		img := image.NewRGBA(image.Rect(0, 0, 8, 6))
		for y := 0; y < 6; y++ {
			for x := 0; x < 8; x++ {
				img.Set(x, y, color.RGBA{uint8(30 * x), uint8(40 * y), 60, 255})
			}
		}
		out, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, png.Encode(out, img))
		require.NoError(t, out.Close())

		id := int64(k + 1)
		f.Images = append(f.Images, coco.Image{ID: id, FileName: name, Width: 8, Height: 6})
		f.Annotations = append(f.Annotations, coco.Annotation{
			ID: id, ImageID: id, CategoryID: 1, BBox: [4]float64{2, 3, 4, 2},
		})
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	writeFile(t, filepath.Join(root, coco.LabelFileName), string(data))
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := invoke(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Usage: image-sweep")

	code, _, stderr = invoke(t, "frobnicate")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Unknown command: frobnicate")

	code, stdout, _ := invoke(t, "help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Commands:")

	code, stdout, _ = invoke(t, "--version")
	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(stdout, "image-sweep "+Version))
}

func TestRun_BadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"too few", []string{"run", "a", "b"}},
		{"unknown flag", []string{"run", "--bogus", "a", "b", "c"}},
		{"zero workers", []string{"run", "--workers", "0", t.TempDir(), "out", "cfg.json"}},
		{"unknown metric", []string{"run", "--metrics", "ssim", t.TempDir(), "out", "cfg.json"}},
		{"missing dataset", []string{"run", filepath.Join(t.TempDir(), "nope"), "out", "cfg.json"}},
		{"labels without config", []string{"labels"}},
		{"default-config two paths", []string{"default-config", "a.json", "b.json"}},
		{"migrate without db", []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("IMAGE_SWEEP_DB", "")
			code, _, stderr := invoke(t, tt.args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr, "Error:")
		})
	}
}

func TestRun_DefaultConfig(t *testing.T) {
	code, stdout, _ := invoke(t, "default-config")
	require.Equal(t, exitOK, code)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &cfg))
	assert.Contains(t, cfg, "PerturberFactory")

	path := filepath.Join(t.TempDir(), "sweep.yaml")
	code, stdout, _ = invoke(t, "default-config", path)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "wrote "+path+"\n", stdout)

	code, stdout, _ = invoke(t, "labels", path)
	require.Equal(t, exitOK, code)
	assert.Len(t, strings.Fields(stdout), 4)

	code, _, stderr := invoke(t, "default-config", path)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "already exists")
}

func TestRun_Sweep(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, 2)
	cfg := writeFile(t, filepath.Join(t.TempDir(), "config.json"), resizeConfig)
	out := filepath.Join(t.TempDir(), "out")
	db := filepath.Join(t.TempDir(), "runs.db")

	code, stdout, stderr := invoke(t, "run", root, out, cfg, "--db", db, "--workers", "2", "--metrics", "psnr,std_ratio")
	require.Equal(t, exitOK, code, stderr)

	dirs := strings.Fields(stdout)
	require.Len(t, dirs, 2)
	for _, dir := range dirs {
		assert.FileExists(t, filepath.Join(dir, coco.LabelFileName))
		md, err := os.ReadFile(filepath.Join(dir, coco.MetadataFileName))
		require.NoError(t, err)
		assert.Contains(t, string(md), "sweep::psnr")
		assert.Contains(t, string(md), "sweep::std_ratio")
	}
	assert.DirExists(t, filepath.Join(out, "_w-4_h-12"))

	code, stdout, _ = invoke(t, "migrate", "--db", db, "version")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "schema version 1 (dirty=false)\n", stdout)
}

func TestRun_MetadataLengthMismatch(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, 2)
	cfg := writeFile(t, filepath.Join(t.TempDir(), "config.json"), resizeConfig)
	meta := writeFile(t, filepath.Join(t.TempDir(), "meta.json"), `[{"img_gsd": 0.1}]`)

	code, _, stderr := invoke(t, "run", "--metadata", meta, root, filepath.Join(t.TempDir(), "out"), cfg)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "metadata")
}

func TestRun_MissingConfig(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, 1)
	missing := filepath.Join(t.TempDir(), "missing.json")

	code, _, stderr := invoke(t, "run", root, filepath.Join(t.TempDir(), "out"), missing)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "was not found")
}

func TestMigrate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	code, stdout, _ := invoke(t, "migrate", "--db", db, "version")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "schema version 0 (dirty=false)\n", stdout)

	code, stdout, _ = invoke(t, "migrate", "--db", db, "up")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "schema version 1 (dirty=false)\n", stdout)

	code, stdout, _ = invoke(t, "migrate", "down", "--db", db)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "schema version 0 (dirty=false)\n", stdout)

	code, _, _ = invoke(t, "migrate", "--db", db, "sideways")
	assert.Equal(t, exitUsage, code)
}
