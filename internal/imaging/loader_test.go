package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writeTestPNG writes a solid-color PNG under dir and returns its path.
func writeTestPNG(t *testing.T, dir, name string, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache()
	if cache == nil {
		t.Fatal("NewImageCache returned nil")
	}
	if cache.Len() != 0 {
		t.Errorf("new cache has %d entries", cache.Len())
	}
}

func TestImageCache_Load(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "red.png", 20, 10, color.RGBA{255, 0, 0, 255})
	cache := NewImageCache()

	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := img.Bounds(); got.Dx() != 20 || got.Dy() != 10 {
		t.Errorf("bounds: got %v", got)
	}

	again, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if again != img {
		t.Error("second Load did not return the cached image")
	}
}

func TestImageCache_LoadArray(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "blue.png", 4, 3, color.RGBA{0, 0, 255, 255})
	cache := NewImageCache()

	a, err := cache.LoadArray(path)
	if err != nil {
		t.Fatalf("LoadArray failed: %v", err)
	}
	if a.Height != 3 || a.Width != 4 || a.Channels != 3 {
		t.Fatalf("shape: got %dx%dx%d", a.Height, a.Width, a.Channels)
	}
	if a.At(2, 3, 2) != 255 || a.At(2, 3, 0) != 0 {
		t.Errorf("pixel: got %v", a.Pix[len(a.Pix)-3:])
	}

	// Arrays handed out are independent of each other.
	a.Set(0, 0, 0, 7)
	b, _ := cache.LoadArray(path)
	if b.At(0, 0, 0) != 0 {
		t.Error("LoadArray shares pixel storage between calls")
	}
}

func TestImageCache_Load_Errors(t *testing.T) {
	dir := t.TempDir()
	cache := NewImageCache()

	if _, err := cache.Load(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(bad); err == nil {
		t.Error("expected error for invalid image")
	}
	if cache.Len() != 0 {
		t.Error("failed loads should not be cached")
	}
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTestPNG(t, dir, "a.png", 2, 2, color.White)
	p2 := writeTestPNG(t, dir, "b.png", 2, 2, color.Black)

	cache := NewImageCache()
	_, _ = cache.Load(p1)
	_, _ = cache.Load(p2)

	cache.Evict(p1)
	if cache.Len() != 1 {
		t.Errorf("after Evict: got %d entries", cache.Len())
	}
	cache.Evict("not-cached")

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("after Clear: got %d entries", cache.Len())
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "c.png", 8, 8, color.Gray{128})
	cache := NewImageCache()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.LoadArray(path); err != nil {
				t.Errorf("concurrent LoadArray failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.png", true},
		{"a.PNG", true},
		{"dir/b.jpeg", true},
		{"c.JPG", true},
		{"d.tiff", true},
		{"e.webp", true},
		{"annotations.json", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsImageFile(tt.path); got != tt.want {
			t.Errorf("IsImageFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
