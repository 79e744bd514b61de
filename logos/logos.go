// Package logos renders the dashboard's logo asset set from one source
// image. The source is a square PNG with transparency; every derivative
// is an independent Lanczos resize of it, so regenerating the set is
// cheap and fully deterministic.
package logos

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	ico "github.com/biessek/golang-ico"
	"github.com/disintegration/imaging"
)

// Derivative describes one raster output of the asset set.
type Derivative struct {
	// Name is the file name inside the output directory.
	Name string
	// Size is the square pixel size.
	Size int
}

// Derivatives is the raster asset set, in write order.
var Derivatives = []Derivative{
	{Name: "logo-24.png", Size: 24}, // sidebar
	{Name: "logo-80.png", Size: 80}, // login and loading screens
	{Name: "favicon-16.png", Size: 16},
	{Name: "favicon-32.png", Size: 32},
	{Name: "apple-touch-icon.png", Size: 180},
	{Name: "apple-touch-icon-precomposed.png", Size: 180}, // legacy iOS
}

const (
	// ICOName is the icon-container output.
	ICOName = "favicon.ico"
	// icoSource is the derivative re-encoded into the ICO container.
	icoSource = "favicon-32.png"
)

// Load reads and decodes the source logo.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return img, nil
}

// ResizeSquare returns a size×size copy of img using Lanczos resampling.
// The source is not modified and the alpha channel survives.
func ResizeSquare(img image.Image, size int) *image.NRGBA {
	return imaging.Resize(img, size, size, imaging.Lanczos)
}

// Generate renders every derivative from src, keyed by file name. The
// source is cloned into a 4-channel representation first, whatever its
// original encoding. The ICO entry reuses the 32px bitmap.
func Generate(src image.Image) map[string]*image.NRGBA {
	rgba := imaging.Clone(src)

	out := make(map[string]*image.NRGBA, len(Derivatives)+1)
	for _, d := range Derivatives {
		out[d.Name] = ResizeSquare(rgba, d.Size)
	}
	out[ICOName] = out[icoSource]
	return out
}

// WriteAll creates dir if needed and writes the full asset set, PNGs
// first, then the ICO container. Existing files are overwritten. The
// first failed write aborts the run. Returns the written paths in order.
func WriteAll(dir string, src image.Image) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	set := Generate(src)

	var written []string
	for _, d := range Derivatives {
		path := filepath.Join(dir, d.Name)
		if err := imaging.Save(set[d.Name], path); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}

	icoPath := filepath.Join(dir, ICOName)
	f, err := os.Create(icoPath)
	if err != nil {
		return written, fmt.Errorf("writing %s: %w", icoPath, err)
	}
	if err := ico.Encode(f, set[icoSource]); err != nil {
		f.Close()
		return written, fmt.Errorf("encoding %s: %w", icoPath, err)
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("writing %s: %w", icoPath, err)
	}
	written = append(written, icoPath)

	return written, nil
}
