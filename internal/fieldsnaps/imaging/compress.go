// Package imaging shrinks job-site photos to a byte budget and renders
// thumbnails.
//
// Compress runs a bounded greedy search: JPEG quality is lowered first, then
// the long edge is reduced, until the encoding fits the target. The smallest
// encoding seen is kept as the fallback when both floors are reached.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG for Decode

	"golang.org/x/image/draw"
)

const (
	DefaultMaxDimension   = 2048
	DefaultMinDimension   = 640
	DefaultInitialQuality = 0.85
	DefaultMinQuality     = 0.3
	DefaultQualityStep    = 0.1
	DefaultScaleStep      = 0.8

	ThumbnailLongEdge = 320
	ThumbnailQuality  = 0.7

	// maxPixels rejects decompression bombs before decoding.
	maxPixels = 60_000_000
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrImageTooLarge     = errors.New("image dimensions too large")
)

// Options bound the search. Zero fields take the defaults above.
type Options struct {
	TargetBytes    int
	MaxDimension   int
	MinDimension   int
	InitialQuality float64
	MinQuality     float64
	QualityStep    float64
	ScaleStep      float64
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.MinDimension <= 0 {
		o.MinDimension = DefaultMinDimension
	}
	if o.InitialQuality <= 0 || o.InitialQuality > 1 {
		o.InitialQuality = DefaultInitialQuality
	}
	if o.MinQuality <= 0 || o.MinQuality > o.InitialQuality {
		o.MinQuality = DefaultMinQuality
	}
	if o.QualityStep <= 0 {
		o.QualityStep = DefaultQualityStep
	}
	if o.ScaleStep <= 0 || o.ScaleStep >= 1 {
		o.ScaleStep = DefaultScaleStep
	}
	return o
}

// Result is one JPEG encoding.
type Result struct {
	Data    []byte
	Width   int
	Height  int
	Quality float64
	// FloorHit is set when neither knob could go lower and the smallest
	// encoding still exceeds the target.
	FloorHit bool
	Attempts int
}

// Size is the encoded length in bytes.
func (r *Result) Size() int {
	return len(r.Data)
}

// Compress encodes img as JPEG no larger than opts.TargetBytes, unless the
// quality and dimension floors are both reached first.
func Compress(img image.Image, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if opts.TargetBytes <= 0 {
		return nil, fmt.Errorf("target size must be positive")
	}

	// Quality is stepped in whole percent to avoid float drift.
	quality := percent(opts.InitialQuality)
	minQuality := percent(opts.MinQuality)
	step := max(percent(opts.QualityStep), 1)

	longEdge := min(longSide(img.Bounds()), opts.MaxDimension)
	minEdge := min(opts.MinDimension, longSide(img.Bounds()))

	var best *Result
	for attempts := 1; ; attempts++ {
		scaled := resize(img, longEdge)
		data, err := encode(scaled, quality)
		if err != nil {
			return nil, err
		}
		b := scaled.Bounds()
		current := &Result{
			Data:     data,
			Width:    b.Dx(),
			Height:   b.Dy(),
			Quality:  float64(quality) / 100,
			Attempts: attempts,
		}
		if best == nil || current.Size() < best.Size() {
			best = current
		}
		best.Attempts = attempts

		if current.Size() <= opts.TargetBytes {
			return current, nil
		}

		switch {
		case quality > minQuality:
			quality = max(quality-step, minQuality)
		case longEdge > minEdge:
			longEdge = max(int(float64(longEdge)*opts.ScaleStep), minEdge)
		default:
			best.FloorHit = true
			return best, nil
		}
	}
}

// Thumbnail renders a small preview with the long edge at most longEdge.
func Thumbnail(img image.Image, longEdge int, quality float64) (*Result, error) {
	scaled := resize(img, longEdge)
	data, err := encode(scaled, percent(quality))
	if err != nil {
		return nil, err
	}
	b := scaled.Bounds()
	return &Result{Data: data, Width: b.Dx(), Height: b.Dy(), Quality: quality, Attempts: 1}, nil
}

// Decode reads a JPEG or PNG, refusing images with too many pixels.
func Decode(data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		return nil, "", fmt.Errorf("read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, "", ErrImageTooLarge
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("decode %s: %w", format, err)
	}
	return img, format, nil
}

// resize scales img so its long edge is at most longEdge. Images are never
// upscaled.
func resize(img image.Image, longEdge int) image.Image {
	b := img.Bounds()
	if longSide(b) <= longEdge {
		return img
	}

	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(h*longEdge/w, 1)
		w = longEdge
	} else {
		w = max(w*longEdge/h, 1)
		h = longEdge
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func percent(q float64) int {
	return int(q*100 + 0.5)
}

func longSide(b image.Rectangle) int {
	return max(b.Dx(), b.Dy())
}
