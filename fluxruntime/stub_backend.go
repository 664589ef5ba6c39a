package fluxruntime

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
)

// StubBackend is a deterministic in-process backend for development and
// tests. It renders a gradient whose colors derive from the prompt and seed,
// so identical inputs produce identical pixels without a GPU.
type StubBackend struct {
	// LoadErr, when set, makes Load fail. Used to exercise the Failed
	// runtime state in tests and to simulate missing model weights.
	LoadErr error

	loaded bool
}

// NewStubBackend returns a stub backend that loads successfully.
func NewStubBackend() *StubBackend {
	return &StubBackend{}
}

// Name implements Backend.
func (b *StubBackend) Name() string {
	return "stub"
}

// Load implements Backend.
func (b *StubBackend) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.LoadErr != nil {
		return b.LoadErr
	}
	b.loaded = true
	return nil
}

// Infer implements Backend. Output dimensions follow the input image when
// one is provided, otherwise the requested width and height.
func (b *StubBackend) Infer(ctx context.Context, p Params) (image.Image, error) {
	if !b.loaded {
		return nil, ErrModelNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := p.Width, p.Height
	if p.Input != nil {
		bounds := p.Input.Bounds()
		w, h = bounds.Dx(), bounds.Dy()
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidParams, w, h)
	}

	base := stubColor(p.Prompt, p.Seed)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: base.R + uint8(x%64),
				G: base.G + uint8(y%64),
				B: base.B,
				A: 255,
			})
		}
	}
	return img, nil
}

// Close implements Backend.
func (b *StubBackend) Close() error {
	b.loaded = false
	return nil
}

// stubColor derives a base color from the prompt and seed so distinct
// invocations are visually distinguishable.
func stubColor(prompt string, seed *int64) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	if seed != nil {
		fmt.Fprintf(h, "%d", *seed)
	}
	sum := h.Sum32()
	return color.RGBA{
		R: uint8(sum),
		G: uint8(sum >> 8),
		B: uint8(sum >> 16),
		A: 255,
	}
}
