package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flux_backend/core"
	"flux_backend/dispatch"
	"flux_backend/fluxruntime"
	"flux_backend/imaging"
)

// captureBackend records every inference call and tracks peak concurrency.
type captureBackend struct {
	loadErr  error
	inferErr error
	delay    time.Duration

	mu       sync.Mutex
	params   []fluxruntime.Params
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (b *captureBackend) Name() string { return "capture" }

func (b *captureBackend) Load(ctx context.Context) error { return b.loadErr }

func (b *captureBackend) Infer(ctx context.Context, p fluxruntime.Params) (image.Image, error) {
	n := b.inFlight.Add(1)
	for {
		prev := b.peak.Load()
		if n <= prev || b.peak.CompareAndSwap(prev, n) {
			break
		}
	}
	if b.delay > 0 {
		time.Sleep(b.delay)
	}

	b.mu.Lock()
	b.params = append(b.params, p)
	b.mu.Unlock()
	b.inFlight.Add(-1)

	if b.inferErr != nil {
		return nil, b.inferErr
	}
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	return img, nil
}

func (b *captureBackend) Close() error { return nil }

func (b *captureBackend) seeds() []*int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*int64, len(b.params))
	for i, p := range b.params {
		out[i] = p.Seed
	}
	return out
}

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	return &core.Config{
		BaseURL:               "http://localhost:8000",
		MinImageSize:          core.DefaultMinImageSize,
		MaxImageSize:          core.DefaultMaxImageSize,
		DefaultImageSize:      core.DefaultImageSizePx,
		MaxBatchSize:          core.DefaultMaxBatchSize,
		MaxInferenceSteps:     core.DefaultMaxSteps,
		DefaultGuidanceScale:  core.DefaultGuidance,
		DefaultInferenceSteps: core.DefaultSteps,
		MaxImageBytes:         core.DefaultMaxImageBytes,
		WorkerCount:           2,
		OutputDir:             t.TempDir(),
		StaticPrefix:          "static/outputs",
	}
}

func newTestService(t *testing.T, backend fluxruntime.Backend) (*ImageService, *core.Config) {
	t.Helper()
	cfg := testConfig(t)

	runtime := fluxruntime.NewRuntime(backend,
		fluxruntime.Limits{MaxSteps: cfg.MaxInferenceSteps, MaxBatch: cfg.MaxBatchSize},
		time.Minute, nil)
	dispatcher, err := dispatch.New(cfg.WorkerCount, nil)
	if err != nil {
		t.Fatalf("dispatch.New() error = %v", err)
	}
	store, err := imaging.NewStore(cfg.OutputDir)
	if err != nil {
		t.Fatalf("imaging.NewStore() error = %v", err)
	}
	assembler := NewAssembler(store, cfg.BaseURL, cfg.StaticPrefix)

	return New(cfg, runtime, dispatcher, assembler, nil, nil, nil), cfg
}

func encodePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestGenerate_BatchSeedsAndOrdering(t *testing.T) {
	backend := &captureBackend{delay: 5 * time.Millisecond}
	svc, _ := newTestService(t, backend)

	seed := int64(10)
	resp, err := svc.Generate(context.Background(), CreateRequest{
		Prompt: "x",
		N:      3,
		Seed:   &seed,
		Size:   "512x512",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(resp.Data) != 3 {
		t.Fatalf("got %d images, want 3", len(resp.Data))
	}
	for i, d := range resp.Data {
		if d.URL == "" {
			t.Errorf("image %d has no URL in url mode", i)
		}
	}

	var got []int64
	for _, s := range backend.seeds() {
		if s == nil {
			t.Fatal("sub-invocation received nil seed despite base seed 10")
		}
		got = append(got, *s)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []int64{10, 11, 12}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("derived seeds = %v, want %v", got, want)
		}
	}

	if peak := backend.peak.Load(); peak > 2 {
		t.Errorf("peak concurrent model calls = %d, want <= 2", peak)
	}
}

func TestGenerate_DefaultsApplied(t *testing.T) {
	backend := &captureBackend{}
	svc, cfg := newTestService(t, backend)

	if _, err := svc.Generate(context.Background(), CreateRequest{Prompt: "x"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	p := backend.params[0]
	if p.Steps != cfg.DefaultInferenceSteps {
		t.Errorf("steps = %d, want default %d", p.Steps, cfg.DefaultInferenceSteps)
	}
	if p.Guidance != cfg.DefaultGuidanceScale {
		t.Errorf("guidance = %v, want default %v", p.Guidance, cfg.DefaultGuidanceScale)
	}
	if p.Width != cfg.DefaultImageSize || p.Height != cfg.DefaultImageSize {
		t.Errorf("size = %dx%d, want default %d", p.Width, p.Height, cfg.DefaultImageSize)
	}
	if p.Seed != nil {
		t.Errorf("seed = %v, want nil when request omits it", *p.Seed)
	}
}

func TestGenerate_RejectsUndersizedDimensions(t *testing.T) {
	svc, _ := newTestService(t, &captureBackend{})

	_, err := svc.Generate(context.Background(), CreateRequest{Prompt: "x", Size: "100x100"})
	apiErr := core.AsAPIError(err)
	if apiErr.Type != core.TypeInvalidParameters {
		t.Errorf("error type = %q, want %q", apiErr.Type, core.TypeInvalidParameters)
	}
}

func TestGenerate_RejectsOversizedBatch(t *testing.T) {
	svc, cfg := newTestService(t, &captureBackend{})

	_, err := svc.Generate(context.Background(), CreateRequest{Prompt: "x", N: cfg.MaxBatchSize + 1})
	apiErr := core.AsAPIError(err)
	if apiErr.Type != core.TypeInvalidParameters {
		t.Errorf("error type = %q, want %q", apiErr.Type, core.TypeInvalidParameters)
	}
}

func TestGenerate_FailedModelSkipsDispatch(t *testing.T) {
	backend := &captureBackend{loadErr: errors.New("weights missing")}
	svc, _ := newTestService(t, backend)

	_, err := svc.Generate(context.Background(), CreateRequest{Prompt: "x", N: 2})
	apiErr := core.AsAPIError(err)
	if apiErr.Type != core.TypeModelUnavailable {
		t.Fatalf("error type = %q, want %q", apiErr.Type, core.TypeModelUnavailable)
	}
	if apiErr.Status != 503 {
		t.Errorf("status = %d, want 503", apiErr.Status)
	}
	if len(backend.params) != 0 {
		t.Errorf("%d model calls made despite failed load, want 0", len(backend.params))
	}
}

func TestGenerate_InferFailureMapsToGenerationError(t *testing.T) {
	backend := &captureBackend{inferErr: errors.New("cuda out of memory")}
	svc, _ := newTestService(t, backend)

	_, err := svc.Generate(context.Background(), CreateRequest{Prompt: "x", N: 2})
	apiErr := core.AsAPIError(err)
	if apiErr.Type != core.TypeGenerationError {
		t.Errorf("error type = %q, want %q", apiErr.Type, core.TypeGenerationError)
	}
	if apiErr.Status != 500 {
		t.Errorf("status = %d, want 500", apiErr.Status)
	}
}

func TestGenerate_InlineFormatRoundTrips(t *testing.T) {
	svc, _ := newTestService(t, &captureBackend{})

	resp, err := svc.Generate(context.Background(), CreateRequest{
		Prompt:         "x",
		Size:           "256x256",
		ResponseFormat: FormatB64JSON,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	d := resp.Data[0]
	if d.URL != "" {
		t.Error("URL set in b64_json mode")
	}
	decoded, err := imaging.Decode(d.B64JSON, core.DefaultMaxImageBytes)
	if err != nil {
		t.Fatalf("returned payload is not a decodable image: %v", err)
	}
	if decoded.Width != 256 || decoded.Height != 256 {
		t.Errorf("inline image is %dx%d, want 256x256", decoded.Width, decoded.Height)
	}
}

func TestEdit_DecodesAndUsesInput(t *testing.T) {
	backend := &captureBackend{}
	svc, _ := newTestService(t, backend)

	resp, err := svc.Edit(context.Background(), EditRequest{
		Image:  encodePNG(t, 300, 260),
		Prompt: "add a rainbow",
	})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("got %d images, want 1", len(resp.Data))
	}

	p := backend.params[0]
	if p.Input == nil {
		t.Fatal("backend received no input image")
	}
	if p.Width != 300 || p.Height != 260 {
		t.Errorf("edit dimensions = %dx%d, want input's 300x260", p.Width, p.Height)
	}
}

func TestEdit_ResizesToRequestedSize(t *testing.T) {
	backend := &captureBackend{}
	svc, _ := newTestService(t, backend)

	_, err := svc.Edit(context.Background(), EditRequest{
		Image:  encodePNG(t, 300, 260),
		Prompt: "add a rainbow",
		Size:   "512x512",
	})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	p := backend.params[0]
	if p.Width != 512 || p.Height != 512 {
		t.Errorf("edit dimensions = %dx%d, want requested 512x512", p.Width, p.Height)
	}
}

func TestEdit_RejectsBadPayload(t *testing.T) {
	svc, _ := newTestService(t, &captureBackend{})

	_, err := svc.Edit(context.Background(), EditRequest{Image: "!!!", Prompt: "x"})
	apiErr := core.AsAPIError(err)
	if apiErr.Type != core.TypeInvalidImageFormat {
		t.Errorf("error type = %q, want %q", apiErr.Type, core.TypeInvalidImageFormat)
	}
}

func TestEdit_RejectsOutOfBoundsInput(t *testing.T) {
	backend := &captureBackend{}
	svc, _ := newTestService(t, backend)

	tests := []struct {
		name string
		w, h int
	}{
		{"too small", 16, 16},
		{"too large", 2100, 2100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Edit(context.Background(), EditRequest{
				Image:  encodePNG(t, tt.w, tt.h),
				Prompt: "add a rainbow",
			})
			apiErr := core.AsAPIError(err)
			if apiErr.Type != core.TypeInvalidImageFormat {
				t.Errorf("error type = %q, want %q", apiErr.Type, core.TypeInvalidImageFormat)
			}
		})
	}
	if len(backend.params) != 0 {
		t.Error("model was invoked despite out-of-bounds input")
	}
}

func TestVary_OnePromptPerInvocationWithNilSeeds(t *testing.T) {
	backend := &captureBackend{}
	svc, _ := newTestService(t, backend)

	resp, err := svc.Vary(context.Background(), VaryRequest{
		Image:   encodePNG(t, 300, 300),
		Prompts: []string{"in winter", "in summer", "at night"},
	})
	if err != nil {
		t.Fatalf("Vary() error = %v", err)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("got %d images, want 3", len(resp.Data))
	}

	for i, s := range backend.seeds() {
		if s != nil {
			t.Errorf("sub-invocation %d received seed %d, want nil", i, *s)
		}
	}

	prompts := make(map[string]bool)
	for _, p := range backend.params {
		prompts[p.Prompt] = true
	}
	for _, want := range []string{
		"Based on this image, in winter. Keep the main subject but add variations.",
		"Based on this image, in summer. Keep the main subject but add variations.",
		"Based on this image, at night. Keep the main subject but add variations.",
	} {
		if !prompts[want] {
			t.Errorf("no sub-invocation used framed prompt %q", want)
		}
	}

	// Revised prompts echo the framing in request order.
	if got := resp.Data[0].RevisedPrompt; got != "Based on this image, in winter. Keep the main subject but add variations." {
		t.Errorf("revised_prompt[0] = %q", got)
	}
}

func TestVary_RejectsEmptyPromptList(t *testing.T) {
	backend := &captureBackend{}
	svc, _ := newTestService(t, backend)

	_, err := svc.Vary(context.Background(), VaryRequest{
		Image: encodePNG(t, 300, 300),
	})
	apiErr := core.AsAPIError(err)
	if apiErr.Type != core.TypeInvalidParameters {
		t.Fatalf("error type = %q, want %q", apiErr.Type, core.TypeInvalidParameters)
	}
	if len(backend.params) != 0 {
		t.Error("dispatch happened despite empty prompt list")
	}
}

func TestVary_RejectsBlankPrompt(t *testing.T) {
	svc, _ := newTestService(t, &captureBackend{})

	_, err := svc.Vary(context.Background(), VaryRequest{
		Image:   encodePNG(t, 300, 300),
		Prompts: []string{"fine", "   "},
	})
	apiErr := core.AsAPIError(err)
	if apiErr.Type != core.TypeInvalidParameters {
		t.Errorf("error type = %q, want %q", apiErr.Type, core.TypeInvalidParameters)
	}
}

func TestVary_RejectsUndersizedInput(t *testing.T) {
	backend := &captureBackend{}
	svc, _ := newTestService(t, backend)

	_, err := svc.Vary(context.Background(), VaryRequest{
		Image:   encodePNG(t, 16, 16),
		Prompts: []string{"in winter"},
	})
	apiErr := core.AsAPIError(err)
	if apiErr.Type != core.TypeInvalidImageFormat {
		t.Errorf("error type = %q, want %q", apiErr.Type, core.TypeInvalidImageFormat)
	}
	if len(backend.params) != 0 {
		t.Error("model was invoked despite undersized input")
	}
}

func TestVary_TooManyPrompts(t *testing.T) {
	svc, _ := newTestService(t, &captureBackend{})

	prompts := make([]string, MaxVaryPrompts+1)
	for i := range prompts {
		prompts[i] = "p"
	}
	_, err := svc.Vary(context.Background(), VaryRequest{
		Image:   encodePNG(t, 300, 300),
		Prompts: prompts,
	})
	apiErr := core.AsAPIError(err)
	if apiErr.Type != core.TypeInvalidParameters {
		t.Errorf("error type = %q, want %q", apiErr.Type, core.TypeInvalidParameters)
	}
}
