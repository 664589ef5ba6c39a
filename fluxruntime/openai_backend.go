package fluxruntime

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/sashabaranov/go-openai"
)

// OpenAIBackend runs inference against an OpenAI-compatible image API.
// It serves deployments where the FLUX model is hosted behind a remote
// inference server rather than loaded in-process.
//
// The remote API exposes no steps or guidance knobs, so those parameters
// are accepted and ignored here. Seeds are likewise chosen server-side.
//
// Thread Safety: OpenAIBackend is safe for concurrent use. The underlying
// client handles connection pooling.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// OpenAIBackendConfig holds configuration for the remote backend.
type OpenAIBackendConfig struct {
	// BaseURL is the OpenAI-compatible endpoint (required).
	BaseURL string

	// APIKey authenticates against the endpoint. Optional for local
	// inference servers that skip auth.
	APIKey string

	// Model is the model identifier sent with each request (required).
	Model string
}

// NewOpenAIBackend creates a backend over an OpenAI-compatible image API.
func NewOpenAIBackend(cfg OpenAIBackendConfig) (*OpenAIBackend, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("fluxruntime: remote backend requires an endpoint URL")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("fluxruntime: remote backend requires a model name")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}, nil
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string {
	return b.model
}

// Load implements Backend. The remote server owns the model weights, so
// loading reduces to a reachability probe against the models endpoint.
func (b *OpenAIBackend) Load(ctx context.Context) error {
	if _, err := b.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: remote endpoint unreachable: %v", ErrModelLoadFailed, err)
	}
	return nil
}

// Infer implements Backend. Invocations with an input image go through the
// edit endpoint; pure text invocations go through the generation endpoint.
func (b *OpenAIBackend) Infer(ctx context.Context, p Params) (image.Image, error) {
	size := fmt.Sprintf("%dx%d", p.Width, p.Height)

	var (
		response openai.ImageResponse
		err      error
	)
	if p.Input == nil {
		response, err = b.client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         p.Prompt,
			Model:          b.model,
			Size:           size,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
			N:              1,
		})
	} else {
		response, err = b.editImage(ctx, p, size)
	}
	if err != nil {
		return nil, fmt.Errorf("fluxruntime: remote inference failed: %w", err)
	}

	if len(response.Data) == 0 {
		return nil, fmt.Errorf("fluxruntime: remote endpoint returned no image data")
	}
	if response.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("fluxruntime: remote endpoint returned empty image payload")
	}

	raw, err := base64.StdEncoding.DecodeString(response.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("fluxruntime: remote endpoint returned invalid base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("fluxruntime: remote endpoint returned undecodable image: %w", err)
	}
	return img, nil
}

// editImage submits an image-conditioned invocation through the edit
// endpoint. The client API takes a file, so the input image is staged as a
// temporary PNG for the duration of the call.
func (b *OpenAIBackend) editImage(ctx context.Context, p Params, size string) (openai.ImageResponse, error) {
	f, err := os.CreateTemp("", "flux-edit-*.png")
	if err != nil {
		return openai.ImageResponse{}, fmt.Errorf("failed to stage input image: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if err := png.Encode(f, p.Input); err != nil {
		return openai.ImageResponse{}, fmt.Errorf("failed to encode input image: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return openai.ImageResponse{}, fmt.Errorf("failed to rewind input image: %w", err)
	}

	return b.client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          f,
		Prompt:         p.Prompt,
		Model:          b.model,
		Size:           size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		N:              1,
	})
}

// Close implements Backend. The remote connection is stateless.
func (b *OpenAIBackend) Close() error {
	return nil
}
