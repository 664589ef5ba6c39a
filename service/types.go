// Package service orchestrates generation requests end to end: parameter
// validation, input decoding, seed derivation, bounded fan-out into the
// model runtime, and response assembly.
package service

import "flux_backend/core"

// ResponseFormat selects how generated images are returned.
type ResponseFormat string

const (
	// FormatURL persists each image and returns a fetchable URL.
	FormatURL ResponseFormat = "url"
	// FormatB64JSON returns each image inline as base64 PNG.
	FormatB64JSON ResponseFormat = "b64_json"
)

// MaxVaryPrompts bounds the prompt list of a variation request.
const MaxVaryPrompts = 10

// CreateRequest asks for n images generated from a single prompt.
type CreateRequest struct {
	Prompt         string         `json:"prompt"`
	N              int            `json:"n"`
	Size           string         `json:"size"`
	ResponseFormat ResponseFormat `json:"response_format"`
	User           string         `json:"user"`
	Guidance       float64        `json:"guidance_scale"`
	Steps          int            `json:"num_inference_steps"`
	Seed           *int64         `json:"seed"`
}

// EditRequest asks for n edits of an input image under a single prompt.
type EditRequest struct {
	Image          string         `json:"image"` // base64, optional data-URL prefix
	Prompt         string         `json:"prompt"`
	N              int            `json:"n"`
	Size           string         `json:"size"`
	ResponseFormat ResponseFormat `json:"response_format"`
	User           string         `json:"user"`
	Guidance       float64        `json:"guidance_scale"`
	Steps          int            `json:"num_inference_steps"`
	Seed           *int64         `json:"seed"`
}

// VaryRequest asks for one variation of an input image per prompt. The
// batch size is implied by the prompt list length.
type VaryRequest struct {
	Image          string         `json:"image"` // base64, optional data-URL prefix
	Prompts        []string       `json:"prompts"`
	ResponseFormat ResponseFormat `json:"response_format"`
	User           string         `json:"user"`
	Guidance       float64        `json:"guidance_scale"`
	Steps          int            `json:"num_inference_steps"`
	Seed           *int64         `json:"seed"`
	Strength       float64        `json:"variation_strength"`
}

// applyDefaults fills zero-valued fields with the configured defaults so
// downstream validation sees a fully populated request.
func (r *CreateRequest) applyDefaults(cfg *core.Config) {
	if r.N == 0 {
		r.N = 1
	}
	if r.Size == "" {
		r.Size = defaultSize(cfg)
	}
	if r.ResponseFormat == "" {
		r.ResponseFormat = FormatURL
	}
	if r.Guidance == 0 {
		r.Guidance = cfg.DefaultGuidanceScale
	}
	if r.Steps == 0 {
		r.Steps = cfg.DefaultInferenceSteps
	}
}

func (r *EditRequest) applyDefaults(cfg *core.Config) {
	if r.N == 0 {
		r.N = 1
	}
	if r.ResponseFormat == "" {
		r.ResponseFormat = FormatURL
	}
	if r.Guidance == 0 {
		r.Guidance = cfg.DefaultGuidanceScale
	}
	if r.Steps == 0 {
		r.Steps = cfg.DefaultInferenceSteps
	}
}

func (r *VaryRequest) applyDefaults(cfg *core.Config) {
	if r.ResponseFormat == "" {
		r.ResponseFormat = FormatURL
	}
	if r.Guidance == 0 {
		r.Guidance = cfg.DefaultGuidanceScale
	}
	if r.Steps == 0 {
		r.Steps = cfg.DefaultInferenceSteps
	}
	if r.Strength == 0 {
		r.Strength = 0.7
	}
}

func defaultSize(cfg *core.Config) string {
	px := cfg.DefaultImageSize
	if px == 0 {
		px = core.DefaultImageSizePx
	}
	return formatSize(px, px)
}

func validateFormat(f ResponseFormat) error {
	switch f {
	case FormatURL, FormatB64JSON:
		return nil
	default:
		return core.ErrInvalidParameters("response_format %q must be %q or %q", f, FormatURL, FormatB64JSON)
	}
}
