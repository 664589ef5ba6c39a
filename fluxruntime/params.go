package fluxruntime

import (
	"fmt"
	"image"
)

// Params holds parameters for a single model invocation.
// A batch request fans out into one Params value per output image, each
// carrying its own derived seed.
type Params struct {
	Prompt   string      // Required: text description of the desired image
	Width    int         // Output width in pixels
	Height   int         // Output height in pixels
	Steps    int         // Number of inference steps
	Guidance float64     // Guidance scale controlling prompt adherence
	Seed     *int64      // Seed for reproducibility (nil lets the backend choose)
	Input    image.Image // Optional: source image for edit and variation modes
	Strength float64     // Variation strength (variation mode only, 0 when unused)
}

// Parameter validation constants
const (
	MinGuidance = 1.0
	MaxGuidance = 10.0

	MinSteps = 1

	MinStrength = 0.1
	MaxStrength = 1.0

	MaxPromptLength = 4000
)

// Limits holds the configurable validation ceilings. The fixed ranges above
// are properties of the model; these two are deployment policy.
type Limits struct {
	MaxSteps int // Maximum inference steps per invocation
	MaxBatch int // Maximum images per request
}

// DefaultLimits returns the standard deployment limits.
func DefaultLimits() Limits {
	return Limits{MaxSteps: 50, MaxBatch: 4}
}

// ValidateParams validates invocation parameters and returns an error if invalid.
// This is a pure function with no side effects.
func ValidateParams(p Params, lim Limits) error {
	if err := ValidatePrompt(p.Prompt); err != nil {
		return err
	}

	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d must be positive",
			ErrInvalidParams, p.Width, p.Height)
	}

	if p.Steps < MinSteps || p.Steps > lim.MaxSteps {
		return fmt.Errorf("%w: steps %d must be between %d and %d",
			ErrInvalidParams, p.Steps, MinSteps, lim.MaxSteps)
	}

	if p.Guidance < MinGuidance || p.Guidance > MaxGuidance {
		return fmt.Errorf("%w: guidance scale %.2f must be between %.1f and %.1f",
			ErrInvalidParams, p.Guidance, MinGuidance, MaxGuidance)
	}

	// Strength only applies when varying an input image.
	if p.Strength != 0 && (p.Strength < MinStrength || p.Strength > MaxStrength) {
		return fmt.Errorf("%w: variation strength %.2f must be between %.1f and %.1f",
			ErrInvalidParams, p.Strength, MinStrength, MaxStrength)
	}

	return nil
}

// ValidateBatchSize checks the requested number of output images against the
// deployment limit. This is a pure function with no side effects.
func ValidateBatchSize(n int, lim Limits) error {
	if n < 1 || n > lim.MaxBatch {
		return fmt.Errorf("%w: image count %d must be between 1 and %d",
			ErrInvalidParams, n, lim.MaxBatch)
	}
	return nil
}
