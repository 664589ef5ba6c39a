package fluxruntime

import (
	"fmt"
	"strings"
)

// variationFraming is the fixed instruction wrapped around a user prompt
// before a variation invocation is submitted to the model.
const variationFraming = "Based on this image, %s. Keep the main subject but add variations."

// ValidatePrompt validates a prompt string for image generation.
// Returns an error if the prompt is invalid.
// This is a pure function with no side effects.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: prompt cannot be empty", ErrInvalidPrompt)
	}

	if len(prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt length %d exceeds maximum %d",
			ErrInvalidPrompt, len(prompt), MaxPromptLength)
	}

	return nil
}

// SanitizePrompt cleans a prompt by trimming whitespace.
// This is a pure function that transforms input to output.
func SanitizePrompt(prompt string) string {
	return strings.TrimSpace(prompt)
}

// WrapVariationPrompt embeds a user prompt in the variation framing
// instruction. The wrapped form is what the model actually receives for
// variation invocations.
func WrapVariationPrompt(prompt string) string {
	return fmt.Sprintf(variationFraming, SanitizePrompt(prompt))
}
