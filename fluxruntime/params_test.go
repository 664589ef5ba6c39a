package fluxruntime

import (
	"errors"
	"strings"
	"testing"
)

func validParams() Params {
	return Params{
		Prompt:   "a lighthouse at dusk",
		Width:    1024,
		Height:   1024,
		Steps:    28,
		Guidance: 2.5,
	}
}

func TestValidateParams(t *testing.T) {
	lim := DefaultLimits()

	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr error
	}{
		{"valid defaults", func(p *Params) {}, nil},
		{"empty prompt", func(p *Params) { p.Prompt = "" }, ErrInvalidPrompt},
		{"whitespace prompt", func(p *Params) { p.Prompt = "   " }, ErrInvalidPrompt},
		{"prompt too long", func(p *Params) { p.Prompt = strings.Repeat("x", MaxPromptLength+1) }, ErrInvalidPrompt},
		{"zero width", func(p *Params) { p.Width = 0 }, ErrInvalidParams},
		{"negative height", func(p *Params) { p.Height = -1 }, ErrInvalidParams},
		{"steps below minimum", func(p *Params) { p.Steps = 0 }, ErrInvalidParams},
		{"steps above limit", func(p *Params) { p.Steps = lim.MaxSteps + 1 }, ErrInvalidParams},
		{"steps at limit", func(p *Params) { p.Steps = lim.MaxSteps }, nil},
		{"guidance below minimum", func(p *Params) { p.Guidance = 0.5 }, ErrInvalidParams},
		{"guidance above maximum", func(p *Params) { p.Guidance = 10.5 }, ErrInvalidParams},
		{"guidance at bounds", func(p *Params) { p.Guidance = 10.0 }, nil},
		{"strength below minimum", func(p *Params) { p.Strength = 0.05 }, ErrInvalidParams},
		{"strength above maximum", func(p *Params) { p.Strength = 1.5 }, ErrInvalidParams},
		{"strength within range", func(p *Params) { p.Strength = 0.7 }, nil},
		{"strength unset", func(p *Params) { p.Strength = 0 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := ValidateParams(p, lim)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateParams() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateParams() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBatchSize(t *testing.T) {
	lim := DefaultLimits()

	tests := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{"single image", 1, false},
		{"at limit", lim.MaxBatch, false},
		{"zero", 0, true},
		{"negative", -1, true},
		{"above limit", lim.MaxBatch + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchSize(tt.n, lim)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBatchSize(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("error %v is not ErrInvalidParams", err)
			}
		})
	}
}
