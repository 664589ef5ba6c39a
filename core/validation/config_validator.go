package validation

import (
	"flux_backend/core"
)

// ValidationResult is the outcome of a single configuration check.
type ValidationResult struct {
	Valid   bool
	Message string
	Error   error
}

// ConfigValidator runs the non-network configuration checks: environment
// file presence, config loading, backend settings, and storage paths.
type ConfigValidator struct {
	envPath string
}

// NewConfigValidator creates a ConfigValidator reading ".env" by default.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{envPath: ".env"}
}

// WithEnvPath sets a custom path for the .env file.
func (v *ConfigValidator) WithEnvPath(path string) *ConfigValidator {
	v.envPath = path
	return v
}

// CheckEnvFile reports whether the .env file exists. A missing file is not
// fatal since every setting has an environment default; the suite records
// it as a warning.
func (v *ConfigValidator) CheckEnvFile() ValidationResult {
	if err := CheckFileExists(v.envPath); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Environment file missing, using process environment",
			Error:   err,
		}
	}
	return ValidationResult{Valid: true, Message: "Environment file found"}
}

// CheckConfig loads and validates the full service configuration. The
// loaded config is returned so later checks can reuse it.
func (v *ConfigValidator) CheckConfig() (*core.Config, ValidationResult) {
	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, ValidationResult{
			Valid:   false,
			Message: "Configuration invalid",
			Error:   err,
		}
	}
	return cfg, ValidationResult{Valid: true, Message: "Configuration valid"}
}

// CheckBackendSettings validates the model backend selection. For the
// remote backend the endpoint URL must parse; the stub backend needs
// nothing.
func (v *ConfigValidator) CheckBackendSettings(cfg *core.Config) ValidationResult {
	switch cfg.BackendKind {
	case "stub":
		return ValidationResult{Valid: true, Message: "Stub backend selected"}
	case "openai":
		if err := ValidateBaseURL(cfg.RemoteBaseURL); err != nil {
			return ValidationResult{
				Valid:   false,
				Message: "Remote endpoint URL invalid",
				Error:   err,
			}
		}
		return ValidationResult{Valid: true, Message: "Remote backend configured"}
	default:
		return ValidationResult{
			Valid:   false,
			Message: "Unknown model backend",
			Error:   core.ErrInvalidConfig("MODEL_BACKEND", cfg.BackendKind),
		}
	}
}

// CheckOutputDirectory verifies the image output directory and the history
// database directory can be created and written.
func (v *ConfigValidator) CheckOutputDirectory(cfg *core.Config) ValidationResult {
	if err := CheckDirWritable(cfg.OutputDir); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Output directory not writable",
			Error:   err,
		}
	}
	return ValidationResult{Valid: true, Message: "Output directory writable"}
}

// CheckDiskHeadroom verifies the output filesystem has enough free space
// for generated images.
func (v *ConfigValidator) CheckDiskHeadroom(cfg *core.Config) ValidationResult {
	if err := CheckOutputSpace(cfg.OutputDir); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Insufficient disk space",
			Error:   err,
		}
	}
	return ValidationResult{Valid: true, Message: "Disk space sufficient"}
}
