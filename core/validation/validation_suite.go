package validation

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"flux_backend/core"
)

// ValidationStep is a single validation step with its outcome.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// StepStatus is the status of a validation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

// String returns the string representation of a step status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SuiteResult is the complete outcome of a validation run. Warnings do not
// affect Success.
type SuiteResult struct {
	Steps       []ValidationStep
	TotalSteps  int
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool

	// Config is the validated configuration, set when the configuration
	// step passed. Callers reuse it instead of loading twice.
	Config *core.Config
}

// ValidationSuite runs all startup checks in order with progress output:
// environment file, configuration, backend settings, storage, disk space,
// and (for the remote backend) endpoint connectivity and credentials.
type ValidationSuite struct {
	output          io.Writer
	configValidator *ConfigValidator
	remoteChecker   *RemoteChecker
	showProgress    bool
	failFast        bool
}

// NewValidationSuite creates a ValidationSuite with default settings.
func NewValidationSuite() *ValidationSuite {
	return &ValidationSuite{
		output:          os.Stdout,
		configValidator: NewConfigValidator(),
		remoteChecker:   NewRemoteChecker(),
		showProgress:    true,
		failFast:        false,
	}
}

// WithOutput sets the output writer for progress messages.
func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

// WithTimeout sets the timeout for network probes.
func (s *ValidationSuite) WithTimeout(timeout time.Duration) *ValidationSuite {
	s.remoteChecker.WithTimeout(timeout)
	return s
}

// WithShowProgress enables or disables progress output.
func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// WithFailFast stops validation on the first failure.
func (s *ValidationSuite) WithFailFast(failFast bool) *ValidationSuite {
	s.failFast = failFast
	return s
}

// WithEnvPath sets a custom path for the .env file.
func (s *ValidationSuite) WithEnvPath(path string) *ValidationSuite {
	s.configValidator.WithEnvPath(path)
	return s
}

// Validate runs all checks in sequence and returns the combined result.
func (s *ValidationSuite) Validate() SuiteResult {
	startTime := time.Now()
	steps := make([]ValidationStep, 0, 7)

	if s.showProgress {
		s.printHeader("FLUX Backend Startup Validation")
	}

	// Environment file: missing is a warning, every setting has a default.
	envResult := s.configValidator.CheckEnvFile()
	envStep := ValidationStep{
		Name:    "Environment File",
		Status:  StepPassed,
		Message: envResult.Message,
	}
	if !envResult.Valid {
		envStep.Status = StepWarning
	}
	if s.showProgress {
		s.printStep(envStep)
	}
	steps = append(steps, envStep)

	var cfg *core.Config
	step := s.runStep("Configuration", func() (bool, string, error) {
		loaded, result := s.configValidator.CheckConfig()
		cfg = loaded
		return result.Valid, result.Message, result.Error
	})
	steps = append(steps, step)
	if step.Status == StepFailed {
		// Nothing else can run without a config.
		return s.finish(steps, startTime, cfg)
	}

	step = s.runStep("Backend Settings", func() (bool, string, error) {
		result := s.configValidator.CheckBackendSettings(cfg)
		return result.Valid, result.Message, result.Error
	})
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.finish(steps, startTime, cfg)
	}

	step = s.runStep("Output Directory", func() (bool, string, error) {
		result := s.configValidator.CheckOutputDirectory(cfg)
		return result.Valid, result.Message, result.Error
	})
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.finish(steps, startTime, cfg)
	}

	step = s.runStep("Disk Space", func() (bool, string, error) {
		result := s.configValidator.CheckDiskHeadroom(cfg)
		return result.Valid, result.Message, result.Error
	})
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.finish(steps, startTime, cfg)
	}

	// Remote probes only apply to the openai backend, and only when
	// everything before them passed.
	remoteSelected := cfg.BackendKind == "openai"
	allGood := !hasFailed(steps)

	if remoteSelected && allGood {
		step = s.runStep("Remote Connectivity", func() (bool, string, error) {
			result := s.remoteChecker.CheckConnectivity(cfg.RemoteBaseURL)
			msg := result.Message
			if result.Latency > 0 {
				msg = fmt.Sprintf("%s (latency: %v)", msg, result.Latency.Round(time.Millisecond))
			}
			return result.Reachable, msg, result.Error
		})
	} else {
		step = s.skippedStep("Remote Connectivity", remoteSelected)
	}
	steps = append(steps, step)

	if remoteSelected && step.Status == StepPassed {
		step = s.runStep("Remote Authentication", func() (bool, string, error) {
			result := s.remoteChecker.CheckAuthentication(cfg.RemoteBaseURL, cfg.RemoteAPIKey)
			return result.Valid, result.Message, result.Error
		})
	} else {
		step = s.skippedStep("Remote Authentication", remoteSelected)
	}
	steps = append(steps, step)

	return s.finish(steps, startTime, cfg)
}

// ValidateQuick runs only the local checks, skipping network probes.
func (s *ValidationSuite) ValidateQuick() SuiteResult {
	startTime := time.Now()
	steps := make([]ValidationStep, 0, 3)

	if s.showProgress {
		s.printHeader("Quick Configuration Check")
	}

	var cfg *core.Config
	step := s.runStep("Configuration", func() (bool, string, error) {
		loaded, result := s.configValidator.CheckConfig()
		cfg = loaded
		return result.Valid, result.Message, result.Error
	})
	steps = append(steps, step)
	if step.Status == StepFailed {
		return s.finish(steps, startTime, cfg)
	}

	step = s.runStep("Backend Settings", func() (bool, string, error) {
		result := s.configValidator.CheckBackendSettings(cfg)
		return result.Valid, result.Message, result.Error
	})
	steps = append(steps, step)

	return s.finish(steps, startTime, cfg)
}

// runStep executes a validation step with timing and progress output.
func (s *ValidationSuite) runStep(name string, fn func() (bool, string, error)) ValidationStep {
	step := ValidationStep{Name: name, Status: StepRunning}

	if s.showProgress {
		s.printStepStart(name)
	}

	startTime := time.Now()
	passed, message, err := fn()
	step.Latency = time.Since(startTime)
	step.Message = message
	step.Error = err

	if passed {
		step.Status = StepPassed
	} else {
		step.Status = StepFailed
	}

	if s.showProgress {
		s.printStep(step)
	}
	return step
}

// skippedStep records a step that did not run and prints it.
func (s *ValidationSuite) skippedStep(name string, remoteSelected bool) ValidationStep {
	message := "Skipped for stub backend"
	if remoteSelected {
		message = "Skipped due to earlier failures"
	}
	step := ValidationStep{Name: name, Status: StepSkipped, Message: message}
	if s.showProgress {
		s.printStep(step)
	}
	return step
}

func hasFailed(steps []ValidationStep) bool {
	for _, step := range steps {
		if step.Status == StepFailed {
			return true
		}
	}
	return false
}

// finish builds the SuiteResult and prints the summary.
func (s *ValidationSuite) finish(steps []ValidationStep, startTime time.Time, cfg *core.Config) SuiteResult {
	result := SuiteResult{
		Steps:      steps,
		TotalSteps: len(steps),
		Duration:   time.Since(startTime),
		Success:    true,
		Config:     cfg,
	}

	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			result.PassedSteps++
		case StepFailed:
			result.FailedSteps++
			result.Success = false
		case StepWarning:
			result.Warnings++
		}
	}

	if s.showProgress {
		s.printSummary(result)
	}
	return result
}

// printHeader prints a validation header.
func (s *ValidationSuite) printHeader(title string) {
	fmt.Fprintln(s.output)
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Fprintf(s.output, "=== %s ===\n", title)
	fmt.Fprintln(s.output)
}

// printStepStart prints the step name before execution.
func (s *ValidationSuite) printStepStart(name string) {
	fmt.Fprintf(s.output, "  . %s...", name)
}

// printStep prints a completed validation step with status indicator.
func (s *ValidationSuite) printStep(step ValidationStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon = "+"
		clr = color.New(color.FgGreen)
	case StepFailed:
		icon = "x"
		clr = color.New(color.FgRed)
	case StepWarning:
		icon = "!"
		clr = color.New(color.FgYellow)
	case StepSkipped:
		icon = "o"
		clr = color.New(color.FgHiBlack)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	fmt.Fprintf(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)

	if step.Message != "" {
		dim := color.New(color.FgHiBlack)
		dim.Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if step.Status == StepFailed && step.Error != nil {
		errColor := color.New(color.FgRed)
		errColor.Fprintf(s.output, "      %s\n", step.Error.Error())
	}
}

// printSummary prints the validation summary.
func (s *ValidationSuite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)

	if result.Success {
		successColor := color.New(color.FgGreen, color.Bold)
		successColor.Fprintf(s.output, "=== Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks passed in %v)",
			result.PassedSteps, result.TotalSteps, result.Duration.Round(time.Millisecond))
		successColor.Fprintln(s.output, " ===")
	} else {
		failColor := color.New(color.FgRed, color.Bold)
		failColor.Fprintf(s.output, "=== Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.PassedSteps, result.FailedSteps)
		failColor.Fprintln(s.output, " ===")
	}
	fmt.Fprintln(s.output)
}

// GetFirstError returns the first error from failed steps, or nil.
func (r SuiteResult) GetFirstError() error {
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Error != nil {
			return step.Error
		}
	}
	return nil
}

// Summary returns a one-line human-readable summary.
func (r SuiteResult) Summary() string {
	var sb strings.Builder
	if r.Success {
		sb.WriteString("Validation Passed: ")
	} else {
		sb.WriteString("Validation Failed: ")
	}
	sb.WriteString(fmt.Sprintf("%d/%d checks passed", r.PassedSteps, r.TotalSteps))
	if r.FailedSteps > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", r.FailedSteps))
	}
	if r.Warnings > 0 {
		sb.WriteString(fmt.Sprintf(", %d warnings", r.Warnings))
	}
	sb.WriteString(fmt.Sprintf(" (took %v)", r.Duration.Round(time.Millisecond)))
	return sb.String()
}
