package core

// Process exit codes.
const (
	// ExitCodeSuccess indicates normal termination.
	ExitCodeSuccess = 0

	// ExitCodeError indicates a runtime failure.
	ExitCodeError = 1

	// ExitCodeConfigError indicates the process refused to start because
	// of invalid configuration.
	ExitCodeConfigError = 2
)
