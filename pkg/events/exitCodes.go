package events

const (
	// ExitCodeSuccess is the exit code for a successful run.
	ExitCodeSuccess = iota
	ExitCodeGenericFailure
	// ExitCodeConfigFailure is used when the configuration or the device
	// tree could not be loaded.
	ExitCodeConfigFailure
)
