package main

// Exit codes shared by every command.
const (
	ExitSuccess     = 0 // Success, including partial success with artifacts
	ExitError       = 1 // General error, or zero artifacts could be produced
	ExitConfigError = 2 // Configuration error (bad paths, unreadable selection file)
	ExitDataError   = 3 // Data error (malformed input, validation failure)
)
