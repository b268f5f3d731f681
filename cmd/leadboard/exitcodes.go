package main

// Exit codes for the leadboard CLI.
const (
	ExitOK         = 0 // Success.
	ExitError      = 1 // Bad flags, bad config or an I/O failure.
	ExitLoadFailed = 2 // The dataset could not be loaded; output shows an empty table.
)

// exitCodeError carries a specific exit code out of a command.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }
