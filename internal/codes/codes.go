package codes

import "errors"

// Exit codes returned by keg
const (
	Success               = 0
	GeneralFailure        = 1
	DependencyUnavailable = 10
	FetchFailed           = 11
	IntegrityMismatch     = 12
	BuildStepFailed       = 13
	InstallFailed         = 14
)

// ErrorCodes maps keg exit codes to their descriptions
var ErrorCodes = map[int]string{
	Success:               "Success",
	GeneralFailure:        "General failure",
	DependencyUnavailable: "Dependency unavailable",
	FetchFailed:           "Cannot fetch source archive",
	IntegrityMismatch:     "Source archive checksum mismatch",
	BuildStepFailed:       "Build step failed",
	InstallFailed:         "Cannot install build artifact",
}

// IsSuccess returns true if the exit code indicates a successful install
func IsSuccess(code int) bool {
	return code == Success
}

// GetErrorMessage returns the error message for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}

// coder is implemented by every typed installer error
type coder interface {
	Code() int
}

// ExitCode returns the process exit code for err
func ExitCode(err error) int {
	if err == nil {
		return Success
	}

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	return GeneralFailure
}
