package servicectl

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the lifecycle taxonomy. Each maps to a distinct
// exit code via ExitCode and a message prefix via LifecycleError.
var (
	// ErrUnsupportedPlatform indicates no supported native service manager
	ErrUnsupportedPlatform = errors.New("servicectl: unsupported platform")

	// ErrMissingExecutable indicates the daemon binary is absent
	ErrMissingExecutable = errors.New("servicectl: daemon executable missing")

	// ErrInsufficientPrivilege indicates the command needs elevation
	// the caller does not have
	ErrInsufficientPrivilege = errors.New("servicectl: insufficient privilege")

	// ErrAlreadyInstalled indicates install found an existing registration
	ErrAlreadyInstalled = errors.New("servicectl: already installed")

	// ErrNotInstalled indicates the service is not registered
	ErrNotInstalled = errors.New("servicectl: not installed")

	// ErrTransitionTimeout indicates the native manager did not confirm
	// the target state within the deadline. Distinct from a hard native
	// failure: the service may still converge shortly after.
	ErrTransitionTimeout = errors.New("servicectl: state transition timed out")

	// ErrDescriptorGeneration indicates malformed descriptor inputs
	ErrDescriptorGeneration = errors.New("servicectl: descriptor generation failed")
)

// Exit codes, one per taxonomy entry. Zero is success; one is any
// native failure outside the taxonomy.
const (
	ExitOK                    = 0
	ExitNativeFailure         = 1
	ExitUsage                 = 2
	ExitUnsupportedPlatform   = 10
	ExitMissingExecutable     = 11
	ExitInsufficientPrivilege = 12
	ExitAlreadyInstalled      = 13
	ExitNotInstalled          = 14
	ExitTransitionTimeout     = 15
	ExitDescriptorGeneration  = 16
	ExitValidationViolation   = 17
)

// ExitCode maps an error to its taxonomy exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUnsupportedPlatform):
		return ExitUnsupportedPlatform
	case errors.Is(err, ErrMissingExecutable):
		return ExitMissingExecutable
	case errors.Is(err, ErrInsufficientPrivilege):
		return ExitInsufficientPrivilege
	case errors.Is(err, ErrAlreadyInstalled):
		return ExitAlreadyInstalled
	case errors.Is(err, ErrNotInstalled):
		return ExitNotInstalled
	case errors.Is(err, ErrTransitionTimeout):
		return ExitTransitionTimeout
	case errors.Is(err, ErrDescriptorGeneration):
		return ExitDescriptorGeneration
	default:
		var verr *ValidationError
		if errors.As(err, &verr) {
			return ExitValidationViolation
		}
		return ExitNativeFailure
	}
}

// Tag returns the taxonomy tag shown as the message prefix.
func Tag(err error) string {
	switch ExitCode(err) {
	case ExitUnsupportedPlatform:
		return "UnsupportedPlatform"
	case ExitMissingExecutable:
		return "MissingExecutable"
	case ExitInsufficientPrivilege:
		return "InsufficientPrivilege"
	case ExitAlreadyInstalled:
		return "AlreadyInstalled"
	case ExitNotInstalled:
		return "NotInstalled"
	case ExitTransitionTimeout:
		return "StateTransitionTimeout"
	case ExitDescriptorGeneration:
		return "DescriptorGenerationFailure"
	case ExitValidationViolation:
		return "ValidationViolation"
	default:
		return "NativeFailure"
	}
}

// LifecycleError wraps a failure from a lifecycle operation. Native
// diagnostic text is carried verbatim in Native and is never replaced
// by a generic message.
type LifecycleError struct {
	// Op is the lifecycle operation that failed (install, start, ...)
	Op string
	// Native is the raw stderr/diagnostic from the native tool or API
	Native string
	// Err is the underlying error, usually one of the sentinels
	Err error
}

// Error returns the taxonomy tag, operation, underlying error, and any
// native diagnostic.
func (e *LifecycleError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %v", Tag(e.Err), e.Op, e.Err)
	if e.Native != "" {
		fmt.Fprintf(&b, " (native: %s)", strings.TrimSpace(e.Native))
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// opErr wraps err for op, attaching native diagnostic output.
func opErr(op string, native string, err error) error {
	if err == nil {
		return nil
	}
	return &LifecycleError{Op: op, Native: native, Err: err}
}

// Violation is a single problem found by validate. Violations are
// collected, not fatal individually.
type Violation struct {
	// Check names the consistency check that failed
	Check string
	// Detail describes what was found
	Detail string
}

func (v Violation) String() string {
	return v.Check + ": " + v.Detail
}

// ValidationError aggregates every violation found by a validate run so
// a single invocation reports the full list.
type ValidationError struct {
	Violations []Violation
}

// Error returns a one-line summary; callers render individual
// violations themselves.
func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "1 validation violation"
	}
	return fmt.Sprintf("%d validation violations", len(e.Violations))
}

// Add records a violation.
func (e *ValidationError) Add(check, format string, args ...any) {
	e.Violations = append(e.Violations, Violation{Check: check, Detail: fmt.Sprintf(format, args...)})
}

// Err returns nil when no violations were recorded, otherwise the
// ValidationError itself.
func (e *ValidationError) Err() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
