package plugins

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a load failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingIdentifier
	KindMalformedIdentifier
	KindInvalidResourceSelector
	KindMissingEngineReference
	KindMalformedDescriptor
	KindDuplicateEngineIdentifier
	KindDuplicateSwitchTypeIdentifier
	KindUnknownEngineReference
	KindIsolationSetupFailed
	KindIsolationActivationFailed
	KindIsolationTeardownFailed
	KindActivationFailed
	KindSwitchTypeLoadFailed
	KindNoEnginesInstalled
	KindEnumerationFailed
)

var kindNames = map[Kind]string{
	KindUnknown:                       "Unknown",
	KindMissingIdentifier:             "MissingIdentifier",
	KindMalformedIdentifier:           "MalformedIdentifier",
	KindInvalidResourceSelector:       "InvalidResourceSelector",
	KindMissingEngineReference:        "MissingEngineReference",
	KindMalformedDescriptor:           "MalformedDescriptor",
	KindDuplicateEngineIdentifier:     "DuplicateEngineIdentifier",
	KindDuplicateSwitchTypeIdentifier: "DuplicateSwitchTypeIdentifier",
	KindUnknownEngineReference:        "UnknownEngineReference",
	KindIsolationSetupFailed:          "IsolationSetupFailed",
	KindIsolationActivationFailed:     "IsolationActivationFailed",
	KindIsolationTeardownFailed:       "IsolationTeardownFailed",
	KindActivationFailed:              "ActivationFailed",
	KindSwitchTypeLoadFailed:          "SwitchTypeLoadFailed",
	KindNoEnginesInstalled:            "NoEnginesInstalled",
	KindEnumerationFailed:             "EnumerationFailed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error lets a Kind act as a sentinel for errors.Is.
func (k Kind) Error() string {
	return k.String()
}

// Sentinels for errors.Is matching against a *LoadError.
var (
	ErrMissingIdentifier             error = KindMissingIdentifier
	ErrMalformedIdentifier           error = KindMalformedIdentifier
	ErrInvalidResourceSelector       error = KindInvalidResourceSelector
	ErrMissingEngineReference        error = KindMissingEngineReference
	ErrMalformedDescriptor           error = KindMalformedDescriptor
	ErrDuplicateEngineIdentifier     error = KindDuplicateEngineIdentifier
	ErrDuplicateSwitchTypeIdentifier error = KindDuplicateSwitchTypeIdentifier
	ErrUnknownEngineReference        error = KindUnknownEngineReference
	ErrIsolationSetupFailed          error = KindIsolationSetupFailed
	ErrIsolationActivationFailed     error = KindIsolationActivationFailed
	ErrIsolationTeardownFailed       error = KindIsolationTeardownFailed
	ErrActivationFailed              error = KindActivationFailed
	ErrSwitchTypeLoadFailed          error = KindSwitchTypeLoadFailed
	ErrNoEnginesInstalled            error = KindNoEnginesInstalled
	ErrEnumerationFailed             error = KindEnumerationFailed
)

// Exit codes used when a failure carries no usable status code.
const (
	ExitSuccess      = 0
	ExitGenericError = 1
)

var kindExitCodes = map[Kind]int{
	KindMissingIdentifier:             10,
	KindMalformedIdentifier:           11,
	KindInvalidResourceSelector:       12,
	KindMissingEngineReference:        13,
	KindMalformedDescriptor:           14,
	KindDuplicateEngineIdentifier:     15,
	KindDuplicateSwitchTypeIdentifier: 16,
	KindUnknownEngineReference:        17,
	KindIsolationSetupFailed:          18,
	KindIsolationActivationFailed:     19,
	KindIsolationTeardownFailed:       20,
	KindActivationFailed:              21,
	KindSwitchTypeLoadFailed:          22,
	KindNoEnginesInstalled:            23,
	KindEnumerationFailed:             24,
}

// LoadError describes why plugin loading stopped.
type LoadError struct {
	Kind Kind
	// Plugin is the directory name of the offending plugin, if any.
	Plugin string
	// Other names the already-registered plugin for duplicate identifiers.
	Other    string
	Manifest string
	Resource ResourceSelector
	// Status is the underlying status code, zero when none applies.
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder

	switch e.Kind {
	case KindMissingIdentifier:
		fmt.Fprintf(&b, "ID is not configured for plugin %s", e.Plugin)
	case KindMalformedIdentifier:
		fmt.Fprintf(&b, "failed to parse identifier for plugin %s", e.Plugin)
	case KindInvalidResourceSelector:
		fmt.Fprintf(&b, "invalid ManifestResourceID in descriptor of plugin %s", e.Plugin)
	case KindMissingEngineReference:
		fmt.Fprintf(&b, "engine ID is not configured for switch %s", e.Plugin)
	case KindMalformedDescriptor:
		fmt.Fprintf(&b, "failed to read descriptor of plugin %s", e.Plugin)
	case KindDuplicateEngineIdentifier:
		fmt.Fprintf(&b, "engine %s has the same ID as engine %s", e.Plugin, e.Other)
	case KindDuplicateSwitchTypeIdentifier:
		fmt.Fprintf(&b, "switch %s has the same ID as switch %s", e.Plugin, e.Other)
	case KindUnknownEngineReference:
		fmt.Fprintf(&b, "switch %s is configured to use a non-existent engine", e.Plugin)
	case KindIsolationSetupFailed, KindIsolationActivationFailed:
		verb := "create"
		if e.Kind == KindIsolationActivationFailed {
			verb = "activate"
		}
		if e.Resource.IsZero() {
			fmt.Fprintf(&b, "failed to %s manifest %s for engine %s", verb, e.Manifest, e.Plugin)
		} else {
			fmt.Fprintf(&b, "failed to %s manifest %s inside %s for engine %s", verb, e.Resource, e.Manifest, e.Plugin)
		}
	case KindIsolationTeardownFailed:
		fmt.Fprintf(&b, "failed to deactivate manifest for engine %s", e.Plugin)
	case KindActivationFailed:
		fmt.Fprintf(&b, "failed to create engine instance for engine %s", e.Plugin)
	case KindSwitchTypeLoadFailed:
		fmt.Fprintf(&b, "failed to load switch %s", e.Plugin)
	case KindNoEnginesInstalled:
		b.WriteString("there are no engines installed, install at least one engine first")
	case KindEnumerationFailed:
		b.WriteString("failed to enumerate plugin directories")
	default:
		fmt.Fprintf(&b, "plugin %s failed to load", e.Plugin)
	}

	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *LoadError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// ExitCode returns the process exit code for e.
func (e *LoadError) ExitCode() int {
	if e.Status > 0 && e.Status <= 255 {
		return e.Status
	}
	if code, ok := kindExitCodes[e.Kind]; ok {
		return code
	}
	return ExitGenericError
}

// StatusCoder is implemented by errors carrying a numeric status.
type StatusCoder interface {
	StatusCode() int
}

// StatusError is a plain error with a status code attached.
type StatusError struct {
	Code int
	Err  error
}

// NewStatusError returns an error carrying code.
func NewStatusError(code int, format string, args ...interface{}) *StatusError {
	return &StatusError{Code: code, Err: fmt.Errorf(format, args...)}
}

func (e *StatusError) Error() string {
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// StatusCode implements StatusCoder.
func (e *StatusError) StatusCode() int {
	return e.Code
}

// StatusOf returns the first status code found in err's chain, or 0.
func StatusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// ExitCode maps any error returned by the loader to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le.ExitCode()
	}
	return ExitGenericError
}

func newLoadError(kind Kind, plugin string, err error) *LoadError {
	return &LoadError{Kind: kind, Plugin: plugin, Status: StatusOf(err), Err: err}
}
