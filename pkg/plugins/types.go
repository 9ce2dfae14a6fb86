package plugins

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
)

// Engine is implemented by engine plugins
type Engine interface {
	// LoadSwitchType instantiates the switch type described by props.
	LoadSwitchType(ctx context.Context, props *SwitchTypeProperties) (SwitchType, error)
}

// SwitchType is implemented by switch-type plugins
type SwitchType interface {
	// NewSwitch creates a switch instance through the edit flow driven by editor.
	// It returns ErrSwitchCanceled if the user dismissed the editor.
	NewSwitch(ctx context.Context, editor SwitchEditor) (Switch, error)
}

// Switch is a single controllable entity created by a SwitchType
type Switch interface {
	Name() string
	IsOn(ctx context.Context) (bool, error)
	Turn(ctx context.Context, on bool) error
}

// SwitchEditor is supplied by the user interface to edit a new switch
type SwitchEditor interface {
	// EditSwitch lets the user fill draft. It returns false if the edit was canceled.
	EditSwitch(ctx context.Context, draft *SwitchDraft) (bool, error)
}

// SwitchDraft holds the user-editable settings of a switch being created
type SwitchDraft struct {
	Name     string
	Settings map[string]string
}

// ErrSwitchCanceled is returned by NewSwitch when the edit flow was canceled
var ErrSwitchCanceled = errors.New("switch creation canceled")

// EngineDescriptor is the parsed content of an Engine.ini
type EngineDescriptor struct {
	ID   uuid.UUID
	Name string // Directory name
	Dir  string
	// Manifest is the isolation manifest path, empty when the engine shares
	// the default dependency context.
	Manifest string
	Resource ResourceSelector
}

// SwitchTypeDescriptor is the parsed content of a Switch.ini
type SwitchTypeDescriptor struct {
	ID       uuid.UUID
	EngineID uuid.UUID
	Name     string // Directory name
	Dir      string
}

// SwitchTypeProperties are handed to Engine.LoadSwitchType
type SwitchTypeProperties struct {
	Name         string
	Directory    string
	SwitchTypeID uuid.UUID
	EngineID     uuid.UUID
	// Descriptor is the path of the switch type's Switch.ini, engines may
	// read their own sections from it.
	Descriptor string
}

// ResourceSelector picks a manifest resource either by numeric ID or by name.
// The zero value selects nothing.
type ResourceSelector struct {
	id   uint16
	name string
}

// ResourceID returns a selector for a numeric resource.
func ResourceID(id uint16) ResourceSelector {
	return ResourceSelector{id: id}
}

// ResourceName returns a selector for a named resource.
func ResourceName(name string) ResourceSelector {
	return ResourceSelector{name: name}
}

// IsZero reports whether no resource is selected.
func (s ResourceSelector) IsZero() bool {
	return s.id == 0 && s.name == ""
}

// IsID reports whether the selector is numeric.
func (s ResourceSelector) IsID() bool {
	return s.id != 0
}

// ID returns the numeric resource, 0 for named or empty selectors.
func (s ResourceSelector) ID() uint16 {
	return s.id
}

// Name returns the resource name, empty for numeric selectors.
func (s ResourceSelector) Name() string {
	return s.name
}

func (s ResourceSelector) String() string {
	switch {
	case s.id != 0:
		return strconv.Itoa(int(s.id))
	case s.name != "":
		return s.name
	default:
		return ""
	}
}
