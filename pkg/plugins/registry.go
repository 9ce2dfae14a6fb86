package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrRegistrySealed is returned when inserting into a registry after loading finished
var ErrRegistrySealed = errors.New("registry is sealed")

// EngineEntry is an activated engine together with its descriptor
type EngineEntry struct {
	Descriptor *EngineDescriptor
	Engine     Engine
}

// SwitchTypeEntry is an activated switch type bound to its owning engine
type SwitchTypeEntry struct {
	Descriptor *SwitchTypeDescriptor
	SwitchType SwitchType
	Engine     *EngineEntry
}

// NewSwitch creates a new switch of this type through editor.
func (e *SwitchTypeEntry) NewSwitch(ctx context.Context, editor SwitchEditor) (Switch, error) {
	return e.SwitchType.NewSwitch(ctx, editor)
}

func (e *EngineEntry) key() uuid.UUID { return e.Descriptor.ID }
func (e *EngineEntry) name() string   { return e.Descriptor.Name }

func (e *SwitchTypeEntry) key() uuid.UUID { return e.Descriptor.ID }
func (e *SwitchTypeEntry) name() string   { return e.Descriptor.Name }

type entry interface {
	key() uuid.UUID
	name() string
}

// conflictError reports an insertion whose key is already taken.
type conflictError[E entry] struct {
	existing E
}

func (e *conflictError[E]) Error() string {
	return fmt.Sprintf("identifier %s already registered by %s", e.existing.key(), e.existing.name())
}

func (e *conflictError[E]) existingName() string {
	return e.existing.name()
}

// table is an append-only GUID keyed arena. Inserting never overwrites and a
// failed insert leaves the table untouched.
type table[E entry] struct {
	entries []E
	index   map[uuid.UUID]int
	sealed  bool
}

func newTable[E entry]() table[E] {
	return table[E]{index: make(map[uuid.UUID]int)}
}

func (t *table[E]) insert(e E) error {
	if t.sealed {
		return ErrRegistrySealed
	}
	if i, exists := t.index[e.key()]; exists {
		return &conflictError[E]{existing: t.entries[i]}
	}

	t.index[e.key()] = len(t.entries)
	t.entries = append(t.entries, e)
	return nil
}

func (t *table[E]) lookup(id uuid.UUID) (E, bool) {
	i, ok := t.index[id]
	if !ok {
		var zero E
		return zero, false
	}
	return t.entries[i], true
}

func (t *table[E]) all() []E {
	out := make([]E, len(t.entries))
	copy(out, t.entries)
	return out
}

// EngineRegistry holds the activated engines keyed by engine ID
type EngineRegistry struct {
	t table[*EngineEntry]
}

// NewEngineRegistry returns an empty engine registry.
func NewEngineRegistry() *EngineRegistry {
	return &EngineRegistry{t: newTable[*EngineEntry]()}
}

// Insert adds e. It fails if the ID is taken or the registry is sealed.
func (r *EngineRegistry) Insert(e *EngineEntry) error {
	return r.t.insert(e)
}

// Lookup returns the engine registered under id.
func (r *EngineRegistry) Lookup(id uuid.UUID) (*EngineEntry, bool) {
	return r.t.lookup(id)
}

// All returns the engines in load order.
func (r *EngineRegistry) All() []*EngineEntry {
	return r.t.all()
}

// Len returns the number of engines.
func (r *EngineRegistry) Len() int {
	return len(r.t.entries)
}

// Seal makes the registry read-only.
func (r *EngineRegistry) Seal() {
	r.t.sealed = true
}

// SwitchTypeRegistry holds the activated switch types keyed by switch-type ID.
// Every entry's owning engine is registered in the engine registry it was
// created with.
type SwitchTypeRegistry struct {
	engines *EngineRegistry
	t       table[*SwitchTypeEntry]
}

// NewSwitchTypeRegistry returns an empty switch-type registry whose entries
// must reference engines in engines. A nil engines is treated as empty.
func NewSwitchTypeRegistry(engines *EngineRegistry) *SwitchTypeRegistry {
	if engines == nil {
		engines = NewEngineRegistry()
	}
	return &SwitchTypeRegistry{engines: engines, t: newTable[*SwitchTypeEntry]()}
}

// Insert adds e. The owning engine must be the one registered under
// e.Descriptor.EngineID, and the ID must be free.
func (r *SwitchTypeRegistry) Insert(e *SwitchTypeEntry) error {
	if e.Engine == nil {
		return fmt.Errorf("switch type %s has no owning engine", e.Descriptor.Name)
	}
	owner, ok := r.engines.Lookup(e.Descriptor.EngineID)
	if !ok {
		return fmt.Errorf("switch type %s references engine %s which is not registered", e.Descriptor.Name, e.Descriptor.EngineID)
	}
	if owner != e.Engine {
		return fmt.Errorf("switch type %s is bound to engine %s but references %s",
			e.Descriptor.Name, e.Engine.Descriptor.Name, owner.Descriptor.Name)
	}
	return r.t.insert(e)
}

// Lookup returns the switch type registered under id.
func (r *SwitchTypeRegistry) Lookup(id uuid.UUID) (*SwitchTypeEntry, bool) {
	return r.t.lookup(id)
}

// All returns the switch types in load order.
func (r *SwitchTypeRegistry) All() []*SwitchTypeEntry {
	return r.t.all()
}

// ByEngine returns the switch types owned by the given engine.
func (r *SwitchTypeRegistry) ByEngine(engineID uuid.UUID) []*SwitchTypeEntry {
	var result []*SwitchTypeEntry
	for _, e := range r.t.entries {
		if e.Engine.Descriptor.ID == engineID {
			result = append(result, e)
		}
	}
	return result
}

// Len returns the number of switch types.
func (r *SwitchTypeRegistry) Len() int {
	return len(r.t.entries)
}

// Seal makes the registry read-only.
func (r *SwitchTypeRegistry) Seal() {
	r.t.sealed = true
}
