package plugins

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engineEntry(id uuid.UUID, name string) *EngineEntry {
	return &EngineEntry{
		Descriptor: &EngineDescriptor{ID: id, Name: name},
		Engine:     &fakeEngine{id: id},
	}
}

func TestEngineRegistry_Insert(t *testing.T) {
	r := NewEngineRegistry()
	first := engineEntry(uuid.New(), "First")
	second := engineEntry(uuid.New(), "Second")

	require.NoError(t, r.Insert(first))
	require.NoError(t, r.Insert(second))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []*EngineEntry{first, second}, r.All())

	got, ok := r.Lookup(first.Descriptor.ID)
	assert.True(t, ok)
	assert.Same(t, first, got)

	_, ok = r.Lookup(uuid.New())
	assert.False(t, ok)
}

func TestEngineRegistry_ConflictKeepsFirst(t *testing.T) {
	r := NewEngineRegistry()
	id := uuid.New()
	first := engineEntry(id, "First")

	require.NoError(t, r.Insert(first))
	err := r.Insert(engineEntry(id, "Second"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "First")

	assert.Equal(t, 1, r.Len())
	got, _ := r.Lookup(id)
	assert.Same(t, first, got)
}

func TestEngineRegistry_Sealed(t *testing.T) {
	r := NewEngineRegistry()
	r.Seal()

	err := r.Insert(engineEntry(uuid.New(), "Late"))
	assert.ErrorIs(t, err, ErrRegistrySealed)
	assert.Equal(t, 0, r.Len())
}

func TestEngineRegistry_AllReturnsCopy(t *testing.T) {
	r := NewEngineRegistry()
	require.NoError(t, r.Insert(engineEntry(uuid.New(), "First")))

	all := r.All()
	all[0] = nil

	assert.NotNil(t, r.All()[0])
}

func TestSwitchTypeRegistry(t *testing.T) {
	owner := engineEntry(uuid.New(), "Owner")
	other := engineEntry(uuid.New(), "Other")
	engines := NewEngineRegistry()
	require.NoError(t, engines.Insert(owner))
	require.NoError(t, engines.Insert(other))
	r := NewSwitchTypeRegistry(engines)

	lamp := &SwitchTypeEntry{
		Descriptor: &SwitchTypeDescriptor{ID: uuid.New(), EngineID: owner.Descriptor.ID, Name: "Lamp"},
		SwitchType: &fakeSwitchType{},
		Engine:     owner,
	}
	fan := &SwitchTypeEntry{
		Descriptor: &SwitchTypeDescriptor{ID: uuid.New(), EngineID: other.Descriptor.ID, Name: "Fan"},
		SwitchType: &fakeSwitchType{},
		Engine:     other,
	}

	require.NoError(t, r.Insert(lamp))
	require.NoError(t, r.Insert(fan))

	assert.Equal(t, []*SwitchTypeEntry{lamp}, r.ByEngine(owner.Descriptor.ID))
	assert.Empty(t, r.ByEngine(uuid.New()))

	err := r.Insert(&SwitchTypeEntry{Descriptor: &SwitchTypeDescriptor{ID: uuid.New(), Name: "Orphan"}})
	assert.Error(t, err)
	assert.Equal(t, 2, r.Len())

	err = r.Insert(&SwitchTypeEntry{
		Descriptor: &SwitchTypeDescriptor{ID: lamp.Descriptor.ID, EngineID: owner.Descriptor.ID, Name: "Copy"},
		Engine:     owner,
	})
	var conflict *conflictError[*SwitchTypeEntry]
	assert.ErrorAs(t, err, &conflict)

	_, err = lamp.NewSwitch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSwitchCanceled)
}

func TestSwitchTypeRegistry_OwnerMustBeRegistered(t *testing.T) {
	owner := engineEntry(uuid.New(), "Owner")
	engines := NewEngineRegistry()
	require.NoError(t, engines.Insert(owner))

	tests := []struct {
		name     string
		engineID uuid.UUID
		engine   *EngineEntry
	}{
		{
			name:     "engine not in registry",
			engineID: uuid.New(),
			engine:   engineEntry(uuid.New(), "Stray"),
		},
		{
			name:     "engine not in registry under a registered ID",
			engineID: owner.Descriptor.ID,
			engine:   engineEntry(owner.Descriptor.ID, "Stray"),
		},
		{
			name:     "engine ID does not match the owning engine",
			engineID: uuid.New(),
			engine:   owner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSwitchTypeRegistry(engines)
			err := r.Insert(&SwitchTypeEntry{
				Descriptor: &SwitchTypeDescriptor{ID: uuid.New(), EngineID: tt.engineID, Name: "Lamp"},
				SwitchType: &fakeSwitchType{},
				Engine:     tt.engine,
			})

			assert.Error(t, err)
			assert.Equal(t, 0, r.Len())
			assert.Empty(t, r.All())
		})
	}

	t.Run("nil engine registry", func(t *testing.T) {
		r := NewSwitchTypeRegistry(nil)
		err := r.Insert(&SwitchTypeEntry{
			Descriptor: &SwitchTypeDescriptor{ID: uuid.New(), EngineID: owner.Descriptor.ID, Name: "Lamp"},
			Engine:     owner,
		})
		assert.Error(t, err)
		assert.Equal(t, 0, r.Len())
	})
}

func TestCatalog_ConcurrentReaders(t *testing.T) {
	engines := NewEngineRegistry()
	entry := engineEntry(uuid.New(), "Engine")
	require.NoError(t, engines.Insert(entry))
	catalog := newCatalog(engines, NewSwitchTypeRegistry(engines))

	assert.ErrorIs(t, catalog.Engines().Insert(engineEntry(uuid.New(), "Late")), ErrRegistrySealed)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, ok := catalog.Engines().Lookup(entry.Descriptor.ID)
				assert.True(t, ok)
				assert.Same(t, entry, got)
				assert.Len(t, catalog.Engines().All(), 1)
				assert.Equal(t, 0, catalog.SwitchTypes().Len())
			}
		}()
	}
	wg.Wait()
}
