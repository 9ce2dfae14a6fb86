package plugins

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassRegistry_Register(t *testing.T) {
	classes := NewClassRegistry()
	id := uuid.New()
	factory := func(*ActivationRequest) (any, error) { return &fakeEngine{}, nil }

	require.NoError(t, classes.Register(id, factory))
	assert.Error(t, classes.Register(id, factory))
	assert.Error(t, classes.Register(uuid.New(), nil))
	assert.Equal(t, 1, classes.Len())

	_, ok := classes.Lookup(id)
	assert.True(t, ok)
	_, ok = classes.Lookup(uuid.New())
	assert.False(t, ok)

	assert.Panics(t, func() { classes.MustRegister(id, factory) })
}

func TestActivate(t *testing.T) {
	id := uuid.New()
	req := &ActivationRequest{ClassID: id, Name: "Test", Scope: DefaultScope, Context: context.Background()}

	t.Run("success", func(t *testing.T) {
		classes, created := engineClasses(t, id)

		engine, err := activate[Engine](classes, req)
		require.NoError(t, err)
		assert.Same(t, created[id], engine)
		assert.Equal(t, DefaultScope, created[id].scope)
	})

	t.Run("class not registered", func(t *testing.T) {
		_, err := activate[Engine](NewClassRegistry(), req)

		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, KindActivationFailed, le.Kind)
		assert.Equal(t, StatusClassNotRegistered, le.Status)
		assert.Equal(t, StatusClassNotRegistered, le.ExitCode())
	})

	t.Run("factory error keeps status", func(t *testing.T) {
		classes := NewClassRegistry()
		classes.MustRegister(id, func(*ActivationRequest) (any, error) {
			return nil, NewStatusError(5, "access denied")
		})

		_, err := activate[Engine](classes, req)
		assert.ErrorIs(t, err, ErrActivationFailed)
		assert.Equal(t, 5, StatusOf(err))
		assert.Contains(t, err.Error(), "access denied")
	})

	t.Run("factory panic", func(t *testing.T) {
		classes := NewClassRegistry()
		classes.MustRegister(id, func(*ActivationRequest) (any, error) {
			panic("constructor failed")
		})

		_, err := activate[Engine](classes, req)
		assert.ErrorIs(t, err, ErrActivationFailed)
		assert.Equal(t, StatusPanic, StatusOf(err))
		assert.Contains(t, err.Error(), "constructor failed")
	})

	t.Run("nil instance", func(t *testing.T) {
		classes := NewClassRegistry()
		classes.MustRegister(id, func(*ActivationRequest) (any, error) { return nil, nil })

		_, err := activate[Engine](classes, req)
		assert.Equal(t, StatusNilInstance, StatusOf(err))
	})

	t.Run("wrong interface is closed", func(t *testing.T) {
		st := &closingSwitchType{}
		classes := NewClassRegistry()
		classes.MustRegister(id, func(*ActivationRequest) (any, error) { return st, nil })

		_, err := activate[Engine](classes, req)
		assert.Equal(t, StatusNoInterface, StatusOf(err))
		assert.True(t, st.closed)
	})

	t.Run("instance returned with error is closed", func(t *testing.T) {
		engine := &fakeEngine{}
		classes := NewClassRegistry()
		classes.MustRegister(id, func(*ActivationRequest) (any, error) { return engine, errBoom })

		_, err := activate[Engine](classes, req)
		assert.ErrorIs(t, err, errBoom)
		assert.True(t, engine.closed)
	})
}

type closingSwitchType struct {
	fakeSwitchType
	closed bool
}

func (c *closingSwitchType) Close() error {
	c.closed = true
	return nil
}
