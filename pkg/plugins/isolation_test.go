package plugins

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func isolationRequest() IsolationRequest {
	return IsolationRequest{Plugin: "Test", Dir: "/engines/test", Manifest: "/engines/test/engine.yaml"}
}

func TestIsolate_NoManifest(t *testing.T) {
	p := &fakeProvider{}
	var got Scope

	err := Isolate(p, IsolationRequest{Plugin: "Test"}, nil, func(scope Scope) error {
		got = scope
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, DefaultScope, got)
	assert.Empty(t, p.requests)
}

func TestIsolate_Success(t *testing.T) {
	p := &fakeProvider{}

	err := Isolate(p, isolationRequest(), nil, func(scope Scope) error {
		path, ok := scope.Resolve("helper")
		assert.True(t, ok)
		assert.Equal(t, "/engines/helper.so", path)
		assert.Equal(t, 1, p.activated)
		assert.Equal(t, 0, p.deactivated)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, p.deactivated)
	assert.Equal(t, 1, p.released)
}

func TestIsolate_Failures(t *testing.T) {
	tests := []struct {
		name            string
		provider        *fakeProvider
		body            error
		wantKind        Kind
		wantActivated   int
		wantDeactivated int
		wantReleased    int
	}{
		{
			name:     "acquire fails",
			provider: &fakeProvider{acquireErr: NewStatusError(2, "manifest not found")},
			wantKind: KindIsolationSetupFailed,
		},
		{
			name:         "activate fails",
			provider:     &fakeProvider{activateErr: NewStatusError(14084, "stack corrupt")},
			wantKind:     KindIsolationActivationFailed,
			wantReleased: 1,
		},
		{
			name:            "body fails",
			provider:        &fakeProvider{},
			body:            &LoadError{Kind: KindActivationFailed, Plugin: "Test"},
			wantKind:        KindActivationFailed,
			wantActivated:   1,
			wantDeactivated: 1,
			wantReleased:    1,
		},
		{
			name:          "deactivate fails",
			provider:      &fakeProvider{deactivateErr: NewStatusError(14085, "bad cookie")},
			wantKind:      KindIsolationTeardownFailed,
			wantActivated: 1,
			wantReleased:  1,
		},
		{
			name:     "body fails and teardown fails",
			provider: &fakeProvider{deactivateErr: errBoom, releaseErr: errBoom},
			body:     &LoadError{Kind: KindActivationFailed, Plugin: "Test"},
			// The teardown failure must not hide the body's error
			wantKind:      KindActivationFailed,
			wantActivated: 1,
			wantReleased:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.provider
			err := Isolate(p, isolationRequest(), nil, func(Scope) error { return tt.body })

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, tt.wantActivated, p.activated)
			assert.Equal(t, tt.wantDeactivated, p.deactivated)
			assert.Equal(t, tt.wantReleased, p.released)
			assert.Equal(t, p.acquired, p.released)
		})
	}
}

func TestIsolate_StatusAndMessage(t *testing.T) {
	req := isolationRequest()
	req.Resource = ResourceID(7)
	p := &fakeProvider{acquireErr: NewStatusError(1813, "resource not found")}

	err := Isolate(p, req, nil, func(Scope) error { return nil })

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 1813, le.Status)
	assert.Equal(t, ResourceID(7), le.Resource)
	assert.Equal(t, "failed to create manifest 7 inside /engines/test/engine.yaml for engine Test (status 1813): resource not found", err.Error())
	// Out of the exit status range
	assert.Equal(t, kindExitCodes[KindIsolationSetupFailed], le.ExitCode())
}

func TestIsolate_NilProviderOrContext(t *testing.T) {
	err := Isolate(nil, isolationRequest(), nil, func(Scope) error { return nil })
	assert.ErrorIs(t, err, ErrIsolationSetupFailed)
	assert.Equal(t, StatusNotSupported, StatusOf(err))

	err = Isolate(nilContextProvider{}, isolationRequest(), nil, func(Scope) error { return nil })
	assert.ErrorIs(t, err, ErrIsolationSetupFailed)
}

type nilContextProvider struct{}

func (nilContextProvider) Acquire(IsolationRequest) (IsolationContext, error) { return nil, nil }

func TestIsolate_PanicTearsDown(t *testing.T) {
	p := &fakeProvider{}

	assert.PanicsWithValue(t, "body panicked", func() {
		_ = Isolate(p, isolationRequest(), nil, func(Scope) error {
			panic("body panicked")
		})
	})

	assert.Equal(t, 1, p.deactivated)
	assert.Equal(t, 1, p.released)
}

func TestIsolate_ReleaseFailureAfterSuccessIsLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	p := &fakeProvider{releaseErr: errBoom}

	err := Isolate(p, isolationRequest(), log, func(Scope) error { return nil })

	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "Test")
}

// Whatever fails and wherever, every acquired context is released once and
// every activation is undone or never happened.
func TestIsolate_AcquireEqualsReleaseProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := &fakeProvider{}
		runs := rapid.IntRange(1, 20).Draw(t, "runs")

		for i := 0; i < runs; i++ {
			p.acquireErr = nil
			p.activateErr = nil
			p.deactivateErr = nil
			p.releaseErr = nil

			if rapid.Bool().Draw(t, "acquireFails") {
				p.acquireErr = errBoom
			}
			if rapid.Bool().Draw(t, "activateFails") {
				p.activateErr = errBoom
			}
			if rapid.Bool().Draw(t, "deactivateFails") {
				p.deactivateErr = errBoom
			}
			if rapid.Bool().Draw(t, "releaseFails") {
				p.releaseErr = errBoom
			}
			outcome := rapid.SampledFrom([]string{"ok", "error", "panic"}).Draw(t, "outcome")

			func() {
				defer func() { _ = recover() }()
				_ = Isolate(p, isolationRequest(), nil, func(Scope) error {
					switch outcome {
					case "error":
						return errBoom
					case "panic":
						panic("boom")
					}
					return nil
				})
			}()
		}

		if p.acquired != p.released {
			t.Fatalf("acquired %d contexts, released %d", p.acquired, p.released)
		}
	})
}

func TestIsolate_ReleaseFailureAfterActivationFailureIsLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	p := &fakeProvider{activateErr: errBoom, releaseErr: NewStatusError(6, "invalid handle")}

	err := Isolate(p, isolationRequest(), log, func(Scope) error { return nil })

	assert.ErrorIs(t, err, ErrIsolationActivationFailed)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, p.released)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "invalid handle")
}
