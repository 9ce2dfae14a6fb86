package plugins

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/switcher/pkg/observability"
)

const (
	// EnginesDirectory is the default engine directory below the install directory
	EnginesDirectory = "Engines"
	// SwitchesDirectory is the default switch-type directory below the install directory
	SwitchesDirectory = "Switches"

	tracerName = "github.com/platinummonkey/switcher/pkg/plugins"
)

// ErrAlreadyLoaded is returned by Load when the loader already ran
var ErrAlreadyLoaded = errors.New("plugins already loaded")

// State is the position of a Loader in its load sequence
type State int

const (
	StateStart State = iota
	StateEnginesLoading
	StateEnginesLoaded
	StateSwitchTypesLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "Start"
	case StateEnginesLoading:
		return "EnginesLoading"
	case StateEnginesLoaded:
		return "EnginesLoaded"
	case StateSwitchTypesLoading:
		return "SwitchTypesLoading"
	case StateReady:
		return "Ready"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Loader discovers engines and switch types below an install directory and
// activates them. A Loader runs once.
type Loader struct {
	enginesDir  string
	switchesDir string
	classes     *ClassRegistry
	isolation   IsolationProvider
	log         *logrus.Logger
	metrics     *observability.Metrics
	tracer      trace.Tracer

	state State
	err   error
}

// Option configures a Loader
type Option func(*Loader)

// WithIsolationProvider sets the provider used for engines declaring a manifest
func WithIsolationProvider(p IsolationProvider) Option {
	return func(l *Loader) {
		l.isolation = p
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithMetrics enables Prometheus metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// WithTracerProvider sets the tracer provider, the global one is used otherwise
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Loader) {
		if tp != nil {
			l.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithDirectories overrides the engine and switch directory names. Relative
// names are resolved against the install directory.
func WithDirectories(engines, switches string) Option {
	return func(l *Loader) {
		if engines != "" {
			l.enginesDir = engines
		}
		if switches != "" {
			l.switchesDir = switches
		}
	}
}

// NewLoader creates a loader for the plugins installed below installDir
func NewLoader(installDir string, classes *ClassRegistry, opts ...Option) *Loader {
	l := &Loader{
		enginesDir:  EnginesDirectory,
		switchesDir: SwitchesDirectory,
		classes:     classes,
		isolation:   unavailableProvider{},
		log:         logrus.New(),
		tracer:      otel.GetTracerProvider().Tracer(tracerName),
	}
	if l.classes == nil {
		l.classes = NewClassRegistry()
	}

	for _, opt := range opts {
		opt(l)
	}

	if !filepath.IsAbs(l.enginesDir) {
		l.enginesDir = filepath.Join(installDir, l.enginesDir)
	}
	if !filepath.IsAbs(l.switchesDir) {
		l.switchesDir = filepath.Join(installDir, l.switchesDir)
	}

	return l
}

// State returns the current state of the loader
func (l *Loader) State() State {
	return l.state
}

// Err returns the failure that moved the loader to StateFailed
func (l *Loader) Err() error {
	return l.err
}

// Load activates every engine, then every switch type. Any failure aborts
// the whole load and leaves the loader in StateFailed; engines activated
// before the failure are not unloaded.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	if l.state != StateStart {
		return nil, ErrAlreadyLoaded
	}

	ctx, span := l.tracer.Start(ctx, "plugins.Load")
	defer span.End()

	l.state = StateEnginesLoading
	engines, err := l.loadEngines(ctx)
	if err != nil {
		return nil, l.fail(span, err)
	}
	l.state = StateEnginesLoaded
	l.log.Infof("Loaded %d engine(s) from %s", engines.Len(), l.enginesDir)

	l.state = StateSwitchTypesLoading
	switchTypes, err := l.loadSwitchTypes(ctx, engines)
	if err != nil {
		return nil, l.fail(span, err)
	}
	l.log.Infof("Loaded %d switch type(s) from %s", switchTypes.Len(), l.switchesDir)

	l.state = StateReady
	l.metrics.RecordLoadCompleted(engines.Len(), switchTypes.Len(), time.Now())
	span.SetAttributes(
		attribute.Int("switcher.engines", engines.Len()),
		attribute.Int("switcher.switch_types", switchTypes.Len()),
	)

	return newCatalog(engines, switchTypes), nil
}

func (l *Loader) fail(span trace.Span, err error) error {
	l.state = StateFailed
	l.err = err

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	l.log.WithError(err).Error("Plugin loading failed")

	return err
}

func (l *Loader) loadEngines(ctx context.Context) (*EngineRegistry, error) {
	engines := NewEngineRegistry()

	err := EnumerateDirectories(l.enginesDir, func(name, path string) error {
		return l.loadEngine(ctx, engines, path)
	})
	if err != nil {
		return nil, asLoadError(err)
	}

	if engines.Len() == 0 {
		return nil, &LoadError{Kind: KindNoEnginesInstalled}
	}

	return engines, nil
}

func (l *Loader) loadEngine(ctx context.Context, engines *EngineRegistry, dir string) (err error) {
	start := time.Now()
	ctx, span := l.tracer.Start(ctx, "plugins.LoadEngine",
		trace.WithAttributes(attribute.String("plugin.name", filepath.Base(dir))))
	defer func() {
		l.metrics.RecordPluginLoad(observability.PluginKindEngine, time.Since(start), err, kindOf(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	desc, err := ParseEngineDescriptor(dir)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("plugin.id", desc.ID.String()))

	log := observability.WithTraceContext(ctx, l.log).WithFields(logrus.Fields{
		"plugin": desc.Name,
		"id":     desc.ID.String(),
		"kind":   observability.PluginKindEngine,
	})

	if existing, ok := engines.Lookup(desc.ID); ok {
		return &LoadError{
			Kind:   KindDuplicateEngineIdentifier,
			Plugin: desc.Name,
			Other:  existing.Descriptor.Name,
		}
	}

	req := IsolationRequest{
		Plugin:   desc.Name,
		Dir:      desc.Dir,
		Manifest: desc.Manifest,
		Resource: desc.Resource,
	}

	var engine Engine
	err = Isolate(l.isolation, req, log, func(scope Scope) error {
		if desc.Manifest != "" {
			l.metrics.RecordIsolation()
			log.Debugf("Activating inside manifest %s", desc.Manifest)
		}

		var aerr error
		engine, aerr = activate[Engine](l.classes, &ActivationRequest{
			ClassID:   desc.ID,
			Name:      desc.Name,
			Directory: desc.Dir,
			Scope:     scope,
			Context:   ctx,
		})
		return aerr
	})
	if err != nil {
		// Only set when teardown failed after a successful activation
		if engine != nil {
			discard(engine)
		}
		return err
	}

	if err := engines.Insert(&EngineEntry{Descriptor: desc, Engine: engine}); err != nil {
		discard(engine)
		return insertError(KindDuplicateEngineIdentifier, desc.Name, err)
	}

	log.Info("Loaded engine")
	return nil
}

func (l *Loader) loadSwitchTypes(ctx context.Context, engines *EngineRegistry) (*SwitchTypeRegistry, error) {
	switchTypes := NewSwitchTypeRegistry(engines)

	err := EnumerateDirectories(l.switchesDir, func(name, path string) error {
		return l.loadSwitchType(ctx, engines, switchTypes, path)
	})
	if err != nil {
		return nil, asLoadError(err)
	}

	return switchTypes, nil
}

func (l *Loader) loadSwitchType(ctx context.Context, engines *EngineRegistry, switchTypes *SwitchTypeRegistry, dir string) (err error) {
	start := time.Now()
	ctx, span := l.tracer.Start(ctx, "plugins.LoadSwitchType",
		trace.WithAttributes(attribute.String("plugin.name", filepath.Base(dir))))
	defer func() {
		l.metrics.RecordPluginLoad(observability.PluginKindSwitchType, time.Since(start), err, kindOf(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	desc, err := ParseSwitchTypeDescriptor(dir)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("plugin.id", desc.ID.String()),
		attribute.String("plugin.engine_id", desc.EngineID.String()),
	)

	log := observability.WithTraceContext(ctx, l.log).WithFields(logrus.Fields{
		"plugin": desc.Name,
		"id":     desc.ID.String(),
		"kind":   observability.PluginKindSwitchType,
	})

	if existing, ok := switchTypes.Lookup(desc.ID); ok {
		return &LoadError{
			Kind:   KindDuplicateSwitchTypeIdentifier,
			Plugin: desc.Name,
			Other:  existing.Descriptor.Name,
		}
	}

	owner, ok := engines.Lookup(desc.EngineID)
	if !ok {
		return &LoadError{
			Kind:   KindUnknownEngineReference,
			Plugin: desc.Name,
			Err:    fmt.Errorf("engine %s is not installed", desc.EngineID),
		}
	}

	props := &SwitchTypeProperties{
		Name:         desc.Name,
		Directory:    desc.Dir,
		SwitchTypeID: desc.ID,
		EngineID:     desc.EngineID,
		Descriptor:   filepath.Join(desc.Dir, SwitchDescriptorFile),
	}

	switchType, err := loadFromEngine(ctx, owner.Engine, props)
	if err != nil {
		discard(switchType)
		return newLoadError(KindSwitchTypeLoadFailed, desc.Name, err)
	}
	if switchType == nil {
		return &LoadError{
			Kind:   KindSwitchTypeLoadFailed,
			Plugin: desc.Name,
			Status: StatusNilInstance,
			Err:    fmt.Errorf("engine %s returned no switch type", owner.Descriptor.Name),
		}
	}

	entry := &SwitchTypeEntry{Descriptor: desc, SwitchType: switchType, Engine: owner}
	if err := switchTypes.Insert(entry); err != nil {
		discard(switchType)
		return insertError(KindDuplicateSwitchTypeIdentifier, desc.Name, err)
	}

	log.WithField("engine", owner.Descriptor.Name).Info("Loaded switch type")
	return nil
}

// loadFromEngine calls the engine, turning a panic into an error.
func loadFromEngine(ctx context.Context, engine Engine, props *SwitchTypeProperties) (st SwitchType, err error) {
	defer func() {
		if perr := observability.MustRecover(recover()); perr != nil {
			st = nil
			err = &StatusError{Code: StatusPanic, Err: perr}
		}
	}()

	return engine.LoadSwitchType(ctx, props)
}

func insertError(kind Kind, plugin string, err error) error {
	le := &LoadError{Kind: kind, Plugin: plugin, Err: err}

	var conflict interface{ existingName() string }
	if errors.As(err, &conflict) {
		le.Other = conflict.existingName()
		le.Err = nil
	}

	return le
}

// asLoadError keeps loader errors as they are and classifies anything else
// as an enumeration failure.
func asLoadError(err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{Kind: KindEnumerationFailed, Status: StatusOf(err), Err: err}
}

func kindOf(err error) fmt.Stringer {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}
