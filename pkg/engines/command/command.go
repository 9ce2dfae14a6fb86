// Package command implements an engine whose switches run shell commands.
//
// A switch type backed by this engine declares its commands in the Command
// section of its Switch.ini:
//
//	[Switch]
//	ID = {...}
//	Engine = {6f1c2a4e-8d5b-4c1e-9a37-2b0f5d8e7c13}
//
//	[Command]
//	On = systemctl start $SWITCH_UNIT
//	Off = systemctl stop $SWITCH_UNIT
//	Status = systemctl is-active --quiet $SWITCH_UNIT
//
//	[Settings]
//	Unit = example.service
//
// Settings are offered to the editor when a switch is created and exported
// to the commands as SWITCH_<KEY> environment variables.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/switcher/pkg/plugins"
)

// EngineID is the class identifier of the command engine
var EngineID = uuid.MustParse("6f1c2a4e-8d5b-4c1e-9a37-2b0f5d8e7c13")

// ShellDependency is the manifest dependency that overrides the shell
const ShellDependency = "shell"

const (
	commandSection  = "Command"
	settingsSection = "Settings"
	defaultShell    = "/bin/sh"
	envPrefix       = "SWITCH_"
)

// Engine loads command switch types
type Engine struct {
	dir   string
	shell string
	log   logrus.FieldLogger
}

// Factory returns a plugins.Factory creating command engines that log to log
func Factory(log logrus.FieldLogger) plugins.Factory {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(req *plugins.ActivationRequest) (any, error) {
		return New(req, log), nil
	}
}

// New creates an engine for the activation request. The shell comes from
// the isolation scope when the engine manifest binds one.
func New(req *plugins.ActivationRequest, log logrus.FieldLogger) *Engine {
	shell := defaultShell
	if req.Scope != nil {
		if path, ok := req.Scope.Resolve(ShellDependency); ok {
			shell = path
		}
	}

	return &Engine{
		dir:   req.Directory,
		shell: shell,
		log:   log.WithField("engine", req.Name),
	}
}

// Shell returns the shell commands are run with
func (e *Engine) Shell() string {
	return e.shell
}

// LoadSwitchType reads the Command section of the switch type's descriptor
func (e *Engine) LoadSwitchType(ctx context.Context, props *plugins.SwitchTypeProperties) (plugins.SwitchType, error) {
	f, err := plugins.OpenDescriptor(props.Descriptor)
	if err != nil {
		return nil, err
	}

	sec := f.Section(commandSection)
	st := &SwitchType{
		name:     props.Name,
		dir:      props.Directory,
		shell:    e.shell,
		on:       strings.TrimSpace(sec.Key("On").String()),
		off:      strings.TrimSpace(sec.Key("Off").String()),
		status:   strings.TrimSpace(sec.Key("Status").String()),
		defaults: make(map[string]string),
		log:      e.log.WithField("switch_type", props.Name),
	}

	if st.on == "" || st.off == "" {
		return nil, fmt.Errorf("switch type %s: section [%s] needs both On and Off", props.Name, commandSection)
	}

	if f.HasSection(settingsSection) {
		for _, key := range f.Section(settingsSection).Keys() {
			st.defaults[key.Name()] = key.String()
		}
	}

	st.log.Debugf("Loaded commands (status command: %t)", st.status != "")
	return st, nil
}

// SwitchType creates command switches
type SwitchType struct {
	name     string
	dir      string
	shell    string
	on       string
	off      string
	status   string
	defaults map[string]string
	log      logrus.FieldLogger
}

// NewSwitch lets editor fill in the switch name and settings
func (st *SwitchType) NewSwitch(ctx context.Context, editor plugins.SwitchEditor) (plugins.Switch, error) {
	if editor == nil {
		return nil, errors.New("no switch editor available")
	}

	draft := &plugins.SwitchDraft{
		Name:     st.name,
		Settings: make(map[string]string, len(st.defaults)),
	}
	for k, v := range st.defaults {
		draft.Settings[k] = v
	}

	ok, err := editor.EditSwitch(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to edit switch: %w", err)
	}
	if !ok {
		return nil, plugins.ErrSwitchCanceled
	}
	if strings.TrimSpace(draft.Name) == "" {
		return nil, errors.New("switch name is required")
	}

	return &Switch{
		typ:  st,
		name: draft.Name,
		env:  settingsEnv(draft.Settings),
	}, nil
}

func settingsEnv(settings map[string]string) []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, envPrefix+strings.ToUpper(k)+"="+settings[k])
	}
	return env
}

// Switch runs the commands of its type
type Switch struct {
	typ  *SwitchType
	name string
	env  []string

	mu    sync.Mutex
	state bool
}

// Name returns the name given in the editor
func (s *Switch) Name() string {
	return s.name
}

// IsOn runs the status command, exit status 0 meaning on. Without a status
// command the last state set through Turn is reported.
func (s *Switch) IsOn(ctx context.Context) (bool, error) {
	if s.typ.status == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.state, nil
	}

	err := s.run(ctx, s.typ.status)
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}

// Turn runs the On or Off command
func (s *Switch) Turn(ctx context.Context, on bool) error {
	cmd := s.typ.off
	if on {
		cmd = s.typ.on
	}

	if err := s.run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to turn %s %s: %w", s.name, onOff(on), err)
	}

	s.mu.Lock()
	s.state = on
	s.mu.Unlock()

	s.typ.log.WithField("switch", s.name).Infof("Turned %s", onOff(on))
	return nil
}

func (s *Switch) run(ctx context.Context, command string) error {
	cmd := exec.CommandContext(ctx, s.typ.shell, "-c", command)
	cmd.Dir = s.typ.dir
	cmd.Env = append(os.Environ(), s.env...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

var (
	_ plugins.Engine     = (*Engine)(nil)
	_ plugins.SwitchType = (*SwitchType)(nil)
	_ plugins.Switch     = (*Switch)(nil)
)
