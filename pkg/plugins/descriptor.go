package plugins

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/ini.v1"
)

const (
	// EngineDescriptorFile is the descriptor file inside each engine directory
	EngineDescriptorFile = "Engine.ini"
	// SwitchDescriptorFile is the descriptor file inside each switch-type directory
	SwitchDescriptorFile = "Switch.ini"

	engineSection = "Engine"
	switchSection = "Switch"
)

// OpenDescriptor parses an INI descriptor. Section and key names are case
// insensitive and a missing file yields an empty descriptor.
func OpenDescriptor(path string) (*ini.File, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Loose:               true,
		Insensitive:         true,
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

// ParseEngineDescriptor reads Engine.ini from an engine directory.
func ParseEngineDescriptor(dir string) (*EngineDescriptor, error) {
	name := filepath.Base(dir)

	f, err := OpenDescriptor(filepath.Join(dir, EngineDescriptorFile))
	if err != nil {
		return nil, newLoadError(KindMalformedDescriptor, name, err)
	}
	sec := f.Section(engineSection)

	id, err := parseIdentifier(name, sec.Key("ID").String(), KindMissingIdentifier)
	if err != nil {
		return nil, err
	}

	desc := &EngineDescriptor{
		ID:   id,
		Name: name,
		Dir:  dir,
	}

	if manifest := strings.TrimSpace(sec.Key("Manifest").String()); manifest != "" {
		if !filepath.IsAbs(manifest) {
			manifest = filepath.Join(dir, manifest)
		}
		desc.Manifest = manifest
	}

	// The numeric resource wins over the named one when both are present
	if raw := strings.TrimSpace(sec.Key("ManifestResourceID").String()); raw != "" {
		resID, err := parseResourceID(raw)
		if err != nil {
			return nil, &LoadError{Kind: KindInvalidResourceSelector, Plugin: name, Err: err}
		}
		desc.Resource = ResourceID(resID)
	} else if resName := strings.TrimSpace(sec.Key("ManifestResourceName").String()); resName != "" {
		desc.Resource = ResourceName(resName)
	}

	return desc, nil
}

// ParseSwitchTypeDescriptor reads Switch.ini from a switch-type directory.
func ParseSwitchTypeDescriptor(dir string) (*SwitchTypeDescriptor, error) {
	name := filepath.Base(dir)

	f, err := OpenDescriptor(filepath.Join(dir, SwitchDescriptorFile))
	if err != nil {
		return nil, newLoadError(KindMalformedDescriptor, name, err)
	}
	sec := f.Section(switchSection)

	id, err := parseIdentifier(name, sec.Key("ID").String(), KindMissingIdentifier)
	if err != nil {
		return nil, err
	}

	engineID, err := parseIdentifier(name, sec.Key("Engine").String(), KindMissingEngineReference)
	if err != nil {
		return nil, err
	}

	return &SwitchTypeDescriptor{
		ID:       id,
		EngineID: engineID,
		Name:     name,
		Dir:      dir,
	}, nil
}

// parseResourceID accepts a non-zero decimal, 0x hexadecimal, or 0 or 0o
// prefixed octal number.
func parseResourceID(raw string) (uint16, error) {
	lower := strings.ToLower(raw)
	if strings.Contains(raw, "_") || strings.HasPrefix(lower, "0b") {
		return 0, fmt.Errorf("invalid resource ID %q", raw)
	}

	id, err := strconv.ParseUint(raw, 0, 16)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("resource ID must not be zero")
	}
	return uint16(id), nil
}

// parseIdentifier parses a GUID, with or without braces. missing is the kind
// reported for an empty value.
func parseIdentifier(plugin, raw string, missing Kind) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, &LoadError{Kind: missing, Plugin: plugin}
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &LoadError{Kind: KindMalformedIdentifier, Plugin: plugin, Err: err}
	}

	return id, nil
}
