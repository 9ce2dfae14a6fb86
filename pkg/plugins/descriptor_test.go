package plugins

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGUID = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

func TestParseEngineDescriptor(t *testing.T) {
	id := uuid.MustParse(testGUID)

	tests := []struct {
		name     string
		body     string
		wantKind Kind
		manifest string
		resource ResourceSelector
	}{
		{name: "braced ID", body: "ID = {" + testGUID + "}\n"},
		{name: "bare ID", body: "ID = " + testGUID + "\n"},
		{name: "case insensitive keys", body: "id = {" + testGUID + "}\n"},
		{name: "missing ID", body: "Manifest = engine.yaml\n", wantKind: KindMissingIdentifier},
		{name: "empty ID", body: "ID =\n", wantKind: KindMissingIdentifier},
		{name: "malformed ID", body: "ID = {not-a-guid}\n", wantKind: KindMalformedIdentifier},
		{name: "relative manifest", body: "ID = " + testGUID + "\nManifest = engine.yaml\n", manifest: "engine.yaml"},
		{name: "absolute manifest", body: "ID = " + testGUID + "\nManifest = /etc/engine.yaml\n", manifest: "/etc/engine.yaml"},
		{name: "numeric resource", body: "ID = " + testGUID + "\nManifestResourceID = 7\n", resource: ResourceID(7)},
		{name: "hex resource", body: "ID = " + testGUID + "\nManifestResourceID = 0x10\n", resource: ResourceID(16)},
		{name: "named resource", body: "ID = " + testGUID + "\nManifestResourceName = Legacy\n", resource: ResourceName("Legacy")},
		{
			name:     "numeric resource wins over name",
			body:     "ID = " + testGUID + "\nManifestResourceID = 7\nManifestResourceName = Legacy\n",
			resource: ResourceID(7),
		},
		{name: "zero resource", body: "ID = " + testGUID + "\nManifestResourceID = 0\n", wantKind: KindInvalidResourceSelector},
		{name: "octal resource", body: "ID = " + testGUID + "\nManifestResourceID = 0o17\n", resource: ResourceID(15)},
		{name: "leading zero octal resource", body: "ID = " + testGUID + "\nManifestResourceID = 017\n", resource: ResourceID(15)},
		{name: "underscore in resource", body: "ID = " + testGUID + "\nManifestResourceID = 1_0\n", wantKind: KindInvalidResourceSelector},
		{name: "binary resource", body: "ID = " + testGUID + "\nManifestResourceID = 0b111\n", wantKind: KindInvalidResourceSelector},
		{name: "resource too large", body: "ID = " + testGUID + "\nManifestResourceID = 70000\n", wantKind: KindInvalidResourceSelector},
		{
			name:     "non-numeric resource does not fall back to name",
			body:     "ID = " + testGUID + "\nManifestResourceID = seven\nManifestResourceName = Legacy\n",
			wantKind: KindInvalidResourceSelector,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeEngine(t, t.TempDir(), "Engine", tt.body)

			desc, err := ParseEngineDescriptor(dir)
			if tt.wantKind != KindUnknown {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantKind)
				assert.Nil(t, desc)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, id, desc.ID)
			assert.Equal(t, "Engine", desc.Name)
			assert.Equal(t, dir, desc.Dir)
			assert.Equal(t, tt.resource, desc.Resource)

			switch {
			case tt.manifest == "":
				assert.Empty(t, desc.Manifest)
			case filepath.IsAbs(tt.manifest):
				assert.Equal(t, tt.manifest, desc.Manifest)
			default:
				assert.Equal(t, filepath.Join(dir, tt.manifest), desc.Manifest)
			}
		})
	}
}

func TestParseEngineDescriptor_MissingFile(t *testing.T) {
	dir := t.TempDir()

	_, err := ParseEngineDescriptor(dir)
	assert.ErrorIs(t, err, ErrMissingIdentifier)
}

func TestParseEngineDescriptor_Malformed(t *testing.T) {
	dir := writeDescriptor(t, t.TempDir(), EngineDescriptorFile, "[Engine\nID = "+testGUID+"\n")

	_, err := ParseEngineDescriptor(dir)
	assert.ErrorIs(t, err, ErrMalformedDescriptor)
}

func TestParseSwitchTypeDescriptor(t *testing.T) {
	engineID := uuid.New()

	tests := []struct {
		name     string
		body     string
		wantKind Kind
	}{
		{name: "valid", body: "ID = {" + testGUID + "}\nEngine = {" + engineID.String() + "}\n"},
		{name: "missing ID", body: "Engine = " + engineID.String() + "\n", wantKind: KindMissingIdentifier},
		{name: "missing engine", body: "ID = " + testGUID + "\n", wantKind: KindMissingEngineReference},
		{name: "malformed engine", body: "ID = " + testGUID + "\nEngine = {123}\n", wantKind: KindMalformedIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeSwitch(t, t.TempDir(), "Lamp", tt.body)

			desc, err := ParseSwitchTypeDescriptor(dir)
			if tt.wantKind != KindUnknown {
				assert.ErrorIs(t, err, tt.wantKind)
				var le *LoadError
				require.ErrorAs(t, err, &le)
				assert.Equal(t, "Lamp", le.Plugin)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, uuid.MustParse(testGUID), desc.ID)
			assert.Equal(t, engineID, desc.EngineID)
			assert.Equal(t, "Lamp", desc.Name)
		})
	}
}
