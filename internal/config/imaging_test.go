package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyConfigUsesDefaults(t *testing.T) {
	c := EmptyImagingConfig()
	require.Equal(t, 256, c.GetWidth())
	require.Equal(t, 1.0, c.GetScaleX())
	require.Equal(t, 1<<30, c.GetHighCropRow())
}

func TestLoadImagingConfigOverridesOnlySetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imaging.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"width": 128, "scale_x": 2.0}`), 0o644))

	c, err := LoadImagingConfig(path)
	require.NoError(t, err)
	require.Equal(t, 128, c.GetWidth(), "width should be overridden by the fixture")
	require.Equal(t, 2.0, c.GetScaleX(), "scale_x should be overridden by the fixture")
	require.Equal(t, 256, c.GetHeight(), "height should fall back to its default")
}

func TestLoadImagingConfigRejectsNonJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imaging.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := LoadImagingConfig(path)
	require.Error(t, err)
}

func TestValidateRejectsNonPositiveDimensions(t *testing.T) {
	c := EmptyImagingConfig()
	c.Width = ptrInt(-1)
	require.Error(t, c.Validate())
}

func TestValidateRejectsNonPositivePixelsPerMM(t *testing.T) {
	c := EmptyImagingConfig()
	c.PixelsPerMM = ptrFloat64(0)
	require.Error(t, c.Validate())
}
