package config

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsApply(t *testing.T) {
	fs, flags := NewFlagSet("tunedeck")
	require.NoError(t, fs.Parse([]string{"--port", "8080", "--music-dir=/srv/music", "--watch", "-c", "/etc/tunedeck.toml"}))

	cfg := DefaultConfig()
	flags.Apply(cfg)

	assert.Equal(t, "/etc/tunedeck.toml", flags.ConfigPath)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "/srv/music", cfg.Music.Dir)
	assert.True(t, cfg.Music.WatchForChanges)
	// untouched flags keep config values
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, ".", cfg.Server.RootDir)
}

func TestFlagsDefaults(t *testing.T) {
	fs, flags := NewFlagSet("tunedeck")
	require.NoError(t, fs.Parse(nil))

	cfg := DefaultConfig()
	cfg.Server.Port = "9999"
	flags.Apply(cfg)

	assert.Equal(t, DefaultConfigPath, flags.ConfigPath)
	assert.Equal(t, "9999", cfg.Server.Port)
}

func TestFlagsUnknown(t *testing.T) {
	fs, _ := NewFlagSet("tunedeck")
	fs.SetOutput(io.Discard)
	assert.Error(t, fs.Parse([]string{"--verbose-mode"}))
}
