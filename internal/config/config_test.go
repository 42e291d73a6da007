package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"tilde only", "~", home},
		{"tilde slash", "~/foo/bar", filepath.Join(home, "foo", "bar")},
		{"absolute", "/tmp/foo", "/tmp/foo"},
		{"relative", "foo/bar", "foo/bar"},
		{"tilde user", "~bob/x", "~bob/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)

	dir, err := cfg.JournalDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataHome, "daybook", "entries"), dir)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

func TestLoadYAMLConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configDir := filepath.Join(tmpDir, "daybook")
	require.NoError(t, os.MkdirAll(configDir, 0750))

	configData := `dir: "~/journal"
adapter: sqlite
suffix: .md
workers: 2
protect_past: true
log_level: debug
autosave:
  policy: immediate
  debounce: 750ms
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configData), 0600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Adapter)
	assert.Equal(t, ".md", cfg.Suffix)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.ProtectPast)
	assert.Equal(t, "immediate", cfg.Autosave.Policy)
	assert.Equal(t, 750*time.Millisecond, cfg.Autosave.Debounce)

	home, _ := os.UserHomeDir()
	dir, err := cfg.JournalDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "journal"), dir)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 5)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "dir: [unclosed", "parse"},
		{"bad adapter", "adapter: s3", "invalid adapter"},
		{"bad policy", "autosave:\n  policy: sometimes", "unknown autosave policy"},
		{"bad level", "log_level: loud", "invalid log_level"},
		{"negative workers", "workers: -1", "invalid workers"},
		{"bad duration", "autosave:\n  debounce: soon", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := LoadFile(path)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := &Config{
		Dir:      "/var/journal",
		Adapter:  "fs",
		Autosave: AutosaveConfig{Policy: "debounced", Debounce: 2 * time.Second},
	}
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
